package repository

import (
	"context"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

type CreateMessageInput struct {
	ConversationID  int64
	OrganizationID  int64
	SenderID        string
	Body            string
	ClientMessageID string
	Kind            string
}

func (r *MessageRepository) Create(ctx context.Context, input CreateMessageInput) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_conversation_messages (
			conversation_id, organization_id, sender_id, body, client_message_id, kind
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, conversation_id, organization_id, sender_id, body,
		          client_message_id, kind, created_at, deleted_at
	`
	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query,
		input.ConversationID,
		input.OrganizationID,
		input.SenderID,
		input.Body,
		input.ClientMessageID,
		input.Kind,
	).Scan(
		&message.ID,
		&message.ConversationID,
		&message.OrganizationID,
		&message.SenderID,
		&message.Body,
		&message.ClientMessageID,
		&message.Kind,
		&message.CreatedAt,
		&message.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM chat_conversation_messages
		WHERE conversation_id = $1 AND deleted_at IS NULL
	`
	var total int
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, conversation_id, organization_id, sender_id, body,
		       client_message_id, kind, created_at, deleted_at
		FROM chat_conversation_messages
		WHERE conversation_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.OrganizationID,
			&message.SenderID,
			&message.Body,
			&message.ClientMessageID,
			&message.Kind,
			&message.CreatedAt,
			&message.DeletedAt,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// MarkReadUpTo moves the member's read pointer forward, never backward.
func (r *MessageRepository) MarkReadUpTo(
	ctx context.Context,
	conversationID int64,
	readerID string,
	messageID int64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_conversation_members
		SET last_read_message_id = $3
		WHERE conversation_id = $1
		  AND user_id = $2
		  AND COALESCE(last_read_message_id, 0) < $3
	`, conversationID, readerID, messageID)
	return err
}
