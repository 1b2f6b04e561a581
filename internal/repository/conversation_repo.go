package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

// ConversationRepository holds the pool directly because conversation
// creation runs its own transaction.
type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `
	id, organization_id, type, context_type, context_id, customer_id,
	professional_id, title, created_by_user_id, last_message_at,
	last_message_id, created_at
`

func scanConversation(row interface{ Scan(dest ...any) error }, c *models.Conversation) error {
	return row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Type,
		&c.ContextType,
		&c.ContextID,
		&c.CustomerID,
		&c.ProfessionalID,
		&c.Title,
		&c.CreatedByUserID,
		&c.LastMessageAt,
		&c.LastMessageID,
		&c.CreatedAt,
	)
}

// FindByBooking resolves the single conversation bound to a booking context,
// hydrated with organization and member profiles. Returns pgx.ErrNoRows when
// no conversation exists yet.
func (r *ConversationRepository) FindByBooking(
	ctx context.Context,
	organizationID int64,
	contextID string,
	customerID string,
) (*models.ConversationDetail, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM chat_conversations
		WHERE organization_id = $1
		  AND context_type = $2
		  AND context_id = $3
		  AND customer_id = $4
	`
	var conversation models.Conversation
	err := scanConversation(
		r.db.QueryRow(ctx, query, organizationID, models.ContextTypeBooking, contextID, customerID),
		&conversation,
	)
	if err != nil {
		return nil, err
	}
	return r.loadDetail(ctx, &conversation)
}

// CreateWithMembers creates the conversation and its initial membership in one
// transaction. The insert is an upsert against the booking-context unique
// index, so two concurrent first messages converge on the same row.
func (r *ConversationRepository) CreateWithMembers(
	ctx context.Context,
	conversation *models.Conversation,
	members []models.ConversationMember,
) (*models.ConversationDetail, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	insertConversation := `
		INSERT INTO chat_conversations (
			organization_id, type, context_type, context_id, customer_id,
			professional_id, title, created_by_user_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id, context_type, context_id, customer_id)
		DO UPDATE SET title = chat_conversations.title
		RETURNING ` + conversationColumns

	var created models.Conversation
	err = scanConversation(
		tx.QueryRow(ctx, insertConversation,
			conversation.OrganizationID,
			conversation.Type,
			conversation.ContextType,
			conversation.ContextID,
			conversation.CustomerID,
			conversation.ProfessionalID,
			conversation.Title,
			conversation.CreatedByUserID,
		),
		&created,
	)
	if err != nil {
		return nil, err
	}

	insertMember := `
		INSERT INTO chat_conversation_members (
			conversation_id, user_id, role, display_as, hidden_from_customer, organization_id
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`
	for _, member := range members {
		if _, err := tx.Exec(ctx, insertMember,
			created.ID,
			member.UserID,
			member.Role,
			member.DisplayAs,
			member.HiddenFromCustomer,
			member.OrganizationID,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.loadDetail(ctx, &created)
}

func (r *ConversationRepository) loadDetail(
	ctx context.Context,
	conversation *models.Conversation,
) (*models.ConversationDetail, error) {
	detail := &models.ConversationDetail{Conversation: *conversation}

	orgQuery := `
		SELECT id, public_name, business_name, username, branding_avatar_url, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	var org models.Organization
	err := r.db.QueryRow(ctx, orgQuery, conversation.OrganizationID).Scan(
		&org.ID,
		&org.PublicName,
		&org.BusinessName,
		&org.Username,
		&org.BrandingAvatarURL,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	detail.Organization = &org

	memberQuery := `
		SELECT
			m.conversation_id, m.user_id, m.role, m.display_as,
			m.hidden_from_customer, m.muted_until, m.organization_id,
			p.id, p.full_name, p.username, p.avatar_url
		FROM chat_conversation_members m
		LEFT JOIN profiles p ON p.id = m.user_id
		WHERE m.conversation_id = $1
		ORDER BY m.user_id ASC
	`
	rows, err := r.db.Query(ctx, memberQuery, conversation.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.ConversationMember, 0)
	for rows.Next() {
		var member models.ConversationMember
		var profileID sql.NullString
		var fullName, username, avatarURL *string
		if err := rows.Scan(
			&member.ConversationID,
			&member.UserID,
			&member.Role,
			&member.DisplayAs,
			&member.HiddenFromCustomer,
			&member.MutedUntil,
			&member.OrganizationID,
			&profileID,
			&fullName,
			&username,
			&avatarURL,
		); err != nil {
			return nil, err
		}
		if profileID.Valid {
			member.User = &models.Profile{
				ID:        profileID.String,
				FullName:  fullName,
				Username:  username,
				AvatarURL: avatarURL,
			}
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	detail.Members = members

	return detail, nil
}

// SetLastMessage advances the denormalized last-message pointer.
func (r *ConversationRepository) SetLastMessage(
	ctx context.Context,
	conversationID int64,
	messageID int64,
	at time.Time,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chat_conversations
		SET last_message_at = $2, last_message_id = $3
		WHERE id = $1
	`, conversationID, at, messageID)
	return err
}

func (r *ConversationRepository) GetForMember(
	ctx context.Context,
	conversationID int64,
	organizationID int64,
	userID string,
) (*models.Conversation, error) {
	query := `
		SELECT c.id, c.organization_id, c.type, c.context_type, c.context_id,
		       c.customer_id, c.professional_id, c.title, c.created_by_user_id,
		       c.last_message_at, c.last_message_id, c.created_at
		FROM chat_conversations c
		WHERE c.id = $1
		  AND c.organization_id = $2
		  AND EXISTS (
			SELECT 1 FROM chat_conversation_members m
			WHERE m.conversation_id = c.id AND m.user_id = $3
		  )
	`
	var conversation models.Conversation
	err := scanConversation(r.db.QueryRow(ctx, query, conversationID, organizationID, userID), &conversation)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListForMember returns the caller's conversations in the organization,
// newest activity first. updatedAfter filters on last_message_at, falling
// back to created_at for conversations that never got a message.
func (r *ConversationRepository) ListForMember(
	ctx context.Context,
	organizationID int64,
	userID string,
	limit int,
	updatedAfter *time.Time,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id, c.organization_id, c.type, c.context_type, c.context_id,
			c.customer_id, c.professional_id, c.title, c.created_by_user_id,
			c.last_message_at, c.last_message_id, c.created_at,
			lm.id,
			lm.conversation_id,
			lm.organization_id,
			lm.sender_id,
			lm.body,
			lm.client_message_id,
			lm.kind,
			lm.created_at,
			lm.deleted_at,
			COALESCE(uc.unread_count, 0)
		FROM chat_conversations c
		JOIN chat_conversation_members me
		  ON me.conversation_id = c.id AND me.user_id = $2
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, organization_id, sender_id, body,
			       client_message_id, kind, created_at, deleted_at
			FROM chat_conversation_messages
			WHERE conversation_id = c.id AND deleted_at IS NULL
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM chat_conversation_messages
			WHERE conversation_id = c.id
			  AND sender_id <> $2
			  AND deleted_at IS NULL
			  AND id > COALESCE(me.last_read_message_id, 0)
		) uc ON TRUE
		WHERE c.organization_id = $1
		  AND c.type = $3
		  AND ($4::timestamptz IS NULL OR COALESCE(c.last_message_at, c.created_at) > $4)
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id DESC
		LIMIT $5
	`

	rows, err := r.db.Query(ctx, query,
		organizationID, userID, models.ConversationTypeChannel, updatedAfter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID, messageConversationID, messageOrganizationID sql.NullInt64
		var messageSenderID, messageBody, messageClientID, messageKind sql.NullString
		var messageCreatedAt sql.NullTime
		var messageDeletedAt *time.Time

		if err := rows.Scan(
			&summary.ID,
			&summary.OrganizationID,
			&summary.Type,
			&summary.ContextType,
			&summary.ContextID,
			&summary.CustomerID,
			&summary.ProfessionalID,
			&summary.Title,
			&summary.CreatedByUserID,
			&summary.LastMessageAt,
			&summary.LastMessageID,
			&summary.CreatedAt,
			&messageID,
			&messageConversationID,
			&messageOrganizationID,
			&messageSenderID,
			&messageBody,
			&messageClientID,
			&messageKind,
			&messageCreatedAt,
			&messageDeletedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.ChatMessage{
				ID:              messageID.Int64,
				ConversationID:  messageConversationID.Int64,
				OrganizationID:  messageOrganizationID.Int64,
				SenderID:        messageSenderID.String,
				Body:            messageBody.String,
				ClientMessageID: messageClientID.String,
				Kind:            messageKind.String,
				CreatedAt:       messageCreatedAt.Time,
				DeletedAt:       messageDeletedAt,
			}
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}
