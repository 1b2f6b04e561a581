package repository

import (
	"context"
	"encoding/json"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertDelivery records a notification for later display, deduplicating on
// the outbox key. Returns false when the key was already recorded.
func (r *NotificationRepository) InsertDelivery(
	ctx context.Context,
	dedupeKey string,
	userID string,
	notificationType string,
	payload json.RawMessage,
) (bool, error) {
	query := `
		INSERT INTO notifications (dedupe_key, user_id, type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dedupe_key) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, dedupeKey, userID, notificationType, payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
