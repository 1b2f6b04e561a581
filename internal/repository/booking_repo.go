package repository

import (
	"context"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `
		SELECT id, organization_id, user_id, professional_user_id, status,
		       starts_at, duration_minutes, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`
	var booking models.Booking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.OrganizationID,
		&booking.UserID,
		&booking.ProfessionalUserID,
		&booking.Status,
		&booking.StartsAt,
		&booking.DurationMinutes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
