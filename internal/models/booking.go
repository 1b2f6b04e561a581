package models

import "time"

const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCompleted = "COMPLETED"
	BookingStatusCancelled = "CANCELLED"
)

// Booking is read-only from the chat flow's perspective; its lifecycle is
// owned by the booking subsystem.
type Booking struct {
	ID                 int64      `json:"id"`
	OrganizationID     int64      `json:"organization_id"`
	UserID             *string    `json:"user_id"`
	ProfessionalUserID *string    `json:"professional_user_id"`
	Status             string     `json:"status"`
	StartsAt           *time.Time `json:"starts_at"`
	DurationMinutes    *int       `json:"duration_minutes"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Active reports whether the booking still accepts chat messages at all.
func (b Booking) Active() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusCompleted
}
