package models

import "time"

// Profile is the public identity of a platform user. The id is the subject
// issued by the auth provider, so it is a string rather than a serial.
type Profile struct {
	ID        string    `json:"id"`
	FullName  *string   `json:"full_name"`
	Username  *string   `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
