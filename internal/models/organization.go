package models

import "time"

const (
	OrgRoleOwner   = "OWNER"
	OrgRoleCoOwner = "CO_OWNER"
	OrgRoleAdmin   = "ADMIN"
	OrgRoleStaff   = "STAFF"
)

type Organization struct {
	ID                int64     `json:"id"`
	PublicName        *string   `json:"public_name"`
	BusinessName      *string   `json:"business_name"`
	Username          *string   `json:"username"`
	BrandingAvatarURL *string   `json:"branding_avatar_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type OrganizationMember struct {
	OrganizationID int64     `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// AdminTier reports whether the role grants admin membership in new
// conversations.
func (m OrganizationMember) AdminTier() bool {
	switch m.Role {
	case OrgRoleOwner, OrgRoleCoOwner, OrgRoleAdmin:
		return true
	default:
		return false
	}
}
