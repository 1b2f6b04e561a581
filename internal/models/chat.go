package models

import "time"

const (
	ConversationTypeChannel = "CHANNEL"

	ContextTypeBooking = "BOOKING"

	MemberRoleMember = "MEMBER"
	MemberRoleAdmin  = "ADMIN"

	DisplayAsOrganization = "ORGANIZATION"
	DisplayAsProfessional = "PROFESSIONAL"

	MessageKindText = "TEXT"
)

type Conversation struct {
	ID              int64      `json:"id"`
	OrganizationID  int64      `json:"organization_id"`
	Type            string     `json:"type"`
	ContextType     string     `json:"context_type"`
	ContextID       string     `json:"context_id"`
	CustomerID      string     `json:"customer_id"`
	ProfessionalID  *string    `json:"professional_id"`
	Title           string     `json:"title"`
	CreatedByUserID string     `json:"created_by_user_id"`
	LastMessageAt   *time.Time `json:"last_message_at"`
	LastMessageID   *int64     `json:"last_message_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ConversationMember struct {
	ConversationID     int64      `json:"conversation_id"`
	UserID             string     `json:"user_id"`
	Role               string     `json:"role"`
	DisplayAs          string     `json:"display_as"`
	HiddenFromCustomer bool       `json:"hidden_from_customer"`
	MutedUntil         *time.Time `json:"muted_until"`
	OrganizationID     *int64     `json:"organization_id"`
	User               *Profile   `json:"user,omitempty"`
}

// Muted reports whether the member has notifications muted at the given time.
func (m ConversationMember) Muted(now time.Time) bool {
	return m.MutedUntil != nil && m.MutedUntil.After(now)
}

type ChatMessage struct {
	ID              int64      `json:"id"`
	ConversationID  int64      `json:"conversation_id"`
	OrganizationID  int64      `json:"organization_id"`
	SenderID        string     `json:"sender_id"`
	Body            string     `json:"body"`
	ClientMessageID string     `json:"client_message_id"`
	Kind            string     `json:"kind"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at"`
}

// ConversationDetail is a conversation hydrated with its organization and
// member profiles, as needed for sender display resolution.
type ConversationDetail struct {
	Conversation
	Organization *Organization        `json:"organization,omitempty"`
	Members      []ConversationMember `json:"members"`
}

type ConversationSummary struct {
	Conversation
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}

// SenderDisplay is the identity a message sender is shown as. For staff
// displayed as the organization the id takes the form "org:<id>".
type SenderDisplay struct {
	ID        string  `json:"id"`
	FullName  *string `json:"full_name"`
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}
