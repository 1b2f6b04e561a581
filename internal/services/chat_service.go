package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/notifications"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/repository"
)

var (
	ErrNotOrganizationMember = errors.New("not an organization member")
	ErrInvalidBooking        = errors.New("invalid booking id")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrBookingNoCustomer     = errors.New("booking has no customer")
	ErrBookingInactive       = errors.New("booking is not active")
	ErrBookingInvalid        = errors.New("booking is missing schedule data")
	ErrReadOnly              = errors.New("booking chat is read-only")
	ErrEmptyBody             = errors.New("empty message body")
	ErrMessageTooLong        = errors.New("message body too long")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrRealtimeUnavailable   = errors.New("realtime transport unavailable")
	ErrInvalidInput          = errors.New("invalid input")
)

// readOnlyGrace is how long after a booking ends its chat stays writable.
const readOnlyGrace = 24 * time.Hour

const previewMaxRunes = 160

type bookingReader interface {
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
}

type profileReader interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

type organizationReader interface {
	GetMember(ctx context.Context, organizationID int64, userID string) (*models.OrganizationMember, error)
	ListMembers(ctx context.Context, organizationID int64) ([]models.OrganizationMember, error)
}

type conversationStore interface {
	FindByBooking(ctx context.Context, organizationID int64, contextID, customerID string) (*models.ConversationDetail, error)
	CreateWithMembers(ctx context.Context, conversation *models.Conversation, members []models.ConversationMember) (*models.ConversationDetail, error)
	SetLastMessage(ctx context.Context, conversationID, messageID int64, at time.Time) error
	GetForMember(ctx context.Context, conversationID, organizationID int64, userID string) (*models.Conversation, error)
	ListForMember(ctx context.Context, organizationID int64, userID string, limit int, updatedAfter *time.Time) ([]models.ConversationSummary, error)
}

type messageStore interface {
	Create(ctx context.Context, input repository.CreateMessageInput) (*models.ChatMessage, error)
	ListByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]models.ChatMessage, int, error)
	MarkReadUpTo(ctx context.Context, conversationID int64, readerID string, messageID int64) error
}

type presenceChecker interface {
	IsOnline(userID string) bool
}

type eventBroadcaster interface {
	Broadcast(userIDs []string, event any)
}

type outboxPublisher interface {
	Available() bool
	PublishEvent(ctx context.Context, event notifications.ChatEvent) error
	EnqueueNotification(ctx context.Context, notification notifications.Notification) error
}

// Actor is the authenticated chat context: the calling user acting within an
// organization.
type Actor struct {
	UserID         string
	OrganizationID int64
}

type ChatService struct {
	bookingRepo      bookingReader
	profileRepo      profileReader
	organizationRepo organizationReader
	conversationRepo conversationStore
	messageRepo      messageStore
	presence         presenceChecker
	hub              eventBroadcaster
	outbox           outboxPublisher
	maxBodyLength    int
}

func NewChatService(
	bookingRepo bookingReader,
	profileRepo profileReader,
	organizationRepo organizationReader,
	conversationRepo conversationStore,
	messageRepo messageStore,
	presence presenceChecker,
	hub eventBroadcaster,
	outbox outboxPublisher,
	maxBodyLength int,
) *ChatService {
	return &ChatService{
		bookingRepo:      bookingRepo,
		profileRepo:      profileRepo,
		organizationRepo: organizationRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		presence:         presence,
		hub:              hub,
		outbox:           outbox,
		maxBodyLength:    maxBodyLength,
	}
}

type SendBookingMessageInput struct {
	BookingID       string
	Body            string
	ClientMessageID string
}

type SentMessage struct {
	ConversationID int64
	Message        *models.ChatMessage
	Sender         *models.SenderDisplay
}

// SendBookingMessage validates the booking window, resolves or bootstraps the
// conversation, persists the message, pushes the live event and fans out
// notifications to offline recipients.
func (s *ChatService) SendBookingMessage(
	ctx context.Context,
	actor Actor,
	input SendBookingMessageInput,
) (*SentMessage, error) {
	if _, err := s.organizationRepo.GetMember(ctx, actor.OrganizationID, actor.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotOrganizationMember
		}
		return nil, err
	}

	bookingID, err := strconv.ParseInt(strings.TrimSpace(input.BookingID), 10, 64)
	if err != nil {
		return nil, ErrInvalidBooking
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.OrganizationID != actor.OrganizationID {
		return nil, ErrBookingNotFound
	}
	if booking.UserID == nil {
		return nil, ErrBookingNoCustomer
	}
	if !booking.Active() {
		return nil, ErrBookingInactive
	}
	if booking.StartsAt == nil || booking.DurationMinutes == nil {
		return nil, ErrBookingInvalid
	}

	endAt := booking.StartsAt.Add(time.Duration(*booking.DurationMinutes) * time.Minute)
	if time.Now().After(endAt.Add(readOnlyGrace)) {
		return nil, ErrReadOnly
	}

	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > s.maxBodyLength {
		return nil, ErrMessageTooLong
	}

	conversation, err := s.resolveConversation(ctx, actor, booking)
	if err != nil {
		return nil, err
	}

	clientMessageID := strings.TrimSpace(input.ClientMessageID)
	if clientMessageID == "" {
		clientMessageID = uuid.NewString()
	}

	message, err := s.messageRepo.Create(ctx, repository.CreateMessageInput{
		ConversationID:  conversation.ID,
		OrganizationID:  conversation.OrganizationID,
		SenderID:        actor.UserID,
		Body:            body,
		ClientMessageID: clientMessageID,
		Kind:            models.MessageKindText,
	})
	if err != nil {
		return nil, err
	}

	if err := s.conversationRepo.SetLastMessage(ctx, conversation.ID, message.ID, message.CreatedAt); err != nil {
		return nil, err
	}

	sender := ResolveSenderDisplay(message.SenderID, conversation.Members, true, "", conversation.Organization)

	event := notifications.ChatEvent{
		Type:           "message:new",
		OrganizationID: conversation.OrganizationID,
		ConversationID: conversation.ID,
		Message: notifications.ChatEventMessage{
			ID:             message.ID,
			ConversationID: conversation.ID,
			Body:           message.Body,
			CreatedAt:      message.CreatedAt,
			Sender:         sender,
		},
	}

	s.hub.Broadcast(memberUserIDs(conversation.Members), event)

	if err := s.outbox.PublishEvent(ctx, event); err != nil {
		if errors.Is(err, notifications.ErrUnavailable) {
			return nil, ErrRealtimeUnavailable
		}
		return nil, err
	}

	// Fan-out is best-effort: the message is already persisted and delivered
	// live, so a broken enqueue must not fail the request.
	if err := s.notifyOfflineRecipients(ctx, actor.UserID, conversation, message); err != nil {
		log.Printf("chat notification fan-out: %v", err)
	}

	return &SentMessage{
		ConversationID: conversation.ID,
		Message:        message,
		Sender:         sender,
	}, nil
}

func (s *ChatService) resolveConversation(
	ctx context.Context,
	actor Actor,
	booking *models.Booking,
) (*models.ConversationDetail, error) {
	contextID := strconv.FormatInt(booking.ID, 10)

	conversation, err := s.conversationRepo.FindByBooking(ctx, actor.OrganizationID, contextID, *booking.UserID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	customer, err := s.profileRepo.GetByID(ctx, *booking.UserID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	orgMembers, err := s.organizationRepo.ListMembers(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	members := BuildBookingMembers(booking, actor, orgMembers)

	return s.conversationRepo.CreateWithMembers(ctx, &models.Conversation{
		OrganizationID:  actor.OrganizationID,
		Type:            models.ConversationTypeChannel,
		ContextType:     models.ContextTypeBooking,
		ContextID:       contextID,
		CustomerID:      *booking.UserID,
		ProfessionalID:  booking.ProfessionalUserID,
		Title:           ResolveUserLabel(customer),
		CreatedByUserID: actor.UserID,
	}, members)
}

// BuildBookingMembers composes the initial member set for a booking
// conversation: the customer, the assigned professional, and organization
// staff who are admin-tier or initiated the request. Later merges only
// upgrade an entry, never downgrade it.
func BuildBookingMembers(
	booking *models.Booking,
	actor Actor,
	orgMembers []models.OrganizationMember,
) []models.ConversationMember {
	order := make([]string, 0, len(orgMembers)+2)
	byUser := make(map[string]*models.ConversationMember)

	add := func(entry models.ConversationMember) {
		existing, ok := byUser[entry.UserID]
		if !ok {
			copied := entry
			byUser[entry.UserID] = &copied
			order = append(order, entry.UserID)
			return
		}
		if existing.Role != models.MemberRoleAdmin && entry.Role == models.MemberRoleAdmin {
			existing.Role = models.MemberRoleAdmin
		}
		if !existing.HiddenFromCustomer && entry.HiddenFromCustomer {
			existing.HiddenFromCustomer = true
		}
		if existing.DisplayAs != models.DisplayAsProfessional && entry.DisplayAs == models.DisplayAsProfessional {
			existing.DisplayAs = models.DisplayAsProfessional
		}
	}

	add(models.ConversationMember{
		UserID:    *booking.UserID,
		Role:      models.MemberRoleMember,
		DisplayAs: models.DisplayAsOrganization,
	})

	if booking.ProfessionalUserID != nil {
		orgID := actor.OrganizationID
		add(models.ConversationMember{
			UserID:         *booking.ProfessionalUserID,
			Role:           models.MemberRoleMember,
			DisplayAs:      models.DisplayAsProfessional,
			OrganizationID: &orgID,
		})
	}

	for _, member := range orgMembers {
		if !member.AdminTier() && member.UserID != actor.UserID {
			continue
		}
		role := models.MemberRoleMember
		if member.AdminTier() {
			role = models.MemberRoleAdmin
		}
		orgID := actor.OrganizationID
		add(models.ConversationMember{
			UserID:             member.UserID,
			Role:               role,
			DisplayAs:          models.DisplayAsOrganization,
			HiddenFromCustomer: true,
			OrganizationID:     &orgID,
		})
	}

	members := make([]models.ConversationMember, 0, len(order))
	for _, userID := range order {
		members = append(members, *byUser[userID])
	}
	return members
}

func (s *ChatService) notifyOfflineRecipients(
	ctx context.Context,
	senderID string,
	conversation *models.ConversationDetail,
	message *models.ChatMessage,
) error {
	if !s.outbox.Available() {
		return nil
	}

	now := time.Now()
	preview := messagePreview(message.Body)

	for _, member := range conversation.Members {
		if member.UserID == senderID {
			continue
		}
		if member.Muted(now) {
			continue
		}
		if s.presence.IsOnline(member.UserID) {
			continue
		}
		err := s.outbox.EnqueueNotification(ctx, notifications.Notification{
			DedupeKey: notifications.ChatMessageDedupeKey(message.ID, member.UserID),
			UserID:    member.UserID,
			Type:      notifications.NotificationTypeChatMessage,
			Payload: notifications.NotificationPayload{
				ConversationID: conversation.ID,
				MessageID:      message.ID,
				SenderID:       senderID,
				Preview:        preview,
				OrganizationID: conversation.OrganizationID,
				ContextType:    conversation.ContextType,
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func messagePreview(body string) string {
	if utf8.RuneCountInString(body) <= previewMaxRunes {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewMaxRunes-3]) + "…"
}

func memberUserIDs(members []models.ConversationMember) []string {
	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.UserID)
	}
	return ids
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actor Actor,
	limit int,
	updatedAfter *time.Time,
) ([]models.ConversationSummary, error) {
	if _, err := s.organizationRepo.GetMember(ctx, actor.OrganizationID, actor.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotOrganizationMember
		}
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidInput
	}
	return s.conversationRepo.ListForMember(ctx, actor.OrganizationID, actor.UserID, limit, updatedAfter)
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actor Actor,
	conversationID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}
	if _, err := s.organizationRepo.GetMember(ctx, actor.OrganizationID, actor.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrNotOrganizationMember
		}
		return nil, 0, err
	}

	if _, err := s.conversationRepo.GetForMember(ctx, conversationID, actor.OrganizationID, actor.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	messages, total, err := s.messageRepo.ListByConversation(ctx, conversationID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	if page == 1 && len(messages) > 0 {
		if err := s.messageRepo.MarkReadUpTo(ctx, conversationID, actor.UserID, messages[0].ID); err != nil {
			return nil, 0, err
		}
	}

	return messages, total, nil
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
