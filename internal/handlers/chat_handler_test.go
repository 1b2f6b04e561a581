package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/services"
)

type stubChatService struct {
	sendResult *services.SentMessage
	sendErr    error
	lastInput  services.SendBookingMessageInput
	lastActor  services.Actor

	listLimit   int
	listAfter   *time.Time
	listErr     error
	summaries   []models.ConversationSummary
	messages    []models.ChatMessage
	total       int
	messagesErr error
}

func (s *stubChatService) SendBookingMessage(_ context.Context, actor services.Actor, input services.SendBookingMessageInput) (*services.SentMessage, error) {
	s.lastActor = actor
	s.lastInput = input
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return s.sendResult, nil
}

func (s *stubChatService) ListConversations(_ context.Context, _ services.Actor, limit int, updatedAfter *time.Time) ([]models.ConversationSummary, error) {
	s.listLimit = limit
	s.listAfter = updatedAfter
	return s.summaries, s.listErr
}

func (s *stubChatService) ListMessages(_ context.Context, _ services.Actor, _ int64, _ int, _ int) ([]models.ChatMessage, int, error) {
	if s.messagesErr != nil {
		return nil, 0, s.messagesErr
	}
	return s.messages, s.total, nil
}

func newChatTestApp(service *stubChatService) *fiber.App {
	app := fiber.New()
	handler := NewChatHandler(service, nil, "test-secret")

	authed := func(c *fiber.Ctx) error {
		c.Locals("user_id", "staff_1")
		c.Locals("org_id", int64(7))
		return c.Next()
	}

	app.Post("/api/chat/bookings/:bookingId/messages", authed, handler.SendBookingMessage)
	app.Get("/api/chat/conversations", authed, handler.ListConversations)
	app.Get("/api/chat/conversations/:id/messages", authed, handler.GetMessages)
	return app
}

func decodeEnvelope(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope
}

func TestSendBookingMessageSuccessEnvelope(t *testing.T) {
	name := "Padel Club"
	service := &stubChatService{
		sendResult: &services.SentMessage{
			ConversationID: 301,
			Message: &models.ChatMessage{
				ID:        12,
				Body:      "Olá!",
				CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			},
			Sender: &models.SenderDisplay{ID: "org:7", FullName: &name},
		},
	}
	app := newChatTestApp(service)

	payload, _ := json.Marshal(map[string]string{"body": "Olá!", "clientMessageId": "cli-1"})
	req := httptest.NewRequest("POST", "/api/chat/bookings/55/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp.Body)
	if envelope["ok"] != true {
		t.Fatalf("expected ok envelope, got %v", envelope)
	}
	if envelope["conversationId"] != float64(301) {
		t.Fatalf("unexpected conversationId %v", envelope["conversationId"])
	}
	item, _ := envelope["item"].(map[string]any)
	if item == nil {
		t.Fatal("missing item")
	}
	if item["createdAt"] != "2026-03-01T10:00:00Z" {
		t.Fatalf("unexpected createdAt %v", item["createdAt"])
	}
	sender, _ := item["sender"].(map[string]any)
	if sender == nil || sender["id"] != "org:7" {
		t.Fatalf("unexpected sender %v", item["sender"])
	}

	if service.lastInput.BookingID != "55" || service.lastInput.ClientMessageID != "cli-1" {
		t.Fatalf("service received %+v", service.lastInput)
	}
	if service.lastActor.UserID != "staff_1" || service.lastActor.OrganizationID != 7 {
		t.Fatalf("service received actor %+v", service.lastActor)
	}
}

func TestSendBookingMessageErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrNotOrganizationMember, fiber.StatusForbidden, "NOT_ORGANIZATION_MEMBER"},
		{services.ErrInvalidBooking, fiber.StatusBadRequest, "INVALID_BOOKING"},
		{services.ErrBookingNotFound, fiber.StatusNotFound, "BOOKING_NOT_FOUND"},
		{services.ErrBookingNoCustomer, fiber.StatusBadRequest, "BOOKING_NO_CUSTOMER"},
		{services.ErrBookingInactive, fiber.StatusForbidden, "BOOKING_INACTIVE"},
		{services.ErrBookingInvalid, fiber.StatusBadRequest, "BOOKING_INVALID"},
		{services.ErrReadOnly, fiber.StatusForbidden, "READ_ONLY"},
		{services.ErrEmptyBody, fiber.StatusBadRequest, "EMPTY_BODY"},
		{services.ErrMessageTooLong, fiber.StatusBadRequest, "MESSAGE_TOO_LONG"},
		{services.ErrRealtimeUnavailable, fiber.StatusServiceUnavailable, "REALTIME_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			service := &stubChatService{sendErr: tt.err}
			app := newChatTestApp(service)

			payload, _ := json.Marshal(map[string]string{"body": "x"})
			req := httptest.NewRequest("POST", "/api/chat/bookings/55/messages", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			envelope := decodeEnvelope(t, resp.Body)
			if envelope["ok"] != false || envelope["error"] != tt.code {
				t.Fatalf("expected error %s, got %v", tt.code, envelope)
			}
		})
	}
}

func TestSendBookingMessageRejectsUnparsableBody(t *testing.T) {
	app := newChatTestApp(&stubChatService{})

	req := httptest.NewRequest("POST", "/api/chat/bookings/55/messages", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp.Body)
	if envelope["error"] != "EMPTY_BODY" {
		t.Fatalf("expected EMPTY_BODY, got %v", envelope["error"])
	}
}

func TestListConversationsClampsLimit(t *testing.T) {
	service := &stubChatService{}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/chat/conversations?limit=500", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.listLimit != maxConversationLimit {
		t.Fatalf("expected clamp to %d, got %d", maxConversationLimit, service.listLimit)
	}

	if _, err := app.Test(httptest.NewRequest("GET", "/api/chat/conversations", nil)); err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if service.listLimit != defaultConversationLimit {
		t.Fatalf("expected default %d, got %d", defaultConversationLimit, service.listLimit)
	}
}

func TestListConversationsParsesUpdatedAfter(t *testing.T) {
	service := &stubChatService{}
	app := newChatTestApp(service)

	if _, err := app.Test(httptest.NewRequest("GET", "/api/chat/conversations?updatedAfter=2026-03-01T10:00:00Z", nil)); err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if service.listAfter == nil || !service.listAfter.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected parsed updatedAfter, got %v", service.listAfter)
	}

	// malformed timestamps are ignored rather than rejected
	if _, err := app.Test(httptest.NewRequest("GET", "/api/chat/conversations?updatedAfter=yesterday", nil)); err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if service.listAfter != nil {
		t.Fatalf("expected malformed updatedAfter dropped, got %v", service.listAfter)
	}
}

func TestGetMessagesValidatesConversationID(t *testing.T) {
	app := newChatTestApp(&stubChatService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/chat/conversations/abc/messages", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp.Body)
	if envelope["error"] != "INVALID_CONVERSATION" {
		t.Fatalf("expected INVALID_CONVERSATION, got %v", envelope["error"])
	}
}

func TestGetMessagesPaginationEnvelope(t *testing.T) {
	service := &stubChatService{
		messages: []models.ChatMessage{{ID: 3, Body: "mais recente"}, {ID: 2}, {ID: 1}},
		total:    23,
	}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/chat/conversations/301/messages?page=1&limit=3", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp.Body)
	pagination, _ := envelope["pagination"].(map[string]any)
	if pagination == nil {
		t.Fatal("missing pagination meta")
	}
	if pagination["total"] != float64(23) || pagination["total_pages"] != float64(8) {
		t.Fatalf("unexpected pagination %v", pagination)
	}
}
