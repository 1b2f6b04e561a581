package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

type profileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

// ProfileHandler serves the caller's own profile, the identity shown in chat
// conversations.
type ProfileHandler struct {
	profileRepo profileStore
}

func NewProfileHandler(profileRepo profileStore) *ProfileHandler {
	return &ProfileHandler{profileRepo: profileRepo}
}

type updateProfileRequest struct {
	FullName  *string `json:"full_name"`
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

func (h *ProfileHandler) GetMe(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return unauthenticatedEnvelope(c)
	}

	profile, err := h.profileRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"ok":    false,
				"error": "PROFILE_NOT_FOUND",
			})
		}
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":      true,
		"profile": profile,
	})
}

func (h *ProfileHandler) UpdateMe(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return unauthenticatedEnvelope(c)
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "INVALID_REQUEST",
		})
	}
	if validationErr := validateProfileUpdateRequest(req); validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":      false,
			"error":   "INVALID_PROFILE",
			"message": validationErr,
		})
	}

	profile, err := h.profileRepo.GetByID(c.Context(), userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return mapChatError(c, err)
		}
		profile = &models.Profile{ID: userID}
	}

	if req.FullName != nil {
		profile.FullName = req.FullName
	}
	if req.Username != nil {
		profile.Username = req.Username
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = req.AvatarURL
	}

	if err := h.profileRepo.Upsert(c.Context(), profile); err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":      true,
		"profile": profile,
	})
}
