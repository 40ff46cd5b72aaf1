package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
	"github.com/saeid-a/TutorAppBack/internal/services"
)

type profileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, *models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update services.ProfileUpdate) (*models.User, *models.UserProfile, error)
}

type ProfileHandler struct {
	profiles profileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type preferencesRequest struct {
	Subjects  *[]string `json:"subjects" validate:"omitempty,max=20,dive,min=2,max=100"`
	MaxPrice  *float64  `json:"max_price" validate:"omitempty,gte=0"`
	Currency  *string   `json:"currency" validate:"omitempty,oneof=USD EUR GBP CAD AUD"`
	Languages *[]string `json:"languages" validate:"omitempty,max=10,dive,min=2,max=50"`
}

type updateUserProfileRequest struct {
	Name        *string             `json:"name" validate:"omitempty,min=2,max=50"`
	Bio         *string             `json:"bio" validate:"omitempty,max=500"`
	Phone       *string             `json:"phone" validate:"omitempty,phone"`
	DateOfBirth *string             `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Location    *string             `json:"location" validate:"omitempty,max=200"`
	Timezone    *string             `json:"timezone" validate:"omitempty,timezone"`
	Skills      *[]string           `json:"skills" validate:"omitempty,max=30,dive,min=1,max=100"`
	Preferences *preferencesRequest `json:"preferences"`
}

func (h *ProfileHandler) GetUserProfile(c *fiber.Ctx) error {
	userID, _, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	user, profile, err := h.profiles.GetProfile(c.Context(), userID)
	if err != nil {
		return mapProfileError(c, err, "Failed to fetch profile")
	}

	return c.JSON(fiber.Map{
		"user":    user,
		"profile": profile,
	})
}

func (h *ProfileHandler) UpdateUserProfile(c *fiber.Ctx) error {
	userID, _, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateUserProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Preferences != nil && req.Preferences.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Preferences.Currency))
		req.Preferences.Currency = &currency
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	input := repository.UpdateUserProfileInput{
		Bio:      req.Bio,
		Phone:    req.Phone,
		Location: req.Location,
		Timezone: req.Timezone,
		Skills:   req.Skills,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(time.DateOnly, *req.DateOfBirth)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date_of_birth must be a valid date"})
		}
		input.DateOfBirth = &dob
	}
	if prefs := req.Preferences; prefs != nil {
		input.PreferredSubjects = prefs.Subjects
		input.MaxPrice = prefs.MaxPrice
		input.PreferredCurrency = prefs.Currency
		input.PreferredLanguages = prefs.Languages
	}

	user, profile, err := h.profiles.UpdateProfile(c.Context(), userID, services.ProfileUpdate{
		Name:    req.Name,
		Profile: input,
	})
	if err != nil {
		return mapProfileError(c, err, "Failed to update profile")
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user,
		"profile": profile,
	})
}

func mapProfileError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrProfileNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
