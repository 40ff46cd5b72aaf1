package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
	"github.com/saeid-a/TutorAppBack/internal/services"
)

type tutorDirectory interface {
	List(ctx context.Context, filter repository.TutorListFilter) ([]models.TutorProfile, int, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TutorProfile, error)
	UpdatePartial(ctx context.Context, userID uuid.UUID, input repository.UpdateTutorProfileInput) (*models.TutorProfile, error)
	SetVerified(ctx context.Context, userID uuid.UUID, verified bool) (*models.TutorProfile, error)
}

type tutorMatchmaker interface {
	RecommendTutors(ctx context.Context, userID uuid.UUID, criteria services.MatchCriteria, limit int) ([]models.TutorWithScore, error)
}

type TutorHandler struct {
	tutorRepo          tutorDirectory
	matchmakingService tutorMatchmaker
}

func NewTutorHandler(tutorRepo *repository.TutorProfileRepository, matchmakingService *services.MatchmakingService) *TutorHandler {
	return &TutorHandler{
		tutorRepo:          tutorRepo,
		matchmakingService: matchmakingService,
	}
}

type updateTutorProfileRequest struct {
	FullName        *string   `json:"full_name" validate:"omitempty,min=2,max=100"`
	Bio             *string   `json:"bio" validate:"omitempty,max=1000"`
	Subjects        *[]string `json:"subjects" validate:"omitempty,min=1,max=20,dive,min=2,max=100"`
	ExperienceYears *int      `json:"experience_years" validate:"omitempty,min=0,max=60"`
	HourlyRate      *float64  `json:"hourly_rate" validate:"omitempty,gte=0"`
}

type verifyTutorRequest struct {
	IsVerified *bool `json:"is_verified" validate:"required"`
}

func (h *TutorHandler) ListTutors(c *fiber.Ctx) error {
	page, limit := pageAndLimit(c)

	maxPrice, err := parseNonNegativeFloat(c.Query("max_price"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_price must be a valid non-negative number"})
	}
	experience, err := parseNonNegativeInt(c.Query("experience"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "experience must be a valid non-negative integer"})
	}

	tutors, total, err := h.tutorRepo.List(c.Context(), repository.TutorListFilter{
		Subject:       strings.TrimSpace(c.Query("subject")),
		MaxPrice:      maxPrice,
		MinExperience: experience,
		Offset:        pageOffset(page, limit),
		Limit:         limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch tutors"})
	}

	return c.JSON(fiber.Map{
		"tutors":     tutors,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

// GetRecommendedTutors ranks tutors for the caller. Missing subjects or
// max_rate fall back to the caller's stored study preferences.
func (h *TutorHandler) GetRecommendedTutors(c *fiber.Ctx) error {
	userID, _, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	_, limit := pageAndLimit(c)

	budget, err := parseNonNegativeFloat(c.Query("max_rate"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_rate must be a valid non-negative number"})
	}

	criteria := services.MatchCriteria{Subjects: splitList(c.Query("subjects"))}
	if budget > 0 {
		criteria.MaxHourlyRate = &budget
	}

	tutors, err := h.matchmakingService.RecommendTutors(c.Context(), userID, criteria, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch recommended tutors"})
	}

	return c.JSON(fiber.Map{"tutors": tutors})
}

func (h *TutorHandler) GetTutorDetail(c *fiber.Ctx) error {
	tutorID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}

	tutor, err := h.tutorRepo.GetByUserID(c.Context(), tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tutor not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch tutor"})
	}

	return c.JSON(fiber.Map{"tutor": tutor})
}

func (h *TutorHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != models.RoleTutor {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req updateTutorProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	profile, err := h.tutorRepo.UpdatePartial(c.Context(), userID, repository.UpdateTutorProfileInput{
		FullName:        req.FullName,
		Bio:             req.Bio,
		Subjects:        req.Subjects,
		ExperienceYears: req.ExperienceYears,
		HourlyRate:      req.HourlyRate,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"tutor": profile})
}

func (h *TutorHandler) VerifyTutor(c *fiber.Ctx) error {
	_, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	tutorID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}

	var req verifyTutorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	tutor, err := h.tutorRepo.SetVerified(c.Context(), tutorID, *req.IsVerified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tutor not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update tutor"})
	}

	return c.JSON(fiber.Map{"tutor": tutor})
}

func splitList(raw string) []string {
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

var _ services.TutorMatcher = (*repository.TutorProfileRepository)(nil)
