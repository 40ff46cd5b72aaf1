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

type SessionHandler struct {
	service sessionApplicationService
	now     func() time.Time
}

type sessionApplicationService interface {
	CreateSession(ctx context.Context, input services.CreateSessionInput) (*models.Session, error)
	GetSession(ctx context.Context, sessionID, actorID uuid.UUID, role string) (*models.Session, error)
	UpdateSession(ctx context.Context, sessionID uuid.UUID, patch services.SessionPatch, actorID uuid.UUID, role string) (*models.Session, error)
	CancelSession(ctx context.Context, sessionID, actorID uuid.UUID, role string) (*models.Session, error)
	ListSessions(ctx context.Context, actorID uuid.UUID, role string, filter repository.SessionListFilter) ([]models.Session, int, error)
	GetUpcoming(ctx context.Context, actorID uuid.UUID, role string) ([]models.Session, error)
	GetStats(ctx context.Context, actorID uuid.UUID, role string) (*models.SessionStats, error)
	CheckAvailability(ctx context.Context, studentID *uuid.UUID, tutorID uuid.UUID, start time.Time, durationMinutes int) (bool, error)
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service, now: time.Now}
}

type createSessionRequest struct {
	StudentID       *string  `json:"student_id" validate:"omitempty,uuid"`
	TutorID         string   `json:"tutor_id" validate:"required,uuid"`
	Subject         string   `json:"subject" validate:"required,min=2,max=100"`
	StartTime       string   `json:"start_time" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,min=15,max=480"`
	SessionType     string   `json:"session_type" validate:"omitempty,oneof=one-on-one group exam-prep homework-help"`
	Price           *float64 `json:"price" validate:"required,gte=0"`
	Currency        string   `json:"currency" validate:"omitempty,oneof=USD EUR GBP CAD AUD"`
	Notes           *string  `json:"notes" validate:"omitempty,max=500"`
}

type updateSessionRequest struct {
	StartTime       *string `json:"start_time"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=15,max=480"`
	Status          *string `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled no-show"`
	Notes           *string `json:"notes" validate:"omitempty,max=500"`
	MeetingLink     *string `json:"meeting_link" validate:"omitempty,url"`
	RecordingURL    *string `json:"recording_url" validate:"omitempty,url"`
	Rating          *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Review          *string `json:"review" validate:"omitempty,max=1000"`
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != models.RoleStudent && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be a valid RFC3339 timestamp"})
	}
	if !startTime.After(h.now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be in the future"})
	}

	// Students always book for themselves; admins book on behalf of a student.
	studentID := actorID
	if role == models.RoleAdmin {
		if req.StudentID == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "student_id is required"})
		}
		studentID = uuid.MustParse(*req.StudentID)
	}

	session, err := h.service.CreateSession(c.Context(), services.CreateSessionInput{
		StudentID:       studentID,
		TutorID:         uuid.MustParse(req.TutorID),
		Subject:         req.Subject,
		StartTime:       startTime,
		DurationMinutes: req.DurationMinutes,
		SessionType:     req.SessionType,
		Price:           *req.Price,
		Currency:        req.Currency,
		Notes:           req.Notes,
	})
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	studentID, err := parseOptionalUUID(c.Query("student_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "student_id must be a valid UUID"})
	}
	tutorID, err := parseOptionalUUID(c.Query("tutor_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tutor_id must be a valid UUID"})
	}
	startDate, err := parseOptionalTimestamp(c.Query("start_date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_date must be a valid date"})
	}
	endDate, err := parseOptionalTimestamp(c.Query("end_date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_date must be a valid date"})
	}

	page, limit := pageAndLimit(c)
	sessions, total, err := h.service.ListSessions(c.Context(), actorID, role, repository.SessionListFilter{
		StudentID: studentID,
		TutorID:   tutorID,
		Status:    strings.TrimSpace(c.Query("status")),
		Subject:   strings.TrimSpace(c.Query("subject")),
		StartDate: startDate,
		EndDate:   endDate,
		Offset:    pageOffset(page, limit),
		Limit:     limit,
	})
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{
		"sessions":   sessions,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *SessionHandler) GetUpcoming(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessions, err := h.service.GetUpcoming(c.Context(), actorID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetStats(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	stats, err := h.service.GetStats(c.Context(), actorID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"stats": stats})
}

func (h *SessionHandler) CheckAvailability(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	tutorID, err := uuid.Parse(strings.TrimSpace(c.Query("tutor_id")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tutor_id must be a valid UUID"})
	}
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(c.Query("start_time")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be a valid RFC3339 timestamp"})
	}
	duration := parsePositiveInt(c.Query("duration"), 60)

	var studentID *uuid.UUID
	if role == models.RoleStudent {
		studentID = &actorID
	} else if studentID, err = parseOptionalUUID(c.Query("student_id")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "student_id must be a valid UUID"})
	}

	available, err := h.service.CheckAvailability(c.Context(), studentID, tutorID, startTime, duration)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{
		"available":        available,
		"tutor_id":         tutorID,
		"start_time":       startTime.UTC(),
		"end_time":         models.SessionEnd(startTime.UTC(), duration),
		"duration_minutes": duration,
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.GetSession(c.Context(), sessionID, actorID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	patch := services.SessionPatch{
		DurationMinutes: req.DurationMinutes,
		Status:          req.Status,
		Notes:           req.Notes,
		MeetingLink:     req.MeetingLink,
		RecordingURL:    req.RecordingURL,
		Rating:          req.Rating,
		Review:          req.Review,
	}
	if req.StartTime != nil {
		startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.StartTime))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be a valid RFC3339 timestamp"})
		}
		patch.StartTime = &startTime
	}

	session, err := h.service.UpdateSession(c.Context(), sessionID, patch, actorID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	actorID, role, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.CancelSession(c.Context(), sessionID, actorID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func mapSessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student or tutor not found"})
	case errors.Is(err, services.ErrSchedulingConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Scheduling conflict detected"})
	case errors.Is(err, services.ErrInsufficientPermissions):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	case errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrNoAllowedFields),
		errors.Is(err, services.ErrCannotCancelCompleted),
		errors.Is(err, services.ErrAlreadyCancelled),
		errors.Is(err, services.ErrCancellationWindowExpired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process session request"})
	}
}
