package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
)

var (
	ErrSessionNotFound           = errors.New("session not found")
	ErrUserNotFound              = errors.New("user not found")
	ErrInvalidRole               = errors.New("user has the wrong role for this session")
	ErrSchedulingConflict        = errors.New("scheduling conflict detected")
	ErrInsufficientPermissions   = errors.New("insufficient permissions")
	ErrNoAllowedFields           = errors.New("no allowed fields to update")
	ErrCannotCancelCompleted     = errors.New("cannot cancel completed session")
	ErrAlreadyCancelled          = errors.New("session is already cancelled")
	ErrCancellationWindowExpired = errors.New("cannot cancel session within the cancellation window")
	ErrInvalidInput              = errors.New("invalid input")
)

const DefaultCancellationWindow = 24 * time.Hour

// SessionStore is the transactional view of session persistence.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByIDForUpdate(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) (*models.Session, error)
	FindOverlapping(ctx context.Context, q repository.OverlapQuery) ([]models.Session, error)
	LockParticipants(ctx context.Context, ids ...uuid.UUID) error
	// RefreshTutorStats recomputes the tutor's average rating and completed
	// session count from the sessions table.
	RefreshTutorStats(ctx context.Context, tutorID uuid.UUID) error
}

// SessionTransactor runs fn against a SessionStore bound to one transaction.
// A non-nil error from fn rolls everything back.
type SessionTransactor interface {
	WithinTx(ctx context.Context, fn func(store SessionStore) error) error
}

type sessionQueries interface {
	GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, int, error)
	ListUpcoming(ctx context.Context, scope repository.SessionScope, now time.Time) ([]models.Session, error)
	Stats(ctx context.Context, scope repository.SessionScope, now time.Time) (*models.SessionStats, error)
	FindOverlapping(ctx context.Context, q repository.OverlapQuery) ([]models.Session, error)
}

type userReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type SessionService struct {
	tx                 SessionTransactor
	sessions           sessionQueries
	users              userReader
	cancellationWindow time.Duration
	now                func() time.Time
}

func NewSessionService(
	tx SessionTransactor,
	sessions sessionQueries,
	users userReader,
	cancellationWindow time.Duration,
) *SessionService {
	if cancellationWindow <= 0 {
		cancellationWindow = DefaultCancellationWindow
	}
	return &SessionService{
		tx:                 tx,
		sessions:           sessions,
		users:              users,
		cancellationWindow: cancellationWindow,
		now:                time.Now,
	}
}

type CreateSessionInput struct {
	StudentID       uuid.UUID
	TutorID         uuid.UUID
	Subject         string
	StartTime       time.Time
	DurationMinutes int
	SessionType     string
	Price           float64
	Currency        string
	Notes           *string
}

// SessionPatch carries the optional fields of an update; nil means untouched.
type SessionPatch struct {
	StartTime       *time.Time
	DurationMinutes *int
	Status          *string
	Notes           *string
	MeetingLink     *string
	RecordingURL    *string
	Rating          *int
	Review          *string
}

func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" || input.StartTime.IsZero() || input.Price < 0 || !validDuration(input.DurationMinutes) {
		return nil, ErrInvalidInput
	}
	sessionType := strings.TrimSpace(input.SessionType)
	if sessionType == "" {
		sessionType = models.SessionTypeOneOnOne
	}
	if !models.IsValidSessionType(sessionType) {
		return nil, ErrInvalidInput
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}

	student, err := s.lookupUser(ctx, input.StudentID)
	if err != nil {
		return nil, err
	}
	tutor, err := s.lookupUser(ctx, input.TutorID)
	if err != nil {
		return nil, err
	}
	if tutor.Role != models.RoleTutor || student.Role != models.RoleStudent {
		return nil, ErrInvalidRole
	}

	start := input.StartTime.UTC()
	session := &models.Session{
		ID:              uuid.New(),
		StudentID:       input.StudentID,
		TutorID:         input.TutorID,
		Subject:         subject,
		StartTime:       start,
		EndTime:         models.SessionEnd(start, input.DurationMinutes),
		DurationMinutes: input.DurationMinutes,
		Status:          models.SessionStatusPending,
		SessionType:     sessionType,
		Price:           input.Price,
		Currency:        currency,
		Notes:           input.Notes,
	}

	var created *models.Session
	err = s.tx.WithinTx(ctx, func(store SessionStore) error {
		if err := store.LockParticipants(ctx, session.StudentID, session.TutorID); err != nil {
			return err
		}
		if err := ensureNoOverlap(ctx, store, session, nil); err != nil {
			return err
		}
		var err error
		created, err = store.Create(ctx, session)
		return translateStoreError(err)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SessionService) GetSession(
	ctx context.Context,
	sessionID uuid.UUID,
	actorID uuid.UUID,
	role string,
) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	if !canActOnSession(role, actorID, session) {
		return nil, ErrInsufficientPermissions
	}
	return session, nil
}

func (s *SessionService) UpdateSession(
	ctx context.Context,
	sessionID uuid.UUID,
	patch SessionPatch,
	actorID uuid.UUID,
	role string,
) (*models.Session, error) {
	var updated *models.Session
	err := s.tx.WithinTx(ctx, func(store SessionStore) error {
		session, err := store.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return translateStoreError(err)
		}

		allowed, err := authorizePatch(session, patch, actorID, role)
		if err != nil {
			return err
		}
		if err := validatePatch(allowed); err != nil {
			return err
		}

		start, duration := session.StartTime, session.DurationMinutes
		if allowed.StartTime != nil {
			start = allowed.StartTime.UTC()
		}
		if allowed.DurationMinutes != nil {
			duration = *allowed.DurationMinutes
		}
		previousStatus := session.Status
		nextStatus := session.Status
		if allowed.Status != nil {
			nextStatus = *allowed.Status
		}

		timeChanged := allowed.StartTime != nil || allowed.DurationMinutes != nil
		revived := !models.IsActiveStatus(session.Status) && models.IsActiveStatus(nextStatus)
		if timeChanged || revived {
			candidate := *session
			candidate.StartTime = start
			candidate.EndTime = models.SessionEnd(start, duration)
			if err := store.LockParticipants(ctx, session.StudentID, session.TutorID); err != nil {
				return err
			}
			if err := ensureNoOverlap(ctx, store, &candidate, &session.ID); err != nil {
				return err
			}
		}

		session.StartTime = start
		session.DurationMinutes = duration
		session.EndTime = models.SessionEnd(start, duration)
		session.Status = nextStatus
		if allowed.Notes != nil {
			session.Notes = allowed.Notes
		}
		if allowed.MeetingLink != nil {
			session.MeetingLink = allowed.MeetingLink
		}
		if allowed.RecordingURL != nil {
			session.RecordingURL = allowed.RecordingURL
		}
		if allowed.Rating != nil {
			session.Rating = allowed.Rating
		}
		if allowed.Review != nil {
			session.Review = allowed.Review
		}

		updated, err = store.Save(ctx, session)
		if err != nil {
			return translateStoreError(err)
		}

		if allowed.Rating != nil || touchesCompleted(previousStatus, nextStatus) {
			return store.RefreshTutorStats(ctx, session.TutorID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SessionService) CancelSession(
	ctx context.Context,
	sessionID uuid.UUID,
	actorID uuid.UUID,
	role string,
) (*models.Session, error) {
	var cancelled *models.Session
	err := s.tx.WithinTx(ctx, func(store SessionStore) error {
		session, err := store.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return translateStoreError(err)
		}
		if !canActOnSession(role, actorID, session) {
			return ErrInsufficientPermissions
		}

		switch session.Status {
		case models.SessionStatusCompleted:
			return ErrCannotCancelCompleted
		case models.SessionStatusCancelled:
			return ErrAlreadyCancelled
		}

		// Applies to every role, admin included.
		if session.StartTime.Sub(s.now()) < s.cancellationWindow {
			return ErrCancellationWindowExpired
		}

		session.Status = models.SessionStatusCancelled
		cancelled, err = store.Save(ctx, session)
		return translateStoreError(err)
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// ListSessions applies filter, narrowing students and tutors to their own sessions.
func (s *SessionService) ListSessions(
	ctx context.Context,
	actorID uuid.UUID,
	role string,
	filter repository.SessionListFilter,
) ([]models.Session, int, error) {
	if status := strings.TrimSpace(filter.Status); status != "" && !models.IsValidSessionStatus(status) {
		return nil, 0, ErrInvalidInput
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, 0, ErrInvalidInput
	}

	switch role {
	case models.RoleAdmin:
	case models.RoleStudent:
		filter.StudentID = &actorID
	case models.RoleTutor:
		filter.TutorID = &actorID
	default:
		return nil, 0, ErrInsufficientPermissions
	}

	return s.sessions.List(ctx, filter)
}

func (s *SessionService) GetUpcoming(ctx context.Context, actorID uuid.UUID, role string) ([]models.Session, error) {
	scope, err := scopeForRole(actorID, role)
	if err != nil {
		return nil, err
	}
	return s.sessions.ListUpcoming(ctx, scope, s.now().UTC())
}

func (s *SessionService) GetStats(ctx context.Context, actorID uuid.UUID, role string) (*models.SessionStats, error) {
	scope, err := scopeForRole(actorID, role)
	if err != nil {
		return nil, err
	}
	return s.sessions.Stats(ctx, scope, s.now().UTC())
}

// CheckAvailability reports whether the tutor (and the student, when given)
// are free for the requested interval.
func (s *SessionService) CheckAvailability(
	ctx context.Context,
	studentID *uuid.UUID,
	tutorID uuid.UUID,
	start time.Time,
	durationMinutes int,
) (bool, error) {
	if start.IsZero() || !validDuration(durationMinutes) {
		return false, ErrInvalidInput
	}
	start = start.UTC()
	conflicts, err := s.sessions.FindOverlapping(ctx, repository.OverlapQuery{
		StudentID: studentID,
		TutorID:   &tutorID,
		Start:     start,
		End:       models.SessionEnd(start, durationMinutes),
	})
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

func (s *SessionService) lookupUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func ensureNoOverlap(ctx context.Context, store SessionStore, session *models.Session, excludeID *uuid.UUID) error {
	studentID, tutorID := session.StudentID, session.TutorID
	conflicts, err := store.FindOverlapping(ctx, repository.OverlapQuery{
		StudentID: &studentID,
		TutorID:   &tutorID,
		Start:     session.StartTime,
		End:       session.EndTime,
		ExcludeID: excludeID,
	})
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return ErrSchedulingConflict
	}
	return nil
}

func authorizePatch(session *models.Session, patch SessionPatch, actorID uuid.UUID, role string) (SessionPatch, error) {
	switch {
	case role == models.RoleAdmin:
		return patch, nil
	case role == models.RoleTutor && session.TutorID == actorID:
		return patch, nil
	case role == models.RoleStudent && session.StudentID == actorID:
		// Students may only touch their notes.
		if patch.Notes == nil {
			return SessionPatch{}, ErrNoAllowedFields
		}
		return SessionPatch{Notes: patch.Notes}, nil
	default:
		return SessionPatch{}, ErrInsufficientPermissions
	}
}

func validatePatch(patch SessionPatch) error {
	if patch.StartTime != nil && patch.StartTime.IsZero() {
		return ErrInvalidInput
	}
	if patch.DurationMinutes != nil && !validDuration(*patch.DurationMinutes) {
		return ErrInvalidInput
	}
	if patch.Status != nil && !models.IsValidSessionStatus(*patch.Status) {
		return ErrInvalidInput
	}
	if patch.Rating != nil && (*patch.Rating < 1 || *patch.Rating > 5) {
		return ErrInvalidInput
	}
	return nil
}

func canActOnSession(role string, actorID uuid.UUID, session *models.Session) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleTutor:
		return session.TutorID == actorID
	case models.RoleStudent:
		return session.StudentID == actorID
	default:
		return false
	}
}

func scopeForRole(actorID uuid.UUID, role string) (repository.SessionScope, error) {
	switch role {
	case models.RoleAdmin:
		return repository.SessionScope{}, nil
	case models.RoleStudent:
		return repository.SessionScope{StudentID: &actorID}, nil
	case models.RoleTutor:
		return repository.SessionScope{TutorID: &actorID}, nil
	default:
		return repository.SessionScope{}, ErrInsufficientPermissions
	}
}

func touchesCompleted(from, to string) bool {
	return from != to && (from == models.SessionStatusCompleted || to == models.SessionStatusCompleted)
}

func validDuration(minutes int) bool {
	return minutes >= models.MinSessionDurationMinutes && minutes <= models.MaxSessionDurationMinutes
}

func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrSessionOverlap):
		return ErrSchedulingConflict
	default:
		return err
	}
}
