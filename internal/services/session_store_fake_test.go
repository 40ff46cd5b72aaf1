package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
)

type memorySessionStore struct {
	sessions   map[uuid.UUID]models.Session
	locks      [][]uuid.UUID
	saves      int
	tutorStats map[uuid.UUID]tutorStats
}

type tutorStats struct {
	rating    *float64
	completed int
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{
		sessions:   make(map[uuid.UUID]models.Session),
		tutorStats: make(map[uuid.UUID]tutorStats),
	}
}

func (m *memorySessionStore) Create(_ context.Context, session *models.Session) (*models.Session, error) {
	stored := *session
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	m.sessions[stored.ID] = stored
	out := stored
	return &out, nil
}

func (m *memorySessionStore) GetByID(_ context.Context, sessionID uuid.UUID) (*models.Session, error) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &session, nil
}

func (m *memorySessionStore) GetByIDForUpdate(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return m.GetByID(ctx, sessionID)
}

func (m *memorySessionStore) Save(_ context.Context, session *models.Session) (*models.Session, error) {
	if _, ok := m.sessions[session.ID]; !ok {
		return nil, pgx.ErrNoRows
	}
	stored := *session
	stored.UpdatedAt = time.Now().UTC()
	m.sessions[stored.ID] = stored
	m.saves++
	out := stored
	return &out, nil
}

func (m *memorySessionStore) FindOverlapping(_ context.Context, q repository.OverlapQuery) ([]models.Session, error) {
	matches := make([]models.Session, 0)
	for _, session := range m.sessions {
		if q.ExcludeID != nil && session.ID == *q.ExcludeID {
			continue
		}
		if !models.IsActiveStatus(session.Status) {
			continue
		}
		sharesParticipant := (q.StudentID != nil && session.StudentID == *q.StudentID) ||
			(q.TutorID != nil && session.TutorID == *q.TutorID)
		if !sharesParticipant {
			continue
		}
		if session.StartTime.Before(q.End) && session.EndTime.After(q.Start) {
			matches = append(matches, session)
		}
	}
	return matches, nil
}

func (m *memorySessionStore) LockParticipants(_ context.Context, ids ...uuid.UUID) error {
	m.locks = append(m.locks, ids)
	return nil
}

func (m *memorySessionStore) RefreshTutorStats(_ context.Context, tutorID uuid.UUID) error {
	var stats tutorStats
	sum, rated := 0, 0
	for _, session := range m.sessions {
		if session.TutorID != tutorID {
			continue
		}
		if session.Status == models.SessionStatusCompleted {
			stats.completed++
		}
		if session.Rating != nil {
			sum += *session.Rating
			rated++
		}
	}
	if rated > 0 {
		avg := float64(sum) / float64(rated)
		stats.rating = &avg
	}
	m.tutorStats[tutorID] = stats
	return nil
}

func (m *memorySessionStore) List(_ context.Context, filter repository.SessionListFilter) ([]models.Session, int, error) {
	matches := make([]models.Session, 0)
	for _, session := range m.sessions {
		if filter.StudentID != nil && session.StudentID != *filter.StudentID {
			continue
		}
		if filter.TutorID != nil && session.TutorID != *filter.TutorID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		if filter.Subject != "" && !strings.Contains(strings.ToLower(session.Subject), strings.ToLower(filter.Subject)) {
			continue
		}
		if filter.StartDate != nil && session.StartTime.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && session.StartTime.After(*filter.EndDate) {
			continue
		}
		matches = append(matches, session)
	}
	sortByStart(matches)

	total := len(matches)
	if filter.Limit > 0 {
		if filter.Offset >= len(matches) {
			return []models.Session{}, total, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(matches) {
			end = len(matches)
		}
		matches = matches[filter.Offset:end]
	}
	return matches, total, nil
}

func (m *memorySessionStore) ListUpcoming(_ context.Context, scope repository.SessionScope, now time.Time) ([]models.Session, error) {
	matches := make([]models.Session, 0)
	for _, session := range m.scoped(scope) {
		if models.IsActiveStatus(session.Status) && !session.StartTime.Before(now) {
			matches = append(matches, session)
		}
	}
	sortByStart(matches)
	return matches, nil
}

func (m *memorySessionStore) Stats(_ context.Context, scope repository.SessionScope, now time.Time) (*models.SessionStats, error) {
	var stats models.SessionStats
	for _, session := range m.scoped(scope) {
		stats.Total++
		stats.TotalDurationMinutes += session.DurationMinutes
		stats.TotalPrice += session.Price
		switch session.Status {
		case models.SessionStatusPending:
			stats.Pending++
		case models.SessionStatusConfirmed:
			stats.Confirmed++
		case models.SessionStatusCompleted:
			stats.Completed++
		case models.SessionStatusCancelled:
			stats.Cancelled++
		case models.SessionStatusNoShow:
			stats.NoShow++
		}
		if models.IsActiveStatus(session.Status) && !session.StartTime.Before(now) {
			stats.Upcoming++
		}
	}
	return &stats, nil
}

func (m *memorySessionStore) scoped(scope repository.SessionScope) []models.Session {
	out := make([]models.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		if scope.StudentID != nil && session.StudentID != *scope.StudentID {
			continue
		}
		if scope.TutorID != nil && session.TutorID != *scope.TutorID {
			continue
		}
		out = append(out, session)
	}
	return out
}

func sortByStart(sessions []models.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartTime.Equal(sessions[j].StartTime) {
			return sessions[i].ID.String() < sessions[j].ID.String()
		}
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
}

// memoryTransactor restores the pre-transaction snapshot when fn fails.
type memoryTransactor struct {
	store *memorySessionStore
}

func (t *memoryTransactor) WithinTx(_ context.Context, fn func(store SessionStore) error) error {
	snapshot := make(map[uuid.UUID]models.Session, len(t.store.sessions))
	for id, session := range t.store.sessions {
		snapshot[id] = session
	}
	if err := fn(t.store); err != nil {
		t.store.sessions = snapshot
		return err
	}
	return nil
}

type stubUserDirectory struct {
	users map[uuid.UUID]models.User
}

func (s *stubUserDirectory) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (s *stubUserDirectory) add(role string) uuid.UUID {
	id := uuid.New()
	s.users[id] = models.User{ID: id, Role: role, Name: role}
	return id
}
