package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
)

const sessionColumns = `id, student_id, tutor_id, subject, start_time, end_time, duration_min,
		status, session_type, price, currency, notes, meeting_link, recording_url, rating, review,
		created_at, updated_at`

// OverlapQuery describes an interval lookup against the active sessions of a
// student and a tutor. Either participant may be left nil.
type OverlapQuery struct {
	StudentID *uuid.UUID
	TutorID   *uuid.UUID
	Start     time.Time
	End       time.Time
	ExcludeID *uuid.UUID
}

// SessionScope narrows aggregate queries to one participant; the zero value
// covers every session.
type SessionScope struct {
	StudentID *uuid.UUID
	TutorID   *uuid.UUID
}

type SessionListFilter struct {
	StudentID *uuid.UUID
	TutorID   *uuid.UUID
	Status    string
	Subject   string
	StartDate *time.Time
	EndDate   *time.Time
	Offset    int
	Limit     int
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, student_id, tutor_id, subject, start_time, end_time, duration_min,
			status, session_type, price, currency, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + sessionColumns

	created, err := scanSession(r.db.QueryRow(
		ctx,
		query,
		session.ID,
		session.StudentID,
		session.TutorID,
		session.Subject,
		session.StartTime,
		session.EndTime,
		session.DurationMinutes,
		session.Status,
		session.SessionType,
		session.Price,
		session.Currency,
		session.Notes,
	))
	if isPgError(err, pgExclusionViolation) {
		return nil, ErrSessionOverlap
	}
	return created, err
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// Save writes every mutable column of session back to the row.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET start_time = $2,
			end_time = $3,
			duration_min = $4,
			status = $5,
			notes = $6,
			meeting_link = $7,
			recording_url = $8,
			rating = $9,
			review = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns

	saved, err := scanSession(r.db.QueryRow(
		ctx,
		query,
		session.ID,
		session.StartTime,
		session.EndTime,
		session.DurationMinutes,
		session.Status,
		session.Notes,
		session.MeetingLink,
		session.RecordingURL,
		session.Rating,
		session.Review,
	))
	if isPgError(err, pgExclusionViolation) {
		return nil, ErrSessionOverlap
	}
	return saved, err
}

// FindOverlapping returns the active sessions of either participant whose
// [start_time, end_time) intersects [q.Start, q.End).
func (r *SessionRepository) FindOverlapping(ctx context.Context, q OverlapQuery) ([]models.Session, error) {
	args := []any{q.Start, q.End, models.ActiveSessionStatuses}
	whereParts := []string{
		"start_time < $2",
		"end_time > $1",
		"status = ANY($3)",
	}

	participants := make([]string, 0, 2)
	if q.StudentID != nil {
		args = append(args, *q.StudentID)
		participants = append(participants, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if q.TutorID != nil {
		args = append(args, *q.TutorID)
		participants = append(participants, fmt.Sprintf("tutor_id = $%d", len(args)))
	}
	if len(participants) == 0 {
		return []models.Session{}, nil
	}
	whereParts = append(whereParts, "("+strings.Join(participants, " OR ")+")")

	if q.ExcludeID != nil {
		args = append(args, *q.ExcludeID)
		whereParts = append(whereParts, fmt.Sprintf("id <> $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY start_time ASC
	`, sessionColumns, strings.Join(whereParts, " AND "))

	return r.querySessions(ctx, query, args...)
}

// LockParticipants takes transaction-scoped advisory locks for every id so
// concurrent bookings touching the same participant serialize. Must run
// inside a transaction.
func (r *SessionRepository) LockParticipants(ctx context.Context, ids ...uuid.UUID) error {
	keys := make([]string, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id.String())
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", key); err != nil {
			return err
		}
	}
	return nil
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, int, error) {
	args := []any{}
	whereParts := []string{"TRUE"}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		whereParts = append(whereParts, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.TutorID != nil {
		args = append(args, *filter.TutorID)
		whereParts = append(whereParts, fmt.Sprintf("tutor_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}
	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		args = append(args, "%"+escapeLike(subject)+"%")
		whereParts = append(whereParts, fmt.Sprintf("subject ILIKE $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		whereParts = append(whereParts, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		whereParts = append(whereParts, fmt.Sprintf("start_time <= $%d", len(args)))
	}

	where := strings.Join(whereParts, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM sessions WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY start_time ASC, id ASC
	`, sessionColumns, where)
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	sessions, err := r.querySessions(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (r *SessionRepository) ListUpcoming(ctx context.Context, scope SessionScope, now time.Time) ([]models.Session, error) {
	args := []any{now, models.ActiveSessionStatuses}
	whereParts := []string{"start_time >= $1", "status = ANY($2)"}
	whereParts, args = appendScope(whereParts, args, scope)

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY start_time ASC, id ASC
	`, sessionColumns, strings.Join(whereParts, " AND "))

	return r.querySessions(ctx, query, args...)
}

func (r *SessionRepository) Stats(ctx context.Context, scope SessionScope, now time.Time) (*models.SessionStats, error) {
	args := []any{now}
	whereParts, args := appendScope([]string{"TRUE"}, args, scope)

	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'no-show'),
			COUNT(*) FILTER (WHERE status IN ('pending', 'confirmed') AND start_time >= $1),
			COALESCE(SUM(duration_min), 0),
			COALESCE(SUM(price), 0)::float8
		FROM sessions
		WHERE %s
	`, strings.Join(whereParts, " AND "))

	var stats models.SessionStats
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Confirmed,
		&stats.Completed,
		&stats.Cancelled,
		&stats.NoShow,
		&stats.Upcoming,
		&stats.TotalDurationMinutes,
		&stats.TotalPrice,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.StudentID,
		&session.TutorID,
		&session.Subject,
		&session.StartTime,
		&session.EndTime,
		&session.DurationMinutes,
		&session.Status,
		&session.SessionType,
		&session.Price,
		&session.Currency,
		&session.Notes,
		&session.MeetingLink,
		&session.RecordingURL,
		&session.Rating,
		&session.Review,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func appendScope(whereParts []string, args []any, scope SessionScope) ([]string, []any) {
	if scope.StudentID != nil {
		args = append(args, *scope.StudentID)
		whereParts = append(whereParts, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if scope.TutorID != nil {
		args = append(args, *scope.TutorID)
		whereParts = append(whereParts, fmt.Sprintf("tutor_id = $%d", len(args)))
	}
	return whereParts, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
