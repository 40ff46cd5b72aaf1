package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
)

const tutorProfileColumns = `id, user_id, full_name, bio, subjects, experience_years, hourly_rate,
		rating, total_sessions, is_verified, created_at, updated_at`

type TutorListFilter struct {
	Subject       string
	MaxPrice      float64
	MinExperience int
	Offset        int
	Limit         int
}

type UpdateTutorProfileInput struct {
	FullName        *string
	Bio             *string
	Subjects        *[]string
	ExperienceYears *int
	HourlyRate      *float64
}

type TutorProfileRepository struct {
	db DBTX
}

func NewTutorProfileRepository(db DBTX) *TutorProfileRepository {
	return &TutorProfileRepository{db: db}
}

func (r *TutorProfileRepository) CreateEmpty(ctx context.Context, userID uuid.UUID, fullName string) error {
	query := `INSERT INTO tutor_profiles (user_id, full_name) VALUES ($1, NULLIF($2, ''))`
	_, err := r.db.Exec(ctx, query, userID, fullName)
	if isPgError(err, pgUniqueViolation) {
		return ErrDuplicate
	}
	return err
}

func (r *TutorProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TutorProfile, error) {
	query := `SELECT ` + tutorProfileColumns + ` FROM tutor_profiles WHERE user_id = $1`
	return scanTutorProfile(r.db.QueryRow(ctx, query, userID))
}

// UpdatePartial overwrites only the supplied fields.
func (r *TutorProfileRepository) UpdatePartial(
	ctx context.Context,
	userID uuid.UUID,
	input UpdateTutorProfileInput,
) (*models.TutorProfile, error) {
	query := `
		UPDATE tutor_profiles
		SET full_name = COALESCE($1, full_name),
			bio = COALESCE($2, bio),
			subjects = COALESCE($3, subjects),
			experience_years = COALESCE($4, experience_years),
			hourly_rate = COALESCE($5, hourly_rate),
			updated_at = NOW()
		WHERE user_id = $6
		RETURNING ` + tutorProfileColumns

	return scanTutorProfile(r.db.QueryRow(ctx, query,
		input.FullName,
		input.Bio,
		input.Subjects,
		input.ExperienceYears,
		input.HourlyRate,
		userID,
	))
}

// RefreshStats recomputes rating and total_sessions from the tutor's sessions.
func (r *TutorProfileRepository) RefreshStats(ctx context.Context, tutorID uuid.UUID) error {
	query := `
		UPDATE tutor_profiles tp
		SET rating = stats.avg_rating,
			total_sessions = stats.completed,
			updated_at = NOW()
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 2) AS avg_rating,
				   COUNT(*) FILTER (WHERE status = 'completed') AS completed
			FROM sessions
			WHERE tutor_id = $1
		) AS stats
		WHERE tp.user_id = $1
	`
	_, err := r.db.Exec(ctx, query, tutorID)
	return err
}

func (r *TutorProfileRepository) SetVerified(ctx context.Context, userID uuid.UUID, verified bool) (*models.TutorProfile, error) {
	query := `
		UPDATE tutor_profiles
		SET is_verified = $1,
			updated_at = NOW()
		WHERE user_id = $2
		RETURNING ` + tutorProfileColumns
	return scanTutorProfile(r.db.QueryRow(ctx, query, verified, userID))
}

func (r *TutorProfileRepository) List(ctx context.Context, filter TutorListFilter) ([]models.TutorProfile, int, error) {
	args := []any{}
	whereParts := []string{"TRUE"}

	if subject := strings.ToLower(strings.TrimSpace(filter.Subject)); subject != "" {
		args = append(args, subject)
		whereParts = append(whereParts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(subjects) AS s WHERE lower(s) = $%d)", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		whereParts = append(whereParts, fmt.Sprintf("hourly_rate <= $%d", len(args)))
	}
	if filter.MinExperience > 0 {
		args = append(args, filter.MinExperience)
		whereParts = append(whereParts, fmt.Sprintf("experience_years >= $%d", len(args)))
	}

	where := strings.Join(whereParts, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM tutor_profiles WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tutor_profiles
		WHERE %s
		ORDER BY rating DESC NULLS LAST, id ASC
	`, tutorProfileColumns, where)
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	profiles, err := r.queryProfiles(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *TutorProfileRepository) ListAll(ctx context.Context) ([]models.TutorProfile, error) {
	query := `SELECT ` + tutorProfileColumns + ` FROM tutor_profiles ORDER BY id ASC`
	return r.queryProfiles(ctx, query)
}

func (r *TutorProfileRepository) queryProfiles(ctx context.Context, query string, args ...any) ([]models.TutorProfile, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.TutorProfile, 0)
	for rows.Next() {
		profile, err := scanTutorProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func scanTutorProfile(row pgx.Row) (*models.TutorProfile, error) {
	var profile models.TutorProfile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Bio,
		&profile.Subjects,
		&profile.ExperienceYears,
		&profile.HourlyRate,
		&profile.Rating,
		&profile.TotalSessions,
		&profile.IsVerified,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
