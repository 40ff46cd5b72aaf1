package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
)

const userProfileColumns = `id, user_id, bio, phone, date_of_birth, location, timezone, skills,
		preferred_subjects, max_price, preferred_currency, preferred_languages, created_at, updated_at`

type UpdateUserProfileInput struct {
	Bio                *string
	Phone              *string
	DateOfBirth        *time.Time
	Location           *string
	Timezone           *string
	Skills             *[]string
	PreferredSubjects  *[]string
	MaxPrice           *float64
	PreferredCurrency  *string
	PreferredLanguages *[]string
}

type UserProfileRepository struct {
	db DBTX
}

func NewUserProfileRepository(db DBTX) *UserProfileRepository {
	return &UserProfileRepository{db: db}
}

func (r *UserProfileRepository) CreateEmpty(ctx context.Context, userID uuid.UUID) error {
	query := `INSERT INTO user_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	if isPgError(err, pgUniqueViolation) {
		return ErrDuplicate
	}
	return err
}

func (r *UserProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	query := `SELECT ` + userProfileColumns + ` FROM user_profiles WHERE user_id = $1`
	return scanUserProfile(r.db.QueryRow(ctx, query, userID))
}

// UpdatePartial overwrites only the supplied fields.
func (r *UserProfileRepository) UpdatePartial(
	ctx context.Context,
	userID uuid.UUID,
	input UpdateUserProfileInput,
) (*models.UserProfile, error) {
	query := `
		UPDATE user_profiles
		SET bio = COALESCE($1, bio),
			phone = COALESCE($2, phone),
			date_of_birth = COALESCE($3, date_of_birth),
			location = COALESCE($4, location),
			timezone = COALESCE($5, timezone),
			skills = COALESCE($6, skills),
			preferred_subjects = COALESCE($7, preferred_subjects),
			max_price = COALESCE($8, max_price),
			preferred_currency = COALESCE($9, preferred_currency),
			preferred_languages = COALESCE($10, preferred_languages),
			updated_at = NOW()
		WHERE user_id = $11
		RETURNING ` + userProfileColumns

	return scanUserProfile(r.db.QueryRow(ctx, query,
		input.Bio,
		input.Phone,
		input.DateOfBirth,
		input.Location,
		input.Timezone,
		input.Skills,
		input.PreferredSubjects,
		input.MaxPrice,
		input.PreferredCurrency,
		input.PreferredLanguages,
		userID,
	))
}

func scanUserProfile(row pgx.Row) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Bio,
		&profile.Phone,
		&profile.DateOfBirth,
		&profile.Location,
		&profile.Timezone,
		&profile.Skills,
		&profile.Preferences.Subjects,
		&profile.Preferences.MaxPrice,
		&profile.Preferences.Currency,
		&profile.Preferences.Languages,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
