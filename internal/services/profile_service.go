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

var ErrProfileNotFound = errors.New("profile not found")

// ProfileWriter is the transactional view used while editing a profile.
type ProfileWriter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input repository.UpdateUserProfileInput) (*models.UserProfile, error)
}

type ProfileTransactor interface {
	WithinTx(ctx context.Context, fn func(w ProfileWriter) error) error
}

type profileReader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

// ProfileUpdate carries a partial edit; nil fields are left untouched.
type ProfileUpdate struct {
	Name    *string
	Profile repository.UpdateUserProfileInput
}

type ProfileService struct {
	tx       ProfileTransactor
	users    userReader
	profiles profileReader
}

func NewProfileService(tx ProfileTransactor, users userReader, profiles profileReader) *ProfileService {
	return &ProfileService{tx: tx, users: users, profiles: profiles}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, *models.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, err
	}
	return user, profile, nil
}

// UpdateProfile writes the user's name and profile fields in one transaction.
func (s *ProfileService) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	update ProfileUpdate,
) (*models.User, *models.UserProfile, error) {
	input, err := normalizeProfileInput(update.Profile)
	if err != nil {
		return nil, nil, err
	}
	var name string
	if update.Name != nil {
		name = strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, nil, ErrInvalidInput
		}
	}

	var (
		user    *models.User
		profile *models.UserProfile
	)
	err = s.tx.WithinTx(ctx, func(w ProfileWriter) error {
		var err error
		if update.Name != nil {
			user, err = w.UpdateName(ctx, userID, name)
		} else {
			user, err = w.GetByID(ctx, userID)
		}
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		profile, err = w.UpdateProfile(ctx, userID, input)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProfileNotFound
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return user, profile, nil
}

func normalizeProfileInput(input repository.UpdateUserProfileInput) (repository.UpdateUserProfileInput, error) {
	if input.MaxPrice != nil && *input.MaxPrice < 0 {
		return input, ErrInvalidInput
	}
	if input.Timezone != nil {
		tz := strings.TrimSpace(*input.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return input, ErrInvalidInput
		}
		input.Timezone = &tz
	}
	if input.PreferredCurrency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.PreferredCurrency))
		input.PreferredCurrency = &currency
	}
	input.Skills = trimList(input.Skills)
	input.PreferredSubjects = trimList(input.PreferredSubjects)
	input.PreferredLanguages = trimList(input.PreferredLanguages)
	return input, nil
}

func trimList(values *[]string) *[]string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(*values))
	for _, value := range *values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return &out
}
