package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
	"github.com/saeid-a/TutorAppBack/pkg/utils"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLength = 8

// AccountWriter is the transactional view used while registering a user.
type AccountWriter interface {
	CreateUser(ctx context.Context, user *models.User) error
	CreateUserProfile(ctx context.Context, userID uuid.UUID) error
	CreateTutorProfile(ctx context.Context, userID uuid.UUID, fullName string) error
}

type AccountTransactor interface {
	WithinTx(ctx context.Context, fn func(w AccountWriter) error) error
}

type accountReader interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AccountService struct {
	tx    AccountTransactor
	users accountReader
}

func NewAccountService(tx AccountTransactor, users accountReader) *AccountService {
	return &AccountService{tx: tx, users: users}
}

// Register creates a student or tutor account with an empty user profile.
// Tutors also get an empty tutor profile in the same transaction.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if input.Role != models.RoleStudent && input.Role != models.RoleTutor {
		return nil, ErrInvalidRole
	}
	return s.createAccount(ctx, input)
}

func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin creates the admin account unless the email is already taken.
// It reports whether a new account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.createAccount(ctx, RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AccountService) createAccount(ctx context.Context, input RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email, err := normalizeEmail(input.Email)
	if err != nil || name == "" || len(input.Password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         input.Role,
	}
	err = s.tx.WithinTx(ctx, func(w AccountWriter) error {
		if err := w.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}
		if err := w.CreateUserProfile(ctx, user.ID); err != nil {
			return err
		}
		if user.Role == models.RoleTutor {
			return w.CreateTutorProfile(ctx, user.ID, user.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Address), nil
}
