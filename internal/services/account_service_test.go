package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
	"github.com/saeid-a/TutorAppBack/pkg/utils"
)

type memoryAccounts struct {
	byEmail       map[string]models.User
	userProfiles  map[uuid.UUID]bool
	tutorProfiles map[uuid.UUID]string
	failProfile   error
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{
		byEmail:       make(map[string]models.User),
		userProfiles:  make(map[uuid.UUID]bool),
		tutorProfiles: make(map[uuid.UUID]string),
	}
}

func (m *memoryAccounts) GetByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (m *memoryAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range m.byEmail {
		if user.ID == id {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryAccounts) CreateUser(_ context.Context, user *models.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	user.ID = uuid.New()
	m.byEmail[user.Email] = *user
	return nil
}

func (m *memoryAccounts) CreateUserProfile(_ context.Context, userID uuid.UUID) error {
	m.userProfiles[userID] = true
	return nil
}

func (m *memoryAccounts) CreateTutorProfile(_ context.Context, userID uuid.UUID, fullName string) error {
	if m.failProfile != nil {
		return m.failProfile
	}
	m.tutorProfiles[userID] = fullName
	return nil
}

type memoryAccountTransactor struct {
	accounts *memoryAccounts
}

func (t *memoryAccountTransactor) WithinTx(_ context.Context, fn func(w AccountWriter) error) error {
	users := make(map[string]models.User, len(t.accounts.byEmail))
	for k, v := range t.accounts.byEmail {
		users[k] = v
	}
	profiles := make(map[uuid.UUID]bool, len(t.accounts.userProfiles))
	for k, v := range t.accounts.userProfiles {
		profiles[k] = v
	}
	if err := fn(t.accounts); err != nil {
		t.accounts.byEmail = users
		t.accounts.userProfiles = profiles
		return err
	}
	return nil
}

func newTestAccountService() (*AccountService, *memoryAccounts) {
	accounts := newMemoryAccounts()
	return NewAccountService(&memoryAccountTransactor{accounts: accounts}, accounts), accounts
}

func TestRegisterTutorCreatesProfile(t *testing.T) {
	service, accounts := newTestAccountService()

	user, err := service.Register(context.Background(), RegisterInput{
		Name:     "Ada Tutor",
		Email:    "  Ada@Example.com ",
		Password: "password123",
		Role:     models.RoleTutor,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if !utils.CheckPassword("password123", user.PasswordHash) {
		t.Fatal("expected password to be hashed with bcrypt")
	}
	if accounts.tutorProfiles[user.ID] != "Ada Tutor" {
		t.Fatalf("expected tutor profile for %s, got %v", user.ID, accounts.tutorProfiles)
	}
}

func TestRegisterStudentSkipsTutorProfile(t *testing.T) {
	service, accounts := newTestAccountService()

	user, err := service.Register(context.Background(), RegisterInput{
		Name:     "Sam",
		Email:    "sam@example.com",
		Password: "password123",
		Role:     models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(accounts.tutorProfiles) != 0 {
		t.Fatalf("expected no tutor profiles, got %v", accounts.tutorProfiles)
	}
	if !accounts.userProfiles[user.ID] {
		t.Fatal("expected a user profile for the new student")
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	service, _ := newTestAccountService()

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"admin role", RegisterInput{Name: "A", Email: "a@example.com", Password: "password123", Role: models.RoleAdmin}, ErrInvalidRole},
		{"bad email", RegisterInput{Name: "A", Email: "nope", Password: "password123", Role: models.RoleStudent}, ErrInvalidInput},
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "short", Role: models.RoleStudent}, ErrInvalidInput},
		{"missing name", RegisterInput{Email: "a@example.com", Password: "password123", Role: models.RoleStudent}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Register(context.Background(), tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	service, _ := newTestAccountService()
	input := RegisterInput{Name: "Sam", Email: "sam@example.com", Password: "password123", Role: models.RoleStudent}

	if _, err := service.Register(context.Background(), input); err != nil {
		t.Fatalf("Register: %v", err)
	}
	input.Email = "SAM@example.com"
	if _, err := service.Register(context.Background(), input); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRollsBackUserWhenProfileFails(t *testing.T) {
	service, accounts := newTestAccountService()
	accounts.failProfile = errors.New("boom")

	_, err := service.Register(context.Background(), RegisterInput{
		Name:     "Tia",
		Email:    "tia@example.com",
		Password: "password123",
		Role:     models.RoleTutor,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := accounts.byEmail["tia@example.com"]; ok {
		t.Fatal("expected user insert to be rolled back")
	}
	if len(accounts.userProfiles) != 0 {
		t.Fatalf("expected user profile insert to be rolled back, got %v", accounts.userProfiles)
	}
}

func TestAuthenticate(t *testing.T) {
	service, _ := newTestAccountService()
	registered, err := service.Register(context.Background(), RegisterInput{
		Name:     "Sam",
		Email:    "sam@example.com",
		Password: "password123",
		Role:     models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := service.Authenticate(context.Background(), "Sam@Example.com", "password123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected %s, got %s", registered.ID, user.ID)
	}

	if _, err := service.Authenticate(context.Background(), "sam@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := service.Authenticate(context.Background(), "ghost@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := service.GetUser(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	service, accounts := newTestAccountService()

	created, err := service.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "password123")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got created=%v err=%v", created, err)
	}
	if accounts.byEmail["admin@example.com"].Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %q", accounts.byEmail["admin@example.com"].Role)
	}

	created, err = service.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "password123")
	if err != nil || created {
		t.Fatalf("expected existing admin to be kept, got created=%v err=%v", created, err)
	}
}
