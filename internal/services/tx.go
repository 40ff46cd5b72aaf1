package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
)

type PgSessionTransactor struct {
	db *pgxpool.Pool
}

func NewPgSessionTransactor(db *pgxpool.Pool) *PgSessionTransactor {
	return &PgSessionTransactor{db: db}
}

func (t *PgSessionTransactor) WithinTx(ctx context.Context, fn func(store SessionStore) error) error {
	return withinTx(ctx, t.db, func(tx pgx.Tx) error {
		return fn(&pgSessionStore{
			SessionRepository: repository.NewSessionRepository(tx),
			tutors:            repository.NewTutorProfileRepository(tx),
		})
	})
}

type pgSessionStore struct {
	*repository.SessionRepository
	tutors *repository.TutorProfileRepository
}

func (s *pgSessionStore) RefreshTutorStats(ctx context.Context, tutorID uuid.UUID) error {
	return s.tutors.RefreshStats(ctx, tutorID)
}

type PgAccountTransactor struct {
	db *pgxpool.Pool
}

func NewPgAccountTransactor(db *pgxpool.Pool) *PgAccountTransactor {
	return &PgAccountTransactor{db: db}
}

func (t *PgAccountTransactor) WithinTx(ctx context.Context, fn func(w AccountWriter) error) error {
	return withinTx(ctx, t.db, func(tx pgx.Tx) error {
		return fn(&pgAccountWriter{
			UserRepository: repository.NewUserRepository(tx),
			profiles:       repository.NewUserProfileRepository(tx),
			tutors:         repository.NewTutorProfileRepository(tx),
		})
	})
}

type pgAccountWriter struct {
	*repository.UserRepository
	profiles *repository.UserProfileRepository
	tutors   *repository.TutorProfileRepository
}

func (w *pgAccountWriter) CreateUserProfile(ctx context.Context, userID uuid.UUID) error {
	return w.profiles.CreateEmpty(ctx, userID)
}

func (w *pgAccountWriter) CreateTutorProfile(ctx context.Context, userID uuid.UUID, fullName string) error {
	return w.tutors.CreateEmpty(ctx, userID, fullName)
}

type PgProfileTransactor struct {
	db *pgxpool.Pool
}

func NewPgProfileTransactor(db *pgxpool.Pool) *PgProfileTransactor {
	return &PgProfileTransactor{db: db}
}

func (t *PgProfileTransactor) WithinTx(ctx context.Context, fn func(w ProfileWriter) error) error {
	return withinTx(ctx, t.db, func(tx pgx.Tx) error {
		return fn(&pgProfileWriter{
			UserRepository: repository.NewUserRepository(tx),
			profiles:       repository.NewUserProfileRepository(tx),
		})
	})
}

type pgProfileWriter struct {
	*repository.UserRepository
	profiles *repository.UserProfileRepository
}

func (w *pgProfileWriter) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	input repository.UpdateUserProfileInput,
) (*models.UserProfile, error) {
	return w.profiles.UpdatePartial(ctx, userID, input)
}

func withinTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
