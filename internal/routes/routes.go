package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/TutorAppBack/internal/config"
	"github.com/saeid-a/TutorAppBack/internal/handlers"
	"github.com/saeid-a/TutorAppBack/internal/middleware"
	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
	"github.com/saeid-a/TutorAppBack/internal/services"
)

// Services bundles the application services shared by routes and startup tasks.
type Services struct {
	Accounts    *services.AccountService
	Profiles    *services.ProfileService
	Sessions    *services.SessionService
	Matchmaking *services.MatchmakingService
	TutorRepo   *repository.TutorProfileRepository
}

func NewServices(cfg *config.Config, db *pgxpool.Pool) (*Services, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("config and database pool are required")
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewUserProfileRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	tutorRepo := repository.NewTutorProfileRepository(db)

	return &Services{
		Accounts: services.NewAccountService(services.NewPgAccountTransactor(db), userRepo),
		Profiles: services.NewProfileService(services.NewPgProfileTransactor(db), userRepo, profileRepo),
		Sessions: services.NewSessionService(
			services.NewPgSessionTransactor(db),
			sessionRepo,
			userRepo,
			cfg.CancellationWindow,
		),
		Matchmaking: services.NewMatchmakingService(tutorRepo, profileRepo),
		TutorRepo:   tutorRepo,
	}, nil
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, svc *Services) error {
	if svc == nil {
		return errors.New("services are required")
	}

	authHandler := handlers.NewAuthHandler(svc.Accounts, cfg.JWTSecret, cfg.JWTTTL)
	profileHandler := handlers.NewProfileHandler(svc.Profiles)
	sessionHandler := handlers.NewSessionHandler(svc.Sessions)
	tutorHandler := handlers.NewTutorHandler(svc.TutorRepo, svc.Matchmaking)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	users := authProtected.Group("/users")
	users.Get("/profile", profileHandler.GetUserProfile)
	users.Put("/profile", profileHandler.UpdateUserProfile)

	sessions := authProtected.Group("/sessions")
	sessions.Post("", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), sessionHandler.CreateSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/my/upcoming", sessionHandler.GetUpcoming)
	sessions.Get("/my/stats", sessionHandler.GetStats)
	sessions.Get("/availability", sessionHandler.CheckAvailability)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id", sessionHandler.UpdateSession)
	sessions.Post("/:id/cancel", sessionHandler.CancelSession)

	tutors := authProtected.Group("/tutors")
	tutors.Get("", tutorHandler.ListTutors)
	tutors.Get("/recommended", tutorHandler.GetRecommendedTutors)
	tutors.Put("/profile", middleware.RequireRoles(models.RoleTutor), tutorHandler.UpdateProfile)
	tutors.Get("/:id", tutorHandler.GetTutorDetail)
	tutors.Put("/:id/verify", middleware.RequireRoles(models.RoleAdmin), tutorHandler.VerifyTutor)

	return nil
}
