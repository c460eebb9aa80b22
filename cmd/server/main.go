package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/afero"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/tiptop/backend/docs"
	"github.com/tiptop/backend/internal/config"
	"github.com/tiptop/backend/internal/database"
	"github.com/tiptop/backend/internal/handlers"
	"github.com/tiptop/backend/internal/jobs"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/mail"
	mW "github.com/tiptop/backend/internal/middleware"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/repository"
	"github.com/tiptop/backend/internal/services"
	"github.com/tiptop/backend/internal/session"
	"go.uber.org/zap"
)

// @title TipTop API
// @version 1.0
// @description Coin rewards, password reset and ad management for TipTop
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	docs.SwaggerInfo.Host = "localhost:" + cfg.Port

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	accounts := repository.NewAccountRepository(db)
	ledgers := repository.NewLedgerRepository(db)
	ads := repository.NewAdRepository(db)

	scheduler := jobs.NewScheduler(ledgers, cfg.Jobs.LedgerRepairSpec)
	sessions := newSessionStore(redisClient, cfg.Session, scheduler)
	if err := scheduler.Start(ctx); err != nil {
		logger.Log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	mailer := mail.New(cfg.Mail, logger.Log)
	limiter := services.NewRedisRateLimiter(redisClient, "reset", cfg.Reset.MaxRequests, cfg.Reset.RateLimitWindow)

	authService := services.NewAuthService(accounts, redisClient, cfg.Session.Secure)
	resetService := services.NewPasswordResetService(accounts, mailer, limiter, cfg.Reset.CodeTimeout)
	coinService := services.NewCoinService(accounts, ledgers)
	adService := services.NewAdService(ads, afero.NewOsFs(), cfg.Uploads)

	resetHandler := handlers.NewPasswordResetHandler(resetService)
	coinHandler := handlers.NewCoinHandler(coinService)
	adHandler := handlers.NewAdHandler(adService)
	adminHandler := handlers.NewAdminHandler(accounts, coinService, adService)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", healthCheck(db, redisClient))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Handle(cfg.Uploads.PublicPrefix+"*", http.StripPrefix(cfg.Uploads.PublicPrefix,
		mW.StaticFileServer(afero.NewOsFs(), cfg.Uploads.Dir)))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(session.Middleware(sessions, cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.Secure))

		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Post("/auth/forgot-password", resetHandler.ForgotPassword)
		r.Post("/auth/verify-code", resetHandler.VerifyCode)
		r.Post("/auth/reset-password", resetHandler.ResetPassword)
		r.Get("/ads", adHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(redisClient))

			r.Get("/auth/account", authService.GetAccount)
			r.Get("/dashboard", coinHandler.Dashboard)
			r.Post("/coins/earn", coinHandler.Earn)
			r.Post("/coins/redeem", coinHandler.Redeem)
			r.Get("/coins/history", coinHandler.History)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mW.RequireRole(accounts.GetByID, models.RoleAdmin))

				r.Get("/", adminHandler.Overview)
				r.Get("/ads", adminHandler.ListAds)
				r.Post("/ads", adminHandler.CreateAd)
				r.Post("/ads/{adID}/toggle", adminHandler.ToggleAd)
				r.Delete("/ads/{adID}", adminHandler.DeleteAd)
				r.Get("/users", adminHandler.ListUsers)
				r.Get("/users/{userID}/profile", adminHandler.UserProfile)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Log.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server stopped")
}

// newSessionStore prefers redis and falls back to process memory, which the
// scheduler sweeps.
func newSessionStore(client *redis.Client, cfg config.SessionConfig, scheduler *jobs.Scheduler) session.Store {
	if client != nil {
		return session.NewRedisStore(client, cfg.TTL)
	}

	logger.Log.Warn("Using in-memory sessions; pending password resets will not survive a restart")
	store := session.NewMemoryStore(cfg.TTL)
	scheduler.AddSweep("@every 5m", "sessions", store.Sweep)
	return store
}

func healthCheck(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "healthy", "database": "up", "redis": "disabled"}
		code := http.StatusOK

		if err := db.PingContext(r.Context()); err != nil {
			status["status"], status["database"] = "degraded", "down"
			code = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			status["redis"] = "up"
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				status["redis"] = "down"
			}
		}

		render.Status(r, code)
		render.JSON(w, r, status)
	}
}
