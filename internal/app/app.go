package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"library-service/internal/auth"
	"library-service/internal/book"
	"library-service/internal/borrow"
	"library-service/internal/category"
	"library-service/internal/config"
	"library-service/internal/db"
	"library-service/internal/events"
	"library-service/internal/health"
	"library-service/internal/logger"
	"library-service/internal/metrics"
	"library-service/internal/middleware"
	"library-service/internal/rating"
	"library-service/internal/user"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

type App struct {
	config   *config.Config
	router   *gin.Engine
	server   *http.Server
	logger   *slog.Logger
	producer *events.Producer
}

func New() *App {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses JSON format
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env)

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		config: cfg,
		router: gin.New(),
		logger: slogLogger,
	}
	app.router.Use(gin.Recovery())

	database := db.New(cfg.Database)

	ctx := context.Background()
	err = db.RunMigrations(ctx, database,
		(*user.User)(nil),
		(*user.Role)(nil),
		(*user.UserRole)(nil),
		(*auth.RefreshToken)(nil),
		(*category.Category)(nil),
		(*book.Book)(nil),
		(*rating.Rating)(nil),
		(*borrow.Loan)(nil),
	)
	if err != nil {
		log.Fatal("failed to run migrations:", err)
	}

	if err := user.SeedRoles(ctx, database); err != nil {
		log.Fatal("failed to seed roles:", err)
	}
	if cfg.Auth.CreateAdmin {
		err := user.SeedDefaultAdmin(ctx, database, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			log.Fatal("failed to seed default admin:", err)
		}
	}

	// Apply CORS middleware globally
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints (no auth required)
	healthHandler := health.NewHandler(ServiceName)
	healthHandler.RegisterRoutes(app.router)

	meter := otel.Meter(ServiceName)
	m, err := metrics.New(meter)
	if err != nil {
		slogLogger.Warn("failed to initialize metrics", "error", err)
		m = metrics.NewMock()
	}
	if err := m.Database.RegisterDB(database.DB, meter); err != nil {
		slogLogger.Warn("failed to register database pool metrics", "error", err)
	}

	// NATS producer setup (optional; loan events are skipped without it)
	natsProducer, err := events.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, slogLogger)
	if err != nil {
		slogLogger.Warn("failed to initialize NATS producer", "error", err)
		natsProducer = nil
	} else {
		slogLogger.Info("NATS producer initialized successfully")
	}
	app.producer = natsProducer

	// Repositories and services
	userRepo := user.NewRepository(database, m)
	userService := user.NewService(userRepo)

	authRepo := auth.NewRepository(database, m)
	authService := auth.NewService(authRepo, userRepo,
		time.Duration(cfg.Auth.AccessTokenTTL)*time.Minute,
		time.Duration(cfg.Auth.RefreshTokenTTL)*time.Hour,
	)

	// Expired refresh tokens accumulate between restarts, sweep them now.
	if err := authRepo.DeleteExpiredTokens(ctx); err != nil {
		slogLogger.Warn("failed to sweep expired refresh tokens", "error", err)
	}

	categoryRepo := category.NewRepository(database, m)
	categoryService := category.NewService(categoryRepo)

	bookRepo := book.NewRepository(database, m)
	bookService := book.NewService(bookRepo, categoryRepo)

	ratingRepo := rating.NewRepository(database, m)
	ratingService := rating.NewService(ratingRepo)

	borrowRepo := borrow.NewRepository(database, m)
	borrowService := borrow.NewService(borrowRepo)

	// Public routes: register, login, and catalog reads
	public := app.router.Group("/api")

	// Authenticated routes
	protected := app.router.Group("/api")
	protected.Use(auth.AuthMiddleware(slogLogger))

	// Admin routes
	admin := app.router.Group("/api")
	admin.Use(auth.AuthMiddleware(slogLogger), auth.RequireRole(user.RoleAdmin))

	authHandler := auth.NewHandler(authService, slogLogger, m)
	authHandler.RegisterRoutes(public, protected)

	userHandler := user.NewHandler(userService, slogLogger)
	userHandler.RegisterRoutes(admin)

	categoryHandler := category.NewHandler(categoryService, slogLogger)
	categoryHandler.RegisterRoutes(public, admin)

	bookHandler := book.NewHandler(bookService, slogLogger, m)
	bookHandler.RegisterRoutes(public, admin)

	ratingHandler := rating.NewHandler(ratingService, slogLogger, m, natsProducer)
	ratingHandler.RegisterRoutes(protected)

	borrowHandler := borrow.NewHandler(borrowService, slogLogger, m, natsProducer)
	borrowHandler.RegisterRoutes(protected)

	slogLogger.Info("application initialized successfully")

	return app
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")
	if err := a.producer.Close(); err != nil {
		a.logger.Warn("failed to close NATS producer", "error", err)
	}
	return a.server.Shutdown(ctx)
}
