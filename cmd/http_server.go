package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/taskboard/internal"
	"github.com/frahmantamala/taskboard/internal/activity"
	activityPostgres "github.com/frahmantamala/taskboard/internal/activity/postgres"
	"github.com/frahmantamala/taskboard/internal/auth"
	authPostgres "github.com/frahmantamala/taskboard/internal/auth/postgres"
	"github.com/frahmantamala/taskboard/internal/board"
	boardPostgres "github.com/frahmantamala/taskboard/internal/board/postgres"
	"github.com/frahmantamala/taskboard/internal/core/events"
	"github.com/frahmantamala/taskboard/internal/mailer"
	"github.com/frahmantamala/taskboard/internal/project"
	projectPostgres "github.com/frahmantamala/taskboard/internal/project/postgres"
	"github.com/frahmantamala/taskboard/internal/rbac"
	rbacPostgres "github.com/frahmantamala/taskboard/internal/rbac/postgres"
	"github.com/frahmantamala/taskboard/internal/transport/rest"
	"github.com/frahmantamala/taskboard/internal/user"
	userPostgres "github.com/frahmantamala/taskboard/internal/user/postgres"
	"github.com/frahmantamala/taskboard/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Router     *chi.Mux
	MailClient *mailer.Client
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.MailClient.Shutdown()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{
		Conn: db.DB,
	}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	eventBus := events.NewEventBus(log)

	mailClient := mailer.NewClient(mailer.Config{
		APIURL:       config.Mailer.APIURL,
		APIKey:       config.Mailer.APIKey,
		FromAddress:  config.Mailer.FromAddress,
		SendTimeout:  config.Mailer.SendTimeout,
		MaxWorkers:   config.Mailer.MaxWorkers,
		JobQueueSize: config.Mailer.JobQueueSize,
	}, log)

	// repositories
	userAuthRepo := authPostgres.NewUserRepository(gormDB)
	otpRepo := authPostgres.NewOtpRepository(gormDB)
	rbacRepo := rbacPostgres.NewRepository(gormDB)
	userRepo := userPostgres.NewRepository(gormDB)
	projectRepo := projectPostgres.NewRepository(gormDB)
	boardRepo := boardPostgres.NewRepository(gormDB)
	activityRepo := activityPostgres.NewRepository(gormDB)

	// services
	rbacService := rbac.NewService(rbacRepo, log)
	otpManager := auth.NewOtpManager(otpRepo, mailClient, config.Otp, log)
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenTTL,
		config.Security.RefreshTokenTTL,
	)
	authService := auth.NewService(userAuthRepo, otpManager, rbacService, tokenGen, config.Security.BCryptCost, log)
	userService := user.NewService(userRepo, rbacService)
	projectService := project.NewService(projectRepo, mailClient, eventBus, config.Otp.InvitationTTL, log)
	boardService := board.NewService(boardRepo, projectService, eventBus, log)
	activityService := activity.NewService(activityRepo, projectService, log)
	activityService.RegisterSubscribers(eventBus)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		Auth:     auth.NewHandler(authService),
		User:     user.NewHandler(userService),
		RBAC:     rbac.NewHandler(rbacService),
		Project:  project.NewHandler(projectService),
		Board:    board.NewHandler(boardService),
		Activity: activity.NewHandler(activityService),
	}, log)

	return &Dependencies{
		Config:     config,
		Logger:     log,
		DB:         db,
		Router:     router,
		MailClient: mailClient,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
