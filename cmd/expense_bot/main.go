package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/adapters/archive/gcs"
	"github.com/SscSPs/shared_expense_bot/internal/adapters/database/pgsql"
	"github.com/SscSPs/shared_expense_bot/internal/adapters/extraction/gemini"
	"github.com/SscSPs/shared_expense_bot/internal/adapters/telegram"
	"github.com/SscSPs/shared_expense_bot/internal/conversation"
	"github.com/SscSPs/shared_expense_bot/internal/core/ports/gateways"
	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/core/services"
	"github.com/SscSPs/shared_expense_bot/internal/handlers"
	"github.com/SscSPs/shared_expense_bot/internal/intake"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/SscSPs/shared_expense_bot/internal/platform/config"
	"github.com/SscSPs/shared_expense_bot/internal/scheduler"
	"github.com/SscSPs/shared_expense_bot/internal/utils"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
	"github.com/SscSPs/shared_expense_bot/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// `expense_bot hash-password <password>` prints a value for ADMIN_PASSWORD_HASH.
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(hashPassword(os.Args[2:]))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Shutting down after fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func hashPassword(args []string) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "usage: expense_bot hash-password <password>")
		return 2
	}
	hash, err := utils.HashPassword(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to hash password:", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = middleware.WithLogger(ctx, logger)

	if err := runMigrations(logger, cfg); err != nil {
		return err
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return fmt.Errorf("failed to initialize database pool: %w", err)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	clk := clock.NewReal()
	botEnabled := cfg.TelegramBotToken != ""

	// Extraction is only reachable through the chat interface.
	var extractor gateways.ReceiptExtractor
	if botEnabled {
		gem, err := gemini.NewExtractor(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			return fmt.Errorf("failed to create receipt extractor: %w", err)
		}
		extractor = gem
	}

	serviceContainer, err := services.NewServiceContainer(ctx, cfg, pgsql.NewRepositoryProvider(dbPool), extractor, clk)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	var wg sync.WaitGroup
	if botEnabled {
		archive, closeArchive, err := newArchive(ctx, logger, cfg)
		if err != nil {
			return err
		}
		defer closeArchive()

		bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("failed to connect to Telegram: %w", err)
		}
		logger.Info("Authorized on Telegram", slog.String("bot", bot.Self.UserName))

		transport := telegram.NewTransport(bot)
		collector := intake.NewPhotoCollector(transport, intake.WithDebounce(cfg.PhotoDebounce))
		machine := conversation.NewMachine(conversation.Deps{
			Services:  serviceContainer,
			Transport: transport,
			Extractor: extractor,
			Archive:   archive,
			Collector: collector,
			Pending:   intake.NewPendingReceiptStore(cfg.PendingReceiptTTL, clk),
		},
			conversation.WithCurrency(cfg.Currency),
			conversation.WithMaxImageDimension(cfg.MaxImageDimension),
			conversation.WithClock(clk),
		)

		jobs := scheduler.New(serviceContainer.Recurring, machine, clk, scheduler.Config{
			RecurringCheckInterval: cfg.RecurringCheckInterval,
			BalanceReportInterval:  cfg.BalanceReportInterval,
			ReportChatID:           cfg.ReportChatID,
		})

		wg.Add(2)
		go func() {
			defer wg.Done()
			telegram.NewPoller(bot, machine, 60).Run(ctx)
		}()
		go func() {
			defer wg.Done()
			jobs.Run(ctx)
		}()
	} else {
		logger.Warn("Chat interface disabled; only the admin API is served")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(logger, cfg, serviceContainer),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("server failed to run: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}
	wg.Wait()
	return nil
}

func newRouter(logger *slog.Logger, cfg *config.Config, container *portssvc.ServiceContainer) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
	}

	handlers.RegisterRoutes(r, cfg, container)
	return r
}

// newArchive returns the GCS archive when a bucket is configured. Receipts are not archived otherwise.
func newArchive(ctx context.Context, logger *slog.Logger, cfg *config.Config) (gateways.ReceiptArchive, func(), error) {
	if cfg.GCSReceiptBucket == "" {
		logger.Info("GCS_RECEIPT_BUCKET not set; receipt photos will not be archived")
		return gcs.Nop{}, func() {}, nil
	}
	archive, err := gcs.NewArchive(ctx, cfg.GCSReceiptBucket, cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create receipt archive: %w", err)
	}
	return archive, func() {
		if err := archive.Close(); err != nil {
			logger.Error("Error closing receipt archive", slog.String("error", err.Error()))
		}
	}, nil
}

func runMigrations(logger *slog.Logger, cfg *config.Config) error {
	logger.Info("Running database migrations...")
	// Migrations use a short-lived database/sql handle on the pgx stdlib driver.
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}
	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
