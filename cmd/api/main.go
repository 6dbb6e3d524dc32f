package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"resale-admin/internal/auth"
	"resale-admin/internal/config"
	"resale-admin/internal/database"
	"resale-admin/internal/handlers"
	"resale-admin/internal/history"
	"resale-admin/internal/imports"
	"resale-admin/internal/notify"
	"resale-admin/internal/ratelimit"
	"resale-admin/internal/reconcile"
	"resale-admin/internal/reset"
	"resale-admin/internal/scheduler"
	"resale-admin/internal/search"
	"resale-admin/internal/store"
	"resale-admin/internal/store/memory"
)

var (
	appConfig    *config.Config
	dataStore    store.Store
	gormDB       *database.GormDB
	searchClient *search.SearchClient
	appScheduler *scheduler.Scheduler
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Load configuration
	configPath := getEnv("CONFIG_PATH", "config/admin.yaml")
	var err error
	appConfig, err = config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		appConfig.Database.Type = dbType
	}
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database based on configuration
	dataStore, err = openStore(appConfig)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", appConfig.Database.Type, err)
	}
	defer dataStore.Close()

	// Initialize Meilisearch using config
	var (
		indexer  imports.Indexer
		clearer  reset.Clearer
		searcher handlers.Searcher
	)
	if appConfig.Search.Enabled {
		msCfg := appConfig.Search.Meilisearch
		searchClient = search.NewSearchClient(
			getEnvOrConfig(msCfg.Host, "MEILISEARCH_HOST", "http://localhost:7700"),
			getEnvOrConfig(msCfg.APIKey, "MEILISEARCH_KEY", ""),
			msCfg.Index,
		)
		if err := searchClient.InitIndex(); err != nil {
			log.Printf("Warning: Failed to initialize search index: %v", err)
		}
		indexer, clearer, searcher = searchClient, searchClient, searchClient
		log.Printf("Search enabled (index: %s)", msCfg.Index)
	}

	// Outbound notifications
	var sender notify.Sender = notify.Discard{}
	if appConfig.Notify.Enabled {
		webhookURL := getEnvOrConfig(appConfig.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL", "")
		if webhookURL == "" {
			log.Println("Warning: notify.enabled is set but no webhook URL is configured")
		} else {
			sender = notify.NewBreaker(
				notify.NewWebhook(webhookURL, appConfig.Notify.Timeout(), nil),
				appConfig.Notify.FailureThreshold,
				appConfig.Notify.ResetTimeout(),
			)
			log.Println("Webhook notifications enabled")
		}
	}

	// PIN gate
	gate, err := auth.NewPinGate(
		getEnvOrConfig(appConfig.Auth.PinHash, "PIN_HASH", ""),
		getEnvOrConfig(appConfig.Auth.JWTSecret, "JWT_SECRET", ""),
		appConfig.Auth.SessionTTL(),
	)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	// Initialize rate limiter
	limiter := ratelimit.NewLimiter(
		appConfig.Auth.LoginPerMinute,
		appConfig.Auth.LoginPerHour,
		appConfig.Auth.LoginLimitEnabled,
	)
	log.Printf("Login limiter initialized: %d req/min, %d req/hour (enabled: %v)",
		appConfig.Auth.LoginPerMinute,
		appConfig.Auth.LoginPerHour,
		appConfig.Auth.LoginLimitEnabled,
	)

	historyService := history.NewService(dataStore)
	reconciler := reconcile.NewService(dataStore, dataStore, appConfig.Import.UnresolvedSample)
	importService := imports.NewService(reconciler, historyService, indexer, sender)
	resetService := reset.NewService(dataStore, historyService, clearer)

	// Initialize and start scheduler
	appScheduler = scheduler.NewScheduler(dataStore, dataStore, sender, scheduler.Options{
		Enabled:  appConfig.Report.DailyRunEnabled,
		RunTime:  appConfig.Report.DailyRunTime,
		Location: appConfig.Location(),
	})
	if err := appScheduler.Start(); err != nil {
		log.Printf("Warning: Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	var health func(ctx context.Context) error
	if gormDB != nil {
		health = gormDB.Ping
	}

	r := handlers.NewRouter(handlers.Deps{
		Gate:         gate,
		Limiter:      limiter,
		Properties:   dataStore,
		Reservations: dataStore,
		Imports:      importService,
		History:      historyService,
		Reset:        resetService,
		Scheduler:    appScheduler,
		Searcher:     searcher,
		Weeks: handlers.WeekRange{
			StartYear: appConfig.Dashboard.StartYear,
			Years:     appConfig.Dashboard.Years,
		},
		AllowOrigins:   appConfig.Server.AllowOrigins,
		MaxUploadBytes: appConfig.Server.MaxUploadBytes(),
		HistoryLimit:   appConfig.Import.HistoryLimit,
		MaxResetCount:  appConfig.Import.MaxResetCount,
		StorageName:    appConfig.Database.Type,
		Health:         health,
	})

	port := getEnv("PORT", fmt.Sprintf("%d", appConfig.Server.Port))
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}

// openStore connects the configured backend and migrates its schema.
func openStore(cfg *config.Config) (store.Store, error) {
	logLevel := cfg.Logging.GormLogLevel()

	switch cfg.Database.Type {
	case "mysql":
		log.Println("Using MySQL with GORM")
		mysqlCfg := cfg.Database.MySQL

		// Get port as string, handle 0 as empty
		portStr := ""
		if mysqlCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", mysqlCfg.Port)
		}

		db, err := database.NewGormDB(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "localhost"),
			getEnvOrConfig(portStr, "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "resale_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", ""),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "resale_db"),
			logLevel,
		)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		gormDB = db
		return db, nil

	case "postgres":
		log.Println("Using PostgreSQL with GORM")
		pgCfg := cfg.Database.Postgres

		portStr := ""
		if pgCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", pgCfg.Port)
		}

		db, err := database.NewGormPostgres(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "localhost"),
			getEnvOrConfig(portStr, "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "resale_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", ""),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "resale_db"),
			getEnvOrConfig(pgCfg.SSLMode, "DB_SSLMODE", "disable"),
			logLevel,
		)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		gormDB = db
		return db, nil

	default:
		path := getEnvOrConfig(cfg.Database.Memory.SnapshotPath, "SNAPSHOT_PATH", "")
		log.Printf("Using in-process store (snapshot: %q)", path)
		if path == "" {
			return memory.New(), nil
		}
		st, err := memory.Open(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns the environment variable if set, otherwise the config value, then default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if configValue != "" {
		return configValue
	}
	return defaultValue
}
