package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/insurai/portal/internal/api"
	"github.com/insurai/portal/internal/app"
	"github.com/insurai/portal/internal/app/maintenance"
	iauth "github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/backend"
	"github.com/insurai/portal/internal/cache"
	"github.com/insurai/portal/internal/claims"
	"github.com/insurai/portal/internal/database"
	"github.com/insurai/portal/internal/middleware"
	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/internal/monitoring"
	"github.com/insurai/portal/internal/monitoring/checks"
	"github.com/insurai/portal/internal/notifications"
	"github.com/insurai/portal/internal/services"
	"github.com/insurai/portal/pkg/crypto"
	"github.com/insurai/portal/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Poller  *notifications.Poller
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, backend client, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, generated map[string]bool, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if err := persistGeneratedSecrets(ctx, stack.DB, cfg, generated); err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sealingKey, err := cfg.Auth.SealingKey()
	if err != nil {
		return nil, err
	}
	sealer, err := crypto.NewSealer(sealingKey)
	if err != nil {
		return nil, fmt.Errorf("initialise token sealer: %w", err)
	}

	sessionCfg := iauth.SessionConfig{}
	if cfg.Auth.Session.Cache {
		sessionCfg.Cache = iauth.NewStoreSessionCache(dbStore)
	}
	sessionSvc, err := iauth.NewSessionService(stack.DB, jwtSvc, sealer, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	}, backend.WithLogger(logger.WithModule("backend")))
	if err != nil {
		return nil, fmt.Errorf("initialise backend client: %w", err)
	}

	engine := claims.NewEngine(claims.Thresholds{
		Priority:        cfg.Claims.PriorityThreshold,
		FraudHighAmount: cfg.Claims.FraudHighAmount,
		RecentWindow:    cfg.Claims.RecentWindow,
	})

	hub := notifications.NewHub()
	manager := notifications.NewManager(client,
		notifications.WithPublisher(hub),
		notifications.WithConcurrency(cfg.Notifications.Concurrency),
	)
	stack.Poller = notifications.NewPoller(manager,
		notifications.WithPollInterval(cfg.Notifications.PollInterval),
		notifications.WithRequestTimeout(cfg.Notifications.RequestTimeout),
	)
	stack.Poller.Start()

	authSvc, err := services.NewAuthService(client, sessionSvc, func(p models.Principal) {
		recipient := notifications.RecipientOf(p)
		stack.Poller.Remove(recipient)
		manager.Forget(recipient)
		hub.Disconnect(recipient.Key())
	})
	if err != nil {
		return nil, err
	}

	employeeSvc, err := services.NewEmployeeService(client, engine)
	if err != nil {
		return nil, err
	}
	hrSvc, err := services.NewHRService(client, engine)
	if err != nil {
		return nil, err
	}
	agentSvc, err := services.NewAgentService(client)
	if err != nil {
		return nil, err
	}
	adminSvc, err := services.NewAdminService(client, dbStore, cfg.Cache.DirectoryTTL)
	if err != nil {
		return nil, err
	}
	fraudSvc, err := services.NewFraudService(client)
	if err != nil {
		return nil, err
	}
	reportSvc, err := services.NewReportService(stack.DB, engine, services.ReportSources{
		Employee: employeeSvc,
		HR:       hrSvc,
		Agent:    agentSvc,
		Admin:    adminSvc,
		Fraud:    fraudSvc,
	}, cfg.Reports.HistoryLimit)
	if err != nil {
		return nil, err
	}

	stack.Cleaner = maintenance.NewCleaner(sessionSvc,
		maintenance.WithCache(dbStore),
		maintenance.WithReports(reportSvc),
		maintenance.WithSchedule(cfg.Maintenance.Schedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	guard, err := iauth.NewGuard()
	if err != nil {
		return nil, err
	}

	health := monitoring.NewHealthManager(0)
	health.RegisterLiveness(checks.Maintenance(stack.Cleaner, 0))
	health.RegisterReadiness(checks.Database(stack.DB))
	health.RegisterReadiness(checks.Backend(client))

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:        cfg,
		Sessions:      sessionSvc,
		Guard:         guard,
		RateStore:     middleware.NewDatabaseRateStore(dbStore),
		Health:        health,
		Auth:          authSvc,
		Employee:      employeeSvc,
		HR:            hrSvc,
		Agent:         agentSvc,
		Admin:         adminSvc,
		Fraud:         fraudSvc,
		Reports:       reportSvc,
		Notifications: manager,
		Poller:        stack.Poller,
		Hub:           hub,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Poller != nil {
		if err := s.Poller.Stop(ctx); err != nil {
			log.Warn("notification poller shutdown", zap.Error(err))
		}
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// persistGeneratedSecrets swaps secrets generated for this start for the ones
// stored on first start, so sessions survive restarts. Configured secrets win.
func persistGeneratedSecrets(ctx context.Context, db *gorm.DB, cfg *app.Config, generated map[string]bool) error {
	if generated[app.GeneratedJWTSecret] {
		secret, err := database.ResolveSetting(ctx, db, database.JWTSecretSetting, cfg.Auth.JWT.Secret)
		if err != nil {
			return fmt.Errorf("persist jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
	}
	if generated[app.GeneratedSealingKey] {
		key, err := database.ResolveSetting(ctx, db, database.SealingKeySetting, cfg.Auth.Session.SealingKey)
		if err != nil {
			return fmt.Errorf("persist session sealing key: %w", err)
		}
		cfg.Auth.Session.SealingKey = key
	}
	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		applyHostAuth(&dbCfg, cfg.Database.Postgres)
	case "mysql":
		applyHostAuth(&dbCfg, cfg.Database.MySQL)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func applyHostAuth(dbCfg *database.Config, auth app.DBAuthConfig) {
	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = strings.TrimSpace(auth.Password)
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
