package routes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kudifi/kudifi/internal/account"
	"github.com/kudifi/kudifi/internal/config"
	"github.com/kudifi/kudifi/internal/engine"
	"github.com/kudifi/kudifi/internal/middleware"
	"github.com/kudifi/kudifi/internal/notification"
	"github.com/kudifi/kudifi/internal/pin"
	"github.com/kudifi/kudifi/internal/price"
	"github.com/kudifi/kudifi/internal/purchase"
	"github.com/kudifi/kudifi/internal/transfer"
	"github.com/kudifi/kudifi/internal/ussd"
)

// Deps aggregates shared dependencies required to wire routes. Everything is
// constructed once here and injected; no package-level client handles exist.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Postgres and Redis are hard requirements outside dev, even though main
	// also checks: memory repositories are for tests and local hacking only.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	var accountRepo account.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
	}
	var purchaseRepo purchase.Repository
	if d.DB != nil {
		purchaseRepo = purchase.NewPostgresRepository(d.DB)
	} else {
		purchaseRepo = purchase.NewMemoryRepository()
	}

	engineClient := engine.NewHTTPClient(d.Cfg.EngineBaseURL, d.Cfg.EngineSecretKey, d.Cfg.EngineVaultAccessToken)
	oracle := price.NewHTTPOracle(d.Cache)
	notifier := notification.NewLoggerNotifier(d.Logger)
	guard := pin.NewGuard(accountRepo, d.Cache, d.Cfg.PINMaxAttempts, d.Cfg.PINLockoutWindow)
	transferSvc := transfer.NewService(engineClient, accountRepo, purchaseRepo, d.Cache, notifier, d.Cfg.MaxTransferAmount)
	dispatcher := ussd.NewDispatcher(accountRepo, guard, transferSvc, oracle, d.Logger, d.Cfg.CountryCode, d.Cfg.DonationAddress)
	handler := ussd.NewHandler(dispatcher, d.Logger)

	app.Get("/", handler.Greeting)
	app.Post("/", handler.Serve)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
