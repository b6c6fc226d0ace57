package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RegisterHealthRoutes adds the platform readiness probe. The gateway is only
// as healthy as its record store and its counter cache; the wallet engine and
// price oracle are exercised lazily per callback and stay out of readiness.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := map[string]string{
			"postgres": checkPostgres(ctx, d.DB),
			"redis":    checkRedis(ctx, d.Cache),
		}

		status := http.StatusOK
		overall := "ok"
		for _, result := range checks {
			if result != "ok" && result != "skipped" {
				status = http.StatusServiceUnavailable
				overall = "degraded"
			}
		}

		return c.Status(status).JSON(fiber.Map{
			"status":    overall,
			"checks":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// checkPostgres pings the record store. A nil pool means the process runs on
// memory repositories (dev only) and the check is skipped, not failed.
func checkPostgres(ctx context.Context, db *pgxpool.Pool) string {
	if db == nil {
		return "skipped"
	}
	if err := db.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

// checkRedis pings the counter cache holding PIN retry counters and confirm
// locks.
func checkRedis(ctx context.Context, cache *redis.Client) string {
	if cache == nil {
		return "skipped"
	}
	if err := cache.Ping(ctx).Err(); err != nil {
		return err.Error()
	}
	return "ok"
}
