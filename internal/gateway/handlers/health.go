package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// LivenessProbe проверяет, что приложение работает
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe считает шлюз готовым, когда готов Viewer Service.
func ReadinessProbe(viewerURL string) fiber.Handler {
	url := strings.TrimRight(viewerURL, "/") + "/health/ready"
	return func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"status": "error"})
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "viewer unreachable"})
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "viewer not ready"})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	}
}

// StartupProbe проверяет, что приложение успешно запустилось
func StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "started",
	})
}
