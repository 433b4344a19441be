package proxy

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Proxy Handler
// ============================================================

var client = &http.Client{Timeout: 60 * time.Second}

// hopHeaders не пробрасываются ни в одну сторону.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Content-Length":    true,
}

// ProxyTo прокси запрос к фиксированному URL другого сервиса.
func ProxyTo(targetURL string) fiber.Handler {
	return func(c fiber.Ctx) error {
		return Forward(c, targetURL)
	}
}

// Prefix проксирует всё под маршрутом с wildcard: /api/v1/* → baseURL/*,
// сохраняя query string.
func Prefix(baseURL string) fiber.Handler {
	base := strings.TrimRight(baseURL, "/")
	return func(c fiber.Ctx) error {
		target := base + "/" + strings.TrimLeft(c.Params("*"), "/")
		if qs := string(c.Request().URI().QueryString()); qs != "" {
			target += "?" + qs
		}
		return Forward(c, target)
	}
}

// Forward проксирует запрос по переданному URL.
func Forward(c fiber.Ctx, targetURL string) error {
	log.Printf("[PROXY] Request: %s %s", c.Method(), c.Path())
	log.Printf("[PROXY] Forwarding to: %s", targetURL)

	req, err := http.NewRequest(c.Method(), targetURL, bytes.NewReader(c.Body()))
	if err != nil {
		log.Printf("[PROXY] build request error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "proxy failed"})
	}

	if contentType := c.Get("Content-Type"); contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept := c.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("[PROXY] Error: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "failed to reach upstream service"})
	}
	defer resp.Body.Close()

	return copyResponse(c, resp)
}

func copyResponse(c fiber.Ctx, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[PROXY] Read response error: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "invalid upstream response"})
	}

	for key, values := range resp.Header {
		if len(values) > 0 && !hopHeaders[key] {
			c.Set(key, values[0])
		}
	}

	c.Status(resp.StatusCode)
	return c.Send(data)
}
