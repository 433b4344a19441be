package docs

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Swagger Handlers
// ============================================================

// Spec отдаёт OpenAPI YAML из файла specPath.
func Spec(specPath string) fiber.Handler {
	return func(c fiber.Ctx) error {
		data, err := os.ReadFile(specPath)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "spec not found"})
		}
		c.Type("yaml")
		return c.Send(data)
	}
}

// UI отдаёт страницу Swagger UI, читающую spec по адресу specURL.
func UI(title, specURL string) fiber.Handler {
	page := fmt.Sprintf(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>%s</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: '%s',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
    });
  };
</script>
</body>
</html>`, title, specURL)

	return func(c fiber.Ctx) error {
		c.Type("html")
		return c.SendString(page)
	}
}
