package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"

	"building-viewer/internal/viewer/asset"
	"building-viewer/internal/viewer/floors"
	"building-viewer/internal/viewer/indexer"
	"building-viewer/internal/viewer/models"
	"building-viewer/internal/viewer/panorama"
	"building-viewer/internal/viewer/picker"
	"building-viewer/internal/viewer/session"
	"building-viewer/internal/viewer/storage"
)

// ============================================================
// Viewer Handler
// ============================================================

type ViewerHandler struct {
	sessions  *session.Manager
	library   *asset.Library
	schema    indexer.Schema
	panoramas *storage.FileStorage
}

func NewViewerHandler(sessions *session.Manager, library *asset.Library, schema indexer.Schema, panoramas *storage.FileStorage) *ViewerHandler {
	return &ViewerHandler{
		sessions:  sessions,
		library:   library,
		schema:    schema,
		panoramas: panoramas,
	}
}

// Register вешает все маршруты сервиса на router.
func (h *ViewerHandler) Register(r fiber.Router) {
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
	r.Get("/health/startup", h.Ready)

	r.Get("/asset", h.GetAsset)
	r.Get("/diagnostics", h.GetDiagnostics)
	r.Get("/panorama/*", h.GetPanorama)

	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/:id", h.GetSession)
	r.Delete("/sessions/:id", h.DeleteSession)
	r.Post("/sessions/:id/floors/:floor", h.SelectFloor)
	r.Post("/sessions/:id/click", h.Click)
	r.Post("/sessions/:id/panorama", h.OpenPanorama)
	r.Delete("/sessions/:id/panorama", h.ClosePanorama)
	r.Put("/sessions/:id/panorama/camera", h.SetPanoramaCamera)
	r.Post("/sessions/:id/panorama/auto-rotate", h.ToggleAutoRotate)
	r.Post("/sessions/:id/panorama/views", h.SaveView)
	r.Put("/sessions/:id/camera", h.SetMainCamera)
	r.Post("/sessions/:id/camera/reset", h.ResetMainCamera)
}

type clickRequest struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

type openRequest struct {
	Path    string `json:"path"`
	Hotspot string `json:"hotspot"`
}

type clickResponse struct {
	Hit     bool                   `json:"hit"`
	Hotspot *models.HotspotInfo    `json:"hotspot,omitempty"`
	Session models.SessionSnapshot `json:"session"`
}

// floorResponse: неизвестный этаж не ошибка, а changed=false.
type floorResponse struct {
	models.SessionSnapshot
	Changed bool `json:"changed"`
}

type diagnosticsResponse struct {
	Asset       string               `json:"asset"`
	LoadedAt    string               `json:"loaded_at,omitempty"`
	Required    []string             `json:"required"`
	Valid       bool                 `json:"valid"`
	Diagnostics []models.Diagnostic  `json:"diagnostics"`
	Hotspots    []models.HotspotInfo `json:"hotspots"`
}

// ============================================================
// Health
// ============================================================

func (h *ViewerHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// Ready: сервис готов, когда ассет загружен.
func (h *ViewerHandler) Ready(c fiber.Ctx) error {
	if !h.library.Loaded() {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "loading"})
	}
	return c.JSON(fiber.Map{"status": "ready", "sessions": h.sessions.Len()})
}

// ============================================================
// Static resources
// ============================================================

func (h *ViewerHandler) GetAsset(c fiber.Ctx) error {
	path := h.library.Path()
	if path == "" || !h.library.Loaded() {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "asset not loaded"})
	}
	if _, err := os.Stat(path); err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "asset not found"})
	}
	c.Set("Content-Type", "model/gltf-binary")
	return c.SendFile(path)
}

// GetDiagnostics проверяет текущий ассет по схеме на свежем дереве.
func (h *ViewerHandler) GetDiagnostics(c fiber.Ctx) error {
	tree, err := h.library.NewTree()
	if err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	ix := indexer.Build(tree, h.schema)

	resp := diagnosticsResponse{
		Asset:       h.library.Path(),
		Required:    h.schema.Required(),
		Valid:       !ix.HasErrors(),
		Diagnostics: ix.Diagnostics,
		Hotspots:    ix.HotspotList(),
	}
	// Картинки проверяются здесь, индексатор про диск не знает.
	for _, hs := range resp.Hotspots {
		if !h.panoramas.Exists(hs.PanoramaPath) {
			resp.Diagnostics = append(resp.Diagnostics, models.Diagnostic{
				Severity: models.SeverityWarning,
				Code:     models.CodeMissingPanorama,
				Node:     hs.Name,
				Message:  fmt.Sprintf("panorama %s not found under %s", hs.PanoramaPath, h.panoramas.Root()),
			})
		}
	}
	if at := h.library.LoadedAt(); !at.IsZero() {
		resp.LoadedAt = at.UTC().Format(time.RFC3339)
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []models.Diagnostic{}
	}
	return c.JSON(resp)
}

// GetPanorama отдаёт картинку панорамы после проверки формата.
func (h *ViewerHandler) GetPanorama(c fiber.Ctx) error {
	rel := "panorama/" + c.Params("*")
	tex, err := h.panoramas.Load(context.Background(), rel)
	if err != nil {
		return writeError(c, err)
	}
	full, err := h.panoramas.Resolve(rel)
	if err != nil {
		return writeError(c, err)
	}
	c.Set("Content-Type", tex.MIME)
	return c.SendFile(full)
}

// ============================================================
// Sessions
// ============================================================

func (h *ViewerHandler) CreateSession(c fiber.Ctx) error {
	s, err := h.sessions.Create()
	if err != nil {
		log.Printf("[VIEWER] Create session error: %v", err)
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(s.Snapshot())
}

func (h *ViewerHandler) GetSession(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(s.Snapshot())
}

func (h *ViewerHandler) DeleteSession(c fiber.Ctx) error {
	if err := h.sessions.Delete(c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"status": "closed"})
}

func (h *ViewerHandler) SelectFloor(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	changed := true
	if err := s.SelectFloor(c.Params("floor")); err != nil {
		if !errors.Is(err, floors.ErrUnknownFloor) {
			return writeError(c, err)
		}
		changed = false
	}
	return c.JSON(floorResponse{SessionSnapshot: s.Snapshot(), Changed: changed})
}

// Click: координаты в NDC, либо в пикселях, если переданы размеры окна.
func (h *ViewerHandler) Click(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	var req clickRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	var info models.HotspotInfo
	if req.Width > 0 && req.Height > 0 {
		info, err = s.ClickViewport(context.Background(), req.X, req.Y, req.Width, req.Height)
	} else {
		info, err = s.Click(context.Background(), req.X, req.Y)
	}

	switch {
	case errors.Is(err, picker.ErrNoHotspot):
		return c.JSON(clickResponse{Hit: false, Session: s.Snapshot()})
	case err != nil:
		return writeError(c, err)
	}
	return c.JSON(clickResponse{Hit: true, Hotspot: &info, Session: s.Snapshot()})
}

func (h *ViewerHandler) OpenPanorama(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	var req openRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	if req.Hotspot != "" {
		_, err = s.OpenHotspot(context.Background(), req.Hotspot)
	} else {
		err = s.OpenPanorama(context.Background(), req.Path)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(s.Snapshot().Panorama)
}

func (h *ViewerHandler) ClosePanorama(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if err := s.ClosePanorama(); err != nil {
		return writeError(c, err)
	}
	return c.JSON(s.Snapshot())
}

func (h *ViewerHandler) SetPanoramaCamera(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	var pose models.Pose
	if err := json.Unmarshal(c.Body(), &pose); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if err := s.SetPanoramaCamera(pose); err != nil {
		return writeError(c, err)
	}
	return c.JSON(pose)
}

func (h *ViewerHandler) ToggleAutoRotate(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	on, label, err := s.ToggleAutoRotate()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"auto_rotate": on, "label": label})
}

func (h *ViewerHandler) SaveView(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	view, err := s.SaveView(context.Background())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

func (h *ViewerHandler) SetMainCamera(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	var pose models.Pose
	if err := json.Unmarshal(c.Body(), &pose); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if err := s.SetMainCamera(pose); err != nil {
		return writeError(c, err)
	}
	return c.JSON(pose)
}

func (h *ViewerHandler) ResetMainCamera(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	pose, err := s.ResetMainCamera()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(pose)
}

// ============================================================
// Errors
// ============================================================

// writeError переводит доменные ошибки в HTTP-статусы.
func writeError(c fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, picker.ErrNoHotspot):
		status = http.StatusNotFound
	case errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrOutsideRoot):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotImage):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, panorama.ErrNotOpen),
		errors.Is(err, panorama.ErrSuperseded),
		errors.Is(err, session.ErrMainInputDisabled):
		status = http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		status = http.StatusGone
	case errors.Is(err, asset.ErrNoScene):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
