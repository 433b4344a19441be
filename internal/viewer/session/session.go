package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"cogentcore.org/core/math32"

	"building-viewer/internal/viewer/asset"
	"building-viewer/internal/viewer/floors"
	"building-viewer/internal/viewer/indexer"
	"building-viewer/internal/viewer/models"
	"building-viewer/internal/viewer/panorama"
	"building-viewer/internal/viewer/picker"
	"building-viewer/internal/viewer/scene"
	"building-viewer/internal/viewer/views"
)

// ============================================================
// Viewer Session
// ============================================================

var (
	ErrClosed            = errors.New("session closed")
	ErrMainInputDisabled = errors.New("main scene input is disabled while a panorama is open")
)

type Loop string

const (
	LoopMain     Loop = "main"
	LoopPanorama Loop = "panorama"
)

const mainFOV = 60

// ResetPose - поза кнопки «Reset View»: вид сверху.
var ResetPose = models.Pose{
	Position: models.Vec3{X: 0, Y: 1.28, Z: 0},
	Rotation: models.Vec3{X: -90 * math32.DegToRadFactor, Y: 0, Z: 0.05 * math32.DegToRadFactor},
}

func mainControls(target math32.Vector3) models.OrbitControls {
	return models.OrbitControls{
		EnableRotate:  false,
		EnableZoom:    true,
		EnablePan:     true,
		EnableDamping: true,
		DampingFactor: 0.05,
		Target:        models.FromVector3(target),
	}
}

// Deps - всё, что сессия получает снаружи.
type Deps struct {
	Library  *asset.Library
	Schema   indexer.Schema
	Textures panorama.TextureLoader
	// Views == nil - сохранённые виды живут в памяти сессии.
	Views       views.Store
	LoadTimeout time.Duration
}

// Session владеет всем состоянием одного просмотра: деревом сцены,
// индексом чекпоинтов, этажами, основной камерой и панорамой.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	schema   indexer.Schema
	root     *scene.Node
	index    *indexer.Index
	floors   *floors.Switcher
	picker   *picker.Picker
	camera   *scene.Camera
	target   math32.Vector3
	closed   bool
	mainTick uint64
	panoTick uint64

	controlsEnabled atomic.Bool
	panorama        *panorama.Viewer
}

func New(id string, deps Deps) (*Session, error) {
	if deps.Library == nil {
		return nil, fmt.Errorf("session %s: %w", id, asset.ErrNoScene)
	}
	tree, err := deps.Library.NewTree()
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	store := deps.Views
	if store == nil {
		store = views.NewMemoryStore()
	}

	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		schema:    deps.Schema,
		camera:    scene.NewPerspectiveCamera(mainFOV, 1, 0.1, 1000),
	}
	s.controlsEnabled.Store(true)
	s.panorama = panorama.New(deps.Textures, store, s.controlsEnabled.Store)
	s.panorama.SetLoadTimeout(deps.LoadTimeout)

	s.build(tree, "")
	log.Printf("[SESSION] %s created: %d hotspots, floor %s", id, len(s.index.Hotspots), s.floors.Current())
	return s, nil
}

// build индексирует дерево, кадрирует камеру по модели и выбирает этаж.
func (s *Session) build(tree *scene.Node, floor string) {
	s.root = tree
	s.index = indexer.Build(tree, s.schema)
	s.floors = floors.New(s.schema.Floors, s.index.Floors, s.schema.FloorFolder)
	s.picker = picker.New(s.index)
	s.target = s.camera.Frame(tree.SubtreeBounds())

	if floor != "" && floor != s.floors.Current() {
		if err := s.floors.Select(floor); err != nil {
			log.Printf("[SESSION] %s: previous floor lost after rebuild: %v", s.ID, err)
		}
	}
}

// Rebuild пересобирает сцену из свежего документа библиотеки, сохраняя
// выбранный этаж. Панорама не трогается.
func (s *Session) Rebuild(lib *asset.Library) error {
	tree, err := lib.NewTree()
	if err != nil {
		return fmt.Errorf("rebuild session %s: %w", s.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.build(tree, s.floors.Current())
	log.Printf("[SESSION] %s rebuilt: %d hotspots", s.ID, len(s.index.Hotspots))
	return nil
}

// SelectFloor принимает имя этажа ("Floor_02") или его номер ("2").
func (s *Session) SelectFloor(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if n, err := strconv.Atoi(ref); err == nil {
		return s.floors.SelectNumber(n)
	}
	return s.floors.Select(ref)
}

// Click обрабатывает клик по основной сцене в NDC и открывает панораму
// найденного чекпоинта.
func (s *Session) Click(ctx context.Context, x, y float32) (models.HotspotInfo, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.HotspotInfo{}, ErrClosed
	}
	if !s.controlsEnabled.Load() {
		s.mu.Unlock()
		return models.HotspotInfo{}, ErrMainInputDisabled
	}
	h, err := s.picker.Pick(x, y, s.camera)
	if err != nil {
		s.mu.Unlock()
		return models.HotspotInfo{}, err
	}
	info := h.Info()
	s.mu.Unlock()

	log.Printf("[SESSION] Checkpoint %s clicked! Opening panorama...", info.Name)
	return info, s.panorama.Open(ctx, info.PanoramaPath)
}

// ClickViewport - Click в пикселях окна клиента.
func (s *Session) ClickViewport(ctx context.Context, px, py, width, height float32) (models.HotspotInfo, error) {
	x, y := picker.ToNDC(px, py, width, height)
	return s.Click(ctx, x, y)
}

// OpenHotspot открывает панораму чекпоинта по имени узла.
func (s *Session) OpenHotspot(ctx context.Context, name string) (models.HotspotInfo, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.HotspotInfo{}, ErrClosed
	}
	h, ok := s.index.Hotspot(name)
	if !ok {
		s.mu.Unlock()
		log.Printf("[SESSION] Hotspot not found: %s", name)
		return models.HotspotInfo{}, fmt.Errorf("%w: %s", picker.ErrNoHotspot, name)
	}
	info := h.Info()
	s.mu.Unlock()

	return info, s.panorama.Open(ctx, info.PanoramaPath)
}

func (s *Session) OpenPanorama(ctx context.Context, imagePath string) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.panorama.Open(ctx, imagePath)
}

func (s *Session) ClosePanorama() error {
	if s.isClosed() {
		return ErrClosed
	}
	s.panorama.Close()
	return nil
}

func (s *Session) ToggleAutoRotate() (bool, string, error) {
	if s.isClosed() {
		return false, "", ErrClosed
	}
	return s.panorama.ToggleAutoRotate()
}

func (s *Session) SaveView(ctx context.Context) (models.SavedView, error) {
	if s.isClosed() {
		return models.SavedView{}, ErrClosed
	}
	return s.panorama.SaveView(ctx)
}

func (s *Session) SetPanoramaCamera(pose models.Pose) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.panorama.SetCamera(pose)
}

// SetMainCamera принимает позу основной камеры от контролов клиента.
func (s *Session) SetMainCamera(pose models.Pose) error {
	if !s.controlsEnabled.Load() {
		return ErrMainInputDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.camera.Pose = pose
	return nil
}

func (s *Session) ResetMainCamera() (models.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.Pose{}, ErrClosed
	}

	s.camera.Pose = ResetPose
	return s.camera.Pose, nil
}

// ActiveLoop - какой из двух циклов отрисовки сейчас работает.
func (s *Session) ActiveLoop() Loop {
	if s.panorama.IsOpen() {
		return LoopPanorama
	}
	return LoopMain
}

// Tick продвигает ровно один цикл: панорамный, если панорама открыта,
// иначе основной.
func (s *Session) Tick(dt time.Duration) Loop {
	if s.panorama.Tick(dt) {
		s.mu.Lock()
		s.panoTick++
		s.mu.Unlock()
		return LoopPanorama
	}

	s.mu.Lock()
	s.mainTick++
	s.mu.Unlock()
	return LoopMain
}

// Frames возвращает число кадров основного и панорамного циклов.
func (s *Session) Frames() (main, pano uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mainTick, s.panoTick
}

func (s *Session) Snapshot() models.SessionSnapshot {
	loop := s.ActiveLoop()
	pano := s.panorama.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	return models.SessionSnapshot{
		ID:           s.ID,
		CurrentFloor: s.floors.Current(),
		Floors:       s.floors.Floors(),
		Hotspots:     s.index.HotspotList(),
		Camera: models.CameraSnapshot{
			Pose:            s.camera.Pose,
			FOV:             s.camera.FOV,
			ControlsEnabled: s.controlsEnabled.Load(),
			Controls:        mainControls(s.target),
		},
		Panorama:   pano,
		ActiveLoop: string(loop),
		CreatedAt:  s.CreatedAt,
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close отменяет загрузки и отпускает дерево сцены.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.panorama.Close()
	log.Printf("[SESSION] %s closed", s.ID)
}
