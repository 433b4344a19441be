package panorama

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cogentcore.org/core/math32"

	"building-viewer/internal/viewer/models"
	"building-viewer/internal/viewer/scene"
	"building-viewer/internal/viewer/storage"
	"building-viewer/internal/viewer/views"
)

// ============================================================
// Panorama Viewer
// ============================================================

type State string

const (
	StateClosed  State = "closed"
	StateLoading State = "loading"
	StateOpen    State = "open"
)

const (
	DefaultImage = "panorama/floor1/Panorama1.png"

	SphereName   = "panorama_sphere"
	SphereRadius = 500

	LabelAutoRotate = "Auto Rotate"
	LabelStopRotate = "Stop Rotation"
)

var (
	ErrNotOpen    = errors.New("panorama is not open")
	ErrSuperseded = errors.New("panorama load superseded by a newer request")
)

// TextureLoader достаёт картинку панорамы. Реализация - storage.FileStorage.
type TextureLoader interface {
	Load(ctx context.Context, path string) (storage.Texture, error)
}

func DefaultControls() models.OrbitControls {
	return models.OrbitControls{
		EnableRotate:    true,
		EnableZoom:      true,
		EnablePan:       false,
		EnableDamping:   true,
		DampingFactor:   0.1,
		MinDistance:     1,
		MaxDistance:     100,
		RotateSpeed:     1,
		ZoomSpeed:       1.2,
		AutoRotateSpeed: 1,
	}
}

// Surface - отдельная сцена панорамы со своей камерой. Создаётся один раз
// и переиспользуется всеми последующими открытиями.
type Surface struct {
	Root     *scene.Node
	Camera   *scene.Camera
	Controls models.OrbitControls
}

func newSurface() *Surface {
	return &Surface{
		Root:     scene.NewGroup("PanoramaScene"),
		Camera:   scene.NewPerspectiveCamera(75, 1, 0.1, 1000),
		Controls: DefaultControls(),
	}
}

func (s *Surface) spheres() int {
	return s.Root.Count(func(n *scene.Node) bool { return n.Kind == scene.KindSphere })
}

type Viewer struct {
	mu sync.Mutex

	loader      TextureLoader
	views       views.Store
	mainInput   func(enabled bool)
	loadTimeout time.Duration

	surface   *Surface
	state     State
	imagePath string
	texture   storage.Texture

	token  uint64
	cancel context.CancelFunc
}

// New создаёт закрытый вьюер. mainInput вызывается при смене доступности
// управления основной сценой и не должен обращаться к самому вьюеру.
func New(loader TextureLoader, store views.Store, mainInput func(enabled bool)) *Viewer {
	if mainInput == nil {
		mainInput = func(bool) {}
	}
	if store == nil {
		store = views.NewMemoryStore()
	}
	return &Viewer{
		loader:    loader,
		views:     store,
		mainInput: mainInput,
		state:     StateClosed,
	}
}

// SetLoadTimeout ограничивает время загрузки одной картинки; 0 - без лимита.
func (v *Viewer) SetLoadTimeout(d time.Duration) {
	v.mu.Lock()
	v.loadTimeout = d
	v.mu.Unlock()
}

// Open загружает панораму. Новый вызов отменяет незавершённую загрузку,
// а её результат отбрасывается с ErrSuperseded.
func (v *Viewer) Open(ctx context.Context, imagePath string) error {
	if imagePath == "" {
		imagePath = DefaultImage
	}

	v.mu.Lock()
	if v.surface == nil {
		v.surface = newSurface()
		log.Printf("[PANORAMA] Surface initialized")
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.token++
	token := v.token

	var loadCtx context.Context
	var cancel context.CancelFunc
	if v.loadTimeout > 0 {
		loadCtx, cancel = context.WithTimeout(ctx, v.loadTimeout)
	} else {
		loadCtx, cancel = context.WithCancel(ctx)
	}
	v.cancel = cancel

	v.surface.Root.Clear()
	v.texture = storage.Texture{}
	v.imagePath = imagePath
	v.state = StateLoading
	v.mu.Unlock()

	log.Printf("[PANORAMA] Opening panorama with path: %s", imagePath)
	tex, loadErr := v.loader.Load(loadCtx, imagePath)

	v.mu.Lock()
	defer v.mu.Unlock()

	if token != v.token {
		log.Printf("[PANORAMA] Dropping stale load of %s", imagePath)
		return ErrSuperseded
	}
	cancel()
	v.cancel = nil

	if loadErr != nil {
		log.Printf("[PANORAMA] Error loading panorama %s: %v", imagePath, loadErr)
		v.closeLocked()
		return fmt.Errorf("load panorama %s: %w", imagePath, loadErr)
	}

	sphere := scene.NewSphere(SphereName, SphereRadius)
	sphere.Scale = math32.Vec3(-1, 1, 1)
	sphere.Material = scene.TextureMaterial(imagePath)
	v.surface.Root.Add(sphere)
	v.texture = tex

	pose := models.Pose{}
	saved, ok, err := v.views.Get(ctx, imagePath)
	switch {
	case err != nil:
		log.Printf("[PANORAMA] Failed to read saved view for %s: %v", imagePath, err)
	case ok:
		pose = saved.Pose
		log.Printf("[PANORAMA] Applied saved default view for %s", imagePath)
	}
	v.surface.Camera.Pose = pose

	v.surface.Controls.AutoRotate = false
	v.surface.Controls.AutoRotateSpeed = 1
	v.state = StateOpen
	v.mainInput(false)
	return nil
}

// Close прячет панораму и возвращает управление основной сцене.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	// незавершённая загрузка больше не актуальна
	v.token++
	v.closeLocked()
}

func (v *Viewer) closeLocked() {
	v.state = StateClosed
	v.mainInput(true)
}

func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Viewer) IsOpen() bool {
	return v.State() == StateOpen
}

// SetCamera принимает текущую позу камеры от клиента.
func (v *Viewer) SetCamera(pose models.Pose) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateOpen {
		return ErrNotOpen
	}
	v.surface.Camera.Pose = pose
	return nil
}

// SaveView перезаписывает сохранённый вид открытой картинки текущей позой.
func (v *Viewer) SaveView(ctx context.Context) (models.SavedView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateOpen {
		return models.SavedView{}, ErrNotOpen
	}

	view := models.SavedView{
		ImagePath: v.imagePath,
		Pose:      v.surface.Camera.Pose,
		SavedAt:   time.Now().UTC(),
	}
	if err := v.views.Put(ctx, view); err != nil {
		return models.SavedView{}, fmt.Errorf("save view: %w", err)
	}

	p, r := view.Pose.Position, view.Pose.RotationDegrees()
	log.Printf("[PANORAMA] Default view saved for %s | Position: %.2f %.2f %.2f | Rotation: %.2f° %.2f° %.2f°",
		view.ImagePath, p.X, p.Y, p.Z, r.X, r.Y, r.Z)
	return view, nil
}

// ToggleAutoRotate переключает автоповорот и возвращает новую подпись кнопки.
func (v *Viewer) ToggleAutoRotate() (bool, string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateOpen {
		return false, LabelAutoRotate, ErrNotOpen
	}
	v.surface.Controls.AutoRotate = !v.surface.Controls.AutoRotate
	return v.surface.Controls.AutoRotate, rotateLabel(v.surface.Controls.AutoRotate), nil
}

func rotateLabel(on bool) string {
	if on {
		return LabelStopRotate
	}
	return LabelAutoRotate
}

// Tick - кадр цикла панорамы. При автоповороте камера обходит центр по
// рысканию: полный оборот за 60 секунд при скорости 1.
func (v *Viewer) Tick(dt time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateOpen {
		return false
	}
	c := v.surface.Controls
	if !c.AutoRotate || dt <= 0 {
		return true
	}

	angle := 2 * math32.Pi / 60 * c.AutoRotateSpeed * float32(dt.Seconds())
	pose := &v.surface.Camera.Pose
	sin, cos := math32.Sincos(angle)
	x, z := pose.Position.X, pose.Position.Z
	pose.Position.X = x*cos - z*sin
	pose.Position.Z = x*sin + z*cos
	pose.Rotation.Y = wrapAngle(pose.Rotation.Y - angle)
	return true
}

func wrapAngle(a float32) float32 {
	for a > math32.Pi {
		a -= 2 * math32.Pi
	}
	for a <= -math32.Pi {
		a += 2 * math32.Pi
	}
	return a
}

func (v *Viewer) Texture() storage.Texture {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.texture
}

func (v *Viewer) Controls() models.OrbitControls {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.surface == nil {
		return DefaultControls()
	}
	return v.surface.Controls
}

func (v *Viewer) Snapshot() models.PanoramaSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := models.PanoramaSnapshot{
		State:       string(v.state),
		RotateLabel: LabelAutoRotate,
	}
	if v.state != StateClosed {
		snap.ImagePath = v.imagePath
	}
	if v.surface != nil {
		snap.Pose = v.surface.Camera.Pose
		snap.AutoRotate = v.surface.Controls.AutoRotate
		snap.RotateLabel = rotateLabel(v.surface.Controls.AutoRotate)
		snap.Spheres = v.surface.spheres()
		snap.Controls = v.surface.Controls
	} else {
		snap.Controls = DefaultControls()
	}
	if v.state == StateOpen {
		snap.Width, snap.Height = v.texture.Width, v.texture.Height
	}
	return snap
}
