package panorama

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"building-viewer/internal/viewer/models"
	"building-viewer/internal/viewer/storage"
	"building-viewer/internal/viewer/views"
)

var errMissing = errors.New("404")

// stubLoader отдаёт текстуру сразу, либо ждёт release для путей из gate.
type stubLoader struct {
	mu      sync.Mutex
	missing map[string]bool
	gate    map[string]chan struct{}
	started chan string
}

func newStubLoader() *stubLoader {
	return &stubLoader{
		missing: map[string]bool{},
		gate:    map[string]chan struct{}{},
		started: make(chan string, 8),
	}
}

func (l *stubLoader) hold(path string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan struct{})
	l.gate[path] = ch
	return ch
}

func (l *stubLoader) Load(ctx context.Context, path string) (storage.Texture, error) {
	l.mu.Lock()
	gate := l.gate[path]
	missing := l.missing[path]
	l.mu.Unlock()

	l.started <- path
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return storage.Texture{}, ctx.Err()
		}
	}
	if missing {
		return storage.Texture{}, errMissing
	}
	return storage.Texture{Path: path, MIME: "image/png", Width: 4096, Height: 2048}, nil
}

type harness struct {
	loader    *stubLoader
	store     *views.MemoryStore
	viewer    *Viewer
	mainInput atomic.Bool
}

func newHarness() *harness {
	h := &harness{loader: newStubLoader(), store: views.NewMemoryStore()}
	h.mainInput.Store(true)
	h.viewer = New(h.loader, h.store, func(enabled bool) { h.mainInput.Store(enabled) })
	return h
}

func TestNewViewerIsClosedAndLazy(t *testing.T) {
	h := newHarness()
	assert.Equal(t, StateClosed, h.viewer.State())
	assert.Nil(t, h.viewer.surface)

	snap := h.viewer.Snapshot()
	assert.Equal(t, "closed", snap.State)
	assert.Equal(t, LabelAutoRotate, snap.RotateLabel)
	assert.Zero(t, snap.Spheres)
}

func TestOpenShowsSphereAndDisablesMainInput(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.viewer.Open(context.Background(), "panorama/floor1/Panorama7.png"))

	assert.Equal(t, StateOpen, h.viewer.State())
	assert.False(t, h.mainInput.Load())

	snap := h.viewer.Snapshot()
	assert.Equal(t, "panorama/floor1/Panorama7.png", snap.ImagePath)
	assert.Equal(t, 1, snap.Spheres)
	assert.Equal(t, models.Pose{}, snap.Pose)
	assert.Equal(t, 4096, h.viewer.Texture().Width)

	sphere := h.viewer.surface.Root.Find(SphereName)
	require.NotNil(t, sphere)
	assert.Equal(t, math32.Vec3(-1, 1, 1), sphere.Scale)
	assert.Equal(t, "panorama/floor1/Panorama7.png", sphere.Material.Texture)
	assert.InDelta(t, 75, h.viewer.surface.Camera.FOV, 1e-6)
}

func TestOpenEmptyPathUsesDefaultImage(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.viewer.Open(context.Background(), ""))
	assert.Equal(t, DefaultImage, h.viewer.Snapshot().ImagePath)
}

func TestReopenKeepsExactlyOneSphere(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.viewer.Open(ctx, "panorama/floor1/Panorama1.png"))
	surface := h.viewer.surface
	require.NoError(t, h.viewer.Open(ctx, "panorama/floor1/Panorama2.png"))
	require.NoError(t, h.viewer.Open(ctx, "panorama/floor2/Panorama3.png"))

	assert.Same(t, surface, h.viewer.surface)
	assert.Equal(t, 1, h.viewer.Snapshot().Spheres)
	assert.Equal(t, "panorama/floor2/Panorama3.png", h.viewer.surface.Root.Children[0].Material.Texture)
}

func TestSavedViewRoundTrip(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	path := "panorama/floor1/Panorama2.png"
	pose := models.Pose{
		Position: models.Vec3{X: 0.1, Y: -0.2, Z: 0.3},
		Rotation: models.Vec3{X: -0.25, Y: 1.5, Z: 0.01},
	}

	require.NoError(t, h.viewer.Open(ctx, path))
	require.NoError(t, h.viewer.SetCamera(pose))
	saved, err := h.viewer.SaveView(ctx)
	require.NoError(t, err)
	assert.Equal(t, path, saved.ImagePath)

	require.NoError(t, h.viewer.Open(ctx, "panorama/floor1/Panorama3.png"))
	assert.Equal(t, models.Pose{}, h.viewer.Snapshot().Pose)

	require.NoError(t, h.viewer.Open(ctx, path))
	got := h.viewer.Snapshot().Pose
	assert.InDelta(t, pose.Position.X, got.Position.X, 1e-6)
	assert.InDelta(t, pose.Position.Y, got.Position.Y, 1e-6)
	assert.InDelta(t, pose.Position.Z, got.Position.Z, 1e-6)
	assert.InDelta(t, pose.Rotation.X, got.Rotation.X, 1e-6)
	assert.InDelta(t, pose.Rotation.Y, got.Rotation.Y, 1e-6)
	assert.InDelta(t, pose.Rotation.Z, got.Rotation.Z, 1e-6)
}

func TestOperationsRequireOpenViewer(t *testing.T) {
	h := newHarness()

	_, err := h.viewer.SaveView(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, h.viewer.SetCamera(models.Pose{}), ErrNotOpen)
	_, _, err = h.viewer.ToggleAutoRotate()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.False(t, h.viewer.Tick(time.Second))
}

func TestToggleAutoRotateTwiceRestoresLabel(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.viewer.Open(context.Background(), "panorama/floor1/Panorama1.png"))
	before := h.viewer.Snapshot()

	on, label, err := h.viewer.ToggleAutoRotate()
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, LabelStopRotate, label)

	on, label, err = h.viewer.ToggleAutoRotate()
	require.NoError(t, err)
	assert.Equal(t, before.AutoRotate, on)
	assert.Equal(t, before.RotateLabel, label)
}

func TestOpenResetsAutoRotate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.viewer.Open(ctx, "panorama/floor1/Panorama1.png"))
	_, _, err := h.viewer.ToggleAutoRotate()
	require.NoError(t, err)

	require.NoError(t, h.viewer.Open(ctx, "panorama/floor1/Panorama2.png"))
	snap := h.viewer.Snapshot()
	assert.False(t, snap.AutoRotate)
	assert.Equal(t, LabelAutoRotate, snap.RotateLabel)
}

func TestTickOrbitsWhenAutoRotating(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.viewer.Open(context.Background(), "panorama/floor1/Panorama1.png"))
	require.NoError(t, h.viewer.SetCamera(models.Pose{Position: models.Vec3{Z: 1}}))

	assert.True(t, h.viewer.Tick(time.Second))
	assert.Zero(t, h.viewer.Snapshot().Pose.Rotation.Y)

	_, _, err := h.viewer.ToggleAutoRotate()
	require.NoError(t, err)
	require.True(t, h.viewer.Tick(15*time.Second))

	// четверть оборота
	pose := h.viewer.Snapshot().Pose
	assert.InDelta(t, -math32.Pi/2, pose.Rotation.Y, 1e-4)
	assert.InDelta(t, -1, pose.Position.X, 1e-4)
	assert.InDelta(t, 0, pose.Position.Z, 1e-4)
}

func TestImageFailureLeavesViewerClosed(t *testing.T) {
	h := newHarness()
	h.loader.missing["panorama/floor3/Panorama9.png"] = true

	err := h.viewer.Open(context.Background(), "panorama/floor3/Panorama9.png")
	assert.ErrorIs(t, err, errMissing)
	assert.Equal(t, StateClosed, h.viewer.State())
	assert.True(t, h.mainInput.Load())
	assert.Zero(t, h.viewer.Snapshot().Spheres)
}

func TestCloseEnablesMainInput(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.viewer.Open(context.Background(), "panorama/floor1/Panorama1.png"))
	require.False(t, h.mainInput.Load())

	h.viewer.Close()
	assert.Equal(t, StateClosed, h.viewer.State())
	assert.True(t, h.mainInput.Load())
	assert.Empty(t, h.viewer.Snapshot().ImagePath)
}

func TestNewerOpenSupersedesPendingLoad(t *testing.T) {
	h := newHarness()
	slow := "panorama/floor1/Panorama1.png"
	fast := "panorama/floor1/Panorama2.png"
	release := h.loader.hold(slow)
	defer close(release)

	firstErr := make(chan error, 1)
	go func() { firstErr <- h.viewer.Open(context.Background(), slow) }()
	require.Equal(t, slow, <-h.loader.started)
	assert.Equal(t, StateLoading, h.viewer.State())

	require.NoError(t, h.viewer.Open(context.Background(), fast))
	<-h.loader.started

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("superseded load did not return")
	}

	snap := h.viewer.Snapshot()
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, fast, snap.ImagePath)
	assert.Equal(t, 1, snap.Spheres)
}

func TestCloseCancelsPendingLoad(t *testing.T) {
	h := newHarness()
	path := "panorama/floor2/Panorama4.png"
	release := h.loader.hold(path)
	defer close(release)

	done := make(chan error, 1)
	go func() { done <- h.viewer.Open(context.Background(), path) }()
	<-h.loader.started

	h.viewer.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("cancelled load did not return")
	}
	assert.Equal(t, StateClosed, h.viewer.State())
	assert.True(t, h.mainInput.Load())
}

func TestLoadTimeout(t *testing.T) {
	h := newHarness()
	path := "panorama/floor2/Panorama5.png"
	release := h.loader.hold(path)
	defer close(release)
	h.viewer.SetLoadTimeout(20 * time.Millisecond)

	err := h.viewer.Open(context.Background(), path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateClosed, h.viewer.State())
}
