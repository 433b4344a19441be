package picker

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"building-viewer/internal/viewer/floors"
	"building-viewer/internal/viewer/indexer"
	"building-viewer/internal/viewer/models"
	"building-viewer/internal/viewer/scene"
)

type fixture struct {
	index    *indexer.Index
	switcher *floors.Switcher
	picker   *Picker
	camera   *scene.Camera
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := scene.NewGroup("Scene")
	for _, name := range []string{"Floor_01", "Floor_02", "Floor_03"} {
		root.Add(scene.NewGroup(name))
	}
	cp := scene.NewBox("checkpoint7", math32.Vec3(1, 1, 1))
	root.Find("Floor_01").Add(cp)

	schema := indexer.DefaultSchema()
	ix := indexer.Build(root, schema)
	require.Len(t, ix.Hotspots, 1)

	cam := scene.NewPerspectiveCamera(60, 1, 0.1, 1000)
	cam.Pose.Position = models.Vec3{Z: 10}

	return &fixture{
		index:    ix,
		switcher: floors.New(schema.Floors, ix.Floors, schema.FloorFolder),
		picker:   New(ix),
		camera:   cam,
	}
}

func TestToNDC(t *testing.T) {
	x, y := ToNDC(0, 0, 800, 600)
	assert.InDelta(t, -1, x, 1e-6)
	assert.InDelta(t, 1, y, 1e-6)

	x, y = ToNDC(400, 300, 800, 600)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	x, y = ToNDC(10, 10, 0, 0)
	assert.Zero(t, x)
	assert.Zero(t, y)
}

func TestPickHotspot(t *testing.T) {
	f := newFixture(t)

	h, err := f.picker.PickViewport(400, 300, 800, 600, f.camera)
	require.NoError(t, err)
	assert.Equal(t, "checkpoint7", h.Name)
	assert.Equal(t, "panorama/floor1/Panorama7.png", h.PanoramaPath)
}

func TestPickLabelWalksUpToHotspot(t *testing.T) {
	f := newFixture(t)
	f.camera.Pose.Position = models.Vec3{Y: 0.8, Z: 10}

	h, err := f.picker.Pick(0, 0, f.camera)
	require.NoError(t, err)
	assert.Equal(t, "checkpoint7", h.Name)
}

func TestPickOutsideHotspotsDoesNothing(t *testing.T) {
	f := newFixture(t)
	before := f.switcher.Floors()

	_, err := f.picker.Pick(0.9, 0.9, f.camera)
	assert.ErrorIs(t, err, ErrNoHotspot)
	assert.Equal(t, before, f.switcher.Floors())
	assert.Equal(t, "Floor_01", f.switcher.Current())
}

func TestPickHiddenFloorIsNotClickable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.switcher.Select("Floor_02"))

	_, err := f.picker.Pick(0, 0, f.camera)
	assert.ErrorIs(t, err, ErrNoHotspot)
}

func TestPickWithoutHotspots(t *testing.T) {
	p := New(&indexer.Index{Schema: indexer.DefaultSchema(), Hotspots: map[string]*indexer.Hotspot{}})
	_, err := p.Pick(0, 0, scene.NewPerspectiveCamera(60, 1, 0.1, 100))
	assert.ErrorIs(t, err, ErrNoHotspot)
}
