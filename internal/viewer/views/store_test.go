package views

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"building-viewer/internal/viewer/models"
)

const migration = "../../../migrations/001_init_views.sql"

func sampleView(path string, yaw float32) models.SavedView {
	return models.SavedView{
		ImagePath: path,
		Pose: models.Pose{
			Position: models.Vec3{X: 0.25, Y: -0.5, Z: 1.75},
			Rotation: models.Vec3{X: -0.1, Y: yaw, Z: 0.0008},
		},
		SavedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "panorama/floor1/Panorama1.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, sampleView("panorama/floor1/Panorama2.png", 1.2)))
	require.NoError(t, s.Put(ctx, sampleView("panorama/floor1/Panorama1.png", 0.3)))
	require.NoError(t, s.Put(ctx, sampleView("panorama/floor1/Panorama1.png", 0.9)))

	got, ok, err := s.Get(ctx, "panorama/floor1/Panorama1.png")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleView("panorama/floor1/Panorama1.png", 0.9).Pose, got.Pose)
	assert.True(t, got.SavedAt.Equal(sampleView("", 0).SavedAt))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "panorama/floor1/Panorama1.png", all[0].ImagePath)
	assert.Equal(t, "panorama/floor1/Panorama2.png", all[1].ImagePath)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "views.db"))
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLiteStore(db)
	require.NoError(t, store.Init(context.Background(), migration))
	exerciseStore(t, store)
}

func TestSQLiteStoreMissingMigration(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "views.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, NewSQLiteStore(db).Init(context.Background(), "missing.sql"))
}
