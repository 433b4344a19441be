package storage

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := NewFileStorage(t.TempDir())

	_, err := s.Resolve("../secret.png")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = s.Resolve("panorama/../../secret.png")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	full, err := s.Resolve("/panorama/floor1/Panorama7.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "panorama", "floor1", "Panorama7.png"), full)
}

func TestLoadPNG(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "panorama", "floor1", "Panorama7.png"), 8, 4)
	s := NewFileStorage(root)

	assert.True(t, s.Exists("panorama/floor1/Panorama7.png"))

	tex, err := s.Load(context.Background(), "panorama/floor1/Panorama7.png")
	require.NoError(t, err)
	assert.Equal(t, "panorama/floor1/Panorama7.png", tex.Path)
	assert.Equal(t, "image/png", tex.MIME)
	assert.Equal(t, 8, tex.Width)
	assert.Equal(t, 4, tex.Height)
	assert.Positive(t, tex.Size)
}

func TestLoadMissingFile(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	assert.False(t, s.Exists("panorama/floor2/Panorama1.png"))

	_, err := s.Load(context.Background(), "panorama/floor2/Panorama1.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsNonImage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.png"), []byte("definitely not a picture"), 0o644))

	_, err := NewFileStorage(root).Load(context.Background(), "notes.png")
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestLoadCancelled(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "p.png"), 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileStorage(root).Load(ctx, "p.png")
	assert.ErrorIs(t, err, context.Canceled)
}
