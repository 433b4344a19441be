package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom("", nil)
	require.NoError(t, err)

	assert.Equal(t, Default().AssetPath, cfg.AssetPath)
	assert.Equal(t, 30*time.Second, cfg.LoadTimeout)
	assert.False(t, cfg.WatchAsset)
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
asset_path: models/office.glb
watch_asset: true
tick_interval: 50ms
views_db_path: data/views.db
`), 0o644))

	t.Setenv("PORT", "5000")
	t.Setenv("LOAD_TIMEOUT", "2s")
	t.Setenv("READ_TIMEOUT", "3")

	cfg, err := LoadFrom(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "models/office.glb", cfg.AssetPath)
	assert.True(t, cfg.WatchAsset)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.LoadTimeout)
	assert.Equal(t, 3, cfg.ReadTimeout)
	assert.Equal(t, "data/views.db", cfg.ViewsDBPath)
	assert.Equal(t, 10, cfg.WriteTimeout)
}

func TestLoadUsesConfigFileEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viewer_url: http://viewer:3001\n"), 0o644))
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://viewer:3001", cfg.ViewerURL)
}

func TestMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("LOAD_TIMEOUT", "-1s")
	_, err := LoadFrom("", nil)
	assert.Error(t, err)
}

func TestServiceDefaults(t *testing.T) {
	cfg, err := LoadFrom("", ViewerDefault())
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "3000", Default().Port)

	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"3000\"\n"), 0o644))
	cfg, err = LoadFrom(path, ViewerDefault())
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)

	t.Setenv("PORT", "8080")
	cfg, err = LoadFrom(path, ViewerDefault())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}

func TestIsProduction(t *testing.T) {
	cfg, err := LoadFrom("", nil)
	require.NoError(t, err)
	assert.False(t, cfg.IsProduction())

	t.Setenv("ENV", "production")
	cfg, err = LoadFrom("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
