package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkboard/src/pkg/model"
)

func TestConfigLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, ConfigLoad(path))

	cfg := ConfigGet()
	require.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.FileExists(t, path)
}

func TestConfigLoadTOMLFillsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("participant = \"ana\"\nreplication_peers = [\"ws://a\"]\n"), 0644))

	require.NoError(t, ConfigLoad(path))
	cfg := ConfigGet()
	assert.Equal(t, "ana", cfg.Participant)
	assert.Equal(t, []string{"ws://a"}, cfg.ReplicationPeers)
	assert.Equal(t, "inkboard.db", cfg.DatabaseFile)
	assert.InDelta(t, 0.0001, cfg.OrderEpsilon, 1e-9)
}

func TestDrawingContextFromConfig(t *testing.T) {
	cfg := Default()
	cfg.DefaultColor = "#ff0000ff"
	cfg.DefaultThickness = 0.2

	dc, err := DrawingContext(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 1, dc.PrimaryColor.R, 1e-3)
	assert.InDelta(t, 0, dc.PrimaryColor.G, 1e-3)
	assert.InDelta(t, 0.2, dc.Thickness, 1e-6)

	cfg.DefaultColor = "nope"
	_, err = DrawingContext(cfg)
	assert.Error(t, err)

	dc, err = DrawingContext(nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDrawingContext(), dc)
}
