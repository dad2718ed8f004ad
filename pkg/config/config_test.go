package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsComplete(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.GCEdenHeapSize, 0)
	assert.Greater(t, cfg.GCYoungHeapSize, 0)
	assert.Greater(t, cfg.GCOldHeapSize, 0)
	assert.Greater(t, cfg.GCHeapSize, 0)
	assert.Equal(t, 2.0, cfg.GCGrowthFactor)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gcGrowthFactor: 1.5
stressGC: true
logGC: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.GCGrowthFactor)
	assert.True(t, cfg.StressGC)
	assert.True(t, cfg.LogGC)
	assert.Equal(t, Default().GCEdenHeapSize, cfg.GCEdenHeapSize)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
