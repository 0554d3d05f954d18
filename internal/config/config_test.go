package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, SchemaTasks, cfg.Storage.Schema)
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("server:\n  addr: 0.0.0.0:9000\n"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	// Unset sections keep their defaults.
	assert.Equal(t, "data", cfg.Storage.Dir)
	assert.Equal(t, "tentwenty@demo.com", cfg.Auth.Email)
}

func TestValidateRejectsUnknownSchema(t *testing.T) {
	_, err := FromYAML([]byte("storage:\n  schema: csv\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestLoadOptionalFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRequiresFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config init")
}

func TestLoadReadsWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ticktock.yml"), []byte(GenerateDefault()), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, SchemaTasks, cfg.Storage.Schema)
	assert.Equal(t, filepath.Join(dir, "data", "timesheets.json"), cfg.EntriesPath(dir))
}
