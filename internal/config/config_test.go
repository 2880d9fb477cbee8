package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "parallel", cfg.ExecutionMode)
	assert.Equal(t, "bestEffort", cfg.Policy)
	assert.Equal(t, "allMustSucceed", cfg.StagePolicy)
	assert.Equal(t, 0.8, cfg.EarlyPromotionThreshold)
	assert.Equal(t, "signals", cfg.SignalsDir)
}

func TestLoadWithoutConfigFileReturnsDefaults(t *testing.T) {
	// Load with no explicit path and no $HOME/.ignition/config.yaml falls
	// back to Default() rather than erroring.
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithMissingExplicitPathErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "execution_mode: staged\npolicy: failFast\nmax_degree_of_parallelism: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staged", cfg.ExecutionMode)
	assert.Equal(t, "failFast", cfg.Policy)
	assert.Equal(t, 4, cfg.MaxDegreeOfParallelism)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "signals", cfg.SignalsDir)
}

func TestLoadOverlaysEnvironmentVariables(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("IGNITION_POLICY", "continueOnTimeout")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "continueOnTimeout", cfg.Policy)
}
