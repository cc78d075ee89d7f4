package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("TOP_K", "25")
	t.Setenv("RETRIEVAL_ENABLE_RERANK", "false")
	t.Setenv("AGENT_MAX_STEPS", "4")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Retrieval.TopK)
	assert.False(t, cfg.Retrieval.EnableRerank)
	assert.Equal(t, 4, cfg.Agent.MaxSteps)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "citeq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 42\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Retrieval.TopK)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.VectorBackend = "carrier-pigeon"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresDSNForPGVectorBackend(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.VectorBackend = "pgvector"
	require.Error(t, cfg.Validate())

	cfg.Retrieval.PostgresDSN = "postgres://localhost/citeq"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsNonZeroTemperature(t *testing.T) {
	cfg := Default()
	cfg.Generator.Temperature = 0.7
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveBudgets(t *testing.T) {
	cfg := Default()
	cfg.Agent.MaxSteps = 0
	require.Error(t, cfg.Validate())
}
