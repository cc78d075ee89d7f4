// Package config loads citeq's configuration through a layered
// precedence chain: built-in defaults, an optional YAML file, then
// environment variable overrides, finishing with validation that fails
// fast on anything invalid rather than letting a bad value reach the
// control loop.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

// Retrieval holds the hybrid-retrieval knobs from spec §6.
type Retrieval struct {
	VectorBackend       string `yaml:"vector_backend"`
	TopK                int    `yaml:"top_k"`
	Mode                string `yaml:"mode"`
	QueryFusion         bool   `yaml:"query_fusion"`
	RRFK0               int    `yaml:"rrf_k0"`
	CandidateMultiplier int    `yaml:"candidate_multiplier"`
	EnableRerank        bool   `yaml:"enable_rerank"`
	RerankPool          int    `yaml:"rerank_pool"`
	PostgresDSN         string `yaml:"postgres_dsn"`
}

// Answer holds the evidence-selection and citation knobs from spec §6.
type Answer struct {
	MaxContextChunks      int  `yaml:"max_context_chunks"`
	MaxContextChars       int  `yaml:"max_context_chars"`
	MinEvidenceHits       int  `yaml:"min_evidence_hits"`
	RequireCitations      bool `yaml:"require_citations"`
	IncludeNeighborChunks bool `yaml:"include_neighbor_chunks"`
	NeighborWindow        int  `yaml:"neighbor_window"`
}

// Agent holds the control-loop budgets from spec §4.8.
type Agent struct {
	MaxSteps           int `yaml:"max_steps"`
	MaxToolCalls       int `yaml:"max_tool_calls"`
	MaxRetrievalRounds int `yaml:"max_retrieval_rounds"`
	MinEvidenceHits    int `yaml:"min_evidence_hits"`
}

// Generator holds the external generate(prompt) adapter settings.
type Generator struct {
	Backend     string  `yaml:"backend"`
	Temperature float64 `yaml:"temperature"`
}

// Config is the fully resolved citeq configuration.
type Config struct {
	Retrieval Retrieval `yaml:"retrieval"`
	Answer    Answer    `yaml:"answer"`
	Agent     Agent     `yaml:"agent"`
	Generator Generator `yaml:"generator"`
}

// Default returns the built-in defaults, matching the numeric defaults
// named throughout spec.md (MAX_STEPS=8, MAX_TOOL_CALLS=3, RRF k0=60, ...).
func Default() *Config {
	return &Config{
		Retrieval: Retrieval{
			VectorBackend:       "hnsw",
			TopK:                10,
			Mode:                "hybrid",
			QueryFusion:         true,
			RRFK0:               60,
			CandidateMultiplier: 4,
			EnableRerank:        true,
			RerankPool:          20,
		},
		Answer: Answer{
			MaxContextChunks:      8,
			MaxContextChars:       8000,
			MinEvidenceHits:       2,
			RequireCitations:      true,
			IncludeNeighborChunks: true,
			NeighborWindow:        1,
		},
		Agent: Agent{
			MaxSteps:           8,
			MaxToolCalls:       3,
			MaxRetrievalRounds: 2,
			MinEvidenceHits:    2,
		},
		Generator: Generator{
			Backend:     "anthropic",
			Temperature: 0,
		},
	}
}

// Load resolves configuration from defaults, an optional file at
// configPath (if non-empty), and then environment variables, in that
// precedence order, finally validating the result.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadYAML(configPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return citeqerrors.ConfigError(fmt.Sprintf("read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return citeqerrors.ConfigError(fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
}

// applyEnvOverrides reads the environment variables named in spec §6 and
// overrides matching fields when set.
func (c *Config) applyEnvOverrides() {
	str(&c.Retrieval.VectorBackend, "VECTOR_BACKEND")
	intv(&c.Retrieval.TopK, "TOP_K")
	str(&c.Retrieval.Mode, "RETRIEVAL_MODE")
	boolv(&c.Retrieval.QueryFusion, "RETRIEVAL_QUERY_FUSION")
	intv(&c.Retrieval.RRFK0, "RETRIEVAL_RRF_K0")
	intv(&c.Retrieval.CandidateMultiplier, "RETRIEVAL_CANDIDATE_MULTIPLIER")
	boolv(&c.Retrieval.EnableRerank, "RETRIEVAL_ENABLE_RERANK")
	intv(&c.Retrieval.RerankPool, "RETRIEVAL_RERANK_POOL")
	str(&c.Retrieval.PostgresDSN, "PGVECTOR_DSN")

	intv(&c.Answer.MaxContextChunks, "ASK_MAX_CONTEXT_CHUNKS")
	intv(&c.Answer.MaxContextChars, "ASK_MAX_CONTEXT_CHARS")
	intv(&c.Answer.MinEvidenceHits, "ASK_MIN_EVIDENCE_HITS")
	boolv(&c.Answer.RequireCitations, "ASK_REQUIRE_CITATIONS")
	boolv(&c.Answer.IncludeNeighborChunks, "ASK_INCLUDE_NEIGHBOR_CHUNKS")
	intv(&c.Answer.NeighborWindow, "ASK_NEIGHBOR_WINDOW")

	intv(&c.Agent.MaxSteps, "AGENT_MAX_STEPS")
	intv(&c.Agent.MaxToolCalls, "AGENT_MAX_TOOL_CALLS")
	intv(&c.Agent.MaxRetrievalRounds, "AGENT_MAX_RETRIEVAL_ROUNDS")
	intv(&c.Agent.MinEvidenceHits, "AGENT_MIN_EVIDENCE_HITS")

	floatv(&c.Generator.Temperature, "LLM_TEMPERATURE")
	str(&c.Generator.Backend, "GENERATOR_BACKEND")
}

func str(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func intv(dst *int, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func boolv(dst *bool, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		*dst = true
	case "0", "false", "no":
		*dst = false
	}
}

func floatv(dst *float64, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

// Validate fails fast on configuration that would otherwise surface as a
// confusing mid-loop error (spec §7: configuration errors never enter the
// loop).
func (c *Config) Validate() error {
	switch c.Retrieval.VectorBackend {
	case "hnsw":
	case "pgvector":
		if c.Retrieval.PostgresDSN == "" {
			return citeqerrors.ConfigError("postgres_dsn (PGVECTOR_DSN) is required when vector_backend is pgvector", nil)
		}
	default:
		return citeqerrors.ConfigError(fmt.Sprintf("unknown vector backend %q", c.Retrieval.VectorBackend), nil)
	}
	switch c.Retrieval.Mode {
	case "base", "hybrid":
	default:
		return citeqerrors.ConfigError(fmt.Sprintf("unknown retrieval mode %q", c.Retrieval.Mode), nil)
	}
	switch c.Generator.Backend {
	case "anthropic", "openai":
	default:
		return citeqerrors.ConfigError(fmt.Sprintf("unknown generator backend %q", c.Generator.Backend), nil)
	}

	if c.Retrieval.TopK <= 0 {
		return citeqerrors.ConfigError("top_k must be positive", nil)
	}
	if c.Retrieval.RRFK0 <= 0 {
		return citeqerrors.ConfigError("rrf_k0 must be positive", nil)
	}
	if c.Retrieval.CandidateMultiplier <= 0 {
		return citeqerrors.ConfigError("candidate_multiplier must be positive", nil)
	}
	if c.Answer.MaxContextChunks <= 0 {
		return citeqerrors.ConfigError("max_context_chunks must be positive", nil)
	}
	if c.Answer.MaxContextChars <= 0 {
		return citeqerrors.ConfigError("max_context_chars must be positive", nil)
	}
	if c.Answer.MinEvidenceHits <= 0 {
		return citeqerrors.ConfigError("min_evidence_hits must be positive", nil)
	}
	if c.Answer.NeighborWindow < 0 {
		return citeqerrors.ConfigError("neighbor_window must be non-negative", nil)
	}
	if c.Agent.MaxSteps <= 0 || c.Agent.MaxToolCalls <= 0 || c.Agent.MaxRetrievalRounds <= 0 || c.Agent.MinEvidenceHits <= 0 {
		return citeqerrors.ConfigError("agent budgets must be positive", nil)
	}
	if c.Generator.Temperature != 0 {
		return citeqerrors.ConfigError("generator temperature must be 0 for deterministic generation", nil)
	}

	return nil
}
