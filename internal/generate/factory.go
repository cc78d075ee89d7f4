package generate

import (
	"fmt"
	"os"

	citeqerrors "github.com/citeq/citeq/internal/errors"
)

// New selects and constructs the configured Generator backend
// ("anthropic" or "openai"), reading the corresponding API key from the
// environment, and wraps it with the default retry policy.
func New(backend string, temperature float64) (Generator, error) {
	switch backend {
	case "anthropic":
		cfg := DefaultAnthropicConfig()
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		cfg.Temperature = temperature
		return NewWithRetry(NewAnthropicGenerator(cfg)), nil
	case "openai":
		cfg := DefaultOpenAIConfig()
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.Temperature = temperature
		return NewWithRetry(NewOpenAIGenerator(cfg)), nil
	default:
		return nil, citeqerrors.ConfigError(fmt.Sprintf("unknown generator backend %q", backend), nil)
	}
}
