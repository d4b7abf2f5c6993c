// internal/oracle/factory.go
package oracle

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/api/schemas"
	"github.com/xkilldash9x/ares-cli/internal/config"
)

// NewFromConfig builds all configured backends and wires them into an
// Oracle. Backends are registered in sorted name order so the fallback
// choice is deterministic across runs.
func NewFromConfig(cfg config.OracleConfig, logger *zap.Logger) (*Oracle, error) {
	names := make([]string, 0, len(cfg.Backends))
	for name := range cfg.Backends {
		names = append(names, name)
	}
	sort.Strings(names)

	backends := make([]schemas.LLMBackend, 0, len(names))
	for _, name := range names {
		bc := cfg.Backends[name]
		backend, err := newBackend(name, bc, logger)
		if err != nil {
			return nil, fmt.Errorf("building backend %q: %w", name, err)
		}
		backends = append(backends, backend)
	}

	return New(logger, backends, cfg.RoleBackends), nil
}

func newBackend(name string, bc config.BackendConfig, logger *zap.Logger) (schemas.LLMBackend, error) {
	switch bc.Provider {
	case config.ProviderGemini:
		return NewGeminiBackend(name, bc, logger)
	case config.ProviderOpenAI:
		return NewOpenAIBackend(name, bc, logger)
	default:
		return nil, fmt.Errorf("unsupported provider %q", bc.Provider)
	}
}
