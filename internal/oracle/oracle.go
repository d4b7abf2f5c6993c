// internal/oracle/oracle.go
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

// ErrProviderUnavailable is returned when a decision is requested but no
// backend has been configured. It is fatal at mission start and never
// retried.
var ErrProviderUnavailable = errors.New("no decision backend configured")

// Oracle routes role-scoped decision requests to named backends. Backends
// are injected at construction; there is no process-wide registry.
type Oracle struct {
	logger       *zap.Logger
	backends     map[string]schemas.LLMBackend
	order        []string          // registration order, used for fallback
	roleBackends map[string]string // role -> preferred backend name
}

// New creates an Oracle over the given named backends. The backends map
// may be empty; in that case every Decide call fails with
// ErrProviderUnavailable.
func New(logger *zap.Logger, backends []schemas.LLMBackend, roleBackends map[string]string) *Oracle {
	byName := make(map[string]schemas.LLMBackend, len(backends))
	order := make([]string, 0, len(backends))
	for _, b := range backends {
		if _, exists := byName[b.Name()]; exists {
			continue
		}
		byName[b.Name()] = b
		order = append(order, b.Name())
	}
	if roleBackends == nil {
		roleBackends = make(map[string]string)
	}
	return &Oracle{
		logger:       logger.Named("oracle"),
		backends:     byName,
		order:        order,
		roleBackends: roleBackends,
	}
}

// Available reports whether at least one backend is configured.
func (o *Oracle) Available() bool {
	return len(o.order) > 0
}

// Decide obtains a role-scoped decision from the backend configured for
// the role. If that backend is absent but others exist, the first
// registered backend is used instead and a warning is logged; a silent
// substitution never happens.
func (o *Oracle) Decide(ctx context.Context, role string, req schemas.GenerationRequest) (string, error) {
	backend, err := o.resolve(role)
	if err != nil {
		return "", err
	}

	o.logger.Debug("Routing decision request",
		zap.String("role", role),
		zap.String("backend", backend.Name()),
		zap.Int("prompt_tokens_est", o.EstimateTokens(req.SystemPrompt+req.UserPrompt)),
	)

	text, err := backend.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("backend %q: %w", backend.Name(), err)
	}
	return text, nil
}

// ModelFor returns the backend name that would serve the given role.
func (o *Oracle) ModelFor(role string) string {
	b, err := o.resolve(role)
	if err != nil {
		return ""
	}
	return b.Name()
}

func (o *Oracle) resolve(role string) (schemas.LLMBackend, error) {
	if len(o.order) == 0 {
		return nil, ErrProviderUnavailable
	}

	want := o.roleBackends[role]
	if want != "" {
		if b, ok := o.backends[want]; ok {
			return b, nil
		}
		fallback := o.order[0]
		o.logger.Warn("Configured backend not available, falling back",
			zap.String("role", role),
			zap.String("wanted", want),
			zap.String("fallback", fallback),
		)
		return o.backends[fallback], nil
	}
	return o.backends[o.order[0]], nil
}

// EstimateTokens gives a best-effort token count for cost estimation.
// Estimation never blocks or fails a decision call; when the word-piece
// heuristic produces nothing useful it falls back to the crude
// one-token-per-four-characters rule.
func (o *Oracle) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	// Word-piece heuristic: whitespace-delimited words, long words split
	// into 4-character pieces. Close enough for budgeting.
	total := 0
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		total += 1 + n/5
	}
	if total > 0 {
		return total
	}
	return len(text) / 4
}
