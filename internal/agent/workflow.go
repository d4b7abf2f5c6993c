// internal/agent/workflow.go
package agent

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Engine drives one mission's walk through the strategize/plan/critique
// state machine. The loop is iterative with an explicit counter, so
// stack depth is constant and termination is enumerable: approval, the
// iteration bound, an oracle failure, or cancellation.
type Engine struct {
	strategist *roleAgent
	planner    *roleAgent
	critic     *roleAgent
	logger     *zap.Logger
}

// NewEngine wires the three role agents over the given oracle.
func NewEngine(o DecisionOracle, logger *zap.Logger) *Engine {
	logger = logger.Named("workflow")
	return &Engine{
		strategist: newStrategist(o, logger),
		planner:    newPlanner(o, logger),
		critic:     newCritic(o, logger),
		logger:     logger,
	}
}

// Walk runs the state machine to termination. Cancellation is checked
// between phases only; an in-flight oracle call is never interrupted by
// the engine (each call carries its own request-level timeout).
func (e *Engine) Walk(ctx context.Context, state *AgentState) (WalkStatus, error) {
	for state.Phase != PhaseTerminated {
		if err := ctx.Err(); err != nil {
			state.Phase = PhaseTerminated
			return WalkCancelled, err
		}

		switch state.Phase {
		case PhaseStrategize:
			if err := e.strategist.step(ctx, state); err != nil {
				state.Phase = PhaseTerminated
				return WalkFailed, err
			}
			state.Phase = PhasePlan

		case PhasePlan:
			if err := e.planner.step(ctx, state); err != nil {
				state.Phase = PhaseTerminated
				return WalkFailed, err
			}
			state.Phase = PhaseCritique

		case PhaseCritique:
			if err := e.critic.step(ctx, state); err != nil {
				state.Phase = PhaseTerminated
				return WalkFailed, err
			}

			// Approval first, then the bound. This yields exactly
			// MaxIterations plan/critique cycles when no approval ever
			// comes, never one more.
			if critiqueApproved(state.Critique) {
				state.Success = true
				state.Phase = PhaseTerminated
				e.logger.Info("Plan approved",
					zap.String("mission_id", state.MissionID),
					zap.Int("iterations", state.IterationCount),
				)
				return WalkApproved, nil
			}

			state.IterationCount++
			if state.IterationCount >= state.MaxIterations {
				state.Phase = PhaseTerminated
				e.logger.Warn("Revision loop exhausted without approval",
					zap.String("mission_id", state.MissionID),
					zap.Int("max_iterations", state.MaxIterations),
				)
				return WalkMaxIterations, nil
			}
			state.Phase = PhasePlan
		}
	}
	return WalkMaxIterations, nil
}

// critiqueApproved tests the critique for an explicit, unambiguous
// acceptance. Only a parseable "approved": true verdict or a bare
// APPROVED line counts; silence and ambiguous wording mean the plan
// needs revision.
func critiqueApproved(critique string) bool {
	var verdict struct {
		Approved *bool `json:"approved"`
	}
	if err := json.Unmarshal([]byte(extractJSON(critique)), &verdict); err == nil && verdict.Approved != nil {
		return *verdict.Approved
	}

	for _, line := range strings.Split(critique, "\n") {
		if strings.TrimSpace(line) == "APPROVED" {
			return true
		}
	}
	return false
}

// extractJSON strips a markdown code fence around a JSON payload, a
// common decoration in model output.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "```"); start != -1 {
		rest := text[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return text
}
