// internal/agent/agents.go
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

// DecisionOracle is the slice of the oracle the agents consume: one
// role-scoped decision per phase handler.
type DecisionOracle interface {
	Decide(ctx context.Context, role string, req schemas.GenerationRequest) (string, error)
	ModelFor(role string) string
}

const strategistPrompt = `You are the Strategist Agent in an autonomous red-team system.

Your role:
1. Analyze the target and reconnaissance data
2. Define the overall attack strategy
3. Identify the most promising attack vectors
4. Delegate the next task to the Planner Agent

Think like a senior Red Team leader: prioritize stealth and operational
security, consider detection risks, plan for contingencies.

Output format:
{
    "strategy": "Brief description of overall approach",
    "priority_targets": ["target1", "target2"],
    "attack_vectors": ["vector1", "vector2"],
    "risk_level": "low|medium|high",
    "next_action": "specific task for the Planner Agent"
}

Be concise and tactical.`

const plannerPrompt = `You are the Planner Agent in an autonomous red-team system.

Your role:
1. Receive the strategic objective from the Strategist
2. Break the task down step by step
3. Generate multiple tactical approaches and evaluate each for success probability
4. Select the optimal path and produce a detailed plan

Output format:
{
    "objective": "What we're trying to achieve",
    "approaches": [
        {"name": "Approach 1", "steps": ["step1", "step2"], "success_probability": 0.8, "risks": ["risk1"]}
    ],
    "selected_approach": "Approach 1",
    "detailed_plan": {
        "steps": [
            {"action": "specific action", "expected_outcome": "what should happen", "fallback": "what to do if it fails"}
        ]
    }
}

Think step-by-step and show your reasoning.`

const criticPrompt = `You are the Critic Agent in an autonomous red-team system.

Critically analyze the tactical plan:
1. Identify logic flaws and steps that cannot work as intended
2. Estimate detection risk (IDS/IPS, WAF)
3. Check operational security: traces left, attribution risk

Output format:
{
    "approved": true or false,
    "severity_issues": ["critical issue 1"],
    "warnings": ["warning 1"],
    "suggestions": ["improvement 1"],
    "detection_risk": "low|medium|high"
}

Be harsh but constructive. Set "approved" to true only when the plan
needs no further revision. Safety and stealth are paramount.`

// roleAgent is one phase handler: exactly one oracle call, one state
// mutation, one appended message.
type roleAgent struct {
	role         string
	systemPrompt string
	oracle       DecisionOracle
	logger       *zap.Logger
	buildPrompt  func(*AgentState) string
	apply        func(*AgentState, string)
}

func (a *roleAgent) step(ctx context.Context, state *AgentState) error {
	a.logger.Info("Agent step",
		zap.String("role", a.role),
		zap.String("mission_id", state.MissionID),
		zap.Int("iteration", state.IterationCount),
	)

	req := schemas.GenerationRequest{
		SystemPrompt: a.systemPrompt,
		UserPrompt:   a.buildPrompt(state),
		Options: schemas.GenerationOptions{
			Temperature:     0.7,
			ForceJSONFormat: true,
		},
	}
	if fb := state.Context.PolicyFeedback; fb != "" {
		req.SystemPrompt += "\n\n" + fb
	}

	out, err := a.oracle.Decide(ctx, a.role, req)
	if err != nil {
		return fmt.Errorf("%s step: %w", a.role, err)
	}

	a.apply(state, out)
	state.appendMessage(a.role, out)
	return nil
}

func newStrategist(o DecisionOracle, logger *zap.Logger) *roleAgent {
	return &roleAgent{
		role:         RoleStrategist,
		systemPrompt: strategistPrompt,
		oracle:       o,
		logger:       logger,
		buildPrompt:  strategistUserPrompt,
		apply:        func(s *AgentState, out string) { s.Strategy = out },
	}
}

func newPlanner(o DecisionOracle, logger *zap.Logger) *roleAgent {
	return &roleAgent{
		role:         RolePlanner,
		systemPrompt: plannerPrompt,
		oracle:       o,
		logger:       logger,
		buildPrompt:  plannerUserPrompt,
		apply:        func(s *AgentState, out string) { s.TacticalPlan = out },
	}
}

func newCritic(o DecisionOracle, logger *zap.Logger) *roleAgent {
	return &roleAgent{
		role:         RoleCritic,
		systemPrompt: criticPrompt,
		oracle:       o,
		logger:       logger,
		buildPrompt:  criticUserPrompt,
		apply:        func(s *AgentState, out string) { s.Critique = out },
	}
}

func strategistUserPrompt(state *AgentState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s\n\n", state.Target)

	b.WriteString("Reconnaissance Data:\n")
	if state.Context.Recon.Empty() {
		b.WriteString("  (none)\n")
	}
	for _, host := range state.Context.Recon.Hosts {
		fmt.Fprintf(&b, "  Host %s (%s, %s)\n", host.IP, host.OS, host.Status)
		for _, port := range host.OpenPorts {
			fmt.Fprintf(&b, "    %d/%s %s %s\n", port.Port, port.Protocol, port.Service, port.Version)
		}
	}

	b.WriteString("\nKnown Vulnerabilities:\n")
	if len(state.Context.Vulnerabilities) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, v := range state.Context.Vulnerabilities {
		fmt.Fprintf(&b, "  [%s] %s on %s (%s)\n", v.Severity, v.Type, v.Service, v.CVEID)
	}

	fmt.Fprintf(&b, "\nPrevious exploit attempts against this target: %d\n", state.Context.PriorAttempts)
	b.WriteString("\nAnalyze this situation and provide strategic guidance.")
	return b.String()
}

func plannerUserPrompt(state *AgentState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Strategy from the Strategist:\n%s\n\n", state.Strategy)
	fmt.Fprintf(&b, "Target: %s\n", state.Target)
	fmt.Fprintf(&b, "Vulnerabilities found: %d\n", len(state.Context.Vulnerabilities))
	fmt.Fprintf(&b, "Previous attempts: %d\n", state.Context.PriorAttempts)
	if state.Critique != "" {
		fmt.Fprintf(&b, "\nThe Critic rejected the previous plan. Address this critique:\n%s\n", state.Critique)
	}
	b.WriteString("\nCreate a detailed tactical plan to execute the strategy.")
	return b.String()
}

func criticUserPrompt(state *AgentState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review this tactical plan:\n\n%s\n\n", state.TacticalPlan)
	fmt.Fprintf(&b, "Target context:\n- Target: %s\n", state.Target)
	if len(state.Context.Vulnerabilities) > 0 {
		v := state.Context.Vulnerabilities[0]
		fmt.Fprintf(&b, "- Vulnerability: %s (%s)\n", v.Type, v.CVEID)
	}
	b.WriteString("\nProvide a detailed critique.")
	return b.String()
}
