// internal/agent/models.go
package agent

import (
	"time"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

// Phase is the workflow engine's state. The walk starts at
// PhaseStrategize and only ever ends at PhaseTerminated.
type Phase string

const (
	PhaseStrategize Phase = "strategize"
	PhasePlan       Phase = "plan"
	PhaseCritique   Phase = "critique"
	PhaseTerminated Phase = "terminated"
)

// Agent role names, used for oracle routing and message attribution.
const (
	RoleStrategist = "strategist"
	RolePlanner    = "planner"
	RoleCritic     = "critic"
)

// WalkStatus is the terminal disposition of one workflow walk.
type WalkStatus string

const (
	// WalkApproved: the critic accepted the plan.
	WalkApproved WalkStatus = "approved"
	// WalkMaxIterations: the revision loop hit its bound without an
	// approval.
	WalkMaxIterations WalkStatus = "failed-max-iterations"
	// WalkFailed: an oracle call failed; never retried by the engine.
	WalkFailed WalkStatus = "failed"
	// WalkCancelled: the mission context was cancelled between phases.
	WalkCancelled WalkStatus = "cancelled"
)

// Message is one append-only conversation log entry. Entries are never
// mutated after append and stay in chronological order.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MissionContext is the read-only context record handed to the prompt
// builders: what reconnaissance and the knowledge store know about the
// target, plus adaptive feedback from past performance.
type MissionContext struct {
	Recon           schemas.ReconSnapshot
	Vulnerabilities []schemas.Vulnerability
	PriorAttempts   int
	PolicyFeedback  string
}

// AgentState is the mutable state of one mission's workflow walk. It is
// owned exclusively by that walk for the mission's lifetime; independent
// missions never share one.
type AgentState struct {
	MissionID string
	Target    string
	Phase     Phase

	Context MissionContext

	Strategy     string
	TacticalPlan string
	Critique     string

	Messages []Message

	IterationCount int
	MaxIterations  int

	Success   bool
	CreatedAt time.Time
}

// NewAgentState initializes a walk at the strategize phase.
func NewAgentState(missionID, target string, mctx MissionContext, maxIterations int) *AgentState {
	return &AgentState{
		MissionID:     missionID,
		Target:        target,
		Phase:         PhaseStrategize,
		Context:       mctx,
		MaxIterations: maxIterations,
		CreatedAt:     time.Now().UTC(),
	}
}

// appendMessage records one agent output in the conversation log.
func (s *AgentState) appendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
