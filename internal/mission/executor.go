// internal/mission/executor.go

// Package mission orchestrates one end-to-end operation against a
// target: reconnaissance, knowledge ingestion, the agent workflow walk,
// the sandbox handoff, and exactly one recorded experience per
// execution report.
package mission

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/ares-cli/api/schemas"
	"github.com/xkilldash9x/ares-cli/internal/agent"
	"github.com/xkilldash9x/ares-cli/internal/config"
	"github.com/xkilldash9x/ares-cli/internal/oracle"
	"github.com/xkilldash9x/ares-cli/internal/rl"
)

// Status is the terminal disposition of a mission. Every Execute call
// returns exactly one of these; no fault crosses the mission boundary
// uncaught.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
	StatusNoTargetsFound Status = "no_targets_found"
)

// Spec describes one mission to run. DryRun stops after the workflow
// walk: nothing reaches the sandbox and nothing is recorded.
type Spec struct {
	Target    string
	Objective string
	DryRun    bool
}

// Result is the externally visible outcome of one mission.
type Result struct {
	MissionID string
	Target    string
	Status    Status
	Error     string

	Strategy     string
	TacticalPlan string
	Critique     string
	WalkStatus   agent.WalkStatus
	Iterations   int

	Outcome schemas.Outcome
	Reward  float64

	StartedAt   time.Time
	CompletedAt time.Time
}

// decisionOracle is the oracle surface the executor needs: routing plus
// the availability check that gates mission start.
type decisionOracle interface {
	agent.DecisionOracle
	Available() bool
}

// Executor wires the collaborators around the agent workflow and the
// learning loop. Missions run concurrently over disjoint agent state;
// the experience store is the only shared resource.
type Executor struct {
	oracle    decisionOracle
	engine    *agent.Engine
	recon     schemas.ReconProvider
	knowledge schemas.KnowledgeStore // optional; nil disables the phase
	sandbox   schemas.SandboxExecutor
	loop      *rl.Loop
	cfg       config.MissionConfig
	logger    *zap.Logger
}

// New assembles an executor. The knowledge store may be nil, in which
// case missions run with recon-only context.
func New(
	o decisionOracle,
	recon schemas.ReconProvider,
	knowledge schemas.KnowledgeStore,
	sandbox schemas.SandboxExecutor,
	loop *rl.Loop,
	cfg config.MissionConfig,
	logger *zap.Logger,
) *Executor {
	logger = logger.Named("mission")
	routed := agent.DecisionOracle(o)
	if cfg.OracleTimeout > 0 {
		routed = &timeoutOracle{inner: o, timeout: cfg.OracleTimeout}
	}
	return &Executor{
		oracle:    o,
		engine:    agent.NewEngine(routed, logger),
		recon:     recon,
		knowledge: knowledge,
		sandbox:   sandbox,
		loop:      loop,
		cfg:       cfg,
		logger:    logger,
	}
}

// Execute runs one mission to a terminal status. It never returns an
// error; failures are folded into the result.
func (e *Executor) Execute(ctx context.Context, spec Spec) Result {
	result := Result{
		MissionID: uuid.NewString(),
		Target:    spec.Target,
		StartedAt: time.Now().UTC(),
	}
	defer func() { result.CompletedAt = time.Now().UTC() }()

	log := e.logger.With(
		zap.String("mission_id", result.MissionID),
		zap.String("target", spec.Target),
	)
	log.Info("Mission starting")

	// No backend means no mission. Fatal at start, never retried.
	if !e.oracle.Available() {
		return e.fail(&result, oracle.ErrProviderUnavailable)
	}

	snap, err := e.recon.Snapshot(ctx, spec.Target)
	if err != nil {
		if ctx.Err() != nil {
			return e.cancel(&result, err)
		}
		return e.fail(&result, err)
	}
	if snap.Empty() {
		log.Warn("Reconnaissance found no live hosts")
		result.Status = StatusNoTargetsFound
		return result
	}

	mctx := e.buildContext(ctx, spec.Target, snap, log)

	state := agent.NewAgentState(result.MissionID, spec.Target, mctx, e.cfg.MaxIterations)
	walkStatus, walkErr := e.engine.Walk(ctx, state)

	result.Strategy = state.Strategy
	result.TacticalPlan = state.TacticalPlan
	result.Critique = state.Critique
	result.WalkStatus = walkStatus
	result.Iterations = state.IterationCount

	switch walkStatus {
	case agent.WalkCancelled:
		return e.cancel(&result, walkErr)
	case agent.WalkFailed:
		return e.fail(&result, walkErr)
	}

	if spec.DryRun {
		result.Status = StatusCompleted
		log.Info("Dry run complete, skipping sandbox handoff",
			zap.String("walk_status", string(walkStatus)),
		)
		return result
	}

	// Approved or out of revisions: hand the best available plan to the
	// sandbox and learn from whatever comes back.
	ref := exploitRefFromPlan(state.TacticalPlan, e.cfg.ExploitLanguage)
	report, execErr := e.sandbox.Execute(ctx, ref)
	if execErr != nil {
		if ctx.Err() != nil {
			return e.cancel(&result, execErr)
		}
		report = schemas.ExecutionReport{
			Outcome:      schemas.OutcomeError,
			ErrorMessage: execErr.Error(),
		}
	}

	attempt := e.buildAttempt(result.MissionID, spec.Target, state, mctx, ref, report)
	if err := e.loop.RecordAttempt(ctx, &attempt, report.Detected); err != nil {
		log.Error("Failed to record attempt", zap.Error(err))
	}
	result.Outcome = report.Outcome
	result.Reward = attempt.Reward

	result.Status = StatusCompleted
	log.Info("Mission completed",
		zap.String("walk_status", string(walkStatus)),
		zap.String("outcome", string(report.Outcome)),
		zap.Float64("reward", attempt.Reward),
	)
	return result
}

// ExecuteAll runs the missions concurrently, bounded by
// mission.max_concurrent. Every mission yields a result; one mission's
// failure never stops the others.
func (e *Executor) ExecuteAll(ctx context.Context, specs []Spec) []Result {
	results := make([]Result, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrent)
	for i, spec := range specs {
		g.Go(func() error {
			results[i] = e.Execute(gctx, spec)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// PerformanceReport delegates to the learning loop.
func (e *Executor) PerformanceReport(ctx context.Context) (*rl.PerformanceReport, error) {
	return e.loop.PerformanceReport(ctx)
}

// buildContext assembles the typed mission context. Knowledge-store and
// policy failures degrade to a smaller context, never abort.
func (e *Executor) buildContext(ctx context.Context, target string, snap schemas.ReconSnapshot, log *zap.Logger) agent.MissionContext {
	mctx := agent.MissionContext{Recon: snap}

	if e.knowledge != nil {
		if err := e.knowledge.IngestSnapshot(ctx, snap); err != nil {
			log.Warn("Knowledge ingestion failed, continuing with recon-only context", zap.Error(err))
		}
		vulns, err := e.knowledge.VulnerabilitiesForTarget(ctx, target)
		if err != nil {
			log.Warn("Vulnerability lookup failed", zap.Error(err))
		} else {
			mctx.Vulnerabilities = vulns
		}
	}

	prior, err := e.loop.Store().GetByPredicate(ctx, func(a rl.ExploitAttempt) bool {
		return a.Target == target
	}, 50)
	if err != nil {
		log.Warn("Prior-attempt lookup failed", zap.Error(err))
	}
	mctx.PriorAttempts = len(prior)

	feedback, err := e.loop.Optimizer().OptimizePrompt(ctx, agent.RolePlanner, vulnTypeOf(mctx.Vulnerabilities))
	if err != nil {
		log.Warn("Policy feedback unavailable", zap.Error(err))
	} else {
		mctx.PolicyFeedback = feedback
	}
	return mctx
}

func (e *Executor) buildAttempt(missionID, target string, state *agent.AgentState, mctx agent.MissionContext, ref schemas.ExploitRef, report schemas.ExecutionReport) rl.ExploitAttempt {
	vulnType := vulnTypeOf(mctx.Vulnerabilities)
	if vulnType == "" {
		vulnType = "unknown"
	}
	var cve string
	if len(mctx.Vulnerabilities) > 0 {
		cve = mctx.Vulnerabilities[0].CVEID
	}
	return rl.ExploitAttempt{
		AttemptID:             uuid.NewString(),
		MissionID:             missionID,
		Timestamp:             time.Now().UTC(),
		Target:                target,
		VulnerabilityType:     vulnType,
		CVEID:                 cve,
		CodeRef:               ref.CodeRef,
		CodeLength:            ref.CodeLength,
		ObfuscationTechniques: ref.Obfuscation,
		Language:              ref.Language,
		Outcome:               report.Outcome,
		ExecutionTime:         report.ExecutionTimeSec,
		ErrorMessage:          report.ErrorMessage,
		AgentStrategy:         strategyLabel(state.TacticalPlan),
		LLMModelUsed:          e.oracle.ModelFor(agent.RolePlanner),
	}
}

func (e *Executor) fail(result *Result, err error) Result {
	result.Status = StatusFailed
	if err != nil {
		result.Error = err.Error()
	}
	e.logger.Error("Mission failed",
		zap.String("mission_id", result.MissionID),
		zap.String("error", result.Error),
	)
	return *result
}

func (e *Executor) cancel(result *Result, err error) Result {
	result.Status = StatusCancelled
	if err != nil {
		result.Error = err.Error()
	}
	e.logger.Warn("Mission cancelled", zap.String("mission_id", result.MissionID))
	return *result
}

func vulnTypeOf(vulns []schemas.Vulnerability) string {
	if len(vulns) == 0 {
		return ""
	}
	return vulns[0].Type
}

// timeoutOracle wraps each decision call with the configured
// request-level timeout; the workflow engine itself carries none.
type timeoutOracle struct {
	inner   agent.DecisionOracle
	timeout time.Duration
}

func (t *timeoutOracle) Decide(ctx context.Context, role string, req schemas.GenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Decide(ctx, role, req)
}

func (t *timeoutOracle) ModelFor(role string) string {
	return t.inner.ModelFor(role)
}

// exploitRefFromPlan turns the approved plan into the handoff for the
// sandbox: a fenced code block when the plan carries one, otherwise the
// plan text itself as the reference.
func exploitRefFromPlan(plan, language string) schemas.ExploitRef {
	code := extractCodeBlock(plan)
	if code == "" {
		code = plan
	}
	return schemas.ExploitRef{
		CodeRef:    code,
		Language:   language,
		CodeLength: len(strings.Split(code, "\n")),
	}
}

func extractCodeBlock(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return ""
	}
	rest := text[start+3:]
	if nl := strings.Index(rest, "\n"); nl != -1 {
		// Drop the language tag on the fence line.
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// strategyLabel pulls the plan's selected approach for the experience
// record; an unparseable plan falls back to a generic label.
func strategyLabel(plan string) string {
	for _, key := range []string{`"selected_approach"`, `"strategy"`} {
		idx := strings.Index(plan, key)
		if idx == -1 {
			continue
		}
		rest := plan[idx+len(key):]
		if colon := strings.Index(rest, ":"); colon != -1 {
			rest = rest[colon+1:]
			if open := strings.Index(rest, `"`); open != -1 {
				rest = rest[open+1:]
				if end := strings.Index(rest, `"`); end > 0 {
					return rest[:end]
				}
			}
		}
	}
	return "adaptive"
}
