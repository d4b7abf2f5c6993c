// internal/mission/executor_test.go
package mission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/ares-cli/api/schemas"
	"github.com/xkilldash9x/ares-cli/internal/agent"
	"github.com/xkilldash9x/ares-cli/internal/config"
	"github.com/xkilldash9x/ares-cli/internal/mocks"
	"github.com/xkilldash9x/ares-cli/internal/oracle"
	"github.com/xkilldash9x/ares-cli/internal/rl"
)

const approvingPlan = `{"approved": true, "selected_approach": "direct_execution"}`

func testMissionConfig() config.MissionConfig {
	return config.MissionConfig{
		MaxIterations:   3,
		OracleTimeout:   time.Minute,
		MaxConcurrent:   2,
		ExploitLanguage: "python",
	}
}

func aliveSnapshot(target string) schemas.ReconSnapshot {
	return schemas.ReconSnapshot{
		Target: target,
		Hosts: []schemas.Host{
			{IP: target, Status: "alive", OpenPorts: []schemas.PortScan{
				{Port: 80, Protocol: "tcp", Service: "nginx", State: "open"},
			}},
		},
		CapturedAt: time.Now().UTC(),
	}
}

type fixture struct {
	backend *mocks.MockLLMBackend
	recon   *mocks.MockReconProvider
	sandbox *mocks.MockSandboxExecutor
	store   *rl.MemoryStore
	exec    *Executor
}

func newFixture(t *testing.T, knowledge schemas.KnowledgeStore) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	backend := new(mocks.MockLLMBackend)
	backend.On("Name").Return("mock-backend")

	recon := new(mocks.MockReconProvider)
	sandbox := new(mocks.MockSandboxExecutor)
	store := rl.NewMemoryStore(100)
	loop := rl.NewLoop(store, config.PolicyConfig{
		LowSuccessRate:    0.3,
		HighDetectionRate: 0.2,
		TopStrategies:     3,
	}, logger)

	o := oracle.New(logger, []schemas.LLMBackend{backend}, nil)

	return &fixture{
		backend: backend,
		recon:   recon,
		sandbox: sandbox,
		store:   store,
		exec:    New(o, recon, knowledge, sandbox, loop, testMissionConfig(), logger),
	}
}

func TestExecuteCompletedMission(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := newFixture(t, nil)

	f.recon.On("Snapshot", mock.Anything, "192.168.1.10").Return(aliveSnapshot("192.168.1.10"), nil)
	f.backend.On("Generate", mock.Anything, mock.Anything).Return(approvingPlan, nil)
	f.sandbox.On("Execute", mock.Anything, mock.Anything).Return(schemas.ExecutionReport{
		Outcome:          schemas.OutcomeSuccess,
		ExecutionTimeSec: 2.0,
		Detected:         false,
	}, nil)

	result := f.exec.Execute(ctx, Spec{Target: "192.168.1.10"})

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, agent.WalkApproved, result.WalkStatus)
	assert.Equal(t, schemas.OutcomeSuccess, result.Outcome)
	assert.InDelta(t, 1.5, result.Reward, 1e-9)
	assert.Empty(t, result.Error)

	// Exactly one attempt recorded, carrying the selected approach.
	stored, err := f.store.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, result.MissionID, stored[0].MissionID)
	assert.Equal(t, "direct_execution", stored[0].AgentStrategy)
	assert.InDelta(t, 1.5, stored[0].Reward, 1e-9)

	f.recon.AssertExpectations(t)
	f.sandbox.AssertExpectations(t)
}

func TestExecuteNoTargetsFound(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)

	f.recon.On("Snapshot", mock.Anything, "10.0.0.1").
		Return(schemas.ReconSnapshot{Target: "10.0.0.1"}, nil)

	result := f.exec.Execute(context.Background(), Spec{Target: "10.0.0.1"})

	assert.Equal(t, StatusNoTargetsFound, result.Status)
	f.backend.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	f.sandbox.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestExecuteFailsWithoutBackends(t *testing.T) {
	defer goleak.VerifyNone(t)
	logger := zaptest.NewLogger(t)

	store := rl.NewMemoryStore(10)
	loop := rl.NewLoop(store, config.PolicyConfig{}, logger)
	o := oracle.New(logger, nil, nil)
	recon := new(mocks.MockReconProvider)
	exec := New(o, recon, nil, new(mocks.MockSandboxExecutor), loop, testMissionConfig(), logger)

	result := exec.Execute(context.Background(), Spec{Target: "192.168.1.10"})

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, oracle.ErrProviderUnavailable.Error())
	recon.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
}

func TestExecuteReconFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)

	f.recon.On("Snapshot", mock.Anything, mock.Anything).
		Return(schemas.ReconSnapshot{}, errors.New("scanner unreachable"))

	result := f.exec.Execute(context.Background(), Spec{Target: "192.168.1.10"})

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "scanner unreachable")
}

func TestExecuteOracleFailureIsFailedStatus(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)

	f.recon.On("Snapshot", mock.Anything, mock.Anything).Return(aliveSnapshot("192.168.1.10"), nil)
	f.backend.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exhausted"))

	result := f.exec.Execute(context.Background(), Spec{Target: "192.168.1.10"})

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, agent.WalkFailed, result.WalkStatus)
	assert.Contains(t, result.Error, "quota exhausted")
	f.sandbox.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestExecuteKnowledgeFailureDegrades(t *testing.T) {
	defer goleak.VerifyNone(t)
	knowledge := new(mocks.MockKnowledgeStore)
	knowledge.On("IngestSnapshot", mock.Anything, mock.Anything).Return(errors.New("database down"))
	knowledge.On("VulnerabilitiesForTarget", mock.Anything, mock.Anything).
		Return(nil, errors.New("database down"))

	f := newFixture(t, knowledge)
	f.recon.On("Snapshot", mock.Anything, mock.Anything).Return(aliveSnapshot("192.168.1.10"), nil)
	f.backend.On("Generate", mock.Anything, mock.Anything).Return(approvingPlan, nil)
	f.sandbox.On("Execute", mock.Anything, mock.Anything).Return(schemas.ExecutionReport{
		Outcome:          schemas.OutcomeSuccess,
		ExecutionTimeSec: 1.0,
	}, nil)

	result := f.exec.Execute(context.Background(), Spec{Target: "192.168.1.10"})

	// The mission continues with recon-only context.
	assert.Equal(t, StatusCompleted, result.Status)
	knowledge.AssertExpectations(t)
}

func TestExecuteSandboxErrorRecordedAsErrorOutcome(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := newFixture(t, nil)

	f.recon.On("Snapshot", mock.Anything, mock.Anything).Return(aliveSnapshot("192.168.1.10"), nil)
	f.backend.On("Generate", mock.Anything, mock.Anything).Return(approvingPlan, nil)
	f.sandbox.On("Execute", mock.Anything, mock.Anything).
		Return(schemas.ExecutionReport{}, errors.New("container runtime unavailable"))

	result := f.exec.Execute(ctx, Spec{Target: "192.168.1.10"})

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, schemas.OutcomeError, result.Outcome)

	stored, err := f.store.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, schemas.OutcomeError, stored[0].Outcome)
	assert.Contains(t, stored[0].ErrorMessage, "container runtime unavailable")
}

func TestExecuteDryRunSkipsSandbox(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	f := newFixture(t, nil)

	f.recon.On("Snapshot", mock.Anything, mock.Anything).Return(aliveSnapshot("192.168.1.10"), nil)
	f.backend.On("Generate", mock.Anything, mock.Anything).Return(approvingPlan, nil)

	result := f.exec.Execute(ctx, Spec{Target: "192.168.1.10", DryRun: true})

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, agent.WalkApproved, result.WalkStatus)
	f.sandbox.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)

	stored, err := f.store.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, stored, "dry runs record nothing")
}

func TestExecuteCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)

	f.recon.On("Snapshot", mock.Anything, mock.Anything).Return(aliveSnapshot("192.168.1.10"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.exec.Execute(ctx, Spec{Target: "192.168.1.10"})
	assert.Equal(t, StatusCancelled, result.Status)
}

func TestExecuteAllRunsEveryMission(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, nil)

	f.recon.On("Snapshot", mock.Anything, "192.168.1.10").Return(aliveSnapshot("192.168.1.10"), nil)
	f.recon.On("Snapshot", mock.Anything, "192.168.1.11").
		Return(schemas.ReconSnapshot{}, errors.New("unreachable"))
	f.recon.On("Snapshot", mock.Anything, "192.168.1.12").
		Return(schemas.ReconSnapshot{Target: "192.168.1.12"}, nil)
	f.backend.On("Generate", mock.Anything, mock.Anything).Return(approvingPlan, nil)
	f.sandbox.On("Execute", mock.Anything, mock.Anything).Return(schemas.ExecutionReport{
		Outcome: schemas.OutcomeSuccess,
	}, nil)

	results := f.exec.ExecuteAll(context.Background(), []Spec{
		{Target: "192.168.1.10"},
		{Target: "192.168.1.11"},
		{Target: "192.168.1.12"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, StatusCompleted, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, StatusNoTargetsFound, results[2].Status)
}

func TestExploitRefFromPlan(t *testing.T) {
	t.Run("extracts fenced code block", func(t *testing.T) {
		plan := "Here is the exploit:\n```python\nimport os\nos.system('id')\n```\nDone."
		ref := exploitRefFromPlan(plan, "python")
		assert.Equal(t, "import os\nos.system('id')", ref.CodeRef)
		assert.Equal(t, "python", ref.Language)
		assert.Equal(t, 2, ref.CodeLength)
	})

	t.Run("falls back to plan text", func(t *testing.T) {
		ref := exploitRefFromPlan("no code here", "python")
		assert.Equal(t, "no code here", ref.CodeRef)
		assert.Equal(t, 1, ref.CodeLength)
	})
}

func TestStrategyLabel(t *testing.T) {
	assert.Equal(t, "direct_execution", strategyLabel(`{"selected_approach": "direct_execution"}`))
	assert.Equal(t, "phishing", strategyLabel(`{"strategy": "phishing"}`))
	assert.Equal(t, "adaptive", strategyLabel("free text plan"))
}
