// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

// -- Collaborator Mocks --
//
// Testify mocks for the external collaborator contracts, shared by the
// mission executor tests.

// MockLLMBackend mocks schemas.LLMBackend.
type MockLLMBackend struct {
	mock.Mock
}

func (m *MockLLMBackend) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMBackend) Name() string {
	args := m.Called()
	return args.String(0)
}

// MockReconProvider mocks schemas.ReconProvider.
type MockReconProvider struct {
	mock.Mock
}

func (m *MockReconProvider) Snapshot(ctx context.Context, target string) (schemas.ReconSnapshot, error) {
	args := m.Called(ctx, target)
	return args.Get(0).(schemas.ReconSnapshot), args.Error(1)
}

// MockKnowledgeStore mocks schemas.KnowledgeStore.
type MockKnowledgeStore struct {
	mock.Mock
}

func (m *MockKnowledgeStore) IngestSnapshot(ctx context.Context, snap schemas.ReconSnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockKnowledgeStore) AddVulnerability(ctx context.Context, target string, vuln schemas.Vulnerability) error {
	args := m.Called(ctx, target, vuln)
	return args.Error(0)
}

func (m *MockKnowledgeStore) VulnerabilitiesForTarget(ctx context.Context, target string) ([]schemas.Vulnerability, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.Vulnerability), args.Error(1)
}

// MockSandboxExecutor mocks schemas.SandboxExecutor.
type MockSandboxExecutor struct {
	mock.Mock
}

func (m *MockSandboxExecutor) Execute(ctx context.Context, ref schemas.ExploitRef) (schemas.ExecutionReport, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(schemas.ExecutionReport), args.Error(1)
}
