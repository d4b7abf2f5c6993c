package schemas

import (
	"context"
)

// -- Collaborator Interfaces --
//
// The mission core consumes reconnaissance, knowledge and sandbox
// execution exclusively through these contracts. The concrete
// implementations (port scanner, CVE catalog, container sandbox) live
// outside the decision loop and are injected at setup.

// LLMBackend defines a standard interface for a single decision backend,
// abstracting the specifics of the underlying provider (e.g. Gemini, an
// OpenAI-compatible endpoint).
type LLMBackend interface {
	// Generate produces a text completion for the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Name returns the configured backend name used for routing.
	Name() string
}

// ReconProvider supplies a structured snapshot of a target
// (hosts -> services -> banners) ahead of the strategize phase.
type ReconProvider interface {
	Snapshot(ctx context.Context, target string) (ReconSnapshot, error)
}

// KnowledgeStore is the contract for the knowledge collaborator: it
// ingests reconnaissance results and answers vulnerability lookups.
type KnowledgeStore interface {
	// IngestSnapshot records the hosts and services from a recon snapshot.
	IngestSnapshot(ctx context.Context, snap ReconSnapshot) error
	// AddVulnerability associates a known vulnerability with a target.
	AddVulnerability(ctx context.Context, target string, vuln Vulnerability) error
	// VulnerabilitiesForTarget returns every known vulnerability recorded
	// against the target, most severe first.
	VulnerabilitiesForTarget(ctx context.Context, target string) ([]Vulnerability, error)
}

// SandboxExecutor is the execution collaborator. It runs an exploit
// reference in an isolated environment and reports the outcome; the core
// treats both sides of the call as opaque.
type SandboxExecutor interface {
	Execute(ctx context.Context, ref ExploitRef) (ExecutionReport, error)
}
