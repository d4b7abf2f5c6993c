// api/schemas/schemas.go
package schemas

import (
	"time"
)

// Outcome is the closed classification of an exploit attempt's execution
// result as reported by the sandbox collaborator.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialSuccess Outcome = "partial_success"
	OutcomeFailure        Outcome = "failure"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeDetected       Outcome = "detected"
	OutcomeError          Outcome = "error"
)

// Valid reports whether o is one of the known outcome kinds.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomePartialSuccess, OutcomeFailure,
		OutcomeTimeout, OutcomeDetected, OutcomeError:
		return true
	}
	return false
}

// PortScan describes a single open port discovered on a host.
type PortScan struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Service  string `json:"service"`
	Version  string `json:"version,omitempty"`
	State    string `json:"state"`
}

// Host is one reconnaissance-discovered machine with its exposed services.
type Host struct {
	IP        string     `json:"ip"`
	Hostname  string     `json:"hostname,omitempty"`
	OS        string     `json:"os,omitempty"`
	Status    string     `json:"status"`
	OpenPorts []PortScan `json:"open_ports"`
}

// ReconSnapshot is the structured, read-only view of a target produced by
// the reconnaissance collaborator and attached to the mission state before
// the strategize phase. The core never mutates it.
type ReconSnapshot struct {
	Target     string    `json:"target"`
	Hosts      []Host    `json:"hosts"`
	CapturedAt time.Time `json:"captured_at"`
}

// Empty reports whether the snapshot found no live hosts.
func (r ReconSnapshot) Empty() bool {
	return len(r.Hosts) == 0
}

// Vulnerability is a known weakness supplied by the knowledge collaborator.
type Vulnerability struct {
	CVEID       string  `json:"cve_id,omitempty"`
	Service     string  `json:"service"`
	Type        string  `json:"type"`
	Severity    string  `json:"severity"`
	Description string  `json:"description,omitempty"`
	CVSSScore   float64 `json:"cvss_score,omitempty"`
}

// ExploitRef is the handoff to the execution collaborator: a reference to
// generated exploit code plus the metadata the sandbox needs. The core
// never executes code itself.
type ExploitRef struct {
	CodeRef     string   `json:"code_ref"`
	Language    string   `json:"language"`
	CodeLength  int      `json:"code_length"`
	Obfuscation []string `json:"obfuscation,omitempty"`
}

// ExecutionReport is what the execution collaborator reports back for a
// single attempt.
type ExecutionReport struct {
	Outcome          Outcome `json:"outcome"`
	ExecutionTimeSec float64 `json:"execution_time_sec"`
	Detected         bool    `json:"detected"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

// GenerationOptions controls the text generation process of a decision
// backend, such as creativity (temperature) and output format.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`
	ForceJSONFormat bool    `json:"force_json_format"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
}

// GenerationRequest encapsulates a complete request to a decision backend,
// including the role-scoped system prompt and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}
