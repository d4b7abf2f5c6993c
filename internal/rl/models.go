// internal/rl/models.go
package rl

import (
	"time"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

// ExploitAttempt is the record of a single completed execution. It is
// immutable once stored; the reward is computed exactly once at record
// time.
type ExploitAttempt struct {
	AttemptID string    `json:"attempt_id"`
	MissionID string    `json:"mission_id"`
	Timestamp time.Time `json:"timestamp"`

	// Context
	Target            string `json:"target"`
	VulnerabilityType string `json:"vulnerability_type"`
	CVEID             string `json:"cve_id,omitempty"`

	// Exploit details
	CodeRef               string   `json:"code_ref"`
	CodeLength            int      `json:"code_length"`
	ObfuscationTechniques []string `json:"obfuscation_techniques,omitempty"`
	Language              string   `json:"language"`

	// Execution
	Outcome       schemas.Outcome `json:"outcome"`
	ExecutionTime float64         `json:"execution_time"` // seconds
	ErrorMessage  string          `json:"error_message,omitempty"`

	Reward float64 `json:"reward"`

	// Metadata
	AgentStrategy string `json:"agent_strategy,omitempty"`
	LLMModelUsed  string `json:"llm_model_used,omitempty"`
}

// PerformanceSnapshot aggregates a filtered window of attempts. Derived
// on demand, never persisted.
type PerformanceSnapshot struct {
	SuccessRate      float64 `json:"success_rate"`
	DetectionRate    float64 `json:"detection_rate"`
	TotalAttempts    int     `json:"total_attempts"`
	AvgReward        float64 `json:"avg_reward"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
	VulnerabilityType string `json:"vulnerability_type"`
}

// StrategyRanking summarizes one strategy label over its successful
// attempts.
type StrategyRanking struct {
	Strategy     string  `json:"strategy"`
	AvgReward    float64 `json:"avg_reward"`
	SuccessCount int     `json:"success_count"`
	MaxReward    float64 `json:"max_reward"`
}

// FailurePattern is one normalized error message and how often it was
// seen.
type FailurePattern struct {
	Error string `json:"error"`
	Count int    `json:"count"`
}

// FailureAnalysis groups recent failures by error message.
type FailureAnalysis struct {
	TotalFailures int              `json:"total_failures"`
	UniqueErrors  int              `json:"unique_errors"`
	TopPatterns   []FailurePattern `json:"top_patterns"`
}

// PerformanceReport is the sole externally consumed aggregate contract.
// Field names are stable; downstream consumers parse them.
type PerformanceReport struct {
	OverallPerformance PerformanceSnapshot `json:"overall_performance"`
	BestStrategies     []StrategyRanking   `json:"best_strategies"`
	FailureAnalysis    FailureAnalysis     `json:"failure_analysis"`
	GeneratedAt        time.Time           `json:"generated_at"`
}
