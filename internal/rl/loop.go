// internal/rl/loop.go
package rl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/internal/config"
)

// Loop ties the experience store, analyzer and prompt optimizer into one
// feedback loop. The mission executor records one attempt per completed
// execution; the optimizer's feedback flows into the next mission's
// prompts.
type Loop struct {
	store     ExperienceStore
	analyzer  *Analyzer
	optimizer *PromptOptimizer
	logger    *zap.Logger
	now       func() time.Time
}

// NewLoop wires the feedback loop over the given store.
func NewLoop(store ExperienceStore, policy config.PolicyConfig, logger *zap.Logger) *Loop {
	analyzer := NewAnalyzer(store, logger)
	return &Loop{
		store:     store,
		analyzer:  analyzer,
		optimizer: NewPromptOptimizer(analyzer, policy, logger),
		logger:    logger.Named("rl"),
		now:       time.Now,
	}
}

// Store exposes the underlying experience store.
func (l *Loop) Store() ExperienceStore { return l.store }

// Analyzer exposes the performance analyzer.
func (l *Loop) Analyzer() *Analyzer { return l.analyzer }

// Optimizer exposes the prompt optimizer.
func (l *Loop) Optimizer() *PromptOptimizer { return l.optimizer }

// RecordAttempt computes the attempt's reward and stores it. The reward
// is written into the record before storage; a stored attempt is never
// re-scored.
func (l *Loop) RecordAttempt(ctx context.Context, attempt *ExploitAttempt, detected bool) error {
	attempt.Reward = Reward(attempt.Outcome, attempt.ExecutionTime, attempt.CodeLength, detected)

	if err := l.store.Add(ctx, *attempt); err != nil {
		return fmt.Errorf("recording attempt %s: %w", attempt.AttemptID, err)
	}

	l.logger.Info("Recorded attempt",
		zap.String("attempt_id", attempt.AttemptID),
		zap.String("outcome", string(attempt.Outcome)),
		zap.Float64("reward", attempt.Reward),
	)
	return nil
}

// PerformanceReport assembles the externally consumed aggregate report.
func (l *Loop) PerformanceReport(ctx context.Context) (*PerformanceReport, error) {
	overall, err := l.analyzer.AnalyzeSuccessRate(ctx, "", defaultAnalysisWindowHours)
	if err != nil {
		return nil, fmt.Errorf("building performance report: %w", err)
	}
	strategies, err := l.analyzer.GetBestStrategies(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("building performance report: %w", err)
	}
	failures, err := l.analyzer.IdentifyFailurePatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("building performance report: %w", err)
	}

	return &PerformanceReport{
		OverallPerformance: overall,
		BestStrategies:     strategies,
		FailureAnalysis:    failures,
		GeneratedAt:        l.now().UTC(),
	}, nil
}
