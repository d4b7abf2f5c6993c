// internal/rl/optimizer.go
package rl

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/internal/config"
)

const defaultAnalysisWindowHours = 24

// PromptOptimizer turns aggregate performance into adaptive prompt
// feedback for the role agents. The output clauses appear in a fixed
// order and each is independently optional; with nothing to report the
// result is an empty string, a valid baseline.
type PromptOptimizer struct {
	analyzer *Analyzer
	cfg      config.PolicyConfig
	logger   *zap.Logger
}

// NewPromptOptimizer creates an optimizer with the given policy
// thresholds.
func NewPromptOptimizer(analyzer *Analyzer, cfg config.PolicyConfig, logger *zap.Logger) *PromptOptimizer {
	return &PromptOptimizer{
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger.Named("optimizer"),
	}
}

// OptimizePrompt composes feedback text for the given role and
// vulnerability type: a caution clause on low success rate, a stealth
// clause on high detection rate, the top successful strategies, and the
// single most frequent failure, in that order.
func (p *PromptOptimizer) OptimizePrompt(ctx context.Context, role, vulnType string) (string, error) {
	stats, err := p.analyzer.AnalyzeSuccessRate(ctx, vulnType, defaultAnalysisWindowHours)
	if err != nil {
		return "", fmt.Errorf("analyzing success rate: %w", err)
	}
	strategies, err := p.analyzer.GetBestStrategies(ctx, p.cfg.TopStrategies)
	if err != nil {
		return "", fmt.Errorf("ranking strategies: %w", err)
	}
	failures, err := p.analyzer.IdentifyFailurePatterns(ctx)
	if err != nil {
		return "", fmt.Errorf("identifying failure patterns: %w", err)
	}

	var clauses []string

	if stats.TotalAttempts > 0 && stats.SuccessRate < p.cfg.LowSuccessRate {
		clauses = append(clauses, fmt.Sprintf(
			"IMPORTANT: Success rate for %s is low (%.1f%%). Be extra careful with payload generation and validation.",
			stats.VulnerabilityType, stats.SuccessRate*100,
		))
	}

	if stats.DetectionRate > p.cfg.HighDetectionRate {
		clauses = append(clauses, fmt.Sprintf(
			"WARNING: Detection rate is high (%.1f%%). Prioritize stealth and obfuscation techniques.",
			stats.DetectionRate*100,
		))
	}

	if len(strategies) > 0 {
		labels := make([]string, 0, len(strategies))
		for _, s := range strategies {
			labels = append(labels, s.Strategy)
		}
		clauses = append(clauses, "Previously successful strategies: "+strings.Join(labels, ", "))
	}

	if len(failures.TopPatterns) > 0 {
		clauses = append(clauses, fmt.Sprintf(
			"Common failure: '%s'. Avoid this pattern.", failures.TopPatterns[0].Error,
		))
	}

	feedback := strings.Join(clauses, "\n\n")
	p.logger.Debug("Generated adaptive prompt feedback",
		zap.String("role", role),
		zap.String("vulnerability_type", vulnType),
		zap.Int("clauses", len(clauses)),
	)
	return feedback, nil
}
