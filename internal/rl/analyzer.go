// internal/rl/analyzer.go
package rl

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

// Window sizes for the bounded analytics scans. Analytics are advisory
// inputs to future prompts, so a bounded recent window is enough.
const (
	successRateWindow   = 1000
	failurePatternWindow = 500
	strategyWindow      = 100
	maxFailurePatterns  = 10
)

// Analyzer derives aggregate statistics from the experience store. All
// results are computed on demand and never persisted; an empty dataset
// always produces a well-formed zero result, never an error.
type Analyzer struct {
	store  ExperienceStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyzer creates an Analyzer over the given store.
func NewAnalyzer(store ExperienceStore, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		store:  store,
		logger: logger.Named("analyzer"),
		now:    time.Now,
	}
}

// AnalyzeSuccessRate computes success and detection rates over a recent
// window, optionally filtered by vulnerability type and bounded by
// windowHours. An empty filtered set yields a zeroed snapshot.
func (a *Analyzer) AnalyzeSuccessRate(ctx context.Context, vulnType string, windowHours int) (PerformanceSnapshot, error) {
	attempts, err := a.store.GetRecent(ctx, successRateWindow)
	if err != nil {
		return PerformanceSnapshot{}, err
	}

	cutoff := a.now().Add(-time.Duration(windowHours) * time.Hour)

	var (
		total      int
		successful int
		detected   int
		sumReward  float64
		sumTime    float64
	)
	for _, attempt := range attempts {
		if vulnType != "" && attempt.VulnerabilityType != vulnType {
			continue
		}
		if attempt.Timestamp.Before(cutoff) {
			continue
		}
		total++
		sumReward += attempt.Reward
		sumTime += attempt.ExecutionTime
		switch attempt.Outcome {
		case schemas.OutcomeSuccess:
			successful++
		case schemas.OutcomeDetected:
			detected++
		}
	}

	label := vulnType
	if label == "" {
		label = "all"
	}
	if total == 0 {
		return PerformanceSnapshot{VulnerabilityType: label}, nil
	}

	return PerformanceSnapshot{
		SuccessRate:       float64(successful) / float64(total),
		DetectionRate:     float64(detected) / float64(total),
		TotalAttempts:     total,
		AvgReward:         sumReward / float64(total),
		AvgExecutionTime:  sumTime / float64(total),
		VulnerabilityType: label,
	}, nil
}

// IdentifyFailurePatterns groups recent Failure and Error records by
// normalized error message and returns the most frequent groups.
func (a *Analyzer) IdentifyFailurePatterns(ctx context.Context) (FailureAnalysis, error) {
	attempts, err := a.store.GetRecent(ctx, failurePatternWindow)
	if err != nil {
		return FailureAnalysis{}, err
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	totalFailures := 0
	for _, attempt := range attempts {
		if attempt.Outcome != schemas.OutcomeFailure && attempt.Outcome != schemas.OutcomeError {
			continue
		}
		totalFailures++
		msg := attempt.ErrorMessage
		if msg == "" {
			msg = "Unknown error"
		}
		if _, seen := counts[msg]; !seen {
			order = append(order, msg)
		}
		counts[msg]++
	}

	if totalFailures == 0 {
		return FailureAnalysis{TopPatterns: []FailurePattern{}}, nil
	}

	patterns := make([]FailurePattern, 0, len(order))
	for _, msg := range order {
		patterns = append(patterns, FailurePattern{Error: msg, Count: counts[msg]})
	}
	// Stable sort keeps first-seen order among equal counts.
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Count > patterns[j].Count
	})
	if len(patterns) > maxFailurePatterns {
		patterns = patterns[:maxFailurePatterns]
	}

	return FailureAnalysis{
		TotalFailures: totalFailures,
		UniqueErrors:  len(counts),
		TopPatterns:   patterns,
	}, nil
}

// GetBestStrategies ranks strategy labels over successful attempts by
// mean reward, descending, with ties broken by first-seen order.
func (a *Analyzer) GetBestStrategies(ctx context.Context, topN int) ([]StrategyRanking, error) {
	successful, err := a.store.GetByPredicate(ctx, func(attempt ExploitAttempt) bool {
		return attempt.Outcome == schemas.OutcomeSuccess
	}, strategyWindow)
	if err != nil {
		return nil, err
	}

	type agg struct {
		sum   float64
		max   float64
		count int
	}
	byStrategy := make(map[string]*agg)
	order := make([]string, 0)

	for _, attempt := range successful {
		strategy := attempt.AgentStrategy
		if strategy == "" {
			strategy = "unknown"
		}
		entry, seen := byStrategy[strategy]
		if !seen {
			entry = &agg{max: attempt.Reward}
			byStrategy[strategy] = entry
			order = append(order, strategy)
		}
		entry.sum += attempt.Reward
		entry.count++
		if attempt.Reward > entry.max {
			entry.max = attempt.Reward
		}
	}

	rankings := make([]StrategyRanking, 0, len(order))
	for _, strategy := range order {
		entry := byStrategy[strategy]
		rankings = append(rankings, StrategyRanking{
			Strategy:     strategy,
			AvgReward:    entry.sum / float64(entry.count),
			SuccessCount: entry.count,
			MaxReward:    entry.max,
		})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].AvgReward > rankings[j].AvgReward
	})
	if len(rankings) > topN {
		rankings = rankings[:topN]
	}
	return rankings, nil
}
