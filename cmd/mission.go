// File: cmd/mission.go
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/api/schemas"
	"github.com/xkilldash9x/ares-cli/internal/collab"
	"github.com/xkilldash9x/ares-cli/internal/config"
	"github.com/xkilldash9x/ares-cli/internal/knowledge"
	"github.com/xkilldash9x/ares-cli/internal/mission"
	"github.com/xkilldash9x/ares-cli/internal/observability"
	"github.com/xkilldash9x/ares-cli/internal/oracle"
	"github.com/xkilldash9x/ares-cli/internal/rl"
)

func newMissionCmd() *cobra.Command {
	var (
		reconFile       string
		reconEndpoint   string
		sandboxEndpoint string
		dryRun          bool
	)

	missionCmd := &cobra.Command{
		Use:   "mission [targets...]",
		Short: "Run the decision loop against one or more targets",
		Long: `Runs the full mission loop for each target: reconnaissance snapshot,
knowledge ingestion, the strategize/plan/critique walk, sandbox handoff,
and one recorded experience per execution report. Results are printed
as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			ctx := cmd.Context()

			if reconFile == "" && reconEndpoint == "" {
				return fmt.Errorf("a reconnaissance source is required: --recon-file or --recon-endpoint")
			}
			if sandboxEndpoint == "" && !dryRun {
				return fmt.Errorf("--sandbox-endpoint is required unless --dry-run is set")
			}

			var recon schemas.ReconProvider
			if reconFile != "" {
				recon = collab.NewFileReconProvider(reconFile)
			} else {
				recon = collab.NewHTTPReconProvider(reconEndpoint, logger)
			}

			var sandbox schemas.SandboxExecutor
			if sandboxEndpoint != "" {
				sandbox = collab.NewHTTPSandboxExecutor(sandboxEndpoint, logger)
			}

			exec, cleanup, err := buildExecutor(ctx, appCfg, recon, sandbox, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			specs := make([]mission.Spec, len(args))
			for i, target := range args {
				specs[i] = mission.Spec{Target: target, DryRun: dryRun}
			}

			results := exec.ExecuteAll(ctx, specs)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return fmt.Errorf("failed to encode results: %w", err)
			}

			for _, r := range results {
				if r.Status == mission.StatusFailed {
					return fmt.Errorf("mission against %s failed: %s", r.Target, r.Error)
				}
			}
			return nil
		},
	}

	missionCmd.Flags().StringVar(&reconFile, "recon-file", "", "JSON reconnaissance snapshot to use instead of a live scan")
	missionCmd.Flags().StringVar(&reconEndpoint, "recon-endpoint", "", "reconnaissance collaborator endpoint")
	missionCmd.Flags().StringVar(&sandboxEndpoint, "sandbox-endpoint", "", "sandbox collaborator endpoint")
	missionCmd.Flags().BoolVar(&dryRun, "dry-run", false, "stop after the workflow walk; do not execute or record")
	return missionCmd
}

// buildExecutor assembles the oracle, experience store, knowledge store
// and learning loop from configuration. The returned cleanup closes
// whatever was opened.
func buildExecutor(
	ctx context.Context,
	cfg *config.Config,
	recon schemas.ReconProvider,
	sandbox schemas.SandboxExecutor,
	logger *zap.Logger,
) (*mission.Executor, func(), error) {
	o, err := oracle.NewFromConfig(cfg.Oracle, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build decision backends: %w", err)
	}

	store, closeStore, err := buildExperienceStore(ctx, cfg.Experience, logger)
	if err != nil {
		return nil, nil, err
	}

	var ks schemas.KnowledgeStore
	closeKnowledge := func() {}
	if cfg.Knowledge.Enabled {
		pool, err := pgxpool.New(ctx, cfg.Knowledge.PostgresURL)
		if err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("failed to connect to knowledge database: %w", err)
		}
		ks, err = knowledge.New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			closeStore()
			return nil, nil, fmt.Errorf("failed to initialize knowledge store: %w", err)
		}
		closeKnowledge = pool.Close
	}

	loop := rl.NewLoop(store, cfg.Policy, logger)
	exec := mission.New(o, recon, ks, sandbox, loop, cfg.Mission, logger)

	cleanup := func() {
		closeKnowledge()
		closeStore()
	}
	return exec, cleanup, nil
}

func buildExperienceStore(ctx context.Context, cfg config.ExperienceConfig, logger *zap.Logger) (rl.ExperienceStore, func(), error) {
	switch cfg.Backend {
	case "redis":
		store, err := rl.NewRedisStore(ctx, cfg.RedisURL, cfg.Capacity, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis experience store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close redis experience store", zap.Error(err))
			}
		}, nil
	default:
		return rl.NewMemoryStore(cfg.Capacity), func() {}, nil
	}
}

func init() {
	rootCmd.AddCommand(newMissionCmd())
}
