// internal/collab/collab.go

// Package collab holds the thin adapters for the external collaborators
// the mission core consumes: where reconnaissance snapshots come from
// and how exploit references reach the sandbox. The interesting systems
// live on the far side of these calls.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

const defaultHTTPTimeout = 60 * time.Second

// FileReconProvider serves a reconnaissance snapshot from a JSON file,
// for offline runs and replays of a previous scan.
type FileReconProvider struct {
	path string
}

// NewFileReconProvider points the provider at a snapshot file.
func NewFileReconProvider(path string) *FileReconProvider {
	return &FileReconProvider{path: path}
}

// Snapshot loads the snapshot. The file's target field is overridden by
// the requested target when the file leaves it empty.
func (p *FileReconProvider) Snapshot(_ context.Context, target string) (schemas.ReconSnapshot, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return schemas.ReconSnapshot{}, fmt.Errorf("failed to read recon snapshot %s: %w", p.path, err)
	}
	var snap schemas.ReconSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return schemas.ReconSnapshot{}, fmt.Errorf("failed to parse recon snapshot %s: %w", p.path, err)
	}
	if snap.Target == "" {
		snap.Target = target
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}
	return snap, nil
}

// HTTPReconProvider asks a reconnaissance service for a snapshot.
type HTTPReconProvider struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPReconProvider creates a provider against the given endpoint.
func NewHTTPReconProvider(endpoint string, logger *zap.Logger) *HTTPReconProvider {
	return &HTTPReconProvider{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger.Named("collab.recon"),
	}
}

// Snapshot requests a scan of the target, retrying transient failures.
func (p *HTTPReconProvider) Snapshot(ctx context.Context, target string) (schemas.ReconSnapshot, error) {
	body, err := json.Marshal(map[string]string{"target": target})
	if err != nil {
		return schemas.ReconSnapshot{}, fmt.Errorf("failed to marshal recon request: %w", err)
	}

	var snap schemas.ReconSnapshot
	err = postJSON(ctx, p.httpClient, p.logger, p.endpoint, body, &snap)
	if err != nil {
		return schemas.ReconSnapshot{}, fmt.Errorf("recon collaborator: %w", err)
	}
	return snap, nil
}

// HTTPSandboxExecutor hands an exploit reference to a sandbox service
// and returns its execution report.
type HTTPSandboxExecutor struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSandboxExecutor creates an executor against the given endpoint.
func NewHTTPSandboxExecutor(endpoint string, logger *zap.Logger) *HTTPSandboxExecutor {
	return &HTTPSandboxExecutor{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger.Named("collab.sandbox"),
	}
}

// Execute submits the reference and waits for the report.
func (e *HTTPSandboxExecutor) Execute(ctx context.Context, ref schemas.ExploitRef) (schemas.ExecutionReport, error) {
	body, err := json.Marshal(ref)
	if err != nil {
		return schemas.ExecutionReport{}, fmt.Errorf("failed to marshal exploit ref: %w", err)
	}

	var report schemas.ExecutionReport
	err = postJSON(ctx, e.httpClient, e.logger, e.endpoint, body, &report)
	if err != nil {
		return schemas.ExecutionReport{}, fmt.Errorf("sandbox collaborator: %w", err)
	}
	if !report.Outcome.Valid() {
		return schemas.ExecutionReport{}, fmt.Errorf("sandbox collaborator: unknown outcome %q", report.Outcome)
	}
	return report, nil
}

// postJSON posts the body and decodes the JSON response, retrying
// transient HTTP failures with exponential backoff.
func postJSON(ctx context.Context, client *http.Client, logger *zap.Logger, endpoint string, body []byte, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	bo.MaxInterval = 30 * time.Second

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			logger.Warn("Network error, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("status %d, body: %s", resp.StatusCode, string(respBody))
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
				return err
			default:
				return backoff.Permanent(err)
			}
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}
