// internal/knowledge/postgres.go

// Package knowledge is the PostgreSQL-backed knowledge collaborator: it
// retains reconnaissance results across missions and answers known-
// vulnerability lookups for a target.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can run against a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements schemas.KnowledgeStore on PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("knowledge"),
	}, nil
}

// IngestSnapshot upserts every host and open port from a recon snapshot
// in one transaction, batched.
func (s *Store) IngestSnapshot(ctx context.Context, snap schemas.ReconSnapshot) error {
	if snap.Empty() {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	batch := &pgx.Batch{}
	now := time.Now().UTC()

	sqlHosts := `
        INSERT INTO hosts (ip, target, hostname, os, status, first_seen, last_seen)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        ON CONFLICT (ip) DO UPDATE SET
            hostname = EXCLUDED.hostname,
            os = EXCLUDED.os,
            status = EXCLUDED.status,
            last_seen = EXCLUDED.last_seen;
    `
	sqlServices := `
        INSERT INTO services (host_ip, port, protocol, service, version, state, first_seen, last_seen)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
        ON CONFLICT (host_ip, port, protocol) DO UPDATE SET
            service = EXCLUDED.service,
            version = EXCLUDED.version,
            state = EXCLUDED.state,
            last_seen = EXCLUDED.last_seen;
    `

	queued := 0
	for _, host := range snap.Hosts {
		batch.Queue(sqlHosts, host.IP, snap.Target, host.Hostname, host.OS, host.Status, now)
		queued++
		for _, port := range host.OpenPorts {
			batch.Queue(sqlServices, host.IP, port.Port, port.Protocol, port.Service, port.Version, port.State, now)
			queued++
		}
	}

	br := tx.SendBatch(ctx, batch)
	if br == nil {
		return fmt.Errorf("failed to send batch: batch results is nil")
	}
	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to execute batch insert (index %d): %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debug("Ingested recon snapshot",
		zap.String("target", snap.Target),
		zap.Int("hosts", len(snap.Hosts)),
	)
	return nil
}

// AddVulnerability associates a known vulnerability with a target.
func (s *Store) AddVulnerability(ctx context.Context, target string, vuln schemas.Vulnerability) error {
	sql := `
        INSERT INTO vulnerabilities (target, cve_id, service, type, severity, description, cvss_score, observed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (target, cve_id, service) DO UPDATE SET
            severity = EXCLUDED.severity,
            description = EXCLUDED.description,
            cvss_score = EXCLUDED.cvss_score,
            observed_at = EXCLUDED.observed_at;
    `
	if _, err := s.pool.Exec(ctx, sql,
		target, vuln.CVEID, vuln.Service, vuln.Type,
		vuln.Severity, vuln.Description, vuln.CVSSScore, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert vulnerability: %w", err)
	}
	return nil
}

// VulnerabilitiesForTarget returns every known vulnerability recorded
// against the target, most severe first.
func (s *Store) VulnerabilitiesForTarget(ctx context.Context, target string) ([]schemas.Vulnerability, error) {
	sql := `
        SELECT cve_id, service, type, severity, description, cvss_score
        FROM vulnerabilities
        WHERE target = $1
        ORDER BY cvss_score DESC, cve_id;
    `
	rows, err := s.pool.Query(ctx, sql, target)
	if err != nil {
		return nil, fmt.Errorf("failed to query vulnerabilities: %w", err)
	}
	defer rows.Close()

	var vulns []schemas.Vulnerability
	for rows.Next() {
		var v schemas.Vulnerability
		if err := rows.Scan(&v.CVEID, &v.Service, &v.Type, &v.Severity, &v.Description, &v.CVSSScore); err != nil {
			return nil, fmt.Errorf("failed to scan vulnerability row: %w", err)
		}
		vulns = append(vulns, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vulnerability rows: %w", err)
	}
	return vulns, nil
}
