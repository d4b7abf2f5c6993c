// internal/knowledge/postgres_test.go
package knowledge

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/ares-cli/api/schemas"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex for SQL
// expectations.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

const (
	sqlInsertHost = `
        INSERT INTO hosts (ip, target, hostname, os, status, first_seen, last_seen)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        ON CONFLICT (ip) DO UPDATE SET
            hostname = EXCLUDED.hostname,
            os = EXCLUDED.os,
            status = EXCLUDED.status,
            last_seen = EXCLUDED.last_seen;
    `
	sqlInsertService = `
        INSERT INTO services (host_ip, port, protocol, service, version, state, first_seen, last_seen)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
        ON CONFLICT (host_ip, port, protocol) DO UPDATE SET
            service = EXCLUDED.service,
            version = EXCLUDED.version,
            state = EXCLUDED.state,
            last_seen = EXCLUDED.last_seen;
    `
)

func testSnapshot() schemas.ReconSnapshot {
	return schemas.ReconSnapshot{
		Target: "192.168.1.10",
		Hosts: []schemas.Host{
			{
				IP:     "192.168.1.10",
				OS:     "Ubuntu 22.04",
				Status: "alive",
				OpenPorts: []schemas.PortScan{
					{Port: 80, Protocol: "tcp", Service: "nginx", Version: "1.18.0", State: "open"},
				},
			},
		},
		CapturedAt: time.Now().UTC(),
	}
}

func TestNewVerifiesConnection(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	pingErr := errors.New("database unavailable")
	mockPool.ExpectPing().WillReturnError(pingErr)

	_, err = New(context.Background(), mockPool, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestIngestSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts hosts and services in one transaction", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing()
		store, err := New(ctx, mockPool, zaptest.NewLogger(t))
		require.NoError(t, err)

		mockPool.ExpectBegin()
		batch := mockPool.ExpectBatch()
		batch.ExpectExec(flexibleSQLMatcher(sqlInsertHost)).
			WithArgs("192.168.1.10", "192.168.1.10", "", "Ubuntu 22.04", "alive", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec(flexibleSQLMatcher(sqlInsertService)).
			WithArgs("192.168.1.10", 80, "tcp", "nginx", "1.18.0", "open", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback()

		require.NoError(t, store.IngestSnapshot(ctx, testSnapshot()))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("empty snapshot is a no-op", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing()
		store, err := New(ctx, mockPool, zaptest.NewLogger(t))
		require.NoError(t, err)

		require.NoError(t, store.IngestSnapshot(ctx, schemas.ReconSnapshot{Target: "10.0.0.1"}))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("propagates batch failure and rolls back", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing()
		store, err := New(ctx, mockPool, zaptest.NewLogger(t))
		require.NoError(t, err)

		insertErr := errors.New("constraint violation")
		mockPool.ExpectBegin()
		batch := mockPool.ExpectBatch()
		batch.ExpectExec(flexibleSQLMatcher(sqlInsertHost)).
			WithArgs("192.168.1.10", "192.168.1.10", "", "Ubuntu 22.04", "alive", pgxmock.AnyArg()).
			WillReturnError(insertErr)
		mockPool.ExpectRollback()

		err = store.IngestSnapshot(ctx, testSnapshot())
		require.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
	})
}

func TestAddVulnerability(t *testing.T) {
	ctx := context.Background()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing()
	store, err := New(ctx, mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)

	vuln := schemas.Vulnerability{
		CVEID:     "CVE-2021-44228",
		Service:   "log4j",
		Type:      "RCE",
		Severity:  "critical",
		CVSSScore: 10.0,
	}
	mockPool.ExpectExec("INSERT INTO vulnerabilities").
		WithArgs("192.168.1.10", vuln.CVEID, vuln.Service, vuln.Type,
			vuln.Severity, vuln.Description, vuln.CVSSScore, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.AddVulnerability(ctx, "192.168.1.10", vuln))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestVulnerabilitiesForTarget(t *testing.T) {
	ctx := context.Background()

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectPing()
	store, err := New(ctx, mockPool, zaptest.NewLogger(t))
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"cve_id", "service", "type", "severity", "description", "cvss_score"}).
		AddRow("CVE-2021-44228", "log4j", "RCE", "critical", "JNDI injection", 10.0).
		AddRow("CVE-2019-0708", "rdp", "RCE", "critical", "BlueKeep", 9.8)
	mockPool.ExpectQuery("SELECT cve_id, service, type, severity, description, cvss_score").
		WithArgs("192.168.1.10").
		WillReturnRows(rows)

	vulns, err := store.VulnerabilitiesForTarget(ctx, "192.168.1.10")
	require.NoError(t, err)
	require.Len(t, vulns, 2)
	assert.Equal(t, "CVE-2021-44228", vulns[0].CVEID)
	assert.Equal(t, "BlueKeep", vulns[1].Description)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
