package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meatledger/backend/internal/config"
	"meatledger/backend/internal/domain"
)

const driftedSnapshot = `{
  "customers": [
    {"id": "cus-hotel", "name": "Hotel Paradise", "type": "hotel", "pendingAmount": 500}
  ],
  "suppliers": [
    {"id": "sup-farm", "name": "Green Farm", "debt": "1200"}
  ],
  "orders": [
    {"id": "ord-1", "customerId": "cus-hotel", "total": 300, "status": "pending"},
    {"id": "ord-2", "customerId": "cus-ghost", "total": 90, "status": "pending"}
  ],
  "transactions": [
    {"id": "txn-1", "entityId": "sup-farm", "entityType": "supplier", "type": "expense", "amount": 1200}
  ]
}`

func writeSnapshotFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (int, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), config.Config{LogLevel: "error"}, args, &stdout, &stderr)
	return code, &stdout
}

func TestValidateReportsDriftWithExitCode2(t *testing.T) {
	path := writeSnapshotFile(t, driftedSnapshot)

	code, stdout := runCLI(t, "-snapshot", path, "validate")
	assert.Equal(t, exitInvalid, code)

	var report domain.BalanceReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.False(t, report.IsValid)
	assert.Len(t, report.Summary.CustomerDiscrepancies, 1)
	assert.Empty(t, report.Summary.SupplierDiscrepancies)
	assert.Contains(t, report.Errors, "Orphaned order ord-2 references non-existent customer cus-ghost")
}

func TestFixWritesCorrectedSnapshot(t *testing.T) {
	path := writeSnapshotFile(t, driftedSnapshot)
	out := filepath.Join(t.TempDir(), "fixed.json")

	code, stdout := runCLI(t, "-snapshot", path, "-out", out, "fix")
	require.Equal(t, exitOK, code)

	var fixed domain.FixResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &fixed))
	require.Len(t, fixed.Corrections, 1)
	assert.Equal(t, "cus-hotel", fixed.Corrections[0].ID)
	assert.Equal(t, "300", fixed.Corrections[0].Corrected.String())

	// Balances now agree; only the orphan is left.
	code, stdout = runCLI(t, "-snapshot", out, "validate")
	assert.Equal(t, exitInvalid, code)
	var report domain.BalanceReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Empty(t, report.Summary.CustomerDiscrepancies)
	assert.Len(t, report.Errors, 1)
}

func TestPurgeOrphansNeedsConfirm(t *testing.T) {
	path := writeSnapshotFile(t, driftedSnapshot)
	out := filepath.Join(t.TempDir(), "purged.json")

	code, stdout := runCLI(t, "-snapshot", path, "-out", out, "purge-orphans")
	assert.Equal(t, exitInvalid, code)
	var pending domain.PurgeResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &pending))
	assert.Len(t, pending.Orphans, 1)
	assert.Zero(t, pending.Deleted)

	code, stdout = runCLI(t, "-snapshot", path, "-out", out, "purge-orphans", "-confirm")
	require.Equal(t, exitOK, code)
	var purged domain.PurgeResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &purged))
	assert.Equal(t, 1, purged.Deleted)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var written map[string][]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &written))
	assert.Len(t, written["orders"], 1)
	assert.Len(t, written["audit_logs"], 1)
}

func TestRunUsageErrors(t *testing.T) {
	code, _ := runCLI(t)
	assert.Equal(t, exitUsage, code)

	code, _ = runCLI(t, "-snapshot", writeSnapshotFile(t, "{}"), "rebalance")
	assert.Equal(t, exitUsage, code)

	code, _ = runCLI(t, "validate", "extra")
	assert.Equal(t, exitUsage, code)
}

func TestRunRequiresADataSource(t *testing.T) {
	code, _ := runCLI(t, "validate")
	assert.Equal(t, exitFailure, code)
}

func TestValidateCleanSnapshotExitsZero(t *testing.T) {
	path := writeSnapshotFile(t, `{"customers": [{"id": "c1", "name": "A", "type": "random", "pendingAmount": 0}]}`)

	code, _ := runCLI(t, "-snapshot", path, "validate")
	assert.Equal(t, exitOK, code)
}
