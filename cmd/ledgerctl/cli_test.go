package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/policy"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORAGE_BACKEND", "xlsx")
	t.Setenv("XLSX_PATH", filepath.Join(dir, "asistencia.xlsx"))
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LEDGER_SUBMITTER", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := newCLI(&out, &errOut).execute(context.Background(), args)
	return out.String(), err
}

func TestSubmitThenCurrent(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "submit", "--submitter", "Natasha Carrari",
		"--date", "01/03/2024", "--center", "calle belen", "--headcount", "12", "--attendee", "Ana")
	require.NoError(t, err, out)

	var result models.SubmitResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Accepted)
	assert.Equal(t, 1, result.AddedPeople)

	_, err = run(t, "submit", "--submitter", "Estefanía Eberle",
		"--date", "2024-03-01", "--center", "Calle Belén", "--headcount", "15")
	assert.ErrorContains(t, err, "submission rejected")

	out, err = run(t, "current", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "2024-03-01,Calle Belén,General,12")
}

func TestSubmit_RequiresFlags(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "submit", "--submitter", "Natasha Carrari", "--center", "Calle Belén")
	assert.Error(t, err)
}

func TestImportRoster(t *testing.T) {
	dir := setupEnv(t)
	file := filepath.Join(dir, "personas.csv")
	require.NoError(t, os.WriteFile(file, []byte("Nombre,Frecuencia,Centro\nAna,Semanal,Calle Belén\nJuan,Diaria,Nudo a Nudo\n"), 0o644))

	out, err := run(t, "import-roster", file, "--submitter", "Natasha Carrari", "--idempotency-key", "k1")
	require.NoError(t, err, out)

	var result models.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, "comma", result.ModeUsed)

	_, err = run(t, "import-roster", file)
	assert.Error(t, err, "imports need a submitter")
}

func TestRepair_ApplyNeedsSubmitter(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "repair")
	require.NoError(t, err)
	var report models.RepairReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.Rows)

	_, err = run(t, "repair", "--apply")
	assert.ErrorContains(t, err, "--submitter")
}

func TestAccess(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "access", "Casa Maranatha", "FINES", "Guillermina Cazenave")
	require.NoError(t, err)
	var decision policy.Decision
	require.NoError(t, json.Unmarshal([]byte(out), &decision))
	assert.True(t, decision.Allowed)

	_, err = run(t, "access", "Casa Maranatha", "", "Florencia")
	assert.Error(t, err)
}

func TestMigrate_NeedsPostgres(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "migrate", "up")
	assert.ErrorContains(t, err, "STORAGE_BACKEND")

	_, err = run(t, "migrate", "sideways")
	assert.Error(t, err)
}
