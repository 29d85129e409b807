package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/models"
)

func xlsxConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{
			Backend:  config.BackendXLSX,
			XLSXPath: filepath.Join(t.TempDir(), "nested", "asistencia.xlsx"),
		},
		Ledger: config.LedgerConfig{ReportWindowDays: 30, Timezone: "UTC"},
		Import: config.ImportConfig{MaxErrors: 100},
	}
}

func TestNew_XLSXBackendPersists(t *testing.T) {
	cfg := xlsxConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.HealthCheck(ctx))

	headcount := 9
	result, err := a.Services.Attendance.SubmitAttendance(ctx,
		models.Session{Submitter: "Camila Prada"},
		&models.SubmitRequest{Date: "2024-03-01", Center: "Nudo a Nudo", Headcount: &headcount, NewAttendees: []string{"Ana"}},
	)
	require.NoError(t, err)
	require.True(t, result.Accepted, result.Reason)
	require.NoError(t, a.Close())

	// A second instance reads what the first wrote
	b, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	current, err := b.Services.Attendance.GetCurrentAttendance(ctx, models.AttendanceFilter{})
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, 9, current[0].Headcount)
	assert.Equal(t, result.Record.RecordID, current[0].RecordID)

	people, err := b.Services.Roster.ListPeople(ctx, models.CenterNudoANudo, false)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Ana", people[0].Name)
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := xlsxConfig(t)
	cfg.Storage.Backend = "sheets"

	_, _, err := OpenStore(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestTablesFrom(t *testing.T) {
	tables := TablesFrom(config.StorageConfig{LedgerTable: "ledger"})
	assert.Equal(t, "ledger", tables.Ledger)
	assert.Equal(t, "personas", tables.Roster)
}

func TestNew_BadPolicyFile(t *testing.T) {
	cfg := xlsxConfig(t)
	cfg.Policy.File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
