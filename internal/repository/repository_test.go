package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/attendance-ledger-api/internal/mocks"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/repository"
)

// stores returns every TableStore implementation that runs without a server
func stores(t *testing.T) map[string]repository.TableStore {
	return map[string]repository.TableStore{
		"memory": mocks.NewMockTableStore(),
		"xlsx":   repository.NewXLSXStore(filepath.Join(t.TempDir(), "ledger.xlsx")),
	}
}

func TestTableStore_Contract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.ReadAllRows(ctx, "asistencia")
			if !errors.Is(err, repository.ErrTableNotFound) {
				t.Fatalf("Expected ErrTableNotFound before EnsureTable, got %v", err)
			}
			if err := store.AppendRow(ctx, "asistencia", []string{"x"}); !errors.Is(err, repository.ErrTableNotFound) {
				t.Fatalf("Expected ErrTableNotFound on append, got %v", err)
			}

			if err := store.EnsureTable(ctx, "asistencia", []string{"a", "b", "c"}); err != nil {
				t.Fatalf("EnsureTable failed: %v", err)
			}
			// Second call is a no-op
			if err := store.EnsureTable(ctx, "asistencia", []string{"a", "b", "c"}); err != nil {
				t.Fatalf("EnsureTable (again) failed: %v", err)
			}

			rows, err := store.ReadAllRows(ctx, "asistencia")
			if err != nil {
				t.Fatalf("ReadAllRows failed: %v", err)
			}
			if len(rows) != 0 {
				t.Errorf("Expected header to be excluded, got %v", rows)
			}

			if err := store.AppendRow(ctx, "asistencia", []string{"1", "Calle Belén", "12"}); err != nil {
				t.Fatalf("AppendRow failed: %v", err)
			}
			if err := store.AppendRows(ctx, "asistencia", [][]string{
				{"2", "Nudo a Nudo", "7"},
				{"3", "Casa Maranatha", "9"},
			}); err != nil {
				t.Fatalf("AppendRows failed: %v", err)
			}

			rows, err = store.ReadAllRows(ctx, "asistencia")
			if err != nil {
				t.Fatalf("ReadAllRows failed: %v", err)
			}
			want := [][]string{
				{"1", "Calle Belén", "12"},
				{"2", "Nudo a Nudo", "7"},
				{"3", "Casa Maranatha", "9"},
			}
			if !reflect.DeepEqual(rows, want) {
				t.Errorf("Expected %v, got %v", want, rows)
			}

			if err := store.OverwriteAllRows(ctx, "asistencia", [][]string{{"9", "Nudo a Nudo"}}); err != nil {
				t.Fatalf("OverwriteAllRows failed: %v", err)
			}
			rows, err = store.ReadAllRows(ctx, "asistencia")
			if err != nil {
				t.Fatalf("ReadAllRows failed: %v", err)
			}
			if !reflect.DeepEqual(rows, [][]string{{"9", "Nudo a Nudo"}}) {
				t.Errorf("Expected overwritten rows without stale cells, got %v", rows)
			}

			// Other tables are independent
			if err := store.EnsureTable(ctx, "personas", []string{"nombre"}); err != nil {
				t.Fatalf("EnsureTable failed: %v", err)
			}
			rows, err = store.ReadAllRows(ctx, "personas")
			if err != nil || len(rows) != 0 {
				t.Errorf("Expected empty personas table, got %v (err %v)", rows, err)
			}
		})
	}
}

func TestXLSXStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "ledger.xlsx")

	first := repository.NewXLSXStore(path)
	if err := first.EnsureTable(ctx, "asistencia", []string{"fecha"}); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}
	if err := first.AppendRow(ctx, "asistencia", []string{"2024-03-01"}); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}

	second := repository.NewXLSXStore(path)
	rows, err := second.ReadAllRows(ctx, "asistencia")
	if err != nil {
		t.Fatalf("ReadAllRows failed: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "2024-03-01" {
		t.Errorf("Expected persisted row, got %v", rows)
	}
}

func TestRepositories_LedgerAndRoster(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repos := repository.New(store, repository.DefaultTables)

			// Missing tables read as empty
			rows, err := repos.Ledger.ReadAll(ctx)
			if err != nil || len(rows) != 0 {
				t.Fatalf("Expected empty ledger before schema, got %v (err %v)", rows, err)
			}

			if err := repos.EnsureSchema(ctx); err != nil {
				t.Fatalf("EnsureSchema failed: %v", err)
			}

			row := models.LedgerRow{
				Timestamp: "2024-03-01 18:00:00.000", Date: "2024-03-01", Year: "2024",
				Center: "Calle Belén", Space: "General", Headcount: "15", Coordinator: "Natasha Carrari",
				DayType: "Regular", SubmittedBy: "Natasha Carrari", Action: "Create", RecordID: "r-1",
			}
			if err := repos.Ledger.Append(ctx, row); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			rows, err = repos.Ledger.ReadAll(ctx)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(rows) != 1 || rows[0] != row {
				t.Errorf("Expected %+v, got %+v", row, rows)
			}

			people := []models.Person{
				{Name: "Ana Gómez", Frequency: models.FrequencyWeekly, Center: models.CenterCalleBelen, Active: true},
				{Name: "Luis Paz", Frequency: models.FrequencyUnset, Center: models.CenterNudoANudo, Active: false},
			}
			if err := repos.Roster.ReplaceAll(ctx, people); err != nil {
				t.Fatalf("ReplaceAll failed: %v", err)
			}
			if err := repos.Roster.Append(ctx, models.Person{Name: "Eva", Center: models.CenterCasaMaranatha, Active: true}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			got, err := repos.Roster.ReadAll(ctx)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(got) != 3 || got[0] != people[0] || got[1] != people[1] || got[2].Name != "Eva" {
				t.Errorf("Unexpected roster %+v", got)
			}
		})
	}
}

func TestImportRepository(t *testing.T) {
	repos, _ := mocks.NewMockRepositories()
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &models.ImportRun{
		ID: "imp-1", Status: models.ImportStatusCompleted, IdempotencyKey: "key-1", SubmittedBy: "Julieta",
		LinesTotal: 5, Parsed: 3, Skipped: 1, Duplicates: 1, Added: 2, Updated: 1, FinalTotal: 9,
		ModeUsed: "comma", DurationMs: 12, CreatedAt: created,
	}
	if err := repos.Import.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	byID, err := repos.Import.GetByID(ctx, "imp-1")
	if err != nil || byID == nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !reflect.DeepEqual(byID, run) {
		t.Errorf("Expected %+v, got %+v", run, byID)
	}

	byKey, err := repos.Import.GetByIdempotencyKey(ctx, "key-1")
	if err != nil || byKey == nil || byKey.ID != "imp-1" {
		t.Errorf("GetByIdempotencyKey returned %+v (err %v)", byKey, err)
	}

	missing, err := repos.Import.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for a missing import, got %+v, %v", missing, err)
	}
	none, _ := repos.Import.GetByIdempotencyKey(ctx, "")
	if none != nil {
		t.Error("Empty idempotency key must never match")
	}

	errs := []models.ValidationError{
		{Line: 2, Field: "line", Message: "fewer than 3 fields", Value: "Ana"},
		{Line: 4, Field: "name", Message: "empty name"},
	}
	if err := repos.Import.AddErrors(ctx, "imp-1", errs); err != nil {
		t.Fatalf("AddErrors failed: %v", err)
	}
	if err := repos.Import.AddErrors(ctx, "imp-2", errs[:1]); err != nil {
		t.Fatalf("AddErrors failed: %v", err)
	}

	got, err := repos.Import.GetErrors(ctx, "imp-1", 0)
	if err != nil {
		t.Fatalf("GetErrors failed: %v", err)
	}
	if !reflect.DeepEqual(got, errs) {
		t.Errorf("Expected %+v, got %+v", errs, got)
	}

	limited, _ := repos.Import.GetErrors(ctx, "imp-1", 1)
	if len(limited) != 1 {
		t.Errorf("Expected limit to apply, got %d errors", len(limited))
	}
}
