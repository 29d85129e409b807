package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attendance-ledger-api/internal/ledger"
	"github.com/attendance-ledger-api/internal/models"
)

// ErrTableNotFound is returned when a table has not been created yet
var ErrTableNotFound = errors.New("table not found")

// TableStore is the spreadsheet-shaped storage every repository sits on.
// Each call is atomic on its own; nothing is atomic across calls.
type TableStore interface {
	// EnsureTable creates table with header if it does not exist
	EnsureTable(ctx context.Context, table string, header []string) error
	// ReadAllRows returns the data rows of table in storage order, without the header
	ReadAllRows(ctx context.Context, table string) ([][]string, error)
	// AppendRow adds one row after the last data row
	AppendRow(ctx context.Context, table string, row []string) error
	// AppendRows adds several rows in one call
	AppendRows(ctx context.Context, table string, rows [][]string) error
	// OverwriteAllRows replaces every data row, keeping the header
	OverwriteAllRows(ctx context.Context, table string, rows [][]string) error
}

// LedgerRepository defines the append-only attendance ledger
type LedgerRepository interface {
	ReadAll(ctx context.Context) ([]models.LedgerRow, error)
	Append(ctx context.Context, row models.LedgerRow) error
}

// RosterRepository defines the people table
type RosterRepository interface {
	ReadAll(ctx context.Context) ([]models.Person, error)
	Append(ctx context.Context, person models.Person) error
	ReplaceAll(ctx context.Context, people []models.Person) error
}

// ImportRepository defines the roster import audit log
type ImportRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id string) (*models.ImportRun, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error)
	AddErrors(ctx context.Context, importID string, errs []models.ValidationError) error
	GetErrors(ctx context.Context, importID string, limit int) ([]models.ValidationError, error)
}

// Tables names the tables (sheets) the repositories use
type Tables struct {
	Ledger       string
	Roster       string
	Imports      string
	ImportErrors string
}

// DefaultTables are the sheet names used by the original spreadsheet
var DefaultTables = Tables{
	Ledger:       "asistencia",
	Roster:       "personas",
	Imports:      "importaciones",
	ImportErrors: "errores_importacion",
}

// Repositories holds all repository interfaces
type Repositories struct {
	Store  TableStore
	Ledger LedgerRepository
	Roster RosterRepository
	Import ImportRepository

	tables Tables
}

// New creates all repositories on top of store
func New(store TableStore, tables Tables) *Repositories {
	return &Repositories{
		Store:  store,
		Ledger: NewLedgerRepo(store, tables.Ledger),
		Roster: NewRosterRepo(store, tables.Roster),
		Import: NewImportRepo(store, tables.Imports, tables.ImportErrors),
		tables: tables,
	}
}

// EnsureSchema creates every table the repositories need
func (r *Repositories) EnsureSchema(ctx context.Context) error {
	schema := []struct {
		table  string
		header []string
	}{
		{r.tables.Ledger, ledger.LedgerHeader},
		{r.tables.Roster, ledger.RosterHeader},
		{r.tables.Imports, importHeader},
		{r.tables.ImportErrors, importErrorHeader},
	}
	for _, s := range schema {
		if err := r.Store.EnsureTable(ctx, s.table, s.header); err != nil {
			return fmt.Errorf("ensuring table %s: %w", s.table, err)
		}
	}
	return nil
}
