package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/attendance-ledger-api/internal/models"
)

var importHeader = []string{
	"id", "estado", "clave_idempotencia", "usuario", "lineas", "parseadas", "omitidas",
	"duplicadas", "agregadas", "actualizadas", "total_final", "modo", "duracion_ms", "creado",
}

var importErrorHeader = []string{"id_importacion", "linea", "campo", "mensaje", "valor"}

// importRepo is the concrete implementation of ImportRepository
type importRepo struct {
	store       TableStore
	table       string
	errorsTable string
}

// NewImportRepo creates a new import audit repository
func NewImportRepo(store TableStore, table, errorsTable string) ImportRepository {
	return &importRepo{store: store, table: table, errorsTable: errorsTable}
}

// Create records a finished import run
func (r *importRepo) Create(ctx context.Context, run *models.ImportRun) error {
	row := []string{
		run.ID,
		string(run.Status),
		run.IdempotencyKey,
		run.SubmittedBy,
		strconv.Itoa(run.LinesTotal),
		strconv.Itoa(run.Parsed),
		strconv.Itoa(run.Skipped),
		strconv.Itoa(run.Duplicates),
		strconv.Itoa(run.Added),
		strconv.Itoa(run.Updated),
		strconv.Itoa(run.FinalTotal),
		run.ModeUsed,
		strconv.FormatInt(run.DurationMs, 10),
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.AppendRow(ctx, r.table, row); err != nil {
		return fmt.Errorf("recording import: %w", err)
	}
	return nil
}

// GetByID retrieves an import by ID
func (r *importRepo) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	return r.find(ctx, func(run *models.ImportRun) bool { return run.ID == id })
}

// GetByIdempotencyKey retrieves an import by idempotency key
func (r *importRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	if key == "" {
		return nil, nil
	}
	return r.find(ctx, func(run *models.ImportRun) bool { return run.IdempotencyKey == key })
}

// find returns the last run matching, or nil when there is none
func (r *importRepo) find(ctx context.Context, match func(*models.ImportRun) bool) (*models.ImportRun, error) {
	rows, err := r.store.ReadAllRows(ctx, r.table)
	if errors.Is(err, ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading imports: %w", err)
	}

	for i := len(rows) - 1; i >= 0; i-- {
		run := importFromCells(rows[i])
		if match(run) {
			return run, nil
		}
	}
	return nil, nil
}

func importFromCells(cells []string) *models.ImportRun {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	atoi := func(i int) int {
		n, _ := strconv.Atoi(get(i))
		return n
	}

	run := &models.ImportRun{
		ID:             get(0),
		Status:         models.ImportStatus(get(1)),
		IdempotencyKey: get(2),
		SubmittedBy:    get(3),
		LinesTotal:     atoi(4),
		Parsed:         atoi(5),
		Skipped:        atoi(6),
		Duplicates:     atoi(7),
		Added:          atoi(8),
		Updated:        atoi(9),
		FinalTotal:     atoi(10),
		ModeUsed:       get(11),
	}
	run.DurationMs, _ = strconv.ParseInt(get(12), 10, 64)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, get(13))
	return run
}

// AddErrors records the rejected lines of an import in one write
func (r *importRepo) AddErrors(ctx context.Context, importID string, errs []models.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		valueStr := ""
		if e.Value != nil {
			switch v := e.Value.(type) {
			case string:
				valueStr = v
			default:
				valueStr = fmt.Sprint(v)
			}
		}
		rows = append(rows, []string{importID, strconv.Itoa(e.Line), e.Field, e.Message, valueStr})
	}

	if err := r.store.AppendRows(ctx, r.errorsTable, rows); err != nil {
		return fmt.Errorf("recording import errors: %w", err)
	}
	return nil
}

// GetErrors retrieves the rejected lines of an import in line order
func (r *importRepo) GetErrors(ctx context.Context, importID string, limit int) ([]models.ValidationError, error) {
	rows, err := r.store.ReadAllRows(ctx, r.errorsTable)
	if errors.Is(err, ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading import errors: %w", err)
	}

	var out []models.ValidationError
	for _, row := range rows {
		if len(row) == 0 || row[0] != importID {
			continue
		}
		e := models.ValidationError{}
		if len(row) > 1 {
			e.Line, _ = strconv.Atoi(row[1])
		}
		if len(row) > 2 {
			e.Field = row[2]
		}
		if len(row) > 3 {
			e.Message = row[3]
		}
		if len(row) > 4 && row[4] != "" {
			e.Value = row[4]
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
