package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attendance-ledger-api/internal/ledger"
	"github.com/attendance-ledger-api/internal/models"
)

// ledgerRepo is the concrete implementation of LedgerRepository
type ledgerRepo struct {
	store TableStore
	table string
}

// NewLedgerRepo creates a new ledger repository
func NewLedgerRepo(store TableStore, table string) LedgerRepository {
	return &ledgerRepo{store: store, table: table}
}

// ReadAll returns every ledger row in write order. A missing table is an
// empty ledger.
func (r *ledgerRepo) ReadAll(ctx context.Context) ([]models.LedgerRow, error) {
	cells, err := r.store.ReadAllRows(ctx, r.table)
	if errors.Is(err, ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	rows := make([]models.LedgerRow, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, ledger.RowFromCells(c))
	}
	return rows, nil
}

// Append writes one new ledger version
func (r *ledgerRepo) Append(ctx context.Context, row models.LedgerRow) error {
	if err := r.store.AppendRow(ctx, r.table, ledger.Cells(row)); err != nil {
		return fmt.Errorf("appending ledger row: %w", err)
	}
	return nil
}
