package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attendance-ledger-api/internal/ledger"
	"github.com/attendance-ledger-api/internal/models"
)

// rosterRepo is the concrete implementation of RosterRepository
type rosterRepo struct {
	store TableStore
	table string
}

// NewRosterRepo creates a new roster repository
func NewRosterRepo(store TableStore, table string) RosterRepository {
	return &rosterRepo{store: store, table: table}
}

// ReadAll returns the roster, skipping rows without a name
func (r *rosterRepo) ReadAll(ctx context.Context) ([]models.Person, error) {
	cells, err := r.store.ReadAllRows(ctx, r.table)
	if errors.Is(err, ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}

	people := make([]models.Person, 0, len(cells))
	for _, c := range cells {
		if p, ok := ledger.PersonFromCells(c); ok {
			people = append(people, p)
		}
	}
	return people, nil
}

// Append adds one person
func (r *rosterRepo) Append(ctx context.Context, person models.Person) error {
	if err := r.store.AppendRow(ctx, r.table, ledger.PersonCells(person)); err != nil {
		return fmt.Errorf("appending person: %w", err)
	}
	return nil
}

// ReplaceAll rewrites the whole roster
func (r *rosterRepo) ReplaceAll(ctx context.Context, people []models.Person) error {
	rows := make([][]string, 0, len(people))
	for _, p := range people {
		rows = append(rows, ledger.PersonCells(p))
	}
	if err := r.store.OverwriteAllRows(ctx, r.table, rows); err != nil {
		return fmt.Errorf("overwriting roster: %w", err)
	}
	return nil
}
