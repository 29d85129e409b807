package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/attendance-ledger-api/internal/database"
)

// pgStore keeps each sheet as rows of TEXT[] in PostgreSQL
type pgStore struct {
	db *database.DB
}

// NewPostgresStore creates a TableStore backed by the sheet_tables and
// sheet_rows tables
func NewPostgresStore(db *database.DB) TableStore {
	return &pgStore{db: db}
}

// EnsureTable registers table and its header
func (s *pgStore) EnsureTable(ctx context.Context, table string, header []string) error {
	query := `
		INSERT INTO sheet_tables (name, header)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, table, pq.Array(header))
	return err
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func tableExists(ctx context.Context, q queryRower, table string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sheet_tables WHERE name = $1)`, table).Scan(&exists)
	return exists, err
}

// ReadAllRows returns the data rows of table in insertion order
func (s *pgStore) ReadAllRows(ctx context.Context, table string) ([][]string, error) {
	ok, err := tableExists(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT cells FROM sheet_rows WHERE table_name = $1 ORDER BY id`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var cells pq.StringArray
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		out = append(out, []string(cells))
	}
	return out, rows.Err()
}

// AppendRow inserts one row
func (s *pgStore) AppendRow(ctx context.Context, table string, row []string) error {
	query := `
		INSERT INTO sheet_rows (table_name, cells)
		SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM sheet_tables WHERE name = $1)
	`
	result, err := s.db.ExecContext(ctx, query, table, cellsArray(row))
	if err != nil {
		return err
	}
	return checkAppended(result, table)
}

// checkAppended maps an insert that matched no sheet_tables row to
// ErrTableNotFound
func checkAppended(result sql.Result, table string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	return nil
}

// AppendRows inserts rows in one transaction using the COPY protocol
func (s *pgStore) AppendRows(ctx context.Context, table string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := copyRows(ctx, tx, table, rows); err != nil {
		return err
	}
	return tx.Commit()
}

// OverwriteAllRows replaces the rows of table in one transaction, so
// readers see either the old or the new content
func (s *pgStore) OverwriteAllRows(ctx context.Context, table string, rows [][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var name string
	err = tx.QueryRowContext(ctx, `SELECT name FROM sheet_tables WHERE name = $1 FOR UPDATE`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE table_name = $1`, table); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := copyRows(ctx, tx, table, rows); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// copyRows streams rows into sheet_rows with COPY; ids keep row order
func copyRows(ctx context.Context, tx *sql.Tx, table string, rows [][]string) error {
	ok, err := tableExists(ctx, tx, table)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("sheet_rows", "table_name", "cells"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, table, cellsArray(row)); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}
	return nil
}

// cellsArray never yields NULL, which the cells column rejects
func cellsArray(row []string) interface{} {
	if row == nil {
		row = []string{}
	}
	return pq.Array(row)
}
