package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// xlsxStore keeps every table as a sheet of one workbook. Row 1 holds the
// header. Access to the file is serialized; each call opens the workbook,
// applies one change and saves it through a rename.
type xlsxStore struct {
	path string
	mu   sync.Mutex
}

// NewXLSXStore creates a TableStore backed by the workbook at path
func NewXLSXStore(path string) TableStore {
	return &xlsxStore{path: path}
}

func (s *xlsxStore) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("opening workbook: %w", err)
	}
	return f, false, nil
}

// save writes to a sibling temp file first so a crash never leaves a
// truncated workbook behind
func (s *xlsxStore) save(f *excelize.File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating workbook directory: %w", err)
	}
	tmp := filepath.Join(dir, "."+strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))+".tmp.xlsx")
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing workbook: %w", err)
	}
	return nil
}

func hasSheet(f *excelize.File, table string) bool {
	idx, err := f.GetSheetIndex(table)
	return err == nil && idx >= 0
}

// EnsureTable adds a sheet with header when missing
func (s *xlsxStore) EnsureTable(ctx context.Context, table string, header []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, fresh, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if hasSheet(f, table) {
		return nil
	}

	idx, err := f.NewSheet(table)
	if err != nil {
		return fmt.Errorf("creating sheet %s: %w", table, err)
	}
	if err := f.SetSheetRow(table, "A1", toCells(header)); err != nil {
		return fmt.Errorf("writing header of %s: %w", table, err)
	}
	if fresh && table != defaultSheet {
		f.SetActiveSheet(idx)
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("removing default sheet: %w", err)
		}
	}
	return s.save(f)
}

// ReadAllRows returns the data rows below the header. Blank rows are skipped.
func (s *xlsxStore) ReadAllRows(ctx context.Context, table string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	f, _, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !hasSheet(f, table) {
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	rows, err := f.GetRows(table)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", table, err)
	}

	var out [][]string
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// AppendRow writes row after the last used row
func (s *xlsxStore) AppendRow(ctx context.Context, table string, row []string) error {
	return s.AppendRows(ctx, table, [][]string{row})
}

// AppendRows writes rows after the last used row in one save
func (s *xlsxStore) AppendRows(ctx context.Context, table string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openTable(table)
	if err != nil {
		return err
	}
	defer f.Close()

	existing, err := f.GetRows(table)
	if err != nil {
		return fmt.Errorf("reading sheet %s: %w", table, err)
	}
	next := len(existing) + 1
	if next < 2 {
		next = 2
	}
	for i, row := range rows {
		if err := writeRow(f, table, next+i, row, 0); err != nil {
			return err
		}
	}
	return s.save(f)
}

// OverwriteAllRows replaces every data row. Rows past the new end are removed
// and shorter rows are padded so no stale cells survive.
func (s *xlsxStore) OverwriteAllRows(ctx context.Context, table string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openTable(table)
	if err != nil {
		return err
	}
	defer f.Close()

	existing, err := f.GetRows(table)
	if err != nil {
		return fmt.Errorf("reading sheet %s: %w", table, err)
	}

	for i, row := range rows {
		width := 0
		if i+1 < len(existing) {
			width = len(existing[i+1])
		}
		if err := writeRow(f, table, i+2, row, width); err != nil {
			return err
		}
	}
	for r := len(existing); r > len(rows)+1; r-- {
		if err := f.RemoveRow(table, r); err != nil {
			return fmt.Errorf("removing row %d of %s: %w", r, table, err)
		}
	}
	return s.save(f)
}

func (s *xlsxStore) openTable(table string) (*excelize.File, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	f, _, err := s.open()
	if err != nil {
		return nil, err
	}
	if !hasSheet(f, table) {
		f.Close()
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	return f, nil
}

// writeRow sets row at rowNum, padding with empty cells up to width
func writeRow(f *excelize.File, table string, rowNum int, row []string, width int) error {
	cells := row
	if len(row) < width {
		cells = make([]string, width)
		copy(cells, row)
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(table, cell, toCells(cells)); err != nil {
		return fmt.Errorf("writing row %d of %s: %w", rowNum, table, err)
	}
	return nil
}

func toCells(values []string) *[]interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
