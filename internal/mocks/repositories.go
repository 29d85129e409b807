package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/attendance-ledger-api/internal/repository"
)

// MockTable is one in-memory sheet
type MockTable struct {
	Header []string
	Rows   [][]string
}

// MockTableStore is an in-memory implementation of TableStore
type MockTableStore struct {
	mu     sync.Mutex
	Tables map[string]*MockTable

	ReadError      error
	AppendError    error
	OverwriteError error

	ReadCalls      int
	AppendCalls    int
	OverwriteCalls int
}

// Verify interface compliance
var _ repository.TableStore = (*MockTableStore)(nil)

func NewMockTableStore() *MockTableStore {
	return &MockTableStore{Tables: make(map[string]*MockTable)}
}

func (m *MockTableStore) EnsureTable(ctx context.Context, table string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tables[table]; !ok {
		m.Tables[table] = &MockTable{Header: copyRow(header)}
	}
	return nil
}

func (m *MockTableStore) ReadAllRows(ctx context.Context, table string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls++
	if m.ReadError != nil {
		return nil, m.ReadError
	}
	t, ok := m.Tables[table]
	if !ok {
		return nil, fmt.Errorf("%s: %w", table, repository.ErrTableNotFound)
	}
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, copyRow(r))
	}
	return out, nil
}

func (m *MockTableStore) AppendRow(ctx context.Context, table string, row []string) error {
	return m.AppendRows(ctx, table, [][]string{row})
}

func (m *MockTableStore) AppendRows(ctx context.Context, table string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendError != nil {
		return m.AppendError
	}
	t, ok := m.Tables[table]
	if !ok {
		return fmt.Errorf("%s: %w", table, repository.ErrTableNotFound)
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, copyRow(r))
	}
	return nil
}

func (m *MockTableStore) OverwriteAllRows(ctx context.Context, table string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OverwriteCalls++
	if m.OverwriteError != nil {
		return m.OverwriteError
	}
	t, ok := m.Tables[table]
	if !ok {
		return fmt.Errorf("%s: %w", table, repository.ErrTableNotFound)
	}
	t.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		t.Rows = append(t.Rows, copyRow(r))
	}
	return nil
}

// Rows returns a snapshot of the rows of table
func (m *MockTableStore) Rows(table string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tables[table]
	if !ok {
		return nil
	}
	return t.Rows
}

func copyRow(r []string) []string {
	out := make([]string, len(r))
	copy(out, r)
	return out
}

// NewMockRepositories returns repositories over a fresh in-memory store
// with every table created
func NewMockRepositories() (*repository.Repositories, *MockTableStore) {
	store := NewMockTableStore()
	repos := repository.New(store, repository.DefaultTables)
	if err := repos.EnsureSchema(context.Background()); err != nil {
		panic(err)
	}
	return repos, store
}
