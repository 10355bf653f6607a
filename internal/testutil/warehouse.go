package testutil

import (
	"context"
	"sync"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/repository"
)

// MemoryWarehouse is an in-memory repository.Warehouse.
type MemoryWarehouse struct {
	mu          sync.Mutex
	tables      map[string][]domain.StagingRecord
	ensureCalls int
	insertErrs  map[string]*fault
	rejections  map[string]string
	queryRows   []repository.Row
	queries     []string
}

func NewMemoryWarehouse() *MemoryWarehouse {
	return &MemoryWarehouse{
		tables:     make(map[string][]domain.StagingRecord),
		insertErrs: make(map[string]*fault),
		rejections: make(map[string]string),
	}
}

// FailInsert makes inserts of identifier fail with a transport error for
// the next times calls (negative for every call).
func (w *MemoryWarehouse) FailInsert(identifier string, err error, times int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.insertErrs[identifier] = &fault{err: err, times: times}
}

// Reject makes every insert of identifier report a row error.
func (w *MemoryWarehouse) Reject(identifier, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejections[identifier] = reason
}

// SetQueryRows sets the rows returned by every Query call.
func (w *MemoryWarehouse) SetQueryRows(rows []repository.Row) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queryRows = rows
}

// Rows returns a copy of the table's rows in insert order.
func (w *MemoryWarehouse) Rows(table string) []domain.StagingRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.StagingRecord(nil), w.tables[table]...)
}

// Identifiers returns the identifiers staged into table, in insert order.
func (w *MemoryWarehouse) Identifiers(table string) []string {
	rows := w.Rows(table)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Identifier
	}
	return ids
}

func (w *MemoryWarehouse) EnsureCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ensureCalls
}

func (w *MemoryWarehouse) Queries() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.queries...)
}

func (w *MemoryWarehouse) EnsureTable(ctx context.Context, table string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureCalls++
	if _, ok := w.tables[table]; !ok {
		w.tables[table] = nil
	}
	return nil
}

func (w *MemoryWarehouse) InsertRows(ctx context.Context, table string, rows []domain.StagingRecord) ([]repository.RowError, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var rowErrs []repository.RowError
	for i, r := range rows {
		if f, ok := w.insertErrs[r.Identifier]; ok && f.times != 0 {
			if f.times > 0 {
				f.times--
			}
			return nil, f.err
		}
		if reason, ok := w.rejections[r.Identifier]; ok {
			rowErrs = append(rowErrs, repository.RowError{Index: i, Reason: reason})
		}
	}
	if len(rowErrs) > 0 {
		return rowErrs, nil
	}

	w.tables[table] = append(w.tables[table], rows...)
	return nil, nil
}

func (w *MemoryWarehouse) Query(ctx context.Context, sql string, args ...interface{}) ([]repository.Row, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queries = append(w.queries, sql)
	return w.queryRows, nil
}
