package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"gorm.io/gorm"
)

// Row is one result row keyed by column name.
type Row map[string]interface{}

// RowError describes a row the warehouse refused to store.
type RowError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Index, e.Reason)
}

// Warehouse is the sink the loader appends staging records to and the
// in-warehouse transform runner queries.
type Warehouse interface {
	// EnsureTable creates the staging table if missing. Safe to call
	// concurrently for the same table.
	EnsureTable(ctx context.Context, table string) error
	// InsertRows appends rows. Rejected rows are reported as RowErrors with a
	// nil error; a non-nil error means the call itself failed and may be retried.
	InsertRows(ctx context.Context, table string, rows []domain.StagingRecord) ([]RowError, error)
	// Query runs a statement and returns any rows it produced.
	Query(ctx context.Context, sql string, args ...interface{}) ([]Row, error)
}

// GormWarehouse implements Warehouse on top of a gorm connection.
type GormWarehouse struct {
	db      *gorm.DB
	ensured sync.Map
}

// NewGormWarehouse creates a new GormWarehouse.
func NewGormWarehouse(db *gorm.DB) *GormWarehouse {
	return &GormWarehouse{db: db}
}

// EnsureTable creates the staging table from domain.StagingRecord.
func (w *GormWarehouse) EnsureTable(ctx context.Context, table string) error {
	if _, ok := w.ensured.Load(table); ok {
		return nil
	}

	m := w.db.WithContext(ctx).Table(table).Migrator()
	if !m.HasTable(table) {
		if err := m.CreateTable(&domain.StagingRecord{}); err != nil {
			// Another loader may have won the race
			if !m.HasTable(table) {
				return fmt.Errorf("failed to create table %s: %w", table, err)
			}
		}
	}

	w.ensured.Store(table, struct{}{})
	return nil
}

// InsertRows appends rows in a single transaction.
func (w *GormWarehouse) InsertRows(ctx context.Context, table string, rows []domain.StagingRecord) ([]RowError, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	if rowErrs := validateRows(rows); len(rowErrs) > 0 {
		return rowErrs, nil
	}

	err := w.db.WithContext(ctx).Table(table).Create(&rows).Error
	if err == nil {
		return nil, nil
	}
	if isRejection(err) {
		rowErrs := make([]RowError, len(rows))
		for i := range rows {
			rowErrs[i] = RowError{Index: i, Reason: err.Error()}
		}
		return rowErrs, nil
	}
	// The table may have been dropped since it was ensured; the next
	// EnsureTable must check again.
	w.ensured.Delete(table)
	return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
}

// Query runs sql and scans every returned row into a Row.
func (w *GormWarehouse) Query(ctx context.Context, sql string, args ...interface{}) ([]Row, error) {
	rows, err := w.db.WithContext(ctx).Raw(sql, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}

// validateRows rejects rows no supported warehouse would accept.
func validateRows(rows []domain.StagingRecord) []RowError {
	var rowErrs []RowError
	for i, r := range rows {
		switch {
		case r.Identifier == "":
			rowErrs = append(rowErrs, RowError{Index: i, Reason: "identifier is empty"})
		case !utf8.ValidString(r.RawContent):
			rowErrs = append(rowErrs, RowError{Index: i, Reason: "raw_content is not valid UTF-8"})
		case strings.ContainsRune(r.RawContent, 0):
			rowErrs = append(rowErrs, RowError{Index: i, Reason: "raw_content contains NUL bytes"})
		}
	}
	return rowErrs
}

// isRejection reports whether err is a constraint failure on the data
// rather than a connection or server failure.
func isRejection(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		errors.Is(err, gorm.ErrInvalidData)
}
