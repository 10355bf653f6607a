package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/repository"
)

// Querier is the part of the warehouse the SQL runner needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) ([]repository.Row, error)
}

// SQL runner verbs, modeled on dbt.
const (
	VerbRun  = "run"
	VerbTest = "test"
)

// SQLRunner runs transformation SQL inside the warehouse. Commands have the
// form "<verb> <file>", where file is relative to workdir:
//
//	run models/clean_sales.sql   every statement must succeed
//	test tests/clean_sales.sql   additionally, the last statement must return no rows
type SQLRunner struct {
	warehouse Querier
}

// NewSQLRunner creates a new SQLRunner.
func NewSQLRunner(warehouse Querier) *SQLRunner {
	return &SQLRunner{warehouse: warehouse}
}

func (r *SQLRunner) Run(ctx context.Context, command, workdir string) (Result, error) {
	fields := strings.Fields(command)
	if len(fields) != 2 || (fields[0] != VerbRun && fields[0] != VerbTest) {
		return Result{}, fmt.Errorf("invalid sql command %q: want \"run <file>\" or \"test <file>\"", command)
	}
	verb, file := fields[0], fields[1]

	body, err := os.ReadFile(filepath.Join(workdir, file))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read sql file: %w", err)
	}

	statements := splitStatements(string(body))
	if len(statements) == 0 {
		return Result{}, fmt.Errorf("sql file %s contains no statements", file)
	}

	start := time.Now()
	var stdout strings.Builder
	var rows []repository.Row
	for i, stmt := range statements {
		if err := ctx.Err(); err != nil {
			return Result{ExitCode: -1, Stdout: stdout.String(), Duration: time.Since(start)}, err
		}
		rows, err = r.warehouse.Query(ctx, stmt)
		if err != nil {
			return Result{
				ExitCode: 1,
				Stdout:   stdout.String(),
				Stderr:   fmt.Sprintf("statement %d failed: %v", i+1, err),
				Duration: time.Since(start),
			}, nil
		}
		fmt.Fprintf(&stdout, "statement %d ok (%d rows)\n", i+1, len(rows))
	}

	res := Result{Stdout: stdout.String(), Duration: time.Since(start)}
	if verb == VerbTest && len(rows) > 0 {
		res.ExitCode = 1
		res.Stderr = formatFailures(rows)
	}
	return res, nil
}

// splitStatements drops full-line "--" comments and splits on ";".
// Semicolons inside string literals are not supported.
func splitStatements(body string) []string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

const maxReportedFailures = 10

func formatFailures(rows []repository.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation returned %d failing rows\n", len(rows))
	for i, row := range rows {
		if i == maxReportedFailures {
			fmt.Fprintf(&b, "... %d more\n", len(rows)-i)
			break
		}
		fmt.Fprintf(&b, "%v\n", map[string]interface{}(row))
	}
	return b.String()
}
