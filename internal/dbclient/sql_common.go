package dbclient

import (
	"context"
	"fmt"
	"log"
	"time"

	"reportwiz/internal/domain"
	"reportwiz/internal/query"
)

// Count runs a single-value COUNT query.
func (c *Catalog) Count(ctx context.Context, sqlText string) (int64, error) {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	var n int64
	if err := conn.QueryRowContext(ctx, sqlText).Scan(&n); err != nil {
		log.Printf("[QUERY] count failed on %s: %v", c.profile.Name, err)
		return 0, domain.NewError(domain.ErrExecution, "count query failed", err)
	}
	return n, nil
}

// Query runs a read statement and returns the column names and every row
// as a column-name keyed map, in result order. On error no rows are
// returned.
func (c *Catalog) Query(ctx context.Context, sqlText string) ([]string, []map[string]any, error) {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	ctx, cancel := c.queryContext(ctx)
	defer cancel()

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		log.Printf("[QUERY] query failed on %s: %v", c.profile.Name, err)
		return nil, nil, domain.NewError(domain.ErrExecution, "query failed", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, domain.NewError(domain.ErrExecution, "read result columns", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, domain.NewError(domain.ErrExecution, "scan row", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = formatValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[QUERY] iterate failed on %s: %v", c.profile.Name, err)
		return nil, nil, domain.NewError(domain.ErrExecution, "read rows", err)
	}
	return cols, out, nil
}

// RecordCount counts every row of table.
func (c *Catalog) RecordCount(ctx context.Context, table string) (int64, error) {
	return c.Count(ctx, query.BuildCount(query.Descriptor{Table: table}))
}

// Sample returns the first n rows of table.
func (c *Catalog) Sample(ctx context.Context, table string, n int) ([]string, []map[string]any, error) {
	return c.Query(ctx, query.SampleQuery(table, n, c.dialect))
}

func (c *Catalog) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.pool.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.pool.QueryTimeout)
}

// formatValue converts a driver value into something JSON renders sensibly.
func formatValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return val
	}
}
