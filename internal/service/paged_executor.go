package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"reportwiz/internal/config"
	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
	"reportwiz/internal/query"
)

// ─────────────────────────────────────────────────────────────
// PagedExecutor: count first, then load, page or refuse
// ─────────────────────────────────────────────────────────────

// RowSource is the slice of a connected catalog the executor needs.
// *dbclient.Catalog satisfies it.
type RowSource interface {
	Dialect() dialect.Profile
	Count(ctx context.Context, sql string) (int64, error)
	Query(ctx context.Context, sql string) ([]string, []map[string]any, error)
}

// PagedExecutor applies the row-count safety policy to one fetch. It holds
// no per-request state; every call starts from Idle.
type PagedExecutor struct {
	thresholds config.Thresholds
}

// NewPagedExecutor creates an executor. Zero thresholds fall back to
// 2000 / 10000 / 2000.
func NewPagedExecutor(t config.Thresholds) *PagedExecutor {
	if t.FullLoad <= 0 {
		t.FullLoad = 2000
	}
	if t.Refuse < t.FullLoad {
		t.Refuse = max(10000, t.FullLoad)
	}
	if t.PageSize <= 0 {
		t.PageSize = 2000
	}
	return &PagedExecutor{thresholds: t}
}

func (e *PagedExecutor) Thresholds() config.Thresholds { return e.thresholds }

// Descriptor turns a fetch request into a query descriptor without any
// limit or window.
func Descriptor(req domain.FetchRequest) query.Descriptor {
	return query.Descriptor{
		Table:   req.Table,
		Columns: req.Columns,
		Filters: req.Filters,
		Sort:    req.Sort,
	}
}

// Fetch runs the count query, then either loads every row, loads one
// bounded page, or refuses. Errors never escape: they come back as a
// Failed result with no rows.
func (e *PagedExecutor) Fetch(ctx context.Context, src RowSource, req domain.FetchRequest) domain.PageResult {
	start := time.Now()
	res := domain.PageResult{
		RequestID:   uuid.New().String(),
		State:       domain.FetchCountPending,
		ColumnNames: []string{},
		Rows:        []map[string]any{},
	}
	finish := func() domain.PageResult {
		res.DurationMs = int(time.Since(start).Milliseconds())
		return res
	}

	if req.Table == "" {
		return e.fail(finish(), domain.NewError(domain.ErrQueryCompile, "no table to fetch from", nil))
	}

	d := Descriptor(req)
	countSQL := query.BuildCount(d)
	res.SQL = countSQL

	total, err := src.Count(ctx, countSQL)
	if err != nil {
		log.Printf("[FETCH] count on %s failed: %v", req.Table, err)
		return e.fail(finish(), executionError("count failed", err))
	}
	res.TotalMatching = total

	t := e.thresholds
	var offset int64
	switch {
	case total == 0:
		res.State = domain.FetchRowsReady
		res.Success = true
		res.PageNumber = 1
		res.PageSize = t.FullLoad
		return finish()

	case total > int64(t.Refuse) && !req.Force:
		res.State = domain.FetchRefused
		res.ErrorKind = domain.ErrThresholdExceeded
		res.Message = fmt.Sprintf("%d rows match; narrow the filter or force the load", total)
		log.Printf("[FETCH] refused %s: %d rows over limit %d", req.Table, total, t.Refuse)
		return finish()

	case total <= int64(t.FullLoad):
		d.Limit = t.FullLoad
		res.PageNumber = 1
		res.PageSize = t.FullLoad

	default:
		page := req.Page.Normalize(t.PageSize)
		size := min(page.PageSize, t.PageSize)
		res.PageNumber = page.PageNumber
		res.PageSize = size
		// Pages past the last one are empty. The offset stays in [0, total).
		lastPage := (total + int64(size) - 1) / int64(size)
		if int64(page.PageNumber) > lastPage {
			res.State = domain.FetchRowsReady
			res.Success = true
			return finish()
		}
		offset = int64(page.PageNumber-1) * int64(size)
		d.Page = &query.Window{Offset: int(offset), Size: size}
	}

	dataSQL := query.Build(d, src.Dialect())
	res.SQL = dataSQL

	cols, rows, err := src.Query(ctx, dataSQL)
	if err != nil {
		log.Printf("[FETCH] query on %s failed: %v", req.Table, err)
		return e.fail(finish(), executionError("query failed", err))
	}
	// Never more rows than counted, even if rows appeared since the count.
	if limit := min(int64(res.PageSize), total-offset); int64(len(rows)) > limit {
		rows = rows[:limit]
	}
	if cols != nil {
		res.ColumnNames = cols
	}
	if rows != nil {
		res.Rows = rows
	}
	res.RowsReturned = len(rows)

	res.HasMore = offset+int64(res.RowsReturned) < total
	res.State = domain.FetchRowsReady
	res.Success = true
	return finish()
}

func (e *PagedExecutor) fail(res domain.PageResult, err error) domain.PageResult {
	res.State = domain.FetchFailed
	res.Success = false
	res.Message = err.Error()
	res.ErrorKind = domain.KindOf(err)
	res.ColumnNames = []string{}
	res.Rows = []map[string]any{}
	res.RowsReturned = 0
	return res
}

func executionError(msg string, err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.NewError(domain.ErrExecution, msg, err)
}
