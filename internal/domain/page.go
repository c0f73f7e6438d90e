package domain

import "time"

// FetchState is the outcome of one paged fetch.
type FetchState string

const (
	FetchIdle         FetchState = "idle"
	FetchCountPending FetchState = "count_pending"
	FetchRowsReady    FetchState = "rows_ready"
	FetchRefused      FetchState = "refused"
	FetchFailed       FetchState = "failed"
)

// PageRequest asks for one 1-based page.
type PageRequest struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// Normalize clamps the request to pageNumber >= 1 and pageSize > 0.
func (p PageRequest) Normalize(defaultSize int) PageRequest {
	if p.PageNumber < 1 {
		p.PageNumber = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	return p
}

// FetchRequest is the input of a paged fetch. Force loads past the refusal
// threshold.
type FetchRequest struct {
	Table   string            `json:"table"`
	Columns []string          `json:"columns,omitempty"`
	Filters []FilterCondition `json:"filters,omitempty"`
	Sort    []SortSpec        `json:"sort,omitempty"`
	Page    PageRequest       `json:"page"`
	Force   bool              `json:"force,omitempty"`
}

// PageResult is the outcome of a paged fetch. RowsReturned never exceeds
// PageSize or TotalMatching.
type PageResult struct {
	RequestID     string           `json:"requestId"`
	State         FetchState       `json:"state"`
	Success       bool             `json:"success"`
	Message       string           `json:"message,omitempty"`
	ErrorKind     ErrorKind        `json:"errorKind,omitempty"`
	ColumnNames   []string         `json:"columnNames"`
	Rows          []map[string]any `json:"rows"`
	TotalMatching int64            `json:"totalMatching"`
	RowsReturned  int              `json:"rowsReturned"`
	PageNumber    int              `json:"pageNumber"`
	PageSize      int              `json:"pageSize"`
	HasMore       bool             `json:"hasMore"`
	SQL           string           `json:"sql,omitempty"`
	DurationMs    int              `json:"durationMs"`
}

// FetchRecord is a persisted summary of one fetch.
type FetchRecord struct {
	ID            string     `json:"id"`
	ProfileID     string     `json:"profileId"`
	TableName     string     `json:"tableName"`
	SQL           string     `json:"sql"`
	State         FetchState `json:"state"`
	TotalMatching int64      `json:"totalMatching"`
	RowsReturned  int        `json:"rowsReturned"`
	DurationMs    int        `json:"durationMs"`
	Error         string     `json:"error"`
	ExecutedAt    time.Time  `json:"executedAt"`
}

// FetchLogStore records fetch outcomes.
type FetchLogStore interface {
	AppendFetch(r *FetchRecord) error
	ListFetches(profileID string, limit int) ([]FetchRecord, error)
	DeleteFetchesByProfile(profileID string) error
}
