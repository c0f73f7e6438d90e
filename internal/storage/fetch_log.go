package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"reportwiz/internal/domain"
)

// FetchLogStore keeps a summary row per paged fetch.
type FetchLogStore struct {
	db *DB
}

func NewFetchLogStore(db *DB) *FetchLogStore {
	return &FetchLogStore{db: db}
}

func (s *FetchLogStore) AppendFetch(r *domain.FetchRecord) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ExecutedAt.IsZero() {
		r.ExecutedAt = time.Now()
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO fetch_log (id, profile_id, table_name, sql_text, state, total_matching, rows_returned, duration_ms, error, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProfileID, r.TableName, r.SQL, r.State, r.TotalMatching, r.RowsReturned,
		r.DurationMs, r.Error, r.ExecutedAt,
	)
	return err
}

// ListFetches returns the newest records for a profile first.
func (s *FetchLogStore) ListFetches(profileID string, limit int) ([]domain.FetchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Conn().Query(
		`SELECT id, profile_id, table_name, sql_text, state, total_matching, rows_returned, duration_ms, error, executed_at
		 FROM fetch_log WHERE profile_id = ? ORDER BY executed_at DESC, rowid DESC LIMIT ?`,
		profileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list fetches: %w", err)
	}
	defer rows.Close()

	var out []domain.FetchRecord
	for rows.Next() {
		var r domain.FetchRecord
		if err := rows.Scan(&r.ID, &r.ProfileID, &r.TableName, &r.SQL, &r.State, &r.TotalMatching,
			&r.RowsReturned, &r.DurationMs, &r.Error, &r.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *FetchLogStore) DeleteFetchesByProfile(profileID string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM fetch_log WHERE profile_id = ?`, profileID)
	return err
}
