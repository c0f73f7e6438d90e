package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reportwiz/internal/domain"
)

// ErrProfileNotFound is returned when no profile has the requested id.
var ErrProfileNotFound = errors.New("profile not found")

const profileColumns = `id, name, vendor, host, port, database_name, username, password_token, created_at, updated_at, last_connected_at`

// ProfileStore manages connection profiles in SQLite. Profiles keep the
// order in which they were saved.
type ProfileStore struct {
	db *DB
}

func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.ConnectionProfile, error) {
	p := &domain.ConnectionProfile{}
	var lastConnected sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.Vendor, &p.Host, &p.Port, &p.Database,
		&p.Username, &p.PasswordToken, &p.CreatedAt, &p.UpdatedAt, &lastConnected)
	if err != nil {
		return nil, err
	}
	if lastConnected.Valid {
		t := lastConnected.Time
		p.LastConnectedAt = &t
	}
	return p, nil
}

// LoadProfiles returns every profile in saved order.
func (s *ProfileStore) LoadProfiles() ([]domain.ConnectionProfile, error) {
	rows, err := s.db.Conn().Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY position, created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.ConnectionProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// SaveProfiles replaces the stored list with profiles, in order. Profiles
// without an id get one assigned.
func (s *ProfileStore) SaveProfiles(profiles []domain.ConnectionProfile) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM profiles`); err != nil {
		return fmt.Errorf("clear profiles: %w", err)
	}
	now := time.Now()
	for i := range profiles {
		p := &profiles[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		if _, err := tx.Exec(
			`INSERT INTO profiles (id, name, vendor, host, port, database_name, username, password_token, position, created_at, updated_at, last_connected_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Vendor, p.Host, p.Port, p.Database, p.Username, p.PasswordToken,
			i, p.CreatedAt, p.UpdatedAt, nullTime(p.LastConnectedAt),
		); err != nil {
			return fmt.Errorf("insert profile %s: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// CreateProfile appends a profile to the end of the list.
func (s *ProfileStore) CreateProfile(p *domain.ConnectionProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.Conn().Exec(
		`INSERT INTO profiles (id, name, vendor, host, port, database_name, username, password_token, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM profiles), ?, ?)`,
		p.ID, p.Name, p.Vendor, p.Host, p.Port, p.Database, p.Username, p.PasswordToken, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *ProfileStore) GetProfile(id string) (*domain.ConnectionProfile, error) {
	row := s.db.Conn().QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return p, err
}

func (s *ProfileStore) UpdateProfile(p *domain.ConnectionProfile) error {
	p.UpdatedAt = time.Now()
	res, err := s.db.Conn().Exec(
		`UPDATE profiles SET name=?, vendor=?, host=?, port=?, database_name=?, username=?, password_token=?, updated_at=?
		 WHERE id=?`,
		p.Name, p.Vendor, p.Host, p.Port, p.Database, p.Username, p.PasswordToken, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, p.ID)
	}
	return nil
}

func (s *ProfileStore) DeleteProfile(id string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM profiles WHERE id = ?`, id)
	return err
}

// MarkConnected records a successful connect.
func (s *ProfileStore) MarkConnected(id string, at time.Time) error {
	_, err := s.db.Conn().Exec(`UPDATE profiles SET last_connected_at = ? WHERE id = ?`, at, id)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
