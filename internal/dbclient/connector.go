package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"reportwiz/internal/config"
	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
	"reportwiz/internal/secret"
)

// Catalog is the connection and introspection surface for one profile. It
// owns a *sql.DB pool; every operation borrows a connection from the pool
// and returns it when done.
//
// Connect and Disconnect must not race each other on the same Catalog.
type Catalog struct {
	profile domain.ConnectionProfile
	dialect dialect.Profile
	pool    config.PoolSettings

	mu sync.RWMutex
	db *sql.DB
}

// NewCatalog prepares a catalog for profile. Nothing is opened until Connect.
func NewCatalog(profile domain.ConnectionProfile, pool config.PoolSettings) *Catalog {
	return &Catalog{
		profile: profile,
		dialect: profile.Dialect(),
		pool:    pool,
	}
}

func (c *Catalog) Profile() domain.ConnectionProfile { return c.profile }
func (c *Catalog) Dialect() dialect.Profile          { return c.dialect }

// Connect opens the pool and validates it with a round-trip bounded by the
// validation timeout. Failures come back as ConnectionError; nothing panics
// past this point. A connected catalog is reopened.
func (c *Catalog) Connect(ctx context.Context, password string) error {
	if !c.profile.IsValid() {
		return domain.NewError(domain.ErrInvalidProfile,
			fmt.Sprintf("profile %q is incomplete or has an unknown vendor", c.profile.Name), nil)
	}

	dsn, err := BuildDSN(&c.profile, password, c.pool)
	if err != nil {
		return domain.NewError(domain.ErrConnection, "cannot build connection string", err)
	}

	db, err := openPool(ctx, c.dialect, dsn, c.pool)
	if err != nil {
		log.Printf("[CATALOG] connect %s failed: %v", c.profile.ConnectionURL(), err)
		return domain.NewError(domain.ErrConnection,
			fmt.Sprintf("cannot connect to %s", c.profile.ConnectionURL()), err)
	}

	c.mu.Lock()
	old := c.db
	c.db = db
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}

	log.Printf("[CATALOG] connected %s (%s)", c.profile.Name, secret.MaskPassword(c.profile.ConnectionURL()))
	return nil
}

// Disconnect releases the pool. Calling it on a closed catalog is a no-op.
func (c *Catalog) Disconnect() error {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()

	if db == nil {
		return nil
	}
	log.Printf("[CATALOG] disconnected %s", c.profile.Name)
	return db.Close()
}

func (c *Catalog) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db != nil
}

// IsHealthy runs the validation query within the validation timeout.
func (c *Catalog) IsHealthy(ctx context.Context) bool {
	conn, release, err := c.acquire(ctx)
	if err != nil {
		return false
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, validationTimeout(c.pool))
	defer cancel()
	var one int
	return conn.QueryRowContext(ctx, c.dialect.ValidationQuery).Scan(&one) == nil
}

// acquire borrows a connection from the pool. release must be called.
func (c *Catalog) acquire(ctx context.Context) (*sql.Conn, func(), error) {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()
	if db == nil {
		return nil, nil, domain.NewError(domain.ErrNotConnected,
			fmt.Sprintf("profile %q is not connected", c.profile.Name), nil)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, domain.NewError(domain.ErrConnection, "cannot acquire pooled connection", err)
	}
	return conn, func() { conn.Close() }, nil
}

// TestConnection opens a throwaway pool for profile, validates it and closes
// it again.
func TestConnection(ctx context.Context, profile *domain.ConnectionProfile, password string, pool config.PoolSettings) error {
	if !profile.IsValid() {
		return domain.NewError(domain.ErrInvalidProfile,
			fmt.Sprintf("profile %q is incomplete or has an unknown vendor", profile.Name), nil)
	}
	dsn, err := BuildDSN(profile, password, pool)
	if err != nil {
		return domain.NewError(domain.ErrConnection, "cannot build connection string", err)
	}
	db, err := openPool(ctx, profile.Dialect(), dsn, pool)
	if err != nil {
		log.Printf("[CATALOG] test %s failed: %v", profile.ConnectionURL(), err)
		return domain.NewError(domain.ErrConnection,
			fmt.Sprintf("cannot connect to %s", profile.ConnectionURL()), err)
	}
	return db.Close()
}

func openPool(ctx context.Context, d dialect.Profile, dsn string, pool config.PoolSettings) (*sql.DB, error) {
	db, err := sql.Open(d.DriverID, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.DriverID, err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	vctx, cancel := context.WithTimeout(ctx, validationTimeout(pool))
	defer cancel()

	var one int
	if err := db.QueryRowContext(vctx, d.ValidationQuery).Scan(&one); err != nil {
		db.Close()
		return nil, fmt.Errorf("validate: %w", err)
	}
	return db, nil
}

func validationTimeout(pool config.PoolSettings) time.Duration {
	if pool.ValidationTimeout <= 0 {
		return 5 * time.Second
	}
	return pool.ValidationTimeout
}
