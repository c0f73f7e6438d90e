package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportwiz/internal/dialect"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2000, cfg.Thresholds.FullLoad)
	assert.Equal(t, 10000, cfg.Thresholds.Refuse)
	assert.Equal(t, 2000, cfg.Thresholds.PageSize)
	assert.Equal(t, 10, cfg.Pool.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Pool.ValidationTimeout)
	assert.Equal(t, 30*time.Second, cfg.Pool.ConnectionTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Pool.ConnMaxIdleTime)
	assert.Equal(t, 30*time.Minute, cfg.Pool.ConnMaxLifetime)
	assert.Equal(t, "@every 1m", cfg.HealthSchedule)
	assert.Equal(t, 1433, cfg.DefaultPort(dialect.VendorSQLServer))
	assert.Equal(t, 0, cfg.DefaultPort(dialect.VendorSQLite))
}

func TestFromEnv_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REPORTWIZ_DATA_DIR", dir)
	t.Setenv("REPORTWIZ_FULL_LOAD_THRESHOLD", "50")
	t.Setenv("REPORTWIZ_REFUSE_THRESHOLD", "500")
	t.Setenv("REPORTWIZ_PAGE_SIZE", "25")
	t.Setenv("REPORTWIZ_VALIDATION_TIMEOUT", "2s")
	t.Setenv("REPORTWIZ_PORT_POSTGRESQL", "6543")
	t.Setenv("REPORTWIZ_HEALTH_SCHEDULE", "")

	cfg := FromEnv()
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "database_templates.json"), cfg.TemplatesFile)
	assert.Equal(t, filepath.Join(dir, "reportwiz.db"), cfg.DatabasePath())
	assert.Equal(t, Thresholds{FullLoad: 50, Refuse: 500, PageSize: 25}, cfg.Thresholds)
	assert.Equal(t, 2*time.Second, cfg.Pool.ValidationTimeout)
	assert.Equal(t, 6543, cfg.DefaultPort(dialect.VendorPostgreSQL))
	assert.Empty(t, cfg.HealthSchedule)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REPORTWIZ_FULL_LOAD_THRESHOLD", "lots")
	t.Setenv("REPORTWIZ_PAGE_SIZE", "-3")
	t.Setenv("REPORTWIZ_QUERY_TIMEOUT", "soon")

	cfg := FromEnv()
	assert.Equal(t, 2000, cfg.Thresholds.FullLoad)
	assert.Equal(t, 2000, cfg.Thresholds.PageSize)
	assert.Equal(t, 60*time.Second, cfg.Pool.QueryTimeout)
}

func TestFromEnv_RefuseNeverBelowFullLoad(t *testing.T) {
	t.Setenv("REPORTWIZ_FULL_LOAD_THRESHOLD", "300")
	t.Setenv("REPORTWIZ_REFUSE_THRESHOLD", "100")

	cfg := FromEnv()
	assert.Equal(t, 300, cfg.Thresholds.Refuse)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportwiz.env")
	require.NoError(t, os.WriteFile(path, []byte("REPORTWIZ_REFUSE_THRESHOLD=777\nREPORTWIZ_SECRET_BACKEND=Memory\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("REPORTWIZ_REFUSE_THRESHOLD")
		os.Unsetenv("REPORTWIZ_SECRET_BACKEND")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 777, cfg.Thresholds.Refuse)
	assert.Equal(t, "memory", cfg.SecretBackend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestFromEnv_MCPSettings(t *testing.T) {
	assert.False(t, Default().MCP.ConfirmForce)

	t.Setenv("REPORTWIZ_MCP_CONFIRM_FORCE", "true")
	t.Setenv("REPORTWIZ_MCP_APPROVAL_TIMEOUT", "30s")
	cfg := FromEnv()
	assert.True(t, cfg.MCP.ConfirmForce)
	assert.Equal(t, 30*time.Second, cfg.MCP.ApprovalTimeout)

	t.Setenv("REPORTWIZ_MCP_CONFIRM_FORCE", "maybe")
	assert.False(t, FromEnv().MCP.ConfirmForce)
}
