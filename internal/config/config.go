package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"reportwiz/internal/dialect"
)

// Thresholds govern how much of a filtered result is loaded at once.
type Thresholds struct {
	FullLoad int // counts up to this load in one page
	Refuse   int // counts above this are refused unless forced
	PageSize int // page size once FullLoad is exceeded
}

// PoolSettings configure each catalog's *sql.DB.
type PoolSettings struct {
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxIdleTime   time.Duration
	ConnMaxLifetime   time.Duration
	ValidationTimeout time.Duration
	ConnectionTimeout time.Duration
	QueryTimeout      time.Duration
}

// MCPSettings configure the stdio server.
type MCPSettings struct {
	ConfirmForce    bool          // forced loads wait for a human approval
	ApprovalTimeout time.Duration // how long an approval may stay pending
}

// Config is built once at startup and passed down by value.
type Config struct {
	DataDir        string
	TemplatesFile  string
	SecretBackend  string // "file" | "keychain" | "memory"
	HealthSchedule string // cron spec, empty disables monitoring
	Thresholds     Thresholds
	MCP            MCPSettings
	Pool           PoolSettings
	DefaultPorts   map[dialect.Vendor]int
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		DataDir:        dataDir,
		TemplatesFile:  filepath.Join(dataDir, "database_templates.json"),
		SecretBackend:  "file",
		HealthSchedule: "@every 1m",
		Thresholds: Thresholds{
			FullLoad: 2000,
			Refuse:   10000,
			PageSize: 2000,
		},
		MCP: MCPSettings{
			ApprovalTimeout: 2 * time.Minute,
		},
		Pool: PoolSettings{
			MaxOpenConns:      10,
			MaxIdleConns:      2,
			ConnMaxIdleTime:   10 * time.Minute,
			ConnMaxLifetime:   30 * time.Minute,
			ValidationTimeout: 5 * time.Second,
			ConnectionTimeout: 30 * time.Second,
			QueryTimeout:      60 * time.Second,
		},
		DefaultPorts: map[dialect.Vendor]int{
			dialect.VendorMySQL:      3306,
			dialect.VendorPostgreSQL: 5432,
			dialect.VendorSQLServer:  1433,
			dialect.VendorOracle:     1521,
		},
	}
}

// Load reads a .env file into the environment and builds a Config from it.
// An empty path tries ".env" in the working directory and ignores its
// absence; an explicit path must exist.
func Load(path string) (Config, error) {
	if path == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(path); err != nil {
		return Config{}, fmt.Errorf("load config file %s: %w", path, err)
	}
	return FromEnv(), nil
}

// FromEnv overlays REPORTWIZ_* environment variables on Default.
func FromEnv() Config {
	cfg := Default()

	cfg.DataDir = getEnv("REPORTWIZ_DATA_DIR", cfg.DataDir)
	cfg.TemplatesFile = getEnv("REPORTWIZ_TEMPLATES_FILE", filepath.Join(cfg.DataDir, "database_templates.json"))
	cfg.SecretBackend = strings.ToLower(getEnv("REPORTWIZ_SECRET_BACKEND", cfg.SecretBackend))
	if v, ok := os.LookupEnv("REPORTWIZ_HEALTH_SCHEDULE"); ok {
		cfg.HealthSchedule = strings.TrimSpace(v)
	}

	t := &cfg.Thresholds
	t.FullLoad = getEnvInt("REPORTWIZ_FULL_LOAD_THRESHOLD", t.FullLoad)
	t.Refuse = getEnvInt("REPORTWIZ_REFUSE_THRESHOLD", t.Refuse)
	t.PageSize = getEnvInt("REPORTWIZ_PAGE_SIZE", t.PageSize)
	if t.Refuse < t.FullLoad {
		log.Printf("[CONFIG] refuse threshold %d below full-load threshold %d, raising it", t.Refuse, t.FullLoad)
		t.Refuse = t.FullLoad
	}

	cfg.MCP.ConfirmForce = getEnvBool("REPORTWIZ_MCP_CONFIRM_FORCE", cfg.MCP.ConfirmForce)
	cfg.MCP.ApprovalTimeout = getEnvDuration("REPORTWIZ_MCP_APPROVAL_TIMEOUT", cfg.MCP.ApprovalTimeout)

	p := &cfg.Pool
	p.MaxOpenConns = getEnvInt("REPORTWIZ_MAX_POOL_SIZE", p.MaxOpenConns)
	p.ConnMaxIdleTime = getEnvDuration("REPORTWIZ_CONN_MAX_IDLE_TIME", p.ConnMaxIdleTime)
	p.ConnMaxLifetime = getEnvDuration("REPORTWIZ_CONN_MAX_LIFETIME", p.ConnMaxLifetime)
	p.ValidationTimeout = getEnvDuration("REPORTWIZ_VALIDATION_TIMEOUT", p.ValidationTimeout)
	p.ConnectionTimeout = getEnvDuration("REPORTWIZ_CONNECTION_TIMEOUT", p.ConnectionTimeout)
	p.QueryTimeout = getEnvDuration("REPORTWIZ_QUERY_TIMEOUT", p.QueryTimeout)
	if p.MaxIdleConns > p.MaxOpenConns {
		p.MaxIdleConns = p.MaxOpenConns
	}

	for _, v := range dialect.Vendors() {
		key := "REPORTWIZ_PORT_" + strings.ToUpper(string(v))
		if def, ok := cfg.DefaultPorts[v]; ok {
			cfg.DefaultPorts[v] = getEnvInt(key, def)
		}
	}
	return cfg
}

// DefaultPort returns the configured port for a vendor, falling back to the
// dialect's built-in default.
func (c Config) DefaultPort(v dialect.Vendor) int {
	if port, ok := c.DefaultPorts[v]; ok && port > 0 {
		return port
	}
	return dialect.Resolve(string(v)).DefaultPort
}

// DatabasePath is the local SQLite file holding profiles and the fetch log.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "reportwiz.db")
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "reportwiz")
	}
	return ".reportwiz"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("[CONFIG] invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("[CONFIG] invalid %s=%q, using %t", key, raw, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("[CONFIG] invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
