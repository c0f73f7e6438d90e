package dialect

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Vendor identifies a supported database engine.
type Vendor string

const (
	VendorMySQL      Vendor = "mysql"
	VendorPostgreSQL Vendor = "postgresql"
	VendorSQLServer  Vendor = "sqlserver"
	VendorOracle     Vendor = "oracle"
	VendorSQLite     Vendor = "sqlite"
)

// LimitStyle is the syntax a vendor uses to bound a result set.
type LimitStyle int

const (
	LimitUnsupported LimitStyle = iota
	TrailingLimit               // ... LIMIT n
	TopClause                   // SELECT TOP n ...
	OffsetFetch                 // ... OFFSET x ROWS FETCH NEXT n ROWS ONLY
	RownumPredicate             // ... WHERE ROWNUM <= n
)

func (s LimitStyle) String() string {
	switch s {
	case TrailingLimit:
		return "TrailingLimit"
	case TopClause:
		return "TopClause"
	case OffsetFetch:
		return "OffsetFetch"
	case RownumPredicate:
		return "RownumPredicate"
	default:
		return "Unsupported"
	}
}

// Profile holds the static facts about one vendor. Values returned by
// Resolve are copies and safe to share between goroutines.
type Profile struct {
	Vendor      Vendor `json:"vendor"`
	DriverID    string `json:"driverId"`    // database/sql driver name
	URLTemplate string `json:"urlTemplate"` // {host}, {port}, {database}
	DefaultPort int    `json:"defaultPort"`

	// LimitStyle bounds a plain "first n rows" query, PagingStyle is used
	// when an explicit offset window is requested.
	LimitStyle  LimitStyle `json:"limitStyle"`
	PagingStyle LimitStyle `json:"pagingStyle"`

	// SystemPrefixes and SystemNames are lowercase. A table is system-owned
	// if its lowercase name starts with a prefix or equals a name.
	SystemPrefixes []string `json:"systemPrefixes"`
	SystemNames    []string `json:"systemNames,omitempty"`

	// ValidationQuery is the cheapest round-trip that proves a live session.
	ValidationQuery string `json:"validationQuery"`

	// FileBased vendors address a local file instead of host:port.
	FileBased bool `json:"fileBased,omitempty"`
}

var profiles = map[Vendor]Profile{
	VendorMySQL: {
		Vendor:          VendorMySQL,
		DriverID:        "mysql",
		URLTemplate:     "tcp({host}:{port})/{database}?parseTime=true&charset=utf8mb4",
		DefaultPort:     3306,
		LimitStyle:      TrailingLimit,
		PagingStyle:     TrailingLimit,
		SystemPrefixes:  []string{"information_schema", "performance_schema", "mysql", "sys"},
		ValidationQuery: "SELECT 1",
	},
	VendorPostgreSQL: {
		Vendor:          VendorPostgreSQL,
		DriverID:        "postgres",
		URLTemplate:     "postgres://{host}:{port}/{database}?sslmode=disable",
		DefaultPort:     5432,
		LimitStyle:      TrailingLimit,
		PagingStyle:     TrailingLimit,
		SystemPrefixes:  []string{"information_schema", "pg_"},
		ValidationQuery: "SELECT 1",
	},
	VendorSQLServer: {
		Vendor:      VendorSQLServer,
		DriverID:    "sqlserver",
		URLTemplate: "sqlserver://{host}:{port}?database={database}&encrypt=disable",
		DefaultPort: 1433,
		LimitStyle:  TopClause,
		PagingStyle: OffsetFetch,
		SystemPrefixes: []string{
			"sys", "information_schema", "msreplication", "mspeer",
			"msdistribution", "mssubscription", "msmerge", "mssnapshot",
			"mslog", "msdb", "master", "model", "tempdb", "trace_xe",
			"fn_", "dm_",
		},
		SystemNames: []string{
			"dtproperties", "spt_fallback_db", "spt_fallback_dev",
			"spt_fallback_usg", "spt_monitor", "msreplication_options",
		},
		ValidationQuery: "SELECT 1",
	},
	VendorOracle: {
		Vendor:          VendorOracle,
		DriverID:        "oracle",
		URLTemplate:     "oracle://{host}:{port}/{database}",
		DefaultPort:     1521,
		LimitStyle:      RownumPredicate,
		PagingStyle:     OffsetFetch,
		SystemPrefixes:  []string{"sys", "dba_", "all_", "user_"},
		ValidationQuery: "SELECT 1 FROM DUAL",
	},
	VendorSQLite: {
		Vendor:          VendorSQLite,
		DriverID:        "sqlite",
		URLTemplate:     "file:{database}",
		LimitStyle:      TrailingLimit,
		PagingStyle:     TrailingLimit,
		SystemPrefixes:  []string{"sqlite_"},
		ValidationQuery: "SELECT 1",
		FileBased:       true,
	},
}

var aliases = map[string]Vendor{
	"postgres": VendorPostgreSQL,
	"pgsql":    VendorPostgreSQL,
	"mssql":    VendorSQLServer,
	"sqlite3":  VendorSQLite,
	"mariadb":  VendorMySQL,
}

// Resolve looks up the profile for a vendor key (case-insensitive). An
// unknown key yields a Profile whose driver and URL template are empty;
// callers must check IsValid before use.
func Resolve(key string) Profile {
	k := strings.ToLower(strings.TrimSpace(key))
	v := Vendor(k)
	if alias, ok := aliases[k]; ok {
		v = alias
	}
	p, ok := profiles[v]
	if !ok {
		return Profile{Vendor: Vendor(k)}
	}
	p.SystemPrefixes = slices.Clone(p.SystemPrefixes)
	p.SystemNames = slices.Clone(p.SystemNames)
	return p
}

// Vendors lists the known vendors in a stable order.
func Vendors() []Vendor {
	return []Vendor{VendorMySQL, VendorPostgreSQL, VendorSQLServer, VendorOracle, VendorSQLite}
}

// IsValid reports whether the profile resolved to a known vendor.
func (p Profile) IsValid() bool {
	return p.DriverID != "" && p.URLTemplate != ""
}

// IsSystemTable reports whether name belongs to the vendor's catalog rather
// than to the user.
func (p Profile) IsSystemTable(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range p.SystemPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, n := range p.SystemNames {
		if lower == n {
			return true
		}
	}
	return false
}

// FilterUserTables drops system-owned names and returns the rest sorted.
func (p Profile) FilterUserTables(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !p.IsSystemTable(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// ExpandURL substitutes the template placeholders. Credentials are never part
// of the template, so the result is safe to log.
func (p Profile) ExpandURL(host string, port int, database string) string {
	if p.URLTemplate == "" {
		return ""
	}
	r := strings.NewReplacer(
		"{host}", host,
		"{port}", strconv.Itoa(port),
		"{database}", database,
	)
	return r.Replace(p.URLTemplate)
}

// Placeholder returns the bind parameter marker for the 1-based index.
func (p Profile) Placeholder(index int) string {
	switch p.Vendor {
	case VendorPostgreSQL:
		return fmt.Sprintf("$%d", index)
	case VendorSQLServer:
		return fmt.Sprintf("@p%d", index)
	case VendorOracle:
		return fmt.Sprintf(":%d", index)
	default:
		return "?"
	}
}

// QuoteIdentifier quotes a single identifier in the vendor's style.
func (p Profile) QuoteIdentifier(name string) string {
	switch p.Vendor {
	case VendorMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case VendorSQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}
