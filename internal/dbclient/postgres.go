package dbclient

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"reportwiz/internal/config"
	"reportwiz/internal/domain"
)

// buildPostgresDSN renders a lib/pq key=value connection string.
func buildPostgresDSN(p *domain.ConnectionProfile, password string, pool config.PoolSettings) string {
	parts := []string{
		"host=" + pqQuote(p.Host),
		fmt.Sprintf("port=%d", p.Port),
		"user=" + pqQuote(p.Username),
		"dbname=" + pqQuote(p.Database),
		"sslmode=disable",
		fmt.Sprintf("connect_timeout=%d", timeoutSeconds(pool)),
	}
	if password != "" {
		parts = append(parts, "password="+pqQuote(password))
	}
	return strings.Join(parts, " ")
}

// pqQuote single-quotes a value, escaping backslashes and quotes.
func pqQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
