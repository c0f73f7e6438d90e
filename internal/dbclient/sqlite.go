package dbclient

import (
	_ "modernc.org/sqlite"

	"reportwiz/internal/domain"
)

// buildSQLiteDSN opens the profile's database file with a busy timeout so
// reads tolerate a concurrent writer.
func buildSQLiteDSN(p *domain.ConnectionProfile) string {
	return "file:" + p.Database + "?_pragma=busy_timeout(5000)"
}
