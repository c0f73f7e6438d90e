package dbclient

import (
	"fmt"

	"reportwiz/internal/config"
	"reportwiz/internal/dialect"
	"reportwiz/internal/domain"
)

// BuildDSN renders the driver-specific connection string for profile. The
// result contains the password and must never be logged unmasked.
func BuildDSN(profile *domain.ConnectionProfile, password string, pool config.PoolSettings) (string, error) {
	switch profile.Dialect().Vendor {
	case dialect.VendorMySQL:
		return buildMySQLDSN(profile, password, pool), nil
	case dialect.VendorPostgreSQL:
		return buildPostgresDSN(profile, password, pool), nil
	case dialect.VendorSQLServer:
		return buildSQLServerDSN(profile, password, pool), nil
	case dialect.VendorOracle:
		return buildOracleDSN(profile, password, pool), nil
	case dialect.VendorSQLite:
		return buildSQLiteDSN(profile), nil
	default:
		return "", fmt.Errorf("unsupported vendor: %s", profile.Vendor)
	}
}

func timeoutSeconds(pool config.PoolSettings) int {
	secs := int(pool.ConnectionTimeout.Seconds())
	if secs <= 0 {
		return 30
	}
	return secs
}
