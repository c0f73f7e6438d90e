package dbclient

import (
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"reportwiz/internal/config"
	"reportwiz/internal/domain"
)

// buildMySQLDSN renders user:password@tcp(host:port)/db?parseTime=true.
func buildMySQLDSN(p *domain.ConnectionProfile, password string, pool config.PoolSettings) string {
	cfg := mysql.NewConfig()
	cfg.User = p.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	cfg.DBName = p.Database
	cfg.ParseTime = true
	cfg.Timeout = pool.ConnectionTimeout
	cfg.ReadTimeout = pool.QueryTimeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}
