// Package warehouse connects to the MySQL warehouse and runs the read-only catalog probes.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/schema"
)

// maxDialTimeout caps the TCP dial timeout regardless of the query timeout.
const maxDialTimeout = 30 * time.Second

// Provider opens catalogs for the configured environments.
type Provider struct {
	envs         map[schema.Environment]contract.WarehouseConfig
	queryTimeout time.Duration
	maxConns     int
}

var _ contract.ConnectionProvider = &Provider{} // Compile-time check

// NewProvider builds a provider from a validated config.
func NewProvider(cfg *contract.Config) *Provider {
	envs := make(map[schema.Environment]contract.WarehouseConfig, len(cfg.Environments))
	maps.Copy(envs, cfg.Environments)
	return &Provider{
		envs:         envs,
		queryTimeout: cfg.QueryTimeout,
		maxConns:     cfg.Workers + 2, // worker pool plus the trigger pass
	}
}

// MySQLConfig converts connection settings into a driver config.
func MySQLConfig(wc contract.WarehouseConfig, queryTimeout time.Duration) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = wc.User
	mc.Passwd = wc.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(wc.Host, strconv.Itoa(wc.Port))
	mc.DBName = wc.Database
	mc.Timeout = min(queryTimeout, maxDialTimeout)
	mc.ReadTimeout = queryTimeout
	if len(wc.Params) > 0 {
		mc.Params = maps.Clone(wc.Params)
	}
	return mc
}

// Connect implements the ConnectionProvider interface. A handle that cannot be
// pinged is reported as a ConnectivityError.
func (p *Provider) Connect(ctx context.Context, env schema.Environment) (contract.Catalog, error) {
	wc, ok := p.envs[env]
	if !ok {
		return nil, contract.NewConfigError("env", "no connection settings for environment %q", env)
	}

	connector, err := mysql.NewConnector(MySQLConfig(wc, p.queryTimeout))
	if err != nil {
		return nil, contract.NewConfigError(fmt.Sprintf("environments.%s", env), "%v", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(p.maxConns)
	db.SetMaxIdleConns(p.maxConns)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &contract.ConnectivityError{Op: fmt.Sprintf("connect to %s (%s)", env, wc.Host), Err: err}
	}

	return NewMySQLCatalog(db, p.queryTimeout), nil
}
