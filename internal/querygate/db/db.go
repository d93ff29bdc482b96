// Package db opens the gateway's connection pool for the configured driver.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vaibhaw-/QueryGate/internal/querygate/config"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// DSN builds a connection string from cfg. An explicit cfg.DSN wins.
func DSN(cfg config.DatabaseCfg) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	d, err := ParseDialect(cfg.Driver)
	if err != nil {
		return "", err
	}
	switch d {
	case Postgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case MySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	default:
		if cfg.Name == "" {
			return ":memory:", nil
		}
		return cfg.Name, nil
	}
}

// Open opens and pings a pool for cfg.
func Open(ctx context.Context, cfg config.DatabaseCfg) (*sql.DB, Dialect, error) {
	d, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, "", err
	}

	pool, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", d, err)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if d == SQLite {
		// every :memory: connection is a separate database
		pool.SetMaxOpenConns(1)
	}
	pool.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, "", fmt.Errorf("ping %s at %s:%d: %w", d, cfg.Host, cfg.Port, err)
	}

	logger.L().Infow("db: connected",
		"driver", d,
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
		"max_open_conns", cfg.MaxOpenConns)
	return pool, d, nil
}
