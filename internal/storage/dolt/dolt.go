// Package dolt connects to a dolt sql-server (or any MySQL-compatible
// server) over the MySQL protocol and serves the shared SQL store on it.
package dolt

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/storage/sqlstore"
)

// Defaults for a local dolt sql-server.
const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 3307
	DefaultUser     = "root"
	DefaultDatabase = "tempo"
)

// Config holds server-mode connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	TLS      bool

	// Timeout bounds the dial. Zero uses the driver default.
	Timeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
}

// BuildDSN constructs a MySQL DSN for cfg. If database is empty, the DSN
// selects no database (used to create it).
func BuildDSN(cfg Config, database string) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = database
	mc.Timeout = cfg.Timeout
	if cfg.TLS {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// ConfigFromDSN parses a MySQL DSN such as "user:pass@tcp(host:3306)/db".
func ConfigFromDSN(dsn string) (Config, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return Config{}, fmt.Errorf("parse dsn: %w", err)
	}
	host, portStr, err := net.SplitHostPort(mc.Addr)
	if err != nil {
		return Config{}, fmt.Errorf("parse address %q: %w", mc.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Config{}, fmt.Errorf("parse port %q: %w", portStr, err)
	}
	return Config{
		Host:     host,
		Port:     port,
		User:     mc.User,
		Password: mc.Passwd,
		Database: mc.DBName,
		TLS:      mc.TLSConfig != "" && mc.TLSConfig != "false",
		Timeout:  mc.Timeout,
	}, nil
}

var validDatabaseName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]{0,63}$`)

// validateDatabaseName rejects names that could escape the backtick
// quoting of CREATE DATABASE.
func validateDatabaseName(name string) error {
	if !validDatabaseName.MatchString(name) {
		return fmt.Errorf("database name must match %s", validDatabaseName)
	}
	return nil
}

// Store is a tempo store on a Dolt sql-server. Besides the SQL store it
// exposes Dolt commits.
type Store struct {
	*sqlstore.Store
}

var _ storage.VersionedStorage = (*Store)(nil)

// Commit stages and commits every table. An empty working set is not an
// error.
func (s *Store) Commit(ctx context.Context, message string) error {
	_, err := s.DB().ExecContext(ctx, "CALL DOLT_COMMIT('-Am', ?)", message)
	if err != nil && isNothingToCommit(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dolt commit: %w", err)
	}
	return nil
}

// CurrentCommit returns the HEAD commit hash.
func (s *Store) CurrentCommit(ctx context.Context) (string, error) {
	var hash string
	if err := s.DB().QueryRowContext(ctx, "SELECT DOLT_HASHOF('HEAD')").Scan(&hash); err != nil {
		return "", fmt.Errorf("dolt head: %w", err)
	}
	return hash, nil
}

func isNothingToCommit(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "nothing to commit") || strings.Contains(s, "no changes to commit")
}

// Open connects to the server, creates the database if needed and
// initializes the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.applyDefaults()
	if err := validateDatabaseName(cfg.Database); err != nil {
		return nil, fmt.Errorf("invalid database name %q: %w", cfg.Database, err)
	}

	if err := ensureDatabase(ctx, cfg); err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", BuildDSN(cfg, cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to open Dolt server connection: %w", err)
	}
	// Server mode supports multi-writer, configure reasonable pool size
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: store}, nil
}

func ensureDatabase(ctx context.Context, cfg Config) error {
	initDB, err := sql.Open("mysql", BuildDSN(cfg, ""))
	if err != nil {
		return fmt.Errorf("failed to open init connection: %w", err)
	}
	defer func() { _ = initDB.Close() }()

	_, err = initDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)) //nolint:gosec // G201: cfg.Database validated by validateDatabaseName
	if err == nil {
		return nil
	}
	// Dolt may return error 1007 even with IF NOT EXISTS
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "database exists") || strings.Contains(errLower, "1007") {
		return nil
	}
	if strings.Contains(errLower, "connection refused") {
		return fmt.Errorf("failed to connect to Dolt server at %s:%d: %w\n\nThe Dolt server may not be running. Try:\n  dolt sql-server --port %d",
			cfg.Host, cfg.Port, err, cfg.Port)
	}
	return fmt.Errorf("failed to create database: %w", err)
}
