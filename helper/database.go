package helper

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// DatabaseConfiguration is the plain, exported shape of everything needed to
// dial Postgres. Loading it from flags/files is the caller's job; this
// package only knows how to build one from the environment.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads GRAPHER_DB_* environment variables and
// returns a ready-to-use configuration, defaulting Schema to "public" and
// SSLMode to "disable" when unset.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	cfg := &DatabaseConfiguration{
		Host:     getenvDefault("GRAPHER_DB_HOST", "localhost"),
		Port:     os.Getenv("GRAPHER_DB_PORT"),
		Database: getenvDefault("GRAPHER_DB_NAME", "database"),
		Username: getenvDefault("GRAPHER_DB_USER", "user"),
		Password: getenvDefault("GRAPHER_DB_PASSWORD", "password"),
		Schema:   getenvDefault("GRAPHER_DB_SCHEMA", "public"),
		SSLMode:  getenvDefault("GRAPHER_DB_SSLMODE", "disable"),
	}
	if cfg.Port == "" {
		return nil, NewKindError("load database configuration", KindConfigInvalid, fmt.Errorf("GRAPHER_DB_PORT is required"))
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *DatabaseConfiguration) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// Database wraps a live *sql.DB connection plus the structured logger every
// handler in this module shares, the same way `Grapher`'s `DB
// *helper.Database` field is shared across its own handlers.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens (and pings) a connection to Postgres. A connection
// failure here is treated as a same-process misconfiguration, not a
// retryable runtime condition, so it panics.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", config.dsn())
	if err != nil {
		log.Panicf("failed to open database connection %q: %v", name, err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	deadline := time.Now().Add(15 * time.Second)
	var pingErr error
	for time.Now().Before(deadline) {
		if pingErr = db.Ping(); pingErr == nil {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if pingErr != nil {
		log.Panicf("failed to ping database connection %q: %v", name, pingErr)
	}

	logger.Info("connected to database", "name", name, "host", config.Host, "port", config.Port)

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}

// NewTestDatabase is NewDatabase with a fixed "test" name and a quiet
// default logger, for use from package TestMain helpers.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(NewPrettyHandler(os.Stdout, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelWarn},
	}))
	return NewDatabase("test", config, logger)
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
