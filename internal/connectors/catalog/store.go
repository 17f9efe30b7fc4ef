package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"samadhi-report-ui/internal/config"
)

// Store reads the SAMADhi bookkeeping tables.
type Store struct {
	db           *sqlx.DB
	driver       string
	target       string
	queryTimeout time.Duration
}

// NewStore opens the catalogue database selected by the configuration.
func NewStore(cfg config.Config) (*Store, error) {
	var (
		db     *sqlx.DB
		err    error
		target string
	)
	switch cfg.CatalogDriver {
	case "sqlite":
		path := strings.TrimSpace(cfg.CatalogSQLitePath)
		if path == "" {
			return nil, errors.New("sqlite path required")
		}
		db, err = sqlx.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		target = path
	case "mysql", "":
		db, err = sqlx.Open("mysql", cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		target = fmt.Sprintf("%s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	default:
		return nil, fmt.Errorf("unknown catalogue driver %q", cfg.CatalogDriver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:           db,
		driver:       db.DriverName(),
		target:       target,
		queryTimeout: cfg.DBQueryTimeout,
	}, nil
}

// NewStoreFromDB wraps an already opened handle.
func NewStoreFromDB(db *sql.DB, driver string, queryTimeout time.Duration) *Store {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	return &Store{
		db:           sqlx.NewDb(db, driver),
		driver:       driver,
		target:       driver,
		queryTimeout: queryTimeout,
	}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Describe names the database for status output.
func (s *Store) Describe() string {
	return s.driver + ":" + s.target
}

// Status is a lightweight reachability summary.
type Status struct {
	Driver string `json:"driver"`
	Target string `json:"target"`
	PingMS int64  `json:"ping_ms"`
}

func (s *Store) ServiceStats(ctx context.Context) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Status{
		Driver: s.driver,
		Target: s.target,
		PingMS: time.Since(start).Milliseconds(),
	}, nil
}
