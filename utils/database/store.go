// Package database keeps a generated dataset in a PostgreSQL table.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultTable is used when the target URL names no table.
const DefaultTable = "dialogues"

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName checks that name is a plain SQL identifier.
func ValidateTableName(name string) error {
	if !tableNameRegex.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// IsTarget reports whether target is a PostgreSQL connection URL.
func IsTarget(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// ParseTarget splits a connection URL into the DSN handed to the driver and
// the table named by its "table" query parameter.
func ParseTarget(target string) (dsn, table string, err error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}
	if !IsTarget(target) {
		return "", "", fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}

	q := u.Query()
	table = q.Get("table")
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateTableName(table); err != nil {
		return "", "", err
	}
	q.Del("table")
	u.RawQuery = q.Encode()
	return u.String(), table, nil
}

// Store implements dataset.Store on one table of (position, record) rows.
type Store struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
}

// Open connects to target, creates the table if needed, and returns a store.
func Open(ctx context.Context, target string, logger *zap.Logger) (*Store, error) {
	dsn, table, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := NewStore(ctx, db, table, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open connection and ensures the table exists.
func NewStore(ctx context.Context, db *sql.DB, table string, logger *zap.Logger) (*Store, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{db: db, table: table, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) quotedTable() string {
	return pq.QuoteIdentifier(s.table)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	position INTEGER PRIMARY KEY,
	record JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.quotedTable())
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Load returns the stored records in position order.
func (s *Store) Load(ctx context.Context) (dataset.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT record FROM %s ORDER BY position", s.quotedTable()))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	ds := dataset.Dataset{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var rec dataset.Record
		if err := sonic.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", len(ds), err)
		}
		ds = append(ds, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	s.logger.Debug("Loaded dataset", zap.String("table", s.table), zap.Int("records", len(ds)))
	return ds, nil
}

// Save replaces the table contents with ds in one transaction.
func (s *Store) Save(ctx context.Context, ds dataset.Dataset) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.quotedTable())); err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (position, record) VALUES ($1, $2)", s.quotedTable()))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range ds {
		var raw []byte
		raw, err = sonic.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		if _, err = stmt.ExecContext(ctx, i, string(raw)); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ dataset.Store = (*Store)(nil)
