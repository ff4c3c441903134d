package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists credentials in a SQLite database so a session survives
// process restarts.
type SQLiteStore struct {
	db     *sql.DB
	sealer *Sealer
}

// NewSQLiteStore opens (or creates) the database at dbPath. Use ":memory:" for
// a throwaway store. A nil sealer stores values in plain text.
func NewSQLiteStore(dbPath string, sealer *Sealer) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// an in-memory database lives and dies with its connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	return &SQLiteStore{db: db, sealer: sealer}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	return initTable(db, "credential", `
		CREATE TABLE IF NOT EXISTS credential (
			name        TEXT PRIMARY KEY,
			value       BLOB NOT NULL,
			updated     INTEGER NOT NULL
		);`,
	)
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(
	ctx context.Context,
	key string,
) (
	string,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT value
		FROM credential
		WHERE name=?1;`,
		key,
	)

	var stored []byte
	err := row.Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrAbsent
	}
	if err != nil {
		return "", fmt.Errorf("couldn't scan credential: %w", err)
	}
	return open(s.sealer, key, stored)
}

func (s *SQLiteStore) Set(
	ctx context.Context,
	key string,
	value string,
) error {
	if err := validateKey(key); err != nil {
		return err
	}

	stored, err := seal(s.sealer, key, value)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credential (name, value, updated)
		VALUES (?1, ?2, ?3)
		ON CONFLICT(name) DO UPDATE SET
			value=excluded.value,
			updated=excluded.updated;`,
		key,
		stored,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("couldn't upsert credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(
	ctx context.Context,
	key string,
) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM credential
		WHERE name=?1;`,
		key,
	)
	if err != nil {
		return fmt.Errorf("couldn't delete credential: %w", err)
	}
	return nil
}
