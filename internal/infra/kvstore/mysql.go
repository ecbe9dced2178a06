// Task 2.3: MySQL store backend.
package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register the mysql driver under the name "mysql"
	_ "github.com/go-sql-driver/mysql"
)

const defaultMySQLTable = "kv_store"

type mysqlStore struct {
	db    *sql.DB
	table string
}

// openMySQL opens a DSN of the usual user:pass@tcp(host:port)/dbname form,
// verifies connectivity, and creates the key/value table when absent.
// The table name is validated in Spec.Validate before it reaches SQL text.
func openMySQL(ctx context.Context, spec Spec) (Store, error) {
	db, err := sql.Open("mysql", spec.URL)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open mysql: %w", err)
	}

	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: ping mysql: %w", err)
	}

	table := spec.Table
	if table == "" {
		table = defaultMySQLTable
	}

	createStmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			k          VARCHAR(512)  NOT NULL PRIMARY KEY,
			v          LONGBLOB      NOT NULL,
			updated_at TIMESTAMP     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)
	`, table)
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: create mysql table %s: %w", table, err)
	}

	return &mysqlStore{db: db, table: table}, nil
}

func (s *mysqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT v FROM %s WHERE k = ?", s.table), key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kvstore: mysql get %q: %w", key, err)
	}
	return value, nil
}

func (s *mysqlStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)", s.table),
		key, value)
	if err != nil {
		return fmt.Errorf("kvstore: mysql set %q: %w", key, err)
	}
	return nil
}

func (s *mysqlStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE k = ?", s.table), key)
	if err != nil {
		return fmt.Errorf("kvstore: mysql delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("kvstore: mysql delete %q: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mysqlStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT k, v FROM %s WHERE k LIKE ? ESCAPE '\\'`, s.table),
		likePattern(prefix))
	if err != nil {
		return nil, fmt.Errorf("kvstore: mysql list %q: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("kvstore: mysql list scan: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kvstore: mysql list rows: %w", err)
	}
	return out, nil
}

func (s *mysqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *mysqlStore) Close() error { return s.db.Close() }
