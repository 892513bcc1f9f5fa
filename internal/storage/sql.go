package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLBackend stores one area in the kv_items table (see internal/db).
type SQLBackend struct {
	db   *sql.DB
	area string
}

func NewSQLBackend(db *sql.DB, area string) *SQLBackend {
	return &SQLBackend{db: db, area: area}
}

func (s *SQLBackend) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_items WHERE area=$1 AND key=$2`, s.area, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (s *SQLBackend) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_items (area,key,value,updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (area,key) DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at`,
		s.area, key, value, time.Now().Unix())
	return err
}

func (s *SQLBackend) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_items WHERE area=$1 AND key=$2`, s.area, key)
	return err
}

func (s *SQLBackend) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_items WHERE area=$1 ORDER BY key`, s.area)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
