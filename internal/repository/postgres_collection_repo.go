package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresCollectionRepo はPostgreSQLを使用したコレクションリポジトリ。
// collectionsテーブルの1行が1コレクションに対応する。
type PostgresCollectionRepo struct {
	db *sql.DB
}

// NewPostgresCollectionRepo はPostgresCollectionRepoを生成する。
func NewPostgresCollectionRepo(db *sql.DB) *PostgresCollectionRepo {
	return &PostgresCollectionRepo{db: db}
}

// Get は指定名のコレクションを取得する。未保存の場合はfalseを返す。
func (r *PostgresCollectionRepo) Get(ctx context.Context, name string) ([]byte, bool, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM collections WHERE name = $1`,
		name,
	).Scan(&body)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get collection %q: %w", name, err)
	}

	return body, true, nil
}

// Set は指定名のコレクション全体をUPSERTで保存する。
func (r *PostgresCollectionRepo) Set(ctx context.Context, name string, body []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collections (name, body, updated_at)
		 VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (name) DO UPDATE SET
		     body = EXCLUDED.body,
		     updated_at = EXCLUDED.updated_at`,
		name, string(body),
	)
	if err != nil {
		return fmt.Errorf("failed to set collection %q: %w", name, err)
	}

	return nil
}
