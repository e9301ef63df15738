package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/adfleek/internal/model"
)

// PostgresLibraryRepo はPostgreSQLを使用したライブラリリポジトリ。
// ユーザーごとに1行、画像エントリをjsonb配列で保持する。
// 先頭への追加はupsert付きの単一文で行い、初回保存時に行を遅延作成する。
type PostgresLibraryRepo struct {
	db *sql.DB
}

// NewPostgresLibraryRepo はPostgresLibraryRepoを生成する。
func NewPostgresLibraryRepo(db *sql.DB) *PostgresLibraryRepo {
	return &PostgresLibraryRepo{db: db}
}

// PrependImage はライブラリの先頭にエントリを追加する（スタック順）。
// ライブラリが未作成の場合はupsertで遅延作成する。
func (r *PostgresLibraryRepo) PrependImage(ctx context.Context, ownerID string, entry model.LibraryEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal library entry: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO libraries (owner_id, images, created_at, updated_at)
		 VALUES ($1, jsonb_build_array($2::jsonb), now(), now())
		 ON CONFLICT (owner_id)
		 DO UPDATE SET images = jsonb_build_array($2::jsonb) || libraries.images,
		               updated_at = now()`,
		ownerID, entryJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to prepend library image: %w", err)
	}
	return nil
}

// ListByOwner はライブラリのエントリを新しい順に返す。
// ライブラリが未作成の場合は空スライスを返す。
func (r *PostgresLibraryRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.LibraryEntry, error) {
	var images []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT images FROM libraries WHERE owner_id = $1`,
		ownerID,
	).Scan(&images)

	if err == sql.ErrNoRows {
		return []model.LibraryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find library: %w", err)
	}

	entries := []model.LibraryEntry{}
	if err := json.Unmarshal(images, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal library entries: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ LibraryRepository = (*PostgresLibraryRepo)(nil)
