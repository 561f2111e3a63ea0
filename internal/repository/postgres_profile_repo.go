package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedhub/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロファイルリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// Ensure はプロファイル行が存在することを保証する。
// プロファイルIDは認証コラボレータから渡されるため、初回アクセス時に
// 参照整合性のための行を遅延作成する。既存の場合は何もしない。
func (r *PostgresProfileRepo) Ensure(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		profile.ID, profile.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("プロファイルの作成に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
