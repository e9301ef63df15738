// Package cleanup は認証・会話データの自動削除ジョブを提供する。
// 期限切れセッション、失効した認証トークン、履歴上限を超えた会話を
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は不要データの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
	// HistoryLimit はユーザーごとに保持する会話数の上限（デフォルト: 20）。
	HistoryLimit int
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:           db,
		logger:       logger,
		HistoryLimit: 20,
	}
}

// Run は期限切れセッション・失効トークン・上限超過の会話を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionsDeleted, err := j.exec(ctx,
		`DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	tokensDeleted, err := j.exec(ctx,
		`DELETE FROM auth_tokens WHERE expires_at < now() OR consumed_at IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("失効トークンの削除に失敗: %w", err)
	}

	// ユーザーごとにupdated_atの新しい順でHistoryLimit件を残し、
	// それより古い会話を削除する
	conversationsDeleted, err := j.exec(ctx,
		`DELETE FROM conversations
		 WHERE id IN (
		     SELECT id FROM (
		         SELECT id,
		                row_number() OVER (PARTITION BY owner_id ORDER BY updated_at DESC) AS rn
		         FROM conversations
		     ) ranked
		     WHERE ranked.rn > $1
		 )`, j.HistoryLimit)
	if err != nil {
		return fmt.Errorf("上限超過の会話の削除に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("sessions_deleted", sessionsDeleted),
		slog.Int64("tokens_deleted", tokensDeleted),
		slog.Int64("conversations_deleted", conversationsDeleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// exec はクエリを実行し削除件数を返す。
func (j *CleanupJob) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		j.logger.Error("クリーンアップクエリの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
