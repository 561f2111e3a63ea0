// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/hitoshi/feedhub/internal/model"
)

// profileIDHeader は認証コラボレータが設定するプロファイルIDヘッダー。
// 認証・セッション管理は前段のゲートウェイの責務であり、
// このサービスは検証済みのプロファイルIDを受け取るだけでよい。
const profileIDHeader = "X-Profile-ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// profileIDContextKey はリクエストコンテキストにプロファイルIDを格納するためのキー。
var profileIDContextKey = contextKey("profile_id")

// ProfileEnsurer はプロファイル行の存在保証に必要なインターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type ProfileEnsurer interface {
	Ensure(ctx context.Context, profile *model.Profile) error
}

// NewProfileMiddleware はX-Profile-IDヘッダーからプロファイルIDを読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// プロファイル行は初回アクセス時に遅延作成される。
// ヘッダーが無い・UUIDでないリクエストには401 Unauthorizedを返す。
func NewProfileMiddleware(ensurer ProfileEnsurer, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID := r.Header.Get(profileIDHeader)
			if profileID == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, err := uuid.Parse(profileID); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if err := ensurer.Ensure(r.Context(), &model.Profile{ID: profileID}); err != nil {
				logger.Error("プロファイルの作成に失敗しました",
					slog.String("profile_id", profileID),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewStorageUnavailableError(err.Error()))
				return
			}

			ctx := context.WithValue(r.Context(), profileIDContextKey, profileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileIDFromContext はリクエストコンテキストからプロファイルIDを取得する。
// プロファイルミドルウェアを通過したリクエストでのみ有効。
func ProfileIDFromContext(ctx context.Context) (string, error) {
	profileID, ok := ctx.Value(profileIDContextKey).(string)
	if !ok || profileID == "" {
		return "", fmt.Errorf("コンテキストにプロファイルIDがありません")
	}
	return profileID, nil
}

// ContextWithProfileID はコンテキストにプロファイルIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileIDContextKey, profileID)
}
