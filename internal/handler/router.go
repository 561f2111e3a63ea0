package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/feedhub/internal/metrics"
	"github.com/hitoshi/feedhub/internal/middleware"
)

// urlParam はchiのURLパラメータを取得する。
func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	ProfileEnsurer    middleware.ProfileEnsurer
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	IngestService IngestServiceInterface
	EntryService  EntryServiceInterface
	OPMLImporter  OPMLImporterInterface

	// メトリクス
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Profile → RateLimit(General)
//
// /health と /metrics はプロファイル解決の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	feedHandler := NewFeedHandler(deps.IngestService, deps.Collector)
	entryHandler := NewEntryHandler(deps.EntryService)
	importHandler := NewImportHandler(deps.OPMLImporter)

	// --- プロファイル解決不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// --- プロファイル解決が必要なルート ---
	// ミドルウェアスタック: Profile → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewProfileMiddleware(deps.ProfileEnsurer, deps.Logger))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// フィード購読管理
		r.Route("/api/feeds", func(r chi.Router) {
			// POST /api/feeds - 購読登録（登録専用レート制限を追加）
			r.With(deps.RateLimiter.SubscribeMiddleware()).Post("/", feedHandler.Subscribe)
			r.Get("/", feedHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", feedHandler.Unsubscribe)

				// GET /api/feeds/{id}/entries - 購読フィードのエントリ一覧
				r.Get("/entries", entryHandler.ListEntries)
			})
		})

		// 既読状態管理
		r.Put("/api/entries/{feedEntryID}/state", entryHandler.UpdateState)

		// OPMLインポート（購読登録専用レート制限を適用）
		r.With(deps.RateLimiter.SubscribeMiddleware()).Post("/api/imports/opml", importHandler.ImportOPML)
	})

	return r
}
