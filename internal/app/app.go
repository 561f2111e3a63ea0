// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/feedhub/internal/config"
	"github.com/hitoshi/feedhub/internal/database"
	"github.com/hitoshi/feedhub/internal/document"
	"github.com/hitoshi/feedhub/internal/entry"
	"github.com/hitoshi/feedhub/internal/fetcher"
	"github.com/hitoshi/feedhub/internal/handler"
	"github.com/hitoshi/feedhub/internal/ingest"
	"github.com/hitoshi/feedhub/internal/logger"
	"github.com/hitoshi/feedhub/internal/metrics"
	"github.com/hitoshi/feedhub/internal/middleware"
	"github.com/hitoshi/feedhub/internal/opml"
	"github.com/hitoshi/feedhub/internal/repository"
	"github.com/hitoshi/feedhub/internal/scraper"
	"github.com/hitoshi/feedhub/internal/security"
	"github.com/hitoshi/feedhub/internal/worker/cleanup"
	"github.com/hitoshi/feedhub/internal/worker/refresh"
)

// cleanupInterval は孤立エントリクリーンアップの実行間隔。
const cleanupInterval = 24 * time.Hour

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// ingestDeps は取り込みパイプラインの依存一式。serveとworkerで共用する。
type ingestDeps struct {
	feedRepo        repository.FeedRepository
	profileFeedRepo repository.ProfileFeedRepository
	profileRepo     repository.ProfileRepository
	entryStateRepo  repository.EntryStateRepository
	ingestService   *ingest.Service
}

// buildIngestDeps はDB接続から取り込みパイプラインまでをワイヤリングする。
func buildIngestDeps(cfg *config.Config, db *sql.DB) *ingestDeps {
	feedRepo := repository.NewPostgresFeedRepo(db)
	profileFeedRepo := repository.NewPostgresProfileFeedRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	entryStateRepo := repository.NewPostgresEntryStateRepo(db)

	ssrfGuard := security.NewSSRFGuard(cfg.SSRFBlockedCIDRs...)
	sanitizer := security.NewDescriptionSanitizer()

	httpFetcher := fetcher.NewHTTPFetcher(ssrfGuard, slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize)
	parser := document.NewParser()

	// 既定はルート要素プローブで形式を判別するフォールバックスクレイパー。
	// ホスト固有スクレイパーはここでレジストリに登録する。
	registry := scraper.NewRegistry(scraper.NewDefaultScraper(sanitizer))

	ingestService := ingest.NewService(
		httpFetcher, parser, registry,
		feedRepo, profileFeedRepo, profileRepo,
		slog.Default(),
	)

	return &ingestDeps{
		feedRepo:        feedRepo,
		profileFeedRepo: profileFeedRepo,
		profileRepo:     profileRepo,
		entryStateRepo:  entryStateRepo,
		ingestService:   ingestService,
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 取り込みパイプラインとサービスのワイヤリング
	deps := buildIngestDeps(cfg, db)
	entryService := entry.NewService(deps.profileFeedRepo, deps.entryStateRepo, slog.Default())
	importer := opml.NewImporter(deps.ingestService, slog.Default())

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. レートリミッターとルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSubscribe),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		ProfileEnsurer:    deps.profileRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		IngestService: deps.ingestService,
		EntryService:  entryService,
		OPMLImporter:  importer,

		Collector: collector,
		Gatherer:  registry,
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、リフレッシュスケジューラとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 取り込みパイプラインのワイヤリング
	deps := buildIngestDeps(cfg, db)

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. スケジューラとクリーンアップジョブ
	scheduler := refresh.NewScheduler(
		deps.feedRepo, deps.ingestService, collector,
		slog.Default(), cfg.RefreshMaxConcurrent,
	)
	cleanupJob := cleanup.NewJob(deps.feedRepo, collector, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("refresh_interval", cfg.RefreshInterval),
		slog.Int("max_concurrent", cfg.RefreshMaxConcurrent),
	)

	// クリーンアップジョブをバックグラウンドで定期実行（起動直後に1回実行）
	go func() {
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
		cleanupJob.Start(ctx, cleanupInterval)
	}()

	// リフレッシュスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.RefreshInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
