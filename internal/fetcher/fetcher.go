// Package fetcher はフィード取得用のHTTPフェッチ機能を提供する。
// リトライ・バックオフは行わない。リトライポリシーは呼び出し側の責務とする。
// キャッシュも保持しない。
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedhub/internal/model"
	"github.com/hitoshi/feedhub/internal/security"
)

// userAgent はすべてのアウトバウンドリクエストに付与するUser-Agent。
const userAgent = "Feedhub/1.0 Feed Aggregator"

// defaultAccept はフィード取得時のAcceptヘッダー。
const defaultAccept = "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*"

// Request はスクレイパーのprepare段階が構築するアウトバウンドリクエスト。
// デフォルトではURLのみを持つパススルー。ホスト固有スクレイパーは
// ヘッダーを追加できる。
type Request struct {
	URL    string
	Header http.Header
}

// NewRequest は指定URLへのデフォルトリクエストを生成する。
func NewRequest(url string) *Request {
	return &Request{
		URL:    url,
		Header: http.Header{},
	}
}

// Response はフェッチ結果を表す。
// ステータス・ヘッダー・ボディをそのまま保持し、解釈はパーサーに委ねる。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType はレスポンスのContent-Typeヘッダーを返す。
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Service はHTTPフェッチのインターフェース。
type Service interface {
	// Fetch はリクエストを送信してレスポンスを返す。
	// ネットワーク・タイムアウト・エラーステータスはすべて
	// FETCH_FAILEDとして報告される。
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// HTTPFetcher はSSRF防止付きHTTPクライアントを使用するServiceの実装。
type HTTPFetcher struct {
	ssrfGuard   security.SSRFGuardService
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewHTTPFetcher はHTTPFetcherの新しいインスタンスを生成する。
func NewHTTPFetcher(
	ssrfGuard security.SSRFGuardService,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *HTTPFetcher {
	return &HTTPFetcher{
		ssrfGuard:   ssrfGuard,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch はリクエストを送信してレスポンスを返す。
// 1. SSRF検証（静的チェック + SafeClientのDialer検証）
// 2. HTTPリクエスト送信（コンテキストのキャンセルを尊重）
// 3. ボディ読み込み（最大サイズ制限付き）
func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == "" {
		return nil, model.NewInvalidURLError("URLが入力されていません")
	}

	// SSRF検証
	if err := f.ssrfGuard.ValidateURL(req.URL); err != nil {
		return nil, model.NewSSRFBlockedError()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}

	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", defaultAccept)
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		f.logger.Warn("HTTPリクエストに失敗しました",
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, model.NewFetchFailedError(fmt.Sprintf("レスポンスの読み取りに失敗: %v", err))
	}

	f.logger.Info("フェッチが完了しました",
		slog.String("url", req.URL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("body_bytes", len(body)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	// エラーステータスもFETCH_FAILEDに分類する（リダイレクトはクライアントが追跡済み）
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.NewFetchFailedError(fmt.Sprintf("HTTPステータス %d", resp.StatusCode))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// compile-time interface check
var _ Service = (*HTTPFetcher)(nil)
