package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newLimitedRequest(profileID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	return req.WithContext(ContextWithProfileID(req.Context(), profileID))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(3, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newLimitedRequest("profile-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("%d回目のリクエスト: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestGeneralMiddleware_BlocksOverBurst(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(2, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newLimitedRequest("profile-1"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newLimitedRequest("profile-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("バースト超過のstatus = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429レスポンスにはRetry-Afterヘッダーが必要")
	}
}

func TestGeneralMiddleware_PerProfileIsolation(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// profile-1のバーストを使い切る
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newLimitedRequest("profile-1"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newLimitedRequest("profile-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("profile-1は制限されるべき: %d", rec.Code)
	}

	// 別プロファイルは影響を受けない
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newLimitedRequest("profile-2"))
	if rec.Code != http.StatusOK {
		t.Errorf("profile-2のstatus = %d, want 200", rec.Code)
	}
}

func TestSubscribeMiddleware_IndependentFromGeneral(t *testing.T) {
	// 購読レート制限はAPI全般の制限とは独立に動作する
	rl := NewRateLimiter(NewRateLimiterConfig(10, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	subscribe := rl.SubscribeMiddleware()(okHandler())

	// 購読のバースト(1)を使い切る
	rec := httptest.NewRecorder()
	subscribe.ServeHTTP(rec, newLimitedRequest("profile-1"))
	rec = httptest.NewRecorder()
	subscribe.ServeHTTP(rec, newLimitedRequest("profile-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("購読の2回目は制限されるべき: %d", rec.Code)
	}

	// API全般はまだ通る
	rec = httptest.NewRecorder()
	general.ServeHTTP(rec, newLimitedRequest("profile-1"))
	if rec.Code != http.StatusOK {
		t.Errorf("API全般のstatus = %d, want 200", rec.Code)
	}
}

func TestMiddleware_UnauthorizedWithoutProfile(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(10, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// プロファイルIDのないコンテキスト（ProfileMiddlewareを通っていない）
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feeds", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRateLimiter_LimiterCounts(t *testing.T) {
	rl := NewRateLimiter(NewRateLimiterConfig(10, 10))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	subscribe := rl.SubscribeMiddleware()(okHandler())

	general.ServeHTTP(httptest.NewRecorder(), newLimitedRequest("profile-1"))
	general.ServeHTTP(httptest.NewRecorder(), newLimitedRequest("profile-2"))
	subscribe.ServeHTTP(httptest.NewRecorder(), newLimitedRequest("profile-1"))

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", got)
	}
	if got := rl.SubscribeLimiterCount(); got != 1 {
		t.Errorf("SubscribeLimiterCount = %d, want 1", got)
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	config := NewRateLimiterConfig(10, 10)
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), newLimitedRequest("profile-1"))

	// 最終アクセスをTTL(間隔の2倍)より過去に偽装してクリーンアップを直接実行
	rl.generalMu.Lock()
	rl.generalLimiters["profile-1"].lastAccess = time.Now().Add(-time.Minute)
	rl.generalMu.Unlock()

	rl.cleanup()

	if got := rl.GeneralLimiterCount(); got != 0 {
		t.Errorf("期限切れエントリは削除されるべき: %d件", got)
	}
}

func TestNewRateLimiterConfig_ConvertsPerMinuteRates(t *testing.T) {
	config := NewRateLimiterConfig(120, 10)

	if float64(config.GeneralRate) != 2.0 {
		t.Errorf("GeneralRate = %v, want 2.0 req/sec", config.GeneralRate)
	}
	if config.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", config.GeneralBurst)
	}
	if config.SubscribeBurst != 10 {
		t.Errorf("SubscribeBurst = %d, want 10", config.SubscribeBurst)
	}
}
