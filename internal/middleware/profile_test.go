package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/feedhub/internal/model"
)

// mockEnsurer はProfileEnsurerのテスト用モック。
type mockEnsurer struct {
	ensured []string
	err     error
}

func (m *mockEnsurer) Ensure(_ context.Context, profile *model.Profile) error {
	if m.err != nil {
		return m.err
	}
	m.ensured = append(m.ensured, profile.ID)
	return nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

const testProfileID = "8b5d3f1a-9a36-4a85-a2f5-0123456789ab"

func TestProfileMiddleware_MissingHeader(t *testing.T) {
	var buf bytes.Buffer
	mw := NewProfileMiddleware(&mockEnsurer{}, newTestLogger(&buf))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("ヘッダーなしのリクエストはハンドラーに到達してはならない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProfileMiddleware_InvalidUUID(t *testing.T) {
	var buf bytes.Buffer
	mw := NewProfileMiddleware(&mockEnsurer{}, newTestLogger(&buf))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("不正なIDのリクエストはハンドラーに到達してはならない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("X-Profile-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProfileMiddleware_InjectsProfileIDAndEnsuresRow(t *testing.T) {
	var buf bytes.Buffer
	ensurer := &mockEnsurer{}
	mw := NewProfileMiddleware(ensurer, newTestLogger(&buf))

	var gotProfileID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProfileID, _ = ProfileIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("X-Profile-ID", testProfileID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotProfileID != testProfileID {
		t.Errorf("コンテキストのプロファイルID = %q, want %q", gotProfileID, testProfileID)
	}
	// プロファイル行が遅延作成されること
	if len(ensurer.ensured) != 1 || ensurer.ensured[0] != testProfileID {
		t.Errorf("Ensureの呼び出し = %v", ensurer.ensured)
	}
}

func TestProfileMiddleware_EnsureFailure(t *testing.T) {
	var buf bytes.Buffer
	mw := NewProfileMiddleware(&mockEnsurer{err: fmt.Errorf("connection refused")}, newTestLogger(&buf))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("プロファイル作成失敗時はハンドラーに到達してはならない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("X-Profile-ID", testProfileID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスボディの解析に失敗: %v", err)
	}
	if body.Code != model.ErrCodeStorageUnavailable {
		t.Errorf("エラーコード = %q, want %q", body.Code, model.ErrCodeStorageUnavailable)
	}
}

func TestProfileIDFromContext_Missing(t *testing.T) {
	if _, err := ProfileIDFromContext(context.Background()); err == nil {
		t.Error("プロファイルIDなしのコンテキストはエラーになるべき")
	}
}

func TestContextWithProfileID_RoundTrip(t *testing.T) {
	ctx := ContextWithProfileID(context.Background(), testProfileID)
	got, err := ProfileIDFromContext(ctx)
	if err != nil {
		t.Fatalf("ProfileIDFromContext() がエラーを返した: %v", err)
	}
	if got != testProfileID {
		t.Errorf("プロファイルID = %q, want %q", got, testProfileID)
	}
}
