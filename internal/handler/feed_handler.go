// Package handler はAPIエンドポイントのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/feedhub/internal/ingest"
	"github.com/hitoshi/feedhub/internal/metrics"
	"github.com/hitoshi/feedhub/internal/middleware"
	"github.com/hitoshi/feedhub/internal/model"
)

// IngestServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type IngestServiceInterface interface {
	// Subscribe はURLのフィードを取り込み、購読として登録する。
	Subscribe(ctx context.Context, profileID, feedURL string) (*ingest.SubscriptionResult, error)
	// List はプロファイルの購読一覧を返す。
	List(ctx context.Context, profileID string) ([]model.SubscribedFeed, error)
	// Unsubscribe は購読を解除する。
	Unsubscribe(ctx context.Context, profileID, profileFeedID string) error
}

// FeedHandler はフィード購読管理のHTTPハンドラー。
type FeedHandler struct {
	service   IngestServiceInterface
	collector metrics.MetricsCollector
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service IngestServiceInterface, collector metrics.MetricsCollector) *FeedHandler {
	return &FeedHandler{
		service:   service,
		collector: collector,
	}
}

// subscribeRequest は購読登録リクエストのボディ。
type subscribeRequest struct {
	URL string `json:"url"`
}

// subscribeResponse は購読登録のAPIレスポンス。
type subscribeResponse struct {
	ID          string `json:"id"`
	FeedID      string `json:"feed_id"`
	FeedLink    string `json:"feed_link"`
	FeedTitle   string `json:"feed_title"`
	Created     bool   `json:"created"`
	EntryCount  int    `json:"entry_count"`
	UnreadCount int    `json:"unread_count"`
}

// subscribedFeedResponse は購読一覧のAPIレスポンス要素。
type subscribedFeedResponse struct {
	ID          string    `json:"id"`
	FeedID      string    `json:"feed_id"`
	FeedLink    string    `json:"feed_link"`
	FeedTitle   string    `json:"feed_title"`
	FeedSiteURL string    `json:"feed_site_url,omitempty"`
	CustomTitle string    `json:"custom_title,omitempty"`
	UnreadCount int       `json:"unread_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Subscribe は購読登録を処理する。
// POST /api/feeds
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}
	if req.URL == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	start := time.Now()
	result, err := h.service.Subscribe(r.Context(), profileID, req.URL)
	h.collector.RecordIngestLatency(time.Since(start))

	if err != nil {
		h.recordFailure(err)
		middleware.WriteAPIError(w, err)
		return
	}

	h.collector.RecordIngestSuccess()
	h.collector.RecordEntriesUpserted(result.EntryCount)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(subscribeResponse{
		ID:          result.ProfileFeedID,
		FeedID:      result.FeedID,
		FeedLink:    result.FeedLink,
		FeedTitle:   result.FeedTitle,
		Created:     result.Created,
		EntryCount:  result.EntryCount,
		UnreadCount: result.UnreadCount,
	})
}

// List は購読一覧を返す。
// GET /api/feeds
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	subscribed, err := h.service.List(r.Context(), profileID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	responses := make([]subscribedFeedResponse, 0, len(subscribed))
	for _, sf := range subscribed {
		responses = append(responses, subscribedFeedResponse{
			ID:          sf.ID,
			FeedID:      sf.FeedID,
			FeedLink:    sf.FeedLink,
			FeedTitle:   sf.FeedTitle,
			FeedSiteURL: sf.FeedSiteURL,
			CustomTitle: sf.CustomTitle,
			UnreadCount: sf.UnreadCount,
			CreatedAt:   sf.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"feeds": responses})
}

// Unsubscribe は購読解除を処理する。
// DELETE /api/feeds/{id}
func (h *FeedHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	profileFeedID := urlParam(r, "id")
	if err := h.service.Unsubscribe(r.Context(), profileID, profileFeedID); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// recordFailure は取り込み失敗をエラーコード別にメトリクスへ記録する。
func (h *FeedHandler) recordFailure(err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		h.collector.RecordIngestFailure(apiErr.Code)
		return
	}
	h.collector.RecordIngestFailure("INTERNAL_ERROR")
}
