package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/feedhub/internal/middleware"
	"github.com/hitoshi/feedhub/internal/model"
)

// EntryServiceInterface はエントリハンドラーが必要とするサービスインターフェース。
type EntryServiceInterface interface {
	// ListByProfileFeed は購読フィードのエントリ一覧を既読状態付きで返す。
	ListByProfileFeed(ctx context.Context, profileID, profileFeedID string, limit int) ([]model.EntryWithState, error)
	// MarkRead はエントリの既読状態を更新する。
	MarkRead(ctx context.Context, profileID, feedEntryID string, hasRead bool) error
}

// EntryHandler はエントリ閲覧・既読管理のHTTPハンドラー。
type EntryHandler struct {
	service EntryServiceInterface
}

// NewEntryHandler はEntryHandlerを生成する。
func NewEntryHandler(service EntryServiceInterface) *EntryHandler {
	return &EntryHandler{service: service}
}

// entryResponse はエントリのAPIレスポンス。
type entryResponse struct {
	FeedEntryID  string     `json:"feed_entry_id"`
	Link         string     `json:"link"`
	Title        string     `json:"title"`
	PublishedAt  *time.Time `json:"published_at"`
	Description  string     `json:"description"`
	Author       string     `json:"author,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	HasRead      bool       `json:"has_read"`
}

// updateStateRequest は既読状態更新リクエストのボディ。
type updateStateRequest struct {
	HasRead *bool `json:"has_read"`
}

// ListEntries は購読フィードのエントリ一覧を返す。
// GET /api/feeds/{id}/entries
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	profileFeedID := urlParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitパラメータが不正です。",
				Category: "validation",
				Action:   "limitには正の整数を指定してください。",
			})
			return
		}
		limit = parsed
	}

	entries, err := h.service.ListByProfileFeed(r.Context(), profileID, profileFeedID, limit)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	responses := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, entryResponse{
			FeedEntryID:  e.FeedEntryID,
			Link:         e.Link,
			Title:        e.Title,
			PublishedAt:  e.PublishedAt,
			Description:  e.Description,
			Author:       e.Author,
			ThumbnailURL: e.ThumbnailURL,
			HasRead:      e.HasRead,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": responses})
}

// UpdateState はエントリの既読状態を更新する。
// PUT /api/entries/{feedEntryID}/state
func (h *EntryHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	feedEntryID := urlParam(r, "feedEntryID")

	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HasRead == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "has_readフィールドを含むJSONでリクエストしてください。",
		})
		return
	}

	if err := h.service.MarkRead(r.Context(), profileID, feedEntryID, *req.HasRead); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"has_read": *req.HasRead})
}
