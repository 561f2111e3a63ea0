package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/feedhub/internal/middleware"
	"github.com/hitoshi/feedhub/internal/model"
	"github.com/hitoshi/feedhub/internal/opml"
)

// maxOPMLSize はOPMLアップロードの最大サイズ（1MB）。
const maxOPMLSize = 1 * 1024 * 1024

// OPMLImporterInterface はインポートハンドラーが必要とするインターフェース。
type OPMLImporterInterface interface {
	// Import はOPMLドキュメントの全フィードを購読する。
	Import(ctx context.Context, profileID string, r io.Reader) (*opml.ImportResult, error)
}

// ImportHandler はOPMLインポートのHTTPハンドラー。
type ImportHandler struct {
	importer OPMLImporterInterface
}

// NewImportHandler はImportHandlerを生成する。
func NewImportHandler(importer OPMLImporterInterface) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// importFailureResponse はインポートに失敗したフィードのレスポンス要素。
type importFailureResponse struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// importResponse はOPMLインポートのAPIレスポンス。
type importResponse struct {
	Subscribed int                     `json:"subscribed"`
	Failed     []importFailureResponse `json:"failed"`
}

// ImportOPML はOPMLファイルからの購読一括インポートを処理する。
// POST /api/imports/opml
func (h *ImportHandler) ImportOPML(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.importer.Import(r.Context(), profileID, io.LimitReader(r.Body, maxOPMLSize))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "OPMLファイルの解析に失敗しました。",
			Category: "validation",
			Action:   "有効なOPML形式のファイルをアップロードしてください。",
		})
		return
	}

	failed := make([]importFailureResponse, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, importFailureResponse{URL: f.URL, Reason: f.Reason})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(importResponse{
		Subscribed: result.Subscribed,
		Failed:     failed,
	})
}
