package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/deskpad/internal/model"
	"github.com/hitoshi/deskpad/internal/news"
)

// NewsServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	Refresh(ctx context.Context) (news.RefreshResult, error)
	Headlines(search string) model.Headlines
	Sources() []news.Source
}

// NewsHandler はニュースのHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface) *NewsHandler {
	return &NewsHandler{service: service}
}

type sourcesResponse struct {
	Sources []news.Source `json:"sources"`
}

// Headlines は保存済みの記事を見出しの配置で返す。
// GET /api/news?q=
func (h *NewsHandler) Headlines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Headlines(r.URL.Query().Get("q")))
}

// Sources は各ニュースソースの取得状態を返す。
// GET /api/news/sources
func (h *NewsHandler) Sources(w http.ResponseWriter, r *http.Request) {
	sources := h.service.Sources()
	if sources == nil {
		sources = []news.Source{}
	}
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: sources})
}

// Refresh は取得対象のニュースソースを即時に更新する。
// POST /api/news/refresh
func (h *NewsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Refresh(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
