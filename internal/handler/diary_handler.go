package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/deskpad/internal/diary"
	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/model"
)

// DiaryServiceInterface は日記ハンドラーが必要とするサービスインターフェース。
type DiaryServiceInterface interface {
	Add(ctx context.Context, in diary.AddInput) (*model.DiaryEntry, error)
	Delete(ctx context.Context, id string) (bool, error)
	SetSearch(text string)
	SetDateFilter(date string) error
	DateFilter() string
	SetSort(name string) error
	SetPage(index int)
	View() listview.Page[model.DiaryEntry]
	State() listview.ViewState
	Sorts() []string
}

// DiaryHandler は日記のHTTPハンドラー。
type DiaryHandler struct {
	service DiaryServiceInterface
}

// NewDiaryHandler はDiaryHandlerを生成する。
func NewDiaryHandler(service DiaryServiceInterface) *DiaryHandler {
	return &DiaryHandler{service: service}
}

type addDiaryRequest struct {
	Date    string `json:"date"`
	Mood    string `json:"mood"`
	Content string `json:"content"`
}

// diaryPageResponse は日記一覧のレスポンス。日付フィルタを含む。
type diaryPageResponse struct {
	pageResponse[model.DiaryEntry]
	Date string `json:"date"`
}

// List は画面状態を更新して表示ページを返す。
// GET /api/diary?q=&date=&sort=&page=
// dateに空文字を指定すると日付フィルタを解除する。
func (h *DiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, hasPage, apiErr := parsePageParam(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if query.Has("q") {
		h.service.SetSearch(query.Get("q"))
	}
	if query.Has("date") {
		if err := h.service.SetDateFilter(query.Get("date")); err != nil {
			handleServiceError(w, err)
			return
		}
	}
	if sort := query.Get("sort"); sort != "" {
		if err := h.service.SetSort(sort); err != nil {
			handleServiceError(w, err)
			return
		}
	}
	if hasPage {
		h.service.SetPage(page)
	}

	view := h.service.View()
	writeJSON(w, http.StatusOK, diaryPageResponse{
		pageResponse: toPageResponse(view, h.service.State(), h.service.Sorts()),
		Date:         h.service.DateFilter(),
	})
}

// Add は日記を追加する。
// POST /api/diary
func (h *DiaryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addDiaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.service.Add(r.Context(), diary.AddInput{
		Date:    req.Date,
		Mood:    req.Mood,
		Content: req.Content,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Delete は日記を削除する。
// DELETE /api/diary/{id}
func (h *DiaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	changed, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed})
}
