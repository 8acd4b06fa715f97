package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/model"
	"github.com/hitoshi/deskpad/internal/todo"
)

// TodoServiceInterface はTodoハンドラーが必要とするサービスインターフェース。
type TodoServiceInterface interface {
	Add(ctx context.Context, in todo.AddInput) (*model.Todo, error)
	Toggle(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	SetSearch(text string)
	SetSort(name string) error
	SetPage(index int)
	View() listview.Page[model.Todo]
	State() listview.ViewState
	Sorts() []string
}

// TodoHandler はTodoリストのHTTPハンドラー。
type TodoHandler struct {
	service TodoServiceInterface
}

// NewTodoHandler はTodoHandlerを生成する。
func NewTodoHandler(service TodoServiceInterface) *TodoHandler {
	return &TodoHandler{service: service}
}

// addTodoRequest はTodo追加リクエストのボディ。
type addTodoRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Priority int    `json:"priority"`
}

// List は画面状態を更新して表示ページを返す。
// GET /api/todos?q=&sort=&page=
// 指定されたクエリパラメータのみ画面状態に反映する。q → sort → page の順に適用する。
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, hasPage, apiErr := parsePageParam(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if query.Has("q") {
		h.service.SetSearch(query.Get("q"))
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
	writeJSON(w, http.StatusOK, toPageResponse(view, h.service.State(), h.service.Sorts()))
}

// Add はTodoを追加する。
// POST /api/todos
func (h *TodoHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.Add(r.Context(), todo.AddInput{
		Title:    req.Title,
		Content:  req.Content,
		Priority: req.Priority,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Toggle はTodoの完了状態を切り替える。
// POST /api/todos/{id}/toggle
func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}
	changed, err := h.service.Toggle(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed})
}

// Delete はTodoを削除する。
// DELETE /api/todos/{id}
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}
	changed, err := h.service.Delete(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed})
}

func parseTodoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("id", "整数で指定してください"))
		return 0, false
	}
	return id, true
}
