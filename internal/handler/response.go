package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/middleware"
	"github.com/hitoshi/deskpad/internal/model"
)

// maxRequestBodySize はリクエストボディの上限（64KB）。
const maxRequestBodySize = 64 << 10

// changedResponse は削除・切り替え操作のレスポンス。
// 対象が存在しない場合はchanged=falseを返す（エラーにはしない）。
type changedResponse struct {
	Changed bool `json:"changed"`
}

// pageResponse は一覧画面の表示ページのレスポンス。
type pageResponse[R any] struct {
	Items     []R      `json:"items"`
	Page      int      `json:"page"`
	PageCount int      `json:"page_count"`
	Filtered  int      `json:"filtered"`
	Total     int      `json:"total"`
	Search    string   `json:"search"`
	Sort      string   `json:"sort"`
	Sorts     []string `json:"sorts"`
}

func toPageResponse[R any](page listview.Page[R], state listview.ViewState, sorts []string) pageResponse[R] {
	items := page.Items
	if items == nil {
		items = []R{}
	}
	return pageResponse[R]{
		Items:     items,
		Page:      page.CurrentPage,
		PageCount: page.PageCount,
		Filtered:  page.Filtered,
		Total:     page.Total,
		Search:    state.Search,
		Sort:      state.Sort,
		Sorts:     sorts,
	}
}

// writeJSON はJSONレスポンスを書き込む。
// ステータスコードを書き込む前にエンコードし、失敗した場合は500を返す。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// decodeJSON はリクエストボディをvにデコードする。失敗した場合はエラーレスポンスを書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディ", "正しいJSON形式ではありません"))
		return false
	}
	return true
}

// parsePageParam はpageクエリパラメータを解析する。未指定の場合はfalseを返す。
func parsePageParam(r *http.Request) (int, bool, *model.APIError) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0, false, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, model.NewValidationError("page", "整数で指定してください")
	}
	return page, true, nil
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidSort, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeCalcError, model.ErrCodeParseFailed, model.ErrCodeFeedNotDetected:
		return http.StatusUnprocessableEntity
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeFetchFailed, model.ErrCodeNewsUnavailable:
		return http.StatusBadGateway
	case model.ErrCodePersistenceFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
