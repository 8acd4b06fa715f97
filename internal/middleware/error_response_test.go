package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/deskpad/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// TestWriteErrorResponse_MirrorsConstructors は各APIErrorの内容がそのままレスポンスボディになることを検証する。
func TestWriteErrorResponse_MirrorsConstructors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    *model.APIError
	}{
		{"validation", http.StatusBadRequest, model.NewValidationError("title", "タイトルは必須です")},
		{"invalid sort", http.StatusBadRequest, model.NewInvalidSortError("random", []string{"newest", "oldest"})},
		{"calc", http.StatusUnprocessableEntity, model.NewCalcError("0で割ることはできません")},
		{"rate limited", http.StatusTooManyRequests, model.NewRateLimitedError()},
		{"news unavailable", http.StatusBadGateway, model.NewNewsUnavailableError()},
		{"persistence", http.StatusServiceUnavailable, model.NewPersistenceError("todoItems")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.status, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			want := ErrorResponseBody{Code: tt.err.Code, Message: tt.err.Message, Category: tt.err.Category, Action: tt.err.Action}
			if got := decodeErrorBody(t, w); got != want {
				t.Errorf("body = %+v, want %+v", got, want)
			}
			if want.Action == "" {
				t.Error("constructor should provide an action for the user")
			}
		})
	}
}

// TestWriteInternalServerError_HidesDetails は内部エラーが汎用メッセージのみを返すことを検証する。
func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInternal || body.Category != "system" {
		t.Errorf("body = %+v, want INTERNAL_ERROR/system", body)
	}
	if body.Message != model.NewInternalError().Message {
		t.Errorf("message = %q, want the generic internal error message", body.Message)
	}
}
