package handler

import (
	"net/http"

	"github.com/hitoshi/deskpad/internal/calc"
	"github.com/hitoshi/deskpad/internal/model"
)

// CalculatorInterface は電卓ハンドラーが必要とするインターフェース。
type CalculatorInterface interface {
	Evaluate(input string) (calc.Entry, error)
	History() []calc.Entry
	Clear()
}

// CalcHandler は電卓のHTTPハンドラー。
type CalcHandler struct {
	calculator CalculatorInterface
}

// NewCalcHandler はCalcHandlerを生成する。
func NewCalcHandler(calculator CalculatorInterface) *CalcHandler {
	return &CalcHandler{calculator: calculator}
}

type evaluateRequest struct {
	Expression string `json:"expression"`
}

type historyResponse struct {
	History []calc.Entry `json:"history"`
}

// Evaluate は式を評価する。
// POST /api/calc
func (h *CalcHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.calculator.Evaluate(req.Expression)
	if err != nil {
		apiErr := model.NewCalcError(err.Error())
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// History は計算履歴を古い順に返す。
// GET /api/calc/history
func (h *CalcHandler) History(w http.ResponseWriter, r *http.Request) {
	history := h.calculator.History()
	if history == nil {
		history = []calc.Entry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{History: history})
}

// ClearHistory は計算履歴を消去する。
// DELETE /api/calc/history
func (h *CalcHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.calculator.Clear()
	w.WriteHeader(http.StatusNoContent)
}
