package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/deskpad/internal/model"
	"github.com/hitoshi/deskpad/internal/portfolio"
)

// PortfolioServiceInterface はポートフォリオハンドラーが必要とするサービスインターフェース。
type PortfolioServiceInterface interface {
	Add(ctx context.Context, in portfolio.AddInput) (*model.Stock, error)
	Delete(ctx context.Context, id string) (bool, error)
	List() []model.Stock
	Allocation() model.Allocation
}

// PortfolioHandler はポートフォリオのHTTPハンドラー。
type PortfolioHandler struct {
	service PortfolioServiceInterface
}

// NewPortfolioHandler はPortfolioHandlerを生成する。
func NewPortfolioHandler(service PortfolioServiceInterface) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

type addStockRequest struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// portfolioResponse は銘柄一覧とチャート用の構成比をまとめたレスポンス。
type portfolioResponse struct {
	Stocks     []model.Stock    `json:"stocks"`
	Allocation model.Allocation `json:"allocation"`
}

// List は銘柄一覧と構成比を返す。
// GET /api/portfolio
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	stocks := h.service.List()
	if stocks == nil {
		stocks = []model.Stock{}
	}
	writeJSON(w, http.StatusOK, portfolioResponse{
		Stocks:     stocks,
		Allocation: h.service.Allocation(),
	})
}

// Add は銘柄を追加する。
// POST /api/portfolio
func (h *PortfolioHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stock, err := h.service.Add(r.Context(), portfolio.AddInput{Name: req.Name, Value: req.Value})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stock)
}

// Delete は銘柄を削除する。
// DELETE /api/portfolio/{id}
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	changed, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed})
}
