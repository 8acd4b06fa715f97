// Package portfolio は保有銘柄の管理と構成比の算出を行う。
package portfolio

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/model"
)

// CollectionName はポートフォリオの永続化キー。
const CollectionName = "portfolioStocks"

// AddInput は銘柄追加時の入力。
type AddInput struct {
	Name  string
	Value float64
}

// Service はポートフォリオを管理するサービス。
type Service struct {
	stocks *listview.Collection[string, model.Stock]
	newID  func() (uuid.UUID, error)

	// addMu は合計額の検査と追加を直列化する。
	addMu sync.Mutex
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store listview.Store[model.Stock], observer listview.Observer) *Service {
	return &Service{
		stocks: listview.NewCollection[string, model.Stock](CollectionName, store, observer),
		newID:  uuid.NewV7,
	}
}

// Load は永続化された銘柄を読み込む。
func (s *Service) Load(ctx context.Context) error {
	return s.stocks.Load(ctx)
}

// Add は銘柄を追加する。名前は必須で、評価額は正の有限値でなければならない。
func (s *Service) Add(ctx context.Context, in AddInput) (*model.Stock, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, model.NewValidationError("name", "銘柄名は必須です")
	}
	if math.IsNaN(in.Value) || math.IsInf(in.Value, 0) || in.Value <= 0 {
		return nil, model.NewValidationError("value", "評価額は0より大きい数値で指定してください")
	}

	s.addMu.Lock()
	defer s.addMu.Unlock()

	// 合計額が有限でなくなると構成比を算出できない
	if total := totalValue(s.stocks.Records()) + in.Value; math.IsInf(total, 0) {
		return nil, model.NewValidationError("value", "評価額の合計が大きすぎます")
	}

	id, err := s.newID()
	if err != nil {
		return nil, err
	}
	stock := model.Stock{ID: id.String(), Name: name, Value: in.Value}
	if err := s.stocks.Add(ctx, stock); err != nil {
		return nil, s.persistenceError(err, "add", stock.ID)
	}
	return &stock, nil
}

// Delete は指定IDの銘柄を削除する。該当する銘柄がない場合はfalseを返す。
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	changed, err := s.stocks.Delete(ctx, id)
	if err != nil {
		return false, s.persistenceError(err, "delete", id)
	}
	return changed, nil
}

// List は評価額の大きい順に銘柄を返す。同額の場合はID順。
func (s *Service) List() []model.Stock {
	stocks := s.stocks.Records()
	slices.SortStableFunc(stocks, func(a, b model.Stock) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return stocks
}

// Allocation はチャート描画用の構成比を返す。
// 銘柄がない場合は空のスライスと合計0を返す。
// 合計が浮動小数点の範囲を超える場合は最大評価額で正規化して割合を求め、合計はmath.MaxFloat64とする。
func (s *Service) Allocation() model.Allocation {
	stocks := s.List()
	alloc := model.Allocation{
		Labels: make([]string, 0, len(stocks)),
		Values: make([]float64, 0, len(stocks)),
		Shares: make([]float64, 0, len(stocks)),
	}
	if len(stocks) == 0 {
		return alloc
	}

	// Listは評価額の降順なので先頭が最大値
	scale := stocks[0].Value
	var scaledTotal float64
	for _, st := range stocks {
		scaledTotal += st.Value / scale
	}
	for _, st := range stocks {
		alloc.Labels = append(alloc.Labels, st.Name)
		alloc.Values = append(alloc.Values, st.Value)
		alloc.Shares = append(alloc.Shares, roundShare(st.Value/scale/scaledTotal*100))
	}

	alloc.Total = totalValue(stocks)
	if math.IsInf(alloc.Total, 0) {
		alloc.Total = math.MaxFloat64
	}
	return alloc
}

func totalValue(stocks []model.Stock) float64 {
	var total float64
	for _, st := range stocks {
		total += st.Value
	}
	return total
}

// roundShare は割合を小数点以下2桁に丸める。
func roundShare(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Service) persistenceError(err error, op, id string) error {
	if !errors.Is(err, listview.ErrPersistence) {
		return err
	}
	slog.Warn("ポートフォリオの保存に失敗しました",
		slog.String("op", op),
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	return model.NewPersistenceError(CollectionName)
}
