package calc

import (
	"slices"
	"sync"
	"time"
)

// HistorySize は保持する計算履歴の件数。超えた分は古いものから破棄する。
const HistorySize = 10

// Entry は計算履歴の1件を表す。
type Entry struct {
	Input       string    `json:"input"`
	Result      float64   `json:"result"`
	Display     string    `json:"display"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Observer は評価結果を観測するフック。
type Observer interface {
	ObserveEvaluation(ok bool)
}

type noopObserver struct{}

func (noopObserver) ObserveEvaluation(bool) {}

// Calculator は式を評価し、成功した計算の履歴を保持する。
type Calculator struct {
	observer Observer
	now      func() time.Time

	mu      sync.Mutex
	history []Entry
}

// NewCalculator はCalculatorを生成する。observerがnilの場合は観測を行わない。
func NewCalculator(observer Observer) *Calculator {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Calculator{
		observer: observer,
		now:      time.Now,
	}
}

// Evaluate は式を評価し、成功した場合は履歴に追加する。
// 失敗した式は履歴に残さない。
func (c *Calculator) Evaluate(input string) (Entry, error) {
	v, err := Evaluate(input)
	c.observer.ObserveEvaluation(err == nil)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Input:       input,
		Result:      v,
		Display:     FormatResult(v),
		EvaluatedAt: c.now().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, entry)
	if len(c.history) > HistorySize {
		c.history = slices.Clone(c.history[len(c.history)-HistorySize:])
	}
	return entry, nil
}

// History は古い順の計算履歴を返す。
func (c *Calculator) History() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// Clear は計算履歴を消去する。
func (c *Calculator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}
