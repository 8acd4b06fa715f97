package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルのメトリクスを返す。見つからない場合はnil。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestNewCollector_DoubleRegisterPanics は同じレジストリへの二重登録でpanicすることを検証する。
func TestNewCollector_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollector(reg)
}

// TestObserveMutation_IncrementsCounter はコレクション変更カウンタがラベル別に増加することを検証する。
func TestObserveMutation_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveMutation("todoItems", "add")
	c.ObserveMutation("todoItems", "add")
	c.ObserveMutation("todoItems", "delete")

	m := findMetric(t, reg, "deskpad_collection_mutations_total", map[string]string{"collection": "todoItems", "op": "add"})
	if m == nil {
		t.Fatal("deskpad_collection_mutations_total{op=add} not found")
	}
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("mutations{op=add} = %v, want 2", v)
	}
}

// TestObservePersistenceFailure_IncrementsCounter は保存失敗カウンタが増加することを検証する。
func TestObservePersistenceFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObservePersistenceFailure("diaryEntries")

	m := findMetric(t, reg, "deskpad_persistence_failures_total", map[string]string{"collection": "diaryEntries"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("persistence_failures_total = %v, want 1", m)
	}
}

// TestObserveEvaluation_SplitsByResult は電卓の評価結果が成功と失敗に分けて記録されることを検証する。
func TestObserveEvaluation_SplitsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveEvaluation(true)
	c.ObserveEvaluation(false)
	c.ObserveEvaluation(false)

	if m := findMetric(t, reg, "deskpad_calc_evaluations_total", map[string]string{"result": "ok"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("calc_evaluations_total{ok} = %v, want 1", m)
	}
	if m := findMetric(t, reg, "deskpad_calc_evaluations_total", map[string]string{"result": "error"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("calc_evaluations_total{error} = %v, want 2", m)
	}
}

// TestObserveFetch_RecordsResultAndLatency はニュース取得結果とレイテンシが記録されることを検証する。
func TestObserveFetch_RecordsResultAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveFetch("ok", 100*time.Millisecond)
	c.ObserveFetch("backoff", 2*time.Second)

	if m := findMetric(t, reg, "deskpad_news_fetch_total", map[string]string{"result": "ok"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("news_fetch_total{ok} = %v, want 1", m)
	}
	m := findMetric(t, reg, "deskpad_news_fetch_latency_seconds", map[string]string{})
	if m == nil {
		t.Fatal("deskpad_news_fetch_latency_seconds not found")
	}
	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
	if got := m.GetHistogram().GetSampleSum(); got < 2.0 || got > 2.2 {
		t.Errorf("sample sum = %v, want about 2.1", got)
	}
}

// TestObserveArticles_SetsGauge は記事数ゲージが最新値に置き換えられることを検証する。
func TestObserveArticles_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveArticles(10)
	c.ObserveArticles(4)

	m := findMetric(t, reg, "deskpad_news_articles", map[string]string{})
	if m == nil || m.GetGauge().GetValue() != 4 {
		t.Errorf("news_articles = %v, want 4", m)
	}
}

// TestRecordHTTPStatus_IncrementsByLabel はHTTPステータス別カウンタを検証する。
func TestRecordHTTPStatus_IncrementsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus("GET", 200)
	c.RecordHTTPStatus("GET", 200)
	c.RecordHTTPStatus("POST", 503)

	if m := findMetric(t, reg, "deskpad_http_requests_total", map[string]string{"method": "GET", "status_code": "200"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("http_requests_total{GET,200} = %v, want 2", m)
	}
	if m := findMetric(t, reg, "deskpad_http_requests_total", map[string]string{"method": "POST", "status_code": "503"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("http_requests_total{POST,503} = %v, want 1", m)
	}
}
