package news

import (
	"fmt"
	"time"
)

// SourceStatus はニュースソースの取得状態を表す。
type SourceStatus string

const (
	// SourceStatusActive は定期取得の対象。
	SourceStatusActive SourceStatus = "active"
	// SourceStatusStopped は取得を停止した状態。再起動まで再開しない。
	SourceStatusStopped SourceStatus = "stopped"
)

// FetchResult はHTTPステータスコードに基づく取得結果の分類。
type FetchResult int

const (
	// FetchResultOK は取得成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultNotModified はコンテンツ未変更（304）。
	FetchResultNotModified
	// FetchResultStop は取得停止が必要なステータス（404/410/401/403）。
	FetchResultStop
	// FetchResultBackoff はバックオフが必要なステータス（429/5xx）。
	FetchResultBackoff
	// FetchResultUnknown は未知のステータスコード。
	FetchResultUnknown
)

// String はログ・メトリクス用の名前を返す。
func (r FetchResult) String() string {
	switch r {
	case FetchResultOK:
		return "ok"
	case FetchResultNotModified:
		return "not_modified"
	case FetchResultStop:
		return "stopped"
	case FetchResultBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

const (
	// initialBackoff は指数バックオフの初回遅延。
	initialBackoff = time.Minute
	// maxBackoff は指数バックオフの最大遅延。
	maxBackoff = time.Hour
	// parseFailureThreshold はパース失敗による取得停止の閾値。
	parseFailureThreshold = 5
)

// Source は設定された1つのニュースソースと、その取得状態を保持する。
// 状態はプロセス内でのみ保持し、永続化しない。
type Source struct {
	// URL は設定されたURL。HTMLページの場合もある。
	URL string `json:"url"`
	// FeedURL は自動検出後の実際のフィードURL。未解決の場合は空。
	FeedURL           string       `json:"feed_url,omitempty"`
	Title             string       `json:"title,omitempty"`
	ETag              string       `json:"-"`
	LastModified      string       `json:"-"`
	Status            SourceStatus `json:"status"`
	ConsecutiveErrors int          `json:"consecutive_errors"`
	ErrorMessage      string       `json:"error_message,omitempty"`
	NextFetchAt       time.Time    `json:"next_fetch_at"`
	LastFetchedAt     time.Time    `json:"last_fetched_at,omitzero"`
}

// NewSource は取得対象のSourceを生成する。
func NewSource(url string) *Source {
	return &Source{URL: url, Status: SourceStatusActive}
}

// target は実際に取得するURLを返す。
func (s *Source) target() string {
	if s.FeedURL != "" {
		return s.FeedURL
	}
	return s.URL
}

// Due はソースが取得対象かを判定する。
func (s *Source) Due(now time.Time) bool {
	return s.Status == SourceStatusActive && !now.Before(s.NextFetchAt)
}

// ClassifyHTTPStatus はHTTPステータスコードを取得結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == 200:
		return FetchResultOK
	case statusCode == 304:
		return FetchResultNotModified
	case statusCode == 404, statusCode == 410, statusCode == 401, statusCode == 403:
		return FetchResultStop
	case statusCode == 429, statusCode >= 500:
		return FetchResultBackoff
	default:
		return FetchResultUnknown
	}
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回1分、2倍ずつ増加、最大1時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for range consecutiveErrors {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// ApplyStop はソースの取得を停止する。
func (s *Source) ApplyStop(reason string) {
	s.Status = SourceStatusStopped
	s.ErrorMessage = reason
}

// ApplyBackoff は連続エラー回数をインクリメントし、指数バックオフで次回取得時刻を設定する。
func (s *Source) ApplyBackoff(now time.Time, reason string) {
	s.ConsecutiveErrors++
	s.ErrorMessage = reason
	s.NextFetchAt = now.Add(CalculateBackoff(s.ConsecutiveErrors - 1))
}

// ApplySuccess は取得成功時にエラー状態をリセットし、次回取得時刻を設定する。
func (s *Source) ApplySuccess(now time.Time, interval time.Duration) {
	s.ConsecutiveErrors = 0
	s.ErrorMessage = ""
	s.LastFetchedAt = now
	s.NextFetchAt = now.Add(interval)
}

// ApplyParseFailure はパース失敗を記録する。閾値に達した場合は取得を停止する。
func (s *Source) ApplyParseFailure(now time.Time, reason string) {
	s.ApplyBackoff(now, fmt.Sprintf("パース失敗 (%d回連続): %s", s.ConsecutiveErrors+1, reason))
	if s.ConsecutiveErrors >= parseFailureThreshold {
		s.ApplyStop(fmt.Sprintf("パース失敗が%d回連続したため取得を停止しました: %s", s.ConsecutiveErrors, reason))
	}
}
