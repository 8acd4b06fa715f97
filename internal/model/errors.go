// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, storage, calc, news, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeInvalidSort       = "INVALID_SORT"
	ErrCodePersistenceFailed = "PERSISTENCE_FAILED"
	ErrCodeCalcError         = "CALC_ERROR"
	ErrCodeNewsUnavailable   = "NEWS_UNAVAILABLE"
	ErrCodeInvalidURL        = "INVALID_URL"
	ErrCodeSSRFBlocked       = "SSRF_BLOCKED"
	ErrCodeFetchFailed       = "FETCH_FAILED"
	ErrCodeParseFailed       = "PARSE_FAILED"
	ErrCodeFeedNotDetected   = "FEED_NOT_DETECTED"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
// fieldには検証に失敗した項目名を指定する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("%sが不正です: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認してから再度お試しください。",
	}
}

// NewInvalidSortError は未定義の並び順が指定された場合のエラーを生成する。
func NewInvalidSortError(sort string, allowed []string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("無効な並び順です: %s", sort),
		Category: "validation",
		Action:   fmt.Sprintf("並び順には %v のいずれかを指定してください。", allowed),
	}
}

// NewPersistenceError は保存失敗エラーを生成する。
// メモリ上の状態は直前に保存された状態のまま維持されている。
func NewPersistenceError(collection string) *APIError {
	return &APIError{
		Code:     ErrCodePersistenceFailed,
		Message:  fmt.Sprintf("%sの保存に失敗しました。変更は反映されていません。", collection),
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。保存容量が不足している場合は不要なデータを削除してください。",
	}
}

// NewCalcError は計算式の評価エラーを生成する。
func NewCalcError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeCalcError,
		Message:  fmt.Sprintf("計算できませんでした: %s", reason),
		Category: "calc",
		Action:   "数値と + - * / のみを使った式を入力してください。",
	}
}

// NewNewsUnavailableError はニュースを取得できない場合のエラーを生成する。
func NewNewsUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeNewsUnavailable,
		Message:  "ニュースを取得できませんでした。",
		Category: "news",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を設定してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "news",
		Action:   "公開されているニュースサイトのURLを設定してください。プライベートIPへのアクセスは許可されていません。",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("ニュースソースの取得に失敗しました: %s", reason),
		Category: "news",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewParseFailedError はパース失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "ニュースフィードの解析に失敗しました。",
		Category: "news",
		Action:   "有効なRSS/Atomフィードかどうか確認してください。",
	}
}

// NewFeedNotDetectedError はフィード未検出エラーを生成する。
func NewFeedNotDetectedError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotDetected,
		Message:  fmt.Sprintf("指定されたURLからRSS/Atomフィードを検出できませんでした: %s", url),
		Category: "news",
		Action:   "RSS/AtomフィードのURLを直接設定するか、フィードが公開されているページのURLを確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "指定された時間が経過してから再度お試しください。",
	}
}

// NewNotFoundError はルート未定義エラーを生成する。
func NewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "指定されたリソースは存在しません。",
		Category: "validation",
		Action:   "URLを確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
