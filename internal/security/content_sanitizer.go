package security

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// SummaryMaxRunes は記事概要の最大文字数。
const SummaryMaxRunes = 300

// SummarySanitizer はニュース記事の概要と画像URLを表示用に無害化する。
// 概要はタグを全て除去したプレーンテキストとして扱う。
type SummarySanitizer struct {
	policy   *bluemonday.Policy
	maxRunes int
}

// NewSummarySanitizer はSummarySanitizerを生成する。
func NewSummarySanitizer() *SummarySanitizer {
	return &SummarySanitizer{
		policy:   bluemonday.StrictPolicy(),
		maxRunes: SummaryMaxRunes,
	}
}

// Text はHTMLを含む概要からタグを除去し、空白を詰めたプレーンテキストを返す。
// 最大文字数を超える場合は末尾を "…" に置き換える。
func (s *SummarySanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}

	// StrictPolicyはエスケープされたテキストを返すため、表示用に戻す
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= s.maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:s.maxRunes-1])) + "…"
}

// ImageURL は画像URLがhttpsまたはhttpの絶対URLの場合のみそのまま返す。
// それ以外（data:, javascript:, 相対URL）は空文字を返す。
func (s *SummarySanitizer) ImageURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "http":
		return u.String()
	default:
		return ""
	}
}
