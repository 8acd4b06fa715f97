package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/deskpad/internal/model"
)

// URLGuard はSSRF検証のインターフェース。
// security.Guardを抽象化してテストで差し替えられるようにする。
type URLGuard interface {
	ValidateURL(rawURL string) error
	NewClient(timeout time.Duration) *http.Client
}

// Sanitizer は記事概要と画像URLの無害化のインターフェース。
type Sanitizer interface {
	Text(raw string) string
	ImageURL(raw string) string
}

// ErrNotModified はソースの内容が前回取得時から変わっていないことを示す。
var ErrNotModified = errors.New("source not modified")

const userAgent = "deskpad/1.0 (+news reader)"

// Fetcher は1つのニュースソースのHTTP取得とパースを行う。
// ETag/Last-Modifiedによる条件付きGET、HTMLページからのフィード自動検出、
// gofeedによるパースを実行する。
type Fetcher struct {
	guard       URLGuard
	sanitizer   Sanitizer
	logger      *slog.Logger
	client      *http.Client
	maxBodySize int64
	interval    time.Duration
	now         func() time.Time
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// intervalは取得成功後に次回取得するまでの間隔。
func NewFetcher(guard URLGuard, sanitizer Sanitizer, logger *slog.Logger, timeout time.Duration, maxBodySize int64, interval time.Duration) *Fetcher {
	return &Fetcher{
		guard:       guard,
		sanitizer:   sanitizer,
		logger:      logger,
		client:      guard.NewClient(timeout),
		maxBodySize: maxBodySize,
		interval:    interval,
		now:         time.Now,
	}
}

// Fetch はソースを取得して記事を返し、結果に応じてソースの状態を更新する。
// 304の場合はErrNotModifiedを返す。呼び出し側でsrcへの排他を保証すること。
func (f *Fetcher) Fetch(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
	articles, result, err := f.fetch(ctx, src, true)
	if err != nil && !errors.Is(err, ErrNotModified) {
		f.logger.Warn("ニュースソースの取得に失敗しました",
			slog.String("source_url", src.URL),
			slog.String("result", result.String()),
			slog.Int("consecutive_errors", src.ConsecutiveErrors),
			slog.String("error", err.Error()),
		)
	}
	return articles, result, err
}

func (f *Fetcher) fetch(ctx context.Context, src *Source, allowDiscovery bool) ([]model.Article, FetchResult, error) {
	start := f.now()
	target := src.target()

	// SSRF検証
	if err := f.guard.ValidateURL(target); err != nil {
		src.ApplyStop(fmt.Sprintf("SSRF検証失敗: %s", err.Error()))
		return nil, FetchResultStop, model.NewSSRFBlockedError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		src.ApplyStop(fmt.Sprintf("リクエスト作成に失敗: %s", err.Error()))
		return nil, FetchResultStop, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.8, */*;q=0.5")
	if src.ETag != "" {
		req.Header.Set("If-None-Match", src.ETag)
	}
	if src.LastModified != "" {
		req.Header.Set("If-Modified-Since", src.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		src.ApplyBackoff(f.now(), fmt.Sprintf("HTTPリクエスト失敗: %s", err.Error()))
		return nil, FetchResultBackoff, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	result := ClassifyHTTPStatus(resp.StatusCode)
	switch result {
	case FetchResultOK:
	case FetchResultNotModified:
		src.ApplySuccess(f.now(), f.interval)
		return nil, result, ErrNotModified
	case FetchResultStop:
		reason := fmt.Sprintf("HTTPステータス %d により取得を停止しました", resp.StatusCode)
		src.ApplyStop(reason)
		return nil, result, model.NewFetchFailedError(reason)
	default:
		reason := fmt.Sprintf("HTTPステータス %d によりバックオフを適用しました", resp.StatusCode)
		src.ApplyBackoff(f.now(), reason)
		return nil, FetchResultBackoff, model.NewFetchFailedError(reason)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		src.ApplyBackoff(f.now(), fmt.Sprintf("レスポンス読み取り失敗: %s", err.Error()))
		return nil, FetchResultBackoff, model.NewFetchFailedError(err.Error())
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsFeed(contentType, body) && IsHTML(contentType) {
		// HTMLページの場合は1回だけフィードを自動検出して取得し直す
		feedURL, ok := DiscoverFeedURL(body, target)
		if !allowDiscovery || !ok {
			src.ApplyStop("ページからRSS/Atomフィードを検出できませんでした")
			return nil, FetchResultStop, model.NewFeedNotDetectedError(src.URL)
		}
		f.logger.Info("ニュースソースのフィードを検出しました",
			slog.String("source_url", src.URL),
			slog.String("feed_url", feedURL),
		)
		src.FeedURL = feedURL
		return f.fetch(ctx, src, false)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		src.ApplyParseFailure(f.now(), err.Error())
		return nil, FetchResultOK, model.NewParseFailedError()
	}

	src.ETag = resp.Header.Get("ETag")
	src.LastModified = resp.Header.Get("Last-Modified")
	if feed.Title != "" {
		src.Title = feed.Title
	}
	src.ApplySuccess(f.now(), f.interval)

	articles := f.convert(feed, src)
	f.logger.Info("ニュースソースの取得が完了しました",
		slog.String("source_url", src.URL),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("articles", len(articles)),
		slog.Float64("duration_ms", float64(f.now().Sub(start).Milliseconds())),
	)
	return articles, result, nil
}

// convert はgofeedの記事をmodel.Articleに変換する。リンクのない記事は捨てる。
func (f *Fetcher) convert(feed *gofeed.Feed, src *Source) []model.Article {
	sourceName := feed.Title
	if sourceName == "" {
		sourceName = src.URL
	}
	fallback := f.now().UTC()

	articles := make([]model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" && (strings.HasPrefix(item.GUID, "https://") || strings.HasPrefix(item.GUID, "http://")) {
			link = item.GUID
		}
		if link == "" {
			continue
		}

		published := fallback
		switch {
		case item.PublishedParsed != nil:
			published = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			published = item.UpdatedParsed.UTC()
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		articles = append(articles, model.Article{
			Link:        link,
			Title:       f.sanitizer.Text(item.Title),
			Description: f.sanitizer.Text(description),
			ImageURL:    f.sanitizer.ImageURL(imageURL(item)),
			Source:      sourceName,
			PublishedAt: published,
		})
	}
	return articles
}

// imageURL は記事の画像URLを返す。item.Imageがない場合は画像のenclosureを使う。
func imageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
