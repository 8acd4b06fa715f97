package news

import (
	"bytes"
	"mime"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// feedMediaTypes はフィードとして直接扱うContent-Type。
var feedMediaTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/feed+xml",
}

// xmlMediaTypes はボディを確認してフィードか判定するContent-Type。
var xmlMediaTypes = []string{
	"text/xml",
	"application/xml",
}

// sniffSize はフィード判定でボディ先頭から確認するバイト数。
const sniffSize = 4096

// mediaType はContent-Typeからパラメータを除いた小文字のメディアタイプを返す。
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsFeed はContent-Typeとボディ先頭からRSS/Atomフィードかを判定する。
func IsFeed(contentType string, body []byte) bool {
	mt := mediaType(contentType)
	if slices.Contains(feedMediaTypes, mt) {
		return true
	}
	// Content-Typeが汎用XMLまたは未指定の場合はルート要素で判定する
	if mt != "" && !slices.Contains(xmlMediaTypes, mt) {
		return false
	}

	head := strings.ToLower(string(body[:min(len(body), sniffSize)]))
	switch {
	case strings.Contains(head, "<rss"), strings.Contains(head, "<rdf:rdf"):
		return true
	case strings.Contains(head, "<feed") && strings.Contains(head, "http://www.w3.org/2005/atom"):
		return true
	default:
		return false
	}
}

// IsHTML はContent-TypeがHTMLかを判定する。
func IsHTML(contentType string) bool {
	mt := mediaType(contentType)
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// DiscoverFeedURL はHTMLページの<head>内の<link rel="alternate">からフィードURLを探す。
// 同一ホストのAtom、同一ホストのRSS、他ホストのAtom、他ホストのRSSの順に優先する。
// 見つからない場合はfalseを返す。相対URLはpageURLを基準に解決する。
func DiscoverFeedURL(body []byte, pageURL string) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	best, bestScore := "", -1
	for _, link := range headLinks(doc) {
		if !hasToken(attr(link, "rel"), "alternate") {
			continue
		}
		var score int
		switch strings.ToLower(attr(link, "type")) {
		case "application/atom+xml":
			score = 1
		case "application/rss+xml":
			score = 0
		default:
			continue
		}

		ref, err := url.Parse(strings.TrimSpace(attr(link, "href")))
		if err != nil || ref.String() == "" {
			continue
		}
		resolved := base.ResolveReference(ref)
		if strings.EqualFold(resolved.Hostname(), base.Hostname()) {
			score += 10
		}
		// 同点の場合は文書中で先に現れたものを優先する
		if score > bestScore {
			best, bestScore = resolved.String(), score
		}
	}
	return best, bestScore >= 0
}

// headLinks は<head>直下の<link>要素を文書順に返す。
func headLinks(doc *html.Node) []*html.Node {
	var head *html.Node
	for n := range doc.Descendants() {
		if n.Type == html.ElementNode && n.DataAtom == atom.Head {
			head = n
			break
		}
	}
	if head == nil {
		return nil
	}

	var links []*html.Node
	for n := range head.ChildNodes() {
		if n.Type == html.ElementNode && n.DataAtom == atom.Link {
			links = append(links, n)
		}
	}
	return links
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// hasToken は空白区切りの属性値にtokenが含まれるかを判定する。
func hasToken(value, token string) bool {
	for _, f := range strings.Fields(value) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}
