// Package fetch 抓取任务中链接的网页并提取可读内容
// Package fetch downloads pages linked from a task and extracts the
// readable parts (title, description, body text) for AI analysis.
// Extraction is best effort; a page that cannot be fetched never fails
// the pipeline.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; taskbrief/1.0)"

// Config 抓取配置 / Config controls timeouts and size limits.
type Config struct {
	TimeoutSec    int
	MaxSizeKB     int
	MaxTextChars  int
	UserAgent     string
	MaxPagesEach  int // per-task page cap
}

// Page 提取后的页面内容 / Page holds the extracted content of one URL.
type Page struct {
	URL         string
	Title       string
	Description string
	Text        string
}

// Extractor 网页内容提取器 / Extractor fetches and parses linked pages.
type Extractor struct {
	client       *http.Client
	maxBytes     int
	maxTextChars int
	userAgent    string
	maxPages     int
}

func New(cfg Config) *Extractor {
	timeout := cfg.TimeoutSec
	if timeout <= 0 {
		timeout = 15
	}
	maxKB := cfg.MaxSizeKB
	if maxKB <= 0 {
		maxKB = 2048
	}
	maxChars := cfg.MaxTextChars
	if maxChars <= 0 {
		maxChars = 8000
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	maxPages := cfg.MaxPagesEach
	if maxPages <= 0 {
		maxPages = 3
	}
	return &Extractor{
		client:       &http.Client{Timeout: time.Duration(timeout) * time.Second},
		maxBytes:     maxKB * 1024,
		maxTextChars: maxChars,
		userAgent:    ua,
		maxPages:     maxPages,
	}
}

// Extract 抓取单个 URL 并返回提取结果
// Extract fetches one URL and returns the extracted page. Non-HTML
// and oversized responses yield an error.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Page{}, fmt.Errorf("URL must use http or https scheme")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !isHTMLMediaType(mediaType) && mediaType != "" && !strings.HasPrefix(mediaType, "text/") {
		return Page{}, fmt.Errorf("unsupported content type %q", mediaType)
	}

	limited := io.LimitReader(resp.Body, int64(e.maxBytes)+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return Page{}, fmt.Errorf("read response: %w", err)
	}
	if len(data) > e.maxBytes {
		data = data[:e.maxBytes]
	}

	page := e.parsePage(string(data))
	page.URL = rawURL
	return page, nil
}

// ExtractAll 依次抓取多个 URL,失败的跳过
// ExtractAll fetches up to the per-task cap of URLs, skipping
// failures. The returned slice keeps input order.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string) []Page {
	var pages []Page
	for _, u := range urls {
		if len(pages) >= e.maxPages {
			break
		}
		page, err := e.Extract(ctx, u)
		if err != nil {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

// Combined 拼接多个页面为分析用文本
// Combined joins pages into one text blob for the analyzer.
func Combined(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		if b.Len() > 0 {
			b.WriteString("\n\n---\n\n")
		}
		if p.Title != "" {
			b.WriteString("Title: " + p.Title + "\n")
		}
		if p.Description != "" {
			b.WriteString("Description: " + p.Description + "\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func (e *Extractor) parsePage(raw string) Page {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// 解析失败时退回原始文本 / fall back to the raw string
		return Page{Text: truncateText(raw, e.maxTextChars)}
	}

	var page Page
	var firstH1 string
	var b strings.Builder

	var walk func(*html.Node, bool)
	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			if isIgnoredHTMLTag(n.Data) {
				skip = true
			}
			switch strings.ToLower(n.Data) {
			case "title":
				if page.Title == "" {
					page.Title = strings.TrimSpace(textContent(n))
				}
			case "h1":
				if firstH1 == "" {
					firstH1 = strings.TrimSpace(textContent(n))
				}
			case "meta":
				name := strings.ToLower(attr(n, "name"))
				prop := strings.ToLower(attr(n, "property"))
				content := strings.TrimSpace(attr(n, "content"))
				if content == "" {
					break
				}
				if prop == "og:title" {
					// og:title 优先于 <title> / og:title wins over <title>
					page.Title = content
				}
				if page.Description == "" && (name == "description" || prop == "og:description") {
					page.Description = content
				}
			}
		}

		if n.Type == html.TextNode && !skip {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if b.Len() > 0 {
					b.WriteString("\n")
				}
				b.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)

	if page.Title == "" {
		page.Title = firstH1
	}
	page.Text = truncateText(b.String(), e.maxTextChars)
	return page
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func truncateText(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

func isHTMLMediaType(mediaType string) bool {
	if mediaType == "" {
		return false
	}
	switch strings.ToLower(mediaType) {
	case "text/html", "application/xhtml+xml":
		return true
	default:
		return strings.HasSuffix(strings.ToLower(mediaType), "+html")
	}
}

func isIgnoredHTMLTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style", "noscript", "iframe", "object", "embed":
		return true
	default:
		return false
	}
}
