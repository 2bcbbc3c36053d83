// Package extract fetches a URL and pulls out the readable article text
// that gets fed into the summarization prompt.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	userAgent      = "Mozilla/5.0 (compatible; pagelens/1.0)"
	maxContentSize = 10 << 20 // 10 MiB fetch cap
	minTextLength  = 100
)

// Content is the readable portion of a fetched page.
type Content struct {
	Title    string
	Text     string
	SiteName string
	Excerpt  string
}

// Extractor fetches pages and extracts their article text.
type Extractor struct {
	httpClient *http.Client
}

func New(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsURL reports whether the input names a fetchable web page.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FromURL fetches and extracts the page. When readability cannot find an
// article body it falls back to page metadata and raw text.
func (e *Extractor) FromURL(ctx context.Context, pageURL string) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("extract: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract: unexpected status %d for %s", resp.StatusCode, pageURL)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize))
	if err != nil {
		return nil, fmt.Errorf("extract: read body: %w", err)
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract: parse url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil && len(article.TextContent) >= minTextLength {
		return &Content{
			Title:    article.Title,
			Text:     article.TextContent,
			SiteName: article.SiteName,
			Excerpt:  article.Excerpt,
		}, nil
	}

	return metadataFallback(body)
}

// metadataFallback extracts what it can from the DOM when the readability
// pass finds no article body.
func metadataFallback(body []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extract: parse document: %w", err)
	}

	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	excerpt, _ := doc.Find(`meta[name="description"]`).Attr("content")
	site, _ := doc.Find(`meta[property="og:site_name"]`).Attr("content")

	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if text == "" && excerpt == "" {
		return nil, fmt.Errorf("extract: no text content found")
	}
	if text == "" {
		text = excerpt
	}
	return &Content{Title: title, Text: text, SiteName: site, Excerpt: excerpt}, nil
}
