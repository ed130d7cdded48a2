package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/clipcast/api/internal/config"
)

// ExtractedPage holds the readable content pulled from a web page
type ExtractedPage struct {
	Text  string
	Title string
}

// ScraperClient fetches web pages and extracts their main article text,
// stripping navigation, ads and other boilerplate.
type ScraperClient struct {
	httpClient *http.Client
}

// NewScraperClient creates a new scraper with a bounded fetch timeout
func NewScraperClient(cfg *config.ScraperConfig) *ScraperClient {
	return &ScraperClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// Extract fetches the URL and returns its main text and title.
func (c *ScraperClient) Extract(ctx context.Context, pageURL string) (*ExtractedPage, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; clipcast/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable content found")
	}

	return &ExtractedPage{
		Text:  text,
		Title: strings.TrimSpace(article.Title),
	}, nil
}
