// Package arxiv queries the arXiv export API for paper metadata.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentlab/agentlab/internal/backoff"
	"github.com/agentlab/agentlab/internal/domain"
	"github.com/agentlab/agentlab/internal/metrics"
)

const (
	defaultBaseURL  = "http://export.arxiv.org/api/query"
	maxQueryLength  = 300
	searchRetries   = 3
	searchBaseDelay = 2 * time.Second
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	policy     backoff.Policy
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		policy:     backoff.New(searchRetries, searchBaseDelay, 0),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// processQuery collapses whitespace and truncates long queries on a
// word boundary so the API URL stays well-formed.
func processQuery(query string) string {
	if len(query) <= maxQueryLength {
		return query
	}

	var kept []string
	length := 0
	for _, word := range strings.Fields(query) {
		if length+len(word)+1 > maxQueryLength {
			break
		}
		kept = append(kept, word)
		length += len(word) + 1
	}
	return strings.Join(kept, " ")
}

// FindPapersByQuery searches abstracts for query and returns up to
// limit papers. Failed fetches are retried with exponential backoff.
func (c *Client) FindPapersByQuery(ctx context.Context, query string, limit int) ([]domain.Paper, error) {
	processed := processQuery(query)
	searchURL := fmt.Sprintf("%s?search_query=abs:%s&start=0&max_results=%d",
		c.baseURL, url.QueryEscape(processed), limit)

	var lastErr error
	for attempt := 1; ; attempt++ {
		papers, err := c.fetch(ctx, searchURL)
		if err == nil {
			metrics.RecordPaperSearch("success")
			slog.Debug("arxiv search completed", "query", processed, "papers", len(papers))
			return papers, nil
		}
		if ctx.Err() != nil {
			metrics.RecordPaperSearch("cancelled")
			return nil, fmt.Errorf("arxiv search cancelled: %w", ctx.Err())
		}

		lastErr = err
		delay, ok := c.policy.Delay(attempt)
		if !ok {
			metrics.RecordPaperSearch("error")
			return nil, fmt.Errorf("arxiv search failed after %d attempts: %w", attempt, lastErr)
		}
		slog.Warn("arxiv fetch failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		if err := c.sleep(ctx, delay); err != nil {
			metrics.RecordPaperSearch("cancelled")
			return nil, fmt.Errorf("arxiv search cancelled: %w", err)
		}
	}
}

func (c *Client) fetch(ctx context.Context, searchURL string) ([]domain.Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch arxiv results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("arxiv returned status %d", resp.StatusCode)
	}

	return parseFeed(resp.Body)
}

type feedEntry struct {
	ID         string `xml:"id"`
	Title      string `xml:"title"`
	Summary    string `xml:"summary"`
	Published  string `xml:"published"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

func parseFeed(r io.Reader) ([]domain.Paper, error) {
	var feed struct {
		Entries []feedEntry `xml:"entry"`
	}
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parse arxiv feed: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper := paperFromEntry(entry)
		// entries without a title or id are unusable downstream
		if paper.Title == "" || paper.PaperID == "" {
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

func paperFromEntry(entry feedEntry) domain.Paper {
	paper := domain.Paper{
		Title:   strings.TrimSpace(entry.Title),
		Summary: strings.TrimSpace(entry.Summary),
	}

	published := strings.TrimSpace(entry.Published)
	if idx := strings.IndexByte(published, 'T'); idx >= 0 {
		published = published[:idx]
	}
	paper.Published = published

	id := strings.TrimSpace(entry.ID)
	if idx := strings.LastIndexByte(id, '/'); idx >= 0 {
		id = id[idx+1:]
	}
	if id != "" {
		paper.PaperID = id
		paper.PDFURL = fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", id)
	}

	for _, cat := range entry.Categories {
		if cat.Term != "" {
			paper.Categories = append(paper.Categories, cat.Term)
		}
	}
	return paper
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
