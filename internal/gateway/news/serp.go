package news

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"
	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/market"
)

const serpEndpoint = "https://serpapi.com/search.json"

// SerpSource pulls a Google News headline digest through SerpAPI. The digest
// is advisory context for the oracle: any failure degrades to an empty slice
// and never blocks the cycle.
type SerpSource struct {
	apiKey  string
	query   string
	limit   int
	timeout time.Duration
	httpc   *http.Client

	baseURL string // test override
}

func NewSerpSource(apiKey, query string, limit int, timeout time.Duration) *SerpSource {
	if query == "" {
		query = "bitcoin"
	}
	if limit <= 0 {
		limit = 10
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SerpSource{
		apiKey:  apiKey,
		query:   query,
		limit:   limit,
		timeout: timeout,
		httpc:   &http.Client{Timeout: timeout},
		baseURL: serpEndpoint,
	}
}

func (s *SerpSource) FetchDigest(ctx context.Context) []market.NewsItem {
	q := url.Values{}
	q.Set("engine", "google_news")
	q.Set("q", s.query)
	q.Set("gl", "us")
	q.Set("hl", "en")
	q.Set("api_key", s.apiKey)

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		logger.Warnf("[news] build request failed: %v", err)
		return nil
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		logger.Warnf("[news] fetch failed: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warnf("[news] fetch returned %s", resp.Status)
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		logger.Warnf("[news] read body failed: %v", err)
		return nil
	}

	results := gjson.GetBytes(body, "news_results")
	if !results.IsArray() {
		logger.Warnf("[news] response has no news_results")
		return nil
	}
	items := make([]market.NewsItem, 0, s.limit)
	results.ForEach(func(_, item gjson.Result) bool {
		title := item.Get("title").String()
		if title == "" {
			return true
		}
		items = append(items, market.NewsItem{
			Title: title,
			Date:  item.Get("date").String(),
		})
		return len(items) < s.limit
	})
	return items
}
