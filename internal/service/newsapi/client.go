package newsapi

import (
	"context"
	"fmt"
	"strconv"

	"MarketBrief/internal/domain/models"
	"MarketBrief/internal/service/provider"
	applogger "MarketBrief/pkg/logger"
)

// DefaultQueries cover broad markets, megacaps, inflation, growth, commodities and housing.
var DefaultQueries = []string{
	"stock market OR equities OR shares OR S&P 500 OR NASDAQ OR Dow Jones",
	"Apple OR Microsoft OR Google OR Amazon OR Nvidia OR Meta OR Tesla",
	"inflation OR CPI OR PPI OR interest rates OR Federal Reserve",
	"recession OR GDP OR economy OR job market OR payrolls",
	"oil prices OR crude OR energy OR commodities OR gold",
	"housing market OR mortgage OR real estate OR home sales",
}

type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Client searches NewsAPI's everything endpoint.
type Client struct {
	*provider.Base
	queries  []string
	pageSize int
}

// New creates a NewsAPI client. Empty queries fall back to DefaultQueries.
func New(opts provider.Options, queries []string, pageSize int) *Client {
	if opts.Name == "" {
		opts.Name = "newsapi"
	}
	if len(queries) == 0 {
		queries = DefaultQueries
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &Client{Base: provider.NewBase(opts), queries: queries, pageSize: pageSize}
}

// Headlines runs every query and concatenates the articles in query order.
// A failing query is logged and skipped; an error is returned only when all fail.
func (c *Client) Headlines(ctx context.Context, from, to string) ([]models.Article, error) {
	var (
		out     []models.Article
		lastErr error
		failed  int
	)
	for _, q := range c.queries {
		articles, err := c.search(ctx, q, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			failed++
			lastErr = err
			c.Logger().Warn("news query failed", applogger.String("query", q), applogger.Error(err))
			continue
		}
		out = append(out, articles...)
	}
	if failed > 0 && failed == len(c.queries) {
		return nil, fmt.Errorf("all %d news queries failed: %w", failed, lastErr)
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, query, from, to string) ([]models.Article, error) {
	var resp everythingResponse
	err := c.GetJSON(ctx, "/v2/everything", map[string][]string{
		"q":        {query},
		"from":     {from},
		"to":       {to},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {strconv.Itoa(c.pageSize)},
		"apiKey":   {c.APIKey()},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q: %s %s", resp.Status, resp.Code, resp.Message)
	}

	out := make([]models.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		out = append(out, models.Article{
			Title:       a.Title,
			Source:      a.Source.Name,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return out, nil
}
