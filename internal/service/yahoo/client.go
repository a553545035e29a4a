package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"MarketBrief/internal/domain/models"
	"MarketBrief/internal/service/provider"
)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol           string `json:"symbol"`
				ExchangeTimezone string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Client reads daily bars from the Yahoo Finance chart endpoint.
type Client struct {
	*provider.Base
}

// New creates a Yahoo chart client.
func New(opts provider.Options) *Client {
	if opts.Name == "" {
		opts.Name = "yahoo"
	}
	return &Client{Base: provider.NewBase(opts)}
}

// DailyBars returns the daily open/close bars of symbol between from and to.
// Bars whose open or close is null are skipped. Dates are in the exchange's timezone.
func (c *Client) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	var resp chartResponse
	err := c.GetJSON(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), map[string][]string{
		"period1":  {strconv.FormatInt(from.Unix(), 10)},
		"period2":  {strconv.FormatInt(to.Unix(), 10)},
		"interval": {"1d"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	res := resp.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	loc := time.UTC
	if res.Meta.ExchangeTimezone != "" {
		if l, err := time.LoadLocation(res.Meta.ExchangeTimezone); err == nil {
			loc = l
		}
	}

	q := res.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(q.Open) || i >= len(q.Close) || q.Open[i] == nil || q.Close[i] == nil {
			continue
		}
		bars = append(bars, models.Bar{
			Date:  time.Unix(ts, 0).In(loc).Format(time.DateOnly),
			Open:  *q.Open[i],
			Close: *q.Close[i],
		})
	}
	return bars, nil
}
