package fred

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MarketBrief/internal/service/provider"
	"MarketBrief/internal/services/marketdata"
	applogger "MarketBrief/pkg/logger"
	"MarketBrief/pkg/util"
)

// Series identifiers on FRED.
const (
	Treasury10Y = "DGS10"
	Treasury2Y  = "DGS2"
)

// missingValue marks an observation FRED has no value for.
const missingValue = "."

// CurveSeries maps curve tenors to their constant-maturity Treasury series.
var CurveSeries = map[string]string{
	"3M":  "DGS3MO",
	"6M":  "DGS6MO",
	"1Y":  "DGS1",
	"2Y":  "DGS2",
	"3Y":  "DGS3",
	"5Y":  "DGS5",
	"7Y":  "DGS7",
	"10Y": "DGS10",
	"20Y": "DGS20",
	"30Y": "DGS30",
}

// Indicators maps indicator display names to FRED series.
var Indicators = map[string]string{
	"Initial Jobless Claims": "ICSA",
	"CPI":                    "CPIAUCSL",
	"PPI":                    "PPIACO",
	"Retail Sales":           "RSAFS",
	"Manufacturing PMI":      "MPMUGR",
	"Services PMI":           "SPMUGR",
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message"`
}

// Client reads series observations from the FRED API.
type Client struct {
	*provider.Base
}

// New creates a FRED client.
func New(opts provider.Options) *Client {
	if opts.Name == "" {
		opts.Name = "fred"
	}
	return &Client{Base: provider.NewBase(opts)}
}

// Series returns date -> value for id between from and to inclusive.
// Observations FRED reports as missing are left out.
func (c *Client) Series(ctx context.Context, id string, from, to time.Time) (map[string]float64, error) {
	var resp observationsResponse
	err := c.GetJSON(ctx, "/fred/series/observations", map[string][]string{
		"series_id":         {id},
		"api_key":           {c.APIKey()},
		"file_type":         {"json"},
		"observation_start": {util.DateKey(from)},
		"observation_end":   {util.DateKey(to)},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", id, err)
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("series %s: %s", id, resp.ErrorMessage)
	}

	out := make(map[string]float64, len(resp.Observations))
	for _, o := range resp.Observations {
		v := strings.TrimSpace(o.Value)
		if v == "" || v == missingValue {
			continue
		}
		f, err := marketdata.ParseNumber(v)
		if err != nil {
			c.Logger().Warn("skipping fred observation",
				applogger.String("series", id),
				applogger.String("date", o.Date),
				applogger.String("value", o.Value),
			)
			continue
		}
		out[o.Date] = f
	}
	return out, nil
}
