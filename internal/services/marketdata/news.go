package marketdata

import (
	"regexp"
	"strconv"
	"strings"

	"MarketBrief/internal/domain/models"
)

var (
	numberedLine = regexp.MustCompile(`^\d+\.`)
	newsLine     = regexp.MustCompile(`^(\d+)\.\s+(.*?)\s+Source:\s*(.*?)\s+URL:\s*(\S*)$`)
)

type categoryRule struct {
	category string
	keywords []string
}

// rules are matched case-insensitively as substrings of the headline.
var rules = []categoryRule{
	{models.CategoryMarkets, []string{"stock", "market", "index", "s&p", "dow", "nasdaq"}},
	{models.CategoryEconomy, []string{"gdp", "inflation", "economy", "fed", "rates"}},
	{models.CategoryCompanies, []string{"inc", "corp", "company", "ceo"}},
	{models.CategoryCommodities, []string{"oil", "gold", "commodity", "crude"}},
	{models.CategoryCurrencies, []string{"dollar", "currency", "forex", "usd"}},
}

// Categories lists the selectable categories in rule order.
func Categories() []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.category)
	}
	return out
}

// DefaultCategories is the dashboard's initial news filter.
var DefaultCategories = []string{models.CategoryMarkets, models.CategoryEconomy}

// SplitNewsBlob splits the collector's news text into items. Leading lines that
// are not numbered are headers and are dropped; after that every non-blank line
// that does not match "i. TITLE   Source: SOURCE  URL: URL" is counted in skipped.
func SplitNewsBlob(text string) (items []models.NewsItem, skipped int) {
	inHeader := true
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if inHeader {
			if !numberedLine.MatchString(line) {
				continue
			}
			inHeader = false
		}
		m := newsLine.FindStringSubmatch(line)
		if m == nil {
			skipped++
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			skipped++
			continue
		}
		headline := strings.TrimSpace(m[2])
		items = append(items, models.NewsItem{
			Sequence:   seq,
			Headline:   headline,
			Source:     strings.TrimSpace(m[3]),
			URL:        m[4],
			Categories: Categorize(headline),
		})
	}
	return items, skipped
}

// Categorize returns every category whose keywords occur in headline, in rule
// order, or exactly [Other] when none do.
func Categorize(headline string) []string {
	h := strings.ToLower(headline)
	var out []string
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(h, kw) {
				out = append(out, r.category)
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{models.CategoryOther}
	}
	return out
}

// FilterByCategory keeps items sharing at least one category with selected and
// returns at most limit of them in their original order. limit <= 0 means no cap.
func FilterByCategory(items []models.NewsItem, selected []string, limit int) []models.NewsItem {
	out := make([]models.NewsItem, 0)
	for _, it := range items {
		if limit > 0 && len(out) >= limit {
			break
		}
		for _, c := range selected {
			if it.HasCategory(c) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
