package models

// News categories.
const (
	CategoryMarkets     = "Markets"
	CategoryEconomy     = "Economy"
	CategoryCompanies   = "Companies"
	CategoryCommodities = "Commodities"
	CategoryCurrencies  = "Currencies"
	CategoryOther       = "Other"
)

// NewsItem is one numbered headline from the news blob.
type NewsItem struct {
	Sequence   int      `json:"sequence_number"`
	Headline   string   `json:"headline"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	Categories []string `json:"categories"`
}

// HasCategory reports whether the item carries category c.
func (n NewsItem) HasCategory(c string) bool {
	for _, have := range n.Categories {
		if have == c {
			return true
		}
	}
	return false
}

// Article is a raw article as returned by a news provider.
type Article struct {
	Title       string
	Source      string
	URL         string
	PublishedAt string
}
