package gemini

import (
	"fmt"
	"sort"
	"strings"

	"MarketBrief/internal/domain/models"
)

// BriefTitle heads every generated brief.
const BriefTitle = "PM Market Brief by Gemini"

// BuildBriefPrompt renders the daily newsletter instructions followed by the
// snapshot content as the data block.
func BuildBriefPrompt(asOf string, doc *models.SnapshotDocument) string {
	var b strings.Builder
	b.WriteString("You are an experienced economist and financial analyst specializing in market dynamics, bond markets, and Treasury yields. ")
	b.WriteString("Format your response in plain text only, avoiding any special formatting or markdown.\n\n")
	b.WriteString("You are the author of a daily PM financial newsletter that summarizes the key market developments of the day. ")
	fmt.Fprintf(&b, "The market brief should be titled '%s' in plain text.\n\n", BriefTitle)
	b.WriteString("Highlight the most important news, notable market movements, and any meaningful economic signals. ")
	b.WriteString("If the date corresponds to a weekend, do not include market tickers or Magnificent 7 stock data.\n\n")
	b.WriteString("Analyze and interpret the following financial data:\n")
	for _, item := range []string{
		"The 10-Year minus 2-Year Treasury yield spread",
		"Major stock indices (daily open and close)",
		"Market Volatility (VIX)",
		"Commodities (WTI Crude, Brent Crude, Gold)",
		"Currency Markets (US Dollar Index)",
		"The Magnificent 7 stock prices (daily open and close, last seven days)",
		"Recent economic releases",
		"Key market news headlines from the last 24 hours",
	} {
		fmt.Fprintf(&b, "• %s\n", item)
	}
	b.WriteString("\nOrganize your analysis into these sections:\n")
	b.WriteString("1. Market Summary\n   - Major Indices Performance\n   - VIX and Market Sentiment\n")
	b.WriteString("2. Fixed Income & Macro\n   - Treasury Spreads Analysis\n   - Dollar Index Movements\n")
	b.WriteString("3. Commodities & Energy\n   - Oil Markets (WTI/Brent)\n   - Gold Price Action\n")
	b.WriteString("4. Economic Data\n   - Today's Releases\n   - Forward Calendar\n")
	b.WriteString("5. Key Takeaways & Outlook\n\n")
	b.WriteString("Also include a neatly formatted table summarizing key numerical data (excluding news headlines).\n\n")

	fmt.Fprintf(&b, "Data for analysis (Date: %s):\n", asOf)
	fmt.Fprintf(&b, "- 10-Year minus 2-Year Treasury yield spread: %s\n", strings.Join(doc.SpreadSeries, ", "))
	fmt.Fprintf(&b, "- Market indices and indicators: %s\n", strings.TrimSpace(doc.Indices))
	fmt.Fprintf(&b, "- Magnificent 7 stock prices (daily open and close): %s\n", strings.TrimSpace(doc.Equities))
	fmt.Fprintf(&b, "- Economic releases from FRED: %s\n", formatIndicators(doc.EconomicIndicators))
	fmt.Fprintf(&b, "- Market news headlines (past 24h): %s\n", doc.News)
	return b.String()
}

func formatIndicators(m map[string]string) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+m[name])
	}
	return strings.Join(parts, "; ")
}
