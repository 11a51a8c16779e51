package render

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

const timestampLayout = "2006-01-02 15:04:05"

const (
	TitleText   = "Country Statistics Summary"
	HeadingText = "Top 5 Countries by Estimated GDP:"
)

// FormatGDP renders an amount as "$1,234,567.89".
func FormatGDP(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func FormatTotal(n int64) string {
	return fmt.Sprintf("Total Countries: %d", n)
}

func FormatEntry(e Entry) string {
	return fmt.Sprintf("%d. %s: %s", e.Rank, e.Name, FormatGDP(e.EstimatedGDP))
}

func FormatLastRefreshed(t time.Time) string {
	return "Last Refreshed: " + t.UTC().Format(timestampLayout) + " UTC"
}

// Lines returns the summary text top to bottom.
func (s Summary) Lines() []string {
	lines := []string{TitleText, FormatTotal(s.TotalCountries), HeadingText}
	for _, e := range s.Top {
		lines = append(lines, FormatEntry(e))
	}
	return append(lines, FormatLastRefreshed(s.LastRefreshedAt))
}
