package cmd

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// formatTime renders t relative to now for the last week, as a date otherwise.
func formatTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	case t.Year() == now.Year():
		return t.Format("Jan 2, 15:04")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// levelSummary renders per-level counts from most to least severe, skipping
// levels with no records. Unknown level names go last.
func levelSummary(counts map[string]int) string {
	var parts []string
	seen := 0
	for level := record.Critical; level >= record.Debug; level-- {
		name := level.String()
		if n := counts[name]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, name))
			seen += n
		}
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if other := total - seen; other > 0 {
		parts = append(parts, fmt.Sprintf("%d other", other))
	}
	if len(parts) == 0 {
		return "no records"
	}
	return strings.Join(parts, ", ")
}

// truncate shortens s to max runes, marking the cut with an ellipsis. Only the
// first line of s is kept.
func truncate(s string, max int) string {
	s, _, _ = strings.Cut(s, "\n")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

// collectionTitle turns a collection name such as "error_logs" into "Error Logs".
func collectionTitle(collection string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(collection, "_", " "))
}
