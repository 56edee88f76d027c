package agent

import (
	"regexp"
	"strings"
	"time"

	"athenalens/internal/model"
)

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

var relativeRanges = []struct {
	phrases []string
	days    int
}{
	{[]string{"last 7 days", "past week", "last week"}, 7},
	{[]string{"last 14 days", "past 2 weeks"}, 14},
	{[]string{"last 30 days", "past month", "last month"}, 30},
}

// relativeDateRange resolves phrases like "last 7 days" into an inclusive
// date range ending today. ok is false when no phrase matched.
func relativeDateRange(text string, now time.Time) (start, end string, ok bool) {
	lower := strings.ToLower(text)
	for _, r := range relativeRanges {
		for _, phrase := range r.phrases {
			if strings.Contains(lower, phrase) {
				return model.FormatDate(now.AddDate(0, 0, -r.days)), model.FormatDate(now), true
			}
		}
	}
	return "", "", false
}
