package planning

import (
	"regexp"
	"strings"

	"github.com/zero-day-ai/cortex/internal/retrieval"
)

var (
	recentWords   = regexp.MustCompile(`(?i)\b(current|recent)\b`)
	historicWords = regexp.MustCompile(`(?i)\b(historic|old|ancient)\b`)
	latestWords   = regexp.MustCompile(`(?i)\b(latest|today|now)\b`)
	legalWords    = regexp.MustCompile(`(?i)\b(law|laws|statute|statutes|section|provision|provisions|regulation|regulations|constitution|constitutional|legal)\b`)
)

// DetectDateRange infers a time horizon from keywords in the query.
// Checks run in the order recent, historic, latest; the first hit wins.
func DetectDateRange(query string) retrieval.DateRange {
	switch {
	case recentWords.MatchString(query):
		return retrieval.DateRangeRecent
	case historicWords.MatchString(query):
		return retrieval.DateRangeHistoric
	case latestWords.MatchString(query):
		return retrieval.DateRangeLatest
	default:
		return retrieval.DateRangeNone
	}
}

func mentionsLegalDomain(query string) bool {
	return legalWords.MatchString(query)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
