package retrieval

import (
	"math"
	"strings"
	"time"
)

const (
	daysPerYear = 365.25

	recentDecay    = 0.33
	latestDecay    = recentDecay * 10
	historicScale  = 50.0
	defaultFalloff = 5.0

	similarityWeight = 0.7
	temporalWeight   = 0.3
)

// TemporalRelevance scores how well an item of the given age fits the
// date range, in [0,1]. Future dates count as age zero.
//
//	recent:   exp(-years * 0.33)
//	latest:   exp(-years * 3.3)
//	historic: 1 - exp(-years / 50)
//	none:     1 / (1 + years / 5)
func TemporalRelevance(r DateRange, age time.Duration) float64 {
	years := age.Hours() / 24 / daysPerYear
	if years < 0 {
		years = 0
	}
	switch r {
	case DateRangeRecent:
		return math.Exp(-years * recentDecay)
	case DateRangeLatest:
		return math.Exp(-years * latestDecay)
	case DateRangeHistoric:
		return 1 - math.Exp(-years/historicScale)
	default:
		return 1 / (1 + years/defaultFalloff)
	}
}

// CombinedScore blends similarity and temporal relevance for events.
func CombinedScore(similarity, temporal float64) float64 {
	return similarityWeight*similarity + temporalWeight*temporal
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
