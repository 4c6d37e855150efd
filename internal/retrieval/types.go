// Package retrieval ranks knowledge graph content against a query embedding.
package retrieval

import (
	"time"
)

// Kind is the graph node kind a KnowledgeItem was projected from.
type Kind string

const (
	KindEvent               Kind = "Event"
	KindClaim               Kind = "Claim"
	KindConceptRelationship Kind = "ConceptRelationship"
	KindLegalReference      Kind = "LegalReference"
	KindChunk               Kind = "Chunk"
)

// DateRange is the time horizon a query implies.
type DateRange string

const (
	DateRangeNone     DateRange = ""
	DateRangeRecent   DateRange = "recent"
	DateRangeLatest   DateRange = "latest"
	DateRangeHistoric DateRange = "historic"
)

// ParseDateRange accepts the enum names case-insensitively; anything else,
// including "none", maps to DateRangeNone.
func ParseDateRange(s string) DateRange {
	switch DateRange(normalize(s)) {
	case DateRangeRecent:
		return DateRangeRecent
	case DateRangeLatest:
		return DateRangeLatest
	case DateRangeHistoric:
		return DateRangeHistoric
	default:
		return DateRangeNone
	}
}

// KnowledgeItem is a retrieved node. It is built once per retrieval call
// and never modified afterwards.
type KnowledgeItem struct {
	Kind    Kind   `json:"kind"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`

	Similarity float64 `json:"similarity"`

	// TemporalRelevance and CombinedScore are set for events only.
	TemporalRelevance *float64 `json:"temporalRelevance,omitempty"`
	CombinedScore     *float64 `json:"combinedScore,omitempty"`

	StartDate        *time.Time `json:"startDate,omitempty"`
	Emotion          string     `json:"emotion,omitempty"`
	EmotionIntensity *float64   `json:"emotionIntensity,omitempty"`
	Confidence       *float64   `json:"confidence,omitempty"`
	Source           string     `json:"source,omitempty"`
	Status           string     `json:"status,omitempty"`

	// Label is the concrete node label for specialized references.
	Label string `json:"label,omitempty"`
}

// Score is the value items of this kind are ranked by.
func (k KnowledgeItem) Score() float64 {
	if k.CombinedScore != nil {
		return *k.CombinedScore
	}
	return k.Similarity
}

// ConceptRelationship is one edge between two concepts.
type ConceptRelationship struct {
	Source            string  `json:"source"`
	RelationType      string  `json:"relationType"`
	Target            string  `json:"target"`
	SourceDescription string  `json:"sourceDescription,omitempty"`
	TargetDescription string  `json:"targetDescription,omitempty"`
	Similarity        float64 `json:"similarity"`
}

// Knowledge is everything retrieved for one query or sub-question.
type Knowledge struct {
	Events        []KnowledgeItem
	Claims        []KnowledgeItem
	Relationships []ConceptRelationship
	References    []KnowledgeItem
	Chunks        []KnowledgeItem
}

// IsEmpty reports whether nothing at all was retrieved.
func (k Knowledge) IsEmpty() bool {
	return len(k.Events) == 0 && len(k.Claims) == 0 && len(k.Relationships) == 0 &&
		len(k.References) == 0 && len(k.Chunks) == 0
}

// EventClaimParams bounds RelevantEventsAndClaims.
type EventClaimParams struct {
	MaxEvents           int
	MaxClaims           int
	SimilarityThreshold float64
	DateRange           DateRange
}
