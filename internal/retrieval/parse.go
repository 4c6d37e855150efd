package retrieval

import (
	"github.com/zero-day-ai/cortex/internal/graph"
)

func parseEvent(row map[string]any) (KnowledgeItem, error) {
	var (
		item = KnowledgeItem{Kind: KindEvent}
		err  error
	)
	if item.Name, err = graph.String(row, "name"); err != nil {
		return item, err
	}
	if item.Content, err = graph.String(row, "description"); err != nil {
		return item, err
	}
	if item.Emotion, err = graph.String(row, "emotion"); err != nil {
		return item, err
	}
	if item.EmotionIntensity, err = graph.OptionalFloat(row, "emotion_intensity"); err != nil {
		return item, err
	}
	if item.StartDate, err = graph.Time(row, "start_date"); err != nil {
		return item, err
	}
	if item.Similarity, err = graph.Float(row, "similarity"); err != nil {
		return item, err
	}
	return item, nil
}

func parseClaim(row map[string]any) (KnowledgeItem, error) {
	var (
		item = KnowledgeItem{Kind: KindClaim}
		err  error
	)
	if item.Content, err = graph.String(row, "content"); err != nil {
		return item, err
	}
	if item.Source, err = graph.String(row, "source"); err != nil {
		return item, err
	}
	if item.Confidence, err = graph.OptionalFloat(row, "confidence"); err != nil {
		return item, err
	}
	if item.Similarity, err = graph.Float(row, "similarity"); err != nil {
		return item, err
	}
	return item, nil
}

func parseReference(row map[string]any) (KnowledgeItem, error) {
	var (
		item = KnowledgeItem{Kind: KindLegalReference}
		err  error
	)
	if item.Label, err = graph.String(row, "label"); err != nil {
		return item, err
	}
	if item.Name, err = graph.String(row, "name"); err != nil {
		return item, err
	}
	if item.Content, err = graph.String(row, "content"); err != nil {
		return item, err
	}
	if item.Status, err = graph.String(row, "status"); err != nil {
		return item, err
	}
	if item.Similarity, err = graph.Float(row, "similarity"); err != nil {
		return item, err
	}
	return item, nil
}

func parseChunk(row map[string]any) (KnowledgeItem, error) {
	var (
		item = KnowledgeItem{Kind: KindChunk}
		err  error
	)
	if item.Content, err = graph.String(row, "content"); err != nil {
		return item, err
	}
	if item.Source, err = graph.String(row, "source"); err != nil {
		return item, err
	}
	if item.Similarity, err = graph.Float(row, "similarity"); err != nil {
		return item, err
	}
	return item, nil
}

func parseRelationship(row map[string]any, scored bool) (ConceptRelationship, error) {
	var (
		rel ConceptRelationship
		err error
	)
	if rel.Source, err = graph.String(row, "source"); err != nil {
		return rel, err
	}
	if rel.SourceDescription, err = graph.String(row, "source_description"); err != nil {
		return rel, err
	}
	if rel.RelationType, err = graph.String(row, "relation_type"); err != nil {
		return rel, err
	}
	if rel.Target, err = graph.String(row, "target"); err != nil {
		return rel, err
	}
	if rel.TargetDescription, err = graph.String(row, "target_description"); err != nil {
		return rel, err
	}
	if scored {
		if rel.Similarity, err = graph.Float(row, "similarity"); err != nil {
			return rel, err
		}
	}
	return rel, nil
}
