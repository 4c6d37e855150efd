package retrieval

import (
	"fmt"
	"sort"
	"strings"
)

// The writers below render knowledge as the plain-text sections models see.
// They are shared by the final prompt and the per-sub-question prompts.

const dateLayout = "2006-01-02"

// WriteConceptMap writes one "Source RELATION Target." line per edge.
func WriteConceptMap(sb *strings.Builder, rels []ConceptRelationship) {
	if len(rels) == 0 {
		sb.WriteString("No relevant concept relationships found.\n")
		return
	}
	for _, r := range rels {
		fmt.Fprintf(sb, "%s %s %s.\n", r.Source, r.RelationType, r.Target)
	}
}

// WriteEvents writes events with their emotion and start date.
func WriteEvents(sb *strings.Builder, events []KnowledgeItem) {
	for _, ev := range events {
		name := ev.Name
		if name == "" {
			name = "Unnamed Event"
		}
		desc := ev.Content
		if desc == "" {
			desc = "No description."
		}
		fmt.Fprintf(sb, "%s: %s\n", name, desc)
		if ev.Emotion != "" {
			fmt.Fprintf(sb, "  emotion: %s\n", ev.Emotion)
		}
		if ev.StartDate != nil {
			fmt.Fprintf(sb, "  start_date: %s\n", ev.StartDate.Format(dateLayout))
		}
		sb.WriteString("\n")
	}
}

// WriteClaims writes claims with their source.
func WriteClaims(sb *strings.Builder, claims []KnowledgeItem) {
	for _, c := range claims {
		content := c.Content
		if content == "" {
			content = "No content"
		}
		sb.WriteString(content + "\n")
		if c.Source != "" {
			fmt.Fprintf(sb, "  source: %s\n", c.Source)
		}
		sb.WriteString("\n")
	}
}

// WriteReferences writes specialized references grouped under their label.
func WriteReferences(sb *strings.Builder, refs []KnowledgeItem) {
	for _, r := range refs {
		header := r.Label
		if r.Name != "" {
			header += " " + r.Name
		}
		fmt.Fprintf(sb, "%s: %s\n\n", strings.TrimSpace(header), r.Content)
	}
}

// WriteChunks writes document passages prefixed by their source title.
func WriteChunks(sb *strings.Builder, chunks []KnowledgeItem) {
	for _, c := range chunks {
		source := c.Source
		if source == "" {
			source = "an unnamed document"
		}
		fmt.Fprintf(sb, "From %s:\n\n%s\n\n", source, c.Content)
	}
}

// Emotions returns the distinct non-empty event emotions, sorted.
func Emotions(events []KnowledgeItem) []string {
	set := make(map[string]struct{})
	for _, ev := range events {
		if e := strings.TrimSpace(ev.Emotion); e != "" {
			set[e] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// DateSpan returns the earliest and latest event start dates.
// ok is false when no event carries a date.
func DateSpan(events []KnowledgeItem) (earliest, latest string, ok bool) {
	for _, ev := range events {
		if ev.StartDate == nil {
			continue
		}
		d := ev.StartDate.Format(dateLayout)
		if !ok || d < earliest {
			earliest = d
		}
		if !ok || d > latest {
			latest = d
		}
		ok = true
	}
	return earliest, latest, ok
}
