package planning

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// planResponse is the JSON document the planning model returns.
type planResponse struct {
	KeyEntities         []string           `json:"key_entities"`
	KeyConcepts         []string           `json:"key_concepts"`
	TimeReference       *string            `json:"time_reference"`
	IsSpecializedDomain bool               `json:"is_specialized_domain"`
	Questions           []questionResponse `json:"chain_of_thought_questions"`
	IdealMix            map[string]float64 `json:"ideal_mix"`
}

type questionResponse struct {
	Question       string   `json:"question"`
	ReasoningTypes []string `json:"reasoning_types"`
}

func intPtr(n int) *int { return &n }

func stringArray() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
}

// planSchema is the contract for planResponse. Budget values are plain
// numbers here; clamping happens during normalization.
func planSchema() *jsonschema.Schema {
	budgetValue := &jsonschema.Schema{Type: "number"}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"key_entities":          stringArray(),
			"key_concepts":          stringArray(),
			"time_reference":        {Types: []string{"string", "null"}},
			"is_specialized_domain": {Type: "boolean"},
			"chain_of_thought_questions": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"question":        {Type: "string", MinLength: intPtr(1)},
						"reasoning_types": stringArray(),
					},
					Required: []string{"question", "reasoning_types"},
				},
			},
			"ideal_mix": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"events":        budgetValue,
					"claims_ideas":  budgetValue,
					"chunks":        budgetValue,
					"relationships": budgetValue,
				},
			},
		},
		Required: []string{"key_entities", "key_concepts", "chain_of_thought_questions"},
	}
}

// schemaValidator checks raw model output against planSchema before it is
// decoded into planResponse.
type schemaValidator struct {
	resolved *jsonschema.Resolved
}

func newSchemaValidator() (*schemaValidator, error) {
	resolved, err := planSchema().Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve plan schema: %w", err)
	}
	return &schemaValidator{resolved: resolved}, nil
}

func (v *schemaValidator) decode(doc string) (planResponse, error) {
	var instance any
	if err := json.Unmarshal([]byte(doc), &instance); err != nil {
		return planResponse{}, fmt.Errorf("decode plan: %w", err)
	}
	if err := v.resolved.Validate(instance); err != nil {
		return planResponse{}, fmt.Errorf("validate plan: %w", err)
	}
	var resp planResponse
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return planResponse{}, fmt.Errorf("decode plan: %w", err)
	}
	return resp, nil
}

// schemaJSON renders the schema for inclusion in the planning prompt.
func schemaJSON() string {
	b, err := json.MarshalIndent(planSchema(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
