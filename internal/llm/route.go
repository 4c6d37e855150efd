package llm

import (
	"fmt"
	"sort"

	"github.com/zero-day-ai/cortex/internal/types"
)

// UseCase names why a generation call is made. Each use case resolves to
// one provider and model.
type UseCase string

const (
	UseCasePlanning     UseCase = "planning"
	UseCaseDiagram      UseCase = "diagram"
	UseCaseDefault      UseCase = "default"
	UseCaseCode         UseCase = "code"
	UseCaseLargeContext UseCase = "large_context"
)

// KnownUseCases lists every use case the pipeline issues.
var KnownUseCases = []UseCase{UseCasePlanning, UseCaseDiagram, UseCaseDefault, UseCaseCode, UseCaseLargeContext}

// Route binds a use case to a provider instance and model.
type Route struct {
	Provider    string   `mapstructure:"provider" yaml:"provider" validate:"required"`
	Model       string   `mapstructure:"model" yaml:"model" validate:"required"`
	Temperature *float64 `mapstructure:"temperature" yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int      `mapstructure:"max_tokens" yaml:"max_tokens,omitempty" validate:"gte=0"`
}

// RouteTable is the immutable use-case routing table built at startup.
type RouteTable struct {
	routes map[UseCase]Route
}

// NewRouteTable copies routes. A default route is mandatory because any
// unmapped use case falls back to it.
func NewRouteTable(routes map[UseCase]Route) (*RouteTable, error) {
	def, ok := routes[UseCaseDefault]
	if !ok || def.Provider == "" || def.Model == "" {
		return nil, types.NewError(ErrInvalidRoute, "route table requires a complete default route")
	}

	copied := make(map[UseCase]Route, len(routes))
	for uc, r := range routes {
		if r.Provider == "" || r.Model == "" {
			return nil, types.NewError(ErrInvalidRoute, fmt.Sprintf("route %q needs both provider and model", uc))
		}
		copied[uc] = r
	}
	return &RouteTable{routes: copied}, nil
}

// Lookup resolves a use case, falling back to the default route.
func (t *RouteTable) Lookup(uc UseCase) Route {
	if r, ok := t.routes[uc]; ok {
		return r
	}
	return t.routes[UseCaseDefault]
}

// Providers returns the distinct provider names referenced by the table.
func (t *RouteTable) Providers() []string {
	seen := make(map[string]struct{})
	for _, r := range t.routes {
		seen[r.Provider] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
