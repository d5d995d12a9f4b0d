package engine

import (
	"go.uber.org/zap"
)

// Category identifies one analysis category the factory can resolve.
type Category string

const (
	CategoryStatic      Category = "static"
	CategoryDynamic     Category = "dynamic"
	CategoryPerformance Category = "performance"
	CategoryAI          Category = "ai"
)

// VariantTable maps a category to the service names it may appear under in
// the outer envelope. Naming conventions drifted across pipeline versions;
// this table is the single place new conventions get added.
type VariantTable map[Category][]string

// DefaultVariants returns the compiled-in name-variant table.
func DefaultVariants() VariantTable {
	return VariantTable{
		CategoryStatic:      {"static", "static-analyzer", "static_analysis"},
		CategoryDynamic:     {"dynamic", "dynamic-analyzer", "security-scanner", "dynamic_analysis"},
		CategoryPerformance: {"performance", "performance-tester", "load-test"},
		CategoryAI:          {"ai", "ai-analyzer", "ai-requirements", "requirements"},
	}
}

// Factory resolves the nested category payload out of a loosely structured
// outer envelope and constructs the matching adapter over it. Resolution
// rules are data passed in at construction, not hidden state.
type Factory struct {
	variants VariantTable
	log      *zap.Logger
}

// NewFactory builds a factory over an explicit variant table. A nil table
// falls back to the compiled-in defaults.
func NewFactory(variants VariantTable, logger *zap.Logger) *Factory {
	if variants == nil {
		variants = DefaultVariants()
	}
	return &Factory{variants: variants, log: logger.Named("adapter_factory")}
}

// Adapter resolves the category payload inside outer and returns the
// category's adapter over it. When nothing matches, the adapter is built
// over an empty payload and yields zero findings; resolution never fails.
func (f *Factory) Adapter(category Category, outer Payload) Adapter {
	analysis := f.resolve(category, outer)
	logger := f.log

	switch category {
	case CategoryDynamic:
		return NewDynamicAdapter(analysis, logger)
	case CategoryPerformance:
		return NewPerformanceAdapter(analysis, logger)
	case CategoryAI:
		return NewAIRequirementAdapter(analysis, logger)
	default:
		return NewStaticAdapter(analysis, logger)
	}
}

// resolve tries each name variant against the nested results.services
// envelope first, then the flat services envelope. A matched service whose
// inner object carries the "payload" alias instead of "analysis" is accepted
// as-is; the caller's envelope is never mutated.
func (f *Factory) resolve(category Category, outer Payload) Payload {
	envelopes := []Payload{}
	if results, ok := getMap(outer, "results"); ok {
		if services, ok := getMap(results, "services"); ok {
			envelopes = append(envelopes, services)
		}
	}
	if services, ok := getMap(outer, "services"); ok {
		envelopes = append(envelopes, services)
	}

	for _, services := range envelopes {
		for _, name := range f.variants[category] {
			service, ok := asMap(services[name])
			if !ok {
				continue
			}
			if analysis, ok := getMap(service, "analysis", "payload"); ok {
				return analysis
			}
			f.log.Debug("Matched service without analysis payload",
				zap.String("category", string(category)),
				zap.String("service", name))
			return Payload{}
		}
	}

	f.log.Debug("No service variant matched; using empty payload",
		zap.String("category", string(category)))
	return Payload{}
}
