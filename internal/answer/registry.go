// Package answer builds templated Spanish answers for direct intents.
package answer

import (
	"fmt"

	"github.com/Aman-CERP/saesagent/internal/intent"
	"github.com/Aman-CERP/saesagent/internal/records"
)

// Fallback messages.
const (
	NoInformation = "No tengo información disponible para responder tu pregunta."
	builderFailed = "Ha ocurrido un error procesando la información: %v"
)

// Builder renders an answer from a user record. The record may be nil.
type Builder func(rec *records.Record) string

// Registry maps direct subtypes to builders. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	builders map[string]Builder
}

// Option configures a Registry.
type Option func(*Registry)

// WithBuilder adds or replaces the builder for subtype.
func WithBuilder(subtype string, b Builder) Option {
	return func(r *Registry) {
		r.builders[subtype] = b
	}
}

// NewRegistry returns the record-backed builders plus one definition
// builder per glossary term.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(recordBuilders)+len(intent.Glossary))}
	for subtype, b := range recordBuilders {
		r.builders[subtype] = b
	}
	for _, t := range intent.Glossary {
		r.builders[intent.DefinitionPrefix+t.Name] = definition(t.Definition)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Has reports whether subtype has a builder.
func (r *Registry) Has(subtype string) bool {
	_, ok := r.builders[subtype]
	return ok
}

// Len returns the number of registered subtypes.
func (r *Registry) Len() int { return len(r.builders) }

// Build renders the answer for subtype. Unknown subtypes and builder
// panics produce a fallback message instead of an error.
func (r *Registry) Build(subtype string, rec *records.Record) (answer string) {
	b, ok := r.builders[subtype]
	if !ok {
		return NoInformation
	}
	defer func() {
		if p := recover(); p != nil {
			answer = fmt.Sprintf(builderFailed, p)
		}
	}()
	return b(rec)
}

func definition(text string) Builder {
	return func(*records.Record) string { return text }
}
