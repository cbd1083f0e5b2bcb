// Package classify derives each type's shape and its edges to other types.
package classify

import (
	"sort"
	"strings"

	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

// Classify derives the classification of a field list.
func Classify(fields []model.Field) model.Classification {
	if len(fields) == 0 {
		return model.ScalarAlias // empty type, treated as basic
	}
	if len(fields) == 1 && !fields[0].Array {
		if fields[0].Kind == model.KindNested {
			return model.TypeAlias
		}
		return model.ScalarAlias
	}
	return model.Compound
}

// Options tunes cross-reference resolution.
type Options struct {
	// LegacySuffixMatch also links a field to any known type whose short
	// name ends its raw type string. This reproduces older output but can
	// confuse two namespaces that share a short name.
	LegacySuffixMatch bool
}

// Resolver looks up field references among the known message types.
// Service types are never valid field targets.
type Resolver struct {
	known  map[model.QualifiedName]*model.TypeDescriptor
	sorted []model.QualifiedName
	opts   Options
}

// NewResolver indexes the non-service types of types.
func NewResolver(types map[model.QualifiedName]*model.TypeDescriptor, opts Options) *Resolver {
	r := &Resolver{
		known: make(map[model.QualifiedName]*model.TypeDescriptor, len(types)),
		opts:  opts,
	}
	for name, td := range types {
		if name.IsService() {
			continue
		}
		r.known[name] = td
		r.sorted = append(r.sorted, name)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Less(r.sorted[j]) })
	return r
}

// Lookup resolves a nested field to a known type. Primitive fields never
// resolve to a type.
func (r *Resolver) Lookup(f model.Field) (model.QualifiedName, bool) {
	if f.Kind != model.KindNested {
		return model.QualifiedName{}, false
	}
	if _, ok := r.known[f.Nested]; ok {
		return f.Nested, true
	}
	if !r.opts.LegacySuffixMatch {
		return model.QualifiedName{}, false
	}
	raw := f.TypeName()
	for _, name := range r.sorted {
		if strings.HasSuffix(raw, name.Name) {
			return name, true
		}
	}
	return model.QualifiedName{}, false
}

// Dependencies returns the known types td refers to, sorted, without td
// itself.
func (r *Resolver) Dependencies(td *model.TypeDescriptor) []model.QualifiedName {
	deps := make(map[model.QualifiedName]struct{})
	for _, f := range td.Fields {
		if f.Kind == model.KindNested {
			if _, ok := r.known[f.Nested]; ok {
				deps[f.Nested] = struct{}{}
			}
		}
		if !r.opts.LegacySuffixMatch {
			continue
		}
		raw := f.TypeName()
		for _, name := range r.sorted {
			if strings.HasSuffix(raw, name.Name) {
				deps[name] = struct{}{}
			}
		}
	}
	delete(deps, td.Name)

	out := make([]model.QualifiedName, 0, len(deps))
	for d := range deps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Annotate fills in Classification and Deps on every type.
func Annotate(types map[model.QualifiedName]*model.TypeDescriptor, r *Resolver) {
	for _, td := range types {
		td.Classification = Classify(td.Fields)
		td.Deps = r.Dependencies(td)
	}
}
