// Package prune narrows an ingested type set to selected namespaces.
package prune

import (
	"github.com/Pico-ROS/picoros-typegen/internal/classify"
	"github.com/Pico-ROS/picoros-typegen/internal/graph"
	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

// Select returns the types that belong to one of namespaces, plus every
// message type they reach through their fields. Service types are kept only
// for the selected namespaces themselves. With no namespaces the input is
// returned as is.
func Select(
	types map[model.QualifiedName]*model.TypeDescriptor,
	namespaces []string,
	r *classify.Resolver,
) map[model.QualifiedName]*model.TypeDescriptor {
	if len(namespaces) == 0 {
		return types
	}
	wanted := make(map[string]struct{}, len(namespaces))
	for _, ns := range namespaces {
		wanted[ns] = struct{}{}
	}

	byKey := make(map[string]model.QualifiedName, len(types))
	deps := make(map[string][]string, len(types))
	var roots []string
	for name, td := range types {
		key := name.String()
		byKey[key] = name
		for _, d := range r.Dependencies(td) {
			deps[key] = append(deps[key], d.String())
		}
		if _, ok := wanted[name.Namespace]; ok {
			roots = append(roots, key)
		}
	}

	selected := make(map[model.QualifiedName]*model.TypeDescriptor)
	for _, key := range graph.Closure(roots, deps) {
		name, ok := byKey[key]
		if !ok {
			continue
		}
		selected[name] = types[name]
	}
	return selected
}
