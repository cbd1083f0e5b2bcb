// Package resolve finds the interface packages under a set of roots and
// orders them so each package comes after the packages it depends on.
package resolve

import (
	"log/slog"

	"github.com/Pico-ROS/picoros-typegen/internal/discover"
	"github.com/Pico-ROS/picoros-typegen/internal/graph"
	"github.com/Pico-ROS/picoros-typegen/internal/manifest"
	"github.com/Pico-ROS/picoros-typegen/internal/model"
)

// Packages discovers the packages under roots and reads their manifests.
// Packages are returned sorted by directory; when two directories declare
// the same package name, the first one wins.
func Packages(roots []string, cache *manifest.Cache, logger *slog.Logger) ([]model.Package, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dirs, err := discover.Packages(roots)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(dirs))
	pkgs := make([]model.Package, 0, len(dirs))
	for _, d := range dirs {
		m := cache.Load(d.Dir)
		if prev, dup := seen[m.Name]; dup {
			logger.Warn("duplicate package, keeping first", "package", m.Name, "kept", prev, "ignored", d.Dir)
			continue
		}
		seen[m.Name] = d.Dir
		pkgs = append(pkgs, model.Package{Manifest: m, Sources: d.Sources})
	}
	return pkgs, nil
}

// Order sorts packages so that dependencies come first. Only dependencies
// among the given packages count. Ties are broken by package name, and
// packages caught in a cycle are appended by name and returned as cyclic.
func Order(pkgs []model.Package) (ordered []model.Package, cyclic []string) {
	byName := make(map[string]model.Package, len(pkgs))
	names := make([]string, 0, len(pkgs))
	deps := make(map[string][]string, len(pkgs))
	for _, p := range pkgs {
		name := p.Manifest.Name
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = p
		names = append(names, name)
		deps[name] = p.Manifest.Dependencies
	}

	order, cyclic := graph.Sort(names, deps)
	ordered = make([]model.Package, 0, len(order))
	for _, name := range order {
		ordered = append(ordered, byName[name])
	}
	return ordered, cyclic
}
