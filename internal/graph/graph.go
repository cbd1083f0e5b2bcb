// Package graph orders named nodes by their dependencies.
package graph

import (
	"sort"
)

// Sort returns nodes in dependency order: every node appears after the
// nodes it depends on. deps maps a node to the nodes it requires; edges to
// names outside nodes are ignored, as are self-edges.
//
// Ties are broken lexicographically, so the result depends only on the
// node set and the edges. Nodes left over because of a cycle are appended
// in lexicographic order and also returned as cyclic.
func Sort(nodes []string, deps map[string][]string) (order, cyclic []string) {
	present := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		present[n] = struct{}{}
	}

	// Build reverse edges: dependency → dependents
	dependents := make(map[string][]string, len(present))
	inDegree := make(map[string]int, len(present))
	for n := range present {
		inDegree[n] = 0
	}
	for _, n := range sortedKeys(present) {
		seen := make(map[string]struct{})
		for _, d := range deps[n] {
			if d == n {
				continue // no self-edges
			}
			if _, ok := present[d]; !ok {
				continue
			}
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			dependents[d] = append(dependents[d], n)
			inDegree[n]++
		}
	}

	var queue []string
	for n, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, n)
		}
	}

	order = make([]string, 0, len(present))
	done := make(map[string]struct{}, len(present))
	for len(queue) > 0 {
		sort.Strings(queue)
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		done[current] = struct{}{}

		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) == len(present) {
		return order, nil
	}

	for n := range present {
		if _, ok := done[n]; !ok {
			cyclic = append(cyclic, n)
		}
	}
	sort.Strings(cyclic)
	return append(order, cyclic...), cyclic
}

// Closure returns roots plus every node reachable from them through deps,
// sorted.
func Closure(roots []string, deps map[string][]string) []string {
	seen := make(map[string]struct{}, len(roots))
	stack := append([]string(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		for _, d := range deps[n] {
			if _, ok := seen[d]; !ok {
				stack = append(stack, d)
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
