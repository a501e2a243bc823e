// Package graph builds, fingerprints, and compares dependency graphs.
package graph

import (
	"sort"
	"strings"

	"github.com/featherbox/featherbox/internal/config"
	"github.com/featherbox/featherbox/internal/domain"
	"github.com/featherbox/featherbox/internal/sqlparse"
)

// Build derives the dependency graph from a validated configuration.
// Adapters are source nodes; every model contributes one node plus an
// edge from each relation its SQL reads. References match node names
// case-insensitively, the way the engine resolves unquoted identifiers;
// edges carry the declared spelling. The result is deterministic: nodes
// and edges come out sorted regardless of config iteration order.
func Build(cfg *config.Config) (domain.Graph, error) {
	var g domain.Graph

	adapterNames := make([]string, 0, len(cfg.Adapters))
	for name := range cfg.Adapters {
		adapterNames = append(adapterNames, name)
	}
	sort.Strings(adapterNames)
	modelNames := make([]string, 0, len(cfg.Models))
	for name := range cfg.Models {
		modelNames = append(modelNames, name)
	}
	sort.Strings(modelNames)

	// Table names are case-insensitive in the lake catalog, so node names
	// are keyed by their lowercase form and resolve back to the declared
	// spelling.
	canonical := map[string]string{}
	for _, name := range adapterNames {
		if other, ok := canonical[strings.ToLower(name)]; ok {
			return g, domain.ErrConfigInvalid("adapter names %q and %q refer to the same table", other, name)
		}
		canonical[strings.ToLower(name)] = name
	}
	for _, name := range modelNames {
		if other, ok := canonical[strings.ToLower(name)]; ok {
			if other == name {
				return g, domain.ErrConfigInvalid("node name %q is declared as both adapter and model", name)
			}
			return g, domain.ErrConfigInvalid("node names %q and %q refer to the same table", other, name)
		}
		canonical[strings.ToLower(name)] = name
	}

	edgeSet := map[domain.Edge]bool{}
	for _, name := range modelNames {
		m := cfg.Models[name]
		refs, err := sqlparse.ExtractRelations(sqlparse.ResolveRefs(m.SQL))
		if err != nil {
			return g, domain.ErrConfigInvalid("model %q: %v", name, err)
		}
		for _, ref := range refs {
			target, ok := canonical[strings.ToLower(ref)]
			if !ok {
				return g, &domain.UnknownReferenceError{Model: name, Reference: ref}
			}
			edgeSet[domain.Edge{From: target, To: name}] = true
		}
	}

	for _, name := range canonical {
		g.Nodes = append(g.Nodes, domain.Node{Name: name})
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].Name < g.Nodes[j].Name })

	for e := range edgeSet {
		g.Edges = append(g.Edges, e)
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})

	if cycle := findCycle(g); cycle != nil {
		return g, &domain.CyclicDependencyError{Cycle: cycle}
	}
	return g, nil
}

// findCycle runs a DFS three-color walk and returns the first cycle found
// as a path starting and ending at the same node, or nil.
func findCycle(g domain.Graph) []string {
	children := map[string][]string{}
	for _, e := range g.Edges {
		children[e.From] = append(children[e.From], e.To)
	}

	const (
		white = iota
		gray
		black
	)
	color := map[string]int{}
	var stack []string
	var cycle []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		stack = append(stack, n)
		for _, c := range children[n] {
			switch color[c] {
			case gray:
				// Back edge: slice the stack from the first occurrence.
				for i, s := range stack {
					if s == c {
						cycle = append(append([]string{}, stack[i:]...), c)
						return true
					}
				}
			case white:
				if visit(c) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return false
	}

	for _, n := range g.Nodes {
		if color[n.Name] == white {
			if visit(n.Name) {
				return cycle
			}
		}
	}
	return nil
}
