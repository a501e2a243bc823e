package graph

import (
	"sort"

	"github.com/featherbox/featherbox/internal/domain"
)

// Classify compares a freshly built graph against the previously planned
// one. A node counts as modified when its fingerprint changed or when
// the set of nodes feeding it changed; either way its output must be
// recomputed. With no previous graph every node is added.
func Classify(next domain.Graph, prev *domain.Graph, prevFPs, nextFPs map[string]string) domain.Classification {
	var c domain.Classification

	if prev == nil {
		for _, n := range next.Nodes {
			c.Added = append(c.Added, n.Name)
		}
		sort.Strings(c.Added)
		return c
	}

	prevNames := map[string]bool{}
	for _, n := range prev.Nodes {
		prevNames[n.Name] = true
	}
	nextNames := map[string]bool{}
	for _, n := range next.Nodes {
		nextNames[n.Name] = true
	}

	prevIn := inEdgeSets(*prev)
	nextIn := inEdgeSets(next)

	for _, n := range next.Nodes {
		name := n.Name
		switch {
		case !prevNames[name]:
			c.Added = append(c.Added, name)
		case prevFPs[name] != nextFPs[name] || !sameSet(prevIn[name], nextIn[name]):
			c.Modified = append(c.Modified, name)
		default:
			c.Unchanged = append(c.Unchanged, name)
		}
	}
	for _, n := range prev.Nodes {
		if !nextNames[n.Name] {
			c.Removed = append(c.Removed, n.Name)
		}
	}

	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Modified)
	sort.Strings(c.Unchanged)
	return c
}

func inEdgeSets(g domain.Graph) map[string]map[string]bool {
	in := map[string]map[string]bool{}
	for _, e := range g.Edges {
		if in[e.To] == nil {
			in[e.To] = map[string]bool{}
		}
		in[e.To][e.From] = true
	}
	return in
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
