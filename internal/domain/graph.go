package domain

import "sort"

// Node is a named relation producible by the system: an adapter or a model.
// The name doubles as the table identifier in the lake catalog.
type Node struct {
	Name string
}

// Edge is a directed dependency: To reads from From. Edges are derived
// from model SQL, never declared by the user.
type Edge struct {
	From string
	To   string
}

// Graph is an immutable set of nodes and edges captured at one point in
// time. Once written to the metadata store it is identified by a
// monotonically increasing graph id.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// HasNode reports whether the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	for _, n := range g.Nodes {
		if n.Name == name {
			return true
		}
	}
	return false
}

// NodeNames returns the sorted node names.
func (g *Graph) NodeNames() []string {
	names := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return names
}

// Parents returns the names of the direct upstream nodes of name.
func (g *Graph) Parents(name string) []string {
	var parents []string
	for _, e := range g.Edges {
		if e.To == name {
			parents = append(parents, e.From)
		}
	}
	sort.Strings(parents)
	return parents
}

// Children returns the names of the direct downstream nodes of name.
func (g *Graph) Children(name string) []string {
	var children []string
	for _, e := range g.Edges {
		if e.From == name {
			children = append(children, e.To)
		}
	}
	sort.Strings(children)
	return children
}

// Classification partitions the nodes of a new graph relative to the
// previously executed graph. The four sets are disjoint.
type Classification struct {
	Added     []string
	Removed   []string
	Modified  []string
	Unchanged []string
}

// HasChanges reports whether any node was added, removed, or modified.
func (c *Classification) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || len(c.Modified) > 0
}
