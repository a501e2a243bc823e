package graph

import (
	"fmt"
	"sort"

	"github.com/featherbox/featherbox/internal/domain"
)

// Downstream returns the closure of the seed nodes under the edge
// relation: the seeds themselves plus everything reachable from them,
// sorted by name.
func Downstream(g domain.Graph, seeds []string) []string {
	children := map[string][]string{}
	for _, e := range g.Edges {
		children[e.From] = append(children[e.From], e.To)
	}

	visited := map[string]bool{}
	queue := append([]string{}, seeds...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		queue = append(queue, children[n]...)
	}

	out := make([]string, 0, len(visited))
	for n := range visited {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Levels groups the given nodes by the length of the longest dependency
// path from any root, restricted to the subgraph they induce. Nodes in
// the same level have no path between them and may run in parallel.
// Level order is a valid execution order.
func Levels(g domain.Graph, nodes []string) ([][]string, error) {
	include := map[string]bool{}
	for _, n := range nodes {
		include[n] = true
	}

	inDegree := map[string]int{}
	children := map[string][]string{}
	for _, n := range nodes {
		inDegree[n] = 0
	}
	for _, e := range g.Edges {
		if include[e.From] && include[e.To] {
			children[e.From] = append(children[e.From], e.To)
			inDegree[e.To]++
		}
	}

	// Kahn's algorithm by levels: each round of zero in-degree nodes is
	// exactly the set whose longest path from a root has the same length.
	var queue []string
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	var levels [][]string
	processed := 0
	for len(queue) > 0 {
		level := append([]string{}, queue...)
		sort.Strings(level)
		levels = append(levels, level)
		processed += len(level)

		var next []string
		for _, n := range queue {
			for _, c := range children[n] {
				inDegree[c]--
				if inDegree[c] == 0 {
					next = append(next, c)
				}
			}
		}
		queue = next
	}

	if processed != len(nodes) {
		return nil, fmt.Errorf("cycle detected among %d nodes", len(nodes)-processed)
	}
	return levels, nil
}

// Depths returns every node's dependency depth in the full graph: the
// length of the longest path from any root. Depth is stable under
// partial runs, so a node keeps its depth even when its ancestors are
// not part of the affected set.
func Depths(g domain.Graph) (map[string]int, error) {
	inDegree := map[string]int{}
	children := map[string][]string{}
	for _, n := range g.Nodes {
		inDegree[n.Name] = 0
	}
	for _, e := range g.Edges {
		children[e.From] = append(children[e.From], e.To)
		inDegree[e.To]++
	}

	depths := make(map[string]int, len(g.Nodes))
	var queue []string
	for _, n := range g.Nodes {
		if inDegree[n.Name] == 0 {
			queue = append(queue, n.Name)
			depths[n.Name] = 0
		}
	}

	processed := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		processed++
		for _, c := range children[n] {
			if d := depths[n] + 1; d > depths[c] {
				depths[c] = d
			}
			inDegree[c]--
			if inDegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	if processed != len(g.Nodes) {
		return nil, fmt.Errorf("cycle detected among %d nodes", len(g.Nodes)-processed)
	}
	return depths, nil
}

// DropOrder orders removed nodes so that every consumer is dropped
// before any of its producers, using the previous graph's edges.
func DropOrder(prev domain.Graph, removed []string) ([]string, error) {
	levels, err := Levels(prev, removed)
	if err != nil {
		return nil, err
	}
	var out []string
	for i := len(levels) - 1; i >= 0; i-- {
		out = append(out, levels[i]...)
	}
	return out, nil
}
