package vocabulary

import (
	"strings"

	"github.com/JonMunkholm/carpenters/internal/schema"
)

// Graph indexes nodes by id and by preferred label.
type Graph struct {
	nodes   []Node
	byID    map[string]int
	byLabel map[string]int
}

// NewGraph indexes nodes. When two nodes share an id or a label, the first
// one wins.
func NewGraph(nodes []Node) *Graph {
	g := &Graph{
		nodes:   nodes,
		byID:    make(map[string]int, len(nodes)),
		byLabel: make(map[string]int, len(nodes)),
	}
	for i, n := range nodes {
		if _, ok := g.byID[n.ID]; !ok {
			g.byID[n.ID] = i
		}
		key := strings.ToLower(n.PrefLabel)
		if _, ok := g.byLabel[key]; !ok {
			g.byLabel[key] = i
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	i, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// FindByLabel returns the node whose preferred label matches, ignoring case.
func (g *Graph) FindByLabel(label string) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	i, ok := g.byLabel[strings.ToLower(label)]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Descendants returns the transitive closure of narrower terms below the
// node with the given id, excluding the node itself, in breadth-first order.
// References to unknown ids are ignored and each node is visited once, so
// cyclic input terminates.
func (g *Graph) Descendants(id string) []Node {
	if g == nil {
		return nil
	}
	visited := map[string]bool{id: true}
	queue := []string{id}
	var out []Node

	for len(queue) > 0 {
		current, ok := g.Node(queue[0])
		queue = queue[1:]
		if !ok {
			continue
		}
		for _, child := range current.Narrower {
			if visited[child] {
				continue
			}
			visited[child] = true
			node, ok := g.Node(child)
			if !ok {
				continue
			}
			out = append(out, node)
			queue = append(queue, child)
		}
	}
	return out
}

// Ranges maps a lowercased range label to its allowed values.
type Ranges map[string][]Node

// Lookup returns the allowed values for label, ignoring case. An empty result
// means the field is free text.
func (r Ranges) Lookup(label string) []Node {
	if r == nil || label == "" {
		return nil
	}
	return r[strings.ToLower(label)]
}

// Contains reports whether value is one of the allowed labels, ignoring case.
func (r Ranges) Contains(label, value string) bool {
	for _, n := range r.Lookup(label) {
		if strings.EqualFold(n.PrefLabel, value) {
			return true
		}
	}
	return false
}

// BuildRange computes the allowed values for every range label declared in
// the MAP. Explicit value lists take precedence over vocabulary lookups.
// Each distinct label is computed once.
func BuildRange(fields schema.Map, g *Graph) Ranges {
	ranges := make(Ranges)
	for _, f := range fields {
		for _, r := range f.Range {
			key := strings.ToLower(r.Label)
			if key == "" {
				continue
			}
			if _, done := ranges[key]; done {
				continue
			}
			ranges[key] = resolveRange(r, g)
		}
	}
	return ranges
}

func resolveRange(r schema.Range, g *Graph) []Node {
	if len(r.Values) > 0 {
		nodes := make([]Node, len(r.Values))
		for i, v := range r.Values {
			nodes[i] = Node{PrefLabel: v}
		}
		return nodes
	}
	node, ok := g.FindByLabel(r.Label)
	if !ok {
		return []Node{}
	}
	return g.Descendants(node.ID)
}
