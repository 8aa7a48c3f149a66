package engine

import (
	"fmt"

	"stageflow/internal/domain"
)

// Graph is a template's node/edge rows loaded into adjacency-indexed
// collections. Built once per request; edge lookup, terminal checks and
// node membership are O(1) afterwards.
type Graph struct {
	Template *domain.WorkflowTemplate
	Nodes    []domain.Node

	nodeByKey map[string]*domain.Node
	outgoing  map[string][]domain.Edge
}

// BuildGraph validates the template shape while indexing it. An edge whose
// endpoint is not a node of the template makes the whole template invalid;
// the engine refuses to operate on it rather than risking an instance
// pointing at a node that does not exist.
func BuildGraph(tmpl *domain.WorkflowTemplate, nodes []domain.Node, edges []domain.Edge) (*Graph, error) {
	g := &Graph{
		Template:  tmpl,
		Nodes:     nodes,
		nodeByKey: make(map[string]*domain.Node, len(nodes)),
		outgoing:  make(map[string][]domain.Edge),
	}
	for i := range nodes {
		if _, dup := g.nodeByKey[nodes[i].Key]; dup {
			return nil, fmt.Errorf("%w: duplicate node key %q", domain.ErrInvalidTemplate, nodes[i].Key)
		}
		g.nodeByKey[nodes[i].Key] = &g.Nodes[i]
	}
	for _, e := range edges {
		if _, ok := g.nodeByKey[e.SourceKey]; !ok {
			return nil, fmt.Errorf("%w: edge %d references unknown source node %q", domain.ErrInvalidTemplate, e.ID, e.SourceKey)
		}
		if _, ok := g.nodeByKey[e.TargetKey]; !ok {
			return nil, fmt.Errorf("%w: edge %d references unknown target node %q", domain.ErrInvalidTemplate, e.ID, e.TargetKey)
		}
		g.outgoing[e.SourceKey] = append(g.outgoing[e.SourceKey], e)
	}
	return g, nil
}

func (g *Graph) Node(key string) (*domain.Node, bool) {
	n, ok := g.nodeByKey[key]
	return n, ok
}

// First returns the initial node by sort order.
func (g *Graph) First() (*domain.Node, error) {
	if len(g.Nodes) == 0 {
		return nil, fmt.Errorf("%w: template %s has no nodes", domain.ErrInvalidTemplate, g.Template.ID)
	}
	return &g.Nodes[0], nil
}

// Outgoing returns the edges leaving a node, in creation order.
func (g *Graph) Outgoing(key string) []domain.Edge {
	return g.outgoing[key]
}

// IsTerminal decides node terminality per the template's completion mode:
// explicit mode trusts only the node's terminal marker, implicit mode treats
// zero out-degree as terminal.
func (g *Graph) IsTerminal(key string) bool {
	n, ok := g.nodeByKey[key]
	if !ok {
		return false
	}
	if g.Template.CompletionMode() == domain.CompletionExplicit {
		return n.Terminal()
	}
	return len(g.outgoing[key]) == 0
}

// SelectEdge picks the edge leaving source whose condition matches exactly.
// Multiple matches resolve to the highest priority; remaining ties go to the
// first-created edge. The choice is deterministic.
func (g *Graph) SelectEdge(source, condition string) (*domain.Edge, error) {
	var selected *domain.Edge
	for i := range g.outgoing[source] {
		e := &g.outgoing[source][i]
		if e.Condition != condition {
			continue
		}
		if selected == nil ||
			e.Priority > selected.Priority ||
			(e.Priority == selected.Priority && e.ID < selected.ID) {
			selected = e
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("%w: no edge from %q with condition %q", domain.ErrNoMatchingTransition, source, condition)
	}
	return selected, nil
}
