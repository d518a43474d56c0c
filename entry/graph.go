package entry

import "github.com/OMGeeky/drive-syncer/id"

// Graph holds the two mutually-consistent mappings the provider uses to
// present Drive's parent DAG as a filesystem tree: parents[c] lists every
// id reported as a parent of c, children[p] lists every id currently
// attached under p. For path construction (readdir, lookup) the first
// parent in children's insertion order wins; all parents are retained so
// that Rename can detach correctly even from a multi-parented node.
//
// Graph is not safe for concurrent use; it is owned exclusively by the
// single-task File Provider (spec.md §5).
type Graph struct {
	parents  map[id.Id][]id.Id
	children map[id.Id][]id.Id
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		parents:  make(map[id.Id][]id.Id),
		children: make(map[id.Id][]id.Id),
	}
}

// Parents returns the known parents of child, in insertion order. The
// returned slice must not be mutated by the caller.
func (g *Graph) Parents(child id.Id) []id.Id {
	return g.parents[child]
}

// Children returns the known children of parent, in insertion order. The
// returned slice must not be mutated by the caller.
func (g *Graph) Children(parent id.Id) []id.Id {
	return g.children[parent]
}

// Link records that child is attached under parent. It is idempotent: a
// relation already present is not duplicated.
func (g *Graph) Link(parent, child id.Id) {
	for _, p := range g.parents[child] {
		if p == parent {
			return
		}
	}
	g.parents[child] = append(g.parents[child], parent)
	g.children[parent] = append(g.children[parent], child)
}

// Unlink removes the parent/child relation, if present. It is harmless to
// call when the relation does not exist.
func (g *Graph) Unlink(parent, child id.Id) {
	g.parents[child] = removeFirst(g.parents[child], parent)
	g.children[parent] = removeFirst(g.children[parent], child)
}

// Detach removes every relation involving id (as a child of its parents,
// and as a parent of its children's parent-list — but NOT recursively
// removing the children themselves). A child keeps any other parents it
// has; a child whose only parent was target is left with no parent and
// is not re-attached to root.
func (g *Graph) Detach(target id.Id) {
	for _, p := range g.parents[target] {
		g.children[p] = removeFirst(g.children[p], target)
	}
	delete(g.parents, target)
	for _, c := range g.children[target] {
		g.parents[c] = removeFirst(g.parents[c], target)
	}
	delete(g.children, target)
}

// HasAnyParent reports whether target currently has at least one
// recorded parent. Entries with no reported parents are attached to
// root by the caller (spec.md §3 Graph).
func (g *Graph) HasAnyParent(target id.Id) bool {
	return len(g.parents[target]) > 0
}

func removeFirst(s []id.Id, v id.Id) []id.Id {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
