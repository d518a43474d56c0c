package entry

import (
	"reflect"
	"testing"

	"github.com/OMGeeky/drive-syncer/id"
)

func TestLinkIsIdempotent(t *testing.T) {
	g := NewGraph()
	g.Link(id.Id("p"), id.Id("c"))
	g.Link(id.Id("p"), id.Id("c"))
	if got := g.Children(id.Id("p")); !reflect.DeepEqual(got, []id.Id{"c"}) {
		t.Fatalf("Children(p) = %v, want [c]", got)
	}
	if got := g.Parents(id.Id("c")); !reflect.DeepEqual(got, []id.Id{"p"}) {
		t.Fatalf("Parents(c) = %v, want [p]", got)
	}
}

func TestLinkMultiParent(t *testing.T) {
	g := NewGraph()
	g.Link(id.Id("p1"), id.Id("c"))
	g.Link(id.Id("p2"), id.Id("c"))
	parents := g.Parents(id.Id("c"))
	if len(parents) != 2 {
		t.Fatalf("Parents(c) = %v, want 2 entries", parents)
	}
}

func TestUnlinkRemovesBothSides(t *testing.T) {
	g := NewGraph()
	g.Link(id.Id("p"), id.Id("c"))
	g.Unlink(id.Id("p"), id.Id("c"))
	if got := g.Children(id.Id("p")); len(got) != 0 {
		t.Fatalf("Children(p) = %v, want empty", got)
	}
	if got := g.Parents(id.Id("c")); len(got) != 0 {
		t.Fatalf("Parents(c) = %v, want empty", got)
	}
}

func TestUnlinkOfAbsentRelationIsHarmless(t *testing.T) {
	g := NewGraph()
	g.Unlink(id.Id("p"), id.Id("c"))
}

func TestDetachRemovesAllRelationsButKeepsChildren(t *testing.T) {
	g := NewGraph()
	g.Link(id.Id("root"), id.Id("folder"))
	g.Link(id.Id("folder"), id.Id("child1"))
	g.Link(id.Id("folder"), id.Id("child2"))

	g.Detach(id.Id("folder"))

	if g.HasAnyParent(id.Id("folder")) {
		t.Fatal("Detach left folder with a recorded parent")
	}
	if len(g.Children(id.Id("folder"))) != 0 {
		t.Fatal("Detach left folder with recorded children")
	}
	if len(g.Children(id.Id("root"))) != 0 {
		t.Fatal("Detach did not remove folder from root's children")
	}
	// Detach removes folder from its former children's parent lists;
	// child1 had no other parent, so none is left.
	if g.HasAnyParent(id.Id("child1")) {
		t.Fatal("Detach left folder recorded as child1's parent")
	}
}

func TestHasAnyParent(t *testing.T) {
	g := NewGraph()
	if g.HasAnyParent(id.Id("orphan")) {
		t.Fatal("HasAnyParent reported true for an id never linked")
	}
	g.Link(id.Id("p"), id.Id("c"))
	if !g.HasAnyParent(id.Id("c")) {
		t.Fatal("HasAnyParent reported false after Link")
	}
}

func TestGraphParentsChildrenConsistency(t *testing.T) {
	g := NewGraph()
	g.Link(id.Id("p1"), id.Id("c1"))
	g.Link(id.Id("p1"), id.Id("c2"))
	g.Link(id.Id("p2"), id.Id("c1"))

	for _, p := range []id.Id{"p1", "p2"} {
		for _, c := range g.Children(p) {
			found := false
			for _, pp := range g.Parents(c) {
				if pp == p {
					found = true
				}
			}
			if !found {
				t.Fatalf("%s is a child of %s but %s is not recorded as its parent", c, p, p)
			}
		}
	}
}
