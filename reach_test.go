package gshade_test

import (
	"testing"

	"github.com/soypat/gshade"
)

func TestMarkReachable(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	root := g.Root()
	a := number(t, g, 1)
	b := number(t, g, 2)
	op := addNode(t, g, gshade.KindOperator)
	orphan := number(t, g, 3)
	orphanSink := addNode(t, g, gshade.KindOneMinus)
	connect(t, g, a, 0, op, 0)
	connect(t, g, b, 0, op, 1)
	connect(t, g, op, 0, root, gshade.PinRoughness)
	connect(t, g, orphan, 0, orphanSink, 0)

	gshade.MarkReachable(g)
	for _, n := range []gshade.Node{root, a, b, op} {
		if !n.Base().Reachable() {
			t.Errorf("%s node %d not reachable", n.Base().Kind, n.Base().ID)
		}
	}
	for _, n := range []gshade.Node{orphan, orphanSink} {
		if n.Base().Reachable() {
			t.Errorf("%s node %d reachable", n.Base().Kind, n.Base().ID)
		}
	}

	removed := gshade.DeleteUnreachable(g)
	if removed != 2 {
		t.Errorf("want 2 removed, got %d", removed)
	}
	if len(g.Nodes) != 4 || len(g.Links) != 3 {
		t.Errorf("got %d nodes, %d links after pruning", len(g.Nodes), len(g.Links))
	}
	for _, l := range g.Links {
		if g.Node(l.From.Node) == nil || g.Node(l.To.Node) == nil {
			t.Errorf("dangling link %+v", l)
		}
	}
	if gshade.DeleteUnreachable(g) != 0 {
		t.Error("second pruning removed nodes")
	}
}

func TestMarkReachableCycle(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	a := addNode(t, g, gshade.KindOneMinus)
	b := addNode(t, g, gshade.KindOneMinus)
	connect(t, g, a, 0, b, 0)
	connect(t, g, b, 0, a, 0)
	connect(t, g, a, 0, g.Root(), gshade.PinAlpha)
	gshade.MarkReachable(g) // Must terminate.
	if !a.Base().Reachable() || !b.Base().Reachable() {
		t.Error("cycle members not reachable")
	}
}
