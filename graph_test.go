package gshade_test

import (
	"errors"
	"testing"

	"github.com/soypat/gshade"
)

func newTestGraph(t *testing.T, root gshade.NodeKind) *gshade.Graph {
	t.Helper()
	g, err := gshade.NewGraph(root)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func addNode(t *testing.T, g *gshade.Graph, kind gshade.NodeKind) gshade.Node {
	t.Helper()
	n, err := g.AddNode(kind)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func connect(t *testing.T, g *gshade.Graph, from gshade.Node, fromPin int, to gshade.Node, toPin int) {
	t.Helper()
	err := g.Connect(
		gshade.Pin{Node: from.Base().ID, Index: uint16(fromPin)},
		gshade.Pin{Node: to.Base().ID, Index: uint16(toPin)},
	)
	if err != nil {
		t.Fatal(err)
	}
}

func number(t *testing.T, g *gshade.Graph, v float32) *gshade.ConstantNode {
	t.Helper()
	n := addNode(t, g, gshade.KindNumber).(*gshade.ConstantNode)
	n.Value[0] = v
	return n
}

func TestGraphRoot(t *testing.T) {
	_, err := gshade.NewGraph(gshade.KindNumber)
	if !errors.Is(err, gshade.ErrRootNode) {
		t.Fatal("expected root error for non-root kind, got", err)
	}
	g := newTestGraph(t, gshade.KindSurface)
	_, err = g.AddNode(gshade.KindParticle)
	if !errors.Is(err, gshade.ErrRootNode) {
		t.Error("expected error adding second root, got", err)
	}
	_, err = g.AddNode(gshade.NodeKind(1000))
	if !errors.Is(err, gshade.ErrUnknownKind) {
		t.Error("expected unknown kind error, got", err)
	}
	err = g.DeleteNode(g.Root().Base().ID)
	if !errors.Is(err, gshade.ErrRootNode) {
		t.Error("expected error deleting root, got", err)
	}
	if g.Root() == nil || g.Root().Base().Kind != gshade.KindSurface {
		t.Error("root modified")
	}
}

func TestGraphIDsNotReused(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	a := number(t, g, 1)
	b := number(t, g, 2)
	if b.ID <= a.ID {
		t.Fatal("ids not monotonic", a.ID, b.ID)
	}
	if err := g.DeleteNode(b.ID); err != nil {
		t.Fatal(err)
	}
	c := number(t, g, 3)
	if c.ID <= b.ID {
		t.Errorf("deleted id %d reused: got %d", b.ID, c.ID)
	}
	g.Clear()
	if len(g.Nodes) != 1 || len(g.Links) != 0 {
		t.Errorf("clear left %d nodes and %d links", len(g.Nodes), len(g.Links))
	}
	d := number(t, g, 4)
	if d.ID <= c.ID || g.LastID() != d.ID {
		t.Errorf("id after clear %d, last id %d", d.ID, g.LastID())
	}
}

func TestGraphConnect(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	root := g.Root()
	a := number(t, g, 1)
	b := number(t, g, 2)
	connect(t, g, a, 0, root, gshade.PinRoughness)
	connect(t, g, b, 0, root, gshade.PinRoughness)
	if len(g.Links) != 1 {
		t.Fatalf("want input link replaced, got %d links", len(g.Links))
	}
	src, out, ok := g.ResolveInput(root.Base().ID, gshade.PinRoughness)
	if !ok || src != gshade.Node(b) || out != 0 {
		t.Error("input not resolved to replacing link source")
	}
	if g.IsOutputConnected(a.ID, 0) {
		t.Error("replaced source still connected")
	}
	if !g.IsOutputConnected(b.ID, 0) || !g.IsInputConnected(root.Base().ID, gshade.PinRoughness) {
		t.Error("link not reported connected")
	}
	typ, ok := g.InputType(root.Base().ID, gshade.PinRoughness)
	if !ok || typ != gshade.TypeFloat {
		t.Errorf("input type %s, %v", typ, ok)
	}

	err := g.Connect(gshade.Pin{Node: a.ID, Index: 1}, gshade.Pin{Node: root.Base().ID, Index: 0})
	if !errors.Is(err, gshade.ErrPinRange) {
		t.Error("expected output pin range error, got", err)
	}
	err = g.Connect(gshade.Pin{Node: a.ID}, gshade.Pin{Node: root.Base().ID, Index: 99})
	if !errors.Is(err, gshade.ErrPinRange) {
		t.Error("expected input pin range error, got", err)
	}
	err = g.Connect(gshade.Pin{Node: 999}, gshade.Pin{Node: root.Base().ID})
	if !errors.Is(err, gshade.ErrNodeNotFound) {
		t.Error("expected missing node error, got", err)
	}

	g.Disconnect(gshade.Pin{Node: root.Base().ID, Index: gshade.PinRoughness})
	if len(g.Links) != 0 {
		t.Error("disconnect did not remove link")
	}
	connect(t, g, a, 0, root, gshade.PinMetallic)
	link := g.Links[0]
	if !g.RemoveLink(link) || g.RemoveLink(link) {
		t.Error("RemoveLink must report the first removal only")
	}
}

func TestDeleteNodeRemovesLinks(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	root := g.Root()
	a := number(t, g, 1)
	op := addNode(t, g, gshade.KindOperator)
	connect(t, g, a, 0, op, 0)
	connect(t, g, op, 0, root, gshade.PinAlpha)
	connect(t, g, a, 0, root, gshade.PinAO)
	if err := g.DeleteNode(op.Base().ID); err != nil {
		t.Fatal(err)
	}
	for _, l := range g.Links {
		if g.Node(l.From.Node) == nil || g.Node(l.To.Node) == nil {
			t.Errorf("dangling link %+v", l)
		}
	}
	if len(g.Links) != 1 {
		t.Errorf("want 1 remaining link, got %d", len(g.Links))
	}
	if g.Node(op.Base().ID) != nil {
		t.Error("node not deleted")
	}
}
