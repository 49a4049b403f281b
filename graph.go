package gshade

import (
	"github.com/cockroachdb/errors"
)

// Pin addresses an input or output pin of a node. Input and output pins are numbered independently.
type Pin struct {
	Node  NodeID
	Index uint16
}

// Link connects the output pin From to the input pin To.
type Link struct {
	From Pin
	To   Pin
}

// FunctionResolver looks up function graphs by their path identifier.
type FunctionResolver interface {
	// Function returns the function graph identified by path or nil if not found.
	Function(path string) *Graph
}

// Graph is one compiled unit: a surface shader, a particle shader or a reusable function.
// Nodes[0] is always the root node.
type Graph struct {
	// Path identifies the graph. Function graphs are referenced by call nodes through it.
	Path string
	// Functions resolves function call nodes. May be nil in which case calls fail generation.
	Functions FunctionResolver
	Nodes     []Node
	Links     []Link
	lastID    NodeID
	// memoTypes is set while a compile pass holds the graph immutable.
	memoTypes bool
}

// NewGraph creates a graph whose root node is of kind rootKind.
func NewGraph(rootKind NodeKind) (*Graph, error) {
	if !rootKind.IsRoot() {
		return nil, errors.Wrapf(ErrRootNode, "%s cannot be a graph root", rootKind)
	}
	g := &Graph{}
	_, err := g.AddNode(rootKind)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Root returns the graph's root node or nil for an empty graph.
func (g *Graph) Root() Node {
	if len(g.Nodes) == 0 {
		return nil
	}
	return g.Nodes[0]
}

// LastID returns the last node id assigned in the graph.
func (g *Graph) LastID() NodeID { return g.lastID }

// AddNode creates a node of the argument kind, assigns it a new id and appends it to the graph.
// The first node added to an empty graph must be a root kind and no root kinds may be added after it.
func (g *Graph) AddNode(kind NodeKind) (Node, error) {
	if len(g.Nodes) == 0 && !kind.IsRoot() {
		return nil, errors.Wrapf(ErrRootNode, "first node must be a root kind, got %s", kind)
	} else if len(g.Nodes) > 0 && kind.IsRoot() {
		return nil, errors.Wrapf(ErrRootNode, "graph already has a root, cannot add %s", kind)
	}
	if g.lastID == ^NodeID(0) {
		return nil, errors.New("node ids exhausted")
	}
	n, err := NewNode(kind)
	if err != nil {
		return nil, err
	}
	g.lastID++
	n.Base().ID = g.lastID
	g.Nodes = append(g.Nodes, n)
	return n, nil
}

// Node returns the node with the argument id or nil if not found.
func (g *Graph) Node(id NodeID) Node {
	idx := g.nodeIndex(id)
	if idx < 0 {
		return nil
	}
	return g.Nodes[idx]
}

func (g *Graph) nodeIndex(id NodeID) int {
	for i, n := range g.Nodes {
		if n.Base().ID == id {
			return i
		}
	}
	return -1
}

// ResolveInput returns the node and output pin feeding the input pin of node id.
// ok is false if the input pin is not connected.
func (g *Graph) ResolveInput(id NodeID, pin int) (src Node, outPin int, ok bool) {
	for _, l := range g.Links {
		if l.To.Node == id && int(l.To.Index) == pin {
			src = g.Node(l.From.Node)
			if src == nil {
				return nil, 0, false
			}
			return src, int(l.From.Index), true
		}
	}
	return nil, 0, false
}

// IsInputConnected reports whether the input pin of node id has an incoming link.
func (g *Graph) IsInputConnected(id NodeID, pin int) bool {
	_, _, ok := g.ResolveInput(id, pin)
	return ok
}

// IsOutputConnected reports whether any link leaves the output pin of node id.
func (g *Graph) IsOutputConnected(id NodeID, pin int) bool {
	for _, l := range g.Links {
		if l.From.Node == id && int(l.From.Index) == pin {
			return true
		}
	}
	return false
}

// InputType returns the type of the value feeding an input pin. ok is false if the pin is unconnected.
func (g *Graph) InputType(id NodeID, pin int) (t ValueType, ok bool) {
	src, out, ok := g.ResolveInput(id, pin)
	if !ok {
		return TypeNone, false
	}
	sb := src.Base()
	if g.memoTypes && out == 0 && sb.typed {
		return sb.outType, true
	}
	if sb.typing {
		// Cyclic graph. Generation reports the cycle.
		return TypeFloat, true
	}
	sb.typing = true
	t = src.OutputType(g, out)
	sb.typing = false
	if g.memoTypes && out == 0 {
		sb.outType = t
		sb.typed = true
	}
	return t, true
}

// inputTypeOr returns the type feeding the input pin or def if unconnected.
func (g *Graph) inputTypeOr(id NodeID, pin int, def ValueType) ValueType {
	t, ok := g.InputType(id, pin)
	if !ok {
		return def
	}
	return t
}

// Connect links the output pin from to the input pin to. An existing link into
// the input pin is replaced since input pins accept a single link.
func (g *Graph) Connect(from, to Pin) error {
	src := g.Node(from.Node)
	dst := g.Node(to.Node)
	if src == nil {
		return errors.Wrapf(ErrNodeNotFound, "link source %d", from.Node)
	} else if dst == nil {
		return errors.Wrapf(ErrNodeNotFound, "link destination %d", to.Node)
	} else if from.Node == to.Node {
		return errors.New("cannot link node to itself")
	}
	if int(from.Index) >= src.NumOutputs(g) {
		return errors.Wrapf(ErrPinRange, "output %d of %s node %d", from.Index, src.Base().Kind, from.Node)
	} else if int(to.Index) >= dst.NumInputs(g) {
		return errors.Wrapf(ErrPinRange, "input %d of %s node %d", to.Index, dst.Base().Kind, to.Node)
	}
	g.Disconnect(to)
	g.Links = append(g.Links, Link{From: from, To: to})
	return nil
}

// Disconnect removes the link entering the input pin to, if any.
func (g *Graph) Disconnect(to Pin) {
	g.Links = deleteLinks(g.Links, func(l Link) bool { return l.To == to })
}

// RemoveLink removes the argument link from the graph. It reports whether the link was found.
func (g *Graph) RemoveLink(link Link) bool {
	n := len(g.Links)
	g.Links = deleteLinks(g.Links, func(l Link) bool { return l == link })
	return len(g.Links) != n
}

// DeleteNode removes the node and every link touching it. The root cannot be deleted.
func (g *Graph) DeleteNode(id NodeID) error {
	idx := g.nodeIndex(id)
	if idx < 0 {
		return errors.Wrapf(ErrNodeNotFound, "delete %d", id)
	} else if idx == 0 {
		return errors.Wrap(ErrRootNode, "root node cannot be deleted")
	}
	g.Nodes = append(g.Nodes[:idx], g.Nodes[idx+1:]...)
	g.Links = deleteLinks(g.Links, func(l Link) bool { return l.From.Node == id || l.To.Node == id })
	return nil
}

// Clear removes every node except the root along with all links. Node ids are not reused.
func (g *Graph) Clear() {
	for i := 1; i < len(g.Nodes); i++ {
		g.Nodes[i] = nil
	}
	if len(g.Nodes) > 1 {
		g.Nodes = g.Nodes[:1]
	}
	g.Links = g.Links[:0]
}

func deleteLinks(links []Link, del func(Link) bool) []Link {
	n := 0
	for _, l := range links {
		if !del(l) {
			links[n] = l
			n++
		}
	}
	return links[:n]
}

// function resolves a function graph by path through the graph's resolver.
func (g *Graph) function(path string) *Graph {
	if g.Functions == nil || path == "" {
		return nil
	}
	return g.Functions.Function(path)
}

func (g *Graph) resetScratch() {
	for _, n := range g.Nodes {
		n.Base().resetScratch()
	}
}

// resetGeneration clears generation flags but keeps errors recorded while collecting.
func (g *Graph) resetGeneration() {
	for _, n := range g.Nodes {
		n.Base().resetGeneration()
	}
}
