package gshade

import (
	"github.com/cockroachdb/errors"
)

// Input pins of an [IfNode].
const (
	PinIfA = iota
	PinIfB
	PinIfGreater
	PinIfEqual
	PinIfLess
)

// IfNode compares scalars a and b and selects the value of the greater, equal or
// less input accordingly. Branch inputs may be left unconnected.
type IfNode struct {
	NodeBase
}

func (n *IfNode) NumInputs(*Graph) int  { return 5 }
func (n *IfNode) NumOutputs(*Graph) int { return 1 }

func (n *IfNode) OutputType(g *Graph, _ int) ValueType {
	return firstConnectedType(g, n.ID, PinIfGreater, PinIfEqual, PinIfLess)
}

var ifComparisons = [...]struct {
	pin int
	op  string
}{
	{PinIfGreater, " > "},
	{PinIfEqual, " == "},
	{PinIfLess, " < "},
}

func (n *IfNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	t := n.OutputType(c.g, 0)
	b = appendZeroDecl(b, n.ID, t)
	if !c.isConnected(n, PinIfA) {
		return b, errMissingInput("a")
	} else if !c.isConnected(n, PinIfB) {
		return b, errMissingInput("b")
	}
	branches := 0
	for _, cmp := range ifComparisons {
		if !c.isConnected(n, cmp.pin) {
			continue
		}
		branches++
		b = append(b, "\tif ("...)
		b, _ = c.appendInputAs(b, n, PinIfA, TypeFloat)
		b = append(b, cmp.op...)
		b, _ = c.appendInputAs(b, n, PinIfB, TypeFloat)
		b = append(b, ") "...)
		b = appendVar(b, n.ID)
		b = append(b, " = "...)
		b, _ = c.appendInputAs(b, n, cmp.pin, t)
		b = append(b, ";\n"...)
	}
	if branches == 0 {
		return b, errors.New("no branch connected")
	}
	return b, nil
}

func (n *IfNode) AppendRef(b []byte, _ *Compiler, _ int) []byte { return appendVar(b, n.ID) }
func (n *IfNode) appendPayload(b []byte) []byte                 { return b }
func (n *IfNode) decodePayload(d *decoder) error                { return d.err }

// BackfaceSwitchNode selects its front input on front facing fragments and its back input otherwise.
type BackfaceSwitchNode struct {
	NodeBase
}

func (n *BackfaceSwitchNode) NumInputs(*Graph) int  { return 2 }
func (n *BackfaceSwitchNode) NumOutputs(*Graph) int { return 1 }

func (n *BackfaceSwitchNode) OutputType(g *Graph, _ int) ValueType {
	return firstConnectedType(g, n.ID, 0, 1)
}

func (n *BackfaceSwitchNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	t := n.OutputType(c.g, 0)
	b = appendZeroDecl(b, n.ID, t)
	front, back := c.isConnected(n, 0), c.isConnected(n, 1)
	if !front && !back {
		return b, errMissingInput("front")
	}
	if front {
		b = append(b, "\tif (gl_FrontFacing) "...)
		b = appendVar(b, n.ID)
		b = append(b, " = "...)
		b, _ = c.appendInputAs(b, n, 0, t)
		b = append(b, ";\n"...)
	}
	if back {
		if front {
			b = append(b, "\telse "...)
		} else {
			b = append(b, "\tif (!gl_FrontFacing) "...)
		}
		b = appendVar(b, n.ID)
		b = append(b, " = "...)
		b, _ = c.appendInputAs(b, n, 1, t)
		b = append(b, ";\n"...)
	}
	return b, nil
}

func (n *BackfaceSwitchNode) AppendRef(b []byte, _ *Compiler, _ int) []byte {
	return appendVar(b, n.ID)
}
func (n *BackfaceSwitchNode) appendPayload(b []byte) []byte  { return b }
func (n *BackfaceSwitchNode) decodePayload(d *decoder) error { return d.err }

// StaticSwitchNode selects between its true and false inputs at shader build time
// depending on whether Define is defined.
type StaticSwitchNode struct {
	NodeBase
	Define string
}

func (n *StaticSwitchNode) NumInputs(*Graph) int  { return 2 }
func (n *StaticSwitchNode) NumOutputs(*Graph) int { return 1 }

func (n *StaticSwitchNode) OutputType(g *Graph, _ int) ValueType {
	return g.inputTypeOr(n.ID, 0, TypeFloat)
}

func (n *StaticSwitchNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	var err error
	if n.Define == "" {
		err = errors.New("static switch has no define")
	}
	t := n.OutputType(c.g, 0)
	b = append(b, "#ifdef "...)
	b = append(b, n.Define...)
	b = append(b, '\n')
	for pin := 0; pin < 2; pin++ {
		if pin == 1 {
			b = append(b, "#else\n"...)
		}
		b = append(b, '\t')
		b = append(b, t.GLSL()...)
		b = append(b, ' ')
		b = appendVar(b, n.ID)
		b = append(b, " = "...)
		var ok bool
		b, ok = c.appendInputOrZero(b, n, pin, t)
		b = append(b, ";\n"...)
		if !ok && err == nil {
			err = errMissingInput([2]string{"true", "false"}[pin])
		}
	}
	b = append(b, "#endif\n"...)
	return b, err
}

func (n *StaticSwitchNode) AppendRef(b []byte, _ *Compiler, _ int) []byte {
	return appendVar(b, n.ID)
}

func (n *StaticSwitchNode) appendObjects(objs []object) []object {
	if n.Define == "" {
		return objs
	}
	return append(objs, object{kind: objDefine, name: n.Define})
}

func (n *StaticSwitchNode) appendPayload(b []byte) []byte {
	return appendString(b, n.Define)
}

func (n *StaticSwitchNode) decodePayload(d *decoder) error {
	n.Define = d.str()
	return d.err
}

// firstConnectedType returns the type of the first connected pin in pins or TypeFloat.
func firstConnectedType(g *Graph, id NodeID, pins ...int) ValueType {
	for _, pin := range pins {
		if t, ok := g.InputType(id, pin); ok {
			return t
		}
	}
	return TypeFloat
}

// appendZeroDecl appends a declaration of the node's variable initialized to zero.
func appendZeroDecl(b []byte, id NodeID, t ValueType) []byte {
	b = append(b, '\t')
	b = append(b, t.GLSL()...)
	b = append(b, ' ')
	b = appendVar(b, id)
	b = append(b, " = "...)
	b = t.AppendZero(b)
	return append(b, ";\n"...)
}
