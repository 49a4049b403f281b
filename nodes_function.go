package gshade

import (
	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade/glbuild"
)

// maxUnresolvedArgs is the amount of input pins of a call node whose callee is not resolved.
// Links into these pins are kept until the callee is found.
const maxUnresolvedArgs = 16

// FunctionInputNode is a parameter of a function graph. Parameters appear in the
// function signature in node order.
type FunctionInputNode struct {
	NodeBase
	Name string
	Type ValueType
}

func (n *FunctionInputNode) NumInputs(*Graph) int             { return 0 }
func (n *FunctionInputNode) NumOutputs(*Graph) int            { return 1 }
func (n *FunctionInputNode) OutputType(*Graph, int) ValueType { return n.Type }

func (n *FunctionInputNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	if _, ok := c.g.Root().(*FunctionOutputNode); !ok {
		return b, errors.New("function input outside of function graph")
	} else if !n.Type.Valid() || n.Type == TypeNone {
		return b, errors.Newf("invalid parameter type %s", n.Type)
	}
	return b, nil
}

func (n *FunctionInputNode) AppendRef(b []byte, _ *Compiler, _ int) []byte {
	return n.appendParamName(b)
}

func (n *FunctionInputNode) appendParamName(b []byte) []byte {
	if n.Name == "" {
		b = append(b, 'a')
		return appendVar(b, n.ID)
	}
	return glbuild.AppendIdent(b, "a_", n.Name)
}

func (n *FunctionInputNode) appendPayload(b []byte) []byte {
	b = appendString(b, n.Name)
	return append(b, byte(n.Type))
}

func (n *FunctionInputNode) decodePayload(d *decoder) error {
	n.Name = d.str()
	n.Type = ValueType(d.u8())
	if d.err == nil && !n.Type.Valid() {
		return errors.Newf("invalid function input type %d", n.Type)
	}
	return d.err
}

// functionParams returns the parameters of function graph g in signature order.
func functionParams(g *Graph) []*FunctionInputNode {
	var params []*FunctionInputNode
	for _, n := range g.Nodes {
		if in, ok := n.(*FunctionInputNode); ok {
			params = append(params, in)
		}
	}
	return params
}

// Signature returns the parameters and return type of function graph g.
func Signature(g *Graph) (params []Variable, ret ValueType, err error) {
	out, ok := g.Root().(*FunctionOutputNode)
	if !ok {
		return nil, TypeNone, errors.Wrap(ErrRootNode, "not a function graph")
	}
	for _, in := range functionParams(g) {
		params = append(params, Variable{Name: in.Name, Type: in.Type})
	}
	ret = out.OutputType(g, 0)
	return params, ret, nil
}

// resolveFunction returns the function graph at path resolved through g or nil if
// not found or if the resolved graph is not a function graph.
func resolveFunction(g *Graph, path string) *Graph {
	callee := g.function(path)
	if callee == nil {
		return nil
	}
	if _, ok := callee.Root().(*FunctionOutputNode); !ok {
		return nil
	}
	return callee
}

// FunctionCallNode calls the function graph identified by Path. The callee is
// resolved through the graph's [FunctionResolver] on every use.
type FunctionCallNode struct {
	NodeBase
	Path string
}

func (n *FunctionCallNode) NumInputs(g *Graph) int {
	callee := resolveFunction(g, n.Path)
	if callee == nil {
		return maxUnresolvedArgs
	}
	return len(functionParams(callee))
}

func (n *FunctionCallNode) NumOutputs(*Graph) int { return 1 }

func (n *FunctionCallNode) OutputType(g *Graph, _ int) ValueType {
	callee := resolveFunction(g, n.Path)
	if callee == nil {
		return TypeFloat
	}
	return callee.Root().OutputType(callee, 0)
}

func (n *FunctionCallNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	callee := resolveFunction(c.g, n.Path)
	if callee == nil {
		b = appendZeroDecl(b, n.ID, TypeFloat)
		return b, errors.Newf("unresolved function %q", n.Path)
	}
	t := n.OutputType(c.g, 0)
	b = append(b, '\t')
	b = append(b, t.GLSL()...)
	b = append(b, ' ')
	b = appendVar(b, n.ID)
	b = append(b, " = "...)
	b = appendFuncName(b, callee.Path)
	b = append(b, '(')
	var err error
	for i, param := range functionParams(callee) {
		if i > 0 {
			b = append(b, ", "...)
		}
		var ok bool
		b, ok = c.appendInputOrZero(b, n, i, param.Type)
		if !ok && err == nil {
			err = errors.Newf("missing argument %q", param.Name)
		}
	}
	b = append(b, ");\n"...)
	return b, err
}

func (n *FunctionCallNode) AppendRef(b []byte, _ *Compiler, _ int) []byte {
	return appendVar(b, n.ID)
}

func (n *FunctionCallNode) appendObjects(objs []object) []object {
	if n.Path == "" {
		return objs
	}
	return append(objs, object{kind: objFunction, name: n.Path})
}

func (n *FunctionCallNode) appendPayload(b []byte) []byte {
	return appendString(b, n.Path)
}

func (n *FunctionCallNode) decodePayload(d *decoder) error {
	n.Path = d.str()
	return d.err
}

// Variable is a named and typed input or output of a [CodeNode].
type Variable struct {
	Name string
	Type ValueType
}

// CodeNode embeds user written GLSL verbatim. Inputs are declared as local variables
// before Code runs and outputs are local variables copied out after it.
type CodeNode struct {
	NodeBase
	Code    string
	Inputs  []Variable
	Outputs []Variable
}

func (n *CodeNode) NumInputs(*Graph) int  { return len(n.Inputs) }
func (n *CodeNode) NumOutputs(*Graph) int { return len(n.Outputs) }

func (n *CodeNode) OutputType(_ *Graph, pin int) ValueType {
	if pin < 0 || pin >= len(n.Outputs) {
		return TypeFloat
	}
	return n.Outputs[pin].Type
}

func (n *CodeNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	var err error
	for _, out := range n.Outputs {
		b = append(b, '\t')
		b = append(b, out.Type.GLSL()...)
		b = append(b, ' ')
		b = n.appendOutputVar(b, out.Name)
		b = append(b, ";\n"...)
	}
	b = append(b, "\t{\n"...)
	for pin, in := range n.Inputs {
		b = append(b, "\t\t"...)
		b = append(b, in.Type.GLSL()...)
		b = append(b, ' ')
		b = glbuild.AppendIdent(b, "", in.Name)
		b = append(b, " = "...)
		var ok bool
		b, ok = c.appendInputOrZero(b, n, pin, in.Type)
		b = append(b, ";\n"...)
		if !ok && err == nil {
			err = errMissingInput(in.Name)
		}
	}
	for _, out := range n.Outputs {
		b = append(b, "\t\t"...)
		b = append(b, out.Type.GLSL()...)
		b = append(b, ' ')
		b = glbuild.AppendIdent(b, "", out.Name)
		b = append(b, ";\n"...)
	}
	b = append(b, n.Code...)
	if len(n.Code) > 0 && n.Code[len(n.Code)-1] != '\n' {
		b = append(b, '\n')
	}
	for _, out := range n.Outputs {
		b = append(b, "\t\t"...)
		b = n.appendOutputVar(b, out.Name)
		b = append(b, " = "...)
		b = glbuild.AppendIdent(b, "", out.Name)
		b = append(b, ";\n"...)
	}
	b = append(b, "\t}\n"...)
	return b, err
}

func (n *CodeNode) AppendRef(b []byte, _ *Compiler, pin int) []byte {
	if pin < 0 || pin >= len(n.Outputs) {
		return TypeFloat.AppendZero(b)
	}
	return n.appendOutputVar(b, n.Outputs[pin].Name)
}

// appendOutputVar appends the name of the variable holding a code output: v<id>_<name>.
func (n *CodeNode) appendOutputVar(b []byte, name string) []byte {
	b = appendVar(b, n.ID)
	return glbuild.AppendIdent(b, "_", name)
}

func (n *CodeNode) appendPayload(b []byte) []byte {
	b = appendString(b, n.Code)
	b = appendVariables(b, n.Inputs)
	return appendVariables(b, n.Outputs)
}

func (n *CodeNode) decodePayload(d *decoder) error {
	n.Code = d.str()
	n.Inputs = d.variables()
	n.Outputs = d.variables()
	return d.err
}

func appendVariables(b []byte, vars []Variable) []byte {
	b = appendU32(b, uint32(len(vars)))
	for _, v := range vars {
		b = appendString(b, v.Name)
		b = append(b, byte(v.Type))
	}
	return b
}
