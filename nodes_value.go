package gshade

import (
	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade/glbuild"
)

// ConstantNode is a literal number, vector or color. Vector constants expose one
// input per channel; a connected channel input overrides the stored literal.
type ConstantNode struct {
	NodeBase
	Value [4]float32
}

func (n *ConstantNode) channels() int {
	switch n.Kind {
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	case KindVec4, KindColor:
		return 4
	}
	return 1
}

func (n *ConstantNode) NumInputs(*Graph) int {
	if n.Kind == KindNumber || n.Kind == KindColor {
		return 0
	}
	return n.channels()
}

func (n *ConstantNode) NumOutputs(*Graph) int { return 1 }

func (n *ConstantNode) OutputType(*Graph, int) ValueType {
	return floatTypeWithChannels(n.channels())
}

func (n *ConstantNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	for i, v := range n.Value[:n.channels()] {
		if !isFinite(v) && !c.isConnected(n, i) {
			return b, errors.Newf("non-finite literal in channel %d", i)
		}
	}
	return b, nil
}

// AppendRef appends the constant as a literal or as a vector constructor mixing
// literals and connected channel expressions.
func (n *ConstantNode) AppendRef(b []byte, c *Compiler, _ int) []byte {
	nch := n.channels()
	connected := false
	for i := 0; i < n.NumInputs(c.g) && !connected; i++ {
		connected = c.isConnected(n, i)
	}
	if !connected {
		var vals [4]float32
		for i, v := range n.Value[:nch] {
			if isFinite(v) {
				vals[i] = v
			}
		}
		return glbuild.AppendVecLiteral(b, vals[:nch]...)
	}
	b = append(b, n.OutputType(c.g, 0).GLSL()...)
	b = append(b, '(')
	for i := 0; i < nch; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		var ok bool
		b, ok = c.appendInputAs(b, n, i, TypeFloat)
		if !ok {
			v := n.Value[i]
			if !isFinite(v) {
				v = 0
			}
			b = glbuild.AppendFloat(b, '-', '.', v)
		}
	}
	return append(b, ')')
}

func (n *ConstantNode) appendPayload(b []byte) []byte {
	return appendF32s(b, n.Value[:]...)
}

func (n *ConstantNode) decodePayload(d *decoder) error {
	d.f32s(n.Value[:])
	return d.err
}

// ParamNode is a material parameter exposed as a uniform. Its reference is the
// uniform name and it contributes one uniform directive to the shader.
type ParamNode struct {
	NodeBase
	Name string
	// Value is the default value of the uniform. Scalar params use the first component.
	Value [4]float32
}

func (n *ParamNode) NumInputs(*Graph) int  { return 0 }
func (n *ParamNode) NumOutputs(*Graph) int { return 1 }

func (n *ParamNode) OutputType(*Graph, int) ValueType {
	if n.Kind == KindScalarParam {
		return TypeFloat
	}
	return TypeVec4
}

func (n *ParamNode) uniformType() string {
	switch n.Kind {
	case KindScalarParam:
		return "float"
	case KindColorParam:
		return "color"
	}
	return "vec4"
}

func (n *ParamNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	if n.Name == "" {
		return b, errors.New("parameter has no name")
	}
	for _, v := range n.Value {
		if !isFinite(v) {
			return b, errors.New("non-finite parameter default")
		}
	}
	return b, nil
}

func (n *ParamNode) AppendRef(b []byte, _ *Compiler, _ int) []byte {
	return glbuild.AppendIdent(b, "u_", n.Name)
}

func (n *ParamNode) appendObjects(objs []object) []object {
	if n.Name == "" {
		return objs
	}
	return append(objs, object{kind: objUniform, name: n.Name, typ: n.uniformType(), value: n.Value})
}

func (n *ParamNode) appendPayload(b []byte) []byte {
	b = appendString(b, n.Name)
	return appendF32s(b, n.Value[:]...)
}

func (n *ParamNode) decodePayload(d *decoder) error {
	n.Name = d.str()
	d.f32s(n.Value[:])
	return d.err
}

// shaderInputs maps input node kinds to their type and pipeline provided expression.
var shaderInputs = map[NodeKind]struct {
	typ  ValueType
	expr string
}{
	KindUV0:            {TypeVec2, "v_uv"},
	KindPosition:       {TypeVec3, "v_wpos"},
	KindNormal:         {TypeVec3, "v_normal"},
	KindTime:           {TypeFloat, "Global.time"},
	KindScreenPosition: {TypeVec2, "(gl_FragCoord.xy / Global.framebuffer_size)"},
	KindPixelDepth:     {TypeFloat, "gl_FragCoord.z"},
}

// InputNode references a value provided by the pipeline such as texture
// coordinates, world position or time.
type InputNode struct {
	NodeBase
}

func (n *InputNode) NumInputs(*Graph) int  { return 0 }
func (n *InputNode) NumOutputs(*Graph) int { return 1 }

func (n *InputNode) OutputType(*Graph, int) ValueType {
	in, ok := shaderInputs[n.Kind]
	if !ok {
		return TypeFloat
	}
	return in.typ
}

func (n *InputNode) AppendCode(b []byte, _ *Compiler) ([]byte, error) {
	if _, ok := shaderInputs[n.Kind]; !ok {
		return b, errors.Wrapf(ErrUnknownKind, "%s is not a shader input", n.Kind)
	}
	return b, nil
}

func (n *InputNode) AppendRef(b []byte, _ *Compiler, _ int) []byte {
	in, ok := shaderInputs[n.Kind]
	if !ok {
		return append(b, "0.0"...)
	}
	return append(b, in.expr...)
}

func (n *InputNode) appendPayload(b []byte) []byte  { return b }
func (n *InputNode) decodePayload(d *decoder) error { return d.err }

func isFinite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
