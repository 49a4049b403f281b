package gshade

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade/glbuild"
)

// Operator is a binary arithmetic operator.
type Operator int32

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	opCount
)

func (op Operator) String() string {
	if op < 0 || op >= opCount {
		return "Operator(" + strconv.Itoa(int(op)) + ")"
	}
	return [...]string{"+", "-", "*", "/"}[op]
}

// OperatorNode combines inputs a and b with an arithmetic operator. An unconnected
// b input is replaced by the stored literal Value.
type OperatorNode struct {
	NodeBase
	Op    Operator
	Value float32
}

func (n *OperatorNode) NumInputs(*Graph) int  { return 2 }
func (n *OperatorNode) NumOutputs(*Graph) int { return 1 }

func (n *OperatorNode) OutputType(g *Graph, _ int) ValueType {
	return Widen(g.inputTypeOr(n.ID, 0, TypeFloat), g.inputTypeOr(n.ID, 1, TypeFloat))
}

func (n *OperatorNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	if n.Op < 0 || n.Op >= opCount {
		return b, errors.Newf("invalid operator %d", int32(n.Op))
	} else if !c.isConnected(n, 0) {
		return b, errMissingInput("a")
	} else if !c.isConnected(n, 1) && !isFinite(n.Value) {
		return b, errors.New("non-finite literal operand")
	}
	return b, nil
}

func (n *OperatorNode) AppendRef(b []byte, c *Compiler, _ int) []byte {
	t := n.OutputType(c.g, 0)
	b = append(b, '(')
	b, _ = c.appendInputOrZero(b, n, 0, t)
	b = append(b, ' ')
	b = append(b, n.Op.String()...)
	b = append(b, ' ')
	var ok bool
	b, ok = c.appendInputAs(b, n, 1, t)
	if !ok {
		v := n.Value
		if !isFinite(v) {
			v = 0
		}
		b = glbuild.AppendFloat(b, '-', '.', v)
	}
	return append(b, ')')
}

func (n *OperatorNode) appendPayload(b []byte) []byte {
	b = appendU32(b, uint32(n.Op))
	return appendF32s(b, n.Value)
}

func (n *OperatorNode) decodePayload(d *decoder) error {
	n.Op = Operator(d.i32())
	n.Value = d.f32()
	return d.err
}

// BuiltinFunc selects the GLSL builtin function computed by a [BuiltinNode].
type BuiltinFunc int32

const (
	FuncAbs BuiltinFunc = iota
	FuncSign
	FuncFloor
	FuncCeil
	FuncFract
	FuncSqrt
	FuncExp
	FuncExp2
	FuncLog
	FuncLog2
	FuncSin
	FuncCos
	FuncTan
	FuncAsin
	FuncAcos
	FuncAtan
	FuncNormalize
	FuncLength
	FuncSaturate
	FuncDot
	FuncCross
	FuncMin
	FuncMax
	FuncDistance
	FuncPow
	FuncMod
	FuncStep
	FuncReflect
	FuncMix
	FuncClamp
	FuncSmoothstep
	funcCount
)

var builtinFuncs = [funcCount]struct {
	name  string
	glsl  string
	arity int
	// ret is the fixed output type. TypeNone means the first argument's type.
	ret ValueType
	// arg is the fixed argument type. TypeNone means the first argument's type.
	arg ValueType
	// extra is appended after the arguments.
	extra string
}{
	FuncAbs:        {"abs", "abs", 1, TypeNone, TypeNone, ""},
	FuncSign:       {"sign", "sign", 1, TypeNone, TypeNone, ""},
	FuncFloor:      {"floor", "floor", 1, TypeNone, TypeNone, ""},
	FuncCeil:       {"ceil", "ceil", 1, TypeNone, TypeNone, ""},
	FuncFract:      {"fract", "fract", 1, TypeNone, TypeNone, ""},
	FuncSqrt:       {"sqrt", "sqrt", 1, TypeNone, TypeNone, ""},
	FuncExp:        {"exp", "exp", 1, TypeNone, TypeNone, ""},
	FuncExp2:       {"exp2", "exp2", 1, TypeNone, TypeNone, ""},
	FuncLog:        {"log", "log", 1, TypeNone, TypeNone, ""},
	FuncLog2:       {"log2", "log2", 1, TypeNone, TypeNone, ""},
	FuncSin:        {"sin", "sin", 1, TypeNone, TypeNone, ""},
	FuncCos:        {"cos", "cos", 1, TypeNone, TypeNone, ""},
	FuncTan:        {"tan", "tan", 1, TypeNone, TypeNone, ""},
	FuncAsin:       {"asin", "asin", 1, TypeNone, TypeNone, ""},
	FuncAcos:       {"acos", "acos", 1, TypeNone, TypeNone, ""},
	FuncAtan:       {"atan", "atan", 1, TypeNone, TypeNone, ""},
	FuncNormalize:  {"normalize", "normalize", 1, TypeNone, TypeNone, ""},
	FuncLength:     {"length", "length", 1, TypeFloat, TypeNone, ""},
	FuncSaturate:   {"saturate", "clamp", 1, TypeNone, TypeNone, ", 0.0, 1.0"},
	FuncDot:        {"dot", "dot", 2, TypeFloat, TypeNone, ""},
	FuncCross:      {"cross", "cross", 2, TypeVec3, TypeVec3, ""},
	FuncMin:        {"min", "min", 2, TypeNone, TypeNone, ""},
	FuncMax:        {"max", "max", 2, TypeNone, TypeNone, ""},
	FuncDistance:   {"distance", "distance", 2, TypeFloat, TypeNone, ""},
	FuncPow:        {"pow", "pow", 2, TypeNone, TypeNone, ""},
	FuncMod:        {"mod", "mod", 2, TypeNone, TypeNone, ""},
	FuncStep:       {"step", "step", 2, TypeNone, TypeNone, ""},
	FuncReflect:    {"reflect", "reflect", 2, TypeNone, TypeNone, ""},
	FuncMix:        {"mix", "mix", 3, TypeNone, TypeNone, ""},
	FuncClamp:      {"clamp", "clamp", 3, TypeNone, TypeNone, ""},
	FuncSmoothstep: {"smoothstep", "smoothstep", 3, TypeNone, TypeNone, ""},
}

func (f BuiltinFunc) String() string {
	if !f.Valid() {
		return "BuiltinFunc(" + strconv.Itoa(int(f)) + ")"
	}
	return builtinFuncs[f].name
}

// Valid reports whether f is a known builtin function.
func (f BuiltinFunc) Valid() bool { return f >= 0 && f < funcCount }

// Arity returns the amount of arguments of f.
func (f BuiltinFunc) Arity() int {
	if !f.Valid() {
		return 1
	}
	return builtinFuncs[f].arity
}

// BuiltinNode declares the result of a GLSL builtin function. Every argument is required
// and arguments after the first are converted to the first argument's type.
type BuiltinNode struct {
	NodeBase
	Func BuiltinFunc
}

func (n *BuiltinNode) NumInputs(*Graph) int  { return n.Func.Arity() }
func (n *BuiltinNode) NumOutputs(*Graph) int { return 1 }

func (n *BuiltinNode) argType(g *Graph) ValueType {
	if n.Func.Valid() && builtinFuncs[n.Func].arg != TypeNone {
		return builtinFuncs[n.Func].arg
	}
	return g.inputTypeOr(n.ID, 0, TypeFloat)
}

func (n *BuiltinNode) OutputType(g *Graph, _ int) ValueType {
	if n.Func.Valid() && builtinFuncs[n.Func].ret != TypeNone {
		return builtinFuncs[n.Func].ret
	}
	return n.argType(g)
}

func (n *BuiltinNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	if !n.Func.Valid() {
		return b, errors.Newf("invalid builtin function %d", int32(n.Func))
	}
	fn := builtinFuncs[n.Func]
	arg := n.argType(c.g)
	var err error
	b = append(b, '\t')
	b = append(b, n.OutputType(c.g, 0).GLSL()...)
	b = append(b, ' ')
	b = appendVar(b, n.ID)
	b = append(b, " = "...)
	b = append(b, fn.glsl...)
	b = append(b, '(')
	for i := 0; i < fn.arity; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		var ok bool
		b, ok = c.appendInputOrZero(b, n, i, arg)
		if !ok && err == nil {
			err = errMissingInput(string(rune('a' + i)))
		}
	}
	b = append(b, fn.extra...)
	b = append(b, ");\n"...)
	return b, err
}

func (n *BuiltinNode) AppendRef(b []byte, _ *Compiler, _ int) []byte {
	return appendVar(b, n.ID)
}

func (n *BuiltinNode) appendPayload(b []byte) []byte {
	return appendU32(b, uint32(n.Func))
}

func (n *BuiltinNode) decodePayload(d *decoder) error {
	n.Func = BuiltinFunc(d.i32())
	return d.err
}

// SwizzleNode selects and reorders the components of its input.
type SwizzleNode struct {
	NodeBase
	Swizzle string
}

var swizzleSets = [...]string{"xyzw", "rgba", "stpq"}

// validSwizzle reports whether swz is a 1 to 4 component selection using a single
// component set with every component within the first n channels.
func validSwizzle(swz string, n int) bool {
	if len(swz) == 0 || len(swz) > 4 {
		return false
	}
	for _, set := range swizzleSets {
		if strings.IndexByte(set, swz[0]) < 0 {
			continue
		}
		for i := 0; i < len(swz); i++ {
			idx := strings.IndexByte(set, swz[i])
			if idx < 0 || idx >= n {
				return false
			}
		}
		return true
	}
	return false
}

func (n *SwizzleNode) NumInputs(*Graph) int  { return 1 }
func (n *SwizzleNode) NumOutputs(*Graph) int { return 1 }

func (n *SwizzleNode) OutputType(*Graph, int) ValueType {
	if !validSwizzle(n.Swizzle, 4) {
		return TypeFloat
	}
	return floatTypeWithChannels(len(n.Swizzle))
}

func (n *SwizzleNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	t, ok := c.inputType(n, 0)
	if !ok {
		return b, errMissingInput("a")
	}
	nch := t.ChannelCount()
	if t.IsScalar() {
		nch = 4
	}
	if !validSwizzle(n.Swizzle, nch) {
		return b, errors.Newf("invalid swizzle %q for %s", n.Swizzle, t)
	}
	return b, nil
}

func (n *SwizzleNode) AppendRef(b []byte, c *Compiler, _ int) []byte {
	t, ok := c.inputType(n, 0)
	if !ok || !validSwizzle(n.Swizzle, 4) {
		return n.OutputType(c.g, 0).AppendZero(b)
	}
	if t.IsScalar() {
		b = append(b, "vec4("...)
		b, _ = c.appendInputRef(b, n, 0)
		b = append(b, ')')
	} else {
		b, _ = c.appendInputRef(b, n, 0)
	}
	b = append(b, '.')
	return append(b, n.Swizzle...)
}

func (n *SwizzleNode) appendPayload(b []byte) []byte {
	return appendString(b, n.Swizzle)
}

func (n *SwizzleNode) decodePayload(d *decoder) error {
	n.Swizzle = d.str()
	return d.err
}

// AppendNode concatenates the components of inputs a and b into a larger vector.
// Components of b beyond four channels in total are dropped.
type AppendNode struct {
	NodeBase
}

func (n *AppendNode) NumInputs(*Graph) int  { return 2 }
func (n *AppendNode) NumOutputs(*Graph) int { return 1 }

func (n *AppendNode) OutputType(g *Graph, _ int) ValueType {
	total := 0
	for pin := 0; pin < 2; pin++ {
		if t, ok := g.InputType(n.ID, pin); ok {
			total += t.ChannelCount()
		}
	}
	return floatTypeWithChannels(min(max(total, 1), 4))
}

func (n *AppendNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	ta, ok := c.inputType(n, 0)
	if !ok {
		return b, errMissingInput("a")
	} else if !c.isConnected(n, 1) {
		return b, errMissingInput("b")
	} else if ta.ChannelCount() >= 4 {
		return b, errors.Newf("cannot append to %s", ta)
	}
	return b, nil
}

func (n *AppendNode) AppendRef(b []byte, c *Compiler, _ int) []byte {
	t := n.OutputType(c.g, 0)
	ta, okA := c.inputType(n, 0)
	_, okB := c.inputType(n, 1)
	if !okA || !okB || ta.ChannelCount() >= 4 {
		return t.AppendZero(b)
	}
	b = append(b, t.GLSL()...)
	b = append(b, '(')
	b, _ = c.appendInputRef(b, n, 0)
	b = append(b, ", "...)
	b, _ = c.appendInputAs(b, n, 1, floatTypeWithChannels(t.ChannelCount()-ta.ChannelCount()))
	return append(b, ')')
}

func (n *AppendNode) appendPayload(b []byte) []byte  { return b }
func (n *AppendNode) decodePayload(d *decoder) error { return d.err }

// OneMinusNode computes one minus its input.
type OneMinusNode struct {
	NodeBase
}

func (n *OneMinusNode) NumInputs(*Graph) int  { return 1 }
func (n *OneMinusNode) NumOutputs(*Graph) int { return 1 }

func (n *OneMinusNode) OutputType(g *Graph, _ int) ValueType {
	return g.inputTypeOr(n.ID, 0, TypeFloat)
}

func (n *OneMinusNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	if !c.isConnected(n, 0) {
		return b, errMissingInput("a")
	}
	return b, nil
}

func (n *OneMinusNode) AppendRef(b []byte, c *Compiler, _ int) []byte {
	t := n.OutputType(c.g, 0)
	if !c.isConnected(n, 0) {
		return t.AppendZero(b)
	}
	b = append(b, '(')
	if t.IsScalar() {
		b = append(b, "1.0"...)
	} else {
		b = append(b, t.GLSL()...)
		b = append(b, "(1.0)"...)
	}
	b = append(b, " - "...)
	b, _ = c.appendInputRef(b, n, 0)
	return append(b, ')')
}

func (n *OneMinusNode) appendPayload(b []byte) []byte  { return b }
func (n *OneMinusNode) decodePayload(d *decoder) error { return d.err }

// PinNode passes its input through unchanged. Used to route links in the editor.
type PinNode struct {
	NodeBase
}

func (n *PinNode) NumInputs(*Graph) int  { return 1 }
func (n *PinNode) NumOutputs(*Graph) int { return 1 }

func (n *PinNode) OutputType(g *Graph, _ int) ValueType {
	return g.inputTypeOr(n.ID, 0, TypeFloat)
}

func (n *PinNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	if !c.isConnected(n, 0) {
		return b, errMissingInput("a")
	}
	return b, nil
}

func (n *PinNode) AppendRef(b []byte, c *Compiler, _ int) []byte {
	b, ok := c.appendInputRef(b, n, 0)
	if !ok {
		b = TypeFloat.AppendZero(b)
	}
	return b
}

func (n *PinNode) appendPayload(b []byte) []byte  { return b }
func (n *PinNode) decodePayload(d *decoder) error { return d.err }
