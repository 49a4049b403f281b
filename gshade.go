// Package gshade compiles node graphs of typed shading operations into shader
// source for a surface/particle rendering pipeline.
//
// A [Graph] owns its nodes and the links between their pins. The node at index 0
// is the graph's root: a surface output, a particle output or a function output.
// [Compiler.Compile] marks the nodes reachable from the root and walks them depth
// first, emitting each declaring node's statement exactly once and before any
// statement that references it. The root node then assembles the whole shader
// template around the generated statements.
package gshade

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/soypat/geometry/ms2"
)

var (
	// ErrUnknownKind is returned when a node kind tag is not part of the catalog.
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrRootNode is returned for structural violations involving the graph root.
	ErrRootNode = errors.New("invalid root node")
	// ErrNodeNotFound is returned when a node id does not exist in the graph.
	ErrNodeNotFound = errors.New("node not found")
	// ErrPinRange is returned when a pin index is out of the node's pin range.
	ErrPinRange = errors.New("pin out of range")
)

// NodeID identifies a node within a graph. IDs are assigned monotonically and never reused.
type NodeID uint16

// NodeKind is the persisted tag that selects a node variant.
type NodeKind int32

const (
	KindSurface NodeKind = iota
	KindParticle
	KindFunctionOutput
	KindNumber
	KindVec2
	KindVec3
	KindVec4
	KindColor
	KindOperator
	KindBuiltin
	KindSwizzle
	KindAppend
	KindOneMinus
	KindPin
	KindIf
	KindBackfaceSwitch
	KindStaticSwitch
	KindSample
	KindScalarParam
	KindVec4Param
	KindColorParam
	KindUV0
	KindPosition
	KindNormal
	KindTime
	KindScreenPosition
	KindPixelDepth
	KindSceneDepth
	KindFresnel
	KindNoise
	KindParticleStream
	KindFunctionInput
	KindFunctionCall
	KindCode
	kindCount
)

// kindTable is the dispatch table from kind tag to node constructor.
var kindTable = [kindCount]struct {
	name string
	new  func() Node
}{
	KindSurface:        {"surface", func() Node { return &OutputNode{AlphaThreshold: defaultAlphaThreshold} }},
	KindParticle:       {"particle", func() Node { return &OutputNode{AlphaThreshold: defaultAlphaThreshold} }},
	KindFunctionOutput: {"function_output", func() Node { return &FunctionOutputNode{} }},
	KindNumber:         {"number", func() Node { return &ConstantNode{} }},
	KindVec2:           {"vec2", func() Node { return &ConstantNode{} }},
	KindVec3:           {"vec3", func() Node { return &ConstantNode{} }},
	KindVec4:           {"vec4", func() Node { return &ConstantNode{} }},
	KindColor:          {"color", func() Node { return &ConstantNode{Value: [4]float32{1, 1, 1, 1}} }},
	KindOperator:       {"operator", func() Node { return &OperatorNode{} }},
	KindBuiltin:        {"builtin", func() Node { return &BuiltinNode{} }},
	KindSwizzle:        {"swizzle", func() Node { return &SwizzleNode{Swizzle: "xyz"} }},
	KindAppend:         {"append", func() Node { return &AppendNode{} }},
	KindOneMinus:       {"one_minus", func() Node { return &OneMinusNode{} }},
	KindPin:            {"pin", func() Node { return &PinNode{} }},
	KindIf:             {"if", func() Node { return &IfNode{} }},
	KindBackfaceSwitch: {"backface_switch", func() Node { return &BackfaceSwitchNode{} }},
	KindStaticSwitch:   {"static_switch", func() Node { return &StaticSwitchNode{} }},
	KindSample:         {"sample", func() Node { return &SampleNode{} }},
	KindScalarParam:    {"scalar_param", func() Node { return &ParamNode{} }},
	KindVec4Param:      {"vec4_param", func() Node { return &ParamNode{} }},
	KindColorParam:     {"color_param", func() Node { return &ParamNode{Value: [4]float32{1, 1, 1, 1}} }},
	KindUV0:            {"uv0", func() Node { return &InputNode{} }},
	KindPosition:       {"position", func() Node { return &InputNode{} }},
	KindNormal:         {"normal", func() Node { return &InputNode{} }},
	KindTime:           {"time", func() Node { return &InputNode{} }},
	KindScreenPosition: {"screen_position", func() Node { return &InputNode{} }},
	KindPixelDepth:     {"pixel_depth", func() Node { return &InputNode{} }},
	KindSceneDepth:     {"scene_depth", func() Node { return &SceneDepthNode{} }},
	KindFresnel:        {"fresnel", func() Node { return &FresnelNode{Power: 5} }},
	KindNoise:          {"noise", func() Node { return &NoiseNode{Scale: 1} }},
	KindParticleStream: {"particle_stream", func() Node { return &ParticleStreamNode{} }},
	KindFunctionInput:  {"function_input", func() Node { return &FunctionInputNode{Type: TypeFloat} }},
	KindFunctionCall:   {"function_call", func() Node { return &FunctionCallNode{} }},
	KindCode:           {"code", func() Node { return &CodeNode{} }},
}

func (k NodeKind) String() string {
	if !k.Valid() {
		return "NodeKind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindTable[k].name
}

// Valid reports whether k is part of the node catalog.
func (k NodeKind) Valid() bool { return k >= 0 && k < kindCount }

// IsRoot reports whether nodes of kind k can be the root of a graph.
func (k NodeKind) IsRoot() bool {
	return k == KindSurface || k == KindParticle || k == KindFunctionOutput
}

// NewNode returns a new node of the argument kind with default payload and a zero id.
// Nodes are usually created through [Graph.AddNode] which assigns an id.
func NewNode(kind NodeKind) (Node, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %d", int32(kind))
	}
	n := kindTable[kind].new()
	n.Base().Kind = kind
	return n, nil
}

// Node is a single operation in a shader graph. The set of implementations is
// closed; new variants are added to the kind table.
type Node interface {
	// Base returns the state shared by all node variants.
	Base() *NodeBase
	// NumInputs returns the amount of input pins of the node in the graph g.
	NumInputs(g *Graph) int
	// NumOutputs returns the amount of output pins of the node in the graph g.
	NumOutputs(g *Graph) int
	// OutputType returns the type of the value produced at output pin.
	OutputType(g *Graph, pin int) ValueType
	// AppendCode generates the node's connected inputs through the compiler and
	// appends the node's own statements, if it declares any, to b.
	AppendCode(b []byte, c *Compiler) ([]byte, error)
	// AppendRef appends the expression by which downstream nodes reference output pin.
	AppendRef(b []byte, c *Compiler, pin int) []byte

	appendPayload(b []byte) []byte
	decodePayload(d *decoder) error
}

// NodeBase is embedded in every node variant.
type NodeBase struct {
	ID   NodeID
	Kind NodeKind
	// Position is the node's location on the editor canvas. Not used by the compiler.
	Position ms2.Vec

	// Scratch state recomputed every compile pass, never persisted.
	reachable   bool
	generated   bool
	generating  bool
	typing      bool
	referencing bool
	typed       bool
	outType     ValueType
	err         string
}

// Base implements [Node].
func (nb *NodeBase) Base() *NodeBase { return nb }

// Reachable reports whether the node was required by the root in the last reachability pass.
func (nb *NodeBase) Reachable() bool { return nb.reachable }

// Err returns the error recorded on the node during the last compile pass or an empty string.
func (nb *NodeBase) Err() string { return nb.err }

func (nb *NodeBase) setErr(msg string) {
	if nb.err == "" {
		nb.err = msg
	}
}

// resetScratch clears the per-pass flags and the error of the node.
func (nb *NodeBase) resetScratch() {
	nb.resetGeneration()
	nb.err = ""
}

func (nb *NodeBase) resetGeneration() {
	nb.generated = false
	nb.generating = false
	nb.typing = false
	nb.referencing = false
	nb.typed = false
}

// appendVar appends the variable name of a declaring node: v<id>.
func appendVar(b []byte, id NodeID) []byte {
	b = append(b, 'v')
	return strconv.AppendUint(b, uint64(id), 10)
}
