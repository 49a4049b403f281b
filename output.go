package gshade

import (
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/gshade/glbuild"
)

// Input pins of surface and particle output nodes.
const (
	PinAlbedo = iota
	PinAlpha
	PinNormal
	PinRoughness
	PinMetallic
	PinEmission
	PinAO
	PinTranslucency
	PinShadow
	PinWorldPosOffset
	numOutputFields
)

// outputFields are the semantic fields of the surface data struct written by output nodes.
var outputFields = [numOutputFields]struct {
	name  string
	typ   ValueType
	comps string
	def   string
}{
	PinAlbedo:         {"albedo", TypeVec3, "rgba", "vec3(1.0)"},
	PinAlpha:          {"alpha", TypeFloat, "xyzw", "1.0"},
	PinNormal:         {"normal", TypeVec3, "xyzw", "vec3(0.0, 0.0, 1.0)"},
	PinRoughness:      {"roughness", TypeFloat, "xyzw", "1.0"},
	PinMetallic:       {"metallic", TypeFloat, "xyzw", "0.0"},
	PinEmission:       {"emission", TypeVec3, "rgba", "vec3(0.0)"},
	PinAO:             {"ao", TypeFloat, "xyzw", "1.0"},
	PinTranslucency:   {"translucency", TypeFloat, "xyzw", "0.0"},
	PinShadow:         {"shadow", TypeFloat, "xyzw", "1.0"},
	PinWorldPosOffset: {"wpos_offset", TypeVec3, "xyzw", "vec3(0.0)"},
}

// OutputFieldName returns the name of the surface data field written through input pin of an output node.
func OutputFieldName(pin int) string {
	if pin < 0 || pin >= numOutputFields {
		return ""
	}
	return outputFields[pin].name
}

// VertexAttribute describes one vertex stream of the mesh rendered by a particle shader.
type VertexAttribute struct {
	Type ValueType
	Name string
}

// defaultAlphaThreshold is the discard threshold of new masked outputs.
const defaultAlphaThreshold = 0.5

// OutputNode is the root of surface and particle graphs. Each input pin
// feeds one field of the surface data struct consumed by the pipeline.
type OutputNode struct {
	NodeBase
	// Masked enables discarding fragments with alpha below AlphaThreshold.
	Masked         bool
	AlphaThreshold float32
	// Attributes is the vertex layout particle stream nodes index into.
	Attributes []VertexAttribute
}

func (n *OutputNode) NumInputs(*Graph) int                          { return numOutputFields }
func (n *OutputNode) NumOutputs(*Graph) int                         { return 0 }
func (n *OutputNode) OutputType(*Graph, int) ValueType              { return TypeNone }
func (n *OutputNode) AppendRef(b []byte, _ *Compiler, _ int) []byte { return b }

func (n *OutputNode) isParticle() bool { return n.Kind == KindParticle }

// AppendCode assembles the whole shader template: resource directives, the
// function preface, the particle vertex section and the fragment body.
func (n *OutputNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	c.collect(c.g)
	particle := n.isParticle()
	if particle {
		b = glbuild.AppendImportDirective(b, c.cfg.ParticleImport)
	} else {
		b = glbuild.AppendImportDirective(b, c.cfg.SurfaceImport)
	}
	for _, u := range c.uniforms {
		defaults := u.Value[:]
		if u.Type == "float" {
			defaults = u.Value[:1]
		}
		b = glbuild.AppendUniformDirective(b, u.Name, u.Type, defaults)
	}
	for _, def := range c.defines {
		b = glbuild.AppendDefineDirective(b, def)
	}
	for _, tex := range c.textures {
		b = glbuild.AppendTextureSlotDirective(b, textureSlotName(tex), tex)
	}
	if particle {
		b = append(b, "\nparticle_shader({\n"...)
	} else {
		b = append(b, "\nsurface_shader({\n"...)
	}

	b = append(b, "\tfragment_preface = [[\n"...)
	if particle {
		b = n.appendStreamDecls(b, c, "in ", "v_")
	}
	c.preface.start = len(b)
	b = c.appendPreface(b)
	c.preface.end = len(b)
	b = append(b, "\t]],\n"...)

	if particle {
		b = append(b, "\tvertex = [[\n"...)
		c.vertex.start = len(b)
		b = n.appendVertex(b, c)
		c.vertex.end = len(b)
		b = append(b, "\t]],\n"...)
	}

	b = append(b, "\tfragment = [[\n"...)
	c.fragment.start = len(b)
	b = c.appendInputs(b, n)
	for pin, f := range outputFields {
		b = append(b, "\tdata."...)
		b = append(b, f.name...)
		b = append(b, " = "...)
		var ok bool
		b, ok = c.appendInputComps(b, n, pin, f.typ, f.comps)
		if !ok {
			b = append(b, f.def...)
		}
		b = append(b, ";\n"...)
	}
	var err error
	if n.Masked {
		threshold := n.AlphaThreshold
		if !isFinite(threshold) {
			err = errors.Newf("non-finite alpha threshold %v", threshold)
			threshold = defaultAlphaThreshold
		}
		b = append(b, "\tif (data.alpha < "...)
		b = glbuild.AppendFloat(b, '-', '.', ms1.Clamp(threshold, 0, 1))
		b = append(b, ") discard;\n"...)
	}
	c.fragment.end = len(b)
	b = append(b, "\t]]\n})\n"...)
	return b, err
}

// appendStreamDecls appends one declaration per referenced particle stream.
func (n *OutputNode) appendStreamDecls(b []byte, c *Compiler, qualifier, prefix string) []byte {
	for _, idx := range c.streams {
		if idx < 0 || idx >= len(n.Attributes) {
			continue // Reported by the stream node.
		}
		attr := n.Attributes[idx]
		b = append(b, qualifier...)
		b = append(b, attr.Type.GLSL()...)
		b = append(b, ' ')
		b = glbuild.AppendIdent(b, prefix, attr.Name)
		b = append(b, ";\n"...)
	}
	return b
}

// appendVertex appends the particle vertex section: a located input and an output
// per referenced stream and a function copying inputs to outputs.
func (n *OutputNode) appendVertex(b []byte, c *Compiler) []byte {
	var name []byte
	for _, idx := range c.streams {
		if idx < 0 || idx >= len(n.Attributes) {
			continue
		}
		attr := n.Attributes[idx]
		name = glbuild.AppendIdent(name[:0], "i_", attr.Name)
		b = glbuild.AppendLocationDecl(b, idx, "in", glbuild.Variable{Type: attr.Type.GLSL(), Name: string(name)})
	}
	b = n.appendStreamDecls(b, c, "out ", "v_")
	b = append(b, "void gshade_streams() {\n"...)
	for _, idx := range c.streams {
		if idx < 0 || idx >= len(n.Attributes) {
			continue
		}
		attr := n.Attributes[idx]
		b = append(b, '\t')
		b = glbuild.AppendIdent(b, "v_", attr.Name)
		b = append(b, " = "...)
		b = glbuild.AppendIdent(b, "i_", attr.Name)
		b = append(b, ";\n"...)
	}
	return append(b, "}\n"...)
}

func (n *OutputNode) appendPayload(b []byte) []byte {
	var masked byte
	if n.Masked {
		masked = 1
	}
	b = append(b, masked)
	b = appendF32s(b, n.AlphaThreshold)
	b = appendU32(b, uint32(len(n.Attributes)))
	for _, attr := range n.Attributes {
		b = append(b, byte(attr.Type))
		b = appendString(b, attr.Name)
	}
	return b
}

func (n *OutputNode) decodePayload(d *decoder) error {
	n.Masked = d.u8() != 0
	n.AlphaThreshold = d.f32()
	count := d.count(5)
	n.Attributes = n.Attributes[:0]
	for i := 0; i < count && d.err == nil; i++ {
		var attr VertexAttribute
		attr.Type = ValueType(d.u8())
		attr.Name = d.str()
		if d.err == nil && !attr.Type.Valid() {
			return errors.Newf("invalid attribute type %d", attr.Type)
		}
		n.Attributes = append(n.Attributes, attr)
	}
	return d.err
}

// textureSlotName returns the slot name of a texture: its file name without extension.
func textureSlotName(texturePath string) string {
	base := path.Base(strings.ReplaceAll(texturePath, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// FunctionOutputNode is the root of function graphs. Its single input is the
// function's return value and its parameters are the graph's function input nodes.
type FunctionOutputNode struct {
	NodeBase
}

func (n *FunctionOutputNode) NumInputs(*Graph) int  { return 1 }
func (n *FunctionOutputNode) NumOutputs(*Graph) int { return 0 }

// OutputType returns the return type of the function.
func (n *FunctionOutputNode) OutputType(g *Graph, _ int) ValueType {
	return g.inputTypeOr(n.ID, 0, TypeFloat)
}

func (n *FunctionOutputNode) AppendRef(b []byte, _ *Compiler, _ int) []byte { return b }
func (n *FunctionOutputNode) appendPayload(b []byte) []byte                 { return b }
func (n *FunctionOutputNode) decodePayload(d *decoder) error                { return d.err }

// AppendCode appends the function definition. When the function graph is compiled
// on its own the helpers and functions it calls are emitted ahead of it.
func (n *FunctionOutputNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	g := c.g
	if g == c.top {
		c.collect(g)
		c.preface.start = len(b)
		b = c.appendPreface(b)
		c.preface.end = len(b)
		c.fragment.start = len(b)
	}
	ret := n.OutputType(g, 0)
	b = append(b, ret.GLSL()...)
	b = append(b, ' ')
	b = appendFuncName(b, g.Path)
	b = append(b, '(')
	params := 0
	for _, node := range g.Nodes {
		in, ok := node.(*FunctionInputNode)
		if !ok {
			continue
		}
		if params > 0 {
			b = append(b, ", "...)
		}
		b = append(b, in.Type.GLSL()...)
		b = append(b, ' ')
		b = in.appendParamName(b)
		params++
	}
	b = append(b, ") {\n"...)
	b = c.appendInputs(b, n)
	b = append(b, "\treturn "...)
	b, ok := c.appendInputAs(b, n, 0, ret)
	if !ok {
		b = ret.AppendZero(b)
	}
	b = append(b, ";\n}\n"...)
	if g == c.top {
		c.fragment.end = len(b)
	}
	if !ok {
		return b, errMissingInput("value")
	}
	return b, nil
}

// appendFuncName appends the GLSL name of the function graph at path.
func appendFuncName(b []byte, graphPath string) []byte {
	graphPath = strings.TrimSuffix(graphPath, path.Ext(graphPath))
	return glbuild.AppendIdent(b, "fn_", graphPath)
}
