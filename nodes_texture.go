package gshade

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/glbuild/glsllib"
)

const (
	defaultUV       = "v_uv"
	defaultNormal   = "v_normal"
	depthSampler    = "u_gbuffer_depth"
	maxFresnelPower = 64
)

// SampleNode samples a texture at the uv input or at the mesh texture coordinates
// if unconnected. Texture is the path of the texture bound by default to the slot.
type SampleNode struct {
	NodeBase
	Texture string
}

func (n *SampleNode) NumInputs(*Graph) int             { return 1 }
func (n *SampleNode) NumOutputs(*Graph) int            { return 1 }
func (n *SampleNode) OutputType(*Graph, int) ValueType { return TypeVec4 }

func (n *SampleNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	slot := c.textureSlot(n.Texture)
	b = append(b, "\tvec4 "...)
	b = appendVar(b, n.ID)
	b = append(b, " = texture("...)
	b = appendSampler(b, max(slot, 0))
	b = append(b, ", "...)
	b, ok := c.appendInputAs(b, n, 0, TypeVec2)
	if !ok {
		b = append(b, defaultUV...)
	}
	b = append(b, ");\n"...)
	if n.Texture == "" || slot < 0 {
		return b, errors.New("no texture set")
	}
	return b, nil
}

func (n *SampleNode) AppendRef(b []byte, _ *Compiler, _ int) []byte { return appendVar(b, n.ID) }

func (n *SampleNode) appendObjects(objs []object) []object {
	if n.Texture == "" {
		return objs
	}
	return append(objs, object{kind: objTexture, name: n.Texture})
}

func (n *SampleNode) appendPayload(b []byte) []byte {
	return appendString(b, n.Texture)
}

func (n *SampleNode) decodePayload(d *decoder) error {
	n.Texture = d.str()
	return d.err
}

// appendSampler appends the name of the sampler bound to a texture slot.
func appendSampler(b []byte, slot int) []byte {
	b = append(b, 't')
	return strconv.AppendInt(b, int64(slot), 10)
}

// SceneDepthNode reads the scene depth buffer at the uv input or at the fragment's screen position.
type SceneDepthNode struct {
	NodeBase
}

func (n *SceneDepthNode) NumInputs(*Graph) int             { return 1 }
func (n *SceneDepthNode) NumOutputs(*Graph) int            { return 1 }
func (n *SceneDepthNode) OutputType(*Graph, int) ValueType { return TypeFloat }

func (n *SceneDepthNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	b = append(b, "\tfloat "...)
	b = appendVar(b, n.ID)
	b = append(b, " = texture("+depthSampler+", "...)
	b, ok := c.appendInputAs(b, n, 0, TypeVec2)
	if !ok {
		b = append(b, shaderInputs[KindScreenPosition].expr...)
	}
	b = append(b, ").x;\n"...)
	return b, nil
}

func (n *SceneDepthNode) AppendRef(b []byte, _ *Compiler, _ int) []byte {
	return appendVar(b, n.ID)
}
func (n *SceneDepthNode) appendPayload(b []byte) []byte  { return b }
func (n *SceneDepthNode) decodePayload(d *decoder) error { return d.err }

// FresnelNode computes a fresnel term from the view direction and the normal input,
// defaulting to the mesh normal. The power input overrides the stored Power.
type FresnelNode struct {
	NodeBase
	Power float32
}

func (n *FresnelNode) NumInputs(*Graph) int             { return 2 }
func (n *FresnelNode) NumOutputs(*Graph) int            { return 1 }
func (n *FresnelNode) OutputType(*Graph, int) ValueType { return TypeFloat }

func (n *FresnelNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	b = append(b, "\tfloat "...)
	b = appendVar(b, n.ID)
	b = append(b, " = gshadeFresnel(normalize("...)
	b, ok := c.appendInputAs(b, n, 1, TypeVec3)
	if !ok {
		b = append(b, defaultNormal...)
	}
	b = append(b, "), normalize(Global.camera_pos.xyz - v_wpos), "...)
	b, ok = c.appendInputAs(b, n, 0, TypeFloat)
	if !ok {
		power := n.Power
		if !isFinite(power) {
			power = 0
		}
		b = glbuild.AppendFloat(b, '-', '.', ms1.Clamp(power, 0, maxFresnelPower))
	}
	b = append(b, ");\n"...)
	return b, nil
}

func (n *FresnelNode) AppendRef(b []byte, _ *Compiler, _ int) []byte { return appendVar(b, n.ID) }

func (n *FresnelNode) appendObjects(objs []object) []object {
	return append(objs, object{kind: objLibrary, lib: glsllib.Fresnel()})
}

func (n *FresnelNode) appendPayload(b []byte) []byte {
	return appendF32s(b, n.Power)
}

func (n *FresnelNode) decodePayload(d *decoder) error {
	n.Power = d.f32()
	return d.err
}

// NoiseNode computes value noise in [0,1] at the uv input scaled by Scale.
type NoiseNode struct {
	NodeBase
	Scale float32
}

func (n *NoiseNode) NumInputs(*Graph) int             { return 1 }
func (n *NoiseNode) NumOutputs(*Graph) int            { return 1 }
func (n *NoiseNode) OutputType(*Graph, int) ValueType { return TypeFloat }

func (n *NoiseNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	b = c.appendInputs(b, n)
	b = append(b, "\tfloat "...)
	b = appendVar(b, n.ID)
	b = append(b, " = gshadeNoise("...)
	b, ok := c.appendInputAs(b, n, 0, TypeVec2)
	if !ok {
		b = append(b, defaultUV...)
	}
	b = append(b, " * "...)
	scale := n.Scale
	if !isFinite(scale) {
		scale = 1
	}
	b = glbuild.AppendFloat(b, '-', '.', scale)
	b = append(b, ");\n"...)
	if scale != n.Scale {
		return b, errors.New("non-finite noise scale")
	}
	return b, nil
}

func (n *NoiseNode) AppendRef(b []byte, _ *Compiler, _ int) []byte { return appendVar(b, n.ID) }

func (n *NoiseNode) appendObjects(objs []object) []object {
	return append(objs, object{kind: objLibrary, lib: glsllib.Noise2D()})
}

func (n *NoiseNode) appendPayload(b []byte) []byte {
	return appendF32s(b, n.Scale)
}

func (n *NoiseNode) decodePayload(d *decoder) error {
	n.Scale = d.f32()
	return d.err
}

// ParticleStreamNode references a vertex stream of the particle mesh by index into
// the root's attribute layout. Only valid in particle graphs.
type ParticleStreamNode struct {
	NodeBase
	Stream int32
}

func (n *ParticleStreamNode) NumInputs(*Graph) int  { return 0 }
func (n *ParticleStreamNode) NumOutputs(*Graph) int { return 1 }

func (n *ParticleStreamNode) attribute(g *Graph) (VertexAttribute, error) {
	root, ok := g.Root().(*OutputNode)
	if !ok || !root.isParticle() {
		return VertexAttribute{}, errors.New("particle stream outside of particle shader")
	} else if n.Stream < 0 || int(n.Stream) >= len(root.Attributes) {
		return VertexAttribute{}, errors.Newf("stream %d out of range of %d attributes", n.Stream, len(root.Attributes))
	}
	return root.Attributes[n.Stream], nil
}

func (n *ParticleStreamNode) OutputType(g *Graph, _ int) ValueType {
	attr, err := n.attribute(g)
	if err != nil {
		return TypeFloat
	}
	return attr.Type
}

func (n *ParticleStreamNode) AppendCode(b []byte, c *Compiler) ([]byte, error) {
	_, err := n.attribute(c.g)
	return b, err
}

func (n *ParticleStreamNode) AppendRef(b []byte, c *Compiler, _ int) []byte {
	attr, err := n.attribute(c.g)
	if err != nil {
		return TypeFloat.AppendZero(b)
	}
	return glbuild.AppendIdent(b, "v_", attr.Name)
}

func (n *ParticleStreamNode) appendObjects(objs []object) []object {
	return append(objs, object{kind: objStream, index: int(n.Stream)})
}

func (n *ParticleStreamNode) appendPayload(b []byte) []byte {
	return appendU32(b, uint32(n.Stream))
}

func (n *ParticleStreamNode) decodePayload(d *decoder) error {
	n.Stream = d.i32()
	return d.err
}
