package gshade

import (
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade/glbuild"
)

const (
	defaultSurfaceImport  = "pipelines/surface_base.inc"
	defaultParticleImport = "pipelines/particle_base.inc"
	errMsgCycle           = "cycle detected"
)

// CompilerConfig configures the text emitted by a [Compiler].
type CompilerConfig struct {
	// SurfaceImport is the engine include imported by surface shaders.
	SurfaceImport string
	// ParticleImport is the engine include imported by particle shaders.
	ParticleImport string
}

// NodeError is an error recorded on a node during compilation.
type NodeError struct {
	// Graph is the path of the graph containing the node. Empty for the compiled graph when it has no path.
	Graph string
	Node  NodeID
	Kind  NodeKind
	Msg   string
}

func (ne NodeError) Error() string {
	b := make([]byte, 0, 64)
	if ne.Graph != "" {
		b = append(b, ne.Graph...)
		b = append(b, ':')
	}
	b = append(b, ne.Kind.String()...)
	b = append(b, " node "...)
	b = strconv.AppendUint(b, uint64(ne.Node), 10)
	b = append(b, ": "...)
	b = append(b, ne.Msg...)
	return string(b)
}

// Uniform is a named material parameter exposed by the shader.
type Uniform struct {
	Name string
	// Type is the directive type: "float", "vec4" or "color".
	Type  string
	Value [4]float32
}

// GLSL returns the GLSL type of the uniform.
func (u Uniform) GLSL() string {
	if u.Type == "float" {
		return "float"
	}
	return "vec4"
}

// VarName returns the identifier by which generated code references the uniform.
func (u Uniform) VarName() string {
	return string(glbuild.AppendIdent(nil, "u_", u.Name))
}

// Result is the output of a compile pass.
type Result struct {
	// Root is the kind of the compiled graph's root node.
	Root NodeKind
	// Source is the complete generated text.
	Source []byte
	// Errors holds the errors of reachable nodes, including nodes of referenced function graphs.
	Errors    []NodeError
	Uniforms  []Uniform
	Defines   []string
	Textures  []string
	Functions []string
	Streams   []int
	// Attributes is the particle vertex layout of particle graphs.
	Attributes []VertexAttribute
	// Preface holds helper and function graph definitions.
	Preface []byte
	// Vertex holds the vertex stage text of particle graphs.
	Vertex []byte
	// Fragment holds body statements and output assignments.
	Fragment []byte
}

// Valid reports whether no reachable node holds an error.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

type objectKind uint8

const (
	objUniform objectKind = iota
	objDefine
	objTexture
	objFunction
	objStream
	objLibrary
)

// object is a whole-graph resource referenced by a node. Objects are collected by
// the root before generation and emitted once per program.
type object struct {
	kind  objectKind
	name  string
	typ   string
	value [4]float32
	index int
	lib   glbuild.ShaderObject
}

// objectUser is implemented by nodes that reference whole-graph resources.
type objectUser interface {
	appendObjects(objs []object) []object
}

type section struct{ start, end int }

// Compiler generates shader source from graphs. A Compiler may be reused
// between compiles but is not safe for concurrent use.
type Compiler struct {
	cfg CompilerConfig
	// top is the graph passed to Compile.
	top *Graph
	// g is the graph currently being generated.
	g *Graph

	uniforms  []Uniform
	defines   []string
	textures  []string
	functions []*Graph
	streams   []int
	lib       glbuild.FunctionSet
	funcStack []*Graph
	errs      []NodeError

	preface, vertex, fragment section
	scratch                   []byte
}

// NewCompiler returns a compiler. Zero value fields of cfg take default values.
func NewCompiler(cfg CompilerConfig) *Compiler {
	if cfg.SurfaceImport == "" {
		cfg.SurfaceImport = defaultSurfaceImport
	}
	if cfg.ParticleImport == "" {
		cfg.ParticleImport = defaultParticleImport
	}
	return &Compiler{
		cfg:     cfg,
		scratch: make([]byte, 0, 4096),
	}
}

// Compile generates the shader source of g. Per-node failures do not abort
// compilation and are reported in the result's Errors. The returned error is
// non-nil only for structural problems with the graph.
func (c *Compiler) Compile(g *Graph) (*Result, error) {
	if g == nil {
		return nil, errors.New("nil graph")
	}
	root := g.Root()
	if root == nil {
		return nil, errors.Wrap(ErrRootNode, "empty graph")
	} else if !root.Base().Kind.IsRoot() {
		return nil, errors.Wrapf(ErrRootNode, "node at index 0 is %s", root.Base().Kind)
	}
	c.reset(g)
	MarkReachable(g)
	g.resetScratch()
	g.memoTypes = true

	b := c.appendOnce(c.scratch[:0], root)
	c.scratch = b
	c.appendGraphErrors(g)

	res := &Result{
		Root:      root.Base().Kind,
		Source:    slices.Clone(b),
		Errors:    slices.Clone(c.errs),
		Uniforms:  slices.Clone(c.uniforms),
		Defines:   slices.Clone(c.defines),
		Textures:  slices.Clone(c.textures),
		Streams:   slices.Clone(c.streams),
		Preface:   c.preface.slice(b),
		Vertex:    c.vertex.slice(b),
		Fragment:  c.fragment.slice(b),
		Functions: make([]string, len(c.functions)),
	}
	for i, fg := range c.functions {
		res.Functions[i] = fg.Path
	}
	if out, ok := root.(*OutputNode); ok {
		res.Attributes = slices.Clone(out.Attributes)
	}
	g.memoTypes = false
	for _, fg := range c.functions {
		fg.memoTypes = false
	}
	c.g = nil
	c.top = nil
	return res, nil
}

func (s section) slice(b []byte) []byte {
	if s.end <= s.start || s.end > len(b) {
		return nil
	}
	return slices.Clone(b[s.start:s.end])
}

func (c *Compiler) reset(g *Graph) {
	c.top = g
	c.g = g
	c.uniforms = c.uniforms[:0]
	c.defines = c.defines[:0]
	c.textures = c.textures[:0]
	c.functions = c.functions[:0]
	c.streams = c.streams[:0]
	c.funcStack = c.funcStack[:0]
	c.errs = c.errs[:0]
	c.lib.Reset()
	c.preface = section{}
	c.vertex = section{}
	c.fragment = section{}
}

// appendOnce generates n at most once per pass. The generated flag is set before
// recursing into inputs so shared ancestors are emitted once. A node requested
// again while its own inputs are being generated is part of a cycle.
func (c *Compiler) appendOnce(b []byte, n Node) []byte {
	nb := n.Base()
	if nb.generating {
		nb.setErr(errMsgCycle)
		return b
	} else if nb.generated {
		return b
	}
	nb.generated = true
	nb.generating = true
	b, err := n.AppendCode(b, c)
	nb.generating = false
	if err != nil {
		nb.setErr(err.Error())
	}
	return b
}

// appendInputs generates the source node of every connected input of n.
func (c *Compiler) appendInputs(b []byte, n Node) []byte {
	id := n.Base().ID
	for pin := 0; pin < n.NumInputs(c.g); pin++ {
		src, _, ok := c.g.ResolveInput(id, pin)
		if ok {
			b = c.appendOnce(b, src)
		}
	}
	return b
}

// appendInputRef appends the reference expression of the value connected to the
// input pin of n. ok is false and nothing is appended if the pin is unconnected.
func (c *Compiler) appendInputRef(b []byte, n Node, pin int) (_ []byte, ok bool) {
	src, out, ok := c.g.ResolveInput(n.Base().ID, pin)
	if !ok {
		return b, false
	}
	sb := src.Base()
	if sb.referencing {
		sb.setErr(errMsgCycle)
		return TypeFloat.AppendZero(b), true
	}
	sb.referencing = true
	b = src.AppendRef(b, c, out)
	sb.referencing = false
	return b, true
}

// appendInputAs appends the input's reference expression converted to type dst.
// Scalars are widened with a constructor, vectors are converted with a swizzle.
func (c *Compiler) appendInputAs(b []byte, n Node, pin int, dst ValueType) (_ []byte, ok bool) {
	return c.appendInputComps(b, n, pin, dst, "xyzw")
}

func (c *Compiler) appendInputComps(b []byte, n Node, pin int, dst ValueType, comps string) (_ []byte, ok bool) {
	src, ok := c.g.InputType(n.Base().ID, pin)
	if !ok {
		return b, false
	}
	if src.IsScalar() && !dst.IsScalar() {
		b = append(b, dst.GLSL()...)
		b = append(b, '(')
		b, _ = c.appendInputRef(b, n, pin)
		return append(b, ')'), true
	}
	b, _ = c.appendInputRef(b, n, pin)
	b = glbuild.AppendSwizzleCast(b, dst.ChannelCount(), src.ChannelCount(), comps)
	return b, true
}

// appendInputOrZero appends the input converted to dst or the zero literal of dst if unconnected.
func (c *Compiler) appendInputOrZero(b []byte, n Node, pin int, dst ValueType) (_ []byte, ok bool) {
	b, ok = c.appendInputAs(b, n, pin, dst)
	if !ok {
		b = dst.AppendZero(b)
	}
	return b, ok
}

func (c *Compiler) inputType(n Node, pin int) (ValueType, bool) {
	return c.g.InputType(n.Base().ID, pin)
}

func (c *Compiler) isConnected(n Node, pin int) bool {
	return c.g.IsInputConnected(n.Base().ID, pin)
}

// textureSlot returns the slot index of a collected texture or -1.
func (c *Compiler) textureSlot(path string) int {
	return slices.Index(c.textures, path)
}

// collect gathers the objects of every reachable node of g in first-seen order.
// Function graphs are collected depth first so callees precede their callers.
func (c *Compiler) collect(g *Graph) {
	var buf [4]object
	for _, n := range g.Nodes {
		if !n.Base().reachable {
			continue
		}
		user, ok := n.(objectUser)
		if !ok {
			continue
		}
		for _, obj := range user.appendObjects(buf[:0]) {
			c.addObject(g, n, obj)
		}
	}
}

func (c *Compiler) addObject(g *Graph, n Node, obj object) {
	nb := n.Base()
	switch obj.kind {
	case objUniform:
		uni := Uniform{Name: obj.name, Type: obj.typ, Value: obj.value}
		ident := uni.VarName()
		for _, u := range c.uniforms {
			// Distinct names may sanitize to the same identifier.
			if u.VarName() != ident {
				continue
			}
			if u.Name != obj.name {
				nb.setErr("uniform " + strconv.Quote(obj.name) + " collides with " + strconv.Quote(u.Name) + " as " + ident)
			} else if u.Type != obj.typ {
				nb.setErr("uniform " + strconv.Quote(obj.name) + " already declared as " + u.Type)
			}
			return
		}
		c.uniforms = append(c.uniforms, uni)
	case objDefine:
		if !slices.Contains(c.defines, obj.name) {
			c.defines = append(c.defines, obj.name)
		}
	case objTexture:
		if !slices.Contains(c.textures, obj.name) {
			c.textures = append(c.textures, obj.name)
		}
	case objStream:
		if !slices.Contains(c.streams, obj.index) {
			c.streams = append(c.streams, obj.index)
		}
	case objLibrary:
		_, err := c.lib.Add(obj.lib)
		if err != nil {
			nb.setErr(err.Error())
		}
	case objFunction:
		callee := resolveFunction(g, obj.name)
		if callee == nil || slices.Contains(c.functions, callee) {
			return // Unresolved callees fail during generation.
		} else if slices.Contains(c.funcStack, callee) || callee == c.top {
			nb.setErr("recursive call of function " + strconv.Quote(obj.name))
			return
		}
		c.funcStack = append(c.funcStack, callee)
		callee.resetScratch()
		callee.memoTypes = true
		MarkReachable(callee)
		c.collect(callee)
		c.funcStack = c.funcStack[:len(c.funcStack)-1]
		c.functions = append(c.functions, callee)
	}
}

// appendPreface appends library helpers followed by the definitions of every
// referenced function graph. Function bodies are always generated fresh.
func (c *Compiler) appendPreface(b []byte) []byte {
	b = c.lib.AppendSources(b)
	for _, fg := range c.functions {
		b = c.appendFunction(b, fg)
	}
	return b
}

func (c *Compiler) appendFunction(b []byte, fg *Graph) []byte {
	prev := c.g
	c.g = fg
	fg.resetGeneration()
	b = c.appendOnce(b, fg.Root())
	c.appendGraphErrors(fg)
	c.g = prev
	return b
}

func (c *Compiler) appendGraphErrors(g *Graph) {
	for _, n := range g.Nodes {
		nb := n.Base()
		if nb.reachable && nb.err != "" {
			c.errs = append(c.errs, NodeError{Graph: g.Path, Node: nb.ID, Kind: nb.Kind, Msg: nb.err})
		}
	}
}

func errMissingInput(name string) error {
	return errors.Newf("missing input %q", name)
}
