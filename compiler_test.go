package gshade_test

import (
	"bytes"
	"math"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/soypat/gshade"
)

// resolver is a map based function resolver.
type resolver map[string]*gshade.Graph

func (r resolver) Function(path string) *gshade.Graph { return r[path] }

func compile(t *testing.T, g *gshade.Graph) *gshade.Result {
	t.Helper()
	res, err := gshade.NewCompiler(gshade.CompilerConfig{}).Compile(g)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func compileValid(t *testing.T, g *gshade.Graph) *gshade.Result {
	t.Helper()
	res := compile(t, g)
	if !res.Valid() {
		t.Fatalf("unexpected node errors %v\n%s", res.Errors, res.Source)
	}
	return res
}

func hasErrorContaining(res *gshade.Result, substr string) bool {
	for _, ne := range res.Errors {
		if strings.Contains(ne.Msg, substr) {
			return true
		}
	}
	return false
}

func TestCompileRoughnessScenario(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	connect(t, g, number(t, g, 0.5), 0, g.Root(), gshade.PinRoughness)
	res := compileValid(t, g)
	const want = "\tdata.albedo = vec3(1.0);\n" +
		"\tdata.alpha = 1.0;\n" +
		"\tdata.normal = vec3(0.0, 0.0, 1.0);\n" +
		"\tdata.roughness = 0.5;\n" +
		"\tdata.metallic = 0.0;\n" +
		"\tdata.emission = vec3(0.0);\n" +
		"\tdata.ao = 1.0;\n" +
		"\tdata.translucency = 0.0;\n" +
		"\tdata.shadow = 1.0;\n" +
		"\tdata.wpos_offset = vec3(0.0);\n"
	if string(res.Fragment) != want {
		t.Errorf("fragment mismatch, want\n%s\ngot\n%s", want, res.Fragment)
	}
	src := string(res.Source)
	if !strings.HasPrefix(src, "import \"pipelines/surface_base.inc\"\n") {
		t.Errorf("missing import directive\n%s", src)
	}
	if !strings.Contains(src, "surface_shader({\n") || !strings.HasSuffix(src, "\t]]\n})\n") {
		t.Errorf("bad template\n%s", src)
	}
	if len(res.Uniforms)+len(res.Defines)+len(res.Textures)+len(res.Functions) != 0 {
		t.Error("unexpected resources in result")
	}
}

func TestCompileIdempotent(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	root := g.Root()
	tex := addNode(t, g, gshade.KindSample).(*gshade.SampleNode)
	tex.Texture = "textures/albedo.png"
	noise := addNode(t, g, gshade.KindNoise)
	param := addNode(t, g, gshade.KindScalarParam).(*gshade.ParamNode)
	param.Name = "Detail"
	mul := addNode(t, g, gshade.KindOperator).(*gshade.OperatorNode)
	mul.Op = gshade.OpMul
	connect(t, g, tex, 0, mul, 0)
	connect(t, g, noise, 0, mul, 1)
	connect(t, g, mul, 0, root, gshade.PinAlbedo)
	connect(t, g, param, 0, root, gshade.PinRoughness)

	c := gshade.NewCompiler(gshade.CompilerConfig{})
	first, err := c.Compile(g)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Compile(g)
	if err != nil {
		t.Fatal(err)
	}
	third := compile(t, g)
	if !bytes.Equal(first.Source, second.Source) || !bytes.Equal(first.Source, third.Source) {
		t.Errorf("compilation not idempotent:\n%s\n---\n%s", first.Source, second.Source)
	}
	if !first.Valid() {
		t.Error(first.Errors)
	}
}

func TestCompileEmitsOnce(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	root := g.Root()
	sin := addNode(t, g, gshade.KindBuiltin).(*gshade.BuiltinNode)
	sin.Func = gshade.FuncSin
	time := addNode(t, g, gshade.KindTime)
	connect(t, g, time, 0, sin, 0)
	for _, pin := range []int{gshade.PinAlbedo, gshade.PinRoughness, gshade.PinMetallic, gshade.PinAO} {
		connect(t, g, sin, 0, root, pin)
	}
	res := compileValid(t, g)
	src := string(res.Source)
	decl := "float v" + itoa(sin.ID) + " = sin(Global.time);"
	if n := strings.Count(src, decl); n != 1 {
		t.Errorf("want one declaration %q, got %d\n%s", decl, n, src)
	}
	if !strings.Contains(src, "data.albedo = vec3(v"+itoa(sin.ID)+");") {
		t.Errorf("scalar not widened with constructor\n%s", src)
	}
	declAt := strings.Index(src, decl)
	useAt := strings.Index(src, "data.albedo")
	if declAt < 0 || declAt > useAt {
		t.Error("declaration not emitted before use")
	}
}

func TestCompileUnreachableNotEmitted(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	used := addNode(t, g, gshade.KindFresnel)
	unused := addNode(t, g, gshade.KindNoise)
	connect(t, g, used, 0, g.Root(), gshade.PinEmission)
	res := compileValid(t, g)
	src := string(res.Source)
	if strings.Contains(src, "v"+itoa(unused.Base().ID)+" =") || strings.Contains(src, "gshadeNoise") {
		t.Errorf("unreachable node emitted\n%s", src)
	}
	if !strings.Contains(string(res.Preface), "float gshadeFresnel(") {
		t.Errorf("missing fresnel helper in preface\n%s", res.Preface)
	}
	if !strings.Contains(src, "data.emission = vec3(v"+itoa(used.Base().ID)+");") {
		t.Errorf("bad emission assignment\n%s", src)
	}
}

func TestCompileOperatorDefault(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	op := addNode(t, g, gshade.KindOperator).(*gshade.OperatorNode)
	op.Op = gshade.OpMul
	op.Value = 3
	connect(t, g, number(t, g, 2), 0, op, 0)
	connect(t, g, op, 0, g.Root(), gshade.PinRoughness)
	res := compileValid(t, g)
	if !strings.Contains(string(res.Fragment), "\tdata.roughness = (2.0 * 3.0);\n") {
		t.Errorf("missing operand not defaulted to literal\n%s", res.Fragment)
	}
}

func TestCompileOperatorWidening(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	vec := addNode(t, g, gshade.KindVec3).(*gshade.ConstantNode)
	vec.Value = [4]float32{1, 2, 3}
	op := addNode(t, g, gshade.KindOperator).(*gshade.OperatorNode)
	op.Op = gshade.OpAdd
	connect(t, g, vec, 0, op, 0)
	connect(t, g, number(t, g, 2), 0, op, 1)
	connect(t, g, op, 0, g.Root(), gshade.PinAlbedo)
	connect(t, g, op, 0, g.Root(), gshade.PinAlpha)
	res := compileValid(t, g)
	frag := string(res.Fragment)
	if !strings.Contains(frag, "data.albedo = (vec3(1.0,2.0,3.0) + vec3(2.0));") {
		t.Errorf("bad widening\n%s", frag)
	}
	if !strings.Contains(frag, "data.alpha = (vec3(1.0,2.0,3.0) + vec3(2.0)).x;") {
		t.Errorf("bad narrowing\n%s", frag)
	}
}

func TestCompileDeepDiamond(t *testing.T) {
	// Each level reads the previous one twice. Type inference must stay linear.
	const depth = 48
	g := newTestGraph(t, gshade.KindSurface)
	var prev gshade.Node = number(t, g, 0.5)
	for i := 0; i < depth; i++ {
		op := addNode(t, g, gshade.KindOperator).(*gshade.OperatorNode)
		op.Op = gshade.OpAdd
		connect(t, g, prev, 0, op, 0)
		connect(t, g, prev, 0, op, 1)
		abs := addNode(t, g, gshade.KindBuiltin).(*gshade.BuiltinNode)
		abs.Func = gshade.FuncAbs
		connect(t, g, op, 0, abs, 0)
		prev = abs
	}
	connect(t, g, prev, 0, g.Root(), gshade.PinRoughness)
	res := compileValid(t, g)
	if n := strings.Count(string(res.Source), " = abs("); n != depth {
		t.Errorf("want %d abs declarations, got %d", depth, n)
	}
}

func TestCompileSampleDefaultUV(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	tex := addNode(t, g, gshade.KindSample).(*gshade.SampleNode)
	tex.Texture = "textures/rock_albedo.png"
	connect(t, g, tex, 0, g.Root(), gshade.PinAlbedo)
	res := compileValid(t, g)
	src := string(res.Source)
	v := "v" + itoa(tex.ID)
	for _, want := range []string{
		"texture_slot({ name = \"rock_albedo\", default_texture = \"textures/rock_albedo.png\" })\n",
		"\tvec4 " + v + " = texture(t0, v_uv);\n",
		"\tdata.albedo = " + v + ".rgb;\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q\n%s", want, src)
		}
	}
	if !slices.Equal(res.Textures, []string{"textures/rock_albedo.png"}) {
		t.Errorf("textures %v", res.Textures)
	}

	tex.Texture = ""
	res = compile(t, g)
	if res.Valid() || !hasErrorContaining(res, "no texture") {
		t.Errorf("expected texture error, got %v", res.Errors)
	}
}

func TestCompileCycleDetected(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	a := addNode(t, g, gshade.KindOperator)
	b := addNode(t, g, gshade.KindOperator)
	connect(t, g, a, 0, b, 0)
	connect(t, g, b, 0, a, 0)
	connect(t, g, a, 0, g.Root(), gshade.PinRoughness)
	res := compile(t, g)
	if res.Valid() || !hasErrorContaining(res, "cycle detected") {
		t.Errorf("expected cycle error, got %v", res.Errors)
	}
	if !strings.Contains(string(res.Source), "surface_shader({") {
		t.Error("template not emitted for cyclic graph")
	}
}

func TestCompileNodeErrorsAreLocal(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	root := g.Root()
	broken := addNode(t, g, gshade.KindBuiltin).(*gshade.BuiltinNode)
	broken.Func = gshade.FuncPow
	connect(t, g, number(t, g, 2), 0, broken, 0)
	connect(t, g, broken, 0, root, gshade.PinMetallic)
	connect(t, g, number(t, g, 0.25), 0, root, gshade.PinRoughness)
	swz := addNode(t, g, gshade.KindSwizzle).(*gshade.SwizzleNode)
	swz.Swizzle = "xw"
	vec := addNode(t, g, gshade.KindVec2)
	connect(t, g, vec, 0, swz, 0)
	connect(t, g, swz, 0, root, gshade.PinNormal)

	res := compile(t, g)
	if len(res.Errors) != 2 {
		t.Fatalf("want 2 node errors, got %v", res.Errors)
	}
	got := map[gshade.NodeID]string{}
	for _, ne := range res.Errors {
		got[ne.Node] = ne.Msg
	}
	if !strings.Contains(got[broken.ID], "missing input") {
		t.Errorf("builtin error %q", got[broken.ID])
	}
	if !strings.Contains(got[swz.ID], "invalid swizzle") {
		t.Errorf("swizzle error %q", got[swz.ID])
	}
	if !strings.Contains(string(res.Fragment), "data.roughness = 0.25;") {
		t.Error("sibling branch not generated")
	}
	for _, ne := range res.Errors {
		if ne.Error() == "" {
			t.Error("empty error string")
		}
	}
}

func TestCompileResources(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	root := g.Root()
	rough := addNode(t, g, gshade.KindScalarParam).(*gshade.ParamNode)
	rough.Name = "Roughness"
	rough.Value[0] = 0.25
	rough2 := addNode(t, g, gshade.KindScalarParam).(*gshade.ParamNode)
	rough2.Name = "Roughness"
	tint := addNode(t, g, gshade.KindColorParam).(*gshade.ParamNode)
	tint.Name = "Tint"
	tint.Value = [4]float32{1, 0.5, 0, 1}
	sw := addNode(t, g, gshade.KindStaticSwitch).(*gshade.StaticSwitchNode)
	sw.Define = "USE_DETAIL"
	connect(t, g, number(t, g, 1), 0, sw, 0)
	connect(t, g, number(t, g, 0), 0, sw, 1)
	mul := addNode(t, g, gshade.KindOperator).(*gshade.OperatorNode)
	mul.Op = gshade.OpMul
	connect(t, g, rough, 0, mul, 0)
	connect(t, g, rough2, 0, mul, 1)
	connect(t, g, mul, 0, root, gshade.PinRoughness)
	connect(t, g, tint, 0, root, gshade.PinAlbedo)
	connect(t, g, sw, 0, root, gshade.PinMetallic)

	res := compileValid(t, g)
	src := string(res.Source)
	v := "v" + itoa(sw.ID)
	for _, want := range []string{
		"uniform(\"Roughness\", \"float\", 0.25)\n",
		"uniform(\"Tint\", \"color\", {1.0,0.5,0.0,1.0})\n",
		"define(\"USE_DETAIL\")\n",
		"#ifdef USE_DETAIL\n\tfloat " + v + " = 1.0;\n#else\n\tfloat " + v + " = 0.0;\n#endif\n",
		"\tdata.roughness = (u_roughness * u_roughness);\n",
		"\tdata.albedo = u_tint.rgb;\n",
		"\tdata.metallic = " + v + ";\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q\n%s", want, src)
		}
	}
	if n := strings.Count(src, "uniform(\"Roughness\""); n != 1 {
		t.Errorf("want one roughness uniform, got %d", n)
	}
	if len(res.Uniforms) != 2 || res.Uniforms[0].Name != "Roughness" || res.Uniforms[1].VarName() != "u_tint" {
		t.Errorf("uniforms %+v", res.Uniforms)
	}
	if !slices.Equal(res.Defines, []string{"USE_DETAIL"}) {
		t.Errorf("defines %v", res.Defines)
	}

	// Same uniform name with different type.
	clash := addNode(t, g, gshade.KindVec4Param).(*gshade.ParamNode)
	clash.Name = "Roughness"
	connect(t, g, clash, 0, root, gshade.PinEmission)
	res = compile(t, g)
	if !hasErrorContaining(res, "already declared") {
		t.Errorf("expected uniform redeclaration error, got %v", res.Errors)
	}
}

func TestCompileUniformIdentCollision(t *testing.T) {
	for _, names := range [][2]string{
		{"Gloss", "gloss"},
		{"a b", "a_b"},
	} {
		g := newTestGraph(t, gshade.KindSurface)
		first := addNode(t, g, gshade.KindScalarParam).(*gshade.ParamNode)
		first.Name = names[0]
		second := addNode(t, g, gshade.KindScalarParam).(*gshade.ParamNode)
		second.Name = names[1]
		connect(t, g, first, 0, g.Root(), gshade.PinRoughness)
		connect(t, g, second, 0, g.Root(), gshade.PinMetallic)
		res := compile(t, g)
		if len(res.Uniforms) != 1 || res.Uniforms[0].Name != names[0] {
			t.Errorf("%q: want only first uniform declared, got %+v", names, res.Uniforms)
		}
		if n := strings.Count(string(res.Source), "uniform("); n != 1 {
			t.Errorf("%q: want one uniform directive, got %d", names, n)
		}
		if res.Valid() || res.Errors[0].Node != second.ID || !hasErrorContaining(res, "collides with") {
			t.Errorf("%q: expected collision error on second param, got %v", names, res.Errors)
		}
	}
}

func TestCompileControlFlow(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	root := g.Root()
	cond := addNode(t, g, gshade.KindIf)
	connect(t, g, addNode(t, g, gshade.KindPixelDepth), 0, cond, gshade.PinIfA)
	connect(t, g, number(t, g, 0.5), 0, cond, gshade.PinIfB)
	connect(t, g, number(t, g, 1), 0, cond, gshade.PinIfGreater)
	connect(t, g, number(t, g, 0), 0, cond, gshade.PinIfLess)
	connect(t, g, cond, 0, root, gshade.PinAO)

	face := addNode(t, g, gshade.KindBackfaceSwitch)
	connect(t, g, addNode(t, g, gshade.KindNormal), 0, face, 0)
	oneMinus := addNode(t, g, gshade.KindOneMinus)
	connect(t, g, addNode(t, g, gshade.KindNormal), 0, oneMinus, 0)
	connect(t, g, oneMinus, 0, face, 1)
	connect(t, g, face, 0, root, gshade.PinNormal)

	res := compileValid(t, g)
	src := string(res.Source)
	vc, vf := "v"+itoa(cond.Base().ID), "v"+itoa(face.Base().ID)
	for _, want := range []string{
		"\tfloat " + vc + " = 0.0;\n",
		"\tif (gl_FragCoord.z > 0.5) " + vc + " = 1.0;\n",
		"\tif (gl_FragCoord.z < 0.5) " + vc + " = 0.0;\n",
		"\tvec3 " + vf + " = vec3(0.0);\n",
		"\tif (gl_FrontFacing) " + vf + " = v_normal;\n",
		"\telse " + vf + " = (vec3(1.0) - v_normal);\n",
		"\tdata.ao = " + vc + ";\n",
		"\tdata.normal = " + vf + ";\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q\n%s", want, src)
		}
	}
	if strings.Contains(src, " == ") {
		t.Error("unconnected equal branch emitted")
	}
}

func TestCompileAppendSwizzle(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	uv := addNode(t, g, gshade.KindUV0)
	app := addNode(t, g, gshade.KindAppend)
	connect(t, g, uv, 0, app, 0)
	connect(t, g, number(t, g, 1), 0, app, 1)
	swz := addNode(t, g, gshade.KindSwizzle).(*gshade.SwizzleNode)
	swz.Swizzle = "zyx"
	connect(t, g, app, 0, swz, 0)
	connect(t, g, swz, 0, g.Root(), gshade.PinEmission)
	res := compileValid(t, g)
	want := "\tdata.emission = vec3(v_uv, 1.0).zyx;\n"
	if !strings.Contains(string(res.Fragment), want) {
		t.Errorf("missing %q\n%s", want, res.Fragment)
	}
}

func TestCompileMasked(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	out := g.Root().(*gshade.OutputNode)
	out.Masked = true
	out.AlphaThreshold = 0.25
	res := compileValid(t, g)
	if !strings.HasSuffix(string(res.Fragment), "\tif (data.alpha < 0.25) discard;\n") {
		t.Errorf("missing discard\n%s", res.Fragment)
	}
	out.AlphaThreshold = 4
	res = compileValid(t, g)
	if !strings.Contains(string(res.Fragment), "data.alpha < 1.0)") {
		t.Errorf("threshold not clamped\n%s", res.Fragment)
	}
	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1))} {
		out.AlphaThreshold = bad
		res = compile(t, g)
		if res.Valid() || !hasErrorContaining(res, "non-finite alpha threshold") {
			t.Errorf("threshold %v: expected node error, got %v", bad, res.Errors)
		}
		if !strings.Contains(string(res.Fragment), "\tif (data.alpha < 0.5) discard;\n") {
			t.Errorf("threshold %v: discard not defaulted\n%s", bad, res.Fragment)
		}
	}
}

func TestCompileCodeNode(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	code := addNode(t, g, gshade.KindCode).(*gshade.CodeNode)
	code.Code = "\t\tcolor = vec3(x * 2.0);\n"
	code.Inputs = []gshade.Variable{{Name: "x", Type: gshade.TypeFloat}}
	code.Outputs = []gshade.Variable{{Name: "color", Type: gshade.TypeVec3}}
	connect(t, g, number(t, g, 0.5), 0, code, 0)
	connect(t, g, code, 0, g.Root(), gshade.PinAlbedo)
	res := compileValid(t, g)
	v := "v" + itoa(code.ID) + "_color"
	want := "\tvec3 " + v + ";\n" +
		"\t{\n" +
		"\t\tfloat x = 0.5;\n" +
		"\t\tvec3 color;\n" +
		"\t\tcolor = vec3(x * 2.0);\n" +
		"\t\t" + v + " = color;\n" +
		"\t}\n" +
		"\tdata.albedo = " + v + ";\n"
	if !strings.Contains(string(res.Fragment), want) {
		t.Errorf("want\n%s\ngot\n%s", want, res.Fragment)
	}
}

func TestCompileFunctionCall(t *testing.T) {
	fn := newTestGraph(t, gshade.KindFunctionOutput)
	fn.Path = "lib/double.gshg"
	x := addNode(t, fn, gshade.KindFunctionInput).(*gshade.FunctionInputNode)
	x.Name = "x"
	op := addNode(t, fn, gshade.KindOperator).(*gshade.OperatorNode)
	op.Op = gshade.OpMul
	op.Value = 2
	connect(t, fn, x, 0, op, 0)
	connect(t, fn, op, 0, fn.Root(), 0)
	funcs := resolver{fn.Path: fn}
	fn.Functions = funcs

	g := newTestGraph(t, gshade.KindSurface)
	g.Functions = funcs
	call := addNode(t, g, gshade.KindFunctionCall).(*gshade.FunctionCallNode)
	call.Path = fn.Path
	connect(t, g, number(t, g, 0.5), 0, call, 0)
	connect(t, g, call, 0, g.Root(), gshade.PinRoughness)
	call2 := addNode(t, g, gshade.KindFunctionCall).(*gshade.FunctionCallNode)
	call2.Path = fn.Path
	connect(t, g, number(t, g, 0.125), 0, call2, 0)
	connect(t, g, call2, 0, g.Root(), gshade.PinMetallic)

	res := compileValid(t, g)
	const def = "float fn_lib_double(float a_x) {\n\treturn (a_x * 2.0);\n}\n"
	if string(res.Preface) != def {
		t.Errorf("want preface\n%s\ngot\n%s", def, res.Preface)
	}
	if n := strings.Count(string(res.Source), "float fn_lib_double("); n != 1 {
		t.Errorf("want one function definition, got %d", n)
	}
	v := "v" + itoa(call.ID)
	for _, want := range []string{
		"\tfloat " + v + " = fn_lib_double(0.5);\n",
		"\tdata.roughness = " + v + ";\n",
	} {
		if !strings.Contains(string(res.Fragment), want) {
			t.Errorf("missing %q\n%s", want, res.Fragment)
		}
	}
	if !slices.Equal(res.Functions, []string{fn.Path}) {
		t.Errorf("functions %v", res.Functions)
	}

	// Function graphs compile on their own.
	fres := compileValid(t, fn)
	if string(fres.Source) != def {
		t.Errorf("standalone function\n%s", fres.Source)
	}
	params, ret, err := gshade.Signature(fn)
	if err != nil || len(params) != 1 || params[0].Name != "x" || ret != gshade.TypeFloat {
		t.Errorf("signature %v %s %v", params, ret, err)
	}
}

func TestCompileFunctionErrors(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	call := addNode(t, g, gshade.KindFunctionCall).(*gshade.FunctionCallNode)
	call.Path = "missing.gshg"
	connect(t, g, call, 0, g.Root(), gshade.PinRoughness)
	res := compile(t, g)
	if !hasErrorContaining(res, "unresolved function") {
		t.Errorf("expected unresolved error, got %v", res.Errors)
	}

	// A function calling itself.
	fn := newTestGraph(t, gshade.KindFunctionOutput)
	fn.Path = "loop.gshg"
	fn.Functions = resolver{fn.Path: fn}
	self := addNode(t, fn, gshade.KindFunctionCall).(*gshade.FunctionCallNode)
	self.Path = fn.Path
	connect(t, fn, self, 0, fn.Root(), 0)
	res = compile(t, fn)
	if !hasErrorContaining(res, "recursive call") {
		t.Errorf("expected recursion error, got %v", res.Errors)
	}

	// Mutual recursion through a callee.
	a := newTestGraph(t, gshade.KindFunctionOutput)
	a.Path = "a.gshg"
	b := newTestGraph(t, gshade.KindFunctionOutput)
	b.Path = "b.gshg"
	funcs := resolver{a.Path: a, b.Path: b}
	a.Functions, b.Functions = funcs, funcs
	callB := addNode(t, a, gshade.KindFunctionCall).(*gshade.FunctionCallNode)
	callB.Path = b.Path
	connect(t, a, callB, 0, a.Root(), 0)
	callA := addNode(t, b, gshade.KindFunctionCall).(*gshade.FunctionCallNode)
	callA.Path = a.Path
	connect(t, b, callA, 0, b.Root(), 0)
	res = compile(t, a)
	if !hasErrorContaining(res, "recursive call") {
		t.Errorf("expected mutual recursion error, got %v", res.Errors)
	}
}

func TestCompileParticleStreams(t *testing.T) {
	g := newTestGraph(t, gshade.KindParticle)
	out := g.Root().(*gshade.OutputNode)
	out.Attributes = []gshade.VertexAttribute{
		{Type: gshade.TypeVec4, Name: "color"},
		{Type: gshade.TypeVec2, Name: "size"},
	}
	stream := addNode(t, g, gshade.KindParticleStream).(*gshade.ParticleStreamNode)
	stream.Stream = 0
	connect(t, g, stream, 0, g.Root(), gshade.PinAlbedo)
	connect(t, g, stream, 0, g.Root(), gshade.PinAlpha)

	res := compileValid(t, g)
	src := string(res.Source)
	if !strings.HasPrefix(src, "import \"pipelines/particle_base.inc\"\n") || !strings.Contains(src, "particle_shader({\n") {
		t.Errorf("bad particle template\n%s", src)
	}
	if !strings.Contains(src, "\tfragment_preface = [[\nin vec4 v_color;\n") {
		t.Errorf("missing fragment stream input\n%s", src)
	}
	vertex := string(res.Vertex)
	for _, want := range []string{
		"layout(location = 0) in vec4 i_color;\n",
		"out vec4 v_color;\n",
		"\tv_color = i_color;\n",
	} {
		if !strings.Contains(vertex, want) {
			t.Errorf("vertex missing %q\n%s", want, vertex)
		}
	}
	if strings.Contains(vertex, "size") {
		t.Error("unreferenced stream emitted")
	}
	frag := string(res.Fragment)
	if !strings.Contains(frag, "data.albedo = v_color.rgb;") || !strings.Contains(frag, "data.alpha = v_color.x;") {
		t.Errorf("bad stream references\n%s", frag)
	}
	if !slices.Equal(res.Streams, []int{0}) {
		t.Errorf("streams %v", res.Streams)
	}

	stream.Stream = 5
	res = compile(t, g)
	if !hasErrorContaining(res, "out of range") {
		t.Errorf("expected range error, got %v", res.Errors)
	}
}

func TestCompileStructuralErrors(t *testing.T) {
	c := gshade.NewCompiler(gshade.CompilerConfig{})
	if _, err := c.Compile(nil); err == nil {
		t.Error("expected error for nil graph")
	}
	if _, err := c.Compile(&gshade.Graph{}); err == nil {
		t.Error("expected error for empty graph")
	}
}

func TestResultProgram(t *testing.T) {
	g := newTestGraph(t, gshade.KindSurface)
	tex := addNode(t, g, gshade.KindSample).(*gshade.SampleNode)
	tex.Texture = "a.png"
	param := addNode(t, g, gshade.KindColorParam).(*gshade.ParamNode)
	param.Name = "tint"
	mul := addNode(t, g, gshade.KindOperator).(*gshade.OperatorNode)
	mul.Op = gshade.OpMul
	connect(t, g, tex, 0, mul, 0)
	connect(t, g, param, 0, mul, 1)
	connect(t, g, mul, 0, g.Root(), gshade.PinAlbedo)
	sw := addNode(t, g, gshade.KindStaticSwitch).(*gshade.StaticSwitchNode)
	sw.Define = "USE_WIND"
	connect(t, g, number(t, g, 1), 0, sw, 0)
	connect(t, g, number(t, g, 0), 0, sw, 1)
	connect(t, g, sw, 0, g.Root(), gshade.PinMetallic)
	res := compileValid(t, g)
	var buf bytes.Buffer
	if _, err := res.Program().WriteFragment(&buf); err != nil {
		t.Fatal(err)
	}
	src := buf.String()
	for _, want := range []string{
		"#undef USE_WIND\n",
		"uniform vec4 u_tint;\n",
		"uniform sampler2D t0;\n",
		"\tSurfaceData data;\n",
		string(res.Fragment),
	} {
		if !strings.Contains(src, want) {
			t.Errorf("program missing %q\n%s", want, src)
		}
	}
}

func itoa(id gshade.NodeID) string {
	return strconv.Itoa(int(id))
}
