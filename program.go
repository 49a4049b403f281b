package gshade

import (
	"slices"

	"github.com/soypat/gshade/glbuild"
)

// pipelinePrelude declares what the engine includes provide to generated code.
const pipelinePrelude = `layout(std140) uniform GlobalState {
	vec4 camera_pos;
	vec2 framebuffer_size;
	float time;
} Global;
struct SurfaceData {
	vec3 albedo;
	float alpha;
	vec3 normal;
	float roughness;
	float metallic;
	vec3 emission;
	float ao;
	float translucency;
	float shadow;
	vec3 wpos_offset;
};
`

// Program returns a standalone GLSL program wrapping the result's generated code
// with stand-ins for the declarations provided by the engine includes. Static switch
// defines are explicitly undefined so the #else branches are compiled. The program
// is meant for driver compile validation, not rendering.
func (r *Result) Program() *glbuild.Program {
	prog := &glbuild.Program{
		Prelude:   []byte(pipelinePrelude),
		Undefines: slices.Clone(r.Defines),
		Varyings: []glbuild.Variable{
			{Type: "vec2", Name: defaultUV},
			{Type: "vec3", Name: "v_wpos"},
			{Type: "vec3", Name: defaultNormal},
		},
	}
	for _, u := range r.Uniforms {
		prog.Uniforms = append(prog.Uniforms, glbuild.Variable{Type: u.GLSL(), Name: u.VarName()})
	}
	for slot := range r.Textures {
		prog.Samplers = append(prog.Samplers, string(appendSampler(nil, slot)))
	}
	prog.Samplers = append(prog.Samplers, depthSampler)
	for _, idx := range r.Streams {
		if idx < 0 || idx >= len(r.Attributes) {
			continue
		}
		attr := r.Attributes[idx]
		prog.Varyings = append(prog.Varyings, glbuild.Variable{
			Type: attr.Type.GLSL(),
			Name: string(glbuild.AppendIdent(nil, "v_", attr.Name)),
		})
	}
	if r.Root == KindFunctionOutput {
		prog.Functions = append(append(prog.Functions, r.Preface...), r.Fragment...)
		return prog
	}
	prog.Functions = append(prog.Functions, r.Preface...)
	prog.Main = append(prog.Main, "\tSurfaceData data;\n"...)
	prog.Main = append(prog.Main, r.Fragment...)
	prog.Output = "vec4(data.albedo + data.emission, data.alpha)"
	return prog
}
