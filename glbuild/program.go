package glbuild

import (
	"io"
	"strconv"
)

// Variable is a typed GLSL variable declaration.
type Variable struct {
	Type string
	Name string
}

// Program holds the pieces of a standalone vertex+fragment GLSL program. It is used to
// turn generated shader fragments into source a GL driver can compile for validation.
type Program struct {
	// Defines are emitted as #define directives at the top of both stages.
	Defines []string
	// Undefines are emitted as #undef directives after Defines in both stages.
	Undefines []string
	// Prelude is raw source placed after the version and defines in the fragment stage.
	Prelude []byte
	// Uniforms are plain uniform declarations of the fragment stage.
	Uniforms []Variable
	// Samplers are sampler2D uniform names.
	Samplers []string
	// Varyings are vertex outputs consumed by the fragment stage.
	Varyings []Variable
	// Functions holds function definitions placed before main.
	Functions []byte
	// Main is the body of the fragment main function.
	Main []byte
	// Output is the fragment color output expression written last in main. If empty vec4(1) is written.
	Output  string
	scratch []byte
}

// WriteFragment writes the fragment stage of the program to w.
func (p *Program) WriteFragment(w io.Writer) (int, error) {
	b := p.scratch[:0]
	b = append(b, VersionStr...)
	b = p.appendDirectives(b)
	b = append(b, p.Prelude...)
	for _, u := range p.Uniforms {
		b = appendQualifiedDecl(b, "uniform ", u)
	}
	for _, s := range p.Samplers {
		b = appendQualifiedDecl(b, "uniform ", Variable{Type: "sampler2D", Name: s})
	}
	for _, v := range p.Varyings {
		b = appendQualifiedDecl(b, "in ", v)
	}
	b = append(b, "layout(location = 0) out vec4 o_color;\n\n"...)
	b = append(b, p.Functions...)
	b = append(b, "\nvoid main() {\n"...)
	b = append(b, p.Main...)
	b = append(b, "\to_color = "...)
	if p.Output == "" {
		b = append(b, "vec4(1.0)"...)
	} else {
		b = append(b, p.Output...)
	}
	b = append(b, ";\n}\n"...)
	p.scratch = b
	return w.Write(b)
}

// WriteVertex writes a pass-through vertex stage that writes zero to every varying
// and places the vertex at the position attribute.
func (p *Program) WriteVertex(w io.Writer) (int, error) {
	b := p.scratch[:0]
	b = append(b, VersionStr...)
	b = p.appendDirectives(b)
	b = append(b, "layout(location = 0) in vec3 a_position;\n"...)
	for _, v := range p.Varyings {
		b = appendQualifiedDecl(b, "out ", v)
	}
	b = append(b, "\nvoid main() {\n"...)
	for _, v := range p.Varyings {
		b = append(b, '\t')
		b = append(b, v.Name...)
		b = append(b, " = "...)
		b = append(b, v.Type...)
		b = append(b, "(0);\n"...)
	}
	b = append(b, "\tgl_Position = vec4(a_position, 1.0);\n}\n"...)
	p.scratch = b
	return w.Write(b)
}

func (p *Program) appendDirectives(b []byte) []byte {
	for _, def := range p.Defines {
		b = AppendDefineDecl(b, def, "")
	}
	for _, undef := range p.Undefines {
		b = AppendUndefineDecl(b, undef)
	}
	return b
}

// AppendLocationDecl appends a located stage input or output declaration.
//
//	layout(location = <loc>) <qualifier> <type> <name>;
func AppendLocationDecl(b []byte, loc int, qualifier string, v Variable) []byte {
	b = append(b, "layout(location = "...)
	b = strconv.AppendInt(b, int64(loc), 10)
	b = append(b, ") "...)
	return appendQualifiedDecl(b, qualifier+" ", v)
}

func appendQualifiedDecl(b []byte, qualifier string, v Variable) []byte {
	b = append(b, qualifier...)
	b = append(b, v.Type...)
	b = append(b, ' ')
	b = append(b, v.Name...)
	b = append(b, ";\n"...)
	return b
}
