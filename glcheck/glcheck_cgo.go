//go:build !tinygo && cgo

package glcheck

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/gshade/glbuild"
)

// Init creates a hidden 1x1 window with a current OpenGL 4.6 core context. The
// returned function terminates GLFW and must be called once validation is done.
// Init and Validate must be called from the same OS thread.
func Init() (terminate func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing GLFW")
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.False)
	window, err := glfw.CreateWindow(1, 1, "gshade", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "creating GLFW window")
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "initializing OpenGL")
	}
	return glfw.Terminate, nil
}

// Validate compiles and links both stages of prog. A driver error is returned
// with the fragment source attached as error detail.
func Validate(prog *glbuild.Program) error {
	vertex, fragment, err := sources(prog)
	if err != nil {
		return err
	}
	glprog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertex,
		Fragment: fragment,
	})
	if err != nil {
		return errors.WithDetail(errors.Wrap(err, "driver rejected program"), strings.TrimSuffix(fragment, "\x00"))
	}
	glprog.Delete()
	return nil
}
