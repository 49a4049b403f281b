// Package glcheck validates generated shader programs by compiling them with the
// system's OpenGL driver. Validation requires CGo.
package glcheck

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade/glbuild"
)

// ErrNoCGO is returned by every function of the package when built without CGo.
var ErrNoCGO = errors.New("GPU validation requires CGo and is not supported on TinyGo")

// sources renders the vertex and fragment stages of prog as null terminated strings.
func sources(prog *glbuild.Program) (vertex, fragment string, err error) {
	var buf bytes.Buffer
	_, err = prog.WriteVertex(&buf)
	if err != nil {
		return "", "", err
	}
	buf.WriteByte(0)
	vertex = buf.String()
	buf.Reset()
	_, err = prog.WriteFragment(&buf)
	if err != nil {
		return "", "", err
	}
	buf.WriteByte(0)
	return vertex, buf.String(), nil
}
