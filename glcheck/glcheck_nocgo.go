//go:build tinygo || !cgo

package glcheck

import (
	"github.com/soypat/gshade/glbuild"
)

// Init returns [ErrNoCGO].
func Init() (terminate func(), err error) {
	return nil, ErrNoCGO
}

// Validate returns [ErrNoCGO].
func Validate(prog *glbuild.Program) error {
	_, _, err := sources(prog)
	if err != nil {
		return err
	}
	return ErrNoCGO
}
