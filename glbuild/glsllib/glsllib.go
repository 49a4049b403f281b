// Package glsllib contains GLSL helper functions called by generated shader code.
package glsllib

import (
	_ "embed"

	"github.com/soypat/gshade/glbuild"
)

//go:embed noise.glsl
var noiseSrc []byte

// Noise2D is a value noise implementation over 2D coordinates with results in [0,1]:
//
//	float gshadeNoise(vec2 p)
func Noise2D() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(noiseSrc)
	return obj
}

//go:embed fresnel.glsl
var fresnelSrc []byte

// Fresnel is a Schlick-style fresnel term given a surface normal, view direction and exponent:
//
//	float gshadeFresnel(vec3 N, vec3 V, float power)
func Fresnel() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(fresnelSrc)
	return obj
}
