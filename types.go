package gshade

import (
	"strconv"

	"github.com/soypat/gshade/glbuild"
)

// ValueType is the type of a value flowing through a node pin.
type ValueType uint8

const (
	TypeBool ValueType = iota
	TypeInt
	TypeFloat
	TypeVec2
	TypeVec3
	TypeVec4
	TypeIVec4
	TypeNone
)

var typeNames = [...]string{
	TypeBool:  "bool",
	TypeInt:   "int",
	TypeFloat: "float",
	TypeVec2:  "vec2",
	TypeVec3:  "vec3",
	TypeVec4:  "vec4",
	TypeIVec4: "ivec4",
	TypeNone:  "void",
}

// GLSL returns the GLSL type name. TypeNone is "void".
func (t ValueType) GLSL() string {
	if int(t) >= len(typeNames) {
		return "void"
	}
	return typeNames[t]
}

func (t ValueType) String() string {
	if int(t) >= len(typeNames) {
		return "ValueType(" + strconv.Itoa(int(t)) + ")"
	}
	return typeNames[t]
}

// Valid reports whether t is one of the declared value types.
func (t ValueType) Valid() bool { return t <= TypeNone }

// ChannelCount returns 1 for scalar-like types and the vector size for vector types.
func (t ValueType) ChannelCount() int {
	switch t {
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4, TypeIVec4:
		return 4
	}
	return 1
}

// IsScalar reports whether t has a single channel.
func (t ValueType) IsScalar() bool { return t.ChannelCount() == 1 }

// Widen returns the type with the larger channel count. Ties favor t0.
func Widen(t0, t1 ValueType) ValueType {
	if t1.ChannelCount() > t0.ChannelCount() {
		return t1
	}
	return t0
}

// floatTypeWithChannels returns the float type with n channels, clamping n to 1..4.
func floatTypeWithChannels(n int) ValueType {
	switch {
	case n <= 1:
		return TypeFloat
	case n == 2:
		return TypeVec2
	case n == 3:
		return TypeVec3
	}
	return TypeVec4
}

// AppendCast appends a swizzle suffix that makes an expression of type src
// usable where dst is expected. Nothing is appended when channel counts match.
// No conversion is emitted between bool, int and float scalars.
func AppendCast(b []byte, dst, src ValueType) []byte {
	return glbuild.AppendSwizzleCast(b, dst.ChannelCount(), src.ChannelCount(), "xyzw")
}

// AppendZero appends the zero literal of type t.
func (t ValueType) AppendZero(b []byte) []byte {
	switch t {
	case TypeBool:
		return append(b, "false"...)
	case TypeInt:
		return append(b, '0')
	case TypeFloat, TypeNone:
		return append(b, "0.0"...)
	case TypeIVec4:
		return append(b, "ivec4(0)"...)
	}
	b = append(b, t.GLSL()...)
	return append(b, "(0.0)"...)
}
