package glbuild

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/cockroachdb/errors"
)

const VersionStr = "#version 430\n"

// ShaderObject is a GLSL helper function needed by generated code. Function objects
// are emitted once per program ahead of the code that calls them.
type ShaderObject struct {
	// NamePtr is the name of the function inside of the source.
	NamePtr []byte
	// for function shaders.
	funcSource []byte
}

// MakeShaderFunction parses the function name out of a GLSL function definition
// and returns a [ShaderObject] that wraps the definition.
func MakeShaderFunction(shaderDef []byte) (sf ShaderObject, err error) {
	shaderDef = bytes.TrimSpace(shaderDef)
	fnNameEnd := bytes.IndexByte(shaderDef, '(')
	fnNameStart := bytes.IndexByte(shaderDef, ' ')
	if fnNameEnd < 0 || fnNameStart < 0 || fnNameStart > fnNameEnd {
		return ShaderObject{}, errors.New("unable to parse function name")
	}
	name := shaderDef[fnNameStart:fnNameEnd]
	name = bytes.TrimSpace(name)
	if len(name) == 0 {
		return ShaderObject{}, errors.New("empty function name")
	}
	sf = ShaderObject{
		NamePtr:    name,
		funcSource: shaderDef,
	}
	return sf, nil
}

// Source returns the GLSL definition of a function object.
func (obj ShaderObject) Source() []byte { return obj.funcSource }

func (obj ShaderObject) Validate() error {
	if len(obj.NamePtr) == 0 {
		return errors.New("shader object zero-length name")
	} else if len(obj.funcSource) == 0 {
		return errors.New("shader object has no function source")
	}
	return nil
}

// FunctionSet accumulates GLSL functions in insertion order. Functions with the same
// name and body are only kept once. Distinct functions sharing a name are rejected
// since the resulting program would fail to compile.
type FunctionSet struct {
	objs []ShaderObject
	// names maps function name hashes to body hashes for checking duplicates.
	names map[uint64]uint64
}

// Reset clears the set for reuse.
func (fs *FunctionSet) Reset() {
	fs.objs = fs.objs[:0]
	clear(fs.names)
}

// Len returns the amount of unique functions in the set.
func (fs *FunctionSet) Len() int { return len(fs.objs) }

// Add adds obj to the set. It returns added=false with nil error if an identical function was already added.
func (fs *FunctionSet) Add(obj ShaderObject) (added bool, err error) {
	err = obj.Validate()
	if err != nil {
		return false, err
	}
	if fs.names == nil {
		fs.names = make(map[uint64]uint64)
	}
	nameHash := hash(obj.NamePtr, 0)
	bodyHash := hash(obj.funcSource, nameHash) // Body hash mixes name as well.
	gotBodyHash, nameConflict := fs.names[nameHash]
	if nameConflict {
		if gotBodyHash == bodyHash {
			return false, nil // Identical function already present.
		}
		return false, errors.Newf("duplicate shader function name %q with distinct body", obj.NamePtr)
	}
	fs.names[nameHash] = bodyHash
	fs.objs = append(fs.objs, obj)
	return true, nil
}

// AppendSources appends the definitions of all functions in the set separated by newlines.
func (fs *FunctionSet) AppendSources(b []byte) []byte {
	for i := range fs.objs {
		b = append(b, fs.objs[i].funcSource...)
		b = append(b, '\n')
	}
	return b
}

func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	if aliasReplace != "" {
		b = append(b, ' ')
		b = append(b, aliasReplace...)
	}
	b = append(b, '\n')
	return b
}

// AppendUndefineDecl appends an #undef directive.
func AppendUndefineDecl(b []byte, aliasToUndefine string) []byte {
	b = append(b, "#undef "...)
	b = append(b, aliasToUndefine...)
	b = append(b, '\n')
	return b
}

// AppendUniformDirective appends a uniform directive consumed by the shader assembly step.
//
//	uniform("<name>", "<typename>", {<defaults>})
func AppendUniformDirective(b []byte, name, typename string, defaults []float32) []byte {
	b = append(b, "uniform("...)
	b = strconv.AppendQuote(b, name)
	b = append(b, ", "...)
	b = strconv.AppendQuote(b, typename)
	switch len(defaults) {
	case 0:
	case 1:
		b = append(b, ", "...)
		b = AppendFloat(b, '-', '.', defaults[0])
	default:
		b = append(b, ", {"...)
		b = AppendFloats(b, ',', '-', '.', defaults...)
		b = append(b, '}')
	}
	b = append(b, ")\n"...)
	return b
}

// AppendDefineDirective appends a define directive for the shader assembly step.
func AppendDefineDirective(b []byte, name string) []byte {
	b = append(b, "define("...)
	b = strconv.AppendQuote(b, name)
	b = append(b, ")\n"...)
	return b
}

// AppendTextureSlotDirective appends a texture slot declaration.
//
//	texture_slot({ name = "<name>", default_texture = "<path>" })
func AppendTextureSlotDirective(b []byte, name, defaultTexture string) []byte {
	b = append(b, "texture_slot({ name = "...)
	b = strconv.AppendQuote(b, name)
	b = append(b, ", default_texture = "...)
	b = strconv.AppendQuote(b, defaultTexture)
	b = append(b, " })\n"...)
	return b
}

// AppendImportDirective appends an import directive for an engine include file.
func AppendImportDirective(b []byte, path string) []byte {
	b = append(b, "import "...)
	b = strconv.AppendQuote(b, path)
	b = append(b, '\n')
	return b
}

// AppendVecLiteral appends a float or vector constructor literal with len(v) components.
// A single component is appended as a bare float literal.
func AppendVecLiteral(b []byte, v ...float32) []byte {
	switch len(v) {
	case 0:
		return b
	case 1:
		return AppendFloat(b, '-', '.', v[0])
	}
	b = append(b, "vec"...)
	b = strconv.AppendInt(b, int64(len(v)), 10)
	b = append(b, '(')
	b = AppendFloats(b, ',', '-', '.', v...)
	b = append(b, ')')
	return b
}

// AppendSwizzleCast appends a component selection suffix that converts an expression
// with srcN channels into one with dstN channels using the component names in comps (i.e: "xyzw" or "rgba").
// Nothing is appended when the channel counts match. Narrowing keeps the leading components,
// a scalar source is repeated and a vector widened to a larger vector repeats its last component.
func AppendSwizzleCast(b []byte, dstN, srcN int, comps string) []byte {
	if dstN == srcN || dstN < 1 || srcN < 1 || dstN > 4 || len(comps) < 4 {
		return b
	}
	b = append(b, '.')
	if dstN == 1 {
		return append(b, comps[0])
	}
	for i := 0; i < dstN; i++ {
		b = append(b, comps[min(i, srcN-1)])
	}
	return b
}

// AppendIdent appends prefix followed by name converted to a valid GLSL identifier.
// Letters are lowercased and runs of invalid characters become a single underscore.
func AppendIdent(b []byte, prefix, name string) []byte {
	b = append(b, prefix...)
	lastUnderscore := len(prefix) > 0 && prefix[len(prefix)-1] == '_'
	start := len(b)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			if lastUnderscore {
				continue
			}
			c = '_'
		}
		lastUnderscore = c == '_'
		b = append(b, c)
	}
	if len(b) == start && prefix == "" {
		b = append(b, '_')
	} else if len(b) > start && b[start] >= '0' && b[start] <= '9' && prefix == "" {
		b = append(b[:start], append([]byte{'_'}, b[start:]...)...)
	}
	return b
}

const decimalDigits = 9

func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes, leaving one after the decimal point.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]

	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
