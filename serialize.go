package gshade

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const (
	// FileExt is the file extension of persisted graphs.
	FileExt = ".gshg"

	formatMagic   = 0x47534847
	formatVersion = 1

	outputPinFlag = 1 << 31
	nodeHeaderLen = 2 + 4 + 2*4
	linkLen       = 2 * 4
)

var (
	// ErrBadMagic is returned when decoding data that is not a persisted graph.
	ErrBadMagic = errors.New("bad graph magic number")
	// ErrUnsupportedVersion is returned when decoding a graph written by a newer format version.
	ErrUnsupportedVersion = errors.New("unsupported graph format version")
)

// MarshalBinary encodes the graph's nodes and links. Scratch state is not persisted.
func (g *Graph) MarshalBinary() ([]byte, error) {
	return g.AppendBinary(make([]byte, 0, 64+32*len(g.Nodes)+linkLen*len(g.Links)))
}

// AppendBinary appends the binary encoding of the graph to b.
func (g *Graph) AppendBinary(b []byte) ([]byte, error) {
	if len(g.Nodes) == 0 || !g.Nodes[0].Base().Kind.IsRoot() {
		return b, errors.Wrap(ErrRootNode, "encode")
	}
	b = appendU32(b, formatMagic)
	b = appendU32(b, formatVersion)
	b = appendU32(b, uint32(g.lastID))
	b = appendU32(b, uint32(len(g.Nodes)))
	for _, n := range g.Nodes {
		nb := n.Base()
		b = binary.LittleEndian.AppendUint16(b, uint16(nb.ID))
		b = appendU32(b, uint32(nb.Kind))
		b = appendF32s(b, nb.Position.X, nb.Position.Y)
		b = n.appendPayload(b)
	}
	b = appendU32(b, uint32(len(g.Links)))
	for _, l := range g.Links {
		b = appendU32(b, packPin(l.From, true))
		b = appendU32(b, packPin(l.To, false))
	}
	return b, nil
}

// UnmarshalBinary replaces the graph's nodes and links with the decoded data.
// The graph's Path and Functions are kept. On error g is left untouched.
func (g *Graph) UnmarshalBinary(data []byte) error {
	decoded, err := decodeGraph(data)
	if err != nil {
		return err
	}
	g.Nodes = decoded.Nodes
	g.Links = decoded.Links
	g.lastID = decoded.lastID
	return nil
}

// Encode writes the binary encoding of g to w.
func Encode(w io.Writer, g *Graph) error {
	data, err := g.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads a graph from r until EOF.
func Decode(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeGraph(data)
}

// LoadFile reads the graph persisted at name. The graph's Path is set to name in slash form.
func LoadFile(name string) (*Graph, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	g, err := decodeGraph(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	g.Path = filepath.ToSlash(name)
	return g, nil
}

// SaveFile writes g to name. The data is written to a temporary file in the same
// directory which is then renamed over name so readers never see a partial graph.
func SaveFile(name string, g *Graph) error {
	data, err := g.MarshalBinary()
	if err != nil {
		return err
	}
	fp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := fp.Name()
	_, err = fp.Write(data)
	if err == nil {
		err = fp.Sync()
	}
	if errClose := fp.Close(); err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(tmpName, name)
	}
	if err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "save %s", name)
	}
	return nil
}

func decodeGraph(data []byte) (*Graph, error) {
	d := decoder{data: data}
	if d.u32() != formatMagic {
		if d.err != nil {
			return nil, d.err
		}
		return nil, ErrBadMagic
	}
	version := d.u32()
	if d.err == nil && (version == 0 || version > formatVersion) {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d, supported up to %d", version, formatVersion)
	}
	lastID := d.u32()
	if d.err == nil && lastID > math.MaxUint16 {
		return nil, errors.Newf("last node id %d overflows", lastID)
	}
	g := &Graph{lastID: NodeID(lastID)}
	count := d.count(nodeHeaderLen)
	g.Nodes = make([]Node, 0, count)
	for i := 0; i < count && d.err == nil; i++ {
		id := NodeID(d.u16())
		kind := NodeKind(d.i32())
		if d.err != nil {
			break
		}
		n, err := NewNode(kind)
		if err != nil {
			return nil, err
		} else if (i == 0) != kind.IsRoot() {
			return nil, errors.Wrapf(ErrRootNode, "%s node at index %d", kind, i)
		} else if id == 0 || id > g.lastID || g.Node(id) != nil {
			return nil, errors.Newf("invalid node id %d", id)
		}
		nb := n.Base()
		nb.ID = id
		nb.Position.X = d.f32()
		nb.Position.Y = d.f32()
		err = n.decodePayload(&d)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s node %d", kind, id)
		}
		g.Nodes = append(g.Nodes, n)
	}
	if d.err == nil && len(g.Nodes) == 0 {
		return nil, errors.Wrap(ErrRootNode, "graph has no nodes")
	}
	count = d.count(linkLen)
	g.Links = make([]Link, 0, count)
	for i := 0; i < count && d.err == nil; i++ {
		from, fromOut := unpackPin(d.u32())
		to, toOut := unpackPin(d.u32())
		if d.err != nil {
			break
		} else if !fromOut || toOut {
			return nil, errors.Newf("link %d has inverted pin directions", i)
		}
		err := validateLink(g, Link{From: from, To: to})
		if err != nil {
			return nil, errors.Wrapf(err, "link %d", i)
		}
		g.Links = append(g.Links, Link{From: from, To: to})
	}
	if d.err != nil {
		return nil, d.err
	} else if d.off != len(d.data) {
		return nil, errors.Newf("%d trailing bytes after graph", len(d.data)-d.off)
	}
	return g, nil
}

func validateLink(g *Graph, l Link) error {
	src, dst := g.Node(l.From.Node), g.Node(l.To.Node)
	switch {
	case src == nil:
		return errors.Wrapf(ErrNodeNotFound, "source %d", l.From.Node)
	case dst == nil:
		return errors.Wrapf(ErrNodeNotFound, "destination %d", l.To.Node)
	case int(l.From.Index) >= src.NumOutputs(g):
		return errors.Wrapf(ErrPinRange, "output %d of %s", l.From.Index, src.Base().Kind)
	case int(l.To.Index) >= dst.NumInputs(g) && !isCallNode(dst):
		// Callees are resolved after loading so call node arity is unknown here.
		return errors.Wrapf(ErrPinRange, "input %d of %s", l.To.Index, dst.Base().Kind)
	case g.IsInputConnected(l.To.Node, int(l.To.Index)):
		return errors.Newf("input %d of node %d linked twice", l.To.Index, l.To.Node)
	}
	return nil
}

func isCallNode(n Node) bool {
	_, ok := n.(*FunctionCallNode)
	return ok
}

// packPin packs a pin into a node id in the low 16 bits, the pin index above it
// and the output flag in the top bit.
func packPin(p Pin, output bool) uint32 {
	v := uint32(p.Node) | uint32(p.Index&0x7fff)<<16
	if output {
		v |= outputPinFlag
	}
	return v
}

func unpackPin(v uint32) (p Pin, output bool) {
	p.Node = NodeID(v)
	p.Index = uint16(v>>16) & 0x7fff
	return p, v&outputPinFlag != 0
}

func appendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func appendF32s(b []byte, vs ...float32) []byte {
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func appendString(b []byte, s string) []byte {
	b = appendU32(b, uint32(len(s)))
	return append(b, s...)
}

// decoder reads little endian values from data. The first error is kept and
// subsequent reads return zero values.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.data)-d.off < n {
		d.err = errors.Wrapf(io.ErrUnexpectedEOF, "graph data truncated at offset %d", d.off)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) i32() int32   { return int32(d.u32()) }
func (d *decoder) f32() float32 { return math.Float32frombits(d.u32()) }

func (d *decoder) f32s(dst []float32) {
	for i := range dst {
		dst[i] = d.f32()
	}
}

func (d *decoder) str() string {
	n := d.u32()
	if d.err == nil && uint64(n) > uint64(len(d.data)-d.off) {
		d.err = errors.Wrapf(io.ErrUnexpectedEOF, "string of length %d at offset %d", n, d.off)
	}
	return string(d.next(int(n)))
}

// count reads an element count and checks the remaining data can hold count
// elements of at least minSize bytes each.
func (d *decoder) count(minSize int) int {
	n := d.u32()
	if d.err == nil && uint64(n)*uint64(minSize) > uint64(len(d.data)-d.off) {
		d.err = errors.Wrapf(io.ErrUnexpectedEOF, "count %d at offset %d exceeds data", n, d.off)
	}
	if d.err != nil {
		return 0
	}
	return int(n)
}

func (d *decoder) variables() []Variable {
	count := d.count(5)
	if count == 0 {
		return nil
	}
	vars := make([]Variable, 0, count)
	for i := 0; i < count && d.err == nil; i++ {
		var v Variable
		v.Name = d.str()
		v.Type = ValueType(d.u8())
		if d.err == nil && !v.Type.Valid() {
			d.err = errors.Newf("invalid variable type %d", v.Type)
		}
		vars = append(vars, v)
	}
	return vars
}
