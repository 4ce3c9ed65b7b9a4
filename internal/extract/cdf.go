package extract

// Decoder for the self-describing NetCDF classic binary format (CDF-1 and
// CDF-2). ARGO core profile files are distributed in this format.
//
// Layout: magic ('C','D','F',version), numrecs, dim_list, gatt_list,
// var_list, then variable data. All integers are big-endian; names and
// attribute values are padded to 4-byte boundaries. Fixed-size variables
// store their data contiguously at a declared offset; record variables
// interleave one slab per record.

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// NetCDF external types
const (
	ncByte   = 1
	ncChar   = 2
	ncShort  = 3
	ncInt    = 4
	ncFloat  = 5
	ncDouble = 6
)

// List tags in the header
const (
	tagDimension = 0x0A
	tagVariable  = 0x0B
	tagAttribute = 0x0C
)

const streamingRecs = 0xFFFFFFFF

var typeSizes = map[uint32]int{
	ncByte:   1,
	ncChar:   1,
	ncShort:  2,
	ncInt:    4,
	ncFloat:  4,
	ncDouble: 8,
}

// Dimension is one named axis of the file. Length 0 marks the record
// dimension.
type Dimension struct {
	Name   string
	Length int
}

// Variable describes one array in the file.
type Variable struct {
	Name       string
	DimIDs     []int
	Attributes map[string]any
	Type       uint32
	vsize      uint32
	begin      int64
	isRecord   bool
}

// CDFFile is a decoded NetCDF classic file. Variable data is decoded
// lazily from the retained raw bytes.
type CDFFile struct {
	Dimensions []Dimension
	Attributes map[string]any
	NumRecs    int

	vars    map[string]*Variable
	data    []byte
	version byte
	recSize int64
}

type cdfReader struct {
	data []byte
	off  int
}

func (r *cdfReader) remaining() int { return len(r.data) - r.off }

func (r *cdfReader) readU32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("truncated header at offset %d", r.off)
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *cdfReader) readU64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("truncated header at offset %d", r.off)
	}
	v := binary.BigEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

// readName reads a length-prefixed name padded to a 4-byte boundary
func (r *cdfReader) readName() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	padded := int(n+3) &^ 3
	if r.remaining() < padded {
		return "", fmt.Errorf("truncated name at offset %d", r.off)
	}
	name := string(r.data[r.off : r.off+int(n)])
	r.off += padded
	return name, nil
}

// DecodeCDF parses a NetCDF classic byte stream
func DecodeCDF(data []byte) (*CDFFile, error) {
	if len(data) < 8 || data[0] != 'C' || data[1] != 'D' || data[2] != 'F' {
		return nil, fmt.Errorf("not a NetCDF classic file")
	}
	version := data[3]
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("unsupported NetCDF version byte %d", version)
	}

	r := &cdfReader{data: data, off: 4}

	numRecs, err := r.readU32()
	if err != nil {
		return nil, err
	}

	f := &CDFFile{
		vars:    make(map[string]*Variable),
		data:    data,
		version: version,
	}

	if err := f.readDimList(r); err != nil {
		return nil, err
	}
	if f.Attributes, err = readAttrList(r); err != nil {
		return nil, err
	}
	if err := f.readVarList(r); err != nil {
		return nil, err
	}

	f.computeRecSize()

	if numRecs == streamingRecs {
		f.NumRecs = f.recsFromDataLength()
	} else {
		f.NumRecs = int(numRecs)
	}

	return f, nil
}

func (f *CDFFile) readDimList(r *cdfReader) error {
	tag, err := r.readU32()
	if err != nil {
		return err
	}
	count, err := r.readU32()
	if err != nil {
		return err
	}
	if tag == 0 && count == 0 {
		return nil
	}
	if tag != tagDimension {
		return fmt.Errorf("expected dimension list tag, got 0x%X", tag)
	}
	if count > uint32(r.remaining()) {
		return fmt.Errorf("implausible dimension count %d", count)
	}

	f.Dimensions = make([]Dimension, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.readName()
		if err != nil {
			return err
		}
		length, err := r.readU32()
		if err != nil {
			return err
		}
		f.Dimensions = append(f.Dimensions, Dimension{Name: name, Length: int(length)})
	}
	return nil
}

func readAttrList(r *cdfReader) (map[string]any, error) {
	tag, err := r.readU32()
	if err != nil {
		return nil, err
	}
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]any)
	if tag == 0 && count == 0 {
		return attrs, nil
	}
	if tag != tagAttribute {
		return nil, fmt.Errorf("expected attribute list tag, got 0x%X", tag)
	}
	if count > uint32(r.remaining()) {
		return nil, fmt.Errorf("implausible attribute count %d", count)
	}

	for i := uint32(0); i < count; i++ {
		name, err := r.readName()
		if err != nil {
			return nil, err
		}
		typ, err := r.readU32()
		if err != nil {
			return nil, err
		}
		nelems, err := r.readU32()
		if err != nil {
			return nil, err
		}
		size, ok := typeSizes[typ]
		if !ok {
			return nil, fmt.Errorf("attribute %s: unknown type %d", name, typ)
		}
		byteLen := int(nelems) * size
		padded := (byteLen + 3) &^ 3
		if r.remaining() < padded {
			return nil, fmt.Errorf("attribute %s: truncated values", name)
		}
		raw := r.data[r.off : r.off+byteLen]
		r.off += padded

		if typ == ncChar {
			attrs[name] = strings.TrimRight(string(raw), "\x00 ")
		} else {
			vals := decodeNumeric(raw, typ, int(nelems))
			if len(vals) == 1 {
				attrs[name] = vals[0]
			} else {
				attrs[name] = vals
			}
		}
	}
	return attrs, nil
}

func (f *CDFFile) readVarList(r *cdfReader) error {
	tag, err := r.readU32()
	if err != nil {
		return err
	}
	count, err := r.readU32()
	if err != nil {
		return err
	}
	if tag == 0 && count == 0 {
		return nil
	}
	if tag != tagVariable {
		return fmt.Errorf("expected variable list tag, got 0x%X", tag)
	}
	if count > uint32(r.remaining()) {
		return fmt.Errorf("implausible variable count %d", count)
	}

	for i := uint32(0); i < count; i++ {
		name, err := r.readName()
		if err != nil {
			return err
		}
		ndims, err := r.readU32()
		if err != nil {
			return err
		}
		if ndims > uint32(len(f.Dimensions)) {
			return fmt.Errorf("variable %s: %d dimensions exceeds file's %d", name, ndims, len(f.Dimensions))
		}
		dimIDs := make([]int, ndims)
		for d := range dimIDs {
			id, err := r.readU32()
			if err != nil {
				return err
			}
			if int(id) >= len(f.Dimensions) {
				return fmt.Errorf("variable %s: dimension id %d out of range", name, id)
			}
			dimIDs[d] = int(id)
		}
		attrs, err := readAttrList(r)
		if err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
		typ, err := r.readU32()
		if err != nil {
			return err
		}
		if _, ok := typeSizes[typ]; !ok {
			return fmt.Errorf("variable %s: unknown type %d", name, typ)
		}
		vsize, err := r.readU32()
		if err != nil {
			return err
		}
		var begin int64
		if f.version == 1 {
			b, err := r.readU32()
			if err != nil {
				return err
			}
			begin = int64(b)
		} else {
			b, err := r.readU64()
			if err != nil {
				return err
			}
			begin = int64(b)
		}

		v := &Variable{
			Name:       name,
			DimIDs:     dimIDs,
			Attributes: attrs,
			Type:       typ,
			vsize:      vsize,
			begin:      begin,
		}
		v.isRecord = len(dimIDs) > 0 && f.Dimensions[dimIDs[0]].Length == 0
		f.vars[name] = v
	}
	return nil
}

// computeRecSize derives the byte stride between consecutive records.
// When exactly one record variable exists its slab is packed without
// padding, per the format specification.
func (f *CDFFile) computeRecSize() {
	var recVars []*Variable
	for _, v := range f.vars {
		if v.isRecord {
			recVars = append(recVars, v)
		}
	}
	if len(recVars) == 1 {
		f.recSize = int64(recVars[0].recordSlabSize(f, false))
		return
	}
	var total int64
	for _, v := range recVars {
		total += int64(v.recordSlabSize(f, true))
	}
	f.recSize = total
}

// recordSlabSize is the size of one record's worth of a record variable
func (v *Variable) recordSlabSize(f *CDFFile, padded bool) int {
	n := 1
	for _, id := range v.DimIDs[1:] {
		n *= f.Dimensions[id].Length
	}
	size := n * typeSizes[v.Type]
	if padded {
		size = (size + 3) &^ 3
	}
	return size
}

func (f *CDFFile) recsFromDataLength() int {
	if f.recSize <= 0 {
		return 0
	}
	var firstBegin int64 = -1
	for _, v := range f.vars {
		if v.isRecord && (firstBegin < 0 || v.begin < firstBegin) {
			firstBegin = v.begin
		}
	}
	if firstBegin < 0 || firstBegin > int64(len(f.data)) {
		return 0
	}
	return int((int64(len(f.data)) - firstBegin) / f.recSize)
}

// HasVariable reports whether the file declares the named variable
func (f *CDFFile) HasVariable(name string) bool {
	_, ok := f.vars[name]
	return ok
}

// VarAttr returns a named attribute of a variable, or nil
func (f *CDFFile) VarAttr(varName, attrName string) any {
	v, ok := f.vars[varName]
	if !ok {
		return nil
	}
	return v.Attributes[attrName]
}

// Shape returns the dimension lengths of a variable, with the record
// dimension resolved to the record count.
func (f *CDFFile) Shape(name string) ([]int, error) {
	v, ok := f.vars[name]
	if !ok {
		return nil, fmt.Errorf("no such variable %q", name)
	}
	shape := make([]int, len(v.DimIDs))
	for i, id := range v.DimIDs {
		length := f.Dimensions[id].Length
		if length == 0 {
			length = f.NumRecs
		}
		shape[i] = length
	}
	return shape, nil
}

// rawValues collects the flattened raw bytes of a variable in row-major
// element order.
func (f *CDFFile) rawValues(v *Variable) ([]byte, error) {
	elemSize := typeSizes[v.Type]

	if !v.isRecord {
		n := 1
		for _, id := range v.DimIDs {
			n *= f.Dimensions[id].Length
		}
		end := v.begin + int64(n*elemSize)
		if v.begin < 0 || end > int64(len(f.data)) {
			return nil, fmt.Errorf("variable %s: data range [%d, %d) outside file", v.Name, v.begin, end)
		}
		return f.data[v.begin:end], nil
	}

	slab := v.recordSlabSize(f, false)
	out := make([]byte, 0, slab*f.NumRecs)
	for r := 0; r < f.NumRecs; r++ {
		start := v.begin + int64(r)*f.recSize
		end := start + int64(slab)
		if start < 0 || end > int64(len(f.data)) {
			return nil, fmt.Errorf("variable %s: record %d outside file", v.Name, r)
		}
		out = append(out, f.data[start:end]...)
	}
	return out, nil
}

// ReadFloats decodes a numeric variable into float64s in row-major order
func (f *CDFFile) ReadFloats(name string) ([]float64, error) {
	v, ok := f.vars[name]
	if !ok {
		return nil, fmt.Errorf("no such variable %q", name)
	}
	if v.Type == ncChar {
		return nil, fmt.Errorf("variable %s is char-typed", name)
	}
	raw, err := f.rawValues(v)
	if err != nil {
		return nil, err
	}
	return decodeNumeric(raw, v.Type, len(raw)/typeSizes[v.Type]), nil
}

// ReadChars returns the flattened bytes of a char variable
func (f *CDFFile) ReadChars(name string) ([]byte, error) {
	v, ok := f.vars[name]
	if !ok {
		return nil, fmt.Errorf("no such variable %q", name)
	}
	if v.Type != ncChar {
		return nil, fmt.Errorf("variable %s is not char-typed", name)
	}
	return f.rawValues(v)
}

func decodeNumeric(raw []byte, typ uint32, n int) []float64 {
	out := make([]float64, n)
	switch typ {
	case ncByte:
		for i := 0; i < n; i++ {
			out[i] = float64(int8(raw[i]))
		}
	case ncShort:
		for i := 0; i < n; i++ {
			out[i] = float64(int16(binary.BigEndian.Uint16(raw[i*2:])))
		}
	case ncInt:
		for i := 0; i < n; i++ {
			out[i] = float64(int32(binary.BigEndian.Uint32(raw[i*4:])))
		}
	case ncFloat:
		for i := 0; i < n; i++ {
			out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(raw[i*4:])))
		}
	case ncDouble:
		for i := 0; i < n; i++ {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[i*8:]))
		}
	}
	return out
}
