package extract

// Test-only builder for NetCDF classic (CDF-1) byte streams. Only what
// the decoder consumes: fixed-size dimensions, double and char variables,
// per-variable attributes.

import (
	"bytes"
	"encoding/binary"
	"math"
)

type testVar struct {
	name   string
	dimIDs []int
	typ    uint32
	fill   float64 // written as _FillValue when typ is ncDouble
	vals   []float64
	chars  []byte
}

type testFile struct {
	dims       []Dimension
	globalStrs map[string]string
	vars       []testVar
}

func (tf *testFile) addDoubles(name string, dimIDs []int, fill float64, vals ...float64) {
	tf.vars = append(tf.vars, testVar{name: name, dimIDs: dimIDs, typ: ncDouble, fill: fill, vals: vals})
}

func (tf *testFile) addChars(name string, dimIDs []int, chars string) {
	tf.vars = append(tf.vars, testVar{name: name, dimIDs: dimIDs, typ: ncChar, chars: []byte(chars)})
}

// build serializes the file. The header is rendered twice: first to learn
// its length, then with real data offsets.
func (tf *testFile) build() []byte {
	header := tf.header(make([]uint32, len(tf.vars)))

	begins := make([]uint32, len(tf.vars))
	off := uint32(len(header))
	for i := range tf.vars {
		begins[i] = off
		off += uint32(paddedLen(tf.payload(i)))
	}

	out := tf.header(begins)
	for i := range tf.vars {
		p := tf.payload(i)
		out = append(out, p...)
		out = append(out, make([]byte, paddedLen(p)-len(p))...)
	}
	return out
}

func (tf *testFile) payload(i int) []byte {
	v := tf.vars[i]
	if v.typ == ncChar {
		return v.chars
	}
	buf := make([]byte, 8*len(v.vals))
	for j, f := range v.vals {
		binary.BigEndian.PutUint64(buf[j*8:], math.Float64bits(f))
	}
	return buf
}

func (tf *testFile) header(begins []uint32) []byte {
	var b bytes.Buffer
	b.WriteString("CDF\x01")
	writeU32(&b, 0) // numrecs

	writeU32(&b, tagDimension)
	writeU32(&b, uint32(len(tf.dims)))
	for _, d := range tf.dims {
		writeName(&b, d.Name)
		writeU32(&b, uint32(d.Length))
	}

	if len(tf.globalStrs) == 0 {
		writeU32(&b, 0)
		writeU32(&b, 0)
	} else {
		writeU32(&b, tagAttribute)
		writeU32(&b, uint32(len(tf.globalStrs)))
		for name, val := range tf.globalStrs {
			writeCharAttr(&b, name, val)
		}
	}

	writeU32(&b, tagVariable)
	writeU32(&b, uint32(len(tf.vars)))
	for i, v := range tf.vars {
		writeName(&b, v.name)
		writeU32(&b, uint32(len(v.dimIDs)))
		for _, id := range v.dimIDs {
			writeU32(&b, uint32(id))
		}
		if v.typ == ncDouble && v.fill != 0 {
			writeU32(&b, tagAttribute)
			writeU32(&b, 1)
			writeName(&b, "_FillValue")
			writeU32(&b, ncDouble)
			writeU32(&b, 1)
			var fb [8]byte
			binary.BigEndian.PutUint64(fb[:], math.Float64bits(v.fill))
			b.Write(fb[:])
		} else {
			writeU32(&b, 0)
			writeU32(&b, 0)
		}
		writeU32(&b, v.typ)
		writeU32(&b, uint32(paddedLen(tf.payload(i)))) // vsize
		writeU32(&b, begins[i])
	}

	return b.Bytes()
}

func writeU32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func writeName(b *bytes.Buffer, name string) {
	writeU32(b, uint32(len(name)))
	b.WriteString(name)
	b.Write(make([]byte, paddedLen([]byte(name))-len(name)))
}

func writeCharAttr(b *bytes.Buffer, name, val string) {
	writeName(b, name)
	writeU32(b, ncChar)
	writeU32(b, uint32(len(val)))
	b.WriteString(val)
	b.Write(make([]byte, paddedLen([]byte(val))-len(val)))
}

func paddedLen(p []byte) int {
	return (len(p) + 3) &^ 3
}
