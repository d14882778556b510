package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/mcoot/shapesync/internal/model"
)

var errStringTooLong = errors.New("string exceeds 65535 bytes")

// writer appends big-endian fields and remembers the first error
type writer struct {
	buf bytes.Buffer
	err error
}

func newWriter(k Kind) *writer {
	w := &writer{}
	w.buf.WriteByte(byte(k))
	return w
}

func (w *writer) bytes() []byte { return w.buf.Bytes() }

func (w *writer) uint8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *writer) uint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) float32(v float64) {
	w.uint32(math.Float32bits(float32(v)))
}

func (w *writer) vec2(v model.Vec2) {
	w.float32(v.X)
	w.float32(v.Y)
}

func (w *writer) string16(s string) {
	if len(s) > math.MaxUint16 {
		if w.err == nil {
			w.err = errStringTooLong
		}
		return
	}
	w.uint16(uint16(len(s)))
	w.buf.WriteString(s)
}

// reader consumes big-endian fields; after the first short read every
// call returns zero values and err stays set
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.remaining() < n {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) float32() float64 {
	return float64(math.Float32frombits(r.uint32()))
}

func (r *reader) vec2() model.Vec2 {
	x := r.float32()
	y := r.float32()
	return model.Vec2{X: x, Y: y}
}

func (r *reader) string16() string {
	n := int(r.uint16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}
