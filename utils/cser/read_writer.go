// Package cser is a canonical binary serialization with two streams: a byte
// stream for payload data and a bit stream for flags and length prefixes.
// Decoding rejects any input that is not the unique minimal encoding of its
// value, so two equal records always serialize to equal bytes.
package cser

import (
	"errors"

	"github.com/rony4d/secret-loot-path/utils/bits"
	"github.com/rony4d/secret-loot-path/utils/fast"
)

var (
	ErrNonCanonicalEncoding = errors.New("non canonical encoding")
	ErrMalformedEncoding    = errors.New("malformed encoding")
	ErrTooLargeAlloc        = errors.New("too large allocation")
)

// MaxAlloc bounds any single SliceBytes read.
const MaxAlloc = 100 * 1024

// Writer writes to the bit stream and the byte stream side by side.
type Writer struct {
	BitsW  *bits.Writer
	BytesW *fast.Writer
}

// Reader reads the two streams a Writer produced.
type Reader struct {
	BitsR  *bits.Reader
	BytesR *fast.Reader
}

// NewWriter returns a Writer with small pre-allocated streams.
func NewWriter() *Writer {
	return &Writer{
		BitsW:  bits.NewWriter(&bits.Array{Bytes: make([]byte, 0, 16)}),
		BytesW: fast.NewWriter(make([]byte, 0, 128)),
	}
}

// writeUint64Compact is a base-128 varint where a set high bit marks the
// final byte.
func writeUint64Compact(w *fast.Writer, v uint64) {
	for {
		chunk := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			w.WriteByte(chunk | 0x80)
			return
		}
		w.WriteByte(chunk)
	}
}

func readUint64Compact(r *fast.Reader) uint64 {
	var v uint64
	for i := 0; ; i++ {
		chunk := r.ReadByte()
		word := uint64(chunk & 0x7f)
		v |= word << (7 * uint(i))
		if chunk&0x80 != 0 {
			if i > 0 && word == 0 {
				panic(ErrNonCanonicalEncoding)
			}
			return v
		}
	}
}

// writeUint64BitCompact writes v little-endian using the fewest bytes, but no
// fewer than minSize, and returns the byte count.
func writeUint64BitCompact(w *fast.Writer, v uint64, minSize int) (size int) {
	for size < minSize || v != 0 {
		w.WriteByte(byte(v))
		size++
		v >>= 8
	}
	return size
}

func readUint64BitCompact(r *fast.Reader, size int) uint64 {
	buf := r.Read(size)
	var v uint64
	for i, b := range buf {
		v |= uint64(b) << (8 * uint(i))
	}
	if size > 1 && buf[size-1] == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	return v
}

// The byte length of an integer goes to the bit stream, its bytes to the
// byte stream.
func (w *Writer) writeU64Bits(minSize, sizeBits int, v uint64) {
	size := writeUint64BitCompact(w.BytesW, v, minSize)
	w.BitsW.Write(sizeBits, uint(size-minSize))
}

func (r *Reader) readU64Bits(minSize, sizeBits int) uint64 {
	size := int(r.BitsR.Read(sizeBits)) + minSize
	if size == 0 {
		return 0
	}
	return readUint64BitCompact(r.BytesR, size)
}

// U8 writes a single byte with no length bits.
func (w *Writer) U8(v uint8) { w.BytesW.WriteByte(v) }

func (r *Reader) U8() uint8 { return r.BytesR.ReadByte() }

// U32 uses 1..4 bytes with a 2-bit length.
func (w *Writer) U32(v uint32) { w.writeU64Bits(1, 2, uint64(v)) }

func (r *Reader) U32() uint32 { return uint32(r.readU64Bits(1, 2)) }

// U64 uses 1..8 bytes with a 3-bit length.
func (w *Writer) U64(v uint64) { w.writeU64Bits(1, 3, v) }

func (r *Reader) U64() uint64 { return r.readU64Bits(1, 3) }

// U56 uses 0..7 bytes with a 3-bit length. Used for slice lengths.
func (w *Writer) U56(v uint64) {
	const max = 1<<(8*7) - 1
	if v > max {
		panic("cser: U56 overflow")
	}
	w.writeU64Bits(0, 3, v)
}

func (r *Reader) U56() uint64 { return r.readU64Bits(0, 3) }

// I64 writes a sign bit followed by the magnitude. Negative zero is rejected
// on read.
func (w *Writer) I64(v int64) {
	w.Bool(v < 0)
	if v < 0 {
		w.U64(uint64(-v))
		return
	}
	w.U64(uint64(v))
}

func (r *Reader) I64() int64 {
	neg := r.Bool()
	abs := r.U64()
	if neg && abs == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	if neg {
		return -int64(abs)
	}
	return int64(abs)
}

// Bool takes one bit of the bit stream.
func (w *Writer) Bool(v bool) {
	var b uint
	if v {
		b = 1
	}
	w.BitsW.Write(1, b)
}

func (r *Reader) Bool() bool { return r.BitsR.Read(1) != 0 }

// FixedBytes writes v with no length prefix; the reader must know the size.
func (w *Writer) FixedBytes(v []byte) { w.BytesW.Write(v) }

func (r *Reader) FixedBytes(v []byte) { copy(v, r.BytesR.Read(len(v))) }

// SliceBytes writes a U56 length then the bytes.
func (w *Writer) SliceBytes(v []byte) {
	w.U56(uint64(len(v)))
	w.FixedBytes(v)
}

// SliceBytes panics with ErrTooLargeAlloc when the length exceeds maxLen.
func (r *Reader) SliceBytes(maxLen int) []byte {
	size := r.U56()
	if size > uint64(maxLen) {
		panic(ErrTooLargeAlloc)
	}
	buf := make([]byte, size)
	r.FixedBytes(buf)
	return buf
}
