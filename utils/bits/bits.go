// Package bits packs small unsigned integers into a byte slice without byte
// alignment. Values are laid out least-significant bit first: the first bit
// written lands in bit 0 of the first byte.
package bits

type (
	// Array holds the packed bytes.
	Array struct {
		Bytes []byte
	}

	// Writer appends bit fields to an Array.
	Writer struct {
		*Array
		bitOffset int // next free bit in the last byte, 0 means "start a new byte"
	}

	// Reader consumes bit fields from an Array.
	Reader struct {
		*Array
		byteOffset int
		bitOffset  int
	}
)

// NewWriter returns a Writer appending to arr.
func NewWriter(arr *Array) *Writer {
	return &Writer{Array: arr}
}

// NewReader returns a Reader positioned at the first bit of arr.
func NewReader(arr *Array) *Reader {
	return &Reader{Array: arr}
}

func lowMask(n int) uint {
	return (uint(1) << uint(n)) - 1
}

// Write appends the low n bits of v. Higher bits of v are ignored.
func (a *Writer) Write(n int, v uint) {
	for n > 0 {
		if a.bitOffset == 0 {
			a.Bytes = append(a.Bytes, 0)
		}
		chunk := 8 - a.bitOffset
		if n < chunk {
			chunk = n
		}
		a.Bytes[len(a.Bytes)-1] |= byte((v & lowMask(chunk)) << uint(a.bitOffset))
		a.bitOffset = (a.bitOffset + chunk) % 8
		v >>= uint(chunk)
		n -= chunk
	}
}

// Read consumes n bits and returns them as an integer. It panics when fewer
// than n bits remain.
func (a *Reader) Read(n int) uint {
	var (
		v     uint
		shift int
	)
	for n > 0 {
		chunk := 8 - a.bitOffset
		if n < chunk {
			chunk = n
		}
		part := (uint(a.Bytes[a.byteOffset]) >> uint(a.bitOffset)) & lowMask(chunk)
		v |= part << uint(shift)
		shift += chunk
		n -= chunk
		a.bitOffset += chunk
		if a.bitOffset == 8 {
			a.bitOffset = 0
			a.byteOffset++
		}
	}
	return v
}

// View returns the next n bits without consuming them.
func (a *Reader) View(n int) uint {
	cp := *a
	return cp.Read(n)
}

// NonReadBytes counts bytes not fully consumed, including a partially read one.
func (a *Reader) NonReadBytes() int {
	return len(a.Bytes) - a.byteOffset
}

// NonReadBits counts the bits left to read.
func (a *Reader) NonReadBits() int {
	return a.NonReadBytes()*8 - a.bitOffset
}
