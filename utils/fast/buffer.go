// Package fast provides append-only byte writers and cursor readers used by
// the cser codec. Reads past the end panic; callers that decode untrusted
// input (sealed envelope bodies, proof bytes) recover at the codec boundary.
package fast

// Reader walks a byte slice with a forward-only cursor.
type Reader struct {
	buf    []byte
	offset int
}

// Writer accumulates bytes by appending to its slice.
type Writer struct {
	buf []byte
}

// NewReader returns a Reader positioned at the start of bb.
func NewReader(bb []byte) *Reader {
	return &Reader{buf: bb}
}

// NewWriter returns a Writer appending to bb. Pass a zero-length slice with
// spare capacity to avoid early re-allocations.
func NewWriter(bb []byte) *Writer {
	return &Writer{buf: bb}
}

// WriteByte appends v.
func (b *Writer) WriteByte(v byte) {
	b.buf = append(b.buf, v)
}

// Write appends all of v.
func (b *Writer) Write(v []byte) {
	b.buf = append(b.buf, v...)
}

// Bytes returns everything written so far.
func (b *Writer) Bytes() []byte {
	return b.buf
}

// Read returns the next n bytes and advances the cursor. The returned slice
// aliases the underlying buffer.
func (b *Reader) Read(n int) []byte {
	res := b.buf[b.offset : b.offset+n]
	b.offset += n
	return res
}

// ReadByte returns the next byte and advances the cursor.
func (b *Reader) ReadByte() byte {
	res := b.buf[b.offset]
	b.offset++
	return res
}

// Position is the number of bytes consumed.
func (b *Reader) Position() int {
	return b.offset
}

// Remaining is the number of bytes not yet consumed.
func (b *Reader) Remaining() int {
	return len(b.buf) - b.offset
}

// Bytes returns the whole underlying buffer, consumed or not.
func (b *Reader) Bytes() []byte {
	return b.buf
}

// Empty reports whether every byte has been consumed.
func (b *Reader) Empty() bool {
	return len(b.buf) == b.offset
}
