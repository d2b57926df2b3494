package cser

import (
	"github.com/rony4d/secret-loot-path/utils/bits"
	"github.com/rony4d/secret-loot-path/utils/fast"
)

// Container layout:
//
//	[ body bytes ][ bit stream bytes ][ reversed varint(len(bit stream)) ]
//
// The length suffix is stored back to front so a decoder can find it by
// scanning from the end.

// MarshalBinaryAdapter runs marshalCser against a fresh Writer and packs both
// streams into one slice.
func MarshalBinaryAdapter(marshalCser func(*Writer) error) ([]byte, error) {
	w := NewWriter()
	if err := marshalCser(w); err != nil {
		return nil, err
	}
	return pack(w.BitsW.Array, w.BytesW.Bytes()), nil
}

// UnmarshalBinaryAdapter splits raw into its streams and runs unmarshalCser.
// Truncated input is reported as ErrMalformedEncoding; leftover bytes or
// non-zero padding bits as ErrNonCanonicalEncoding.
func UnmarshalBinaryAdapter(raw []byte, unmarshalCser func(*Reader) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && (e == ErrNonCanonicalEncoding || e == ErrTooLargeAlloc) {
				err = e
				return
			}
			err = ErrMalformedEncoding
		}
	}()

	bitArr, body, err := unpack(raw)
	if err != nil {
		return err
	}
	r := &Reader{
		BitsR:  bits.NewReader(bitArr),
		BytesR: fast.NewReader(body),
	}
	if err := unmarshalCser(r); err != nil {
		return err
	}

	if r.BitsR.NonReadBytes() > 1 {
		return ErrNonCanonicalEncoding
	}
	if r.BitsR.Read(r.BitsR.NonReadBits()) != 0 {
		return ErrNonCanonicalEncoding
	}
	if !r.BytesR.Empty() {
		return ErrNonCanonicalEncoding
	}
	return nil
}

func pack(bitArr *bits.Array, body []byte) []byte {
	out := fast.NewWriter(body)
	out.Write(bitArr.Bytes)

	size := fast.NewWriter(make([]byte, 0, 4))
	writeUint64Compact(size, uint64(len(bitArr.Bytes)))
	out.Write(reversed(size.Bytes()))
	return out.Bytes()
}

func unpack(raw []byte) (*bits.Array, []byte, error) {
	if len(raw) == 0 {
		return nil, nil, ErrMalformedEncoding
	}
	suffix := fast.NewReader(reversed(tail(raw, 9)))
	bitsLen := readUint64Compact(suffix)
	raw = raw[:len(raw)-suffix.Position()]
	if uint64(len(raw)) < bitsLen {
		return nil, nil, ErrMalformedEncoding
	}
	split := uint64(len(raw)) - bitsLen
	return &bits.Array{Bytes: raw[split:]}, raw[:split], nil
}

func tail(b []byte, n int) []byte {
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
