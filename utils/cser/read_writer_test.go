package cser

import (
	"errors"
	"math"
	"testing"

	"github.com/rony4d/secret-loot-path/utils/fast"

	"github.com/stretchr/testify/require"
)

type record struct {
	flag  bool
	small uint32
	big   uint64
	delta int64
	blob  []byte
	tag   [4]byte
}

func (rec record) marshal(w *Writer) error {
	w.Bool(rec.flag)
	w.U32(rec.small)
	w.U64(rec.big)
	w.I64(rec.delta)
	w.SliceBytes(rec.blob)
	w.FixedBytes(rec.tag[:])
	return nil
}

func (rec *record) unmarshal(r *Reader) error {
	rec.flag = r.Bool()
	rec.small = r.U32()
	rec.big = r.U64()
	rec.delta = r.I64()
	rec.blob = r.SliceBytes(MaxAlloc)
	r.FixedBytes(rec.tag[:])
	return nil
}

func TestRecordRoundTrip(t *testing.T) {
	for _, in := range []record{
		{blob: []byte{}},
		{flag: true, small: 1, big: 1, delta: -1, blob: []byte{1}, tag: [4]byte{1, 2, 3, 4}},
		{small: math.MaxUint32, big: math.MaxUint64, delta: math.MinInt64, blob: make([]byte, 300)},
		{delta: math.MaxInt64, blob: []byte("loot")},
	} {
		raw, err := MarshalBinaryAdapter(in.marshal)
		require.NoError(t, err)

		var out record
		require.NoError(t, UnmarshalBinaryAdapter(raw, out.unmarshal))
		require.Equal(t, in, out)
	}
}

func TestMarshalPropagatesError(t *testing.T) {
	exp := errors.New("custom")
	_, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.Bool(true)
		return exp
	})
	require.Equal(t, exp, err)
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	raw, err := MarshalBinaryAdapter(record{blob: []byte("abc")}.marshal)
	require.NoError(t, err)

	var out record
	require.ErrorIs(t, UnmarshalBinaryAdapter(nil, out.unmarshal), ErrMalformedEncoding)
	require.ErrorIs(t, UnmarshalBinaryAdapter(raw[:len(raw)-3], out.unmarshal), ErrMalformedEncoding)
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	raw, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.U64(7)
		w.U8(1)
		return nil
	})
	require.NoError(t, err)

	err = UnmarshalBinaryAdapter(raw, func(r *Reader) error {
		require.Equal(t, uint64(7), r.U64())
		return nil
	})
	require.ErrorIs(t, err, ErrNonCanonicalEncoding)
}

func TestUnmarshalRejectsPaddedInteger(t *testing.T) {
	// U64 value 5 written with a redundant zero high byte.
	w := NewWriter()
	w.BytesW.Write([]byte{5, 0})
	w.BitsW.Write(3, 1)
	raw := pack(w.BitsW.Array, w.BytesW.Bytes())

	err := UnmarshalBinaryAdapter(raw, func(r *Reader) error {
		r.U64()
		return nil
	})
	require.ErrorIs(t, err, ErrNonCanonicalEncoding)
}

func TestSliceBytesLimit(t *testing.T) {
	raw, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.SliceBytes(make([]byte, 10))
		return nil
	})
	require.NoError(t, err)

	err = UnmarshalBinaryAdapter(raw, func(r *Reader) error {
		r.SliceBytes(9)
		return nil
	})
	require.ErrorIs(t, err, ErrTooLargeAlloc)
}

func TestVarintCompact(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 1 << 20, math.MaxUint64} {
		w := NewWriter()
		writeUint64Compact(w.BytesW, v)
		raw := w.BytesW.Bytes()
		require.Equal(t, v, readUint64Compact(fastReader(raw)))
	}
}

func fastReader(b []byte) *fast.Reader { return fast.NewReader(b) }
