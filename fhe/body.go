package fhe

import (
	"github.com/rony4d/secret-loot-path/utils/cser"
)

type bodyKind uint8

const (
	kindScalar bodyKind = 1
	kindBlob   bodyKind = 2
)

const saltSize = 16

// body is the plaintext sealed inside an envelope.
type body struct {
	Kind      bodyKind
	Scalar    int64
	Blob      []byte
	Salt      [saltSize]byte
	CreatedAt int64 // unix milliseconds
}

func (b *body) MarshalCSER(w *cser.Writer) error {
	w.U8(uint8(b.Kind))
	switch b.Kind {
	case kindScalar:
		w.I64(b.Scalar)
	case kindBlob:
		w.SliceBytes(b.Blob)
	}
	w.FixedBytes(b.Salt[:])
	w.I64(b.CreatedAt)
	return nil
}

func (b *body) UnmarshalCSER(r *cser.Reader) error {
	b.Kind = bodyKind(r.U8())
	switch b.Kind {
	case kindScalar:
		b.Scalar = r.I64()
	case kindBlob:
		b.Blob = r.SliceBytes(cser.MaxAlloc)
	default:
		return cser.ErrMalformedEncoding
	}
	r.FixedBytes(b.Salt[:])
	b.CreatedAt = r.I64()
	return nil
}

func (b *body) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(b.MarshalCSER)
}

func (b *body) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, b.UnmarshalCSER)
}
