package fhe

import (
	"fmt"
	"math"

	lperrors "github.com/rony4d/secret-loot-path/errors"
)

// OpKind names a computation a proof can attest to.
type OpKind uint8

const (
	// OpAdd, OpMultiply and OpCompare attest to a binary Operation over two
	// sealed inputs.
	OpAdd      OpKind = 1
	OpMultiply OpKind = 2
	OpCompare  OpKind = 3
	// OpReveal attests that an envelope decrypts to a committed value.
	OpReveal OpKind = 4
)

// String returns the lower-case operation name.
func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpMultiply:
		return "multiply"
	case OpCompare:
		return "compare"
	case OpReveal:
		return "reveal"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

func (k OpKind) valid() bool {
	return k >= OpAdd && k <= OpReveal
}

// Operation is a binary computation over two sealed scalars. The concrete
// types Add, Multiply and Compare are the only implementations.
type Operation interface {
	Kind() OpKind
	Operands() (a, b Envelope)
	apply(a, b int64) (int64, error)
}

// Add yields A + B.
type Add struct{ A, B Envelope }

// Multiply yields A * B.
type Multiply struct{ A, B Envelope }

// Compare yields 1 if A > B, otherwise 0.
type Compare struct{ A, B Envelope }

// Kind and Operands implement Operation.
func (Add) Kind() OpKind      { return OpAdd }
func (Multiply) Kind() OpKind { return OpMultiply }
func (Compare) Kind() OpKind  { return OpCompare }

func (op Add) Operands() (Envelope, Envelope)      { return op.A, op.B }
func (op Multiply) Operands() (Envelope, Envelope) { return op.A, op.B }
func (op Compare) Operands() (Envelope, Envelope)  { return op.A, op.B }

// binaryOp returns the Operation of kind k over a and b. Reveal is not binary.
func binaryOp(k OpKind, a, b Envelope) (Operation, bool) {
	switch k {
	case OpAdd:
		return Add{a, b}, true
	case OpMultiply:
		return Multiply{a, b}, true
	case OpCompare:
		return Compare{a, b}, true
	default:
		return nil, false
	}
}

func (Add) apply(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, lperrors.Newf(lperrors.CodeInvalidArgument, "add overflows int64")
	}
	return a + b, nil
}

func (Multiply) apply(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	r := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || r/b != a {
		return 0, lperrors.Newf(lperrors.CodeInvalidArgument, "multiply overflows int64")
	}
	return r, nil
}

func (Compare) apply(a, b int64) (int64, error) {
	if a > b {
		return 1, nil
	}
	return 0, nil
}
