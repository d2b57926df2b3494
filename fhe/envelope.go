// Package fhe implements the envelope service: scalar and blob values sealed
// into opaque envelopes, arithmetic over sealed scalars, and signed proofs
// binding each computation to its inputs and output.
//
// The sealing is authenticated encryption under a per-session key, not a
// homomorphic scheme. Callers only depend on the Service contract, so a real
// homomorphic backend can replace it without touching them.
package fhe

import (
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zeebo/blake3"
)

// Envelope is an immutable sealed value. Every Encrypt and Operate call
// produces a new one.
type Envelope struct {
	Ciphertext hexutil.Bytes `json:"ciphertext"`
	KeyRef     KeyRef        `json:"keyRef"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Ref is the BLAKE3 digest of the ciphertext. Proofs name their inputs and
// outputs by Ref.
func (e Envelope) Ref() hash.Hash {
	return hash.Hash(blake3.Sum256(e.Ciphertext))
}

// Empty reports whether e is the zero envelope.
func (e Envelope) Empty() bool {
	return len(e.Ciphertext) == 0
}

// Copy returns a deep copy of e.
func (e Envelope) Copy() Envelope {
	return Envelope{
		Ciphertext: common.CopyBytes(e.Ciphertext),
		KeyRef:     e.KeyRef.Copy(),
		CreatedAt:  e.CreatedAt,
	}
}

// Refs returns the Ref of every envelope, in order.
func Refs(envs ...Envelope) []hash.Hash {
	refs := make([]hash.Hash, len(envs))
	for i, e := range envs {
		refs[i] = e.Ref()
	}
	return refs
}
