package fhe

import (
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/rlp"
)

// Envelopes and proofs travel to the ledger collaborator as RLP.

type envelopeRLP struct {
	Ciphertext []byte
	KeyRef     []byte
	CreatedAt  uint64 // unix milliseconds
}

type proofRLP struct {
	ProofBytes   []byte
	PublicInputs []hash.Hash
	KeyRef       []byte
}

// MarshalBinary encodes the envelope as RLP.
func (e Envelope) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(&envelopeRLP{
		Ciphertext: e.Ciphertext,
		KeyRef:     e.KeyRef.Bytes(),
		CreatedAt:  uint64(e.CreatedAt.UnixMilli()),
	})
}

// UnmarshalBinary decodes the RLP form written by MarshalBinary.
func (e *Envelope) UnmarshalBinary(raw []byte) error {
	var dec envelopeRLP
	if err := rlp.DecodeBytes(raw, &dec); err != nil {
		return err
	}
	ref, err := KeyRefFromBytes(dec.KeyRef)
	if err != nil {
		return err
	}
	*e = Envelope{
		Ciphertext: dec.Ciphertext,
		KeyRef:     ref,
		CreatedAt:  time.UnixMilli(int64(dec.CreatedAt)).UTC(),
	}
	return nil
}

// MarshalBinary encodes the proof as RLP.
func (p Proof) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(&proofRLP{
		ProofBytes:   p.ProofBytes,
		PublicInputs: p.PublicInputs,
		KeyRef:       p.VerificationKeyRef.Bytes(),
	})
}

// UnmarshalBinary decodes the RLP form written by MarshalBinary.
func (p *Proof) UnmarshalBinary(raw []byte) error {
	var dec proofRLP
	if err := rlp.DecodeBytes(raw, &dec); err != nil {
		return err
	}
	ref, err := KeyRefFromBytes(dec.KeyRef)
	if err != nil {
		return err
	}
	*p = Proof{
		ProofBytes:         dec.ProofBytes,
		PublicInputs:       dec.PublicInputs,
		VerificationKeyRef: ref,
	}
	return nil
}
