package fhe

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/secret-loot-path/utils/cser"
)

const (
	proofVersion  = 1
	signatureSize = crypto.SignatureLength
)

var (
	transcriptDomain = []byte("lootpath/proof/v1")
	revealDomain     = []byte("lootpath/reveal/v1")
)

// Proof attests that the signing key session computed an output from an
// ordered list of inputs.
type Proof struct {
	ProofBytes         hexutil.Bytes `json:"proofBytes"`
	PublicInputs       []hash.Hash   `json:"publicInputs"`
	VerificationKeyRef KeyRef        `json:"verificationKeyRef"`
}

// Statement is the decoded content of ProofBytes.
type Statement struct {
	Op     OpKind
	Output hash.Hash
	sig    [signatureSize]byte
}

// MarshalCSER writes the statement in signing order.
func (st *Statement) MarshalCSER(w *cser.Writer) error {
	w.U8(proofVersion)
	w.U8(uint8(st.Op))
	w.FixedBytes(st.Output.Bytes())
	w.FixedBytes(st.sig[:])
	return nil
}

// UnmarshalCSER reads a statement written by MarshalCSER.
func (st *Statement) UnmarshalCSER(r *cser.Reader) error {
	if r.U8() != proofVersion {
		return cser.ErrMalformedEncoding
	}
	st.Op = OpKind(r.U8())
	r.FixedBytes(st.Output[:])
	r.FixedBytes(st.sig[:])
	return nil
}

// Statement decodes ProofBytes without checking the signature.
func (p Proof) Statement() (Statement, error) {
	var st Statement
	err := cser.UnmarshalBinaryAdapter(p.ProofBytes, st.UnmarshalCSER)
	return st, err
}

// transcript is the digest the proof key signs. Input order is part of it.
func transcript(op OpKind, ref KeyRef, inputs []hash.Hash, output hash.Hash) hash.Hash {
	parts := make([][]byte, 0, len(inputs)+5)
	parts = append(parts,
		transcriptDomain,
		[]byte{uint8(op)},
		ref.Bytes(),
		bigendian.Uint32ToBytes(uint32(len(inputs))),
	)
	for _, in := range inputs {
		parts = append(parts, in.Bytes())
	}
	parts = append(parts, output.Bytes())
	return hash.Of(parts...)
}

// RevealCommitment is the output a reveal proof commits to for value.
func RevealCommitment(value int64) hash.Hash {
	return hash.Of(revealDomain, bigendian.Uint64ToBytes(uint64(value)))
}

func signProof(keys sessionKeys, op OpKind, inputs []hash.Hash, output hash.Hash) (Proof, error) {
	digest := transcript(op, keys.ref, inputs, output)
	sig, err := crypto.Sign(digest.Bytes(), keys.signer)
	if err != nil {
		return Proof{}, err
	}
	st := Statement{Op: op, Output: output}
	copy(st.sig[:], sig)
	raw, err := cser.MarshalBinaryAdapter(st.MarshalCSER)
	if err != nil {
		return Proof{}, err
	}
	return Proof{
		ProofBytes:         raw,
		PublicInputs:       append([]hash.Hash(nil), inputs...),
		VerificationKeyRef: keys.ref.Copy(),
	}, nil
}

// VerifyProof checks the proof signature against its own fields. It never
// panics and reports any malformed field as false.
func VerifyProof(p Proof) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if p.VerificationKeyRef.Type != KeyTypes.Secp256k1 {
		return false
	}
	st, err := p.Statement()
	if err != nil || !st.Op.valid() {
		return false
	}
	if st.sig[64] > 1 {
		return false
	}
	digest := transcript(st.Op, p.VerificationKeyRef, p.PublicInputs, st.Output)
	return crypto.VerifySignature(p.VerificationKeyRef.Raw, digest.Bytes(), st.sig[:64])
}
