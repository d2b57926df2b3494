package fhe

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/sirupsen/logrus"

	lperrors "github.com/rony4d/secret-loot-path/errors"
)

// Service seals, opens and computes over envelopes. It holds no key
// material; every call names the KeySession it acts under.
type Service struct {
	log  logrus.FieldLogger
	now  func() time.Time
	rand io.Reader
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock sets the clock used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand sets the salt source.
func WithRand(r io.Reader) Option {
	return func(s *Service) { s.rand = r }
}

// NewService returns a Service logging to the standard logger, stamping
// envelopes with time.Now and salting them from crypto/rand. Options
// override each of these.
func NewService(opts ...Option) *Service {
	s := &Service{
		log:  logrus.StandardLogger(),
		now:  time.Now,
		rand: rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Encrypt seals a scalar.
func (s *Service) Encrypt(ks *KeySession, value int64) (Envelope, error) {
	return s.seal(ks, body{Kind: kindScalar, Scalar: value})
}

// EncryptBytes seals an opaque blob.
func (s *Service) EncryptBytes(ks *KeySession, data []byte) (Envelope, error) {
	return s.seal(ks, body{Kind: kindBlob, Blob: data})
}

// Decrypt opens a scalar envelope sealed under ks.
func (s *Service) Decrypt(ks *KeySession, env Envelope) (int64, error) {
	b, err := s.open(ks, env)
	if err != nil {
		return 0, err
	}
	if b.Kind != kindScalar {
		return 0, lperrors.New(lperrors.CodeDecryptionFailure, "envelope holds a blob, not a scalar")
	}
	return b.Scalar, nil
}

// DecryptBytes opens a blob envelope sealed under ks.
func (s *Service) DecryptBytes(ks *KeySession, env Envelope) ([]byte, error) {
	b, err := s.open(ks, env)
	if err != nil {
		return nil, err
	}
	if b.Kind != kindBlob {
		return nil, lperrors.New(lperrors.CodeDecryptionFailure, "envelope holds a scalar, not a blob")
	}
	return b.Blob, nil
}

// Operate evaluates op over its two sealed operands and seals the result.
// A Compare result is a sealed 1 or 0; callers decrypt before branching.
func (s *Service) Operate(ks *KeySession, op Operation) (Envelope, error) {
	if op == nil {
		return Envelope{}, lperrors.New(lperrors.CodeInvalidArgument, "nil operation")
	}
	envA, envB := op.Operands()
	a, err := s.Decrypt(ks, envA)
	if err != nil {
		return Envelope{}, err
	}
	b, err := s.Decrypt(ks, envB)
	if err != nil {
		return Envelope{}, err
	}
	res, err := op.apply(a, b)
	if err != nil {
		return Envelope{}, err
	}
	return s.Encrypt(ks, res)
}

// GenerateProof signs the statement that output is op over inputs, in order.
// The statement is checked first: inputs and output are opened under ks and
// op is recomputed, so a proof is never issued for a false computation.
func (s *Service) GenerateProof(ks *KeySession, op OpKind, inputs []Envelope, output Envelope) (Proof, error) {
	if output.Empty() {
		return Proof{}, lperrors.New(lperrors.CodeInvalidArgument, "empty output envelope")
	}
	if len(inputs) != 2 {
		return Proof{}, lperrors.Newf(lperrors.CodeInvalidArgument, "%s takes 2 inputs, got %d", op, len(inputs))
	}
	operation, ok := binaryOp(op, inputs[0], inputs[1])
	if !ok {
		return Proof{}, lperrors.Newf(lperrors.CodeInvalidArgument, "cannot prove %s", op)
	}
	if err := s.check(ks, operation, output); err != nil {
		return Proof{}, err
	}
	keys, err := ks.keys()
	if err != nil {
		return Proof{}, err
	}
	p, err := signProof(keys, op, Refs(inputs...), output.Ref())
	if err != nil {
		return Proof{}, lperrors.Wrap(lperrors.CodeEncryptionFailure, "sign proof", err)
	}
	return p, nil
}

// check recomputes op and compares it with the plaintext of output.
func (s *Service) check(ks *KeySession, op Operation, output Envelope) error {
	envA, envB := op.Operands()
	a, err := s.Decrypt(ks, envA)
	if err != nil {
		return err
	}
	b, err := s.Decrypt(ks, envB)
	if err != nil {
		return err
	}
	want, err := op.apply(a, b)
	if err != nil {
		return err
	}
	got, err := s.Decrypt(ks, output)
	if err != nil {
		return err
	}
	if got != want {
		return lperrors.WithMetadata(lperrors.CodeProofInvalid, "output does not match the computation",
			map[string]string{"op": op.Kind().String()})
	}
	return nil
}

// Reveal decrypts env and proves that its plaintext is the returned value.
func (s *Service) Reveal(ks *KeySession, env Envelope) (int64, Proof, error) {
	value, err := s.Decrypt(ks, env)
	if err != nil {
		return 0, Proof{}, err
	}
	keys, err := ks.keys()
	if err != nil {
		return 0, Proof{}, err
	}
	p, err := signProof(keys, OpReveal, []hash.Hash{env.Ref()}, RevealCommitment(value))
	if err != nil {
		return 0, Proof{}, lperrors.Wrap(lperrors.CodeEncryptionFailure, "sign reveal proof", err)
	}
	return value, p, nil
}

// VerifyProof is the package-level VerifyProof.
func (s *Service) VerifyProof(p Proof) bool {
	return VerifyProof(p)
}

func (s *Service) seal(ks *KeySession, b body) (Envelope, error) {
	keys, err := ks.keys()
	if err != nil {
		return Envelope{}, err
	}
	if _, err := io.ReadFull(s.rand, b.Salt[:]); err != nil {
		return Envelope{}, lperrors.Wrap(lperrors.CodeEncryptionFailure, "read salt", err)
	}
	createdAt := time.UnixMilli(s.now().UnixMilli()).UTC()
	b.CreatedAt = createdAt.UnixMilli()

	plain, err := b.MarshalBinary()
	if err != nil {
		return Envelope{}, lperrors.Wrap(lperrors.CodeEncryptionFailure, "encode body", err)
	}
	ct, err := keys.aead.Encrypt(plain, keys.ref.Bytes())
	if err != nil {
		return Envelope{}, lperrors.Wrap(lperrors.CodeEncryptionFailure, "seal body", err)
	}
	return Envelope{
		Ciphertext: ct,
		KeyRef:     keys.ref.Copy(),
		CreatedAt:  createdAt,
	}, nil
}

func (s *Service) open(ks *KeySession, env Envelope) (body, error) {
	keys, err := ks.keys()
	if err != nil {
		return body{}, err
	}
	if !env.KeyRef.Equal(keys.ref) {
		return body{}, lperrors.WithMetadata(lperrors.CodeDecryptionFailure, "envelope sealed under another key",
			map[string]string{"keyRef": env.KeyRef.String()})
	}
	plain, err := keys.aead.Decrypt(env.Ciphertext, keys.ref.Bytes())
	if err != nil {
		return body{}, lperrors.Wrap(lperrors.CodeDecryptionFailure, "open envelope", err)
	}
	var b body
	if err := b.UnmarshalBinary(plain); err != nil {
		return body{}, lperrors.Wrap(lperrors.CodeDecryptionFailure, "decode body", err)
	}
	if b.CreatedAt != env.CreatedAt.UnixMilli() {
		return body{}, lperrors.New(lperrors.CodeDecryptionFailure, "envelope timestamp mismatch")
	}
	s.log.WithField("ref", env.Ref().String()).Debug("Opened envelope")
	return b, nil
}
