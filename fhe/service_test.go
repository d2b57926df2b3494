package fhe

import (
	"math"
	"testing"
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/stretchr/testify/require"

	lperrors "github.com/rony4d/secret-loot-path/errors"
)

func newTestSession(t *testing.T) *KeySession {
	ks, err := NewKeySession()
	require.NoError(t, err)
	t.Cleanup(ks.Destroy)
	return ks
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)

	for _, v := range []int64{0, 1, -1, 250, math.MaxInt64, math.MinInt64} {
		env, err := svc.Encrypt(ks, v)
		require.NoError(t, err)
		require.True(t, env.KeyRef.Equal(ks.Ref()))

		got, err := svc.Decrypt(ks, env)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestEncryptIsSalted(t *testing.T) {
	svc := NewService(WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	ks := newTestSession(t)

	a, err := svc.Encrypt(ks, 42)
	require.NoError(t, err)
	b, err := svc.Encrypt(ks, 42)
	require.NoError(t, err)

	require.Equal(t, len(a.Ciphertext), len(b.Ciphertext))
	require.NotEqual(t, a.Ciphertext, b.Ciphertext)
	require.NotEqual(t, a.Ref(), b.Ref())
	require.Equal(t, a.CreatedAt, b.CreatedAt)
}

func TestOperate(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)

	seal := func(v int64) Envelope {
		env, err := svc.Encrypt(ks, v)
		require.NoError(t, err)
		return env
	}

	for _, tc := range []struct{ a, b int64 }{
		{0, 0}, {100, 150}, {-7, 3}, {3, -7}, {5, 5}, {math.MaxInt32, 2},
	} {
		a, b := seal(tc.a), seal(tc.b)

		for _, c := range []struct {
			op  Operation
			exp int64
		}{
			{Add{a, b}, tc.a + tc.b},
			{Multiply{a, b}, tc.a * tc.b},
			{Compare{a, b}, boolScalar(tc.a > tc.b)},
		} {
			out, err := svc.Operate(ks, c.op)
			require.NoError(t, err)
			got, err := svc.Decrypt(ks, out)
			require.NoError(t, err)
			require.Equal(t, c.exp, got, "%s(%d, %d)", c.op.Kind(), tc.a, tc.b)
		}
	}
}

func boolScalar(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func TestOperateOverflow(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)

	max, err := svc.Encrypt(ks, math.MaxInt64)
	require.NoError(t, err)
	two, err := svc.Encrypt(ks, 2)
	require.NoError(t, err)
	minusOne, err := svc.Encrypt(ks, -1)
	require.NoError(t, err)
	min, err := svc.Encrypt(ks, math.MinInt64)
	require.NoError(t, err)

	for _, op := range []Operation{Add{max, two}, Multiply{max, two}, Multiply{minusOne, min}, Add{min, minusOne}} {
		_, err = svc.Operate(ks, op)
		require.True(t, lperrors.HasCode(err, lperrors.CodeInvalidArgument), op.Kind())
	}
}

func TestDecryptFailures(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)
	other := newTestSession(t)

	env, err := svc.Encrypt(ks, 9)
	require.NoError(t, err)

	// Sealed under another session.
	_, err = svc.Decrypt(other, env)
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)

	// Key ref swapped to pretend to be from the other session.
	forged := env.Copy()
	forged.KeyRef = other.Ref()
	_, err = svc.Decrypt(other, forged)
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)

	// Flipped ciphertext byte.
	tampered := env.Copy()
	tampered.Ciphertext[len(tampered.Ciphertext)-1] ^= 1
	_, err = svc.Decrypt(ks, tampered)
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)

	// Metadata timestamp no longer matches the sealed one.
	moved := env.Copy()
	moved.CreatedAt = moved.CreatedAt.Add(time.Second)
	_, err = svc.Decrypt(ks, moved)
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)

	// Malformed envelope.
	_, err = svc.Decrypt(ks, Envelope{KeyRef: ks.Ref()})
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)
}

func TestBlobEnvelopes(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)

	env, err := svc.EncryptBytes(ks, []byte("intent"))
	require.NoError(t, err)
	got, err := svc.DecryptBytes(ks, env)
	require.NoError(t, err)
	require.Equal(t, []byte("intent"), got)

	_, err = svc.Decrypt(ks, env)
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)

	scalar, err := svc.Encrypt(ks, 1)
	require.NoError(t, err)
	_, err = svc.DecryptBytes(ks, scalar)
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)

	_, err = svc.Operate(ks, Add{env, scalar})
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)
}

func TestDestroyedSession(t *testing.T) {
	svc := NewService()
	ks, err := NewKeySession()
	require.NoError(t, err)

	env, err := svc.Encrypt(ks, 5)
	require.NoError(t, err)

	ks.Destroy()
	ks.Destroy()
	require.False(t, ks.Active())

	_, err = svc.Encrypt(ks, 5)
	require.ErrorIs(t, err, lperrors.ErrNotInitialized)
	_, err = svc.Decrypt(ks, env)
	require.ErrorIs(t, err, lperrors.ErrNotInitialized)
	_, err = svc.Encrypt(nil, 5)
	require.ErrorIs(t, err, lperrors.ErrNotInitialized)
	require.False(t, ks.Ref().Empty())
}

func TestWithKeySession(t *testing.T) {
	var kept *KeySession
	err := WithKeySession(func(ks *KeySession) error {
		kept = ks
		require.True(t, ks.Active())
		return nil
	})
	require.NoError(t, err)
	require.False(t, kept.Active())
}

func TestExportLoad(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)
	dir := t.TempDir()

	env, err := svc.Encrypt(ks, 77)
	require.NoError(t, err)
	require.NoError(t, ks.Export(dir))

	loaded, err := LoadKeySession(dir)
	require.NoError(t, err)
	defer loaded.Destroy()
	require.True(t, loaded.Ref().Equal(ks.Ref()))

	got, err := svc.Decrypt(loaded, env)
	require.NoError(t, err)
	require.Equal(t, int64(77), got)

	_, err = LoadKeySession(t.TempDir())
	require.ErrorIs(t, err, lperrors.ErrNotInitialized)
}

func TestProofRoundTrip(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)

	a, _ := svc.Encrypt(ks, 100)
	b, _ := svc.Encrypt(ks, 150)
	out, err := svc.Operate(ks, Add{a, b})
	require.NoError(t, err)

	p, err := svc.GenerateProof(ks, OpAdd, []Envelope{a, b}, out)
	require.NoError(t, err)
	require.True(t, svc.VerifyProof(p))
	require.Equal(t, []hash.Hash{a.Ref(), b.Ref()}, p.PublicInputs)

	st, err := p.Statement()
	require.NoError(t, err)
	require.Equal(t, OpAdd, st.Op)
	require.Equal(t, out.Ref(), st.Output)
}

func TestProofTampering(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)

	a, _ := svc.Encrypt(ks, 1)
	b, _ := svc.Encrypt(ks, 2)
	out, _ := svc.Operate(ks, Multiply{a, b})
	p, err := svc.GenerateProof(ks, OpMultiply, []Envelope{a, b}, out)
	require.NoError(t, err)

	swapped := p
	swapped.PublicInputs = []hash.Hash{p.PublicInputs[1], p.PublicInputs[0]}
	require.False(t, VerifyProof(swapped))

	// An add proof over a product is never issued.
	_, err = svc.GenerateProof(ks, OpAdd, []Envelope{a, b}, out)
	require.ErrorIs(t, err, lperrors.ErrProofInvalid)

	// Same statement over fresh ciphertexts of the same values.
	c, _ := svc.Encrypt(ks, 1)
	d, _ := svc.Encrypt(ks, 2)
	out2, _ := svc.Operate(ks, Multiply{c, d})
	other, err := svc.GenerateProof(ks, OpMultiply, []Envelope{c, d}, out2)
	require.NoError(t, err)
	require.True(t, VerifyProof(other))
	substituted := p
	substituted.ProofBytes = other.ProofBytes
	require.False(t, VerifyProof(substituted))

	flipped := p
	flipped.ProofBytes = append([]byte(nil), p.ProofBytes...)
	flipped.ProofBytes[3] ^= 0x10
	require.False(t, VerifyProof(flipped))

	foreign := p
	foreign.VerificationKeyRef = newTestSession(t).Ref()
	require.False(t, VerifyProof(foreign))

	dropped := p
	dropped.PublicInputs = p.PublicInputs[:1]
	require.False(t, VerifyProof(dropped))
}

func TestVerifyProofNeverPanics(t *testing.T) {
	for _, p := range []Proof{
		{},
		{ProofBytes: []byte{0x80}},
		{ProofBytes: []byte{1, 2, 3}, VerificationKeyRef: KeyRef{Type: KeyTypes.Secp256k1}},
		{ProofBytes: make([]byte, 200), VerificationKeyRef: KeyRef{Type: KeyTypes.Secp256k1, Raw: []byte{4}}},
	} {
		require.NotPanics(t, func() { require.False(t, VerifyProof(p)) })
	}
}

func TestGenerateProofRefusesFalseStatements(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)

	two, _ := svc.Encrypt(ks, 2)
	three, _ := svc.Encrypt(ks, 3)
	five, _ := svc.Encrypt(ks, 5)
	six, _ := svc.Encrypt(ks, 6)
	ninetyNine, _ := svc.Encrypt(ks, 99)
	one, _ := svc.Encrypt(ks, 1)

	for _, tc := range []struct {
		name   string
		op     OpKind
		inputs []Envelope
		output Envelope
		ok     bool
	}{
		{"2+3=5", OpAdd, []Envelope{two, three}, five, true},
		{"2+3=99", OpAdd, []Envelope{two, three}, ninetyNine, false},
		{"2*3=6", OpMultiply, []Envelope{two, three}, six, true},
		{"2*3=5", OpMultiply, []Envelope{two, three}, five, false},
		{"3>2", OpCompare, []Envelope{three, two}, one, true},
		{"2>3", OpCompare, []Envelope{two, three}, one, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := svc.GenerateProof(ks, tc.op, tc.inputs, tc.output)
			if tc.ok {
				require.NoError(t, err)
				require.True(t, VerifyProof(p))
				return
			}
			require.ErrorIs(t, err, lperrors.ErrProofInvalid)
			require.Empty(t, p.ProofBytes)
		})
	}
}

func TestGenerateProofChecksArity(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)
	two, _ := svc.Encrypt(ks, 2)
	four, _ := svc.Encrypt(ks, 4)

	_, err := svc.GenerateProof(ks, OpAdd, []Envelope{two}, two)
	require.ErrorIs(t, err, lperrors.ErrInvalidArgument)
	_, err = svc.GenerateProof(ks, OpAdd, []Envelope{two, two, two}, four)
	require.ErrorIs(t, err, lperrors.ErrInvalidArgument)

	foreign := newTestSession(t)
	alien, _ := svc.Encrypt(foreign, 2)
	_, err = svc.GenerateProof(ks, OpAdd, []Envelope{two, alien}, four)
	require.ErrorIs(t, err, lperrors.ErrDecryptionFailure)
}

func TestGenerateProofRejectsReveal(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)
	out, _ := svc.Encrypt(ks, 1)

	_, err := svc.GenerateProof(ks, OpReveal, nil, out)
	require.ErrorIs(t, err, lperrors.ErrInvalidArgument)
	_, err = svc.GenerateProof(ks, OpAdd, nil, Envelope{})
	require.ErrorIs(t, err, lperrors.ErrInvalidArgument)
}

func TestReveal(t *testing.T) {
	svc := NewService()
	ks := newTestSession(t)

	env, err := svc.Encrypt(ks, 250)
	require.NoError(t, err)

	value, p, err := svc.Reveal(ks, env)
	require.NoError(t, err)
	require.Equal(t, int64(250), value)
	require.True(t, VerifyProof(p))
	require.Equal(t, []hash.Hash{env.Ref()}, p.PublicInputs)

	st, err := p.Statement()
	require.NoError(t, err)
	require.Equal(t, OpReveal, st.Op)
	require.Equal(t, RevealCommitment(250), st.Output)
	require.NotEqual(t, RevealCommitment(251), st.Output)
}
