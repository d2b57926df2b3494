package fhe

import (
	"crypto/ecdsa"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	"github.com/tink-crypto/tink-go/v2/tink"

	lperrors "github.com/rony4d/secret-loot-path/errors"
)

const (
	aeadKeysetFile = "envelope.keyset.json"
	proofKeyFile   = "proof.key"
)

// KeySession owns the key material of one envelope domain: an AES-256-GCM
// keyset sealing envelope bodies and a secp256k1 key signing proofs. The
// material is read-only between NewKeySession and Destroy.
type KeySession struct {
	mu     sync.RWMutex
	ref    KeyRef
	handle *keyset.Handle
	aead   tink.AEAD
	signer *ecdsa.PrivateKey
}

// NewKeySession generates fresh key material.
func NewKeySession() (*KeySession, error) {
	handle, err := keyset.NewHandle(aead.AES256GCMKeyTemplate())
	if err != nil {
		return nil, lperrors.Wrap(lperrors.CodeNotInitialized, "generate envelope keyset", err)
	}
	signer, err := crypto.GenerateKey()
	if err != nil {
		return nil, lperrors.Wrap(lperrors.CodeNotInitialized, "generate proof key", err)
	}
	return newKeySession(handle, signer)
}

func newKeySession(handle *keyset.Handle, signer *ecdsa.PrivateKey) (*KeySession, error) {
	primitive, err := aead.New(handle)
	if err != nil {
		return nil, lperrors.Wrap(lperrors.CodeNotInitialized, "envelope primitive", err)
	}
	return &KeySession{
		ref: KeyRef{
			Type: KeyTypes.Secp256k1,
			Raw:  crypto.FromECDSAPub(&signer.PublicKey),
		},
		handle: handle,
		aead:   primitive,
		signer: signer,
	}, nil
}

// WithKeySession runs fn with a new key session and destroys it afterwards.
func WithKeySession(fn func(ks *KeySession) error) error {
	ks, err := NewKeySession()
	if err != nil {
		return err
	}
	defer ks.Destroy()
	return fn(ks)
}

// Ref returns the session's key reference. It stays valid after Destroy so
// callers can still name the session in logs.
func (ks *KeySession) Ref() KeyRef {
	return ks.ref.Copy()
}

// Destroy zeroes the signing key and drops the keyset. Further use fails
// with NotInitialized. Destroy is idempotent.
func (ks *KeySession) Destroy() {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.signer != nil {
		ks.signer.D.SetInt64(0)
	}
	ks.signer = nil
	ks.aead = nil
	ks.handle = nil
}

// Active reports whether the session still holds key material.
func (ks *KeySession) Active() bool {
	if ks == nil {
		return false
	}
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.aead != nil
}

type sessionKeys struct {
	ref    KeyRef
	aead   tink.AEAD
	signer *ecdsa.PrivateKey
}

func (ks *KeySession) keys() (sessionKeys, error) {
	if ks == nil {
		return sessionKeys{}, lperrors.New(lperrors.CodeNotInitialized, "no key session")
	}
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.aead == nil || ks.signer == nil {
		return sessionKeys{}, lperrors.New(lperrors.CodeNotInitialized, "key session destroyed")
	}
	return sessionKeys{ref: ks.ref, aead: ks.aead, signer: ks.signer}, nil
}

// Export writes the keyset as cleartext JSON and the proof key as a hex file
// into dir. The files are only as safe as dir.
func (ks *KeySession) Export(dir string) error {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.handle == nil || ks.signer == nil {
		return lperrors.New(lperrors.CodeNotInitialized, "key session destroyed")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, aeadKeysetFile), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if err := insecurecleartextkeyset.Write(ks.handle, keyset.NewJSONWriter(f)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return crypto.SaveECDSA(filepath.Join(dir, proofKeyFile), ks.signer)
}

// LoadKeySession reads key material written by Export.
func LoadKeySession(dir string) (*KeySession, error) {
	f, err := os.Open(filepath.Join(dir, aeadKeysetFile))
	if err != nil {
		return nil, lperrors.Wrap(lperrors.CodeNotInitialized, "open envelope keyset", err)
	}
	defer f.Close()
	handle, err := insecurecleartextkeyset.Read(keyset.NewJSONReader(f))
	if err != nil {
		return nil, lperrors.Wrap(lperrors.CodeNotInitialized, "read envelope keyset", err)
	}
	signer, err := crypto.LoadECDSA(filepath.Join(dir, proofKeyFile))
	if err != nil {
		return nil, lperrors.Wrap(lperrors.CodeNotInitialized, "read proof key", err)
	}
	return newKeySession(handle, signer)
}
