// Package wallet provides the identity collaborator: who is connected, if
// anyone.
package wallet

import (
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Identity reports the connected account. ok is false when no wallet is
// connected.
type Identity interface {
	Account() (addr common.Address, ok bool)
}

// Disconnected never has an account.
type Disconnected struct{}

// Account always reports no account.
func (Disconnected) Account() (common.Address, bool) { return common.Address{}, false }

// Static is always connected as the given address.
type Static common.Address

// Account always reports s.
func (s Static) Account() (common.Address, bool) { return common.Address(s), true }

// Keyed is a wallet backed by a secp256k1 key that can connect and
// disconnect at runtime.
type Keyed struct {
	mu        sync.RWMutex
	key       *ecdsa.PrivateKey
	connected bool
}

// NewKeyed generates a fresh key. The wallet starts disconnected.
func NewKeyed() (*Keyed, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Keyed{key: key}, nil
}

// LoadKeyed reads a hex key file written by crypto.SaveECDSA.
func LoadKeyed(path string) (*Keyed, error) {
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, err
	}
	return &Keyed{key: key}, nil
}

// Address is the account address whether or not the wallet is connected.
func (k *Keyed) Address() common.Address {
	return crypto.PubkeyToAddress(k.key.PublicKey)
}

// Connect makes Account report the key's address.
func (k *Keyed) Connect() {
	k.mu.Lock()
	k.connected = true
	k.mu.Unlock()
}

// Disconnect makes Account report no account. The key is kept.
func (k *Keyed) Disconnect() {
	k.mu.Lock()
	k.connected = false
	k.mu.Unlock()
}

// Account reports the key's address while connected.
func (k *Keyed) Account() (common.Address, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if !k.connected {
		return common.Address{}, false
	}
	return k.Address(), true
}

// Save writes the key as hex to path.
func (k *Keyed) Save(path string) error {
	return crypto.SaveECDSA(path, k.key)
}
