package purchase

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	lperrors "github.com/rony4d/secret-loot-path/errors"
	"github.com/rony4d/secret-loot-path/fhe"
)

// Intent is the purchase record sealed into the battle pass request.
type Intent struct {
	Tier        uint32
	PriceWei    *big.Int
	TimestampMs uint64
	Buyer       common.Address
}

// MarshalBinary encodes the intent as RLP.
func (i Intent) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(&i)
}

// UnmarshalBinary decodes the RLP form written by MarshalBinary.
func (i *Intent) UnmarshalBinary(raw []byte) error {
	return rlp.DecodeBytes(raw, i)
}

// DecodeIntent opens the intent attached to a battle pass. raw is the
// binary form of the sealed envelope.
func DecodeIntent(svc *fhe.Service, ks *fhe.KeySession, raw []byte) (Intent, error) {
	var env fhe.Envelope
	if err := env.UnmarshalBinary(raw); err != nil {
		return Intent{}, lperrors.Wrap(lperrors.CodeDecryptionFailure, "decode intent envelope", err)
	}
	plain, err := svc.DecryptBytes(ks, env)
	if err != nil {
		return Intent{}, err
	}
	var intent Intent
	if err := intent.UnmarshalBinary(plain); err != nil {
		return Intent{}, lperrors.Wrap(lperrors.CodeDecryptionFailure, "decode intent", err)
	}
	return intent, nil
}
