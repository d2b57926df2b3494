package fhe

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// KeyRef identifies the key session that sealed an envelope or signed a
// proof. It decouples the key type from the raw public key bytes.
type KeyRef struct {
	// Type identifies the signature scheme of Raw.
	Type uint8
	// Raw holds the uncompressed public key.
	Raw []byte
}

// KeyTypes lists the supported key reference types.
var KeyTypes = struct {
	Secp256k1 uint8
}{
	Secp256k1: 0xc0,
}

// Empty reports whether the reference is the zero value.
func (ref KeyRef) Empty() bool {
	return len(ref.Raw) == 0 && ref.Type == 0
}

// String returns the 0x-prefixed hex form: type byte followed by Raw.
func (ref KeyRef) String() string {
	return "0x" + common.Bytes2Hex(ref.Bytes())
}

// Bytes returns [Type] + Raw.
func (ref KeyRef) Bytes() []byte {
	return append([]byte{ref.Type}, ref.Raw...)
}

// Equal reports whether both refs name the same key.
func (ref KeyRef) Equal(other KeyRef) bool {
	return ref.Type == other.Type && bytes.Equal(ref.Raw, other.Raw)
}

// Copy returns a deep copy of the reference.
func (ref KeyRef) Copy() KeyRef {
	return KeyRef{
		Type: ref.Type,
		Raw:  common.CopyBytes(ref.Raw),
	}
}

// KeyRefFromString parses a hex string, with or without 0x prefix.
func KeyRefFromString(str string) (KeyRef, error) {
	return KeyRefFromBytes(common.FromHex(str))
}

// KeyRefFromBytes expects the type byte followed by the raw key.
func KeyRefFromBytes(b []byte) (KeyRef, error) {
	if len(b) == 0 {
		return KeyRef{}, errors.New("empty key ref")
	}
	return KeyRef{b[0], common.CopyBytes(b[1:])}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (ref KeyRef) MarshalText() ([]byte, error) {
	return []byte(ref.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ref *KeyRef) UnmarshalText(input []byte) error {
	res, err := KeyRefFromString(string(input))
	if err != nil {
		return err
	}
	*ref = res
	return nil
}
