package near

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/hdevalence/ed25519consensus"
)

const ed25519Prefix = "ed25519"

type KeyType uint8

const (
	KeyTypeED25519 KeyType = 0
)

// PublicKey is the borsh layout of a NEAR public key.
type PublicKey struct {
	KeyType KeyType
	Data    [ed25519.PublicKeySize]byte
}

func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := decodeKeyString(s)
	if err != nil {
		return PublicKey{}, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, fmt.Errorf("invalid public key length %d", len(raw))
	}

	pk := PublicKey{KeyType: KeyTypeED25519}
	copy(pk.Data[:], raw)
	return pk, nil
}

func (k PublicKey) String() string {
	return fmt.Sprintf("%s:%s", ed25519Prefix, base58.Encode(k.Data[:]))
}

func (k PublicKey) Verify(msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519consensus.Verify(ed25519.PublicKey(k.Data[:]), msg, sig)
}

type Signature struct {
	KeyType KeyType
	Data    [ed25519.SignatureSize]byte
}

type KeyPair struct {
	publicKey  PublicKey
	privateKey ed25519.PrivateKey
}

func GenerateKeyPair() (*KeyPair, error) {
	_, prvkey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %s", err)
	}
	return newKeyPair(prvkey), nil
}

// KeyPairFromString parses a secret key in the "ed25519:<base58>" format used
// by near-cli credential files. Both 64-byte secret keys and 32-byte seeds
// are accepted.
func KeyPairFromString(s string) (*KeyPair, error) {
	raw, err := decodeKeyString(s)
	if err != nil {
		return nil, err
	}

	switch len(raw) {
	case ed25519.PrivateKeySize:
		prvkey := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(prvkey[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("secret key does not match its public key")
		}
		return newKeyPair(prvkey), nil
	case ed25519.SeedSize:
		return newKeyPair(ed25519.NewKeyFromSeed(raw)), nil
	default:
		return nil, fmt.Errorf("invalid secret key length %d", len(raw))
	}
}

func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed length %d", len(seed))
	}
	return newKeyPair(ed25519.NewKeyFromSeed(seed)), nil
}

func newKeyPair(prvkey ed25519.PrivateKey) *KeyPair {
	pk := PublicKey{KeyType: KeyTypeED25519}
	copy(pk.Data[:], prvkey.Public().(ed25519.PublicKey))
	return &KeyPair{pk, prvkey}
}

func (k *KeyPair) PublicKey() PublicKey {
	return k.publicKey
}

func (k *KeyPair) Sign(msg []byte) Signature {
	sig := Signature{KeyType: KeyTypeED25519}
	copy(sig.Data[:], ed25519.Sign(k.privateKey, msg))
	return sig
}

func (k *KeyPair) Verify(msg, sig []byte) bool {
	return k.publicKey.Verify(msg, sig)
}

// SignMessage signs the sha256 digest of msg, the convention used for
// off-chain messages such as signed relayer requests.
func (k *KeyPair) SignMessage(msg []byte) Signature {
	hash := sha256.Sum256(msg)
	return k.Sign(hash[:])
}

func (k PublicKey) VerifyMessage(msg, sig []byte) bool {
	hash := sha256.Sum256(msg)
	return k.Verify(hash[:], sig)
}

// String returns the secret key in the same format accepted by
// KeyPairFromString.
func (k *KeyPair) String() string {
	return fmt.Sprintf("%s:%s", ed25519Prefix, base58.Encode(k.privateKey))
}

func decodeKeyString(s string) ([]byte, error) {
	encoded := s
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		if strings.ToLower(prefix) != ed25519Prefix {
			return nil, fmt.Errorf("unsupported key type %s", prefix)
		}
		encoded = rest
	}
	if len(encoded) <= 0 {
		return nil, fmt.Errorf("missing key data")
	}

	raw := base58.Decode(encoded)
	if len(raw) <= 0 {
		return nil, fmt.Errorf("invalid base58 key data")
	}
	return raw, nil
}
