package near

import (
	"fmt"
	"strings"

	"github.com/anyproto/go-slip10"
	"github.com/vulpemventures/go-bip39"
)

const seedPhraseEntropyBits = 128

// KeyPath is the derivation path used by the NEAR wallet for seed phrases.
const KeyPath = "m/44'/397'/0'"

type SeedPhrase struct {
	Phrase  string
	KeyPair *KeyPair
}

func GenerateSeedPhrase() (*SeedPhrase, error) {
	entropy, err := bip39.NewEntropy(seedPhraseEntropyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %s", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %s", err)
	}

	keyPair, err := KeyPairFromSeedPhrase(mnemonic)
	if err != nil {
		return nil, err
	}
	return &SeedPhrase{mnemonic, keyPair}, nil
}

func KeyPairFromSeedPhrase(phrase string) (*KeyPair, error) {
	mnemonic := NormalizeSeedPhrase(phrase)
	// IsMnemonicValid only looks at the words, the checksum is verified
	// while decoding the entropy.
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid seed phrase")
	}
	if _, err := bip39.MnemonicToByteArray(mnemonic); err != nil {
		return nil, fmt.Errorf("invalid seed phrase")
	}

	seed := bip39.NewSeed(mnemonic, "")
	return deriveKeyPair(seed, KeyPath)
}

func NormalizeSeedPhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// deriveKeyPair derives the SLIP-0010 ed25519 key at path, where every
// segment is hardened.
func deriveKeyPair(seed []byte, path string) (*KeyPair, error) {
	node, err := slip10.DeriveForPath(path, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %s", err)
	}
	_, prvkey := node.Keypair()
	return newKeyPair(prvkey), nil
}
