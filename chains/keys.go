// Package chains provides the Cosmos ledger interaction: keys, accounts, transactions and broadcast
package chains

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/crypto/ripemd160"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"

	"github.com/sljivkov/fiatoracle/domain"
)

// DefaultDerivationPath is the BIP-44 path of the first Cosmos (coin type 118) account.
const DefaultDerivationPath = "m/44'/118'/0'/0/0"

var errIdentityClosed = errors.New("identity is closed")

// Identity is the signer derived from the admin seed phrase.
// The private key never leaves this type and is wiped by Close.
type Identity struct {
	secret  []byte
	pubKey  []byte
	address string
}

// ResolveIdentity derives the secp256k1 key at path from a BIP-39 mnemonic
// (empty passphrase) and encodes its address with the bech32 prefix.
func ResolveIdentity(mnemonic, path, prefix string) (*Identity, error) {
	if prefix == "" {
		return nil, &domain.KeyError{Op: "resolve identity", Err: fmt.Errorf("address prefix is empty")}
	}

	indexes, err := ParseDerivationPath(path)
	if err != nil {
		return nil, &domain.KeyError{Op: "parse derivation path", Err: err}
	}

	seed, err := bip39.NewSeedWithErrorChecking(strings.Join(strings.Fields(mnemonic), " "), "")
	if err != nil {
		return nil, &domain.KeyError{Op: "decode mnemonic", Err: err}
	}
	defer clear(seed)

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, &domain.KeyError{Op: "derive master key", Err: err}
	}

	for _, index := range indexes {
		child, err := key.Derive(index)
		key.Zero()

		if err != nil {
			return nil, &domain.KeyError{Op: "derive child key", Err: err}
		}

		key = child
	}
	defer key.Zero()

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, &domain.KeyError{Op: "extract private key", Err: err}
	}

	return newIdentity(priv, prefix)
}

func newIdentity(priv *btcec.PrivateKey, prefix string) (*Identity, error) {
	defer priv.Zero()

	pubKey := priv.PubKey().SerializeCompressed()

	address, err := EncodeAddress(prefix, pubKey)
	if err != nil {
		return nil, &domain.KeyError{Op: "encode address", Err: err}
	}

	return &Identity{
		secret:  priv.Serialize(),
		pubKey:  pubKey,
		address: address,
	}, nil
}

// Address returns the bech32 account address.
func (id *Identity) Address() string { return id.address }

// PubKey returns a copy of the 33-byte compressed public key.
func (id *Identity) PubKey() []byte {
	out := make([]byte, len(id.pubKey))
	copy(out, id.pubKey)

	return out
}

// Close wipes the private key. Signing fails afterwards.
func (id *Identity) Close() {
	if id == nil {
		return
	}

	clear(id.secret)
	id.secret = nil
}

// String never includes key material.
func (id *Identity) String() string { return id.address }

// sign returns the 64-byte R||S signature of SHA-256(msg), with a low S value.
func (id *Identity) sign(msg []byte) ([]byte, error) {
	if id.secret == nil {
		return nil, errIdentityClosed
	}

	key, err := crypto.ToECDSA(id.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	digest := sha256.Sum256(msg)

	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// drop the recovery id
	return sig[:64], nil
}

// verify checks a 64-byte R||S signature of SHA-256(msg) against a compressed public key.
func verify(pubKey, msg, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}

	digest := sha256.Sum256(msg)

	return crypto.VerifySignature(pubKey, digest[:], sig)
}

// ParseDerivationPath parses a BIP-32 path such as m/44'/118'/0'/0/0.
// Hardened components are marked with ' or h.
func ParseDerivationPath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, fmt.Errorf("derivation path %q must start with m/", path)
	}

	indexes := make([]uint32, 0, len(parts)-1)

	for _, part := range parts[1:] {
		hardened := false

		if strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") || strings.HasSuffix(part, "H") {
			hardened = true
			part = part[:len(part)-1]
		}

		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil || n >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("invalid derivation path component %q", part)
		}

		index := uint32(n)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}

		indexes = append(indexes, index)
	}

	return indexes, nil
}

// EncodeAddress returns bech32(prefix, RIPEMD160(SHA256(pubKey))).
func EncodeAddress(prefix string, pubKey []byte) (string, error) {
	sha := sha256.Sum256(pubKey)

	h := ripemd160.New()
	h.Write(sha[:])

	data, err := bech32.ConvertBits(h.Sum(nil), 8, 5, true)
	if err != nil {
		return "", err
	}

	return bech32.Encode(prefix, data)
}

// ValidateAddress checks that addr is a bech32 account or contract address
// and returns its prefix.
func ValidateAddress(addr string) (string, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("invalid bech32 address %q: %w", addr, err)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("invalid bech32 address %q: %w", addr, err)
	}

	if len(raw) != 20 && len(raw) != 32 {
		return "", fmt.Errorf("invalid bech32 address %q: unexpected length %d", addr, len(raw))
	}

	return hrp, nil
}
