package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	b58 "github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/ed25519"
)

// Generate a node keypair with the ed25519 algorithm. Since the true
// private key can always be reconstructed from the same seed, the
// randomly generated seed doubles as the private key. The public key
// is returned in the lowercase hex form used across the world state;
// the seed is returned base58-encoded for operator configs.
func GetNodeKeypair() (string, string, error) {
	var seed [32]byte
	_, err := io.ReadFull(rand.Reader, seed[:])
	if err != nil {
		return "", "", err
	}
	privateKey := ed25519.NewKeyFromSeed(seed[:])
	publicKey := privateKey.Public().(ed25519.PublicKey)

	return hex.EncodeToString(publicKey), b58.Encode(seed[:]), nil
}

// GetNodeKeypairFromSeed derives the keypair from a base58 seed.
func GetNodeKeypairFromSeed(seed string) (string, string, error) {
	sd, err := b58.Decode(seed)
	if err != nil {
		return "", "", fmt.Errorf("decode seed failed: %v", err)
	}
	if len(sd) != ed25519.SeedSize {
		return "", "", errors.New("invalid seed, byte length is not 32")
	}
	privateKey := ed25519.NewKeyFromSeed(sd)
	publicKey := privateKey.Public().(ed25519.PublicKey)
	return hex.EncodeToString(publicKey), seed, nil
}

// getPrivateKey reconstructs the private key from the base58 seed.
func getPrivateKey(seed string) (ed25519.PrivateKey, error) {
	if seed == "" {
		return nil, fmt.Errorf("empty seed")
	}
	sd, err := b58.Decode(seed)
	if err != nil {
		return nil, err
	}
	if len(sd) != ed25519.SeedSize {
		return nil, errors.New("invalid seed, byte length is not 32")
	}
	return ed25519.NewKeyFromSeed(sd), nil
}

// Sign signs the payload with the seed. The payload is always prehashed
// with SHA3-256 before the ed25519 signature, which matches the bare
// (sha3-flavoured) public keys derived from seeds. The signature is
// returned hex-encoded.
func Sign(seed string, payload []byte) (string, error) {
	pk, err := getPrivateKey(seed)
	if err != nil {
		return "", err
	}
	digest := SHA3HashBytes(payload)
	signature := ed25519.Sign(pk, digest[:])
	return hex.EncodeToString(signature), nil
}

// Verify checks the hex signature over the payload with the hex public
// key. The key may carry a multihash prefix selecting the sha2 or sha3
// prehash; a bare key defaults to sha3.
func Verify(publicKey, signature string, payload []byte) bool {
	kb, err := hex.DecodeString(strings.ToLower(publicKey))
	if err != nil {
		return false
	}
	mh, err := ParseMultihash(kb)
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	var digest [32]byte
	switch mh.Type {
	case Ed25519Sha2_256:
		digest = SHA256HashBytes(payload)
	default:
		digest = SHA3HashBytes(payload)
	}
	return ed25519.Verify(ed25519.PublicKey(mh.Data), digest[:], sig)
}
