package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Hash32 is the raw output size of the payload hash.
const Hash32 = 32

// SHA3Hash computes the SHA3-256 checksum of the canonical payload
// bytes and returns it hex-encoded. This is the ledger hash function:
// transaction, batch, proposal and block hashes all come from here.
func SHA3Hash(b []byte) string {
	v := sha3.Sum256(b)
	return hex.EncodeToString(v[:])
}

// SHA3HashBytes computes the SHA3-256 checksum (32 bytes).
func SHA3HashBytes(b []byte) [32]byte {
	return sha3.Sum256(b)
}

// SHA256Hash computes the SHA2-256 checksum and returns it hex-encoded.
// Used for signatures made with sha2-flavoured ed25519 keys.
func SHA256Hash(b []byte) string {
	v := sha256.Sum256(b)
	return hex.EncodeToString(v[:])
}

// SHA256HashBytes computes the SHA2-256 checksum (32 bytes).
func SHA256HashBytes(b []byte) [32]byte {
	return sha256.Sum256(b)
}
