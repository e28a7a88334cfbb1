package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Multihash type codes for self-describing keys and signatures,
// following the multiformats table.
type MultihashType uint64

const (
	Ed25519Sha2_256 MultihashType = 0xed
	Ed25519Sha3_256 MultihashType = 0x15a16d
)

var ErrBadMultihash = errors.New("malformed multihash")

// Multihash is a typed byte blob: an algorithm code followed by the
// key (or signature) material.
type Multihash struct {
	Type MultihashType
	Data []byte
}

// ParseMultihash decodes a varint type code and the trailing data. A
// bare 32-byte blob is treated as an untagged ed25519-sha3 public key,
// which keeps genesis files written without prefixes working.
func ParseMultihash(b []byte) (Multihash, error) {
	if len(b) == Hash32 {
		return Multihash{Type: Ed25519Sha3_256, Data: b}, nil
	}
	code, n := binary.Uvarint(b)
	if n <= 0 {
		return Multihash{}, ErrBadMultihash
	}
	switch MultihashType(code) {
	case Ed25519Sha2_256, Ed25519Sha3_256:
	default:
		return Multihash{}, fmt.Errorf("unsupported multihash code %#x", code)
	}
	if len(b)-n != Hash32 {
		return Multihash{}, ErrBadMultihash
	}
	return Multihash{Type: MultihashType(code), Data: b[n:]}, nil
}

// Append encodes the multihash as varint code plus data.
func (m Multihash) Append(dst []byte) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(m.Type))
	dst = append(dst, buf[:n]...)
	return append(dst, m.Data...)
}
