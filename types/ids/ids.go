package ids

import (
	"crypto/sha256"
	"encoding/hex"
)

// ID is a 32-byte sha256 digest. The ledger uses IDs for append receipts
// (transaction IDs) and for chaining audit trail entries.
type ID [32]byte

// Empty is the zero-value ID (all zeros).
var Empty ID

// NewID hashes arbitrary bytes into an ID.
func NewID(data []byte) ID {
	return ID(sha256.Sum256(data))
}

// FromHex parses a 64-character hex string into an ID.
func FromHex(s string) (ID, error) {
	var id ID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	copy(id[:], raw)
	return id, nil
}

// FromString derives an ID from a string by hashing it.
func FromString(s string) ID {
	return NewID([]byte(s))
}

// String renders the ID as lowercase hex.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsEmpty reports whether the ID is the zero value.
func (id ID) IsEmpty() bool {
	return id == Empty
}
