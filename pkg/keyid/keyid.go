// Package keyid normalizes 128-bit content key identifiers.
//
// Key IDs reach the builders as hyphenated GUID strings, bare hex strings,
// raw 16-byte slices or typed UUID values. Parse reduces all of them to a
// KeyID holding the big-endian (network order) bytes. GUIDBytes returns the
// little-endian GUID layout expected by PlayReady.
package keyid

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Size is the byte length of a key ID.
const Size = 16

// ErrInvalidKeyID indicates a value that cannot be reduced to 16 raw bytes.
var ErrInvalidKeyID = errors.New("invalid key ID")

// KeyID is a 128-bit key identifier in network byte order.
type KeyID [Size]byte

// Nil is the all-zero key ID.
var Nil KeyID

// Parse converts a string, byte slice, uuid.UUID, [16]byte or KeyID into a KeyID.
//
// Strings may be hyphenated ("0dc3ec4f-7683-548b-81e7-3c64e582e136"), braced,
// urn:uuid prefixed or 32 hex digits. A byte slice of exactly 16 bytes is taken
// as raw key ID bytes; any other length is parsed as ASCII text.
func Parse(v any) (KeyID, error) {
	switch t := v.(type) {
	case KeyID:
		return t, nil
	case *KeyID:
		if t == nil {
			return Nil, fmt.Errorf("%w: nil pointer", ErrInvalidKeyID)
		}
		return *t, nil
	case uuid.UUID:
		return KeyID(t), nil
	case [Size]byte:
		return KeyID(t), nil
	case string:
		return parseString(t)
	case []byte:
		if len(t) == Size {
			var k KeyID
			copy(k[:], t)
			return k, nil
		}
		return parseString(string(t))
	default:
		return Nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidKeyID, v)
	}
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(v any) KeyID {
	k, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return k
}

func parseString(s string) (KeyID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("%w: %q: %v", ErrInvalidKeyID, s, err)
	}
	return KeyID(u), nil
}

// ParseList parses a comma separated list of key IDs. Empty items are skipped.
func ParseList(s string) ([]KeyID, error) {
	var ids []KeyID
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		k, err := Parse(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, k)
	}
	return ids, nil
}

// ParseAll normalizes a slice of mixed key ID representations.
func ParseAll[T any](values []T) ([]KeyID, error) {
	ids := make([]KeyID, 0, len(values))
	for i, v := range values {
		k, err := Parse(v)
		if err != nil {
			return nil, fmt.Errorf("key ID %d: %w", i, err)
		}
		ids = append(ids, k)
	}
	return ids, nil
}

// FromGUIDBytes builds a KeyID from its little-endian GUID layout.
func FromGUIDBytes(b []byte) (KeyID, error) {
	if len(b) != Size {
		return Nil, fmt.Errorf("%w: GUID must be %d bytes, got %d", ErrInvalidKeyID, Size, len(b))
	}
	var k KeyID
	copy(k[:], b)
	swapGUID(k[:])
	return k, nil
}

// Bytes returns the key ID in network byte order.
func (k KeyID) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, k[:])
	return b
}

// GUIDBytes returns the key ID with the first three GUID fields
// (4, 2 and 2 bytes) byte-swapped, as stored by PlayReady.
func (k KeyID) GUIDBytes() []byte {
	b := k.Bytes()
	swapGUID(b)
	return b
}

func swapGUID(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
}

// UUID returns the key ID as a uuid.UUID.
func (k KeyID) UUID() uuid.UUID { return uuid.UUID(k) }

// String returns the lower case hyphenated form.
func (k KeyID) String() string { return uuid.UUID(k).String() }

// Hex returns 32 upper case hex digits.
func (k KeyID) Hex() string { return strings.ToUpper(hex.EncodeToString(k[:])) }

// IsNil reports whether k is the all-zero key ID.
func (k KeyID) IsNil() bool { return k == Nil }

// MarshalText implements encoding.TextMarshaler.
func (k KeyID) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *KeyID) UnmarshalText(b []byte) error {
	parsed, err := parseString(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
