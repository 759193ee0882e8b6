package playready

import (
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cpixkit/cpix/pkg/keyid"
)

const (
	// MinSeedSize is the minimum key seed length in bytes.
	MinSeedSize = 30

	// ContentKeySize is the size of a PlayReady content key.
	ContentKeySize = 16
)

// DecodeSeed decodes a base64 key seed and checks its length.
func DecodeSeed(s string) ([]byte, error) {
	seed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, newError("derive", fmt.Errorf("decode key seed: %w", err))
	}
	if len(seed) < MinSeedSize {
		return nil, newError("derive", fmt.Errorf("%w: %d bytes, need at least %d", ErrSeedTooShort, len(seed), MinSeedSize))
	}
	return seed, nil
}

// DeriveContentKey derives the content key for a key ID from a key seed
// using the PlayReady key seed algorithm. The key ID is hashed in GUID byte
// order; each of the three SHA-256 digests is folded into the result by
// XOR-ing its two halves.
func DeriveContentKey(kid keyid.KeyID, seed []byte) ([]byte, error) {
	if len(seed) < MinSeedSize {
		return nil, newError("derive", fmt.Errorf("%w: %d bytes, need at least %d", ErrSeedTooShort, len(seed), MinSeedSize))
	}
	guid := kid.GUIDBytes()

	digest := func(parts ...[]byte) []byte {
		h := sha256.New()
		for _, p := range parts {
			h.Write(p)
		}
		return h.Sum(nil)
	}
	a := digest(seed, guid)
	b := digest(seed, guid, seed)
	c := digest(seed, guid, seed, guid)

	key := make([]byte, ContentKeySize)
	for i := range key {
		key[i] = a[i] ^ a[i+16] ^ b[i] ^ b[i+16] ^ c[i] ^ c[i+16]
	}
	return key, nil
}

// DeriveEntries derives a content key for every key ID.
func DeriveEntries(kids []keyid.KeyID, seed []byte) ([]keyid.Entry, error) {
	entries := make([]keyid.Entry, 0, len(kids))
	for _, kid := range kids {
		key, err := DeriveContentKey(kid, seed)
		if err != nil {
			return nil, err
		}
		entries = append(entries, keyid.Entry{KeyID: kid, Key: key})
	}
	return entries, nil
}

// Checksum returns the KID checksum used by AESCTR headers: the GUID ordered
// key ID encrypted with the content key in a single AES-ECB block, truncated
// to 8 bytes and base64 encoded.
func Checksum(kid keyid.KeyID, contentKey []byte) (string, error) {
	if len(contentKey) != ContentKeySize {
		return "", newError("checksum", fmt.Errorf("%w: %d bytes, need %d", ErrInvalidContentKey, len(contentKey), ContentKeySize))
	}
	block, err := aes.NewCipher(contentKey)
	if err != nil {
		return "", newError("checksum", err)
	}
	out := make([]byte, aes.BlockSize)
	block.Encrypt(out, kid.GUIDBytes())
	return base64.StdEncoding.EncodeToString(out[:8]), nil
}
