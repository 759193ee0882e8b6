package keyid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TrackType tags a content key with the kind of track it protects.
type TrackType string

const (
	TrackAudio TrackType = "AUDIO"
	TrackSD    TrackType = "SD"
	TrackHD    TrackType = "HD"
	TrackUHD1  TrackType = "UHD1"
	TrackUHD2  TrackType = "UHD2"
)

// TrackTypes lists the valid track types in their canonical order.
var TrackTypes = []TrackType{TrackAudio, TrackSD, TrackHD, TrackUHD1, TrackUHD2}

// Valid reports whether t is one of TrackTypes.
func (t TrackType) Valid() bool {
	for _, v := range TrackTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseTrackTypes parses a comma separated, case insensitive list such as
// "sd,hd,audio". Unknown names are dropped.
func ParseTrackTypes(s string) []TrackType {
	var out []TrackType
	for _, item := range strings.Split(s, ",") {
		t := TrackType(strings.ToUpper(strings.TrimSpace(item)))
		if t.Valid() {
			out = append(out, t)
		}
	}
	return out
}

// Entry pairs a key ID with its content key.
type Entry struct {
	KeyID KeyID
	Key   []byte // 16-byte AES content key, may be nil when only the ID is known
	Type  TrackType
}

// NewEntry normalizes id and validates the key length.
func NewEntry(id any, key []byte, t TrackType) (Entry, error) {
	k, err := Parse(id)
	if err != nil {
		return Entry{}, err
	}
	if key != nil && len(key) != Size {
		return Entry{}, fmt.Errorf("content key for %s must be %d bytes, got %d", k, Size, len(key))
	}
	if t != "" && !t.Valid() {
		return Entry{}, fmt.Errorf("unknown track type %q", t)
	}
	return Entry{KeyID: k, Key: key, Type: t}, nil
}

// ForTrack returns a deterministic key ID for a content ID and track type,
// a name-based (version 5) UUID of "<contentID>-<track>".
func ForTrack(contentID string, t TrackType) KeyID {
	return KeyID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(contentID+"-"+string(t))))
}
