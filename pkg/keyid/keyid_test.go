package keyid

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKID = "0dc3ec4f-7683-548b-81e7-3c64e582e136"

func TestParse(t *testing.T) {
	raw, _ := hex.DecodeString("0dc3ec4f7683548b81e73c64e582e136")
	want := KeyID(uuid.MustParse(testKID))

	tests := []struct {
		name  string
		input any
	}{
		{name: "hyphenated", input: testKID},
		{name: "upper hyphenated", input: "0DC3EC4F-7683-548B-81E7-3C64E582E136"},
		{name: "hex", input: "0dc3ec4f7683548b81e73c64e582e136"},
		{name: "hex with prefix", input: "0x0dc3ec4f7683548b81e73c64e582e136"},
		{name: "braced", input: "{0dc3ec4f-7683-548b-81e7-3c64e582e136}"},
		{name: "raw bytes", input: raw},
		{name: "ascii bytes", input: []byte(testKID)},
		{name: "uuid", input: uuid.MustParse(testKID)},
		{name: "array", input: [16]byte(raw)},
		{name: "keyid", input: want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseFail(t *testing.T) {
	for _, input := range []any{"", "not-a-uuid", "0dc3ec4f", []byte{1, 2, 3}, 42, nil} {
		_, err := Parse(input)
		assert.Error(t, err, "%v", input)
		assert.True(t, errors.Is(err, ErrInvalidKeyID))
	}
}

func TestGUIDBytes(t *testing.T) {
	k := MustParse(testKID)

	assert.Equal(t, "4fecc30d83768b5481e73c64e582e136", hex.EncodeToString(k.GUIDBytes()))
	assert.Equal(t, "0dc3ec4f7683548b81e73c64e582e136", hex.EncodeToString(k.Bytes()))

	back, err := FromGUIDBytes(k.GUIDBytes())
	require.NoError(t, err)
	assert.Equal(t, k, back)

	_, err = FromGUIDBytes([]byte{1})
	assert.ErrorIs(t, err, ErrInvalidKeyID)
}

func TestFormatting(t *testing.T) {
	k := MustParse(testKID)
	assert.Equal(t, testKID, k.String())
	assert.Equal(t, "0DC3EC4F7683548B81E73C64E582E136", k.Hex())
	assert.False(t, k.IsNil())
	assert.True(t, Nil.IsNil())

	text, err := k.MarshalText()
	require.NoError(t, err)
	var decoded KeyID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, k, decoded)
}

func TestParseList(t *testing.T) {
	ids, err := ParseList(testKID + ", 1447b7ed2f66572bbd1306ce7cf3610d,")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "1447b7ed-2f66-572b-bd13-06ce7cf3610d", ids[1].String())

	_, err = ParseList("foo,bar")
	assert.Error(t, err)
}

func TestParseAll(t *testing.T) {
	ids, err := ParseAll([]any{testKID, uuid.MustParse(testKID)})
	require.NoError(t, err)
	assert.Equal(t, ids[0], ids[1])

	_, err = ParseAll([]string{"bad"})
	assert.ErrorContains(t, err, "key ID 0")
}

func TestTrackTypes(t *testing.T) {
	assert.Equal(t, []TrackType{TrackSD, TrackHD, TrackAudio}, ParseTrackTypes("sd, HD,audio,foo"))
	assert.True(t, TrackUHD2.Valid())
	assert.False(t, TrackType("4K").Valid())
}

func TestNewEntry(t *testing.T) {
	e, err := NewEntry(testKID, make([]byte, 16), TrackSD)
	require.NoError(t, err)
	assert.Equal(t, testKID, e.KeyID.String())

	_, err = NewEntry(testKID, make([]byte, 15), "")
	assert.Error(t, err)

	_, err = NewEntry(testKID, nil, "8K")
	assert.Error(t, err)
}

func TestForTrack(t *testing.T) {
	a := ForTrack("movie", TrackSD)
	assert.Equal(t, a, ForTrack("movie", TrackSD))
	assert.NotEqual(t, a, ForTrack("movie", TrackHD))
	assert.Equal(t, uuid.Version(5), uuid.UUID(a).Version())
}
