package playready

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/pssh"
)

const (
	testSeed = TestServerKeySeed
	testURL  = TestServerURL

	testHeaderXML = `<WRMHEADER xmlns="http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader" version="4.2.0.0">` +
		`<DATA><PROTECTINFO><KIDS><KID ALGID="AESCTR" CHECKSUM="g/pii7GhZPo=" VALUE="T+zDDYN2i1SB5zxk5YLhNg=="></KID></KIDS></PROTECTINFO>` +
		`<LA_URL>https://test.playready.microsoft.com/service/rightsmanager.asmx</LA_URL></DATA></WRMHEADER>`
)

var (
	kid1 = keyid.MustParse("0dc3ec4f-7683-548b-81e7-3c64e582e136")
	kid2 = keyid.MustParse("1447b7ed-2f66-572b-bd13-06ce7cf3610d")
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func testSeedBytes(t *testing.T) []byte {
	t.Helper()
	seed, err := DecodeSeed(testSeed)
	require.NoError(t, err)
	return seed
}

func testEntries(t *testing.T, kids ...keyid.KeyID) []keyid.Entry {
	t.Helper()
	entries, err := DeriveEntries(kids, testSeedBytes(t))
	require.NoError(t, err)
	return entries
}

func TestDeriveContentKey(t *testing.T) {
	seed := testSeedBytes(t)
	assert.Len(t, seed, 30)

	tests := []struct {
		kid  keyid.KeyID
		want string
	}{
		{kid1, "1af6087841ad35f880a82f93d1efcbcf"},
		{kid2, "e66e0ea2552d230ea09ba2429b862c75"},
	}
	for _, tt := range tests {
		t.Run(tt.kid.String(), func(t *testing.T) {
			key, err := DeriveContentKey(tt.kid, seed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(key))
		})
	}
}

func TestDeriveContentKeyShortSeed(t *testing.T) {
	_, err := DeriveContentKey(kid1, make([]byte, MinSeedSize-1))
	assert.ErrorIs(t, err, ErrSeedTooShort)

	_, err = DecodeSeed(base64.StdEncoding.EncodeToString(make([]byte, 20)))
	assert.ErrorIs(t, err, ErrSeedTooShort)

	_, err = DecodeSeed("not base64!")
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		kid  keyid.KeyID
		key  string
		want string
	}{
		{kid1, "1af6087841ad35f880a82f93d1efcbcf", "g/pii7GhZPo="},
		{kid2, "e66e0ea2552d230ea09ba2429b862c75", "AnHzxtmKoHk="},
	}
	for _, tt := range tests {
		got, err := Checksum(tt.kid, mustHex(t, tt.key))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Checksum(kid1, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidContentKey)
	_, err = Checksum(kid1, nil)
	assert.ErrorIs(t, err, ErrInvalidContentKey)
}

func TestBuildHeaderXML(t *testing.T) {
	got, err := buildHeaderXML(HeaderParams{
		Keys:        testEntries(t, kid1),
		LicenseURL:  testURL,
		Algorithm:   AESCTR,
		UseChecksum: true,
	})
	require.NoError(t, err)
	assert.Equal(t, testHeaderXML, got)
	assert.Len(t, got, 322)
}

func TestBuildHeaderVersions(t *testing.T) {
	entries := testEntries(t, kid1, kid2)

	tests := []struct {
		name        string
		alg         AlgorithmID
		checksum    bool
		wantVersion string
		wantCount   int
	}{
		{name: "ctr checksum", alg: AESCTR, checksum: true, wantVersion: `version="4.2.0.0"`, wantCount: 2},
		{name: "ctr no checksum", alg: AESCTR, wantVersion: `version="4.2.0.0"`},
		{name: "cbc ignores checksum", alg: AESCBC, checksum: true, wantVersion: `version="4.3.0.0"`},
		{name: "default is ctr", checksum: true, wantVersion: `version="4.2.0.0"`, wantCount: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildHeaderXML(HeaderParams{Keys: entries, LicenseURL: testURL, Algorithm: tt.alg, UseChecksum: tt.checksum})
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantVersion)
			assert.Equal(t, tt.wantCount, strings.Count(got, "CHECKSUM="))
			assert.Equal(t, 2, strings.Count(got, "<KID "))
			assert.False(t, strings.HasPrefix(got, "<?xml"))
		})
	}
}

func TestBuildHeaderFail(t *testing.T) {
	_, err := BuildHeader(HeaderParams{Keys: testEntries(t, kid1), Algorithm: "AESECB"})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = BuildHeader(HeaderParams{Algorithm: AESCTR})
	assert.ErrorIs(t, err, ErrNoKeys)

	// checksum needs the content key
	_, err = BuildHeader(HeaderParams{Keys: []keyid.Entry{{KeyID: kid1}}, UseChecksum: true})
	assert.ErrorIs(t, err, ErrInvalidContentKey)

	// without checksum the key is not needed
	_, err = BuildHeader(HeaderParams{Keys: []keyid.Entry{{KeyID: kid1}}})
	assert.NoError(t, err)
}

func TestBuildHeaderUTF16(t *testing.T) {
	b, err := BuildHeader(HeaderParams{Keys: testEntries(t, kid1), LicenseURL: testURL, UseChecksum: true})
	require.NoError(t, err)
	assert.Len(t, b, 644)
	assert.Equal(t, []byte{'<', 0, 'W', 0}, b[:4], "no BOM, little endian")

	utf8, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	require.NoError(t, err)
	assert.Equal(t, testHeaderXML, string(utf8))
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("aescbc")
	require.NoError(t, err)
	assert.Equal(t, AESCBC, a)

	a, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, AESCTR, a)

	_, err = ParseAlgorithm("cenc")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestObject(t *testing.T) {
	header, err := BuildHeader(HeaderParams{Keys: testEntries(t, kid1), LicenseURL: testURL, UseChecksum: true})
	require.NoError(t, err)

	obj, err := BuildObject(header)
	require.NoError(t, err)
	assert.Len(t, obj, 654)
	assert.Equal(t, "8e020000010001008402", hex.EncodeToString(obj[:10]))

	got, err := ParseObject(obj)
	require.NoError(t, err)
	assert.Equal(t, header, got)
}

func TestObjectFail(t *testing.T) {
	_, err := BuildObject(make([]byte, 70000))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)

	_, err = ParseObject([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidObject)

	obj, err := BuildObject([]byte("abcd"))
	require.NoError(t, err)

	_, err = ParseObject(obj[:len(obj)-1])
	assert.ErrorIs(t, err, ErrInvalidObject)

	// only a license store record
	other := append([]byte(nil), obj...)
	binary.LittleEndian.PutUint16(other[6:], 3)
	_, err = ParseObject(other)
	assert.ErrorIs(t, err, ErrNoHeaderRecord)
}

func TestBuildPSSH(t *testing.T) {
	p := HeaderParams{Keys: testEntries(t, kid1), LicenseURL: testURL, Algorithm: AESCTR, UseChecksum: true}

	b, err := BuildPSSH(p, 1)
	require.NoError(t, err)
	assert.Len(t, b, 706)
	assert.Equal(t,
		"000002c270737368010000009a04f07998404286ab92e65be0885f95000000010dc3ec4f7683548b81e73c64e582e1360000028e8e02000001000100",
		hex.EncodeToString(b[:60]))
	sum := sha256.Sum256(b)
	assert.Equal(t, "022ec0cfec17ff97361db03e8da33cf27dd98523668e93505c8eb882a2a5de7a", hex.EncodeToString(sum[:]))

	v0, err := BuildPSSH(p, 0)
	require.NoError(t, err)
	assert.Len(t, v0, 706-20)
	box, err := pssh.Decode(v0)
	require.NoError(t, err)
	assert.Empty(t, box.KeyIDs)
}

func TestParsePSSH(t *testing.T) {
	p := HeaderParams{Keys: testEntries(t, kid1, kid2), LicenseURL: testURL, UseChecksum: true}
	b, err := BuildPSSH(p, 1)
	require.NoError(t, err)

	box, h, err := ParsePSSH(b)
	require.NoError(t, err)
	assert.Equal(t, []keyid.KeyID{kid1, kid2}, box.KeyIDs)
	assert.Equal(t, "4.2.0.0", h.Version)
	assert.Equal(t, testURL, h.LicenseURL)
	assert.Equal(t, []keyid.KeyID{kid1, kid2}, h.KeyIDs())
	assert.Equal(t, "g/pii7GhZPo=", h.KIDs[0].Checksum)
	assert.Equal(t, "AnHzxtmKoHk=", h.KIDs[1].Checksum)
	assert.Equal(t, AESCTR, h.KIDs[1].Algorithm)

	wv, err := pssh.Encode(pssh.BoxType, 0, pssh.WidevineSystemID[:], nil, []byte{1})
	require.NoError(t, err)
	_, _, err = ParsePSSH(wv)
	assert.ErrorIs(t, err, ErrInvalidObject)
}

func TestParseHeaderV40(t *testing.T) {
	xml := `<WRMHEADER xmlns="http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader" version="4.0.0.0">` +
		`<DATA><PROTECTINFO><KEYLEN>16</KEYLEN><ALGID>AESCTR</ALGID></PROTECTINFO>` +
		`<KID>T+zDDYN2i1SB5zxk5YLhNg==</KID><CHECKSUM>g/pii7GhZPo=</CHECKSUM>` +
		`<LA_URL>http://example.com/la</LA_URL></DATA></WRMHEADER>`
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(xml))
	require.NoError(t, err)

	h, err := ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, "4.0.0.0", h.Version)
	require.Len(t, h.KIDs, 1)
	assert.Equal(t, kid1, h.KIDs[0].KeyID)
	assert.Equal(t, AESCTR, h.KIDs[0].Algorithm)
	assert.Equal(t, "g/pii7GhZPo=", h.KIDs[0].Checksum)
	assert.Equal(t, "http://example.com/la", h.LicenseURL)
}

func TestParseHeaderFail(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	for name, xml := range map[string]string{
		"not xml":   "<<<",
		"no root":   "<FOO/>",
		"no data":   "<WRMHEADER/>",
		"bad value": `<WRMHEADER><DATA><PROTECTINFO><KIDS><KID VALUE="!!"></KID></KIDS></PROTECTINFO></DATA></WRMHEADER>`,
	} {
		t.Run(name, func(t *testing.T) {
			b, err := enc.Bytes([]byte(xml))
			require.NoError(t, err)
			_, err = ParseHeader(b)
			assert.ErrorIs(t, err, ErrInvalidHeader)
		})
	}
}

func TestConfiguredLicenseURL(t *testing.T) {
	keys := testEntries(t, kid1)
	got, err := ConfiguredLicenseURL(testURL, keys)
	require.NoError(t, err)
	assert.Equal(t, testURL+"?cfg=(kid:T+zDDYN2i1SB5zxk5YLhNg==,contentkey:GvYIeEGtNfiAqC+T0e/Lzw==)", got)

	got, err = ConfiguredLicenseURL(testURL+"?a=b", testEntries(t, kid1, kid2))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, testURL+"?a=b&cfg=(kid:"))
	assert.Equal(t, 2, strings.Count(got, "contentkey:"))

	_, err = ConfiguredLicenseURL(testURL, nil)
	assert.ErrorIs(t, err, ErrNoKeys)
	_, err = ConfiguredLicenseURL(testURL, []Key{{KeyID: kid1}})
	assert.ErrorIs(t, err, ErrInvalidContentKey)
}
