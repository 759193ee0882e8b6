package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/pssh"
	"github.com/cpixkit/cpix/pkg/widevine"
)

const (
	testKID1 = "0dc3ec4f-7683-548b-81e7-3c64e582e136"
	testKID2 = "1447b7ed-2f66-572b-bd13-06ce7cf3610d"
)

func widevineBox(t *testing.T) []byte {
	t.Helper()
	b, err := widevine.BuildPSSH(widevine.HeaderParams{
		KeyIDs:           []any{testKID1},
		Provider:         "widevine_test",
		ContentID:        []byte("fkj3ljaSdfalkr3j"),
		ProtectionScheme: "cbcs",
	}, 1)
	if err != nil {
		t.Fatalf("BuildPSSH() error = %v", err)
	}
	return b
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestU_ParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestU_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", &buf, true)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "kid", testKID1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, testKID1) {
		t.Errorf("warn message missing from output: %q", out)
	}

	if _, err := NewLogger("loud", &buf, true); err == nil {
		t.Error("NewLogger() should reject unknown levels")
	}
}

// =============================================================================
// Input Tests
// =============================================================================

func TestU_DecodeText(t *testing.T) {
	want := []byte{0x00, 0xff, 0x10, 0x20}
	tests := []struct {
		name string
		in   string
	}{
		{"hex", "00ff1020"},
		{"hex with prefix", "0x00FF1020"},
		{"hex with spaces", "00 ff\n10 20"},
		{"base64", base64.StdEncoding.EncodeToString(want)},
		{"raw base64", base64.RawStdEncoding.EncodeToString(want)},
		{"url base64", base64.RawURLEncoding.EncodeToString(want)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.in)
			if err != nil {
				t.Fatalf("DecodeText(%q) error = %v", tt.in, err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("DecodeText(%q) = %x, want %x", tt.in, got, want)
			}
		})
	}

	if _, err := DecodeText("not*valid"); err == nil {
		t.Error("DecodeText() should fail on invalid text")
	}
	if _, err := DecodeText("   "); err == nil {
		t.Error("DecodeText() should fail on empty input")
	}
}

func TestU_ReadInput(t *testing.T) {
	box := widevineBox(t)
	dir := t.TempDir()

	binPath := filepath.Join(dir, "box.bin")
	b64Path := filepath.Join(dir, "box.b64")
	if err := os.WriteFile(binPath, box, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b64Path, []byte(base64.StdEncoding.EncodeToString(box)+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		arg   string
		stdin string
	}{
		{"binary file", binPath, ""},
		{"base64 file", b64Path, ""},
		{"base64 argument", base64.StdEncoding.EncodeToString(box), ""},
		{"hex argument", strings.ToUpper(string(bytesToHex(box))), ""},
		{"stdin", "-", base64.StdEncoding.EncodeToString(box)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadInput(tt.arg, strings.NewReader(tt.stdin))
			if err != nil {
				t.Fatalf("ReadInput() error = %v", err)
			}
			if !bytes.Equal(got, box) {
				t.Errorf("ReadInput() = %x, want %x", got, box)
			}
		})
	}

	if _, err := ReadInput(filepath.Join(dir, "missing*"), nil); err == nil {
		t.Error("ReadInput() should fail for an undecodable argument")
	}
}

func bytesToHex(b []byte) []byte {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return out
}

func TestU_ParseKeyPairs(t *testing.T) {
	entries, err := ParseKeyPairs(testKID1 + ":1af6087841ad35f880a82f93d1efcbcf, " + strings.ReplaceAll(testKID2, "-", "") + ":5m4OolUtIw6gm6JCm4YsdQ==")
	if err != nil {
		t.Fatalf("ParseKeyPairs() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ParseKeyPairs() returned %d entries, want 2", len(entries))
	}
	if entries[0].KeyID.String() != testKID1 || entries[1].KeyID.String() != testKID2 {
		t.Errorf("unexpected key IDs %s, %s", entries[0].KeyID, entries[1].KeyID)
	}
	if len(entries[1].Key) != 16 {
		t.Errorf("second key length = %d, want 16", len(entries[1].Key))
	}

	for _, in := range []string{"", testKID1, testKID1 + ":00ff", "bad:1af6087841ad35f880a82f93d1efcbcf"} {
		if _, err := ParseKeyPairs(in); err == nil {
			t.Errorf("ParseKeyPairs(%q) should fail", in)
		}
	}
}

// =============================================================================
// Output Tests
// =============================================================================

func TestU_FormatBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	tests := []struct {
		format string
		want   string
	}{
		{"", "AQID\n"},
		{FormatBase64, "AQID\n"},
		{FormatHex, "010203\n"},
		{FormatRaw, "\x01\x02\x03"},
		{FormatPackager, "--widevine.drm_specific_data=AQID\n"},
	}
	for _, tt := range tests {
		got, err := FormatBytes(b, tt.format, "widevine")
		if err != nil {
			t.Fatalf("FormatBytes(%q) error = %v", tt.format, err)
		}
		if string(got) != tt.want {
			t.Errorf("FormatBytes(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
	if _, err := FormatBytes(b, "pem", "iss"); err == nil {
		t.Error("FormatBytes() should reject unknown formats")
	}
}

func TestU_WriteStructured(t *testing.T) {
	v := map[string]any{"system": "Widevine", "version": 1}

	var js bytes.Buffer
	if err := WriteStructured(&js, v, OutputJSON); err != nil {
		t.Fatalf("WriteStructured(json) error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	var y bytes.Buffer
	if err := WriteStructured(&y, v, OutputYAML); err != nil {
		t.Fatalf("WriteStructured(yaml) error = %v", err)
	}
	if !strings.Contains(y.String(), "system: Widevine") {
		t.Errorf("unexpected YAML output: %q", y.String())
	}

	if err := WriteStructured(&y, v, "xml"); err == nil {
		t.Error("WriteStructured() should reject unknown formats")
	}
}

func TestU_WriteOutput(t *testing.T) {
	var stdout bytes.Buffer
	if err := WriteOutput("-", &stdout, []byte("doc")); err != nil || stdout.String() != "doc" {
		t.Errorf("WriteOutput(-) = %v, %q", err, stdout.String())
	}

	path := filepath.Join(t.TempDir(), "out.xml")
	if err := WriteOutput(path, &stdout, []byte("file")); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "file" {
		t.Errorf("file content = %q, want file", data)
	}

	if err := WriteOutput(filepath.Join(t.TempDir(), "missing", "out.xml"), &stdout, nil); err == nil {
		t.Error("WriteOutput() should fail for a missing directory")
	}
}

func TestU_FormatStatus(t *testing.T) {
	if got := FormatStatus("valid"); got != ColorGreen+"valid"+ColorReset {
		t.Errorf("FormatStatus(valid) = %q", got)
	}
	if got := FormatStatus("invalid"); got != ColorRed+"invalid"+ColorReset {
		t.Errorf("FormatStatus(invalid) = %q", got)
	}
	if got := FormatStatus("other"); got != "other" {
		t.Errorf("FormatStatus(other) = %q", got)
	}

	SetColor(false)
	defer SetColor(true)
	if got := FormatStatus("valid"); got != "valid" {
		t.Errorf("FormatStatus(valid) without color = %q", got)
	}
}

// =============================================================================
// Inspect Tests
// =============================================================================

func TestU_InspectPSSH_Widevine(t *testing.T) {
	info, err := InspectPSSH(widevineBox(t))
	if err != nil {
		t.Fatalf("InspectPSSH() error = %v", err)
	}
	if info.System != "Widevine" || info.Version != 1 {
		t.Errorf("System/Version = %s/%d", info.System, info.Version)
	}
	if len(info.KeyIDs) != 1 || info.KeyIDs[0] != testKID1 {
		t.Errorf("KeyIDs = %v", info.KeyIDs)
	}
	wv := info.Widevine
	if wv == nil {
		t.Fatal("Widevine payload not decoded")
	}
	if wv.Provider != "widevine_test" || wv.ContentID != "fkj3ljaSdfalkr3j" || wv.ProtectionScheme != "cbcs" {
		t.Errorf("unexpected payload %+v", wv)
	}
	if info.Data != "" {
		t.Error("Data should be empty for a decoded payload")
	}

	var out bytes.Buffer
	PrintPSSHInfo(&out, info)
	if !strings.Contains(out.String(), "Protection scheme: cbcs") {
		t.Errorf("PrintPSSHInfo() output missing scheme: %s", out.String())
	}
}

func TestU_InspectPSSH_PlayReady(t *testing.T) {
	kid := keyid.MustParse(testKID1)
	b, err := playready.BuildPSSH(playready.HeaderParams{
		Keys:       []playready.Key{{KeyID: kid}},
		LicenseURL: playready.TestServerURL,
		Algorithm:  playready.AESCBC,
	}, 0)
	if err != nil {
		t.Fatalf("BuildPSSH() error = %v", err)
	}

	info, err := InspectPSSH(b)
	if err != nil {
		t.Fatalf("InspectPSSH() error = %v", err)
	}
	pr := info.PlayReady
	if pr == nil {
		t.Fatalf("PlayReady payload not decoded: %s", info.DecodeError)
	}
	if pr.Version != "4.3.0.0" || pr.LicenseURL != playready.TestServerURL {
		t.Errorf("unexpected header %+v", pr)
	}
	if len(pr.KIDs) != 1 || pr.KIDs[0].KeyID != testKID1 || pr.KIDs[0].Algorithm != "AESCBC" {
		t.Errorf("unexpected KIDs %+v", pr.KIDs)
	}
	if info.KeyIDs != nil {
		t.Error("version 0 box should list no key IDs")
	}
}

func TestU_InspectPSSH_OtherSystems(t *testing.T) {
	b, err := pssh.Encode(pssh.BoxType, 0, pssh.FairPlaySystemID[:], nil, []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	info, err := InspectPSSH(b)
	if err != nil {
		t.Fatalf("InspectPSSH() error = %v", err)
	}
	if info.System != "FairPlay" || info.Data != "AQID" {
		t.Errorf("unexpected info %+v", info)
	}

	// a Widevine box with a broken payload is still described
	b, _ = pssh.Encode(pssh.BoxType, 0, pssh.WidevineSystemID[:], nil, []byte{0x12, 0x10, 0x01})
	info, err = InspectPSSH(b)
	if err != nil {
		t.Fatalf("InspectPSSH() error = %v", err)
	}
	if info.DecodeError == "" || info.Data == "" {
		t.Errorf("expected decode error and raw data, got %+v", info)
	}

	if _, err := InspectPSSH([]byte("short")); err == nil {
		t.Error("InspectPSSH() should fail on invalid boxes")
	}
}

// =============================================================================
// Document Tests
// =============================================================================

func TestU_PlayReadyDocument(t *testing.T) {
	seed, err := playready.DecodeSeed(playready.TestServerKeySeed)
	if err != nil {
		t.Fatal(err)
	}
	doc, entries, err := PlayReadyDocument(PlayReadyOptions{
		ContentID:   "movie",
		Tracks:      keyid.TrackTypes,
		Seed:        seed,
		LicenseURL:  playready.TestServerURL,
		Algorithm:   playready.AESCTR,
		UseChecksum: true,
	})
	if err != nil {
		t.Fatalf("PlayReadyDocument() error = %v", err)
	}
	if len(entries) != 5 || len(doc.ContentKeys) != 5 || len(doc.DRMSystems) != 5 || len(doc.UsageRules) != 5 {
		t.Fatalf("got %d entries, %d keys, %d systems, %d rules",
			len(entries), len(doc.ContentKeys), len(doc.DRMSystems), len(doc.UsageRules))
	}
	if errs := doc.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v", errs)
	}
	if entries[0].KeyID != keyid.ForTrack("movie", keyid.TrackAudio) {
		t.Error("key IDs should be derived from content ID and track")
	}

	_, h, err := playready.ParsePSSH(doc.DRMSystems[0].PSSH)
	if err != nil {
		t.Fatalf("ParsePSSH() error = %v", err)
	}
	if len(h.KIDs) != 5 || h.KIDs[0].Checksum == "" {
		t.Errorf("unexpected header KIDs %+v", h.KIDs)
	}
	if got := KeyIDStrings(entries); got[1] != entries[1].KeyID.String() {
		t.Errorf("KeyIDStrings() = %v", got)
	}

	if _, _, err := PlayReadyDocument(PlayReadyOptions{ContentID: "movie", Seed: seed}); err == nil {
		t.Error("PlayReadyDocument() should fail without tracks")
	}
}

func testKeyResponse(t *testing.T) *widevine.KeyResponse {
	t.Helper()
	box := widevineBox(t)
	return &widevine.KeyResponse{
		Status:   "OK",
		SystemID: "edef8ba9-79d6-4ace-a3c8-27dcd51d21ed",
		Tracks: []widevine.Track{
			{Type: keyid.TrackSD, KeyID: keyid.MustParse(testKID1), Key: bytes.Repeat([]byte{1}, 16), PSSH: box},
			{Type: keyid.TrackAudio, KeyID: keyid.MustParse(testKID2), Key: bytes.Repeat([]byte{2}, 16)},
		},
	}
}

func TestU_WidevineDocument(t *testing.T) {
	doc, err := WidevineDocument("movie", testKeyResponse(t))
	if err != nil {
		t.Fatalf("WidevineDocument() error = %v", err)
	}
	if len(doc.ContentKeys) != 2 || len(doc.UsageRules) != 2 {
		t.Errorf("got %d keys, %d rules", len(doc.ContentKeys), len(doc.UsageRules))
	}
	if len(doc.DRMSystems) != 1 || doc.DRMSystems[0].SystemID != pssh.WidevineSystemID {
		t.Errorf("unexpected DRM systems %+v", doc.DRMSystems)
	}
	if errs := doc.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v", errs)
	}

	bad := testKeyResponse(t)
	bad.SystemID = "not-a-uuid"
	if _, err := WidevineDocument("movie", bad); err == nil {
		t.Error("WidevineDocument() should reject an invalid system ID")
	}
}

func TestU_CENCDocument(t *testing.T) {
	doc, err := CENCDocument("movie", testKeyResponse(t), playready.TestServerURL)
	if err != nil {
		t.Fatalf("CENCDocument() error = %v", err)
	}
	var pr int
	for _, s := range doc.DRMSystems {
		if s.SystemID == pssh.PlayReadySystemID {
			pr++
			_, h, err := playready.ParsePSSH(s.PSSH)
			if err != nil {
				t.Fatalf("ParsePSSH() error = %v", err)
			}
			if !strings.HasPrefix(h.LicenseURL, playready.TestServerURL+"?cfg=(kid:") {
				t.Errorf("LA_URL = %s", h.LicenseURL)
			}
		}
	}
	if pr != 2 {
		t.Errorf("got %d PlayReady systems, want 2", pr)
	}

	noKey := testKeyResponse(t)
	noKey.Tracks[1].Key = nil
	if _, err := CENCDocument("movie", noKey, playready.TestServerURL); err == nil {
		t.Error("CENCDocument() should fail when a content key is missing")
	}
}
