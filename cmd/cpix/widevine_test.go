package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/pssh"
	"github.com/cpixkit/cpix/pkg/widevine"
)

var testTrackKeys = map[keyid.TrackType][2]string{
	keyid.TrackSD:    {testKID1, "1af6087841ad35f880a82f93d1efcbcf"},
	keyid.TrackAudio: {testKID2, "e66e0ea2552d230ea09ba2429b862c75"},
}

// newKeyServer starts a fake Widevine key server answering with a key per
// requested track type it knows. The request envelopes are sent to reqs.
func newKeyServer(t *testing.T, reqs chan<- map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var env map[string]any
		if err := json.Unmarshal(body, &env); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if reqs != nil {
			reqs <- env
		}

		raw, _ := base64.StdEncoding.DecodeString(env["request"].(string))
		var req struct {
			Tracks []struct {
				Type string `json:"type"`
			} `json:"tracks"`
		}
		_ = json.Unmarshal(raw, &req)

		var tracks []map[string]any
		for _, rt := range req.Tracks {
			k, ok := testTrackKeys[keyid.TrackType(rt.Type)]
			if !ok {
				continue
			}
			kid := keyid.MustParse(k[0])
			box, err := widevine.BuildPSSH(widevine.HeaderParams{KeyIDs: []any{kid}, Provider: "widevine_test"}, 1)
			if err != nil {
				t.Errorf("BuildPSSH() error = %v", err)
			}
			key, _ := hex.DecodeString(k[1])
			tracks = append(tracks, map[string]any{
				"type":   rt.Type,
				"key_id": base64.StdEncoding.EncodeToString(kid.Bytes()),
				"key":    base64.StdEncoding.EncodeToString(key),
				"pssh":   []map[string]any{{"drm_type": "WIDEVINE", "boxes": base64.StdEncoding.EncodeToString(box)}},
			})
		}
		inner, _ := json.Marshal(map[string]any{
			"status": "OK",
			"drm":    []map[string]any{{"type": "WIDEVINE", "system_id": pssh.WidevineSystemID.String()}},
			"tracks": tracks,
		})
		_ = json.NewEncoder(w).Encode(map[string]string{"response": base64.StdEncoding.EncodeToString(inner)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// Widevine Keys Tests
// =============================================================================

func TestF_Widevine_Keys(t *testing.T) {
	reqs := make(chan map[string]any, 1)
	srv := newKeyServer(t, reqs)

	out, err := executeCommand(rootCmd, "widevine", "keys", "--content-id", "movie", "--tracks", "SD,AUDIO", "--url", srv.URL, "--stdout")
	assertNoError(t, err)

	env := <-reqs
	if env["signer"] != widevine.TestSigner {
		t.Errorf("signer = %v", env["signer"])
	}
	if sig, _ := env["signature"].(string); sig == "" {
		t.Error("request should be signed with the configured signer key")
	}

	doc := parseDocument(t, out)
	if len(doc.ContentKeys) != 2 || len(doc.DRMSystems) != 2 || len(doc.UsageRules) != 2 {
		t.Fatalf("keys %d, DRM systems %d, usage rules %d", len(doc.ContentKeys), len(doc.DRMSystems), len(doc.UsageRules))
	}
	if doc.ContentKeys[0].KID.String() != testKID1 {
		t.Errorf("first key = %s", doc.ContentKeys[0].KID)
	}
	for _, s := range doc.DRMSystems {
		if s.SystemID != pssh.WidevineSystemID {
			t.Errorf("system ID = %s", s.SystemID)
		}
	}
}

func TestF_Widevine_Keys_Unsigned(t *testing.T) {
	reqs := make(chan map[string]any, 1)
	srv := newKeyServer(t, reqs)

	tc := newTestContext(t)
	cfg := tc.writeFile("config.yaml", []byte("widevine:\n  signer: someone\n  signer_key: \"\"\n  signer_iv: \"\"\n"))

	_, err := executeCommand(rootCmd, "widevine", "keys", "--config", cfg, "--content-id", "movie", "--url", srv.URL, "-o", tc.path("keys.xml"))
	assertNoError(t, err)

	env := <-reqs
	if env["signer"] != "someone" {
		t.Errorf("signer = %v", env["signer"])
	}
	if _, ok := env["signature"]; ok {
		t.Error("request without signer key should be unsigned")
	}
	parseDocument(t, tc.readFile("keys.xml"))
}

func TestF_Widevine_Keys_Errors(t *testing.T) {
	srv := newKeyServer(t, nil)
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer failing.Close()

	tests := []struct {
		name string
		args []string
	}{
		{"missing content ID", []string{"widevine", "keys", "--url", srv.URL, "--stdout"}},
		{"missing destination", []string{"widevine", "keys", "--content-id", "movie", "--url", srv.URL}},
		{"no valid tracks", []string{"widevine", "keys", "--content-id", "movie", "--tracks", "8K", "--url", srv.URL, "--stdout"}},
		{"bad signer key", []string{"widevine", "keys", "--content-id", "movie", "--signer-key", "xyz!", "--url", srv.URL, "--stdout"}},
		{"server error", []string{"widevine", "keys", "--content-id", "movie", "--url", failing.URL, "--stdout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(rootCmd, tt.args...)
			assertError(t, err)
		})
	}
}

// =============================================================================
// CPIX CENC Tests
// =============================================================================

func TestF_CPIX_CENC(t *testing.T) {
	srv := newKeyServer(t, nil)

	out, err := executeCommand(rootCmd, "cpix", "cenc", "--content-id", "movie", "--tracks", "SD,AUDIO", "--url", srv.URL, "--stdout")
	assertNoError(t, err)

	doc := parseDocument(t, out)
	if len(doc.ContentKeys) != 2 || len(doc.DRMSystems) != 4 {
		t.Fatalf("keys %d, DRM systems %d", len(doc.ContentKeys), len(doc.DRMSystems))
	}

	var prBox []byte
	for _, s := range doc.DRMSystems {
		if s.SystemID == pssh.PlayReadySystemID {
			prBox = s.PSSH
		}
	}
	if prBox == nil {
		t.Fatal("no PlayReady DRM system")
	}
	_, h, err := playready.ParsePSSH(prBox)
	assertNoError(t, err)
	if !strings.HasPrefix(h.LicenseURL, playready.TestServerURL+"?cfg=") {
		t.Errorf("LA_URL = %s", h.LicenseURL)
	}
	if strings.Count(h.LicenseURL, ",contentkey:") != 2 {
		t.Errorf("LA_URL does not carry the keys: %s", h.LicenseURL)
	}
	if len(h.KIDs) != 2 || h.KIDs[0].Checksum != "g/pii7GhZPo=" || h.KIDs[1].Checksum != "AnHzxtmKoHk=" {
		t.Errorf("KIDs = %+v", h.KIDs)
	}
}
