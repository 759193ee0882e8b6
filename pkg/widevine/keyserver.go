package widevine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cpixkit/cpix/pkg/keyid"
)

// Public UAT endpoint and credentials of the widevine_test signer.
const (
	TestURL       = "http://license.uat.widevine.com/cenc/getcontentkey/widevine_test"
	TestSigner    = "widevine_test"
	TestSignerKey = "1AE8CCD0E7985CC0B6203A55855A1034AFC252980E970CA90E5202689F947AB9"
	TestSignerIV  = "D58CE954203B7C9A9A9D467F59839249"
)

// Client requests content keys from a Widevine common encryption key server.
// Requests are signed when both SignerKey and SignerIV are set.
type Client struct {
	URL        string
	Signer     string
	SignerKey  []byte
	SignerIV   []byte
	HTTPClient *http.Client
}

// KeyRequest selects the content and tracks keys are requested for.
type KeyRequest struct {
	ContentID string
	Tracks    []keyid.TrackType
	Policy    string
}

// Track is one track entry of a key server response.
type Track struct {
	Type  keyid.TrackType
	KeyID keyid.KeyID
	Key   []byte
	PSSH  []byte // complete pssh box, nil when the server sent none
}

// KeyResponse is a decoded key server response.
type KeyResponse struct {
	Status   string
	SystemID string
	Tracks   []Track
}

type requestTrack struct {
	Type keyid.TrackType `json:"type"`
}

// json.Marshal keeps field order. The signature covers the marshaled bytes
// as sent, so the order only has to be stable.
type requestBody struct {
	ContentID string         `json:"content_id"`
	Policy    string         `json:"policy"`
	DRMTypes  []string       `json:"drm_types"`
	Tracks    []requestTrack `json:"tracks"`
}

type requestEnvelope struct {
	Request   string `json:"request"`
	Signer    string `json:"signer"`
	Signature string `json:"signature,omitempty"`
}

// NewRequestBody returns the JSON request message. Invalid track types are
// dropped.
func NewRequestBody(req KeyRequest) ([]byte, error) {
	body := requestBody{
		ContentID: base64.StdEncoding.EncodeToString([]byte(req.ContentID)),
		Policy:    req.Policy,
		DRMTypes:  []string{"WIDEVINE"},
		Tracks:    []requestTrack{},
	}
	for _, t := range req.Tracks {
		if t.Valid() {
			body.Tracks = append(body.Tracks, requestTrack{Type: t})
		}
	}
	return json.Marshal(body)
}

func (c *Client) envelope(req KeyRequest) ([]byte, error) {
	body, err := NewRequestBody(req)
	if err != nil {
		return nil, err
	}
	env := requestEnvelope{
		Request: base64.StdEncoding.EncodeToString(body),
		Signer:  c.Signer,
	}
	if c.SignerKey != nil && c.SignerIV != nil {
		sig, err := SignRequest(body, c.SignerKey, c.SignerIV)
		if err != nil {
			return nil, err
		}
		env.Signature = base64.StdEncoding.EncodeToString(sig)
	}
	return json.Marshal(env)
}

// GetKeys requests keys for req and decodes the response.
func (c *Client) GetKeys(ctx context.Context, req KeyRequest) (*KeyResponse, error) {
	payload, err := c.envelope(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, newError("keyserver", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, newError("keyserver", fmt.Errorf("%w: %v", ErrKeyServerHTTP, err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, newError("keyserver", fmt.Errorf("%w: read body: %v", ErrKeyServerHTTP, err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError("keyserver", fmt.Errorf("%w: status code %d", ErrKeyServerHTTP, resp.StatusCode))
	}
	return ParseKeyResponse(raw)
}

// ParseKeyResponse decodes the HTTP body of a key server reply, whose
// "response" member is the base64 encoded JSON response.
func ParseKeyResponse(raw []byte) (*KeyResponse, error) {
	if !gjson.ValidBytes(raw) {
		return nil, newError("keyserver", fmt.Errorf("%w: malformed JSON", ErrKeyServerHTTP))
	}
	inner, err := base64.StdEncoding.DecodeString(gjson.GetBytes(raw, "response").String())
	if err != nil {
		return nil, newError("keyserver", fmt.Errorf("%w: decode response: %v", ErrKeyServerHTTP, err))
	}
	if !gjson.ValidBytes(inner) {
		return nil, newError("keyserver", fmt.Errorf("%w: malformed response", ErrKeyServerHTTP))
	}

	doc := gjson.ParseBytes(inner)
	out := &KeyResponse{
		Status:   doc.Get("status").String(),
		SystemID: doc.Get("drm.0.system_id").String(),
	}
	if out.Status != "OK" {
		return nil, newError("keyserver", fmt.Errorf("%w: %q", ErrKeyServerStatus, out.Status))
	}

	var parseErr error
	doc.Get("tracks").ForEach(func(_, t gjson.Result) bool {
		track, err := parseTrack(t)
		if err != nil {
			parseErr = err
			return false
		}
		out.Tracks = append(out.Tracks, track)
		return true
	})
	if parseErr != nil {
		return nil, newError("keyserver", parseErr)
	}
	return out, nil
}

func parseTrack(t gjson.Result) (Track, error) {
	typ := keyid.TrackType(t.Get("type").String())
	rawKID, err := base64.StdEncoding.DecodeString(t.Get("key_id").String())
	if err != nil {
		return Track{}, fmt.Errorf("track %s: key_id: %w", typ, err)
	}
	kid, err := keyid.Parse(rawKID)
	if err != nil {
		return Track{}, fmt.Errorf("track %s: %w", typ, err)
	}
	key, err := base64.StdEncoding.DecodeString(t.Get("key").String())
	if err != nil {
		return Track{}, fmt.Errorf("track %s: key: %w", typ, err)
	}
	track := Track{Type: typ, KeyID: kid, Key: key}
	if boxes := t.Get("pssh.0.boxes"); boxes.Exists() {
		if track.PSSH, err = base64.StdEncoding.DecodeString(boxes.String()); err != nil {
			return Track{}, fmt.Errorf("track %s: pssh: %w", typ, err)
		}
	}
	return track, nil
}
