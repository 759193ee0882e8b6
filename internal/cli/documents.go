package cli

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cpixkit/cpix/pkg/cpix"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/pssh"
	"github.com/cpixkit/cpix/pkg/widevine"
)

// PlayReadyOptions drives PlayReadyDocument.
type PlayReadyOptions struct {
	ContentID   string
	Tracks      []keyid.TrackType
	Seed        []byte
	LicenseURL  string
	Algorithm   playready.AlgorithmID
	UseChecksum bool
}

// PlayReadyDocument builds a CPIX document with one key per track. Key IDs
// are derived from the content ID and track type, content keys from the
// key seed. Every key shares one PlayReady PSSH listing all keys.
func PlayReadyDocument(opts PlayReadyOptions) (*cpix.Document, []keyid.Entry, error) {
	if len(opts.Tracks) == 0 {
		return nil, nil, fmt.Errorf("no valid tracks given")
	}
	entries := make([]keyid.Entry, 0, len(opts.Tracks))
	for _, t := range opts.Tracks {
		kid := keyid.ForTrack(opts.ContentID, t)
		key, err := playready.DeriveContentKey(kid, opts.Seed)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, keyid.Entry{KeyID: kid, Key: key, Type: t})
	}

	box, err := playready.BuildPSSH(playready.HeaderParams{
		Keys:        entries,
		LicenseURL:  opts.LicenseURL,
		Algorithm:   opts.Algorithm,
		UseChecksum: opts.UseChecksum,
	}, 1)
	if err != nil {
		return nil, nil, err
	}

	doc := &cpix.Document{ContentID: opts.ContentID}
	for _, e := range entries {
		doc.AddKey(e.KeyID, e.Key, e.Type)
		doc.DRMSystems = append(doc.DRMSystems, cpix.DRMSystem{
			KID:      e.KeyID,
			SystemID: pssh.PlayReadySystemID,
			PSSH:     box,
		})
	}
	return doc, entries, nil
}

// WidevineDocument builds a CPIX document from a key server response, using
// the PSSH boxes the server returned.
func WidevineDocument(contentID string, resp *widevine.KeyResponse) (*cpix.Document, error) {
	systemID := pssh.WidevineSystemID
	if resp.SystemID != "" {
		id, err := uuid.Parse(resp.SystemID)
		if err != nil {
			return nil, fmt.Errorf("key server system_id: %w", err)
		}
		systemID = id
	}

	doc := &cpix.Document{ContentID: contentID}
	for _, t := range resp.Tracks {
		doc.AddKey(t.KeyID, t.Key, t.Type)
		if len(t.PSSH) > 0 {
			doc.DRMSystems = append(doc.DRMSystems, cpix.DRMSystem{
				KID:      t.KeyID,
				SystemID: systemID,
				PSSH:     t.PSSH,
			})
		}
	}
	return doc, nil
}

// CENCDocument builds a Widevine document from a key server response and
// signals the same keys for PlayReady. The PlayReady LA_URL carries every
// key so the PlayReady test server can issue licenses for them; the keys are
// readable by anyone holding the PSSH.
func CENCDocument(contentID string, resp *widevine.KeyResponse, laURL string) (*cpix.Document, error) {
	doc, err := WidevineDocument(contentID, resp)
	if err != nil {
		return nil, err
	}

	keys := make([]keyid.Entry, 0, len(resp.Tracks))
	for _, t := range resp.Tracks {
		keys = append(keys, keyid.Entry{KeyID: t.KeyID, Key: t.Key, Type: t.Type})
	}
	url, err := playready.ConfiguredLicenseURL(laURL, keys)
	if err != nil {
		return nil, err
	}
	box, err := playready.BuildPSSH(playready.HeaderParams{
		Keys:        keys,
		LicenseURL:  url,
		Algorithm:   playready.AESCTR,
		UseChecksum: true,
	}, 1)
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		doc.DRMSystems = append(doc.DRMSystems, cpix.DRMSystem{
			KID:      k.KeyID,
			SystemID: pssh.PlayReadySystemID,
			PSSH:     box,
		})
	}
	return doc, nil
}

// KeyIDStrings returns the string form of each entry's key ID.
func KeyIDStrings(entries []keyid.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.KeyID.String()
	}
	return out
}
