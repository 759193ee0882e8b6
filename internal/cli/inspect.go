package cli

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/pssh"
	"github.com/cpixkit/cpix/pkg/widevine"
)

// PSSHInfo describes a decoded pssh box.
type PSSHInfo struct {
	System      string         `json:"system" yaml:"system"`
	SystemID    string         `json:"system_id" yaml:"system_id"`
	Version     uint8          `json:"version" yaml:"version"`
	Size        int            `json:"size" yaml:"size"`
	KeyIDs      []string       `json:"key_ids,omitempty" yaml:"key_ids,omitempty"`
	DataSize    int            `json:"data_size" yaml:"data_size"`
	Data        string         `json:"data,omitempty" yaml:"data,omitempty"`
	Widevine    *WidevineInfo  `json:"widevine,omitempty" yaml:"widevine,omitempty"`
	PlayReady   *PlayReadyInfo `json:"playready,omitempty" yaml:"playready,omitempty"`
	DecodeError string         `json:"decode_error,omitempty" yaml:"decode_error,omitempty"`
}

// WidevineInfo describes a WidevinePsshData payload.
type WidevineInfo struct {
	Algorithm        uint32   `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	KeyIDs           []string `json:"key_ids,omitempty" yaml:"key_ids,omitempty"`
	Provider         string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	ContentID        string   `json:"content_id,omitempty" yaml:"content_id,omitempty"`
	ProtectionScheme string   `json:"protection_scheme,omitempty" yaml:"protection_scheme,omitempty"`
}

// PlayReadyInfo describes a WRM header.
type PlayReadyInfo struct {
	Version    string         `json:"version" yaml:"version"`
	LicenseURL string         `json:"la_url,omitempty" yaml:"la_url,omitempty"`
	KIDs       []PlayReadyKID `json:"kids" yaml:"kids"`
}

// PlayReadyKID is a KID record of a WRM header.
type PlayReadyKID struct {
	KeyID     string `json:"key_id" yaml:"key_id"`
	Algorithm string `json:"algid,omitempty" yaml:"algid,omitempty"`
	Checksum  string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// InspectPSSH decodes a pssh box and, for Widevine and PlayReady, its
// payload. A payload that cannot be decoded is reported in DecodeError and
// its raw bytes in Data.
func InspectPSSH(b []byte) (*PSSHInfo, error) {
	box, err := pssh.Decode(b)
	if err != nil {
		return nil, err
	}
	return Describe(box), nil
}

// Describe returns the description of an already decoded box.
func Describe(box *pssh.Box) *PSSHInfo {
	info := &PSSHInfo{
		System:   box.SystemName(),
		SystemID: box.SystemID.String(),
		Version:  box.Version,
		Size:     box.Size(),
		KeyIDs:   keyIDStrings(box.KeyIDs),
		DataSize: len(box.Data),
	}

	switch box.SystemID {
	case pssh.WidevineSystemID:
		var d widevine.PsshData
		if err := d.Unmarshal(box.Data); err != nil {
			info.DecodeError = err.Error()
			break
		}
		info.Widevine = describeWidevine(&d)
	case pssh.PlayReadySystemID:
		header, err := playready.ParseObject(box.Data)
		if err != nil {
			info.DecodeError = err.Error()
			break
		}
		h, err := playready.ParseHeader(header)
		if err != nil {
			info.DecodeError = err.Error()
			break
		}
		info.PlayReady = describePlayReady(h)
	}

	if info.Widevine == nil && info.PlayReady == nil && len(box.Data) > 0 {
		info.Data = base64.StdEncoding.EncodeToString(box.Data)
	}
	return info
}

func describeWidevine(d *widevine.PsshData) *WidevineInfo {
	w := &WidevineInfo{
		Algorithm:        d.Algorithm,
		Provider:         d.Provider,
		ContentID:        printable(d.ContentID),
		ProtectionScheme: d.Scheme(),
	}
	if w.ProtectionScheme == "" && d.ProtectionScheme != 0 {
		w.ProtectionScheme = fmt.Sprintf("0x%08x", d.ProtectionScheme)
	}
	for _, raw := range d.KeyIDs {
		if k, err := keyid.Parse(raw); err == nil {
			w.KeyIDs = append(w.KeyIDs, k.String())
		} else {
			w.KeyIDs = append(w.KeyIDs, hex.EncodeToString(raw))
		}
	}
	return w
}

func describePlayReady(h *playready.Header) *PlayReadyInfo {
	p := &PlayReadyInfo{Version: h.Version, LicenseURL: h.LicenseURL, KIDs: []PlayReadyKID{}}
	for _, k := range h.KIDs {
		p.KIDs = append(p.KIDs, PlayReadyKID{
			KeyID:     k.KeyID.String(),
			Algorithm: string(k.Algorithm),
			Checksum:  k.Checksum,
		})
	}
	return p
}

func keyIDStrings(kids []keyid.KeyID) []string {
	if len(kids) == 0 {
		return nil
	}
	out := make([]string, len(kids))
	for i, k := range kids {
		out[i] = k.String()
	}
	return out
}

// printable returns b as a string when it is printable UTF-8, hex otherwise.
func printable(b []byte) string {
	if !utf8.Valid(b) {
		return hex.EncodeToString(b)
	}
	for _, r := range string(b) {
		if r < 0x20 || r == 0x7f {
			return hex.EncodeToString(b)
		}
	}
	return string(b)
}

// PrintPSSHInfo writes a human readable description.
func PrintPSSHInfo(w io.Writer, info *PSSHInfo) {
	fmt.Fprintf(w, "System:     %s (%s)\n", info.System, info.SystemID)
	fmt.Fprintf(w, "Version:    %d\n", info.Version)
	fmt.Fprintf(w, "Size:       %d bytes\n", info.Size)
	for i, k := range info.KeyIDs {
		fmt.Fprintf(w, "Key ID %d:   %s\n", i+1, k)
	}
	fmt.Fprintf(w, "Data:       %d bytes\n", info.DataSize)

	if wv := info.Widevine; wv != nil {
		fmt.Fprintln(w, "Widevine PSSH data:")
		for _, k := range wv.KeyIDs {
			fmt.Fprintf(w, "  Key ID:            %s\n", k)
		}
		if wv.Provider != "" {
			fmt.Fprintf(w, "  Provider:          %s\n", wv.Provider)
		}
		if wv.ContentID != "" {
			fmt.Fprintf(w, "  Content ID:        %s\n", wv.ContentID)
		}
		if wv.ProtectionScheme != "" {
			fmt.Fprintf(w, "  Protection scheme: %s\n", wv.ProtectionScheme)
		}
	}
	if pr := info.PlayReady; pr != nil {
		fmt.Fprintf(w, "PlayReady header %s:\n", pr.Version)
		for _, k := range pr.KIDs {
			fmt.Fprintf(w, "  KID: %s %s", k.KeyID, k.Algorithm)
			if k.Checksum != "" {
				fmt.Fprintf(w, " checksum=%s", k.Checksum)
			}
			fmt.Fprintln(w)
		}
		if pr.LicenseURL != "" {
			fmt.Fprintf(w, "  LA_URL: %s\n", pr.LicenseURL)
		}
	}
	if info.DecodeError != "" {
		fmt.Fprintln(w, colorize(ColorYellow, "Payload not decoded: "+info.DecodeError))
	}
	if info.Data != "" {
		fmt.Fprintf(w, "Payload:    %s\n", info.Data)
	}
}
