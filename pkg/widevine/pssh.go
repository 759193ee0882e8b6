package widevine

import (
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/pssh"
)

// HeaderParams drives Widevine PSSH data construction. Key IDs may be given
// in any form keyid.Parse accepts.
type HeaderParams struct {
	KeyIDs           []any
	Provider         string
	ContentID        []byte
	ProtectionScheme string
}

func (p HeaderParams) psshData() (*PsshData, []keyid.KeyID, error) {
	kids, err := keyid.ParseAll(p.KeyIDs)
	if err != nil {
		return nil, nil, newError("header", err)
	}
	if len(kids) == 0 && len(p.ContentID) == 0 {
		return nil, nil, newError("header", ErrMissingKeyIDsAndContentID)
	}

	d := &PsshData{Provider: p.Provider, ContentID: p.ContentID}
	for _, kid := range kids {
		d.KeyIDs = append(d.KeyIDs, kid.Bytes())
	}
	// unknown scheme names are left out of the payload
	if code, ok := SchemeCode(p.ProtectionScheme); ok {
		d.ProtectionScheme = code
	}
	return d, kids, nil
}

// BuildHeaderData returns the protobuf encoded WidevinePsshData.
func BuildHeaderData(p HeaderParams) ([]byte, error) {
	d, _, err := p.psshData()
	if err != nil {
		return nil, err
	}
	return d.Marshal(), nil
}

// BuildPSSH builds a Widevine PSSH box. Version 1 boxes also list the key IDs.
func BuildPSSH(p HeaderParams, version uint8) ([]byte, error) {
	d, kids, err := p.psshData()
	if err != nil {
		return nil, err
	}
	var boxKIDs [][]byte
	if version == 1 {
		for _, kid := range kids {
			boxKIDs = append(boxKIDs, kid.Bytes())
		}
	}
	return pssh.Encode(pssh.BoxType, version, pssh.WidevineSystemID[:], boxKIDs, d.Marshal())
}

// ParsePSSH decodes a Widevine PSSH box and its payload.
func ParsePSSH(b []byte) (*pssh.Box, *PsshData, error) {
	box, err := pssh.Decode(b)
	if err != nil {
		return nil, nil, err
	}
	if box.SystemID != pssh.WidevineSystemID {
		return nil, nil, newError("parse", ErrNotWidevine)
	}
	var d PsshData
	if err := d.Unmarshal(box.Data); err != nil {
		return nil, nil, err
	}
	return box, &d, nil
}
