package playready

import (
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/pssh"
)

// BuildPSSH builds a PlayReady PSSH box carrying a PlayReady object. Version
// 1 boxes also list the key IDs in network byte order.
func BuildPSSH(p HeaderParams, version uint8) ([]byte, error) {
	header, err := BuildHeader(p)
	if err != nil {
		return nil, err
	}
	obj, err := BuildObject(header)
	if err != nil {
		return nil, err
	}

	var kids [][]byte
	if version == 1 {
		kids = make([][]byte, 0, len(p.Keys))
		for _, k := range p.Keys {
			kids = append(kids, k.KeyID.Bytes())
		}
	}
	return pssh.Encode(pssh.BoxType, version, pssh.PlayReadySystemID[:], kids, obj)
}

// ParsePSSH decodes a PlayReady PSSH box and its WRM header.
func ParsePSSH(b []byte) (*pssh.Box, *Header, error) {
	box, err := pssh.Decode(b)
	if err != nil {
		return nil, nil, err
	}
	if box.SystemID != pssh.PlayReadySystemID {
		return nil, nil, newError("parse", ErrInvalidObject)
	}
	header, err := ParseObject(box.Data)
	if err != nil {
		return nil, nil, err
	}
	h, err := ParseHeader(header)
	if err != nil {
		return nil, nil, err
	}
	return box, h, nil
}

// KeyIDs returns the key IDs listed in a parsed header.
func (h *Header) KeyIDs() []keyid.KeyID {
	out := make([]keyid.KeyID, 0, len(h.KIDs))
	for _, k := range h.KIDs {
		out = append(out, k.KeyID)
	}
	return out
}
