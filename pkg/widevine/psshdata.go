package widevine

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// WidevinePsshData field numbers.
const (
	fieldAlgorithm        protowire.Number = 1 // deprecated, 1 = AESCTR
	fieldKeyID            protowire.Number = 2
	fieldProvider         protowire.Number = 3
	fieldContentID        protowire.Number = 4
	fieldProtectionScheme protowire.Number = 9
)

// PsshData is the subset of the WidevinePsshData message written into PSSH
// boxes. Zero values are omitted on the wire.
type PsshData struct {
	Algorithm        uint32
	KeyIDs           [][]byte
	Provider         string
	ContentID        []byte
	ProtectionScheme uint32
}

// Marshal encodes d in field number order. protection_scheme is written as
// fixed32.
func (d *PsshData) Marshal() []byte {
	var b []byte
	if d.Algorithm != 0 {
		b = protowire.AppendTag(b, fieldAlgorithm, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.Algorithm))
	}
	for _, kid := range d.KeyIDs {
		b = protowire.AppendTag(b, fieldKeyID, protowire.BytesType)
		b = protowire.AppendBytes(b, kid)
	}
	if d.Provider != "" {
		b = protowire.AppendTag(b, fieldProvider, protowire.BytesType)
		b = protowire.AppendString(b, d.Provider)
	}
	if len(d.ContentID) > 0 {
		b = protowire.AppendTag(b, fieldContentID, protowire.BytesType)
		b = protowire.AppendBytes(b, d.ContentID)
	}
	if d.ProtectionScheme != 0 {
		b = protowire.AppendTag(b, fieldProtectionScheme, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, d.ProtectionScheme)
	}
	return b
}

// Unmarshal decodes a WidevinePsshData message. Unknown fields are skipped
// and protection_scheme is accepted as either fixed32 or varint, since key
// servers emit the latter.
func (d *PsshData) Unmarshal(b []byte) error {
	*d = PsshData{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return wireError(n)
		}
		b = b[n:]

		switch {
		case num == fieldAlgorithm && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return wireError(n)
			}
			d.Algorithm = uint32(v)
			b = b[n:]
		case num == fieldKeyID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return wireError(n)
			}
			d.KeyIDs = append(d.KeyIDs, append([]byte(nil), v...))
			b = b[n:]
		case num == fieldProvider && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return wireError(n)
			}
			d.Provider = v
			b = b[n:]
		case num == fieldContentID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return wireError(n)
			}
			d.ContentID = append([]byte(nil), v...)
			b = b[n:]
		case num == fieldProtectionScheme && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return wireError(n)
			}
			d.ProtectionScheme = v
			b = b[n:]
		case num == fieldProtectionScheme && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return wireError(n)
			}
			d.ProtectionScheme = uint32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return wireError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// Scheme returns the protection scheme name, "" when unset or unknown.
func (d *PsshData) Scheme() string { return SchemeName(d.ProtectionScheme) }

func wireError(n int) error {
	return newError("parse", fmt.Errorf("%w: %v", ErrInvalidPsshData, protowire.ParseError(n)))
}
