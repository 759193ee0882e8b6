package pssh

import (
	"encoding/base64"
	"encoding/binary"
	"math"

	"github.com/google/uuid"

	"github.com/cpixkit/cpix/pkg/keyid"
)

// BoxType is the four character code of the box.
const BoxType = "pssh"

const (
	headerLen   = 8  // size + type
	fullBoxLen  = 12 // + version + flags
	systemIDLen = 16
	// MinSize is the length of a version 0 box with an empty payload.
	MinSize = fullBoxLen + systemIDLen + 4
)

//	aligned(8) class ProtectionSystemSpecificHeaderBox extends FullBox('pssh', version, flags=0) {
//	    unsigned int(8)[16] SystemID;
//	    if (version > 0) {
//	        unsigned int(32) KID_count;
//	        { unsigned int(8)[16] KID; } [KID_count];
//	    }
//	    unsigned int(32) DataSize;
//	    unsigned int(8)[DataSize] Data;
//	}

// Box is a decoded pssh box. KeyIDs is only meaningful for version 1.
type Box struct {
	Version  uint8
	SystemID uuid.UUID
	KeyIDs   []keyid.KeyID
	Data     []byte
}

// Encode serializes a pssh box.
//
// boxType must be "pssh". Version 1 boxes carry the key ID array; passing key
// IDs with version 0 is an error rather than a silent drop. The returned buffer
// is complete or nil.
func Encode(boxType string, version uint8, systemID []byte, keyIDs [][]byte, payload []byte) ([]byte, error) {
	if boxType != BoxType {
		return nil, errorf("encode", ErrInvalidBoxType, "%q", boxType)
	}
	if version > 1 {
		return nil, errorf("encode", ErrUnsupportedVersion, "%d", version)
	}
	if len(systemID) != systemIDLen {
		return nil, errorf("encode", ErrInvalidSystemID, "expected %d bytes, got %d", systemIDLen, len(systemID))
	}
	if version == 0 && len(keyIDs) > 0 {
		return nil, newError("encode", ErrKeyIDsWithVersion0)
	}
	for i, kid := range keyIDs {
		if len(kid) != keyid.Size {
			return nil, errorf("encode", ErrInvalidKeyID, "key ID %d: expected %d bytes, got %d", i, keyid.Size, len(kid))
		}
	}

	size := uint64(MinSize) + uint64(len(payload))
	if version == 1 {
		size += 4 + uint64(len(keyIDs))*keyid.Size
	}
	if size > math.MaxUint32 {
		return nil, errorf("encode", ErrInvalidSize, "%d bytes exceeds 32-bit size field", size)
	}

	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(size))
	buf = append(buf, BoxType...)
	buf = append(buf, version, 0, 0, 0)
	buf = append(buf, systemID...)
	if version == 1 {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(keyIDs)))
		for _, kid := range keyIDs {
			buf = append(buf, kid...)
		}
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	return buf, nil
}

// Decode parses a single pssh box occupying all of b.
func Decode(b []byte) (*Box, error) {
	if len(b) < MinSize {
		return nil, errorf("decode", ErrTruncated, "need at least %d bytes, got %d", MinSize, len(b))
	}
	if size := binary.BigEndian.Uint32(b); uint64(size) != uint64(len(b)) {
		return nil, errorf("decode", ErrInvalidSize, "declared %d bytes, got %d", size, len(b))
	}
	if string(b[4:8]) != BoxType {
		return nil, errorf("decode", ErrInvalidBoxType, "%q", b[4:8])
	}
	version := b[8]
	if version > 1 {
		return nil, errorf("decode", ErrUnsupportedVersion, "%d", version)
	}
	if b[9] != 0 || b[10] != 0 || b[11] != 0 {
		return nil, errorf("decode", ErrInvalidFlags, "%x", b[9:12])
	}

	box := &Box{Version: version}
	copy(box.SystemID[:], b[fullBoxLen:fullBoxLen+systemIDLen])
	n := fullBoxLen + systemIDLen

	if version == 1 {
		if len(b)-n < 4 {
			return nil, errorf("decode", ErrTruncated, "missing key ID count")
		}
		count := binary.BigEndian.Uint32(b[n:])
		n += 4
		if uint64(count) > uint64(len(b)-n)/keyid.Size {
			return nil, errorf("decode", ErrTruncated, "%d key IDs do not fit in %d bytes", count, len(b)-n)
		}
		box.KeyIDs = make([]keyid.KeyID, count)
		for i := range box.KeyIDs {
			copy(box.KeyIDs[i][:], b[n:n+keyid.Size])
			n += keyid.Size
		}
	}

	if len(b)-n < 4 {
		return nil, errorf("decode", ErrTruncated, "missing data size")
	}
	dataLen := binary.BigEndian.Uint32(b[n:])
	n += 4
	if uint64(dataLen) != uint64(len(b)-n) {
		return nil, errorf("decode", ErrInvalidSize, "data size %d does not match remaining %d bytes", dataLen, len(b)-n)
	}
	box.Data = make([]byte, dataLen)
	copy(box.Data, b[n:])
	return box, nil
}

// DecodeBase64 decodes a standard base64 string and parses the box.
func DecodeBase64(s string) (*Box, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, newError("decode", err)
	}
	return Decode(b)
}

// Marshal encodes the box.
func (b *Box) Marshal() ([]byte, error) {
	kids := make([][]byte, len(b.KeyIDs))
	for i := range b.KeyIDs {
		kids[i] = b.KeyIDs[i].Bytes()
	}
	return Encode(BoxType, b.Version, b.SystemID[:], kids, b.Data)
}

// Base64 encodes the box and returns it as standard base64, the form
// embedded in CPIX PSSH elements.
func (b *Box) Base64() (string, error) {
	raw, err := b.Marshal()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Size returns the encoded length of the box.
func (b *Box) Size() int {
	n := MinSize + len(b.Data)
	if b.Version == 1 {
		n += 4 + len(b.KeyIDs)*keyid.Size
	}
	return n
}

// SystemName returns the DRM system name for the box's system ID.
func (b *Box) SystemName() string {
	return SystemName(b.SystemID)
}
