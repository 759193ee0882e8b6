package playready

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	objectHeaderLen = 6 // length(4) + record count(2)
	recordHeaderLen = 4 // record type(2) + record length(2)

	// RecordTypeWRMHeader is the PlayReady object record type of a WRM header.
	RecordTypeWRMHeader = 1
)

// BuildObject wraps a WRM header in a single-record PlayReady object:
//
//	uint32le total length (header length + 10)
//	uint16le record count (1)
//	uint16le record type (1)
//	uint16le header length
//	header bytes
func BuildObject(header []byte) ([]byte, error) {
	if len(header) > math.MaxUint16 {
		return nil, newError("object", fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, len(header)))
	}
	total := objectHeaderLen + recordHeaderLen + len(header)

	buf := make([]byte, 0, total)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(total))
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, RecordTypeWRMHeader)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(header)))
	buf = append(buf, header...)
	return buf, nil
}

// ParseObject returns the WRM header record of a PlayReady object. Records
// of other types (embedded license stores) are skipped.
func ParseObject(obj []byte) ([]byte, error) {
	if len(obj) < objectHeaderLen {
		return nil, newError("parse", fmt.Errorf("%w: %d bytes", ErrInvalidObject, len(obj)))
	}
	if total := binary.LittleEndian.Uint32(obj); uint64(total) != uint64(len(obj)) {
		return nil, newError("parse", fmt.Errorf("%w: declared length %d, got %d", ErrInvalidObject, total, len(obj)))
	}
	count := int(binary.LittleEndian.Uint16(obj[4:]))

	n := objectHeaderLen
	var header []byte
	for i := 0; i < count; i++ {
		if len(obj)-n < recordHeaderLen {
			return nil, newError("parse", fmt.Errorf("%w: record %d truncated", ErrInvalidObject, i))
		}
		typ := binary.LittleEndian.Uint16(obj[n:])
		size := int(binary.LittleEndian.Uint16(obj[n+2:]))
		n += recordHeaderLen
		if len(obj)-n < size {
			return nil, newError("parse", fmt.Errorf("%w: record %d truncated", ErrInvalidObject, i))
		}
		if typ == RecordTypeWRMHeader && header == nil {
			header = obj[n : n+size]
		}
		n += size
	}
	if header == nil {
		return nil, newError("parse", ErrNoHeaderRecord)
	}
	return header, nil
}
