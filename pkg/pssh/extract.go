package pssh

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Extract reads an MP4 or CMAF init segment and returns every pssh box found
// in its moov box, each re-validated through Decode.
func Extract(r io.Reader) ([]*Box, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, newError("extract", fmt.Errorf("decode mp4: %w", err))
	}

	moov := f.Moov
	if moov == nil && f.Init != nil {
		moov = f.Init.Moov
	}
	if moov == nil {
		return nil, newError("extract", fmt.Errorf("%w: no moov box", ErrNoBoxes))
	}
	if len(moov.Psshs) == 0 {
		return nil, newError("extract", ErrNoBoxes)
	}

	boxes := make([]*Box, 0, len(moov.Psshs))
	for i, p := range moov.Psshs {
		var buf bytes.Buffer
		if err := p.Encode(&buf); err != nil {
			return nil, newError("extract", fmt.Errorf("box %d: %w", i, err))
		}
		box, err := Decode(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("box %d: %w", i, err)
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}
