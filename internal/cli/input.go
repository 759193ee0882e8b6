package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cpixkit/cpix/pkg/keyid"
)

// ErrUndecodable is returned for text that is neither hex nor base64.
var ErrUndecodable = errors.New("input is neither hex nor base64")

// DecodeText decodes hex (optionally 0x prefixed) or base64 text. Whitespace
// is ignored.
func DecodeText(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, fmt.Errorf("empty input")
	}
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if b, err := hex.DecodeString(h); err == nil {
		return b, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, ErrUndecodable
}

// ReadInput resolves a command argument to bytes. "-" reads stdin; an
// existing path is read as a file; anything else is decoded as hex or
// base64 text. File and stdin content is decoded as text when it is not a
// binary box.
func ReadInput(arg string, stdin io.Reader) ([]byte, error) {
	var data []byte
	switch {
	case arg == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		data = b
	case fileExists(arg):
		b, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		data = b
	default:
		return DecodeText(arg)
	}

	if looksLikeBox(data) {
		return data, nil
	}
	if b, err := DecodeText(string(data)); err == nil {
		return b, nil
	}
	return data, nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// looksLikeBox reports whether data starts with an ISOBMFF box header of
// type pssh.
func looksLikeBox(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[4:8], []byte("pssh"))
}

// ParseKeyPairs parses "kid:key,kid:key" where key IDs use any accepted key
// ID form and keys are hex or base64.
func ParseKeyPairs(s string) ([]keyid.Entry, error) {
	var entries []keyid.Entry
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		kid, key, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("key %q: expected kid:key", item)
		}
		cek, err := DecodeText(key)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", kid, err)
		}
		e, err := keyid.NewEntry(kid, cek, "")
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no keys given")
	}
	return entries, nil
}
