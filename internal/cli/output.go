package cli

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Box output formats.
const (
	FormatBase64   = "base64"
	FormatHex      = "hex"
	FormatRaw      = "raw"
	FormatPackager = "packager"
)

// FormatBytes renders a box or PlayReady object. The packager format is the
// command line option understood by the packager, named after option
// (e.g. "--widevine.drm_specific_data=<base64>").
func FormatBytes(b []byte, format, option string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatBase64:
		return []byte(base64.StdEncoding.EncodeToString(b) + "\n"), nil
	case FormatHex:
		return []byte(hex.EncodeToString(b) + "\n"), nil
	case FormatRaw:
		return b, nil
	case FormatPackager:
		return []byte(fmt.Sprintf("--%s.drm_specific_data=%s\n", option, base64.StdEncoding.EncodeToString(b))), nil
	default:
		return nil, fmt.Errorf("unknown format %q (use base64, hex, raw or packager)", format)
	}
}

// Structured output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// WriteStructured writes v as indented JSON or YAML.
func WriteStructured(w io.Writer, v any, format string) error {
	switch strings.ToLower(format) {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (use text, json or yaml)", format)
	}
}

// WriteOutput writes data to path, or to stdout when path is empty or "-".
func WriteOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
