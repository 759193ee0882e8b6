package widevine

import "strings"

// Protection scheme four character codes as big-endian integers.
const (
	SchemeCENC uint32 = 0x63656E63
	SchemeCBC1 uint32 = 0x63626331
	SchemeCENS uint32 = 0x63656E73
	SchemeCBCS uint32 = 0x63626373
)

var schemeCodes = map[string]uint32{
	"cenc": SchemeCENC,
	"cbc1": SchemeCBC1,
	"cens": SchemeCENS,
	"cbcs": SchemeCBCS,
}

// SchemeCode returns the protection_scheme value for a scheme name.
func SchemeCode(name string) (uint32, bool) {
	code, ok := schemeCodes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// SchemeName returns the four character code of a protection_scheme value,
// or "" when it is not one of the common encryption schemes.
func SchemeName(code uint32) string {
	for name, c := range schemeCodes {
		if c == code {
			return name
		}
	}
	return ""
}
