package playready

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// TestServerURL is the license acquisition URL of the public PlayReady test
// server.
const TestServerURL = "https://test.playready.microsoft.com/service/rightsmanager.asmx"

// TestServerKeySeed is the base64 key seed of the public PlayReady test
// server.
const TestServerKeySeed = "XVBovsmzhP9gRIZxWfFta3VVRPzVEWmJsazEJ46I"

// ConfiguredLicenseURL appends a cfg query to base listing every key ID
// with its content key, so the test server issues licenses for keys it did
// not derive itself. The content keys are readable in the URL.
//
//	base?cfg=(kid:<guid b64>,contentkey:<b64>),...
func ConfiguredLicenseURL(base string, keys []Key) (string, error) {
	if len(keys) == 0 {
		return "", newError("header", ErrNoKeys)
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if len(k.Key) != ContentKeySize {
			return "", newError("header", fmt.Errorf("%w: key %s", ErrInvalidContentKey, k.KeyID))
		}
		parts = append(parts, fmt.Sprintf("(kid:%s,contentkey:%s)",
			base64.StdEncoding.EncodeToString(k.KeyID.GUIDBytes()),
			base64.StdEncoding.EncodeToString(k.Key)))
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "cfg=" + strings.Join(parts, ","), nil
}
