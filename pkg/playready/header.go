package playready

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/unicode"

	"github.com/cpixkit/cpix/pkg/keyid"
)

// Namespace is the WRMHEADER XML namespace.
const Namespace = "http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader"

// AlgorithmID is the ALGID of a KID record.
type AlgorithmID string

const (
	// AESCTR is the stream cipher mode (cenc). Header version 4.2.0.0.
	AESCTR AlgorithmID = "AESCTR"
	// AESCBC is the block cipher mode (cbcs). Header version 4.3.0.0.
	AESCBC AlgorithmID = "AESCBC"
)

// HeaderVersion returns the WRMHEADER version mandated for the algorithm.
func (a AlgorithmID) HeaderVersion() (string, error) {
	switch a {
	case AESCTR:
		return "4.2.0.0", nil
	case AESCBC:
		return "4.3.0.0", nil
	default:
		return "", fmt.Errorf("%w: %q (use AESCTR or AESCBC)", ErrUnknownAlgorithm, string(a))
	}
}

// ParseAlgorithm parses an ALGID, case insensitively. Empty means AESCTR.
func ParseAlgorithm(s string) (AlgorithmID, error) {
	a := AlgorithmID(strings.ToUpper(strings.TrimSpace(s)))
	if a == "" {
		return AESCTR, nil
	}
	if _, err := a.HeaderVersion(); err != nil {
		return "", err
	}
	return a, nil
}

// Key is a key ID with its optional content key. The content key is only
// needed for AESCTR checksums.
type Key = keyid.Entry

// HeaderParams drives WRM header construction.
type HeaderParams struct {
	Keys        []Key
	LicenseURL  string
	Algorithm   AlgorithmID
	UseChecksum bool
}

// BuildHeader returns the WRM header as UTF-16LE encoded XML without an XML
// declaration. CHECKSUM attributes are only written for AESCTR.
func BuildHeader(p HeaderParams) ([]byte, error) {
	s, err := buildHeaderXML(p)
	if err != nil {
		return nil, newError("header", err)
	}
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, newError("header", fmt.Errorf("encode utf-16le: %w", err))
	}
	return b, nil
}

func buildHeaderXML(p HeaderParams) (string, error) {
	if p.Algorithm == "" {
		p.Algorithm = AESCTR
	}
	version, err := p.Algorithm.HeaderVersion()
	if err != nil {
		return "", err
	}
	if len(p.Keys) == 0 {
		return "", ErrNoKeys
	}

	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalEndTags = true

	root := doc.CreateElement("WRMHEADER")
	root.CreateAttr("xmlns", Namespace)
	root.CreateAttr("version", version)

	data := root.CreateElement("DATA")
	kids := data.CreateElement("PROTECTINFO").CreateElement("KIDS")
	for _, key := range p.Keys {
		kid := kids.CreateElement("KID")
		kid.CreateAttr("ALGID", string(p.Algorithm))
		if p.Algorithm == AESCTR && p.UseChecksum {
			checksum, err := Checksum(key.KeyID, key.Key)
			if err != nil {
				return "", err
			}
			kid.CreateAttr("CHECKSUM", checksum)
		}
		kid.CreateAttr("VALUE", base64.StdEncoding.EncodeToString(key.KeyID.GUIDBytes()))
	}
	data.CreateElement("LA_URL").SetText(p.LicenseURL)

	return doc.WriteToString()
}

// HeaderKID is a KID record read from a WRM header.
type HeaderKID struct {
	KeyID     keyid.KeyID
	Algorithm AlgorithmID
	Checksum  string
}

// Header is a parsed WRM header.
type Header struct {
	Version    string
	KIDs       []HeaderKID
	LicenseURL string
}

// ParseHeader decodes a UTF-16LE WRM header. Versions 4.0 (single DATA/KID)
// through 4.3 (DATA/PROTECTINFO/KIDS/KID) are understood.
func ParseHeader(b []byte) (*Header, error) {
	utf8, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return nil, newError("parse", fmt.Errorf("%w: %v", ErrInvalidHeader, err))
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(strings.TrimPrefix(string(utf8), "\ufeff")); err != nil {
		return nil, newError("parse", fmt.Errorf("%w: %v", ErrInvalidHeader, err))
	}
	root := doc.SelectElement("WRMHEADER")
	if root == nil {
		return nil, newError("parse", fmt.Errorf("%w: missing WRMHEADER", ErrInvalidHeader))
	}
	h := &Header{Version: root.SelectAttrValue("version", "")}

	data := root.SelectElement("DATA")
	if data == nil {
		return nil, newError("parse", fmt.Errorf("%w: missing DATA", ErrInvalidHeader))
	}
	if la := data.SelectElement("LA_URL"); la != nil {
		h.LicenseURL = strings.TrimSpace(la.Text())
	}

	// 4.1+ carries ALGID and VALUE as KID attributes.
	for _, el := range append(data.FindElements("./PROTECTINFO/KIDS/KID"), data.FindElements("./PROTECTINFO/KID")...) {
		k, err := parseKIDValue(el.SelectAttrValue("VALUE", ""))
		if err != nil {
			return nil, newError("parse", err)
		}
		h.KIDs = append(h.KIDs, HeaderKID{
			KeyID:     k,
			Algorithm: AlgorithmID(el.SelectAttrValue("ALGID", "")),
			Checksum:  el.SelectAttrValue("CHECKSUM", ""),
		})
	}

	// 4.0 carries the KID as element text and ALGID under PROTECTINFO.
	if el := data.SelectElement("KID"); el != nil {
		k, err := parseKIDValue(el.Text())
		if err != nil {
			return nil, newError("parse", err)
		}
		kid := HeaderKID{KeyID: k}
		if alg := data.FindElement("./PROTECTINFO/ALGID"); alg != nil {
			kid.Algorithm = AlgorithmID(strings.TrimSpace(alg.Text()))
		}
		if cs := data.SelectElement("CHECKSUM"); cs != nil {
			kid.Checksum = strings.TrimSpace(cs.Text())
		}
		h.KIDs = append(h.KIDs, kid)
	}

	return h, nil
}

func parseKIDValue(v string) (keyid.KeyID, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v))
	if err != nil {
		return keyid.Nil, fmt.Errorf("%w: KID value: %v", ErrInvalidHeader, err)
	}
	k, err := keyid.FromGUIDBytes(raw)
	if err != nil {
		return keyid.Nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	return k, nil
}
