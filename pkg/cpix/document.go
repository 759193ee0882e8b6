package cpix

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cpixkit/cpix/pkg/keyid"
)

// XML namespaces of a CPIX document.
const (
	Namespace      = "urn:dashif:org:cpix"
	PSKCNamespace  = "urn:ietf:params:xml:ns:keyprov:pskc"
	XSINamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocation = "urn:dashif:org:cpix cpix.xsd"
	DSNamespace    = "http://www.w3.org/2000/09/xmldsig#"
	ENCNamespace   = "http://www.w3.org/2001/04/xmlenc#"
)

// Algorithm URIs written on DeliveryData elements.
const (
	ContentKeyWrappingAlgorithm  = "http://www.w3.org/2001/04/xmlenc#aes256-cbc"
	DocumentKeyWrappingAlgorithm = "http://www.w3.org/2001/04/xmlenc#rsa-oaep-mgf1p"
	EncryptedKeyMACAlgorithm     = "http://www.w3.org/2001/04/xmldsig-more#hmac-sha512"
)

// Document is the root CPIX element.
type Document struct {
	ContentID    string
	Version      string
	DeliveryData []DeliveryData
	ContentKeys  []ContentKey
	DRMSystems   []DRMSystem
	Periods      []Period
	UsageRules   []UsageRule
}

// DeliveryData names a recipient of the document. DeliveryKey is the
// recipient's DER certificate, DocumentKey the document key encrypted to it
// and MACMethod the encrypted MAC key, which may be empty.
type DeliveryData struct {
	DeliveryKey []byte
	DocumentKey []byte
	MACMethod   []byte
}

// Certificate parses the delivery key.
func (dd DeliveryData) Certificate() (*x509.Certificate, error) {
	if len(dd.DeliveryKey) == 0 {
		return nil, fmt.Errorf("%w: delivery key without certificate", ErrInvalidDocument)
	}
	cert, err := x509.ParseCertificate(dd.DeliveryKey)
	if err != nil {
		return nil, fmt.Errorf("%w: delivery key: %v", ErrInvalidDocument, err)
	}
	return cert, nil
}

// ContentKey carries a clear content encryption key.
type ContentKey struct {
	KID keyid.KeyID
	CEK []byte
}

// DRMSystem carries the signaling data of one protection system for one key.
// All byte fields are base64 encoded in XML and omitted when empty.
type DRMSystem struct {
	KID                    keyid.KeyID
	SystemID               uuid.UUID
	PSSH                   []byte
	ContentProtectionData  []byte
	HLSSignalingData       []byte // media playlist
	HLSSignalingDataMaster []byte // master playlist
}

// Period is a ContentKeyPeriod. Index is mutually exclusive with Start and
// End, which must be given together.
type Period struct {
	ID    string
	Index *int
	Start *time.Time
	End   *time.Time
}

// UsageRule maps a key to the tracks selected by its filters.
type UsageRule struct {
	KID     keyid.KeyID
	Filters []Filter
}

// Filter is one of VideoFilter, AudioFilter, BitrateFilter, KeyPeriodFilter
// or LabelFilter.
type Filter interface {
	filterName() string
}

// VideoFilter selects video tracks. Zero numeric values and nil flags are
// left out.
type VideoFilter struct {
	MinPixels int
	MaxPixels int
	HDR       *bool
	WCG       *bool
	MinFPS    int
	MaxFPS    int
}

// AudioFilter selects audio tracks.
type AudioFilter struct {
	MinChannels int
	MaxChannels int
}

// BitrateFilter selects tracks by bitrate.
type BitrateFilter struct {
	MinBitrate int
	MaxBitrate int
}

// KeyPeriodFilter restricts a rule to one key period.
type KeyPeriodFilter struct {
	PeriodID string
}

// LabelFilter selects tracks by label.
type LabelFilter struct {
	Label string
}

func (VideoFilter) filterName() string     { return "VideoFilter" }
func (AudioFilter) filterName() string     { return "AudioFilter" }
func (BitrateFilter) filterName() string   { return "BitrateFilter" }
func (KeyPeriodFilter) filterName() string { return "KeyPeriodFilter" }
func (LabelFilter) filterName() string     { return "LabelFilter" }

// Standard pixel counts separating the video track types.
const (
	MaxPixelsSD   = 768 * 576
	MaxPixelsHD   = 1920 * 1080
	MaxPixelsUHD1 = 4096 * 2160
)

// UsageRuleForTrack returns the standard usage rule of a track type.
func UsageRuleForTrack(kid keyid.KeyID, t keyid.TrackType) (UsageRule, bool) {
	var f Filter
	switch t {
	case keyid.TrackAudio:
		f = AudioFilter{}
	case keyid.TrackSD:
		f = VideoFilter{MaxPixels: MaxPixelsSD}
	case keyid.TrackHD:
		f = VideoFilter{MinPixels: MaxPixelsSD + 1, MaxPixels: MaxPixelsHD}
	case keyid.TrackUHD1:
		f = VideoFilter{MinPixels: MaxPixelsHD + 1, MaxPixels: MaxPixelsUHD1}
	case keyid.TrackUHD2:
		f = VideoFilter{MinPixels: MaxPixelsUHD1 + 1}
	default:
		return UsageRule{}, false
	}
	return UsageRule{KID: kid, Filters: []Filter{f}}, true
}

// AddKey appends a content key together with its usage rule for t, when t
// is a known track type.
func (d *Document) AddKey(kid keyid.KeyID, cek []byte, t keyid.TrackType) {
	d.ContentKeys = append(d.ContentKeys, ContentKey{KID: kid, CEK: cek})
	if rule, ok := UsageRuleForTrack(kid, t); ok {
		d.UsageRules = append(d.UsageRules, rule)
	}
}

// ContentKey returns the content key for kid.
func (d *Document) ContentKey(kid keyid.KeyID) (ContentKey, bool) {
	for _, k := range d.ContentKeys {
		if k.KID == kid {
			return k, true
		}
	}
	return ContentKey{}, false
}
