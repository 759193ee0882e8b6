package dto

// WidevinePSSHRequest represents a Widevine PSSH build request.
type WidevinePSSHRequest struct {
	// KeyIDs are hyphenated GUIDs or 32 hex digits.
	KeyIDs []string `json:"key_ids,omitempty"`

	// Provider is the content provider name.
	Provider string `json:"provider,omitempty"`

	// ContentID is an opaque content identifier, sent as text.
	ContentID string `json:"content_id,omitempty"`

	// ProtectionScheme is one of cenc, cbc1, cens or cbcs.
	ProtectionScheme string `json:"protection_scheme,omitempty"`

	// Version is the box version (default: 1).
	Version *int `json:"version,omitempty"`
}

// PlayReadyKey is a key ID with an optional content key.
type PlayReadyKey struct {
	KeyID string `json:"key_id"`

	// Key is the hex or base64 content key. Without it the key is derived
	// from the key seed when a checksum is needed.
	Key string `json:"key,omitempty"`
}

// PlayReadyPSSHRequest represents a PlayReady PSSH build request.
type PlayReadyPSSHRequest struct {
	Keys []PlayReadyKey `json:"keys"`

	// LicenseURL overrides the configured LA_URL.
	LicenseURL string `json:"la_url,omitempty"`

	// Algorithm is AESCTR (default) or AESCBC.
	Algorithm string `json:"algorithm,omitempty"`

	// Checksum controls CHECKSUM attributes (default: true).
	Checksum *bool `json:"checksum,omitempty"`

	// Version is the box version (default: 1).
	Version *int `json:"version,omitempty"`
}

// PSSHResponse represents a built PSSH box.
type PSSHResponse struct {
	// PSSH is the complete box.
	PSSH BinaryData `json:"pssh"`

	// SystemID is the DRM system ID.
	SystemID string `json:"system_id"`

	// KeyIDs lists the key IDs in the box.
	KeyIDs []string `json:"key_ids"`

	// Size is the box size in bytes.
	Size int `json:"size"`
}

// PSSHDecodeRequest represents a PSSH decode request.
type PSSHDecodeRequest struct {
	PSSH BinaryData `json:"pssh"`
}
