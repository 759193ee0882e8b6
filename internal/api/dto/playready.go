package dto

// PlayReadyKeyRequest represents a content key derivation request.
type PlayReadyKeyRequest struct {
	KeyIDs []string `json:"key_ids"`
}

// PlayReadyKeyResponse lists derived content keys.
type PlayReadyKeyResponse struct {
	Keys []DerivedKey `json:"keys"`
}

// DerivedKey is a content key derived from the key seed.
type DerivedKey struct {
	KeyID string `json:"key_id"`

	// Key is the hex encoded content key.
	Key string `json:"key"`

	// Checksum is the WRM header key checksum.
	Checksum string `json:"checksum"`
}
