package dto

// CPIXValidateRequest represents a CPIX document validation request.
type CPIXValidateRequest struct {
	// Document is the CPIX XML, as text.
	Document string `json:"document"`
}

// CPIXValidateResponse represents the validation result.
type CPIXValidateResponse struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors,omitempty"`
	ContentID   string   `json:"content_id,omitempty"`
	KeyIDs      []string `json:"key_ids"`
	DRMSystems  int      `json:"drm_systems"`
	UsageRules  int      `json:"usage_rules"`
	PeriodCount int      `json:"periods"`
}
