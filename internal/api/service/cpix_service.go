package service

import (
	"context"

	"github.com/cpixkit/cpix/internal/api/dto"
	"github.com/cpixkit/cpix/pkg/cpix"
)

// CPIXService validates CPIX documents.
type CPIXService struct{}

// NewCPIXService creates a new CPIXService.
func NewCPIXService() *CPIXService {
	return &CPIXService{}
}

// Validate parses a CPIX document and reports its consistency errors. A
// document that cannot be parsed is an error; a parsed document with
// inconsistencies is reported as invalid.
func (s *CPIXService) Validate(ctx context.Context, req *dto.CPIXValidateRequest) (*dto.CPIXValidateResponse, error) {
	if req.Document == "" {
		return nil, invalid("document is required")
	}
	doc, err := cpix.Parse([]byte(req.Document))
	if err != nil {
		return nil, err
	}

	resp := &dto.CPIXValidateResponse{
		ContentID:   doc.ContentID,
		KeyIDs:      make([]string, 0, len(doc.ContentKeys)),
		DRMSystems:  len(doc.DRMSystems),
		UsageRules:  len(doc.UsageRules),
		PeriodCount: len(doc.Periods),
	}
	for _, k := range doc.ContentKeys {
		resp.KeyIDs = append(resp.KeyIDs, k.KID.String())
	}
	for _, e := range doc.Validate() {
		resp.Errors = append(resp.Errors, e.Error())
	}
	resp.Valid = len(resp.Errors) == 0
	return resp, nil
}
