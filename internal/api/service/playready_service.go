package service

import (
	"context"
	"encoding/hex"

	"github.com/cpixkit/cpix/internal/api/dto"
	"github.com/cpixkit/cpix/internal/audit"
	"github.com/cpixkit/cpix/internal/config"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
)

// PlayReadyService derives content keys from the configured key seed.
type PlayReadyService struct {
	settings config.PlayReadySettings
}

// NewPlayReadyService creates a new PlayReadyService.
func NewPlayReadyService(settings config.PlayReadySettings) *PlayReadyService {
	return &PlayReadyService{settings: settings}
}

// DeriveKeys derives the content key and checksum of every requested key ID.
func (s *PlayReadyService) DeriveKeys(ctx context.Context, req *dto.PlayReadyKeyRequest) (*dto.PlayReadyKeyResponse, error) {
	if len(req.KeyIDs) == 0 {
		return nil, invalid("key_ids is required")
	}
	kids, err := keyid.ParseAll(req.KeyIDs)
	if err != nil {
		return nil, err
	}

	resp, err := s.derive(kids)
	if auditErr := audit.LogKeyDerived(keyIDStrings(kids), err); auditErr != nil {
		return nil, audited(auditErr)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *PlayReadyService) derive(kids []keyid.KeyID) (*dto.PlayReadyKeyResponse, error) {
	seed, err := s.settings.Seed()
	if err != nil {
		return nil, err
	}
	entries, err := playready.DeriveEntries(kids, seed)
	if err != nil {
		return nil, err
	}

	resp := &dto.PlayReadyKeyResponse{Keys: make([]dto.DerivedKey, 0, len(entries))}
	for _, e := range entries {
		checksum, err := playready.Checksum(e.KeyID, e.Key)
		if err != nil {
			return nil, err
		}
		resp.Keys = append(resp.Keys, dto.DerivedKey{
			KeyID:    e.KeyID.String(),
			Key:      hex.EncodeToString(e.Key),
			Checksum: checksum,
		})
	}
	return resp, nil
}
