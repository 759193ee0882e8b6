package service

import (
	"context"

	"github.com/cpixkit/cpix/internal/api/dto"
	"github.com/cpixkit/cpix/internal/audit"
	"github.com/cpixkit/cpix/internal/cli"
	"github.com/cpixkit/cpix/internal/config"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/pssh"
	"github.com/cpixkit/cpix/pkg/widevine"
)

// PSSHService builds and decodes PSSH boxes for the REST API.
type PSSHService struct {
	playready config.PlayReadySettings
}

// NewPSSHService creates a new PSSHService. PlayReady requests without an
// LA_URL, algorithm or checksum setting fall back to pr.
func NewPSSHService(pr config.PlayReadySettings) *PSSHService {
	return &PSSHService{playready: pr}
}

// Widevine builds a Widevine PSSH box.
func (s *PSSHService) Widevine(ctx context.Context, req *dto.WidevinePSSHRequest) (*dto.PSSHResponse, error) {
	version, err := boxVersion(req.Version)
	if err != nil {
		return nil, err
	}

	kids := make([]any, len(req.KeyIDs))
	for i, k := range req.KeyIDs {
		kids[i] = k
	}
	params := widevine.HeaderParams{
		KeyIDs:           kids,
		Provider:         req.Provider,
		ProtectionScheme: req.ProtectionScheme,
	}
	if req.ContentID != "" {
		params.ContentID = []byte(req.ContentID)
	}
	if req.ProtectionScheme != "" {
		if _, ok := widevine.SchemeCode(req.ProtectionScheme); !ok {
			return nil, invalid("unknown protection scheme %q (use cenc, cbc1, cens or cbcs)", req.ProtectionScheme)
		}
	}

	box, err := widevine.BuildPSSH(params, version)
	if auditErr := audit.LogPSSHBuilt("Widevine", pssh.WidevineSystemID.String(), int(version), req.KeyIDs, err); auditErr != nil {
		return nil, audited(auditErr)
	}
	if err != nil {
		return nil, err
	}
	return psshResponse(box)
}

// PlayReady builds a PlayReady PSSH box. Content keys missing from the
// request are derived from the configured key seed when checksums are
// written.
func (s *PSSHService) PlayReady(ctx context.Context, req *dto.PlayReadyPSSHRequest) (*dto.PSSHResponse, error) {
	version, err := boxVersion(req.Version)
	if err != nil {
		return nil, err
	}
	params, err := s.playReadyParams(req)
	if err != nil {
		return nil, err
	}

	box, err := playready.BuildPSSH(params, version)
	if auditErr := audit.LogPSSHBuilt("PlayReady", pssh.PlayReadySystemID.String(), int(version), cli.KeyIDStrings(params.Keys), err); auditErr != nil {
		return nil, audited(auditErr)
	}
	if err != nil {
		return nil, err
	}
	return psshResponse(box)
}

func (s *PSSHService) playReadyParams(req *dto.PlayReadyPSSHRequest) (playready.HeaderParams, error) {
	params := playready.HeaderParams{
		LicenseURL:  req.LicenseURL,
		UseChecksum: s.playready.UseChecksum(),
	}
	if params.LicenseURL == "" {
		params.LicenseURL = s.playready.LAURL
	}
	if req.Checksum != nil {
		params.UseChecksum = *req.Checksum
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = s.playready.Algorithm
	}
	alg, err := playready.ParseAlgorithm(algorithm)
	if err != nil {
		return params, err
	}
	params.Algorithm = alg

	for _, k := range req.Keys {
		var cek []byte
		if k.Key != "" {
			if cek, err = cli.DecodeText(k.Key); err != nil {
				return params, invalid("key for %s: %v", k.KeyID, err)
			}
		}
		entry, err := keyid.NewEntry(k.KeyID, cek, "")
		if err != nil {
			return params, err
		}
		params.Keys = append(params.Keys, entry)
	}
	if params.UseChecksum && alg == playready.AESCTR {
		if err := cli.DeriveMissingKeys(params.Keys, s.playready.Seed); err != nil {
			return params, err
		}
	}
	return params, nil
}

// Decode decodes a PSSH box and its DRM specific payload.
func (s *PSSHService) Decode(ctx context.Context, req *dto.PSSHDecodeRequest) (*cli.PSSHInfo, error) {
	data, err := req.PSSH.Decode()
	if err != nil {
		return nil, invalid("pssh: %v", err)
	}

	box, err := pssh.Decode(data)
	if err != nil {
		if auditErr := audit.LogPSSHDecoded("", "", 0, nil, err); auditErr != nil {
			return nil, audited(auditErr)
		}
		return nil, err
	}
	info := cli.Describe(box)
	if auditErr := audit.LogPSSHDecoded(info.System, info.SystemID, int(box.Version), info.KeyIDs, nil); auditErr != nil {
		return nil, audited(auditErr)
	}
	return info, nil
}

func psshResponse(b []byte) (*dto.PSSHResponse, error) {
	box, err := pssh.Decode(b)
	if err != nil {
		return nil, err
	}
	kids := keyIDStrings(box.KeyIDs)
	return &dto.PSSHResponse{
		PSSH:     dto.NewBase64(b),
		SystemID: box.SystemID.String(),
		KeyIDs:   kids,
		Size:     len(b),
	}, nil
}
