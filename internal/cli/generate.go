package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cpixkit/cpix/pkg/cpix"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/pssh"
	"github.com/cpixkit/cpix/pkg/widevine"
)

// DeriveMissingKeys fills in the content key of every entry without one.
// seed is called at most once, and only when a key is missing.
func DeriveMissingKeys(entries []keyid.Entry, seed func() ([]byte, error)) error {
	var s []byte
	for i := range entries {
		if entries[i].Key != nil {
			continue
		}
		if s == nil {
			var err error
			if s, err = seed(); err != nil {
				return err
			}
		}
		key, err := playready.DeriveContentKey(entries[i].KeyID, s)
		if err != nil {
			return err
		}
		entries[i].Key = key
	}
	return nil
}

// UsageRulePresets lists the names accepted by PresetFilters.
var UsageRulePresets = []string{"audio", "video", "video_sd", "video_hd", "video_uhd1", "video_uhd2"}

// PresetFilters returns the filters of a named usage rule preset.
func PresetFilters(name string) ([]cpix.Filter, error) {
	var t keyid.TrackType
	switch strings.ToLower(name) {
	case "audio":
		return []cpix.Filter{cpix.AudioFilter{}}, nil
	case "video":
		return []cpix.Filter{cpix.VideoFilter{}}, nil
	case "video_sd":
		t = keyid.TrackSD
	case "video_hd":
		t = keyid.TrackHD
	case "video_uhd1":
		t = keyid.TrackUHD1
	case "video_uhd2":
		t = keyid.TrackUHD2
	default:
		return nil, fmt.Errorf("unknown usage rule preset %q (allowed: %s)", name, strings.Join(UsageRulePresets, ", "))
	}
	rule, _ := cpix.UsageRuleForTrack(keyid.Nil, t)
	return rule.Filters, nil
}

// ParseFilters parses a custom usage rule such as
// "video:max_pixels=442368,bitrate:max_bitrate=500000". Parameters of the
// same filter type are merged into one filter.
func ParseFilters(s string) ([]cpix.Filter, error) {
	var (
		video   *cpix.VideoFilter
		audio   *cpix.AudioFilter
		bitrate *cpix.BitrateFilter
		out     []cpix.Filter
	)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		typ, param, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("filter %q: expected type:parameter=value", item)
		}
		name, value, ok := strings.Cut(param, "=")
		if !ok {
			return nil, fmt.Errorf("filter %q: expected type:parameter=value", item)
		}

		switch typ {
		case "video":
			if video == nil {
				video = &cpix.VideoFilter{}
			}
			if err := setVideoParam(video, name, value); err != nil {
				return nil, fmt.Errorf("filter %q: %w", item, err)
			}
		case "audio":
			if audio == nil {
				audio = &cpix.AudioFilter{}
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("filter %q: %w", item, err)
			}
			switch name {
			case "min_channels":
				audio.MinChannels = n
			case "max_channels":
				audio.MaxChannels = n
			default:
				return nil, fmt.Errorf("filter %q: unknown audio parameter %q", item, name)
			}
		case "bitrate":
			if bitrate == nil {
				bitrate = &cpix.BitrateFilter{}
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("filter %q: %w", item, err)
			}
			switch name {
			case "min_bitrate":
				bitrate.MinBitrate = n
			case "max_bitrate":
				bitrate.MaxBitrate = n
			default:
				return nil, fmt.Errorf("filter %q: unknown bitrate parameter %q", item, name)
			}
		default:
			return nil, fmt.Errorf("filter %q: unknown filter type %q", item, typ)
		}
	}

	if audio != nil {
		out = append(out, *audio)
	}
	if video != nil {
		out = append(out, *video)
	}
	if bitrate != nil {
		out = append(out, *bitrate)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("usage rule %q has no filters", s)
	}
	return out, nil
}

func setVideoParam(f *cpix.VideoFilter, name, value string) error {
	switch name {
	case "hdr", "wcg":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		if name == "hdr" {
			f.HDR = &b
		} else {
			f.WCG = &b
		}
		return nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	switch name {
	case "min_pixels":
		f.MinPixels = n
	case "max_pixels":
		f.MaxPixels = n
	case "min_fps":
		f.MinFPS = n
	case "max_fps":
		f.MaxFPS = n
	default:
		return fmt.Errorf("unknown video parameter %q", name)
	}
	return nil
}

// GenOptions drives GenerateDocument.
type GenOptions struct {
	ContentID string
	Keys      []keyid.Entry

	Widevine          bool
	WidevineProvider  string
	WidevineContentID string
	WidevineVersion   uint8

	PlayReady        bool
	PlayReadyURL     string
	PlayReadyAlg     playready.AlgorithmID
	PlayReadyVersion uint8

	// Rules maps key IDs to their usage rule filters.
	Rules []cpix.UsageRule
}

// GenerateDocument builds a CPIX document from explicit keys. Each enabled
// DRM system gets one PSSH shared by every key. Usage rules must reference
// one of the keys.
func GenerateDocument(opts GenOptions) (*cpix.Document, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("at least one key is required")
	}
	known := make(map[keyid.KeyID]bool, len(opts.Keys))
	doc := &cpix.Document{ContentID: opts.ContentID}
	for _, k := range opts.Keys {
		if len(k.Key) != keyid.Size {
			return nil, fmt.Errorf("content key for %s is required", k.KeyID)
		}
		known[k.KeyID] = true
		doc.ContentKeys = append(doc.ContentKeys, cpix.ContentKey{KID: k.KeyID, CEK: k.Key})
	}

	if opts.Widevine {
		kids := make([]any, len(opts.Keys))
		for i, k := range opts.Keys {
			kids[i] = k.KeyID
		}
		params := widevine.HeaderParams{KeyIDs: kids, Provider: opts.WidevineProvider}
		if opts.WidevineContentID != "" {
			params.ContentID = []byte(opts.WidevineContentID)
		}
		box, err := widevine.BuildPSSH(params, opts.WidevineVersion)
		if err != nil {
			return nil, err
		}
		appendSystems(doc, opts.Keys, pssh.WidevineSystemID, box)
	}

	if opts.PlayReady {
		if opts.PlayReadyURL == "" {
			return nil, fmt.Errorf("a PlayReady LA_URL is required")
		}
		box, err := playready.BuildPSSH(playready.HeaderParams{
			Keys:        opts.Keys,
			LicenseURL:  opts.PlayReadyURL,
			Algorithm:   opts.PlayReadyAlg,
			UseChecksum: true,
		}, opts.PlayReadyVersion)
		if err != nil {
			return nil, err
		}
		appendSystems(doc, opts.Keys, pssh.PlayReadySystemID, box)
	}

	for _, r := range opts.Rules {
		if !known[r.KID] {
			return nil, fmt.Errorf("usage rule references unknown key %s", r.KID)
		}
		doc.UsageRules = append(doc.UsageRules, r)
	}
	return doc, nil
}

func appendSystems(doc *cpix.Document, keys []keyid.Entry, systemID uuid.UUID, box []byte) {
	for _, k := range keys {
		doc.DRMSystems = append(doc.DRMSystems, cpix.DRMSystem{KID: k.KeyID, SystemID: systemID, PSSH: box})
	}
}
