package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cpixkit/cpix/internal/audit"
	"github.com/cpixkit/cpix/internal/cli"
	"github.com/cpixkit/cpix/pkg/cpix"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
)

var cpixCmd = &cobra.Command{
	Use:   "cpix",
	Short: "Generate and validate CPIX documents",
	Long: `Generate and validate DASH-IF CPIX documents.

Examples:
  # PlayReady keys derived from the key seed, one key per track
  cpix cpix playready --content-id movie --stdout

  # Widevine keys signaled for both Widevine and PlayReady
  cpix cpix cenc --content-id movie -o movie.cpix.xml

  # Document from explicit keys with usage rules
  cpix cpix gen --key E82F184C3AAA57B4ACE8606B5E3FEBAD:C2FAF66E2852CC4C4A751F0A2A941FDB \
    --widevine --playready --usage-rule-preset E82F184C3AAA57B4ACE8606B5E3FEBAD=video_sd --stdout

  # Check a document
  cpix cpix validate movie.cpix.xml`,
}

var cpixPlayReadyCmd = &cobra.Command{
	Use:   "playready",
	Short: "CPIX document with keys derived from the PlayReady key seed",
	Long: `Build a CPIX document with one key per track. Key IDs are derived from the
content ID and the track type, content keys from the PlayReady key seed, so
the same content ID always yields the same keys.`,
	RunE: runCPIXPlayReady,
}

var cpixCENCCmd = &cobra.Command{
	Use:   "cenc",
	Short: "CPIX document with Widevine keys signaled for PlayReady too",
	Long: `Request keys from the Widevine key server and signal them for both Widevine
and PlayReady.

The PlayReady LA_URL embeds every content key so that the PlayReady test
server can issue licenses. Anyone holding the PSSH can read the keys: use
this for testing only.`,
	RunE: runCPIXCENC,
}

var cpixGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "CPIX document from explicit keys",
	Long: `Build a CPIX document from explicit KID:CEK pairs with optional Widevine
and PlayReady signaling and usage rules.

Usage rule presets: audio, video, video_sd, video_hd, video_uhd1, video_uhd2.

Custom usage rules are type:parameter=value items, comma separated:
  video:min_pixels, video:max_pixels, video:min_fps, video:max_fps,
  video:hdr, video:wcg, audio:min_channels, audio:max_channels,
  bitrate:min_bitrate, bitrate:max_bitrate`,
	RunE: runCPIXGen,
}

var cpixValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a CPIX document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCPIXValidate,
}

var (
	cpixContentID string
	cpixTracks    string
	cpixKeySeed   string
	cpixLAURL     string
	cpixAlgorithm string

	genKeys        []string
	genWidevine    bool
	genWVProvider  string
	genWVContentID string
	genWVVersion   int
	genPlayReady   bool
	genPRVersion   int
	genPresetRules []string
	genCustomRules []string
	genDocVersion  string
)

func init() {
	cpixPlayReadyCmd.Flags().StringVar(&cpixContentID, "content-id", "", "Content ID (required)")
	cpixPlayReadyCmd.Flags().StringVar(&cpixTracks, "tracks", DefaultTracks, "Track types, comma separated")
	cpixPlayReadyCmd.Flags().StringVar(&cpixKeySeed, "key-seed", "", "Base64 key seed (default: configured seed)")
	cpixPlayReadyCmd.Flags().StringVar(&cpixLAURL, "la-url", "", "License acquisition URL (default: configured LA_URL)")
	cpixPlayReadyCmd.Flags().StringVar(&cpixAlgorithm, "algorithm", "", "AESCTR or AESCBC (default: configured algorithm)")
	_ = cpixPlayReadyCmd.MarkFlagRequired("content-id")
	addDocumentFlags(cpixPlayReadyCmd)

	addKeyServerFlags(cpixCENCCmd)
	cpixCENCCmd.Flags().StringVar(&cpixLAURL, "la-url", "", "PlayReady test server URL (default: configured LA_URL)")
	addDocumentFlags(cpixCENCCmd)

	cpixGenCmd.Flags().StringVar(&cpixContentID, "content-id", "", "Content ID")
	cpixGenCmd.Flags().StringVar(&genDocVersion, "doc-version", "", "CPIX version attribute")
	cpixGenCmd.Flags().StringArrayVar(&genKeys, "key", nil, "Key as KID:CEK, repeatable (required)")
	cpixGenCmd.Flags().BoolVar(&genWidevine, "widevine", false, "Add Widevine DRM systems")
	cpixGenCmd.Flags().StringVar(&genWVProvider, "widevine-provider", "", "Widevine provider")
	cpixGenCmd.Flags().StringVar(&genWVContentID, "widevine-content-id", "", "Widevine content ID")
	cpixGenCmd.Flags().IntVar(&genWVVersion, "widevine-pssh-version", 1, "Widevine PSSH box version")
	cpixGenCmd.Flags().BoolVar(&genPlayReady, "playready", false, "Add PlayReady DRM systems")
	cpixGenCmd.Flags().StringVar(&cpixLAURL, "playready-la-url", "", "PlayReady LA_URL (default: configured LA_URL)")
	cpixGenCmd.Flags().StringVar(&cpixAlgorithm, "playready-algorithm", "", "AESCTR or AESCBC (default: configured algorithm)")
	cpixGenCmd.Flags().IntVar(&genPRVersion, "playready-pssh-version", 1, "PlayReady PSSH box version")
	cpixGenCmd.Flags().StringArrayVar(&genPresetRules, "usage-rule-preset", nil, "Preset usage rule as KID=PRESET, repeatable")
	cpixGenCmd.Flags().StringArrayVar(&genCustomRules, "usage-rule", nil, "Custom usage rule as KID=FILTERS, repeatable")
	_ = cpixGenCmd.MarkFlagRequired("key")
	addDocumentFlags(cpixGenCmd)

	cpixCmd.AddCommand(cpixPlayReadyCmd)
	cpixCmd.AddCommand(cpixCENCCmd)
	cpixCmd.AddCommand(cpixGenCmd)
	cpixCmd.AddCommand(cpixValidateCmd)
}

func runCPIXPlayReady(cmd *cobra.Command, args []string) error {
	settings := appConfig.PlayReady
	if cpixKeySeed != "" {
		settings.KeySeed, settings.KeySeedEnv = cpixKeySeed, ""
	}
	if cpixLAURL != "" {
		settings.LAURL = cpixLAURL
	}
	if cpixAlgorithm != "" {
		settings.Algorithm = cpixAlgorithm
	}
	alg, err := playready.ParseAlgorithm(settings.Algorithm)
	if err != nil {
		return err
	}
	seed, err := settings.Seed()
	if err != nil {
		return err
	}

	doc, entries, err := cli.PlayReadyDocument(cli.PlayReadyOptions{
		ContentID:   cpixContentID,
		Tracks:      keyid.ParseTrackTypes(cpixTracks),
		Seed:        seed,
		LicenseURL:  settings.LAURL,
		Algorithm:   alg,
		UseChecksum: settings.UseChecksum(),
	})
	if auditErr := audit.LogKeyDerived(cli.KeyIDStrings(entries), err); auditErr != nil {
		return auditErr
	}
	if err != nil {
		return err
	}
	return writeDocument(cmd, doc)
}

func runCPIXCENC(cmd *cobra.Command, args []string) error {
	resp, err := requestKeys(cmd)
	if err != nil {
		return err
	}
	laURL := cpixLAURL
	if laURL == "" {
		laURL = appConfig.PlayReady.LAURL
	}
	doc, err := cli.CENCDocument(wvContentID, resp, laURL)
	if err != nil {
		return err
	}
	return writeDocument(cmd, doc)
}

func runCPIXGen(cmd *cobra.Command, args []string) error {
	opts := cli.GenOptions{
		ContentID:         cpixContentID,
		Widevine:          genWidevine,
		WidevineProvider:  genWVProvider,
		WidevineContentID: genWVContentID,
		PlayReady:         genPlayReady,
		PlayReadyURL:      cpixLAURL,
	}
	var err error
	if opts.WidevineVersion, err = boxVersion(genWVVersion); err != nil {
		return err
	}
	if opts.PlayReadyVersion, err = boxVersion(genPRVersion); err != nil {
		return err
	}
	if opts.PlayReadyURL == "" {
		opts.PlayReadyURL = appConfig.PlayReady.LAURL
	}
	algorithm := cpixAlgorithm
	if algorithm == "" {
		algorithm = appConfig.PlayReady.Algorithm
	}
	if opts.PlayReadyAlg, err = playready.ParseAlgorithm(algorithm); err != nil {
		return err
	}

	for _, k := range genKeys {
		entries, err := cli.ParseKeyPairs(k)
		if err != nil {
			return err
		}
		opts.Keys = append(opts.Keys, entries...)
	}

	for _, r := range genPresetRules {
		kid, filters, err := splitRule(r, cli.PresetFilters)
		if err != nil {
			return err
		}
		opts.Rules = append(opts.Rules, cpix.UsageRule{KID: kid, Filters: filters})
	}
	for _, r := range genCustomRules {
		kid, filters, err := splitRule(r, cli.ParseFilters)
		if err != nil {
			return err
		}
		opts.Rules = append(opts.Rules, cpix.UsageRule{KID: kid, Filters: filters})
	}

	doc, err := cli.GenerateDocument(opts)
	if err != nil {
		return err
	}
	doc.Version = genDocVersion
	return writeDocument(cmd, doc)
}

// splitRule splits "KID=VALUE" and parses VALUE into filters.
func splitRule(s string, parse func(string) ([]cpix.Filter, error)) (keyid.KeyID, []cpix.Filter, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return keyid.Nil, nil, fmt.Errorf("usage rule %q: expected KID=VALUE", s)
	}
	kid, err := keyid.Parse(k)
	if err != nil {
		return keyid.Nil, nil, fmt.Errorf("usage rule %q: %w", s, err)
	}
	filters, err := parse(v)
	if err != nil {
		return keyid.Nil, nil, err
	}
	return kid, filters, nil
}

func runCPIXValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	doc, err := cpix.Parse(data)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Content ID:   %s\n", doc.ContentID)
	_, _ = fmt.Fprintf(w, "Content keys: %d\n", len(doc.ContentKeys))
	_, _ = fmt.Fprintf(w, "DRM systems:  %d\n", len(doc.DRMSystems))
	_, _ = fmt.Fprintf(w, "Periods:      %d\n", len(doc.Periods))
	_, _ = fmt.Fprintf(w, "Usage rules:  %d\n", len(doc.UsageRules))

	errs := doc.Validate()
	if len(errs) == 0 {
		_, _ = fmt.Fprintf(w, "Status:       %s\n", cli.FormatStatus("valid"))
		return nil
	}
	_, _ = fmt.Fprintf(w, "Status:       %s\n", cli.FormatStatus("invalid"))
	for _, e := range errs {
		_, _ = fmt.Fprintf(w, "  - %s\n", e)
	}
	return fmt.Errorf("%s: %d validation errors", args[0], len(errs))
}

// writeDocument marshals doc to --out or stdout and records it in the audit
// log.
func writeDocument(cmd *cobra.Command, doc *cpix.Document) error {
	ids := make([]string, len(doc.ContentKeys))
	for i, k := range doc.ContentKeys {
		ids[i] = k.KID.String()
	}

	data, err := doc.Marshal(true)
	if err == nil {
		path := docOut
		if docStdout {
			path = ""
		}
		err = cli.WriteOutput(path, cmd.OutOrStdout(), data)
	}

	dest := docOut
	if docStdout || dest == "" {
		dest = "-"
	}
	if auditErr := audit.LogCPIXWritten(dest, doc.ContentID, ids, err); auditErr != nil {
		return auditErr
	}
	if err != nil {
		return err
	}
	logger.Info("wrote CPIX document", "content_id", doc.ContentID, "keys", len(ids), "out", dest)
	return nil
}
