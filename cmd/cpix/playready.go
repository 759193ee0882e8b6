package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cpixkit/cpix/internal/audit"
	"github.com/cpixkit/cpix/internal/cli"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
)

var playreadyCmd = &cobra.Command{
	Use:   "playready",
	Short: "PlayReady objects and key derivation",
	Long: `PlayReady objects and key derivation.

Examples:
  # PlayReady object as a packager option (--iss.drm_specific_data=...)
  cpix playready object --key-ids 0dc3ec4f-7683-548b-81e7-3c64e582e136,1447b7ed-2f66-572b-bd13-06ce7cf3610d

  # Derive content keys and checksums from the configured key seed
  cpix playready key --key-ids 0dc3ec4f-7683-548b-81e7-3c64e582e136`,
}

var playreadyObjectCmd = &cobra.Command{
	Use:   "object",
	Short: "Build a PlayReady object",
	Long: `Build a PlayReady object holding a WRM header without key checksums, as
used for the Smooth Streaming protection header.`,
	RunE: runPlayReadyObject,
}

var playreadyKeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Derive content keys from a key seed",
	Long: `Derive the content key of each key ID from the PlayReady key seed, with
its 8-byte key checksum.

Content keys are secrets: they are printed but never written to the audit log.`,
	RunE: runPlayReadyKey,
}

var (
	prKeyIDs    []string
	prLAURL     string
	prAlgorithm string
	prKeySeed   string
	prFormat    string
	prOutput    string
	prOut       string
)

func init() {
	playreadyObjectCmd.Flags().StringSliceVar(&prKeyIDs, "key-ids", nil, "Key IDs, comma separated (required)")
	playreadyObjectCmd.Flags().StringVar(&prLAURL, "la-url", "", "License acquisition URL (default: configured LA_URL)")
	playreadyObjectCmd.Flags().StringVar(&prAlgorithm, "algorithm", "", "AESCTR or AESCBC (default: configured algorithm)")
	playreadyObjectCmd.Flags().StringVar(&prFormat, "format", cli.FormatPackager, "Output format: base64, hex, raw, packager")
	playreadyObjectCmd.Flags().StringVarP(&prOut, "out", "o", "", "Output file (default: stdout)")
	_ = playreadyObjectCmd.MarkFlagRequired("key-ids")

	playreadyKeyCmd.Flags().StringSliceVar(&prKeyIDs, "key-ids", nil, "Key IDs, comma separated (required)")
	playreadyKeyCmd.Flags().StringVar(&prKeySeed, "key-seed", "", "Base64 key seed (default: configured seed)")
	playreadyKeyCmd.Flags().StringVar(&prOutput, "output", cli.OutputText, "Output format: text, json, yaml")
	_ = playreadyKeyCmd.MarkFlagRequired("key-ids")

	playreadyCmd.AddCommand(playreadyObjectCmd)
	playreadyCmd.AddCommand(playreadyKeyCmd)
}

func runPlayReadyObject(cmd *cobra.Command, args []string) error {
	kids, err := keyid.ParseAll(prKeyIDs)
	if err != nil {
		return err
	}
	settings := appConfig.PlayReady
	if prLAURL != "" {
		settings.LAURL = prLAURL
	}
	if prAlgorithm != "" {
		settings.Algorithm = prAlgorithm
	}
	alg, err := playready.ParseAlgorithm(settings.Algorithm)
	if err != nil {
		return err
	}

	keys := make([]playready.Key, len(kids))
	for i, kid := range kids {
		keys[i] = playready.Key{KeyID: kid}
	}
	header, err := playready.BuildHeader(playready.HeaderParams{
		Keys:       keys,
		LicenseURL: settings.LAURL,
		Algorithm:  alg,
	})
	if err != nil {
		return err
	}
	obj, err := playready.BuildObject(header)
	if err != nil {
		return err
	}
	logger.Info("built PlayReady object", "keys", len(kids), "size", len(obj))

	out, err := cli.FormatBytes(obj, prFormat, "iss")
	if err != nil {
		return err
	}
	return cli.WriteOutput(prOut, cmd.OutOrStdout(), out)
}

// DerivedKey is a derived content key with its checksum.
type DerivedKey struct {
	KeyID    string `json:"key_id" yaml:"key_id"`
	Key      string `json:"key" yaml:"key"`
	Checksum string `json:"checksum" yaml:"checksum"`
}

func runPlayReadyKey(cmd *cobra.Command, args []string) error {
	kids, err := keyid.ParseAll(prKeyIDs)
	if err != nil {
		return err
	}
	settings := appConfig.PlayReady
	if prKeySeed != "" {
		settings.KeySeed, settings.KeySeedEnv = prKeySeed, ""
	}

	keys, err := deriveKeys(kids, settings.Seed)
	ids := make([]string, len(kids))
	for i, k := range kids {
		ids[i] = k.String()
	}
	if auditErr := audit.LogKeyDerived(ids, err); auditErr != nil {
		return auditErr
	}
	if err != nil {
		return err
	}

	if !strings.EqualFold(prOutput, cli.OutputText) {
		return cli.WriteStructured(cmd.OutOrStdout(), keys, prOutput)
	}
	w := cmd.OutOrStdout()
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s  key=%s  checksum=%s\n", k.KeyID, k.Key, k.Checksum)
	}
	return nil
}

func deriveKeys(kids []keyid.KeyID, seed func() ([]byte, error)) ([]DerivedKey, error) {
	s, err := seed()
	if err != nil {
		return nil, err
	}
	entries, err := playready.DeriveEntries(kids, s)
	if err != nil {
		return nil, err
	}
	out := make([]DerivedKey, len(entries))
	for i, e := range entries {
		checksum, err := playready.Checksum(e.KeyID, e.Key)
		if err != nil {
			return nil, err
		}
		out[i] = DerivedKey{KeyID: e.KeyID.String(), Key: hex.EncodeToString(e.Key), Checksum: checksum}
	}
	return out, nil
}
