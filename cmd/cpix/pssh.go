package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cpixkit/cpix/internal/audit"
	"github.com/cpixkit/cpix/internal/cli"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/pssh"
	"github.com/cpixkit/cpix/pkg/widevine"
)

var psshCmd = &cobra.Command{
	Use:   "pssh",
	Short: "Build, decode and extract PSSH boxes",
	Long: `Build, decode and extract Protection System Specific Header (pssh) boxes.

Key IDs are accepted as hyphenated or braced GUIDs and as 32 hex digits.

Examples:
  # Widevine PSSH box (version 1) as base64
  cpix pssh widevine --key-ids 0dc3ec4f-7683-548b-81e7-3c64e582e136 --provider widevine_test

  # Same, as a packager option
  cpix pssh widevine --key-ids 0dc3ec4f-7683-548b-81e7-3c64e582e136 --format packager

  # PlayReady PSSH box, content keys derived from the configured key seed
  cpix pssh playready --key-ids 0dc3ec4f-7683-548b-81e7-3c64e582e136

  # Decode a box given as base64, hex, a file or stdin
  cpix pssh decode box.bin --output json

  # List the boxes of an init segment
  cpix pssh extract init.mp4`,
}

var psshWidevineCmd = &cobra.Command{
	Use:   "widevine",
	Short: "Build a Widevine PSSH box",
	Long: `Build a Widevine PSSH box whose payload is the WidevinePsshData protobuf.

At least one key ID or a content ID is required. Version 0 boxes carry the
key IDs in the payload only; version 1 boxes also list them in the box.`,
	RunE: runPSSHWidevine,
}

var psshPlayReadyCmd = &cobra.Command{
	Use:   "playready",
	Short: "Build a PlayReady PSSH box",
	Long: `Build a PlayReady PSSH box whose payload is a PlayReady object holding a
WRM header.

AESCTR headers (version 4.2.0.0) carry a CHECKSUM per key unless
--no-checksum is given. Checksums need the content key: keys given with
--keys are used as is, the others are derived from the key seed.
AESCBC headers (version 4.3.0.0) never carry checksums.`,
	RunE: runPSSHPlayReady,
}

var psshDecodeCmd = &cobra.Command{
	Use:   "decode <box>",
	Short: "Decode a PSSH box",
	Long: `Decode a PSSH box given as base64 or hex text, a file, or "-" for stdin.

Widevine and PlayReady payloads are decoded as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runPSSHDecode,
}

var psshExtractCmd = &cobra.Command{
	Use:   "extract <init.mp4>",
	Short: "List the PSSH boxes of an MP4 init segment",
	Args:  cobra.ExactArgs(1),
	RunE:  runPSSHExtract,
}

var (
	psshKeyIDs     []string
	psshVersion    int
	psshFormat     string
	psshOut        string
	psshOutput     string
	psshProvider   string
	psshContentID  string
	psshScheme     string
	psshKeys       string
	psshKeySeed    string
	psshLAURL      string
	psshAlgorithm  string
	psshNoChecksum bool
)

func init() {
	for _, c := range []*cobra.Command{psshWidevineCmd, psshPlayReadyCmd} {
		c.Flags().StringSliceVar(&psshKeyIDs, "key-ids", nil, "Key IDs, comma separated")
		c.Flags().IntVar(&psshVersion, "pssh-version", 1, "PSSH box version (0 or 1)")
		c.Flags().StringVar(&psshFormat, "format", cli.FormatBase64, "Output format: base64, hex, raw, packager")
		c.Flags().StringVarP(&psshOut, "out", "o", "", "Output file (default: stdout)")
	}

	psshWidevineCmd.Flags().StringVar(&psshProvider, "provider", "", "Provider name")
	psshWidevineCmd.Flags().StringVar(&psshContentID, "content-id", "", "Content ID")
	psshWidevineCmd.Flags().StringVar(&psshScheme, "protection-scheme", "", "Protection scheme: cenc, cbc1, cens, cbcs")

	psshPlayReadyCmd.Flags().StringVar(&psshKeys, "keys", "", "Content keys as kid:key pairs, comma separated")
	psshPlayReadyCmd.Flags().StringVar(&psshKeySeed, "key-seed", "", "Base64 key seed (default: configured seed)")
	psshPlayReadyCmd.Flags().StringVar(&psshLAURL, "la-url", "", "License acquisition URL (default: configured LA_URL)")
	psshPlayReadyCmd.Flags().StringVar(&psshAlgorithm, "algorithm", "", "AESCTR or AESCBC (default: configured algorithm)")
	psshPlayReadyCmd.Flags().BoolVar(&psshNoChecksum, "no-checksum", false, "Leave out key checksums")

	for _, c := range []*cobra.Command{psshDecodeCmd, psshExtractCmd} {
		c.Flags().StringVar(&psshOutput, "output", cli.OutputText, "Output format: text, json, yaml")
	}

	psshCmd.AddCommand(psshWidevineCmd)
	psshCmd.AddCommand(psshPlayReadyCmd)
	psshCmd.AddCommand(psshDecodeCmd)
	psshCmd.AddCommand(psshExtractCmd)
}

func boxVersion(v int) (uint8, error) {
	if v != 0 && v != 1 {
		return 0, fmt.Errorf("--pssh-version must be 0 or 1, got %d", v)
	}
	return uint8(v), nil
}

func runPSSHWidevine(cmd *cobra.Command, args []string) error {
	version, err := boxVersion(psshVersion)
	if err != nil {
		return err
	}

	kids := make([]any, len(psshKeyIDs))
	for i, k := range psshKeyIDs {
		kids[i] = k
	}
	params := widevine.HeaderParams{
		KeyIDs:           kids,
		Provider:         psshProvider,
		ProtectionScheme: psshScheme,
	}
	if psshContentID != "" {
		params.ContentID = []byte(psshContentID)
	}
	if psshScheme != "" {
		if _, ok := widevine.SchemeCode(psshScheme); !ok {
			logger.Warn("unknown protection scheme ignored", "scheme", psshScheme)
		}
	}

	box, err := widevine.BuildPSSH(params, version)
	if auditErr := audit.LogPSSHBuilt("Widevine", pssh.WidevineSystemID.String(), int(version), psshKeyIDs, err); auditErr != nil {
		return auditErr
	}
	if err != nil {
		return err
	}
	logger.Info("built Widevine PSSH", "version", version, "size", len(box))
	return writeBox(cmd, box, "widevine")
}

func runPSSHPlayReady(cmd *cobra.Command, args []string) error {
	version, err := boxVersion(psshVersion)
	if err != nil {
		return err
	}
	params, err := playReadyParams()
	if err != nil {
		return err
	}

	box, err := playready.BuildPSSH(params, version)
	if auditErr := audit.LogPSSHBuilt("PlayReady", pssh.PlayReadySystemID.String(), int(version), cli.KeyIDStrings(params.Keys), err); auditErr != nil {
		return auditErr
	}
	if err != nil {
		return err
	}
	logger.Info("built PlayReady PSSH", "version", version, "algorithm", params.Algorithm, "size", len(box))
	return writeBox(cmd, box, "playready")
}

// playReadyParams collects the PlayReady header flags, falling back to the
// configuration. Key IDs from --keys come first, then those of --key-ids
// not already given.
func playReadyParams() (playready.HeaderParams, error) {
	settings := appConfig.PlayReady
	if psshKeySeed != "" {
		settings.KeySeed, settings.KeySeedEnv = psshKeySeed, ""
	}
	if psshLAURL != "" {
		settings.LAURL = psshLAURL
	}
	if psshAlgorithm != "" {
		settings.Algorithm = psshAlgorithm
	}
	alg, err := playready.ParseAlgorithm(settings.Algorithm)
	if err != nil {
		return playready.HeaderParams{}, err
	}

	var entries []keyid.Entry
	if psshKeys != "" {
		if entries, err = cli.ParseKeyPairs(psshKeys); err != nil {
			return playready.HeaderParams{}, err
		}
	}
	seen := make(map[keyid.KeyID]bool, len(entries))
	for _, e := range entries {
		seen[e.KeyID] = true
	}
	kids, err := keyid.ParseAll(psshKeyIDs)
	if err != nil {
		return playready.HeaderParams{}, err
	}
	for _, kid := range kids {
		if !seen[kid] {
			seen[kid] = true
			entries = append(entries, keyid.Entry{KeyID: kid})
		}
	}

	params := playready.HeaderParams{
		Keys:        entries,
		LicenseURL:  settings.LAURL,
		Algorithm:   alg,
		UseChecksum: settings.UseChecksum() && !psshNoChecksum,
	}
	if params.UseChecksum && alg == playready.AESCTR {
		if err := cli.DeriveMissingKeys(params.Keys, settings.Seed); err != nil {
			return params, err
		}
	}
	return params, nil
}

func writeBox(cmd *cobra.Command, box []byte, option string) error {
	out, err := cli.FormatBytes(box, psshFormat, option)
	if err != nil {
		return err
	}
	return cli.WriteOutput(psshOut, cmd.OutOrStdout(), out)
}

func runPSSHDecode(cmd *cobra.Command, args []string) error {
	data, err := cli.ReadInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	info, err := cli.InspectPSSH(data)
	if err != nil {
		if auditErr := audit.LogPSSHDecoded("", "", 0, nil, err); auditErr != nil {
			return auditErr
		}
		return err
	}
	if err := audit.LogPSSHDecoded(info.System, info.SystemID, int(info.Version), info.KeyIDs, nil); err != nil {
		return err
	}
	return printInfo(cmd, info)
}

func runPSSHExtract(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	boxes, err := pssh.Extract(f)
	if err != nil {
		return err
	}
	logger.Info("extracted PSSH boxes", "file", args[0], "count", len(boxes))

	infos := make([]*cli.PSSHInfo, len(boxes))
	for i, box := range boxes {
		infos[i] = cli.Describe(box)
		if err := audit.LogPSSHDecoded(infos[i].System, infos[i].SystemID, int(box.Version), infos[i].KeyIDs, nil); err != nil {
			return err
		}
	}

	if !strings.EqualFold(psshOutput, cli.OutputText) {
		return cli.WriteStructured(cmd.OutOrStdout(), infos, psshOutput)
	}
	w := cmd.OutOrStdout()
	for i, info := range infos {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "Box %d:\n", i+1)
		cli.PrintPSSHInfo(w, info)
	}
	return nil
}

func printInfo(cmd *cobra.Command, info *cli.PSSHInfo) error {
	if strings.EqualFold(psshOutput, cli.OutputText) {
		cli.PrintPSSHInfo(cmd.OutOrStdout(), info)
		return nil
	}
	return cli.WriteStructured(cmd.OutOrStdout(), info, psshOutput)
}
