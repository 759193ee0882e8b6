package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cpixkit/cpix/internal/audit"
	"github.com/cpixkit/cpix/internal/cli"
	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/widevine"
)

var widevineCmd = &cobra.Command{
	Use:   "widevine",
	Short: "Widevine key server requests",
	Long: `Request content keys from a Widevine common encryption key server.

The defaults target the public UAT server with the widevine_test signer.

Examples:
  # CPIX document with keys for every track type
  cpix widevine keys --content-id movie --stdout

  # Only SD and audio keys, written to a file
  cpix widevine keys --content-id movie --tracks SD,AUDIO -o movie.cpix.xml`,
}

var widevineKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Request keys and write them as a CPIX document",
	RunE:  runWidevineKeys,
}

// DefaultTracks are requested when --tracks is not given.
const DefaultTracks = "SD,HD,UHD1,UHD2,AUDIO"

// Key server flags, shared with cpix cenc.
var (
	wvContentID string
	wvTracks    string
	wvPolicy    string
	wvURL       string
	wvSigner    string
	wvSignerKey string
	wvSignerIV  string
)

// Document output flags, shared by every command writing CPIX.
var (
	docOut    string
	docStdout bool
)

func addKeyServerFlags(c *cobra.Command) {
	c.Flags().StringVar(&wvContentID, "content-id", "", "Content ID (required)")
	c.Flags().StringVar(&wvTracks, "tracks", DefaultTracks, "Track types, comma separated")
	c.Flags().StringVar(&wvPolicy, "policy", "", "Key server policy name")
	c.Flags().StringVar(&wvURL, "url", "", "Key server URL (default: configured URL)")
	c.Flags().StringVar(&wvSigner, "signer", "", "Signer name (default: configured signer)")
	c.Flags().StringVar(&wvSignerKey, "signer-key", "", "Signer AES key, hex or base64 (default: configured key)")
	c.Flags().StringVar(&wvSignerIV, "signer-iv", "", "Signer AES IV, hex or base64 (default: configured IV)")
	_ = c.MarkFlagRequired("content-id")
}

func addDocumentFlags(c *cobra.Command) {
	c.Flags().StringVarP(&docOut, "out", "o", "", "Output CPIX file")
	c.Flags().BoolVar(&docStdout, "stdout", false, "Write the CPIX document to stdout")
	c.MarkFlagsOneRequired("out", "stdout")
	c.MarkFlagsMutuallyExclusive("out", "stdout")
}

func init() {
	addKeyServerFlags(widevineKeysCmd)
	addDocumentFlags(widevineKeysCmd)

	widevineCmd.AddCommand(widevineKeysCmd)
}

func runWidevineKeys(cmd *cobra.Command, args []string) error {
	resp, err := requestKeys(cmd)
	if err != nil {
		return err
	}
	doc, err := cli.WidevineDocument(wvContentID, resp)
	if err != nil {
		return err
	}
	return writeDocument(cmd, doc)
}

// requestKeys asks the key server for the keys of every requested track.
func requestKeys(cmd *cobra.Command) (*widevine.KeyResponse, error) {
	settings := appConfig.Widevine
	if wvURL != "" {
		settings.URL = wvURL
	}
	if wvSigner != "" {
		settings.Signer = wvSigner
	}
	if wvSignerKey != "" {
		settings.SignerKey, settings.SignerKeyEnv = wvSignerKey, ""
	}
	if wvSignerIV != "" {
		settings.SignerIV = wvSignerIV
	}
	if wvPolicy == "" {
		wvPolicy = settings.Policy
	}

	tracks := keyid.ParseTrackTypes(wvTracks)
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no valid tracks in %q", wvTracks)
	}
	client, err := settings.Client()
	if err != nil {
		return nil, err
	}

	logger.Info("requesting keys", "url", settings.URL, "content_id", wvContentID, "tracks", wvTracks)
	resp, err := client.GetKeys(cmd.Context(), widevine.KeyRequest{
		ContentID: wvContentID,
		Tracks:    tracks,
		Policy:    wvPolicy,
	})

	var ids []string
	if resp != nil {
		for _, t := range resp.Tracks {
			ids = append(ids, t.KeyID.String())
		}
	}
	if auditErr := audit.LogKeyServerRequest(settings.URL, wvContentID, ids, err); auditErr != nil {
		return nil, auditErr
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("key server response", "status", resp.Status, "tracks", len(resp.Tracks))
	return resp, nil
}
