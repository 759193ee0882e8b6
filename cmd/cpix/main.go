// Command cpix builds and inspects PSSH boxes, PlayReady headers and CPIX
// documents.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cpixkit/cpix/internal/audit"
	"github.com/cpixkit/cpix/internal/cli"
	"github.com/cpixkit/cpix/internal/config"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath   string
	logLevel     string
	auditLogPath string
	noColor      bool
)

// Loaded by the root command before any subcommand runs.
var (
	appConfig *config.Config
	logger    *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = audit.Close()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cpix",
	Short: "PSSH, PlayReady header and CPIX document tooling",
	Long: `cpix builds and inspects the DRM signaling data of CENC protected content.

It encodes and decodes PSSH boxes for Widevine and PlayReady, derives
PlayReady content keys from a key seed, requests keys from a Widevine
key server and writes the result as CPIX documents.

Defaults point at the public Microsoft PlayReady and Widevine UAT test
servers. Configuration is read from --config, a .env file and CPIX_*
environment variables.

Examples:
  # Widevine PSSH for two key IDs
  cpix pssh widevine --key-ids 0dc3ec4f-7683-548b-81e7-3c64e582e136,1447b7ed2f66572bbd1306ce7cf3610d

  # PlayReady object for a packager
  cpix playready object --key-ids 0dc3ec4f-7683-548b-81e7-3c64e582e136

  # Decode a PSSH box
  cpix pssh decode AAAAxnBzc2gBAAAA7e+LqXnWSs6jyCfc1R0h7QAAAAIN...

  # CPIX document with seeded PlayReady keys
  cpix cpix playready --content-id movie --stdout`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if auditLogPath != "" {
			cfg.AuditLog = auditLogPath
		}

		cli.SetColor(!noColor)
		l, err := cli.NewLogger(cfg.LogLevel, cmd.ErrOrStderr(), noColor)
		if err != nil {
			return err
		}
		if cfg.AuditLog != "" {
			if err := audit.InitFile(cfg.AuditLog); err != nil {
				return fmt.Errorf("failed to initialize audit log: %w", err)
			}
		}

		appConfig, logger = cfg, l
		logger.Debug("configuration loaded", "config", configPath, "audit_log", cfg.AuditLog)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default: warn, or CPIX_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set CPIX_AUDIT_LOG env var)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored log output")

	rootCmd.AddCommand(psshCmd)      // cpix pssh ...
	rootCmd.AddCommand(playreadyCmd) // cpix playready ...
	rootCmd.AddCommand(widevineCmd)  // cpix widevine ...
	rootCmd.AddCommand(cpixCmd)      // cpix cpix ...

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
}
