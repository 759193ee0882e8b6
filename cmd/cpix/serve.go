package main

import (
	"github.com/spf13/cobra"

	"github.com/cpixkit/cpix/internal/api/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health
  GET  /ready
  POST /api/v1/pssh/widevine
  POST /api/v1/pssh/playready
  POST /api/v1/pssh/decode
  POST /api/v1/playready/key
  POST /api/v1/cpix/validate

Environment variables:
  CPIX_SERVER_HOST  Host to bind to
  CPIX_SERVER_PORT  Port to listen on

Examples:
  # Listen on all interfaces, port 8080
  cpix serve

  # Local only, with an audit trail of every request
  cpix serve --host 127.0.0.1 --port 9000 --audit-log audit.jsonl`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: configured host, all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: configured port, 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	return server.New(&cfg, version, logger).Start(cmd.OutOrStdout())
}
