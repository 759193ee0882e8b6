package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cpixkit/cpix/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log management",
	Long: `Commands for managing and verifying audit logs.

The audit log is a tamper-evident record of key derivations, PSSH boxes,
CPIX documents, key server requests and API requests. Each event is chained
to the previous one using SHA-256 hashes. Key IDs are recorded; content keys
and key seeds never are.

Examples:
  # Verify audit log integrity
  cpix audit verify audit.jsonl

  # Show last 10 events
  cpix audit tail audit.jsonl -n 10`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <log>",
	Short: "Verify audit log integrity",
	Long: `Verify the hash chain of an audit log file.

Each event in the log contains:
  - hash_prev: SHA-256 hash of the previous event
  - hash: SHA-256 hash of the current event

The chain starts with hash_prev="sha256:genesis" for the first event.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <log>",
	Short: "Show recent audit events",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditTail,
}

var (
	auditTailNum  int
	auditShowJSON bool
)

func init() {
	auditTailCmd.Flags().IntVarP(&auditTailNum, "num", "n", 10, "Number of events to show")
	auditTailCmd.Flags().BoolVar(&auditShowJSON, "json", false, "Output as JSON")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Verifying audit log: %s\n\n", args[0])

	count, err := audit.VerifyChain(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(w, "VERIFICATION FAILED\n")
		_, _ = fmt.Fprintf(w, "  Valid events: %d\n", count)
		_, _ = fmt.Fprintf(w, "  Error: %s\n", err)
		return fmt.Errorf("audit log verification failed: %w", err)
	}

	_, _ = fmt.Fprintf(w, "VERIFICATION PASSED\n")
	_, _ = fmt.Fprintf(w, "  Total events: %d\n", count)
	_, _ = fmt.Fprintf(w, "  Hash chain: VALID\n")
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(data) == 0 {
		_, _ = fmt.Fprintln(w, "Audit log is empty")
		return nil
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}

	// Get last N lines
	start := 0
	if len(lines) > auditTailNum {
		start = len(lines) - auditTailNum
	}
	lines = lines[start:]

	if auditShowJSON {
		_, _ = fmt.Fprintln(w, "[")
		for i, line := range lines {
			if i > 0 {
				_, _ = fmt.Fprintln(w, ",")
			}
			_, _ = fmt.Fprint(w, line)
		}
		_, _ = fmt.Fprintln(w, "\n]")
		return nil
	}

	for _, line := range lines {
		var event audit.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			_, _ = fmt.Fprintf(w, "  [ERROR] %s\n", err)
			continue
		}
		printEvent(w, &event)
	}
	return nil
}

func printEvent(w io.Writer, e *audit.Event) {
	resultIcon := "✓"
	if e.Result == audit.ResultFailure {
		resultIcon = "✗"
	}

	_, _ = fmt.Fprintf(w, "[%s] %s %s\n", e.Timestamp, resultIcon, e.EventType)
	_, _ = fmt.Fprintf(w, "    Actor:  %s@%s\n", e.Actor.ID, e.Actor.Host)

	if e.Object.Type != "" {
		_, _ = fmt.Fprintf(w, "    Object: %s", e.Object.Type)
		if len(e.Object.KeyIDs) > 0 {
			_, _ = fmt.Fprintf(w, " key_ids=%s", strings.Join(e.Object.KeyIDs, ","))
		}
		if e.Object.SystemID != "" {
			_, _ = fmt.Fprintf(w, " system_id=%s", e.Object.SystemID)
		}
		if e.Object.Path != "" {
			_, _ = fmt.Fprintf(w, " path=%s", e.Object.Path)
		}
		_, _ = fmt.Fprintln(w)
	}

	c := e.Context
	if c.System != "" || c.ContentID != "" || c.URL != "" || c.Method != "" || c.Reason != "" {
		_, _ = fmt.Fprint(w, "    Context:")
		if c.System != "" {
			_, _ = fmt.Fprintf(w, " system=%s version=%d", c.System, c.Version)
		}
		if c.ContentID != "" {
			_, _ = fmt.Fprintf(w, " content_id=%s", c.ContentID)
		}
		if c.URL != "" {
			_, _ = fmt.Fprintf(w, " url=%s", c.URL)
		}
		if c.Method != "" {
			_, _ = fmt.Fprintf(w, " %s status=%d", c.Method, c.Status)
		}
		if c.Reason != "" {
			_, _ = fmt.Fprintf(w, " reason=%s", c.Reason)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w)
}
