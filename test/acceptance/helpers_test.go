//go:build acceptance

// Package acceptance contains black-box CLI acceptance tests (TestA_*).
// Run with: go test -tags=acceptance ./test/acceptance/...
package acceptance

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// cpixBinary is the path to the cpix binary.
// Set via CPIX_BINARY env var or default to ./bin/cpix in the repo root.
var cpixBinary string

func init() {
	if bin := os.Getenv("CPIX_BINARY"); bin != "" {
		cpixBinary = bin
	} else {
		cpixBinary = "../../bin/cpix"
	}
}

// runCPIX executes the cpix CLI with the given arguments and returns stdout.
// Fails the test if the command returns a non-zero exit code.
func runCPIX(t *testing.T, args ...string) string {
	t.Helper()
	return runCPIXWithStdin(t, "", args...)
}

// runCPIXWithStdin is runCPIX with stdin content.
func runCPIXWithStdin(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	cmd := exec.Command(cpixBinary, args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("cpix %s failed: %v\nstderr: %s\nstdout: %s",
			strings.Join(args, " "), err, stderr.String(), stdout.String())
	}
	return stdout.String()
}

// runCPIXExpectError executes cpix and expects it to fail.
// Returns the combined output (stdout + stderr).
func runCPIXExpectError(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.Command(cpixBinary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err == nil {
		t.Fatalf("cpix %s expected to fail but succeeded\nstdout: %s",
			strings.Join(args, " "), stdout.String())
	}
	return stdout.String() + stderr.String()
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("expected file to exist: %s", path)
	}
}

func assertOutputContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// writeTestFile creates a file in a temp dir and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

// execCommandContext wraps exec.CommandContext for background processes.
func execCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
