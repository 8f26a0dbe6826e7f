//go:build integration

package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestCLILifecycle builds the binary and exercises the offline commands
// end to end against a throwaway database.
func TestCLILifecycle(t *testing.T) {
	buildCmd := exec.Command("go", "build", "-o", "melodiary_test", ".")
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("Failed to build binary: %v", err)
	}
	defer os.Remove("melodiary_test")

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "melodiary.db")

	run := func(args ...string) (string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cmd := exec.CommandContext(ctx, "./melodiary_test", args...)
		cmd.Env = append(os.Environ(), "MELODIARY_DATABASE_PATH="+dbPath)
		out, err := cmd.CombinedOutput()
		return string(out), err
	}

	out, err := run("--version")
	if err != nil {
		t.Fatalf("version failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "melodiary") {
		t.Errorf("unexpected version output: %s", out)
	}

	out, err = run("cache", "list")
	if err != nil {
		t.Fatalf("cache list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No cached journal entries") {
		t.Errorf("expected empty cache, got: %s", out)
	}

	out, err = run("cache", "clear")
	if err != nil {
		t.Fatalf("cache clear failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Cleared 0") {
		t.Errorf("expected 0 cleared on empty cache, got: %s", out)
	}

	out, err = run("logout")
	if err != nil {
		t.Fatalf("logout failed: %v\n%s", err, out)
	}

	// Network commands must fail cleanly when not logged in.
	out, err = run("now")
	if err == nil {
		t.Fatalf("expected now to fail when logged out, got: %s", out)
	}
	if !strings.Contains(out, "not logged in") && !strings.Contains(out, "not configured") {
		t.Errorf("unexpected failure output: %s", out)
	}
}
