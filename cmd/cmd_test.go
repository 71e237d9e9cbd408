package cmd

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/koopa0/runbook/internal/audit"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	want := []string{"run", "history", "stats", "tools", "job", "version"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "runbook") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestPrintRecordQuietStreams(t *testing.T) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	rec := audit.Record{Stdout: "result line\n", Stderr: "warning line\n"}
	if err := printRecord(cmd, rec, true); err != nil {
		t.Fatalf("printRecord() error = %v", err)
	}
	if out.String() != "result line\n" {
		t.Errorf("stdout = %q", out.String())
	}
	// stderr must follow the command's error writer, not the process's.
	if errOut.String() != "warning line\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
