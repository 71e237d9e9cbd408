package tool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/koopa0/runbook/internal/log"
	"github.com/koopa0/runbook/internal/security"
)

func TestValidate(t *testing.T) {
	v := security.New(log.NewNop())

	tests := []struct {
		name    string
		tool    Tool
		wantErr bool
	}{
		{
			name: "valid attended tool",
			tool: Tool{Name: "disk-usage", Command: "df -h /data"},
		},
		{
			name: "valid auto tool",
			tool: Tool{Name: "uptime", Command: "uptime", Auto: true},
		},
		{
			name:    "missing name",
			tool:    Tool{Command: "date"},
			wantErr: true,
		},
		{
			name:    "missing command",
			tool:    Tool{Name: "empty"},
			wantErr: true,
		},
		{
			name:    "dangerous command",
			tool:    Tool{Name: "wipe", Command: "rm -rf /"},
			wantErr: true,
		},
		{
			name:    "auto tool with password prompt",
			tool:    Tool{Name: "rotate", Command: "passwd svc --password", Auto: true},
			wantErr: true,
		},
		{
			name: "interactive command allowed when not auto",
			tool: Tool{Name: "rotate-attended", Command: "passwd svc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tool, v)
			if tt.wantErr && err == nil {
				t.Errorf("Validate(%q) = nil, want error", tt.tool.Name)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.tool.Name, err)
			}
			if tt.wantErr && err != nil && !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Validate(%q) = %v, want ErrInvalidDefinition", tt.tool.Name, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	v := security.New(log.NewNop())

	writeDefs := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "tools.yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("valid file", func(t *testing.T) {
		path := writeDefs(t, `
tools:
  - name: disk-usage
    description: report disk usage
    task_type: diagnostics
    command: df -h /data
    tags: [disk]
    auto: true
  - name: git-status
    task_type: vcs
    command: git status
`)
		store, err := Load(path, v, log.NewNop())
		if err != nil {
			t.Fatalf("Load() = %v", err)
		}

		got, err := store.Get("disk-usage")
		if err != nil {
			t.Fatalf("Get(disk-usage) = %v", err)
		}
		if !got.Auto || got.Command != "df -h /data" {
			t.Errorf("Get(disk-usage) = %+v", got)
		}

		if all := store.All(); len(all) != 2 || all[0].Name != "disk-usage" {
			t.Errorf("All() = %+v, want 2 tools sorted by name", all)
		}
	})

	t.Run("auto tool with interactive command rejected", func(t *testing.T) {
		path := writeDefs(t, `
tools:
  - name: reset
    command: echo enter password
    auto: true
`)
		if _, err := Load(path, v, log.NewNop()); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("Load() = %v, want ErrInvalidDefinition", err)
		}
	})

	t.Run("duplicate names rejected", func(t *testing.T) {
		path := writeDefs(t, `
tools:
  - name: dup
    command: date
  - name: dup
    command: uptime
`)
		if _, err := Load(path, v, log.NewNop()); !errors.Is(err, ErrInvalidDefinition) {
			t.Errorf("Load() = %v, want ErrInvalidDefinition", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), v, log.NewNop()); err == nil {
			t.Error("Load() = nil, want error for missing file")
		}
	})
}

func TestStore_GetNotFound(t *testing.T) {
	store := NewStore(nil, log.NewNop())
	if _, err := store.Get("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(ghost) = %v, want ErrNotFound", err)
	}
}
