package tool

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/viper"

	"github.com/koopa0/runbook/internal/security"
)

// Store is a read-only view over the operator's tool definition file.
// Definitions are loaded and validated once; lookups never touch disk.
// Store is safe for concurrent use after Load.
type Store struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// Load reads tool definitions from a YAML file and validates every record.
// The file has a single top-level `tools` list:
//
//	tools:
//	  - name: disk-usage
//	    description: report disk usage of the data volume
//	    task_type: diagnostics
//	    command: df -h /data
//	    tags: [disk, report]
//	    auto: true
//
// A file that defines an auto tool with an interactive command is rejected
// as a whole: a bad definition must never become loadable by retrying.
func Load(path string, v *security.Validator, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading tool definitions: %w", err)
	}

	var file struct {
		Tools []Tool `mapstructure:"tools"`
	}
	if err := vp.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parsing tool definitions: %w", err)
	}

	tools := make(map[string]Tool, len(file.Tools))
	for _, t := range file.Tools {
		if err := Validate(t, v); err != nil {
			return nil, err
		}
		if _, exists := tools[t.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate tool name %q", ErrInvalidDefinition, t.Name)
		}
		tools[t.Name] = t
	}

	logger.Debug("loaded tool definitions", "path", path, "count", len(tools))
	return &Store{tools: tools, logger: logger}, nil
}

// NewStore builds a Store from already-validated tool records.
// Intended for tests and for callers that source definitions elsewhere.
func NewStore(tools []Tool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return &Store{tools: m, logger: logger}
}

// Get returns the tool with the given name, or ErrNotFound.
func (s *Store) Get(name string) (Tool, error) {
	t, ok := s.tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return t, nil
}

// All returns every definition sorted by name.
func (s *Store) All() []Tool {
	out := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
