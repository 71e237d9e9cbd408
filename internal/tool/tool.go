// Package tool defines operator-maintained tool records and their
// read-only store. A tool names one resolved shell command plus metadata;
// the engine executes tools, it never defines them. Definitions live in a
// YAML file owned by the operator and are loaded once at startup.
package tool

import (
	"errors"
	"fmt"

	"github.com/koopa0/runbook/internal/security"
)

var (
	// ErrNotFound is returned when the requested tool does not exist.
	ErrNotFound = errors.New("tool not found")

	// ErrInvalidDefinition is returned when a tool record fails validation.
	ErrInvalidDefinition = errors.New("invalid tool definition")
)

// Tool is a named, immutable command definition.
//
// Auto marks a tool as safe to run unattended. An auto tool must never
// prompt for input: its command is screened against interactive patterns
// when defined and again on every execution.
type Tool struct {
	Name        string   `mapstructure:"name" json:"name"`
	Description string   `mapstructure:"description" json:"description"`
	TaskType    string   `mapstructure:"task_type" json:"task_type"`
	Command     string   `mapstructure:"command" json:"command"`
	Tags        []string `mapstructure:"tags" json:"tags"`
	Auto        bool     `mapstructure:"auto" json:"auto"`
}

// Validate checks a tool record at definition time. Dangerous commands
// are rejected outright; auto tools are additionally rejected when their
// command matches an interactive-prompt pattern.
func Validate(t Tool, v *security.Validator) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if t.Command == "" {
		return fmt.Errorf("%w: command is required", ErrInvalidDefinition)
	}

	if t.Auto {
		if err := v.ValidateForAuto(t.Command); err != nil {
			return fmt.Errorf("%w: auto tool %q: %v", ErrInvalidDefinition, t.Name, err)
		}
		return nil
	}
	if err := v.Validate(t.Command); err != nil {
		return fmt.Errorf("%w: tool %q: %v", ErrInvalidDefinition, t.Name, err)
	}
	return nil
}
