package security

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Violation is returned when a command matches a deny pattern. Category
// names the class of the first matching pattern and is safe to surface
// to callers; Pattern is the matched expression, intended for logs.
type Violation struct {
	Category string
	Pattern  string
}

// Error implements the error interface.
func (v *Violation) Error() string {
	return fmt.Sprintf("command blocked: %s", v.Category)
}

// rule pairs a compiled deny pattern with its category.
type rule struct {
	category string
	re       *regexp.Regexp
}

// dangerousRules match destructive or privilege-escalating commands.
// Order matters: the first match decides the reported category.
var dangerousRules = []rule{
	// Recursive force-delete of root, home, or everything:
	// rm -rf /, rm -fr /, rm -rf --no-preserve-root /, rm -rf ~, rm -rf *
	{"recursive delete of critical path", regexp.MustCompile(`\brm\s+(-[^\s]*\s+)*-[^\s]*r[^\s]*f[^\s]*\s+(--no-preserve-root\s+)?(/|~)`)},
	{"recursive delete of critical path", regexp.MustCompile(`\brm\s+(-[^\s]*\s+)*-[^\s]*f[^\s]*r[^\s]*\s+(--no-preserve-root\s+)?(/|~)`)},
	{"recursive delete of critical path", regexp.MustCompile(`\brm\s+-rf\s+["']?\*`)},

	// Raw device reads/writes through dd.
	{"raw device write", regexp.MustCompile(`\bdd\s+[^|;&]*if=/dev/(zero|urandom|random)\b`)},
	{"raw device write", regexp.MustCompile(`\bdd\s+[^|;&]*of=/dev/(sd|hd|vd|nvme|mmcblk)`)},

	// Writing directly to block devices via redirection.
	{"raw device write", regexp.MustCompile(`>\s*/dev/(sd|hd|vd|nvme|mmcblk)`)},

	// Fork bombs: :(){ :|:& };: and named variants.
	{"fork bomb", regexp.MustCompile(`[:\w.]+\(\)\s*\{\s*[:\w.]+\s*\|\s*[:\w.]+\s*&\s*\}\s*;`)},

	// Permission widening to world-writable on system paths.
	{"permission widening on system path", regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)*([0-7])?777\s+/`)},
	{"permission widening on system path", regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)*a\+rwx\s+/`)},

	// Ownership change to a privileged user.
	{"ownership change to privileged user", regexp.MustCompile(`\bchown\s+(-[a-zA-Z]+\s+)*root\b`)},

	// Output redirection into system configuration paths.
	{"redirection into system path", regexp.MustCompile(`>+\s*/(etc|boot|sys|proc)/`)},

	// Piping arbitrary content into a shell interpreter.
	{"piping into shell interpreter", regexp.MustCompile(`\|\s*(sudo\s+)?(ba|da|z|k)?sh\b`)},

	// Power state changes.
	{"system power control", regexp.MustCompile(`\b(shutdown|reboot|poweroff|halt)\b`)},
	{"system power control", regexp.MustCompile(`\binit\s+[06]\b`)},

	// Filesystem formatting / wiping.
	{"filesystem format or wipe", regexp.MustCompile(`\bmkfs(\.\w+)?\b`)},
	{"filesystem format or wipe", regexp.MustCompile(`\bwipefs\b`)},
	{"filesystem format or wipe", regexp.MustCompile(`\bsgdisk\b[^|;&]*--zap-all\b`)},

	// Privilege escalation.
	{"privilege escalation", regexp.MustCompile(`\bsudo\s+(su|-i|-s)\b`)},
	{"privilege escalation", regexp.MustCompile(`\bsu\s+(-|root)\b`)},
	{"privilege escalation", regexp.MustCompile(`\bpkexec\b`)},
}

// interactiveRules match commands that prompt for input. An unattended
// tool hitting one of these would hang until its timeout fires.
var interactiveRules = []rule{
	{"shell read prompt", regexp.MustCompile(`\bread\s+-[a-z]*p\b`)},
	{"explicit interactive flag", regexp.MustCompile(`--interactive\b`)},
	{"explicit interactive flag", regexp.MustCompile(`\s-it\b`)},
	{"confirmation prompt", regexp.MustCompile(`(?i)\[y/n\]`)},
	{"confirmation prompt", regexp.MustCompile(`(?i)are you sure`)},
	{"confirmation prompt", regexp.MustCompile(`(?i)\bconfirm\b`)},
	{"password prompt", regexp.MustCompile(`(?i)password`)},
	{"password prompt", regexp.MustCompile(`\bpasswd\b`)},
	{"interactive editor", regexp.MustCompile(`\b(visudo|vipw|vigr)\b`)},
}

// Validator screens resolved command strings against the deny lists.
// It holds only compiled patterns and is safe for concurrent use.
type Validator struct {
	dangerous   []rule
	interactive []rule
	logger      *slog.Logger
}

// New creates a Validator with the default pattern lists.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		dangerous:   dangerousRules,
		interactive: interactiveRules,
		logger:      logger,
	}
}

// Validate checks a command against the dangerous patterns. It returns a
// *Violation for the first match, or nil when the command is allowed.
// Validate never executes anything and performs no I/O.
func (v *Validator) Validate(command string) error {
	if strings.TrimSpace(command) == "" {
		return &Violation{Category: "empty command"}
	}

	for _, r := range v.dangerous {
		if r.re.MatchString(command) {
			v.logger.Warn("dangerous command rejected",
				"category", r.category,
				"pattern", r.re.String(),
				"security_event", "dangerous_command")
			return &Violation{Category: r.category, Pattern: r.re.String()}
		}
	}
	return nil
}

// ValidateForAuto checks a command for unattended execution: everything
// Validate rejects, plus any interactive-prompt match. Used both when an
// auto tool is defined and again at execution time as a re-check.
func (v *Validator) ValidateForAuto(command string) error {
	if err := v.Validate(command); err != nil {
		return err
	}

	for _, r := range v.interactive {
		if r.re.MatchString(command) {
			v.logger.Warn("interactive command rejected for unattended execution",
				"category", r.category,
				"pattern", r.re.String(),
				"security_event", "interactive_command")
			return &Violation{Category: r.category, Pattern: r.re.String()}
		}
	}
	return nil
}
