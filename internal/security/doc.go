// Package security screens resolved command strings before execution.
//
// The [Validator] is a deny-list, not a shell parser: it matches a command
// against compiled patterns for destructive operations (recursive deletes,
// raw device writes, fork bombs, privilege escalation, piping into a shell)
// and, for unattended tools, interactive-prompt idioms.
//
// Known limitation: shell quoting, variable expansion, or command
// substitution can obfuscate a dangerous command past pattern matching.
// The validator blocks the common high-blast-radius classes of accidents;
// it is a gate, not a sandbox.
package security
