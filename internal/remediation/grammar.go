// Package remediation decides which commands may run and runs them.
package remediation

import (
	"regexp"
	"strings"
)

// Action is a systemctl verb accepted by the command grammar.
type Action string

const (
	ActionRestart Action = "restart"
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
)

// VendorPrefix is the unit prefix required by the oai_only policy.
const VendorPrefix = "oai-"

// systemctlGrammar is the only command shape that may ever run unattended.
// The unit pattern excludes whitespace, so pipes and separators cannot follow.
var systemctlGrammar = regexp.MustCompile(`^systemctl\s+(?:--now\s+)?(restart|start|stop)\s+([A-Za-z0-9@_.\-]+?)(?:\.service)?\s*$`)

// shellControl matches characters that would chain or redirect commands.
var shellControl = regexp.MustCompile("[;&|`<>\n]|\\$\\(")

// ParseSystemctl returns the action and unit (without .service) of a
// grammar-conforming command.
func ParseSystemctl(cmd string) (Action, string, bool) {
	m := systemctlGrammar.FindStringSubmatch(strings.TrimSpace(cmd))
	if m == nil {
		return "", "", false
	}
	return Action(m[1]), m[2], true
}

// Allowed reports whether cmd starts with one of prefixes and carries no
// shell control operators.
func Allowed(cmd string, prefixes []string) bool {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || shellControl.MatchString(cmd) {
		return false
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(cmd, p) {
			return true
		}
	}
	return false
}

// FilterAllowed returns the commands of cmds that pass Allowed, in order.
func FilterAllowed(cmds, prefixes []string) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if Allowed(c, prefixes) {
			out = append(out, strings.TrimSpace(c))
		}
	}
	return out
}
