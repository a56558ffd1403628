// Package heuristics recognizes well-known OAI core failures by pattern and
// returns a canned diagnosis without consulting a model.
package heuristics

import (
	"fmt"
	"regexp"

	"github.com/steveyegge/oaiguard/internal/types"
)

// Rule pairs a pattern with the diagnosis it produces.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Template types.Diagnosis
}

var demoServiceDown = regexp.MustCompile(`(?i)\[DEMO\]\s+ERROR\s+service\s+([A-Za-z0-9@_.\-]+)\s+down`)

// DefaultRules is the static rule table in evaluation order.
var DefaultRules = []Rule{
	{
		Name:    "smf-dnn-missing",
		Pattern: regexp.MustCompile(`(?i)DNN .*not configured`),
		Template: types.Diagnosis{
			Summary:         "Requested DNN not configured in SMF",
			Causes:          []string{"UE requested unknown DNN/APN", "SMF config missing DNN"},
			DiagnosticsCmds: []string{"journalctl -u oai-smf -n 120", "grep -n DNN /etc/oai/smf.conf"},
			FixCmds:         []string{"systemctl restart oai-smf"},
			RiskLevel:       types.RiskMedium,
			NeedHumanReview: true,
		},
	},
	{
		Name:    "nrf-unavailable",
		Pattern: regexp.MustCompile(`(?i)NRF registration failed.*503`),
		Template: types.Diagnosis{
			Summary:         "NRF unavailable (503) during registration",
			Causes:          []string{"NRF down", "Network partition"},
			DiagnosticsCmds: []string{"systemctl status oai-nrf", "journalctl -u oai-nrf -n 200"},
			FixCmds:         []string{"systemctl restart oai-nrf"},
			RiskLevel:       types.RiskMedium,
			NeedHumanReview: true,
		},
	},
	{
		Name:    "upf-pfcp-timeout",
		Pattern: regexp.MustCompile(`(?i)PFCP.*Association.*timed out`),
		Template: types.Diagnosis{
			Summary:         "PFCP association timeout to UPF",
			Causes:          []string{"UPF not reachable", "Firewall or port 8805 blocked"},
			DiagnosticsCmds: []string{"journalctl -u oai-upf -n 120", "systemctl status oai-upf"},
			FixCmds:         []string{"systemctl restart oai-upf"},
			RiskLevel:       types.RiskMedium,
			NeedHumanReview: true,
		},
	},
	{
		Name:    "amf-t3560-expired",
		Pattern: regexp.MustCompile(`(?i)T3560 expired`),
		Template: types.Diagnosis{
			Summary:         "UE auth timeout (T3560)",
			Causes:          []string{"HSS/AUSF delay", "UE unreachable"},
			DiagnosticsCmds: []string{"journalctl -u oai-ausf -n 120", "journalctl -u oai-amf -n 120"},
			FixCmds:         []string{"systemctl restart oai-amf"},
			RiskLevel:       types.RiskLow,
			NeedHumanReview: true,
		},
	},
	{
		Name:    "amf-sctp-lost",
		Pattern: regexp.MustCompile(`(?i)SCTP.*(connection refused|association.*(lost|failed))`),
		Template: types.Diagnosis{
			Summary:         "AMF: N2 SCTP association to the RAN lost",
			Causes:          []string{"AMF SCTP endpoint not listening", "gNB restarted or unreachable"},
			DiagnosticsCmds: []string{"systemctl status oai-amf", "journalctl -u oai-amf -n 200"},
			FixCmds:         []string{"systemctl restart oai-amf"},
			RiskLevel:       types.RiskMedium,
			NeedHumanReview: true,
		},
	},
	{
		Name:    "process-crash",
		Pattern: regexp.MustCompile(`(?i)(segfault|core dumped)`),
		Template: types.Diagnosis{
			Summary:         "Network function process crashed",
			Causes:          []string{"Segmentation fault in the network function"},
			DiagnosticsCmds: []string{"tail -n 100 /var/log/syslog"},
			FixCmds:         []string{},
			RiskLevel:       types.RiskHigh,
			NeedHumanReview: true,
		},
	},
}

// Matcher evaluates the service-down rule and then a static rule table.
// A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	rules []Rule
}

// New returns a Matcher over rules; nil means DefaultRules.
func New(rules []Rule) *Matcher {
	if rules == nil {
		rules = DefaultRules
	}
	return &Matcher{rules: rules}
}

// Match returns a fresh copy of the first matching diagnosis.
func (m *Matcher) Match(line string) (*types.Diagnosis, bool) {
	if d, ok := serviceDown(line); ok {
		return d, true
	}
	for _, r := range m.rules {
		if r.Pattern.MatchString(line) {
			d := r.Template.Clone()
			return &d, true
		}
	}
	return nil, false
}

// RuleName reports which rule would fire for line, or "" when none does.
func (m *Matcher) RuleName(line string) string {
	if demoServiceDown.MatchString(line) {
		return "service-down"
	}
	for _, r := range m.rules {
		if r.Pattern.MatchString(line) {
			return r.Name
		}
	}
	return ""
}

func serviceDown(line string) (*types.Diagnosis, bool) {
	m := demoServiceDown.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	unit := m[1]
	return &types.Diagnosis{
		Summary:         fmt.Sprintf("Service %s is down", unit),
		Causes:          []string{fmt.Sprintf("%s stopped or crashed", unit)},
		DiagnosticsCmds: []string{"systemctl status " + unit, fmt.Sprintf("journalctl -u %s -n 200", unit)},
		FixCmds:         []string{"systemctl restart " + unit},
		RiskLevel:       types.RiskLow,
		NeedHumanReview: false,
	}, true
}
