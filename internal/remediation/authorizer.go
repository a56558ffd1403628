package remediation

import (
	"fmt"

	"github.com/steveyegge/oaiguard/internal/types"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
	Action  Action
	Unit    string
}

// Authorizer applies the command grammar and an AutoPolicy.
// The whitelist file is re-read on every decision so edits take effect
// without a restart.
type Authorizer struct {
	Policy        types.AutoPolicy
	WhitelistPath string
}

// NewAuthorizer returns an Authorizer for policy.
func NewAuthorizer(policy types.AutoPolicy, whitelistPath string) *Authorizer {
	return &Authorizer{Policy: policy, WhitelistPath: whitelistPath}
}

// Authorize checks grammar and policy for an operator-initiated command.
// Any grammar action is eligible.
func (a *Authorizer) Authorize(cmd string) Decision {
	action, unit, ok := ParseSystemctl(cmd)
	if !ok {
		return Decision{Reason: "command does not match systemctl grammar"}
	}
	d := Decision{Action: action, Unit: unit}
	if reason := a.policyReason(unit); reason != "" {
		d.Reason = reason
		return d
	}
	d.Allowed = true
	d.Reason = fmt.Sprintf("authorized by %s policy", a.Policy)
	return d
}

// AuthorizeAuto is Authorize restricted to restarts; start and stop are
// never run unattended.
func (a *Authorizer) AuthorizeAuto(cmd string) Decision {
	action, unit, ok := ParseSystemctl(cmd)
	if !ok {
		return Decision{Reason: "command does not match systemctl grammar"}
	}
	if action != ActionRestart {
		return Decision{Action: action, Unit: unit, Reason: fmt.Sprintf("action %q is never auto-executed", action)}
	}
	return a.Authorize(cmd)
}

func (a *Authorizer) policyReason(unit string) string {
	switch a.Policy {
	case types.PolicyOAIOnly:
		if len(unit) <= len(VendorPrefix) || unit[:len(VendorPrefix)] != VendorPrefix {
			return fmt.Sprintf("unit %q lacks required prefix %q", unit, VendorPrefix)
		}
	case types.PolicyWhitelist:
		if _, ok := LoadWhitelist(a.WhitelistPath)[unit]; !ok {
			return fmt.Sprintf("unit %q not in whitelist %s", unit, a.WhitelistPath)
		}
	case types.PolicyAny:
	default:
		return fmt.Sprintf("unknown auto policy %q", a.Policy)
	}
	return ""
}
