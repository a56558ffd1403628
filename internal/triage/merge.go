package triage

import (
	"github.com/steveyegge/oaiguard/internal/ai"
	"github.com/steveyegge/oaiguard/internal/types"
)

// augment folds a model reply into a heuristic diagnosis. Lists are unioned
// in first-seen order; summary, risk and review come from the model when it
// supplied them.
func augment(base types.Diagnosis, p *ai.Partial) types.Diagnosis {
	out := base.Clone()
	if p.Summary != nil && *p.Summary != "" {
		out.Summary = *p.Summary
	}
	out.Causes = union(base.Causes, p.Causes)
	out.DiagnosticsCmds = union(base.DiagnosticsCmds, p.DiagnosticsCmds)
	out.FixCmds = union(base.FixCmds, p.FixCmds)
	if p.RiskLevel != nil {
		out.RiskLevel = *p.RiskLevel
	}
	if p.NeedHumanReview != nil {
		out.NeedHumanReview = *p.NeedHumanReview
	}
	return out.Normalize()
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
