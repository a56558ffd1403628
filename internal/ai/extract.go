package ai

import (
	"fmt"
	"strings"

	"github.com/steveyegge/oaiguard/internal/types"
)

// Partial is a diagnosis as the model supplied it. Nil fields were absent
// from the reply, which matters when merging with a heuristic answer.
type Partial struct {
	Summary         *string
	Causes          []string
	DiagnosticsCmds []string
	FixCmds         []string
	RiskLevel       *types.RiskLevel
	NeedHumanReview *bool
}

// Diagnosis fills absent fields: empty lists, high risk and human review.
func (p *Partial) Diagnosis() types.Diagnosis {
	d := types.Diagnosis{
		Causes:          orEmpty(p.Causes),
		DiagnosticsCmds: orEmpty(p.DiagnosticsCmds),
		FixCmds:         orEmpty(p.FixCmds),
		RiskLevel:       types.RiskHigh,
		NeedHumanReview: true,
	}
	if p.Summary != nil {
		d.Summary = *p.Summary
	}
	if p.RiskLevel != nil {
		d.RiskLevel = *p.RiskLevel
	}
	if p.NeedHumanReview != nil {
		d.NeedHumanReview = *p.NeedHumanReview
	}
	return d.Normalize()
}

// Key aliases accepted from older prompt versions.
var fieldAliases = map[string][]string{
	"summary":           {"summary", "incident_summary"},
	"causes":            {"causes", "probable_causes"},
	"diagnostics_cmds":  {"diagnostics_cmds", "diagnostic_cmds", "diagnostics"},
	"fix_cmds":          {"fix_cmds", "fixes"},
	"risk_level":        {"risk_level", "risk"},
	"need_human_review": {"need_human_review", "human_review"},
}

// ExtractPartial pulls a diagnosis object out of raw model output. It
// reports false when no JSON object is found or the object carries none of
// the diagnosis keys.
func ExtractPartial(raw string) (*Partial, bool) {
	res := Parse[map[string]any](raw)
	if !res.Success || res.Data == nil {
		return nil, false
	}
	obj := res.Data

	var p Partial
	found := false
	if v, ok := lookup(obj, "summary"); ok {
		s := strings.TrimSpace(asString(v))
		p.Summary = &s
		found = true
	}
	if v, ok := lookup(obj, "causes"); ok {
		p.Causes = asStringList(v)
		found = true
	}
	if v, ok := lookup(obj, "diagnostics_cmds"); ok {
		p.DiagnosticsCmds = asStringList(v)
		found = true
	}
	if v, ok := lookup(obj, "fix_cmds"); ok {
		p.FixCmds = asStringList(v)
		found = true
	}
	if v, ok := lookup(obj, "risk_level"); ok {
		r := types.RiskLevel(strings.ToLower(strings.TrimSpace(asString(v))))
		p.RiskLevel = &r
		found = true
	}
	if v, ok := lookup(obj, "need_human_review"); ok {
		b := asBool(v)
		p.NeedHumanReview = &b
		found = true
	}
	if !found {
		return nil, false
	}
	return &p, true
}

func lookup(obj map[string]any, field string) (any, bool) {
	for _, k := range fieldAliases[field] {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// asStringList accepts a JSON array or a single string (some models do that
// for one-element lists).
func asStringList(v any) []string {
	switch x := v.(type) {
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s := strings.TrimSpace(asString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return []string{s}
		}
		return []string{}
	default:
		return []string{}
	}
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "1":
			return true
		}
		return false
	case float64:
		return x != 0
	default:
		return true
	}
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
