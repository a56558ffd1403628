package types

import (
	"fmt"
	"strings"
	"time"
)

// Limits applied to diagnosis lists. Model output routinely exceeds them.
const (
	MaxCauses          = 3
	MaxDiagnosticsCmds = 5
	MaxFixCmds         = 3
)

// ErrorEvent is one error-bearing log line plus the lines that preceded it.
// Context is ordered oldest first; the error line itself is normally the last entry.
type ErrorEvent struct {
	Line      string    `json:"line"`
	Context   []string  `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextTail returns at most n trailing context lines.
func (e ErrorEvent) ContextTail(n int) []string {
	if n <= 0 || len(e.Context) <= n {
		return append([]string(nil), e.Context...)
	}
	return append([]string(nil), e.Context[len(e.Context)-n:]...)
}

// Signature is the fixed-width fingerprint of a normalized error line.
type Signature string

// RiskLevel grades how dangerous the proposed fix is
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// IsValid checks if the risk level value is valid
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Source records which part of the engine produced an incident's diagnosis
type Source string

const (
	SourceHistory      Source = "history"
	SourceHeuristic    Source = "heuristic"
	SourceLLM          Source = "llm"
	SourceHeuristicLLM Source = "heuristic+llm"
	SourceNone         Source = "none"
)

// IsValid checks if the source value is valid
func (s Source) IsValid() bool {
	switch s {
	case SourceHistory, SourceHeuristic, SourceLLM, SourceHeuristicLLM, SourceNone:
		return true
	}
	return false
}

// AutoPolicy is the rule set gating unattended fix execution.
type AutoPolicy string

const (
	PolicyOAIOnly   AutoPolicy = "oai_only"
	PolicyWhitelist AutoPolicy = "whitelist"
	PolicyAny       AutoPolicy = "any"
)

// IsValid checks if the policy value is known. Unknown policies are still
// accepted at runtime but authorize nothing.
func (p AutoPolicy) IsValid() bool {
	switch p {
	case PolicyOAIOnly, PolicyWhitelist, PolicyAny:
		return true
	}
	return false
}

// Mode selects whether a heuristic hit is re-checked by the model.
type Mode string

const (
	ModeNone    Mode = "none"
	ModeVerify  Mode = "verify"
	ModeAugment Mode = "augment"
)

// IsValid checks if the mode value is valid
func (m Mode) IsValid() bool {
	switch m {
	case ModeNone, ModeVerify, ModeAugment, "":
		return true
	}
	return false
}

// Diagnosis is the structured triage answer before it is wrapped into an Incident.
//
// List fields are nil when the producer did not supply them; Complete reports
// whether every field has been populated.
type Diagnosis struct {
	Summary         string    `json:"summary"`
	Causes          []string  `json:"causes"`
	DiagnosticsCmds []string  `json:"diagnostics_cmds"`
	FixCmds         []string  `json:"fix_cmds"`
	RiskLevel       RiskLevel `json:"risk_level"`
	NeedHumanReview bool      `json:"need_human_review"`
}

// Complete reports whether summary and all three command/cause lists are present.
func (d *Diagnosis) Complete() bool {
	return d != nil && d.Summary != "" && d.Causes != nil && d.DiagnosticsCmds != nil && d.FixCmds != nil
}

// Clone returns a deep copy so rule tables and cached values are never aliased.
func (d Diagnosis) Clone() Diagnosis {
	out := d
	out.Causes = cloneList(d.Causes)
	out.DiagnosticsCmds = cloneList(d.DiagnosticsCmds)
	out.FixCmds = cloneList(d.FixCmds)
	return out
}

// Normalize fills missing lists, clamps list lengths and coerces the risk level.
// An unrecognised risk level is treated as high and forces human review.
func (d Diagnosis) Normalize() Diagnosis {
	out := d.Clone()
	out.Summary = strings.TrimSpace(out.Summary)
	out.Causes = clampList(out.Causes, MaxCauses)
	out.DiagnosticsCmds = clampList(out.DiagnosticsCmds, MaxDiagnosticsCmds)
	out.FixCmds = clampList(out.FixCmds, MaxFixCmds)

	out.RiskLevel = RiskLevel(strings.ToLower(strings.TrimSpace(string(out.RiskLevel))))
	if !out.RiskLevel.IsValid() {
		out.RiskLevel = RiskHigh
		out.NeedHumanReview = true
	}
	return out
}

// Validate checks if the diagnosis has valid field values
func (d *Diagnosis) Validate() error {
	if !d.RiskLevel.IsValid() {
		return fmt.Errorf("invalid risk level: %q", d.RiskLevel)
	}
	if len(d.Causes) > MaxCauses {
		return fmt.Errorf("causes must have at most %d entries (got %d)", MaxCauses, len(d.Causes))
	}
	if len(d.DiagnosticsCmds) > MaxDiagnosticsCmds {
		return fmt.Errorf("diagnostics_cmds must have at most %d entries (got %d)", MaxDiagnosticsCmds, len(d.DiagnosticsCmds))
	}
	if len(d.FixCmds) > MaxFixCmds {
		return fmt.Errorf("fix_cmds must have at most %d entries (got %d)", MaxFixCmds, len(d.FixCmds))
	}
	return nil
}

// NoDiagnosis is the sentinel produced when every source came back empty.
func NoDiagnosis() Diagnosis {
	return Diagnosis{
		Summary:         "no diagnosis available",
		Causes:          []string{},
		DiagnosticsCmds: []string{},
		FixCmds:         []string{},
		RiskLevel:       RiskHigh,
		NeedHumanReview: true,
	}
}

func cloneList(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func clampList(in []string, max int) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}
