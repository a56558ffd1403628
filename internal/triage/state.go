package triage

import "github.com/steveyegge/oaiguard/internal/types"

// provenance tags where the current diagnosis came from.
type provenance int

const (
	provNone provenance = iota
	provCached
	provHeuristic
	provInferred
)

func (p provenance) String() string {
	switch p {
	case provCached:
		return "cached"
	case provHeuristic:
		return "heuristic"
	case provInferred:
		return "inferred"
	default:
		return "none"
	}
}

// state is one step of a triage run.
type state int

const (
	stateStart state = iota
	stateHistory
	stateHeuristic
	stateInference
	stateReconcile
	stateSentinel
	stateWriteBack
	stateFilter
	stateDiagnostics
	stateAuto
	statePersist
	stateDone
)

var stateNames = [...]string{
	stateStart:       "start",
	stateHistory:     "history",
	stateHeuristic:   "heuristic",
	stateInference:   "inference",
	stateReconcile:   "reconcile",
	stateSentinel:    "sentinel",
	stateWriteBack:   "write_back",
	stateFilter:      "filter",
	stateDiagnostics: "diagnostics",
	stateAuto:        "auto",
	statePersist:     "persist",
	stateDone:        "done",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// decisionInputs is everything next needs to pick the following state.
type decisionInputs struct {
	opts Options
	prov provenance
	// autoEligible is true when the final diagnosis is low risk and needs no review.
	autoEligible bool
}

// reconciles reports whether a heuristic hit is sent to the model as well.
func (o Options) reconciles() bool {
	return !o.FastOnly && (o.Mode == types.ModeVerify || o.Mode == types.ModeAugment)
}

// next is the transition function of the triage state machine. It is pure:
// the same state and inputs always give the same successor.
func next(s state, in decisionInputs) state {
	switch s {
	case stateStart:
		if in.opts.UseHistory {
			return stateHistory
		}
		fallthrough
	case stateHistory:
		if in.prov == provCached {
			return stateFilter
		}
		if in.opts.UseHeuristics {
			return stateHeuristic
		}
		fallthrough
	case stateHeuristic:
		if in.prov == provHeuristic {
			if in.opts.reconciles() {
				return stateReconcile
			}
			return stateWriteBack
		}
		if in.opts.FastOnly {
			return stateSentinel
		}
		return stateInference
	case stateInference:
		if in.prov == provInferred {
			return stateWriteBack
		}
		return stateSentinel
	case stateReconcile:
		return stateWriteBack
	case stateSentinel, stateWriteBack:
		return stateFilter
	case stateFilter:
		if !in.opts.SkipDiagnostics {
			return stateDiagnostics
		}
		fallthrough
	case stateDiagnostics:
		if in.opts.Auto && in.autoEligible {
			return stateAuto
		}
		return statePersist
	case stateAuto:
		return statePersist
	default:
		return stateDone
	}
}
