// Package triage turns an error event into a persisted incident by walking
// history, heuristics and inference in order.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/oaiguard/internal/ai"
	"github.com/steveyegge/oaiguard/internal/config"
	"github.com/steveyegge/oaiguard/internal/logging"
	"github.com/steveyegge/oaiguard/internal/metrics"
	"github.com/steveyegge/oaiguard/internal/remediation"
	"github.com/steveyegge/oaiguard/internal/signature"
	"github.com/steveyegge/oaiguard/internal/storage"
	"github.com/steveyegge/oaiguard/internal/types"
)

// Options select which stages of a run are active.
type Options struct {
	UseHistory      bool
	UseHeuristics   bool
	FastOnly        bool
	Mode            types.Mode
	Auto            bool
	SkipDiagnostics bool
}

// OptionsFromConfig returns the run options configured in cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		UseHistory:      cfg.UseHistory,
		UseHeuristics:   cfg.UseHeuristics,
		FastOnly:        cfg.FastOnly,
		Mode:            cfg.Mode,
		Auto:            cfg.Auto,
		SkipDiagnostics: cfg.SkipDiagnostics,
	}
}

// Matcher is the fast rule-based diagnosis path.
type Matcher interface {
	Match(line string) (*types.Diagnosis, bool)
	RuleName(line string) string
}

// CommandRunner runs diagnostics commands.
type CommandRunner interface {
	RunAll(ctx context.Context, cmds []string) []types.CommandResult
}

// FixExecutor authorizes and runs one fix command.
type FixExecutor interface {
	AutoExecute(ctx context.Context, cmd string) types.CommandResult
}

// IncidentStore persists finished incidents.
type IncidentStore interface {
	Save(inc *types.Incident) (string, error)
}

// Deps are the collaborators of an Orchestrator. All of them must be safe
// for concurrent use when Triage is called from several goroutines.
type Deps struct {
	Cache       storage.HistoryCache // nil disables history
	Matcher     Matcher
	Client      ai.Client // nil disables inference
	Diagnostics CommandRunner
	Fixes       FixExecutor
	Store       IncidentStore

	Allowlist        []string
	InferenceTimeout time.Duration // per model call; 0 = caller's deadline only
	Engine           string
	Model            string

	Logger  *slog.Logger
	Metrics *metrics.Metrics // nil = no metrics
	Now     func() time.Time
	NewID   func() string
}

// Result is the outcome of one triage run.
type Result struct {
	Incident *types.Incident
	Path     string
}

// Orchestrator sequences the triage stages. It holds no per-run state.
type Orchestrator struct {
	deps      Deps
	allowlist []string
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// New validates deps and returns an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("incident store is required")
	}
	if deps.Diagnostics == nil {
		return nil, fmt.Errorf("diagnostics runner is required")
	}
	if deps.Fixes == nil {
		return nil, fmt.Errorf("fix executor is required")
	}
	o := &Orchestrator{
		deps:      deps,
		allowlist: append([]string(nil), deps.Allowlist...),
		logger:    logging.OrDefault(deps.Logger),
		now:       deps.Now,
		newID:     deps.NewID,
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// run is the mutable state of a single Triage call.
type run struct {
	ev       types.ErrorEvent
	sig      types.Signature
	prov     provenance
	source   types.Source
	diag     types.Diagnosis
	inc      *types.Incident
	modelRaw string
	retryRaw string
}

// Triage diagnoses ev and persists the incident. An incident is produced
// even when every source fails; the returned error is non-nil only when it
// could not be written.
func (o *Orchestrator) Triage(ctx context.Context, ev types.ErrorEvent, opts Options) (*Result, error) {
	r := &run{
		ev:     ev,
		sig:    signature.Compute(ev.Line),
		source: types.SourceNone,
	}
	log := o.logger.With("sig", r.sig)

	var path string
	var saveErr error
	s := stateStart
	for s != stateDone {
		switch s {
		case stateHistory:
			o.lookupHistory(ctx, r, log)
		case stateHeuristic:
			o.matchHeuristic(r, log)
		case stateInference:
			if p := o.infer(ctx, r, true, log); p != nil {
				r.diag = p.Diagnosis()
				r.prov = provInferred
				r.source = types.SourceLLM
			}
		case stateReconcile:
			o.reconcile(ctx, r, opts.Mode, log)
		case stateSentinel:
			r.diag = types.NoDiagnosis()
			r.prov = provNone
			r.source = types.SourceNone
		case stateWriteBack:
			o.writeBack(ctx, r, log)
		case stateFilter:
			r.inc = o.buildIncident(r)
		case stateDiagnostics:
			o.runDiagnostics(ctx, r)
		case stateAuto:
			o.runFixes(ctx, r)
		case statePersist:
			path, saveErr = o.deps.Store.Save(r.inc)
		}
		s = next(s, decisionInputs{
			opts:         opts,
			prov:         r.prov,
			autoEligible: autoEligible(r.diag),
		})
	}

	o.deps.Metrics.RecordTriage(string(r.source))
	res := &Result{Incident: r.inc, Path: path}
	if saveErr != nil {
		log.Error("failed to persist incident", "error", saveErr)
		return res, fmt.Errorf("failed to persist incident: %w", saveErr)
	}
	log.Info("incident saved", "path", path, "source", r.source,
		"risk", r.inc.RiskLevel, "review", r.inc.NeedHumanReview, "auto_ran", r.inc.AutoRan)
	return res, nil
}

func autoEligible(d types.Diagnosis) bool {
	return !d.NeedHumanReview && d.RiskLevel == types.RiskLow
}

// lookupHistory treats every cache failure as a miss.
func (o *Orchestrator) lookupHistory(ctx context.Context, r *run, log *slog.Logger) {
	if o.deps.Cache == nil {
		return
	}
	d, err := o.deps.Cache.Get(ctx, r.sig)
	if err != nil {
		log.Warn("history lookup failed, treating as miss", "error", err)
		o.deps.Metrics.RecordCacheError()
		o.deps.Metrics.RecordCacheMiss()
		return
	}
	if d == nil {
		o.deps.Metrics.RecordCacheMiss()
		return
	}
	if !d.Complete() {
		log.Warn("cached diagnosis is incomplete, treating as miss")
		o.deps.Metrics.RecordCacheMiss()
		return
	}
	if err := d.Validate(); err != nil {
		log.Warn("cached diagnosis is invalid, treating as miss", "error", err)
		o.deps.Metrics.RecordCacheMiss()
		return
	}
	o.deps.Metrics.RecordCacheHit()
	r.diag = d.Normalize()
	r.prov = provCached
	r.source = types.SourceHistory
}

func (o *Orchestrator) matchHeuristic(r *run, log *slog.Logger) {
	if o.deps.Matcher == nil {
		return
	}
	if d, ok := o.deps.Matcher.Match(r.ev.Line); ok {
		log.Debug("heuristic rule matched", "rule", o.deps.Matcher.RuleName(r.ev.Line))
		r.diag = *d
		r.prov = provHeuristic
		r.source = types.SourceHeuristic
	}
}

// reconcile asks the model about a heuristic hit. A failed call keeps the
// heuristic diagnosis.
func (o *Orchestrator) reconcile(ctx context.Context, r *run, mode types.Mode, log *slog.Logger) {
	// augment only needs the fields the model did supply
	p := o.infer(ctx, r, mode == types.ModeVerify, log)
	if p == nil {
		log.Info("model unavailable, keeping heuristic diagnosis", "mode", mode)
		return
	}
	switch mode {
	case types.ModeVerify:
		r.diag = p.Diagnosis()
		r.prov = provInferred
		r.source = types.SourceLLM
	case types.ModeAugment:
		r.diag = augment(r.diag, p)
		r.source = types.SourceHeuristicLLM
	}
}

// infer calls the model and retries once with the strict prompt when the
// first reply holds no diagnosis. With whole set, a reply that does not make a
// complete diagnosis on its own counts as no diagnosis. It returns nil when
// nothing usable came back.
func (o *Orchestrator) infer(ctx context.Context, r *run, whole bool, log *slog.Logger) *ai.Partial {
	if o.deps.Client == nil {
		return nil
	}

	raw, err := o.call(ctx, ai.UserPrompt(r.ev))
	r.modelRaw = raw
	if err != nil {
		log.Warn("inference failed", "error", err)
	} else if p, ok := usable(raw, whole); ok {
		return p
	} else {
		o.deps.Metrics.RecordInferenceFailure("unparseable")
	}
	if ctx.Err() != nil || errors.Is(err, ai.ErrCircuitOpen) {
		return nil
	}

	raw, err = o.call(ctx, ai.StrictRetryPrompt(r.ev))
	r.retryRaw = raw
	if err != nil {
		log.Warn("strict retry failed", "error", err)
		return nil
	}
	if p, ok := usable(raw, whole); ok {
		return p
	}
	o.deps.Metrics.RecordInferenceFailure("unparseable")
	log.Warn("model output held no diagnosis after strict retry")
	return nil
}

func usable(raw string, whole bool) (*ai.Partial, bool) {
	p, ok := ai.ExtractPartial(raw)
	if !ok {
		return nil, false
	}
	if whole {
		if d := p.Diagnosis(); !d.Complete() {
			return nil, false
		}
	}
	return p, true
}

func (o *Orchestrator) call(ctx context.Context, userPrompt string) (string, error) {
	if o.deps.InferenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deps.InferenceTimeout)
		defer cancel()
	}
	start := o.now()
	raw, err := o.deps.Client.Infer(ctx, ai.SystemPrompt, userPrompt)
	kind := ""
	if err != nil {
		kind = "transport"
	}
	o.deps.Metrics.RecordInference(o.now().Sub(start), kind)
	if b, ok := o.deps.Client.(breaker); ok {
		o.deps.Metrics.RecordCircuitState(int(b.CircuitState()))
	}
	return raw, err
}

// breaker is implemented by clients that guard calls with a circuit breaker.
type breaker interface {
	CircuitState() ai.CircuitState
}

func (o *Orchestrator) writeBack(ctx context.Context, r *run, log *slog.Logger) {
	if o.deps.Cache == nil || r.source == types.SourceHistory || r.source == types.SourceNone {
		return
	}
	if err := o.deps.Cache.Put(ctx, r.sig, r.diag, o.now()); err != nil {
		log.Warn("history write-back failed", "error", err)
		o.deps.Metrics.RecordCacheError()
	}
}

// buildIncident copies the diagnosis into a new incident, dropping commands
// outside the allowlist.
func (o *Orchestrator) buildIncident(r *run) *types.Incident {
	now := o.now()
	d := r.diag.Clone()
	d.DiagnosticsCmds = remediation.FilterAllowed(d.DiagnosticsCmds, o.allowlist)
	d.FixCmds = remediation.FilterAllowed(d.FixCmds, o.allowlist)
	return &types.Incident{
		ID:          o.newID(),
		Timestamp:   now.Format(types.TimestampLayout),
		CreatedAt:   now,
		Source:      r.source,
		ErrorLine:   r.ev.Line,
		Signature:   r.sig,
		ContextTail: r.ev.ContextTail(ai.PromptContextLines),
		Engine:      o.deps.Engine,
		Model:       o.deps.Model,
		Diagnosis:   d,
		Results:     []types.CommandResult{},
		ModelRaw:    r.modelRaw,
		RetryRaw:    r.retryRaw,
	}
}

func (o *Orchestrator) runDiagnostics(ctx context.Context, r *run) {
	results := o.deps.Diagnostics.RunAll(ctx, r.inc.DiagnosticsCmds)
	for _, res := range results {
		o.deps.Metrics.RecordCommand("diagnostic", res.RC, res.Skipped)
	}
	r.inc.Results = append(r.inc.Results, results...)
}

// runFixes re-checks every fix against the allowlist before handing it to
// the executor, which applies the auto-execution policy.
func (o *Orchestrator) runFixes(ctx context.Context, r *run) {
	for _, cmd := range r.inc.FixCmds {
		var res types.CommandResult
		if !remediation.Allowed(cmd, o.allowlist) {
			res = types.SkippedResult(cmd, remediation.RejectedRC, "command not in allowlist")
		} else {
			res = o.deps.Fixes.AutoExecute(ctx, cmd)
		}
		if !res.Skipped {
			r.inc.AutoRan = true
		}
		o.deps.Metrics.RecordCommand("fix", res.RC, res.Skipped)
		r.inc.Results = append(r.inc.Results, res)
	}
}
