package triage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/oaiguard/internal/ai"
	"github.com/steveyegge/oaiguard/internal/config"
	"github.com/steveyegge/oaiguard/internal/heuristics"
	"github.com/steveyegge/oaiguard/internal/incident"
	"github.com/steveyegge/oaiguard/internal/metrics"
	"github.com/steveyegge/oaiguard/internal/remediation"
	"github.com/steveyegge/oaiguard/internal/signature"
	"github.com/steveyegge/oaiguard/internal/storage"
	"github.com/steveyegge/oaiguard/internal/types"
)

const smfLine = "2025-08-08 09:12:25.109 [SMF] ERROR DNN 'internet' not configured"

// fakeCache is an in-memory HistoryCache with injectable failures.
type fakeCache struct {
	mu     sync.Mutex
	data   map[types.Signature]types.Diagnosis
	getErr error
	putErr error
	puts   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[types.Signature]types.Diagnosis{}}
}

func (c *fakeCache) Get(ctx context.Context, sig types.Signature) (*types.Diagnosis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	d, ok := c.data[sig]
	if !ok {
		return nil, nil
	}
	d = d.Clone()
	return &d, nil
}

func (c *fakeCache) Put(ctx context.Context, sig types.Signature, d types.Diagnosis, observedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.data[sig] = d.Clone()
	return nil
}

func (c *fakeCache) Prune(ctx context.Context, olderThan time.Time) (int, error) { return 0, nil }
func (c *fakeCache) Stats(ctx context.Context) (storage.CacheStats, error) {
	return storage.CacheStats{Entries: len(c.data)}, nil
}
func (c *fakeCache) Close() error { return nil }

// scriptedClient replies from a queue and records every user prompt.
type scriptedClient struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
}

type reply struct {
	text string
	err  error
}

func (s *scriptedClient) Infer(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, userPrompt)
	if len(s.replies) == 0 {
		return "", ai.ErrEmptyResponse
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

type recordingRunner struct {
	mu   sync.Mutex
	cmds []string
	rc   int
}

func (r *recordingRunner) RunAll(ctx context.Context, cmds []string) []types.CommandResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.CommandResult, 0, len(cmds))
	for _, c := range cmds {
		r.cmds = append(r.cmds, c)
		out = append(out, types.CommandResult{Cmd: c, RC: r.rc})
	}
	return out
}

type recordingFixes struct {
	mu   sync.Mutex
	cmds []string
}

func (f *recordingFixes) AutoExecute(ctx context.Context, cmd string) types.CommandResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return types.CommandResult{Cmd: cmd, RC: 0, VerifyState: "active"}
}

type stubMatcher struct{ d types.Diagnosis }

func (m stubMatcher) Match(line string) (*types.Diagnosis, bool) {
	d := m.d.Clone()
	return &d, true
}

func (m stubMatcher) RuleName(line string) string { return "stub" }

type harness struct {
	cache  *fakeCache
	client *scriptedClient
	runner *recordingRunner
	fixes  *recordingFixes
	store  *incident.Store
	orch   *Orchestrator
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()
	store, err := incident.NewStore(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		cache:  newFakeCache(),
		client: &scriptedClient{},
		runner: &recordingRunner{},
		fixes:  &recordingFixes{},
		store:  store,
	}
	deps := Deps{
		Cache:       h.cache,
		Matcher:     heuristics.New(nil),
		Client:      h.client,
		Diagnostics: h.runner,
		Fixes:       h.fixes,
		Store:       store,
		Allowlist:   config.DefaultAllowlist,
		Engine:      "ollama",
		Model:       "llama3.2",
		Now:         func() time.Time { return time.Date(2025, 8, 8, 9, 12, 26, 0, time.UTC) },
		NewID:       func() string { return "test-id" },
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.orch, err = New(deps)
	require.NoError(t, err)
	return h
}

func event(line string) types.ErrorEvent {
	return types.ErrorEvent{Line: line, Context: []string{"previous line", line}}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name string
		s    state
		in   decisionInputs
		want state
	}{
		{"history enabled", stateStart, decisionInputs{opts: Options{UseHistory: true}}, stateHistory},
		{"history off heuristics on", stateStart, decisionInputs{opts: Options{UseHeuristics: true}}, stateHeuristic},
		{"everything off", stateStart, decisionInputs{}, stateInference},
		{"everything off fast only", stateStart, decisionInputs{opts: Options{FastOnly: true}}, stateSentinel},
		{"cache hit skips to filter", stateHistory, decisionInputs{prov: provCached, opts: Options{UseHeuristics: true}}, stateFilter},
		{"heuristic hit plain", stateHeuristic, decisionInputs{prov: provHeuristic}, stateWriteBack},
		{"heuristic hit verify", stateHeuristic, decisionInputs{prov: provHeuristic, opts: Options{Mode: types.ModeVerify}}, stateReconcile},
		{"heuristic hit verify fast only", stateHeuristic, decisionInputs{prov: provHeuristic, opts: Options{Mode: types.ModeVerify, FastOnly: true}}, stateWriteBack},
		{"inference hit", stateInference, decisionInputs{prov: provInferred}, stateWriteBack},
		{"inference miss", stateInference, decisionInputs{}, stateSentinel},
		{"sentinel skips write-back", stateSentinel, decisionInputs{}, stateFilter},
		{"filter runs diagnostics", stateFilter, decisionInputs{}, stateDiagnostics},
		{"filter skip diag no auto", stateFilter, decisionInputs{opts: Options{SkipDiagnostics: true}}, statePersist},
		{"auto gate open", stateDiagnostics, decisionInputs{opts: Options{Auto: true}, autoEligible: true}, stateAuto},
		{"auto gate closed", stateDiagnostics, decisionInputs{opts: Options{Auto: true}}, statePersist},
		{"persist ends", statePersist, decisionInputs{}, stateDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := next(tt.s, tt.in); got != tt.want {
				t.Errorf("next(%v) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestEndToEndSMFHeuristic(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHeuristics: true, FastOnly: true})
	require.NoError(t, err)

	inc := res.Incident
	assert.Equal(t, types.SourceHeuristic, inc.Source)
	assert.Equal(t, types.RiskMedium, inc.RiskLevel)
	assert.True(t, inc.NeedHumanReview)
	require.NotEmpty(t, inc.FixCmds)
	assert.True(t, strings.HasPrefix(inc.FixCmds[0], "systemctl restart oai-smf"))
	assert.False(t, inc.AutoRan)
	assert.Equal(t, "20250808-091226", inc.Timestamp)
	assert.Equal(t, "test-id", inc.ID)
	assert.Empty(t, h.client.prompts)

	loaded, err := h.store.Load(res.Path)
	require.NoError(t, err)
	assert.Equal(t, inc.Source, loaded.Source)
	assert.Equal(t, inc.FixCmds, loaded.FixCmds)
}

func TestVerifyModeReplacesHeuristic(t *testing.T) {
	h := newHarness(t, nil)
	h.client.replies = []reply{{text: `{"summary": "SMF DNN list missing internet",
		"causes": ["smf.conf lacks DNN"], "diagnostics_cmds": ["journalctl -u oai-smf -n 50"],
		"fix_cmds": ["systemctl restart oai-smf"], "risk_level": "low", "need_human_review": false}`}}

	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHeuristics: true, Mode: types.ModeVerify})
	require.NoError(t, err)

	want := types.Diagnosis{
		Summary:         "SMF DNN list missing internet",
		Causes:          []string{"smf.conf lacks DNN"},
		DiagnosticsCmds: []string{"journalctl -u oai-smf -n 50"},
		FixCmds:         []string{"systemctl restart oai-smf"},
		RiskLevel:       types.RiskLow,
		NeedHumanReview: false,
	}
	assert.Equal(t, types.SourceLLM, res.Incident.Source)
	assert.Equal(t, want, res.Incident.Diagnosis)
	require.Len(t, h.client.prompts, 1)
	assert.Contains(t, h.client.prompts[0], smfLine)
}

func TestAugmentModeMerges(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Matcher = stubMatcher{d: types.Diagnosis{
			Summary:         "heuristic summary",
			Causes:          []string{"A", "B"},
			DiagnosticsCmds: []string{"systemctl status oai-amf"},
			FixCmds:         []string{"systemctl restart oai-amf"},
			RiskLevel:       types.RiskMedium,
			NeedHumanReview: true,
		}}
	})
	h.client.replies = []reply{{text: "Here you go:\n```json\n" +
		`{"causes": ["B", "C"], "diagnostics_cmds": ["journalctl -u oai-amf -n 200", "systemctl status oai-amf"], "risk_level": "high"}` +
		"\n```"}}

	res, err := h.orch.Triage(context.Background(), event("[AMF] ERROR whatever"), Options{UseHeuristics: true, Mode: types.ModeAugment})
	require.NoError(t, err)

	inc := res.Incident
	assert.Equal(t, types.SourceHeuristicLLM, inc.Source)
	assert.Equal(t, "heuristic summary", inc.Summary)
	assert.Equal(t, []string{"A", "B", "C"}, inc.Causes)
	assert.Equal(t, []string{"systemctl status oai-amf", "journalctl -u oai-amf -n 200"}, inc.DiagnosticsCmds)
	assert.Equal(t, []string{"systemctl restart oai-amf"}, inc.FixCmds)
	assert.Equal(t, types.RiskHigh, inc.RiskLevel)
	assert.True(t, inc.NeedHumanReview)
}

func TestReconcileFailureKeepsHeuristic(t *testing.T) {
	h := newHarness(t, nil)
	h.client.replies = []reply{{err: errors.New("connection refused")}, {err: errors.New("connection refused")}}

	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHeuristics: true, Mode: types.ModeVerify})
	require.NoError(t, err)
	assert.Equal(t, types.SourceHeuristic, res.Incident.Source)
	assert.Equal(t, "Requested DNN not configured in SMF", res.Incident.Summary)
}

func TestInferenceFailureYieldsSentinel(t *testing.T) {
	h := newHarness(t, nil)
	h.client.replies = []reply{{err: errors.New("timeout")}, {text: "I cannot help with that."}}

	res, err := h.orch.Triage(context.Background(), event("[AMF] ERROR something unknown"), Options{UseHeuristics: true})
	require.NoError(t, err)

	inc := res.Incident
	assert.Equal(t, types.SourceNone, inc.Source)
	assert.True(t, inc.NeedHumanReview)
	assert.Equal(t, types.RiskHigh, inc.RiskLevel)
	assert.Empty(t, inc.FixCmds)
	assert.Empty(t, inc.DiagnosticsCmds)
	assert.Equal(t, "I cannot help with that.", inc.RetryRaw)
	assert.NotEmpty(t, res.Path)
	assert.Equal(t, 0, h.cache.puts, "sentinel must not be cached")
}

func TestStrictRetryRecovers(t *testing.T) {
	h := newHarness(t, nil)
	h.client.replies = []reply{
		{text: "The problem is probably the AMF."},
		{text: `{"summary": "AMF overloaded", "causes": ["cpu"], "diagnostics_cmds": [], "fix_cmds": [], "risk_level": "medium", "need_human_review": true}`},
	}

	res, err := h.orch.Triage(context.Background(), event("[AMF] ERROR overload"), Options{UseHeuristics: true})
	require.NoError(t, err)

	inc := res.Incident
	assert.Equal(t, types.SourceLLM, inc.Source)
	assert.Equal(t, "AMF overloaded", inc.Summary)
	assert.Equal(t, "The problem is probably the AMF.", inc.ModelRaw)
	require.Len(t, h.client.prompts, 2)
	assert.True(t, strings.HasPrefix(h.client.prompts[1], "STRICT_JSON_ONLY"))
	assert.Equal(t, 1, h.cache.puts)
}

func TestSummarylessReplyGetsStrictRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.client.replies = []reply{
		{text: `{"causes": ["cpu"], "risk_level": "low", "need_human_review": false}`},
		{text: `{"summary": "AMF overloaded", "causes": ["cpu"], "diagnostics_cmds": [], "fix_cmds": [], "risk_level": "medium", "need_human_review": true}`},
	}

	res, err := h.orch.Triage(context.Background(), event("[AMF] ERROR overload"), Options{})
	require.NoError(t, err)
	require.Len(t, h.client.prompts, 2)
	assert.True(t, strings.HasPrefix(h.client.prompts[1], "STRICT_JSON_ONLY"))
	assert.Equal(t, types.SourceLLM, res.Incident.Source)
	assert.Equal(t, "AMF overloaded", res.Incident.Summary)
	assert.Equal(t, types.RiskMedium, res.Incident.RiskLevel)
}

func TestSummarylessRepliesYieldSentinel(t *testing.T) {
	h := newHarness(t, nil)
	h.client.replies = []reply{
		{text: `{"risk_level": "low", "need_human_review": false}`},
		{text: `{"fix_cmds": ["systemctl restart oai-amf"]}`},
	}

	res, err := h.orch.Triage(context.Background(), event("[AMF] ERROR overload"), Options{Auto: true})
	require.NoError(t, err)
	assert.Equal(t, types.SourceNone, res.Incident.Source)
	assert.Empty(t, h.fixes.cmds)
	assert.Equal(t, 0, h.cache.puts)
}

// breakerClient reports a fixed circuit state.
type breakerClient struct {
	*scriptedClient
	state ai.CircuitState
}

func (b *breakerClient) CircuitState() ai.CircuitState { return b.state }

func TestCircuitStateExported(t *testing.T) {
	m := metrics.New()
	bc := &breakerClient{scriptedClient: &scriptedClient{}, state: ai.CircuitOpen}
	bc.replies = []reply{{err: ai.ErrCircuitOpen}}
	h := newHarness(t, func(d *Deps) {
		d.Client = bc
		d.Metrics = m
	})

	res, err := h.orch.Triage(context.Background(), event("[AMF] ERROR overload"), Options{})
	require.NoError(t, err)
	assert.Equal(t, types.SourceNone, res.Incident.Source)
	assert.Len(t, bc.prompts, 1, "an open circuit skips the strict retry")
	assert.Equal(t, float64(ai.CircuitOpen), testutil.ToFloat64(m.CircuitState))
}

func TestHistoryHitSkipsOtherSources(t *testing.T) {
	h := newHarness(t, nil)
	cached := types.Diagnosis{
		Summary:         "cached answer",
		Causes:          []string{"seen before"},
		DiagnosticsCmds: []string{"systemctl status oai-smf"},
		FixCmds:         []string{"systemctl restart oai-smf"},
		RiskLevel:       types.RiskMedium,
		NeedHumanReview: true,
	}
	// a different DNN name normalizes to the same signature
	h.cache.data[signature.Compute("2025-08-09 10:00:00.000 [SMF] ERROR DNN 'ims' not configured")] = cached

	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHistory: true, UseHeuristics: true, Mode: types.ModeVerify})
	require.NoError(t, err)
	assert.Equal(t, types.SourceHistory, res.Incident.Source)
	assert.Equal(t, "cached answer", res.Incident.Summary)
	assert.Empty(t, h.client.prompts)
	assert.Equal(t, 0, h.cache.puts)
}

func TestHistoryFailureDegradesToMiss(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.getErr = errors.New("database is locked")
	h.cache.putErr = errors.New("database is locked")

	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHistory: true, UseHeuristics: true})
	require.NoError(t, err)
	assert.Equal(t, types.SourceHeuristic, res.Incident.Source)
	assert.Equal(t, 1, h.cache.puts)
}

func TestIncompleteHistoryEntryIsMiss(t *testing.T) {
	tests := []struct {
		name   string
		cached types.Diagnosis
	}{
		{"missing lists", types.Diagnosis{Summary: "half written", RiskLevel: types.RiskLow}},
		{"unknown risk", types.Diagnosis{
			Summary:         "odd risk",
			Causes:          []string{},
			DiagnosticsCmds: []string{},
			FixCmds:         []string{},
			RiskLevel:       "severe",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.cache.data[signature.Compute(smfLine)] = tt.cached

			res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHistory: true, UseHeuristics: true, FastOnly: true})
			require.NoError(t, err)
			assert.Equal(t, types.SourceHeuristic, res.Incident.Source)
			assert.Equal(t, "Requested DNN not configured in SMF", h.cache.data[signature.Compute(smfLine)].Summary)
		})
	}
}

func TestHistoryWrittenBackWithoutReads(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHeuristics: true, FastOnly: true})
	require.NoError(t, err)
	assert.Equal(t, types.SourceHeuristic, res.Incident.Source)
	assert.Equal(t, 1, h.cache.puts)
}

func TestHeuristicResultIsCached(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHistory: true, UseHeuristics: true})
	require.NoError(t, err)

	got, ok := h.cache.data[signature.Compute(smfLine)]
	require.True(t, ok)
	assert.Equal(t, "Requested DNN not configured in SMF", got.Summary)
}

func TestAllowlistFiltersIncidentCopy(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Allowlist = []string{"systemctl status"} })
	h.client.replies = []reply{{text: `{"summary": "s", "causes": [],
		"diagnostics_cmds": ["systemctl status oai-amf", "rm -rf /tmp/x", "systemctl status oai-amf; reboot"],
		"fix_cmds": ["systemctl restart oai-amf"], "risk_level": "low", "need_human_review": false}`}}

	res, err := h.orch.Triage(context.Background(), event("[AMF] ERROR odd"), Options{UseHistory: true, Auto: true})
	require.NoError(t, err)

	inc := res.Incident
	assert.Equal(t, []string{"systemctl status oai-amf"}, inc.DiagnosticsCmds)
	assert.Empty(t, inc.FixCmds)
	assert.Equal(t, []string{"systemctl status oai-amf"}, h.runner.cmds)
	assert.Empty(t, h.fixes.cmds)

	// the cached diagnosis keeps the unfiltered lists
	cached := h.cache.data[signature.Compute("[AMF] ERROR odd")]
	assert.Len(t, cached.DiagnosticsCmds, 3)
	assert.Equal(t, []string{"systemctl restart oai-amf"}, cached.FixCmds)
}

func TestDiagnosticsFailuresDoNotStopRun(t *testing.T) {
	h := newHarness(t, nil)
	h.runner.rc = -1

	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHeuristics: true, FastOnly: true})
	require.NoError(t, err)
	require.Len(t, res.Incident.Results, 2)
	assert.Equal(t, -1, res.Incident.Results[1].RC)
}

func TestSkipDiagnostics(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHeuristics: true, FastOnly: true, SkipDiagnostics: true})
	require.NoError(t, err)
	assert.Empty(t, h.runner.cmds)
	assert.Empty(t, res.Incident.Results)
}

func TestMediumRiskNeverAutoRuns(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.orch.Triage(context.Background(), event(smfLine), Options{UseHeuristics: true, FastOnly: true, Auto: true})
	require.NoError(t, err)
	assert.Equal(t, types.RiskMedium, res.Incident.RiskLevel)
	assert.Empty(t, h.fixes.cmds)
	assert.False(t, res.Incident.AutoRan)
}

func TestLowRiskReviewedNeverAutoRuns(t *testing.T) {
	h := newHarness(t, nil)
	// T3560 is low risk but still asks for review
	_, err := h.orch.Triage(context.Background(), event("[AMF] ERROR T3560 expired for UE 12"), Options{UseHeuristics: true, FastOnly: true, Auto: true})
	require.NoError(t, err)
	assert.Empty(t, h.fixes.cmds)
}

func TestAutoRunsLowRiskFix(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.orch.Triage(context.Background(), event("[DEMO] ERROR service oai-amf down"), Options{UseHeuristics: true, FastOnly: true, Auto: true})
	require.NoError(t, err)

	inc := res.Incident
	assert.True(t, inc.AutoRan)
	assert.Equal(t, []string{"systemctl restart oai-amf"}, h.fixes.cmds)
	last := inc.Results[len(inc.Results)-1]
	assert.Equal(t, "active", last.VerifyState)
}

// fakeExec backs a real Runner; every unit reports active.
type fakeExec struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeExec) Execute(ctx context.Context, name string, args []string) (string, string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, line)
	if strings.HasPrefix(line, "systemctl is-active") {
		return "active\n", "", 0, nil
	}
	return "", "", 0, nil
}

func TestAutoPolicyRejectsNonVendorUnit(t *testing.T) {
	fe := &fakeExec{}
	runner := &remediation.Runner{Exec: fe, Timeout: time.Second}
	rem := &remediation.Remediator{
		Runner:         runner,
		Authorizer:     remediation.NewAuthorizer(types.PolicyOAIOnly, ""),
		VerifyTimeout:  time.Second,
		VerifyInterval: 10 * time.Millisecond,
	}
	h := newHarness(t, func(d *Deps) {
		d.Diagnostics = runner
		d.Fixes = rem
	})

	res, err := h.orch.Triage(context.Background(), event("[DEMO] ERROR service random-svc down"), Options{UseHeuristics: true, FastOnly: true, Auto: true, SkipDiagnostics: true})
	require.NoError(t, err)
	inc := res.Incident
	require.Len(t, inc.Results, 1)
	assert.True(t, inc.Results[0].Skipped)
	assert.Equal(t, remediation.RejectedRC, inc.Results[0].RC)
	assert.False(t, inc.AutoRan)
	assert.Empty(t, fe.calls)

	res, err = h.orch.Triage(context.Background(), event("[DEMO] ERROR service oai-upf down"), Options{UseHeuristics: true, FastOnly: true, Auto: true, SkipDiagnostics: true})
	require.NoError(t, err)
	inc = res.Incident
	require.Len(t, inc.Results, 1)
	assert.False(t, inc.Results[0].Skipped)
	assert.Equal(t, "active", inc.Results[0].VerifyState)
	assert.True(t, inc.AutoRan)
	assert.Equal(t, []string{"systemctl restart oai-upf", "systemctl is-active oai-upf"}, fe.calls)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mode = types.ModeAugment
	cfg.Auto = true
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, Options{UseHistory: true, UseHeuristics: true, Mode: types.ModeAugment, Auto: true}, opts)
}
