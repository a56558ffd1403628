package remediation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/oaiguard/internal/poll"
	"github.com/steveyegge/oaiguard/internal/types"
)

func TestParseSystemctl(t *testing.T) {
	tests := []struct {
		cmd    string
		ok     bool
		action Action
		unit   string
	}{
		{"systemctl restart oai-smf", true, ActionRestart, "oai-smf"},
		{"  systemctl --now restart oai-amf.service  ", true, ActionRestart, "oai-amf"},
		{"systemctl start demo@1", true, ActionStart, "demo@1"},
		{"systemctl stop oai-smf", true, ActionStop, "oai-smf"},
		{"systemctl restart oai-smf; rm -rf /", false, "", ""},
		{"systemctl restart oai-smf && reboot", false, "", ""},
		{"systemctl restart oai-smf | tee x", false, "", ""},
		{"systemctl restart", false, "", ""},
		{"systemctl status oai-smf", false, "", ""},
		{"sudo systemctl restart oai-smf", false, "", ""},
		{"systemctl restart oai smf", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			action, unit, ok := ParseSystemctl(tt.cmd)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.unit, unit)
		})
	}
}

func TestAllowed(t *testing.T) {
	prefixes := []string{"systemctl status", "systemctl restart", "journalctl -u", "grep", "tail"}
	assert.True(t, Allowed("systemctl status oai-smf", prefixes))
	assert.True(t, Allowed("  journalctl -u oai-amf -n 200", prefixes))
	assert.False(t, Allowed("rm -rf /", prefixes))
	assert.False(t, Allowed("systemctl restart oai-smf; rm -rf /", prefixes))
	assert.False(t, Allowed("grep x $(cat /etc/shadow)", prefixes))
	assert.False(t, Allowed("ss -lntup | grep 8805", prefixes))
	assert.False(t, Allowed("", prefixes))
	assert.False(t, Allowed("tail x", nil))

	got := FilterAllowed([]string{"grep -n DNN /etc/oai/smf.conf", "ss -lntup", "tail -n 5 /var/log/syslog"}, prefixes)
	assert.Equal(t, []string{"grep -n DNN /etc/oai/smf.conf", "tail -n 5 /var/log/syslog"}, got)
}

func TestAuthorizeAutoOAIOnly(t *testing.T) {
	a := NewAuthorizer(types.PolicyOAIOnly, "")

	d := a.AuthorizeAuto("systemctl restart oai-amf")
	assert.True(t, d.Allowed)
	assert.Equal(t, "oai-amf", d.Unit)

	d = a.AuthorizeAuto("systemctl restart random-svc")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "prefix")

	d = a.AuthorizeAuto("systemctl restart oai-smf; rm -rf /")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "grammar")
}

func TestStopNeverAutoExecuted(t *testing.T) {
	for _, p := range []types.AutoPolicy{types.PolicyOAIOnly, types.PolicyWhitelist, types.PolicyAny} {
		a := NewAuthorizer(p, "")
		for _, cmd := range []string{"systemctl stop oai-smf", "systemctl start oai-smf"} {
			d := a.AuthorizeAuto(cmd)
			assert.False(t, d.Allowed, "%s under %s", cmd, p)
			assert.Contains(t, d.Reason, "never auto-executed")
		}
	}
	// operator-initiated start/stop is allowed by policy
	assert.True(t, NewAuthorizer(types.PolicyAny, "").Authorize("systemctl stop oai-smf").Allowed)
}

func TestAuthorizeWhitelist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	content := "# managed units\n\noai-amf\n  demo-svc.service  \n#oai-smf\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	a := NewAuthorizer(types.PolicyWhitelist, path)
	assert.True(t, a.AuthorizeAuto("systemctl restart oai-amf").Allowed)
	assert.True(t, a.AuthorizeAuto("systemctl restart demo-svc").Allowed)

	d := a.AuthorizeAuto("systemctl restart oai-smf")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "not in whitelist")

	missing := NewAuthorizer(types.PolicyWhitelist, filepath.Join(t.TempDir(), "absent.txt"))
	assert.False(t, missing.AuthorizeAuto("systemctl restart oai-amf").Allowed)
}

func TestWhitelistReadPerDecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	a := NewAuthorizer(types.PolicyWhitelist, path)
	assert.False(t, a.AuthorizeAuto("systemctl restart demo-svc").Allowed)

	require.NoError(t, os.WriteFile(path, []byte("demo-svc\n"), 0o600))
	assert.True(t, a.AuthorizeAuto("systemctl restart demo-svc").Allowed)
}

func TestAuthorizeAnyAndUnknown(t *testing.T) {
	assert.True(t, NewAuthorizer(types.PolicyAny, "").AuthorizeAuto("systemctl restart whatever").Allowed)

	d := NewAuthorizer("yolo", "").AuthorizeAuto("systemctl restart oai-amf")
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "unknown auto policy")
}

// fakeExecutor replays scripted results keyed by command line.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]fakeResult
	onCall  func(line string)
}

type fakeResult struct {
	stdout, stderr string
	rc             int
	err            error
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args []string) (string, string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, line)
	if f.onCall != nil {
		f.onCall(line)
	}
	queue := f.results[line]
	if len(queue) == 0 {
		return "", "", 0, nil
	}
	r := queue[0]
	if len(queue) > 1 {
		f.results[line] = queue[1:]
	}
	return r.stdout, r.stderr, r.rc, r.err
}

func TestRunnerRun(t *testing.T) {
	fe := &fakeExecutor{results: map[string][]fakeResult{
		"journalctl -u oai-smf -n 200": {{stdout: strings.Repeat("a", 5000) + "END", rc: 0}},
		"grep -n DNN /etc/oai/smf.conf": {{stderr: "no such file", rc: 2}},
		"missing-binary":                {{rc: -1, err: errors.New("executable file not found")}},
	}}
	r := &Runner{Exec: fe, Timeout: time.Second}

	res := r.Run(context.Background(), "journalctl -u oai-smf -n 200")
	assert.Equal(t, 0, res.RC)
	assert.Len(t, res.Stdout, types.OutputLimit)
	assert.True(t, strings.HasSuffix(res.Stdout, "END"))

	results := r.RunAll(context.Background(), []string{"grep -n DNN /etc/oai/smf.conf", "missing-binary", `grep "two words" f`})
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].RC)
	assert.Equal(t, -1, results[1].RC)
	assert.Contains(t, results[1].Stderr, "not found")
	assert.Equal(t, 0, results[2].RC)
	assert.Equal(t, "grep two words f", fe.calls[len(fe.calls)-1])
}

func TestRunnerParseFailure(t *testing.T) {
	r := &Runner{Exec: &fakeExecutor{}}
	res := r.Run(context.Background(), `grep "unterminated`)
	assert.Equal(t, -1, res.RC)
	assert.Contains(t, res.Stderr, "cannot parse command")

	res = r.Run(context.Background(), "   ")
	assert.Equal(t, -1, res.RC)
}

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }
func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newTestRemediator(fe *fakeExecutor, policy types.AutoPolicy) *Remediator {
	return &Remediator{
		Runner:         &Runner{Exec: fe, Timeout: time.Second},
		Authorizer:     NewAuthorizer(policy, ""),
		VerifyTimeout:  20 * time.Second,
		VerifyInterval: 2 * time.Second,
		Poller:         poll.Poller{Clock: &stepClock{now: time.Unix(0, 0)}},
	}
}

func TestRestartAndVerifyBecomesActive(t *testing.T) {
	fe := &fakeExecutor{results: map[string][]fakeResult{
		"systemctl is-active oai-amf": {
			{stdout: "activating\n", rc: 3},
			{stdout: "active\n", rc: 0},
		},
	}}
	m := newTestRemediator(fe, types.PolicyOAIOnly)

	res := m.AutoExecute(context.Background(), "systemctl restart oai-amf")
	assert.False(t, res.Skipped)
	assert.Equal(t, "systemctl restart oai-amf", res.Cmd)
	assert.Equal(t, 0, res.RC)
	assert.Equal(t, "active", res.VerifyState)
	require.NotNil(t, res.VerifyRC)
	assert.Equal(t, 0, *res.VerifyRC)
	assert.Equal(t, []string{
		"systemctl restart oai-amf",
		"systemctl is-active oai-amf",
		"systemctl is-active oai-amf",
	}, fe.calls)
}

func TestRestartAndVerifyPollsAfterFailedRestart(t *testing.T) {
	fe := &fakeExecutor{results: map[string][]fakeResult{
		"systemctl restart oai-smf":   {{stderr: "Job failed", rc: 1}},
		"systemctl is-active oai-smf": {{stdout: "failed\n", rc: 3}},
	}}
	m := newTestRemediator(fe, types.PolicyOAIOnly)

	res := m.RestartAndVerify(context.Background(), "oai-smf")
	assert.Equal(t, 1, res.RC)
	assert.Equal(t, "Job failed", res.Stderr)
	assert.Equal(t, "failed", res.VerifyState)
	require.NotNil(t, res.VerifyRC)
	assert.Equal(t, 3, *res.VerifyRC)
	// 20s budget at 2s interval
	assert.Len(t, fe.calls, 1+10)
}

func TestAutoExecuteRejected(t *testing.T) {
	fe := &fakeExecutor{}
	m := newTestRemediator(fe, types.PolicyOAIOnly)

	res := m.AutoExecute(context.Background(), "systemctl restart random-svc")
	assert.True(t, res.Skipped)
	assert.Equal(t, RejectedRC, res.RC)
	assert.NotEmpty(t, res.Reason)
	assert.Empty(t, fe.calls)
}

func TestRestartSlowerThanVerifyTimeoutStillPolls(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	fe := &fakeExecutor{results: map[string][]fakeResult{
		"systemctl is-active oai-upf": {{stdout: "active\n", rc: 0}},
	}}
	// a notify-type unit blocks the restart well past the verify budget
	fe.onCall = func(line string) {
		if line == "systemctl restart oai-upf" {
			clock.now = clock.now.Add(30 * time.Second)
		}
	}
	m := newTestRemediator(fe, types.PolicyOAIOnly)
	m.Poller = poll.Poller{Clock: clock}

	res := m.RestartAndVerify(context.Background(), "oai-upf")
	assert.Equal(t, 0, res.RC)
	assert.Equal(t, "active", res.VerifyState)
	require.NotNil(t, res.VerifyRC)
	assert.Equal(t, 0, *res.VerifyRC)
	assert.Equal(t, []string{"systemctl restart oai-upf", "systemctl is-active oai-upf"}, fe.calls)
}
