package remediation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/steveyegge/oaiguard/internal/logging"
	"github.com/steveyegge/oaiguard/internal/poll"
	"github.com/steveyegge/oaiguard/internal/types"
)

// RejectedRC is the rc recorded for a command refused by policy.
const RejectedRC = -2

// VerifyUnknown is reported when no status poll completed.
const VerifyUnknown = "unknown"

// Remediator authorizes fix commands, restarts units and waits for them to
// come back.
type Remediator struct {
	Runner         *Runner
	Authorizer     *Authorizer
	VerifyTimeout  time.Duration
	VerifyInterval time.Duration
	Poller         poll.Poller
	Logger         *slog.Logger
}

// AutoExecute authorizes cmd for unattended execution and, when allowed,
// restarts and verifies its unit. Refusals come back as skipped results.
func (m *Remediator) AutoExecute(ctx context.Context, cmd string) types.CommandResult {
	d := m.Authorizer.AuthorizeAuto(cmd)
	if !d.Allowed {
		logging.OrDefault(m.Logger).Info("fix command rejected", "cmd", cmd, "reason", d.Reason)
		return types.SkippedResult(strings.TrimSpace(cmd), RejectedRC, d.Reason)
	}
	return m.RestartAndVerify(ctx, d.Unit)
}

// RestartAndVerify restarts unit and polls `systemctl is-active` until it
// reports active or VerifyTimeout has passed since the restart returned.
// Polling happens even when the restart itself failed so partial recoveries
// are visible.
func (m *Remediator) RestartAndVerify(ctx context.Context, unit string) types.CommandResult {
	res := m.Runner.Run(ctx, "systemctl restart "+unit)

	state := VerifyUnknown
	var stateRC *int
	outcome := m.Poller.Until(ctx, m.VerifyTimeout, m.VerifyInterval, func(ctx context.Context) bool {
		st := m.Runner.Run(ctx, "systemctl is-active "+unit)
		state = strings.TrimSpace(st.Stdout)
		if state == "" {
			state = VerifyUnknown
		}
		rc := st.RC
		stateRC = &rc
		return rc == 0 && state == "active"
	})

	res.VerifyState = state
	res.VerifyRC = stateRC
	logging.OrDefault(m.Logger).Info("restart verification finished",
		"unit", unit, "restart_rc", res.RC, "state", state,
		"attempts", outcome.Attempts, "active", outcome.Satisfied, "elapsed", outcome.Elapsed)
	return res
}
