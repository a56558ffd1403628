package types

import (
	"time"
	"unicode/utf8"
)

// OutputLimit bounds the stdout/stderr captured per command.
const OutputLimit = 4000

// TimestampLayout is the second-resolution stamp used in incident file names.
const TimestampLayout = "20060102-150405"

// CommandResult is the uniform outcome of running (or refusing to run) one command.
type CommandResult struct {
	Cmd     string `json:"cmd"`
	RC      int    `json:"rc"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`

	// Set only by service restart verification.
	VerifyState string `json:"verify_state,omitempty"`
	VerifyRC    *int   `json:"verify_rc,omitempty"`
}

// SkippedResult builds a CommandResult for a command that was refused.
func SkippedResult(cmd string, rc int, reason string) CommandResult {
	return CommandResult{Cmd: cmd, RC: rc, Skipped: true, Reason: reason, Stderr: reason}
}

// Incident is the finalized record of one triage run.
type Incident struct {
	ID          string    `json:"id"`
	Timestamp   string    `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
	Source      Source    `json:"source"`
	ErrorLine   string    `json:"error_line"`
	Signature   Signature `json:"signature"`
	ContextTail []string  `json:"context_tail"`
	Engine      string    `json:"engine,omitempty"`
	Model       string    `json:"model,omitempty"`

	Diagnosis

	AutoRan  bool            `json:"auto_ran"`
	Results  []CommandResult `json:"results"`
	ModelRaw string          `json:"model_raw,omitempty"`
	RetryRaw string          `json:"retry_raw,omitempty"`
}

// TruncateTail keeps at most the last n bytes of s, which is where command
// failures usually report. The cut moves forward to a rune boundary.
func TruncateTail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}
