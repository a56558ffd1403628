// Package logsource reads OAI core logs and yields error events.
package logsource

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/steveyegge/oaiguard/internal/types"
)

var (
	// ErrNoErrorFound means the inspected window held no error-bearing line.
	ErrNoErrorFound = errors.New("no error line found")

	// ErrMalformedInput means a structured input file could not be decoded.
	ErrMalformedInput = errors.New("malformed input")
)

// levelTrigger is the coarse severity check applied to raw lines.
var levelTrigger = regexp.MustCompile(`(?i)\b(error|fatal|critical|panic|segfault)\b`)

// 2025-08-08 09:12:25.109 [SMF] ERROR    Message...
var oaiLine = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}\.\d{3})\s+\[([A-Za-z0-9_-]+)\]\s+(INFO|WARN|WARNING|ERROR|CRITICAL|FATAL)\s+(.*)$`)

// TimestampLayout is the timestamp format of OAI log lines.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Fields are the parts of a structured OAI log line.
type Fields struct {
	Timestamp string
	Component string
	Level     string
	Message   string
	Raw       string
	Parsed    bool
}

// ParseLine splits an OAI log line. Lines in other formats come back with
// only Raw set.
func ParseLine(line string) Fields {
	m := oaiLine.FindStringSubmatch(line)
	if m == nil {
		return Fields{Raw: line}
	}
	level := m[3]
	if level == "WARNING" {
		level = "WARN"
	}
	return Fields{Timestamp: m[1], Component: m[2], Level: level, Message: m[4], Raw: line, Parsed: true}
}

// IsErrorLine reports whether line mentions an error-class keyword.
func IsErrorLine(line string) bool {
	return levelTrigger.MatchString(line)
}

// IsErrorLevel reports whether a structured level is error severity.
func IsErrorLevel(level string) bool {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "ERROR", "CRITICAL", "FATAL":
		return true
	}
	return false
}

// NewEvent builds an ErrorEvent, taking the timestamp from the line when it has one.
func NewEvent(line string, context []string) types.ErrorEvent {
	ts := time.Now()
	if f := ParseLine(line); f.Parsed {
		if parsed, err := time.ParseInLocation(TimestampLayout, strings.Join(strings.Fields(f.Timestamp), " "), time.Local); err == nil {
			ts = parsed
		}
	}
	return types.ErrorEvent{Line: line, Context: context, Timestamp: ts}
}

// ring keeps the last n lines.
type ring struct {
	buf  []string
	next int
	full bool
}

func newRing(n int) *ring {
	if n < 1 {
		n = 1
	}
	return &ring{buf: make([]string, n)}
}

func (r *ring) push(s string) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// snapshot returns the buffered lines oldest first.
func (r *ring) snapshot() []string {
	if !r.full {
		return append([]string(nil), r.buf[:r.next]...)
	}
	out := make([]string, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
