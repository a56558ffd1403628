package logsource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/steveyegge/oaiguard/internal/types"
)

// Event is one structured log record from a JSON events file.
type Event struct {
	TS        string `json:"ts"`
	Component string `json:"component"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Msg       string `json:"msg"`
	Text      string `json:"text"`
}

// Line renders the event in the OAI line format.
func (e Event) Line() string {
	component := e.Component
	if component == "" {
		component = "UNK"
	}
	level := e.Level
	if level == "" {
		level = "INFO"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Msg
	}
	if msg == "" {
		msg = e.Text
	}
	return strings.TrimSpace(fmt.Sprintf("%s [%s] %s %s", e.TS, component, level, msg))
}

// LoadJSONEvents reads a file holding one event object or an array of them.
func LoadJSONEvents(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return DecodeJSONEvents(data)
}

// DecodeJSONEvents decodes an event object or array.
func DecodeJSONEvents(data []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedInput)
	}
	if trimmed[0] == '[' {
		var events []Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		return events, nil
	}
	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return []Event{ev}, nil
}

// LastErrorFromJSON picks the last error-level event; context is the
// rendered lines of the events leading up to it.
func LastErrorFromJSON(events []Event, maxContext int) (types.ErrorEvent, error) {
	last := -1
	for i, ev := range events {
		if IsErrorLevel(ev.Level) {
			last = i
		}
	}
	if last == -1 {
		return types.ErrorEvent{}, ErrNoErrorFound
	}
	lines := make([]string, last+1)
	for i := 0; i <= last; i++ {
		lines[i] = events[i].Line()
	}
	return NewEvent(lines[last], contextEnding(lines, last, maxContext)), nil
}
