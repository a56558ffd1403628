// Package ai talks to the inference backends and turns their free-form
// replies into diagnoses.
package ai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Pre-compiled patterns for the cleanup strategies.
var (
	// Matches ```json\n{...}\n```, ```{...}```, ``` json{...}``` and friends
	codeFenceWholeRegex = regexp.MustCompile(`(?s)^` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}\s*$`)
	codeFenceAnyRegex   = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)
)

// maxParseInput bounds how much model output we try to parse.
const maxParseInput = 1 << 20

// ParseResult is the outcome of Parse. Strategy names the step that succeeded.
type ParseResult[T any] struct {
	Success  bool
	Data     T
	Strategy string
	Error    string
}

type parseStrategy struct {
	name    string
	rewrite func(string) string
}

// Strategies in the order they are tried. Each one rewrites the text; when
// the rewrite is a no-op the step is skipped.
var parseStrategies = []parseStrategy{
	{"direct", func(s string) string { return s }},
	{"code_fence", removeCodeFences},
	{"cleanup", func(s string) string { return cleanupJSON(removeCodeFences(s)) }},
	{"outer_object", func(s string) string { return outermostObject(cleanupJSON(removeCodeFences(s))) }},
	{"outer_object_raw", outermostObject},
}

// Parse decodes model output into T, tolerating code fences, trailing commas,
// comments and prose around a JSON object.
func Parse[T any](text string) ParseResult[T] {
	if len(text) > maxParseInput {
		return ParseResult[T]{Error: fmt.Sprintf("input exceeds size limit (%d > %d bytes)", len(text), maxParseInput)}
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ParseResult[T]{Error: "empty input"}
	}

	var lastErr error
	tried := make(map[string]bool, len(parseStrategies))
	for _, st := range parseStrategies {
		candidate := st.rewrite(trimmed)
		if candidate == "" || tried[candidate] {
			continue
		}
		tried[candidate] = true

		var out T
		if err := json.Unmarshal([]byte(candidate), &out); err != nil {
			lastErr = err
			continue
		}
		if st.name != "direct" {
			slog.Debug("model output parsed after cleanup", "strategy", st.name)
		}
		return ParseResult[T]{Success: true, Data: out, Strategy: st.name}
	}

	msg := "all JSON parsing strategies failed"
	if lastErr != nil {
		msg += ": " + lastErr.Error()
	}
	slog.Debug("model output is not JSON", "error", msg, "preview", truncate(text, 100))
	return ParseResult[T]{Error: msg}
}

// removeCodeFences strips markdown code fences and wrapping backticks.
func removeCodeFences(text string) string {
	cleaned := codeFenceWholeRegex.ReplaceAllString(text, "$1")
	if cleaned == text {
		cleaned = codeFenceAnyRegex.ReplaceAllString(text, "$1")
	}
	if len(cleaned) > 1 && strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}

// cleanupJSON removes comments and trailing commas outside string
// literals. Single quotes are left alone; shell commands in fix lists use them.
func cleanupJSON(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))

	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(text) && text[i+1] == '/':
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end == -1 {
				i = len(text)
			} else {
				i += 2 + end + 1
			}
		case c == ',' && closesNext(text[i+1:]):
			// trailing comma
		default:
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}

// closesNext reports whether the next significant byte closes an object or array.
func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == '}' || rest[0] == ']')
}

// outermostObject returns the span from the first '{' to the last '}'.
func outermostObject(text string) string {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last <= first {
		return ""
	}
	return text[first : last+1]
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
