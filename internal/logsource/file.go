package logsource

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/steveyegge/oaiguard/internal/types"
)

const maxLineBytes = 1024 * 1024

// ScanFile returns every error event in the file, each with up to
// maxContext lines of context ending at the error line.
func ScanFile(path string, maxContext int) ([]types.ErrorEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	buf := newRing(maxContext)
	var events []types.ErrorEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		buf.push(line)
		if IsErrorLine(line) {
			events = append(events, NewEvent(line, buf.snapshot()))
		}
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("failed to read log: %w", err)
	}
	return events, nil
}

// TailLines returns the last n lines of the file.
func TailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()
	return tailLines(f, n)
}

func tailLines(r io.Reader, n int) ([]string, error) {
	buf := newRing(n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		buf.push(strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	return buf.snapshot(), nil
}

// replayWindow returns the last n complete lines in the first end bytes of
// file, plus an unterminated final line if there is one.
func replayWindow(file io.ReaderAt, end int64, n int) ([]string, string, error) {
	if end <= 0 {
		return nil, "", nil
	}
	lines, err := tailLines(io.NewSectionReader(file, 0, end), n+1)
	if err != nil {
		return nil, "", err
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, end-1); err != nil {
		return nil, "", fmt.Errorf("failed to read log: %w", err)
	}
	var partial string
	if last[0] != '\n' && len(lines) > 0 {
		partial = lines[len(lines)-1]
		lines = lines[:len(lines)-1]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, partial, nil
}

// LastError finds the most recent error line among the last window lines.
// It returns ErrNoErrorFound for empty files and error-free windows.
func LastError(path string, window, maxContext int) (types.ErrorEvent, error) {
	lines, err := TailLines(path, window)
	if err != nil {
		return types.ErrorEvent{}, err
	}
	return LastErrorInLines(lines, maxContext)
}

// LastErrorInLines is LastError over lines already in memory.
func LastErrorInLines(lines []string, maxContext int) (types.ErrorEvent, error) {
	for i := len(lines) - 1; i >= 0; i-- {
		if IsErrorLine(lines[i]) {
			return NewEvent(lines[i], contextEnding(lines, i, maxContext)), nil
		}
	}
	return types.ErrorEvent{}, ErrNoErrorFound
}

// contextEnding returns up to n lines ending at (and including) index i.
func contextEnding(lines []string, i, n int) []string {
	if n < 1 {
		n = 1
	}
	start := i - n + 1
	if start < 0 {
		start = 0
	}
	return append([]string(nil), lines[start:i+1]...)
}
