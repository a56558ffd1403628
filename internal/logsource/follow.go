package logsource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/steveyegge/oaiguard/internal/logging"
	"github.com/steveyegge/oaiguard/internal/types"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// FollowerConfig configures a Follower.
type FollowerConfig struct {
	Path       string
	TailN      int           // lines of existing content to replay; 0 = only new lines
	MaxContext int           // rolling context kept per event
	Poll       time.Duration // fallback size check for filesystems without events (default 1s)
	Logger     *slog.Logger
}

// Follower tails a log file like `tail -F` and emits an ErrorEvent for each
// error line. It survives truncation and rotation by watching the directory.
type Follower struct {
	cfg     FollowerConfig
	watcher *fsnotify.Watcher
	events  chan types.ErrorEvent
	logger  *slog.Logger

	file    *os.File
	reader  *bufio.Reader
	offset  int64
	partial string
	context *ring
}

// NewFollower creates a follower. Call Run to start it.
func NewFollower(cfg FollowerConfig) (*Follower, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Poll <= 0 {
		cfg.Poll = time.Second
	}
	logger := logging.OrDefault(cfg.Logger)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	return &Follower{
		cfg:     cfg,
		watcher: watcher,
		events:  make(chan types.ErrorEvent, 16),
		logger:  logger,
		context: newRing(cfg.MaxContext),
	}, nil
}

// Events returns the channel of detected error events. It is closed when Run returns.
func (f *Follower) Events() <-chan types.ErrorEvent {
	return f.events
}

// Run follows the file until ctx is cancelled.
func (f *Follower) Run(ctx context.Context) error {
	defer close(f.events)
	defer f.watcher.Close()
	defer f.closeFile()

	// The directory, not the file, so renames and re-creation are seen.
	if err := f.watcher.Add(filepath.Dir(f.cfg.Path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(f.cfg.Path), err)
	}
	if err := f.open(ctx, true); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	ticker := time.NewTicker(f.cfg.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(f.cfg.Path) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				f.logger.Info("log file re-created, reopening", "path", f.cfg.Path)
				f.closeFile()
				if err := f.open(ctx, false); err != nil {
					f.logger.Warn("reopen failed", "error", err)
				}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				// Drain what was written before the rotation.
				f.drain(ctx)
				f.closeFile()
			}
			if ev.Has(fsnotify.Write) {
				f.drain(ctx)
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("file watcher error", "error", err)

		case <-ticker.C:
			if f.file == nil {
				if err := f.open(ctx, false); err == nil {
					f.logger.Info("log file appeared", "path", f.cfg.Path)
				}
			}
			f.drain(ctx)
		}
	}
}

// open opens the file. The initial open starts at the current end and
// replays the last TailN lines before it; later opens read from the start.
func (f *Follower) open(ctx context.Context, initial bool) error {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		return err
	}
	f.file = file
	f.reader = bufio.NewReader(file)
	f.offset = 0
	f.partial = ""

	if !initial {
		return nil
	}
	// Fix the offset first; lines written after it are left for drain.
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	f.offset = end
	f.reader.Reset(file)
	if f.cfg.TailN <= 0 {
		return nil
	}

	lines, partial, err := replayWindow(file, end, f.cfg.TailN)
	if err != nil {
		return err
	}
	f.partial = partial
	for _, l := range lines {
		f.handleLine(ctx, l)
	}
	return nil
}

func (f *Follower) closeFile() {
	if f.file != nil {
		f.file.Close()
		f.file = nil
		f.reader = nil
	}
}

// drain reads all complete lines appended since the last read.
func (f *Follower) drain(ctx context.Context) {
	if f.file == nil {
		return
	}
	if info, err := f.file.Stat(); err == nil && info.Size() < f.offset {
		f.logger.Info("log file truncated, rewinding", "path", f.cfg.Path)
		if _, err := f.file.Seek(0, io.SeekStart); err != nil {
			f.logger.Warn("rewind failed", "error", err)
			return
		}
		f.offset = 0
		f.partial = ""
		f.reader.Reset(f.file)
	}

	for {
		chunk, err := f.reader.ReadString('\n')
		f.offset += int64(len(chunk))
		if err != nil {
			// Keep an unterminated tail for the next write.
			f.partial += chunk
			return
		}
		line := strings.TrimRight(f.partial+chunk, "\r\n")
		f.partial = ""
		f.handleLine(ctx, line)
	}
}

func (f *Follower) handleLine(ctx context.Context, line string) {
	f.context.push(line)
	if !IsErrorLine(line) {
		return
	}
	select {
	case f.events <- NewEvent(line, f.context.snapshot()):
	case <-ctx.Done():
	}
}
