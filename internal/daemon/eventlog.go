package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mcp-gateway/toolkit/internal/redact"
)

// eventRecord is one line of events.log (spec §6: "{at, type, data}").
type eventRecord struct {
	At   string         `json:"at"`
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// EventLog is the daemon's append-only lifecycle log, rotating at
// maxBytes and retaining at most maxFiles rotated generations (spec §4.8).
type EventLog struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	maxFiles int
	size     int64
}

// OpenEventLog opens (creating if absent) the event log at path, adapted
// from the teacher's lumberjack-rotated file writer but hand-rolled here so
// rotation can be driven by this package's own size accounting and
// redaction step.
func OpenEventLog(path string, maxBytes int64, maxFiles int) (*EventLog, error) {
	info, err := os.Stat(path)
	var size int64
	if err == nil {
		size = info.Size()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat event log: %w", err)
	}
	return &EventLog{path: path, maxBytes: maxBytes, maxFiles: maxFiles, size: size}, nil
}

// Append writes one redacted event record and rotates if the log has grown
// past maxBytes.
func (l *EventLog) Append(at, eventType string, data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := eventRecord{At: at, Type: eventType, Data: redact.Map(data)}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	n, err := f.Write(line)
	if err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	l.size += int64(n)

	if l.size >= l.maxBytes {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}
	return nil
}

// rotateLocked renames events.log -> events.log.1, shifting existing
// generations up by one and dropping anything past maxFiles (spec §4.8).
func (l *EventLog) rotateLocked() error {
	for n := l.maxFiles - 1; n >= 1; n-- {
		src := l.generationPath(n)
		dst := l.generationPath(n + 1)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if n+1 > l.maxFiles {
			if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("drop rotated event log %s: %w", src, err)
			}
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("rotate event log %s: %w", src, err)
		}
	}
	if err := os.Rename(l.path, l.generationPath(1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate current event log: %w", err)
	}
	l.size = 0
	return nil
}

func (l *EventLog) generationPath(n int) string {
	return filepath.Join(filepath.Dir(l.path), filepath.Base(l.path)+fmt.Sprintf(".%d", n))
}
