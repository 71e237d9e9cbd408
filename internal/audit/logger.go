package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

const (
	// DefaultMaxHistory bounds the in-memory history. Inserting beyond
	// the bound evicts the oldest record.
	DefaultMaxHistory = 1000

	// snapshotEvery controls how often the bounded history is flushed
	// to its snapshot file. Close always flushes regardless.
	snapshotEvery = 50

	snapshotFile = "history.json"
)

// Archiver receives every record for long-term storage beyond the
// bounded history. Implementations must tolerate being called
// concurrently. A nil Archiver disables archiving.
type Archiver interface {
	Insert(ctx context.Context, rec Record) error
}

// Logger persists execution records three ways: the bounded in-memory
// history, one durable JSON file per execution in the audit directory,
// and optionally a long-term archive. Durable writes are best-effort:
// their failure never alters an already-computed execution outcome.
//
// The bounded history is the single piece of shared mutable state in
// the engine; one mutex serializes the append-and-evict step.
type Logger struct {
	mu         sync.Mutex
	entries    []Record
	sinceFlush int

	maxHistory   int
	dir          string
	snapshotPath string
	fileLock     *flock.Flock
	archive      Archiver
	logger       *slog.Logger
}

// NewLogger creates a Logger writing durable files under dir. A previous
// history snapshot in dir is loaded so the recent window survives
// restarts. archive may be nil.
func NewLogger(dir string, maxHistory int, archive Archiver, logger *slog.Logger) (*Logger, error) {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	snapshotPath := filepath.Join(dir, snapshotFile)
	l := &Logger{
		maxHistory:   maxHistory,
		dir:          dir,
		snapshotPath: snapshotPath,
		fileLock:     flock.New(snapshotPath + ".lock"),
		archive:      archive,
		logger:       logger,
	}

	if err := l.loadSnapshot(); err != nil {
		// A corrupt snapshot must not block the engine; start empty.
		logger.Warn("history snapshot unreadable, starting empty", "path", snapshotPath, "error", err)
	}
	return l, nil
}

// Record appends rec to the bounded history, evicting the oldest entry
// beyond the bound, then writes the durable per-execution file and the
// archive row. rec.LogFile is populated when the durable write succeeds.
func (l *Logger) Record(ctx context.Context, rec Record) Record {
	if path, err := l.writeDurable(rec); err != nil {
		l.logger.Error("durable audit write failed", "tool", rec.ToolName, "error", err)
	} else {
		rec.LogFile = &path
	}

	l.mu.Lock()
	l.entries = append(l.entries, rec)
	if len(l.entries) > l.maxHistory {
		l.entries = l.entries[len(l.entries)-l.maxHistory:]
	}
	l.sinceFlush++
	flush := l.sinceFlush >= snapshotEvery
	if flush {
		l.sinceFlush = 0
	}
	l.mu.Unlock()

	if flush {
		if err := l.SaveSnapshot(); err != nil {
			l.logger.Error("history snapshot failed", "error", err)
		}
	}

	if l.archive != nil {
		if err := l.archive.Insert(ctx, rec); err != nil {
			l.logger.Error("archive insert failed", "tool", rec.ToolName, "error", err)
		}
	}

	return rec
}

// History returns up to limit records, most recent first, optionally
// filtered by tool name. limit <= 0 means no limit.
func (l *Logger) History(limit int, toolName string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, 0, min(len(l.entries), max(limit, 0)))
	for i := len(l.entries) - 1; i >= 0; i-- {
		if toolName != "" && l.entries[i].ToolName != toolName {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Len reports the current history size.
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stats summarizes the current bounded history.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	entries := make([]Record, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	return Compute(entries)
}

// Close flushes the history snapshot.
func (l *Logger) Close() error {
	return l.SaveSnapshot()
}

// SaveSnapshot writes the whole bounded history to one JSON file,
// atomically (temp file + rename) and guarded by a file lock so
// concurrent processes sharing the audit directory do not interleave.
func (l *Logger) SaveSnapshot() error {
	l.mu.Lock()
	data, err := json.Marshal(l.entries)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding history snapshot: %w", err)
	}

	if err := l.fileLock.Lock(); err != nil {
		return fmt.Errorf("locking history snapshot: %w", err)
	}
	defer func() { _ = l.fileLock.Unlock() }()

	tmp := l.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("writing history snapshot: %w", err)
	}
	if err := os.Rename(tmp, l.snapshotPath); err != nil {
		return fmt.Errorf("replacing history snapshot: %w", err)
	}
	return nil
}

// loadSnapshot restores the bounded history from the snapshot file.
// A missing file is not an error.
func (l *Logger) loadSnapshot() error {
	data, err := os.ReadFile(l.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var entries []Record
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if len(entries) > l.maxHistory {
		entries = entries[len(entries)-l.maxHistory:]
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}

// writeDurable stores one record as an individual file keyed by tool
// name and timestamp. These files are never evicted by the bounded
// history; retention is the operator's concern.
func (l *Logger) writeDurable(rec Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}

	name := fmt.Sprintf("%s__%s.json", rec.ToolName, rec.Timestamp.UTC().Format("20060102T150405.000000000Z"))
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("writing record file: %w", err)
	}
	return path, nil
}
