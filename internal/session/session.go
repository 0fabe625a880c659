// Package session writes a structured, append-only JSONL summary of each
// trading window's outcome, alongside the ordinary slog stream. This
// supplements the core decision loop the way the original runner's
// session_log.rs does, adapted here to a file sink rather than a database
// since the core carries no persistence dependency (see Non-goals).
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// WindowSummary is one line of the session log: the outcome of a single
// trading window (one rotation interval).
type WindowSummary struct {
	AssetID       string    `json:"asset_id"`
	WindowSlug    string    `json:"window_slug"`
	OpenedAt      time.Time `json:"opened_at"`
	ClosedAt      time.Time `json:"closed_at"`
	EntryPrice    float64   `json:"entry_price,omitempty"`
	ExitReason    string    `json:"exit_reason,omitempty"` // "take_profit", "stop_loss", "rotation", "none"
	RealizedPnL   float64   `json:"realized_pnl"`
	SharesTraded  float64   `json:"shares_traded"`
}

// Log appends WindowSummary records to a JSONL file. Writes are
// serialized; disabled entirely when Enabled is false, matching the
// original's session_log_enabled toggle.
type Log struct {
	mu      sync.Mutex
	f       *os.File
	Enabled bool
}

// Open creates (or appends to) the session log file at dir/sessions.jsonl.
// If enabled is false, Open returns a Log that silently discards writes.
func Open(dir string, enabled bool) (*Log, error) {
	if !enabled {
		return &Log{Enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "sessions.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("session: open log file: %w", err)
	}
	return &Log{f: f, Enabled: true}, nil
}

// Write appends one WindowSummary as a JSON line.
func (l *Log) Write(s WindowSummary) error {
	if !l.Enabled {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal summary: %w", err)
	}
	line = append(line, '\n')
	_, err = l.f.Write(line)
	return err
}

// Close closes the underlying file, if any.
func (l *Log) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
