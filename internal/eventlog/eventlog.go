// Package eventlog is the append-only JSON-lines record of every mutating
// command the orchestrator runs. Readers tolerate malformed lines (another
// process's half-written append, a hand edit) by skipping them rather than
// failing the whole read.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loomwork/village/internal/fileutil"
	"github.com/loomwork/village/internal/villageerr"
)

// Result is the closed outcome set an event records.
type Result string

const (
	ResultOK    Result = "ok"
	ResultError Result = "error"
)

// Event is one line of the log. Fields are declared in JSON key order so
// every encoded line has sorted keys.
type Event struct {
	Command   string    `json:"cmd"`
	Error     string    `json:"error,omitempty"`
	Pane      string    `json:"pane,omitempty"`
	Result    Result    `json:"result,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Path returns the canonical event log path under villageDir.
func Path(villageDir string) string {
	return filepath.Join(villageDir, "events.log")
}

// Append writes ev as one JSON line, creating villageDir if needed.
func Append(villageDir string, ev Event) error {
	if err := fileutil.EnsureDir(villageDir); err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "creating village dir", err)
	}
	f, err := os.OpenFile(Path(villageDir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "opening event log", err)
	}
	defer f.Close()

	data, err := json.Marshal(ev)
	if err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "encoding event", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "appending event", err)
	}
	return f.Sync()
}

// LogStart records the start of a mutating command.
func LogStart(villageDir, cmd, taskID string) error {
	return Append(villageDir, Event{Timestamp: time.Now().UTC(), Command: cmd, TaskID: taskID})
}

// LogOK records a command's successful outcome.
func LogOK(villageDir, cmd, taskID, pane string) error {
	return Append(villageDir, Event{Timestamp: time.Now().UTC(), Command: cmd, TaskID: taskID, Pane: pane, Result: ResultOK})
}

// LogError records a command's failure.
func LogError(villageDir, cmd, taskID string, err error) error {
	return Append(villageDir, Event{Timestamp: time.Now().UTC(), Command: cmd, TaskID: taskID, Result: ResultError, Error: err.Error()})
}

// Read parses every line of the event log, skipping (not failing on) lines
// that don't decode as valid JSON.
func Read(villageDir string) ([]Event, error) {
	f, err := os.Open(Path(villageDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, villageerr.Wrap(villageerr.SubprocessFailure, "opening event log", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// IsTaskRecent reports whether the most recent event for taskID happened
// within ttlMinutes. ttlMinutes <= 0 disables the check entirely. An event
// whose timestamp fails to parse is treated as "not recent" - the queue
// fails open rather than permanently blocking a task on bad data.
func IsTaskRecent(events []Event, taskID string, ttlMinutes int) (bool, *Event) {
	if ttlMinutes <= 0 {
		return false, nil
	}
	var latest *Event
	for i := range events {
		if events[i].TaskID != taskID {
			continue
		}
		if latest == nil || events[i].Timestamp.After(latest.Timestamp) {
			latest = &events[i]
		}
	}
	if latest == nil {
		return false, nil
	}
	cutoff := time.Now().UTC().Add(-time.Duration(ttlMinutes) * time.Minute)
	return latest.Timestamp.After(cutoff), latest
}

// Format renders an event as a single human-readable line, for `village logs`.
func Format(ev Event) string {
	s := fmt.Sprintf("%s  %-10s", ev.Timestamp.Format(time.RFC3339), ev.Command)
	if ev.TaskID != "" {
		s += "  task=" + ev.TaskID
	}
	if ev.Pane != "" {
		s += "  pane=" + ev.Pane
	}
	if ev.Result != "" {
		s += "  result=" + string(ev.Result)
	}
	if ev.Error != "" {
		s += "  error=" + ev.Error
	}
	return s
}
