// Package lock implements the on-disk lock registry: one plain-text file
// per task under <village>/locks/, and the pure function that classifies
// each lock as ACTIVE or STALE against a tmux pane snapshot.
package lock

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loomwork/village/internal/fileutil"
	"github.com/loomwork/village/internal/villageerr"
)

// State is the optional lifecycle stage of a task's lock.
type State string

const (
	StateQueued     State = "queued"
	StateInProgress State = "in_progress"
	StatePaused     State = "paused"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Transition records one state change for a lock's audit trail.
type Transition struct {
	Timestamp time.Time
	From      State
	To        State
	Context   string
}

// Lock is one task's ownership record.
type Lock struct {
	TaskID       string
	PaneID       string
	WindowName   string
	Agent        string
	ClaimedAt    time.Time
	State        State
	StateHistory []Transition
}

// Status is the result of evaluating a Lock against a live pane set.
type Status string

const (
	Active Status = "active"
	Stale  Status = "stale"
)

// ErrCorrupted is returned by Parse when a lock file cannot be read as the
// expected key=value format. Corrupted locks are never deleted: Parse and
// ListAll report them to the caller, and the reconciler lists them in its
// plan without removing them.
var ErrCorrupted = fmt.Errorf("lock: corrupted lock file")

// Path returns the canonical lock file path for a task under villageDir.
func Path(villageDir, taskID string) string {
	return filepath.Join(fileutil.VillageSubdir(villageDir, "locks"), taskID+".lock")
}

// Parse reads and decodes a lock file. A file that doesn't parse as
// key=value lines is reported via ErrCorrupted, wrapping the underlying
// detail.
func Parse(path string) (*Lock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, villageerr.Wrap(villageerr.LockValidation, "opening lock file "+path, err)
	}
	defer f.Close()

	l := &Lock{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, villageerr.Wrap(villageerr.LockValidation, path, fmt.Errorf("%w: malformed line %q", ErrCorrupted, line))
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "id":
			l.TaskID = value
		case "pane":
			l.PaneID = value
		case "window":
			l.WindowName = value
		case "agent":
			l.Agent = value
		case "claimed_at":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, villageerr.Wrap(villageerr.LockValidation, path, fmt.Errorf("%w: bad claimed_at %q", ErrCorrupted, value))
			}
			l.ClaimedAt = t
		case "state":
			l.State = State(value)
		case "state_history":
			t, err := parseTransition(value)
			if err != nil {
				return nil, villageerr.Wrap(villageerr.LockValidation, path, fmt.Errorf("%w: bad state_history %q", ErrCorrupted, value))
			}
			l.StateHistory = append(l.StateHistory, t)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, villageerr.Wrap(villageerr.LockValidation, path, err)
	}
	if l.TaskID == "" {
		return nil, villageerr.Wrap(villageerr.LockValidation, path, fmt.Errorf("%w: missing id", ErrCorrupted))
	}
	if base := strings.TrimSuffix(filepath.Base(path), ".lock"); base != l.TaskID {
		return nil, villageerr.Wrap(villageerr.LockValidation, path,
			fmt.Errorf("%w: file name %q does not match in-file id %q", ErrCorrupted, base, l.TaskID))
	}
	return l, nil
}

func parseTransition(value string) (Transition, error) {
	parts := strings.SplitN(value, "|", 4)
	if len(parts) < 3 {
		return Transition{}, fmt.Errorf("expected ts|from|to[|context]")
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Transition{}, err
	}
	t := Transition{Timestamp: ts, From: State(parts[1]), To: State(parts[2])}
	if len(parts) == 4 {
		t.Context = parts[3]
	}
	return t, nil
}

func formatTransition(t Transition) string {
	return fmt.Sprintf("%s|%s|%s|%s", t.Timestamp.UTC().Format(time.RFC3339), t.From, t.To, t.Context)
}

// Write atomically writes l to its canonical path under villageDir, via
// write-to-temp then rename so a reader never observes a partial file.
func Write(villageDir string, l *Lock) error {
	dir := fileutil.VillageSubdir(villageDir, "locks")
	if err := fileutil.EnsureDir(dir); err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "creating locks dir", err)
	}
	path := Path(villageDir, l.TaskID)

	var b strings.Builder
	fmt.Fprintf(&b, "id=%s\n", l.TaskID)
	fmt.Fprintf(&b, "pane=%s\n", l.PaneID)
	fmt.Fprintf(&b, "window=%s\n", l.WindowName)
	fmt.Fprintf(&b, "agent=%s\n", l.Agent)
	fmt.Fprintf(&b, "claimed_at=%s\n", l.ClaimedAt.UTC().Format(time.RFC3339))
	if l.State != "" {
		fmt.Fprintf(&b, "state=%s\n", l.State)
	}
	for _, t := range l.StateHistory {
		fmt.Fprintf(&b, "state_history=%s\n", formatTransition(t))
	}

	tmp, err := os.CreateTemp(dir, ".lock-*.tmp")
	if err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "creating temp lock file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return villageerr.Wrap(villageerr.SubprocessFailure, "writing temp lock file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return villageerr.Wrap(villageerr.SubprocessFailure, "closing temp lock file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return villageerr.Wrap(villageerr.SubprocessFailure, "renaming lock file into place", err)
	}
	return nil
}

// AppendTransition adds a state transition to l and persists it.
func AppendTransition(villageDir string, l *Lock, to State, context string) error {
	l.StateHistory = append(l.StateHistory, Transition{
		Timestamp: time.Now().UTC(),
		From:      l.State,
		To:        to,
		Context:   context,
	})
	l.State = to
	return Write(villageDir, l)
}

// Remove deletes a task's lock file, tolerating its absence.
func Remove(villageDir, taskID string) error {
	err := os.Remove(Path(villageDir, taskID))
	if err != nil && !os.IsNotExist(err) {
		return villageerr.Wrap(villageerr.SubprocessFailure, "removing lock file", err)
	}
	return nil
}

// ListAll reads every lock file under villageDir/locks. Corrupted files are
// returned in the errs map, keyed by path, rather than aborting the scan -
// callers (status, cleanup) need to see every lock, valid or not.
func ListAll(villageDir string) (locks []*Lock, errs map[string]error) {
	dir := filepath.Join(villageDir, "locks")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, map[string]error{dir: err}
	}
	errs = map[string]error{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		l, err := Parse(path)
		if err != nil {
			errs[path] = err
			continue
		}
		locks = append(locks, l)
	}
	if len(errs) == 0 {
		errs = nil
	}
	return locks, errs
}

// Evaluate classifies a single lock as Active or Stale against panes, the
// live pane-ID set for the lock's session.
func Evaluate(l *Lock, panes map[string]struct{}) Status {
	if _, ok := panes[l.PaneID]; ok {
		return Active
	}
	return Stale
}

// EvaluateAll classifies every lock in locks against panes.
func EvaluateAll(locks []*Lock, panes map[string]struct{}) map[string]Status {
	out := make(map[string]Status, len(locks))
	for _, l := range locks {
		out[l.TaskID] = Evaluate(l, panes)
	}
	return out
}

// IsActive is a one-lock convenience over Evaluate.
func IsActive(l *Lock, panes map[string]struct{}) bool {
	return Evaluate(l, panes) == Active
}
