// Package tmux wraps the tmux CLI: session/window lifecycle, pane
// enumeration, and keystroke injection. It is the one package in this
// module that keeps process-local mutable state - a 5-second TTL cache of
// each session's live pane set, matching original_source/village/probes/tmux.py's
// _panes_cache. Every other component takes state as explicit arguments.
package tmux

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/loomwork/village/internal/subprocess"
)

const cacheTTL = 5 * time.Second

type paneSnapshot struct {
	panes     map[string]struct{}
	fetchedAt time.Time
}

var (
	cacheMu sync.Mutex
	cache   = map[string]paneSnapshot{}
)

// ClearCache drops every cached pane snapshot. No command calls it: each
// CLI invocation is a new process and starts with an empty cache.
func ClearCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = map[string]paneSnapshot{}
}

func run(ctx context.Context, argv ...string) (string, error) {
	return subprocess.Output(ctx, argv, subprocess.Options{})
}

// SessionExists reports whether a tmux session with this name is running.
func SessionExists(ctx context.Context, session string) bool {
	_, err := subprocess.Run(ctx, []string{"tmux", "has-session", "-t", session}, subprocess.Options{})
	return err == nil
}

// ListSessions returns every live tmux session name.
func ListSessions(ctx context.Context) ([]string, error) {
	out, err := run(ctx, "tmux", "list-sessions", "-F", "#{session_name}")
	if err != nil {
		if strings.Contains(err.Error(), "no server running") || strings.Contains(err.Error(), "No such file") {
			return nil, nil
		}
		return nil, err
	}
	return splitNonEmpty(out), nil
}

// CreateSession starts a new detached tmux session.
func CreateSession(ctx context.Context, session string) error {
	_, err := subprocess.Run(ctx, []string{"tmux", "new-session", "-d", "-s", session}, subprocess.Options{})
	return err
}

// KillSession terminates a tmux session and every pane within it.
func KillSession(ctx context.Context, session string) error {
	_, err := subprocess.Run(ctx, []string{"tmux", "kill-session", "-t", session}, subprocess.Options{})
	return err
}

// CreateWindow opens a new detached window in session, running cmd if given.
func CreateWindow(ctx context.Context, session, name string, cmd string) error {
	argv := []string{"tmux", "new-window", "-t", session, "-n", name, "-d"}
	if cmd != "" {
		argv = append(argv, cmd)
	}
	_, err := subprocess.Run(ctx, argv, subprocess.Options{})
	return err
}

// ListWindows returns every window name currently open in session.
func ListWindows(ctx context.Context, session string) ([]string, error) {
	out, err := run(ctx, "tmux", "list-windows", "-t", session, "-F", "#{window_name}")
	if err != nil {
		return nil, err
	}
	return splitNonEmpty(out), nil
}

// listPanes queries tmux directly, bypassing the cache.
func listPanes(ctx context.Context, session string) (map[string]struct{}, error) {
	out, err := run(ctx, "tmux", "list-panes", "-t", session, "-F", "#{pane_id}")
	if err != nil {
		if strings.Contains(err.Error(), "can't find session") {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	set := make(map[string]struct{})
	for _, id := range splitNonEmpty(out) {
		set[id] = struct{}{}
	}
	return set, nil
}

// Panes returns the set of live pane IDs for session, serving from a
// 5-second cache unless forceRefresh is set or the cache has expired.
func Panes(ctx context.Context, session string, forceRefresh bool) (map[string]struct{}, error) {
	cacheMu.Lock()
	snap, ok := cache[session]
	fresh := ok && time.Since(snap.fetchedAt) < cacheTTL
	cacheMu.Unlock()

	if fresh && !forceRefresh {
		return cloneSet(snap.panes), nil
	}
	return RefreshPanes(ctx, session)
}

// RefreshPanes unconditionally re-queries tmux and repopulates the cache.
func RefreshPanes(ctx context.Context, session string) (map[string]struct{}, error) {
	panes, err := listPanes(ctx, session)
	if err != nil {
		return nil, err
	}
	cacheMu.Lock()
	cache[session] = paneSnapshot{panes: cloneSet(panes), fetchedAt: time.Now()}
	cacheMu.Unlock()
	return cloneSet(panes), nil
}

// PaneExists reports whether paneID is currently live in session.
func PaneExists(ctx context.Context, session, paneID string) (bool, error) {
	panes, err := Panes(ctx, session, false)
	if err != nil {
		return false, err
	}
	_, ok := panes[paneID]
	return ok, nil
}

// SendKeys sends literal keystrokes to target (a pane or window), followed
// by Enter unless sendEnter is false - used to split a heredoc body from
// its terminating Enter when injecting multi-line contracts.
func SendKeys(ctx context.Context, target, keys string, sendEnter bool) error {
	argv := []string{"tmux", "send-keys", "-t", target, keys}
	if sendEnter {
		argv = append(argv, "Enter")
	}
	_, err := subprocess.Run(ctx, argv, subprocess.Options{})
	return err
}

// NewestPane diffs before and after pane sets and returns the pane ID that
// appeared in after but not before. Go has no ordered-set type and tmux
// itself assigns pane IDs monotonically, so "the window we just created"
// is unambiguous as a set difference - unlike the Python reference, which
// takes the last element of an unordered set.
func NewestPane(before, after map[string]struct{}) (string, error) {
	var found []string
	for id := range after {
		if _, existed := before[id]; !existed {
			found = append(found, id)
		}
	}
	if len(found) == 0 {
		return "", fmt.Errorf("tmux: no new pane appeared")
	}
	if len(found) > 1 {
		// Multiple panes appeared concurrently (another process also
		// created a window); the highest pane id is the most recent,
		// since tmux allocates pane_id values monotonically.
		return highestPaneID(found), nil
	}
	return found[0], nil
}

func highestPaneID(ids []string) string {
	best := ids[0]
	bestNum := paneNum(best)
	for _, id := range ids[1:] {
		if n := paneNum(id); n > bestNum {
			best, bestNum = id, n
		}
	}
	return best
}

func paneNum(paneID string) int {
	n := 0
	for _, r := range strings.TrimPrefix(paneID, "%") {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
