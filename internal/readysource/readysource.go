// Package readysource wraps the external ready-task source CLI (by
// convention "bd"). Its absence is not an error: the orchestrator degrades
// to "no ready tasks" rather than failing, matching
// original_source/village/probes/beads.py's beads_available().
package readysource

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/loomwork/village/internal/subprocess"
)

// Task is one line from `<cmd> ready`: a task ID and a free-form metadata
// tail the agent is extracted from.
type Task struct {
	ID       string
	Metadata string
}

// Availability reports whether the ready-task source is usable.
type Availability struct {
	CommandAvailable bool
	CommandPath      string
	RepoInitialized  bool
	Error            string
}

// Probe checks whether command is on PATH and the repo at gitRoot has been
// initialized for it (a ".beads" directory, by the convention the example
// task backend uses).
func Probe(gitRoot, command string) Availability {
	path, ok := subprocess.LookPath(command)
	if !ok {
		return Availability{CommandAvailable: false, Error: command + " not found on PATH"}
	}
	_, err := os.Stat(filepath.Join(gitRoot, ".beads"))
	return Availability{
		CommandAvailable: true,
		CommandPath:      path,
		RepoInitialized:  err == nil,
	}
}

// List runs "<command> ready" and parses its newline-delimited output:
// each line is a task ID followed by free-form metadata. A source that is
// unavailable or returns nothing yields an empty, non-error result.
func List(ctx context.Context, gitRoot, command string) ([]Task, error) {
	avail := Probe(gitRoot, command)
	if !avail.CommandAvailable || !avail.RepoInitialized {
		return nil, nil
	}

	out, err := subprocess.Output(ctx, []string{command, "ready"}, subprocess.Options{Dir: gitRoot})
	if err != nil {
		return nil, nil // a non-zero exit from the task backend is not fatal to the queue
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var tasks []Task
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		tasks = append(tasks, Task{ID: fields[0], Metadata: line})
	}
	return tasks, nil
}

var agentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)agent:(\w+)`),
	regexp.MustCompile(`(?i)agent=(\w+)`),
	regexp.MustCompile(`(?i)agent/(\w+)`),
}

// ExtractAgent pulls an agent label out of a ready task's metadata line
// using the three recognized forms (agent:x, agent=x, agent/x), falling
// back to defaultAgent when none match.
func ExtractAgent(metadata, defaultAgent string) string {
	for _, re := range agentPatterns {
		if m := re.FindStringSubmatch(metadata); m != nil {
			return m[1]
		}
	}
	return defaultAgent
}
