// Package subprocess is the single place the orchestrator shells out to
// external tools (git, tmux, the ready-task source). Every call is
// argv-only - no package in this module builds a shell command line from
// untrusted input.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/loomwork/village/internal/villageerr"
)

// DefaultTimeout bounds every subprocess call unless the caller supplies its
// own context deadline.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of a completed subprocess invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Options customizes a single Run call.
type Options struct {
	Dir   string
	Env   []string // appended to the inherited environment when non-nil
	Stdin string
}

// Run executes argv[0] with argv[1:] as arguments, honoring ctx for
// cancellation/timeout. A non-zero exit produces a *villageerr.Error of kind
// SubprocessFailure carrying argv and a bounded stderr tail.
func Run(ctx context.Context, argv []string, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return nil, villageerr.New(villageerr.Config, "subprocess: empty argv")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	if opts.Env != nil {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() == context.DeadlineExceeded {
		return res, villageerr.Wrap(villageerr.Transient,
			fmt.Sprintf("%s: timed out after %s", strings.Join(argv, " "), DefaultTimeout), ctx.Err())
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, villageerr.Wrap(villageerr.SubprocessFailure,
			fmt.Sprintf("%s: exit %d: %s", strings.Join(argv, " "), res.ExitCode, tail(res.Stderr, 4)), err)
	}
	if err != nil {
		return res, villageerr.Wrap(villageerr.SubprocessFailure, strings.Join(argv, " "), err)
	}

	return res, nil
}

// Output runs argv and returns trimmed stdout on success.
func Output(ctx context.Context, argv []string, opts Options) (string, error) {
	res, err := Run(ctx, argv, opts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// tail returns the last n lines of s, for bounding error messages.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// LookPath reports whether name is available on PATH, without treating
// absence as an error - callers decide what "unavailable" means.
func LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}
