// Package gate runs configured quality gates (lint, format, typecheck)
// against a worker's staged files before its task may be marked complete.
// This is the one package in the module that legitimately shells out via
// "sh -c": gate commands are user-authored pipeline strings from
// village.yaml, not attacker-controlled input, exactly as the teacher's
// gate runner does.
package gate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/gitscm"
	"github.com/loomwork/village/internal/subprocess"
	"github.com/loomwork/village/internal/villageerr"
)

// ignoreFileName is the per-worktree pattern file excluded from {staged}
// substitution - e.g. generated files a gate shouldn't be handed.
const ignoreFileName = ".villageignore"

// Run executes every configured gate in order against the staged files of
// the repository at dir, stopping at the first failure.
func Run(ctx context.Context, cfg *config.Config, dir string) error {
	staged, err := stagedFiles(dir)
	if err != nil {
		return err
	}
	for _, g := range cfg.Gates {
		if err := runOne(ctx, g, dir, staged); err != nil {
			return villageerr.Wrap(villageerr.SubprocessFailure, fmt.Sprintf("gate %q failed", g.Name), err)
		}
	}
	return nil
}

func stagedFiles(dir string) ([]string, error) {
	repo := gitscm.NewRepo(dir)
	files, err := repo.StagedFiles()
	if err != nil {
		return nil, err
	}
	return filterIgnored(dir, files), nil
}

// filterIgnored drops any path matching .villageignore patterns, the same
// way the teacher's ignore_test.go exercises go-gitignore against
// .lineignore - here applied to the gate's {staged} substitution rather
// than the concern-chain watcher.
func filterIgnored(dir string, files []string) []string {
	data, err := os.ReadFile(filepath.Join(dir, ignoreFileName))
	if err != nil {
		return files
	}
	matcher := ignore.CompileIgnoreLines(strings.Split(string(data), "\n")...)

	var out []string
	for _, f := range files {
		if !matcher.MatchesPath(f) {
			out = append(out, f)
		}
	}
	return out
}

func runOne(ctx context.Context, g config.Gate, dir string, staged []string) error {
	run := strings.ReplaceAll(g.Run, "{staged}", strings.Join(quoteAll(staged), " "))
	res, err := subprocess.Run(ctx, []string{"sh", "-c", run}, subprocess.Options{Dir: dir})
	if res != nil {
		fmt.Fprint(os.Stdout, res.Stdout)
		fmt.Fprint(os.Stderr, res.Stderr)
	}
	return err
}

func quoteAll(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = "'" + strings.ReplaceAll(f, "'", `'\''`) + "'"
	}
	return out
}
