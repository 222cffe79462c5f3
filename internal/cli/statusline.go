package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/lock"
	"github.com/loomwork/village/internal/tmux"
)

func init() {
	rootCmd.AddCommand(statuslineCmd)
}

var statuslineCmd = &cobra.Command{
	Use:   "statusline",
	Short: "Render active workers for Claude Code's statusline (reads JSON from stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		dir := resolveProjectDir(input)
		if dir == "" {
			return nil
		}

		path := findVillageConfig(dir)
		if path == "" {
			return nil
		}

		cfg, err := config.Load(path)
		if err != nil {
			return nil
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			return nil
		}

		rendered := renderStatuslineWorkers(cfg)
		if rendered != "" {
			fmt.Print(rendered)
		}
		return nil
	},
}

// claudeCodeInput is the JSON object Claude Code passes on stdin.
type claudeCodeInput struct {
	CWD       string `json:"cwd"`
	Workspace *struct {
		ProjectDir string `json:"project_dir"`
	} `json:"workspace"`
}

func resolveProjectDir(input []byte) string {
	var ci claudeCodeInput
	if err := json.Unmarshal(input, &ci); err != nil {
		return ""
	}
	if ci.Workspace != nil && ci.Workspace.ProjectDir != "" {
		return ci.Workspace.ProjectDir
	}
	return ci.CWD
}

// findVillageConfig walks up from dir looking for village.yaml or village.yml.
func findVillageConfig(dir string) string {
	for {
		for _, name := range []string{"village.yaml", "village.yml"} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func workerSymbol(status lock.Status, state lock.State) string {
	symbol, _ := stateDisplay(status, state)
	return symbol
}

// renderStatuslineWorkers renders one "<agent>:<task_id> <symbol>" segment
// per active worker, joined and colored by lock state. Any failure to read
// live state degrades to an empty line rather than an error, matching the
// teacher's silent-exit behavior.
func renderStatuslineWorkers(cfg *config.Config) string {
	locks, _ := lock.ListAll(cfg.VillageDir)
	if len(locks) == 0 {
		return ""
	}
	panes, err := tmux.Panes(context.Background(), cfg.SessionName, false)
	if err != nil {
		return ""
	}

	sort.Slice(locks, func(i, j int) bool { return locks[i].TaskID < locks[j].TaskID })

	var segments []string
	for _, l := range locks {
		status := lock.Evaluate(l, panes)
		if status != lock.Active {
			continue
		}
		_, color := stateDisplay(status, l.State)
		sym := workerSymbol(status, l.State)
		segments = append(segments, fmt.Sprintf("%s%s:%s %s%s", color, l.Agent, l.TaskID, sym, ansiReset))
	}
	if len(segments) == 0 {
		return ""
	}
	return strings.Join(segments, "  ")
}
