package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/fileutil"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Install village's statusline and git hooks in a repository",
	Long: `Initialize village in the target repository (defaults to the
current directory).

This command:
  - Configures the Claude Code statusline in .claude/settings.local.json
  - Installs a pre-commit hook running "village gate", if gates are configured
  - Installs a post-commit hook running "village queue", to pick up newly
    ready tasks as soon as one completes`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		if _, err := os.Stat(filepath.Join(absDir, ".git")); err != nil {
			return fmt.Errorf("%s is not a git repository (no .git directory)", absDir)
		}

		if err := initStatusline(absDir); err != nil {
			return fmt.Errorf("configuring statusline: %w", err)
		}
		fmt.Println("  config .claude/settings.local.json (statusline)")

		if cfg, err := config.Load(configPath); err == nil {
			if len(cfg.Gates) > 0 {
				if err := initPreCommitHook(absDir); err != nil {
					return fmt.Errorf("installing pre-commit hook: %w", err)
				}
			}
			if err := initPostCommitHook(absDir); err != nil {
				return fmt.Errorf("installing post-commit hook: %w", err)
			}
		}

		fmt.Println("\nDone.")
		return nil
	},
}

// initStatusline adds or updates the statusline config in .claude/settings.local.json.
func initStatusline(repoDir string) error {
	villageBin, err := os.Executable()
	if err != nil {
		villageBin = "village"
	}

	settingsPath := fileutil.ClaudeSubpath(repoDir, "settings.local.json")

	if err := fileutil.EnsureDir(fileutil.ClaudeDir(repoDir)); err != nil {
		return err
	}

	settings := make(map[string]interface{})
	if data, err := os.ReadFile(settingsPath); err == nil {
		if err := json.Unmarshal(data, &settings); err != nil {
			return fmt.Errorf("parsing existing %s: %w", settingsPath, err)
		}
	}

	settings["statusLine"] = map[string]string{
		"command": villageBin + " statusline",
		"type":    "command",
	}

	if err := fileutil.WriteJSON(settingsPath, settings); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

const (
	gateBeginMarker = "# BEGIN village gate"
	gateBlock       = `# BEGIN village gate
if command -v village >/dev/null 2>&1; then
    village gate || exit 1
fi
# END village gate`
	queueBeginMarker = "# BEGIN village queue"
	queueBlock       = `# BEGIN village queue
if command -v village >/dev/null 2>&1; then
    village queue >/dev/null 2>&1
fi
# END village queue`
)

// initPreCommitHook installs or injects a "village gate" call into
// .git/hooks/pre-commit. If no hook exists, a fresh one is created. If one
// exists, the gate block is injected using sentinel markers. Re-running is
// idempotent: the sentinel is detected and skipped.
func initPreCommitHook(repoDir string) error {
	return initHook(repoDir, "pre-commit", gateBeginMarker, gateBlock)
}

// initPostCommitHook installs or injects a "village queue" call into
// .git/hooks/post-commit, so a task's completion immediately admits the
// next ready task rather than waiting for a manual queue run.
func initPostCommitHook(repoDir string) error {
	return initHook(repoDir, "post-commit", queueBeginMarker, queueBlock)
}

// initHook installs or injects a block into a git hook script. If no hook
// exists, a fresh one is created. If one exists, the block is injected
// using sentinel markers. Re-running is idempotent: the sentinel is
// detected and skipped.
func initHook(repoDir, hookName, beginMarker, block string) error {
	hookDir := filepath.Join(repoDir, ".git", "hooks")
	hookPath := filepath.Join(hookDir, hookName)

	if err := fileutil.EnsureDir(hookDir); err != nil {
		return fmt.Errorf("creating hooks directory: %w", err)
	}

	existing, err := os.ReadFile(hookPath)
	if err == nil {
		return injectBlock(hookPath, hookName, beginMarker, block, string(existing))
	}

	content := "#!/bin/sh\n" + block + "\n"
	if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
		return fmt.Errorf("writing %s hook: %w", hookName, err)
	}

	fmt.Printf("  hook   .git/hooks/%s\n", hookName)
	return nil
}

// injectBlock injects a block into an existing hook script. If the
// sentinel markers are already present, it's a no-op.
func injectBlock(hookPath, hookName, beginMarker, block, content string) error {
	if strings.Contains(content, beginMarker) {
		fmt.Printf("  skip   .git/hooks/%s (already present)\n", hookName)
		return nil
	}

	var updated string
	if hookName == "pre-commit" && strings.LastIndex(content, "\nexit 0") != -1 {
		idx := strings.LastIndex(content, "\nexit 0")
		updated = content[:idx] + "\n" + block + "\n" + content[idx+1:]
	} else {
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		updated = content + "\n" + block + "\n"
	}

	if err := os.WriteFile(hookPath, []byte(updated), 0o755); err != nil {
		return fmt.Errorf("writing %s hook: %w", hookName, err)
	}

	fmt.Printf("  hook   .git/hooks/%s (injected)\n", hookName)
	return nil
}
