package resume

import (
	"encoding/json"
	"os"

	"github.com/loomwork/village/internal/config"
	"github.com/loomwork/village/internal/fileutil"
	"github.com/loomwork/village/internal/villageerr"
)

// writePermissions writes .claude/settings.json into the worktree before
// the agent's window is created, mirroring the teacher's writePermissions
// but timed against worktree creation rather than synchronous invocation.
func writePermissions(worktreePath string, perms *config.Permissions) error {
	if perms == nil {
		return nil
	}
	dir := fileutil.ClaudeDir(worktreePath)
	if err := fileutil.EnsureDir(dir); err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "creating .claude dir", err)
	}

	doc := struct {
		Permissions *config.Permissions `json:"permissions"`
	}{Permissions: perms}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "encoding permissions", err)
	}
	if err := os.WriteFile(fileutil.ClaudeSubpath(worktreePath, "settings.json"), data, 0o644); err != nil {
		return villageerr.Wrap(villageerr.SubprocessFailure, "writing .claude/settings.json", err)
	}
	return nil
}
