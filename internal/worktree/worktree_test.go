package worktree

import (
	"errors"
	"testing"
)

func TestIsCollisionErr(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"fatal: '/repo/.worktrees/task-1' already exists", true},
		{"fatal: path exists and is not a directory", true},
		{"branch 'worktree-task-1' is already registered as worktree", true},
		{"fatal: invalid reference: main", false},
	}
	for _, tt := range tests {
		if got := isCollisionErr(errors.New(tt.msg)); got != tt.want {
			t.Errorf("isCollisionErr(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestBranchNameAndPath(t *testing.T) {
	if got := BranchName("task-1"); got != "worktree-task-1" {
		t.Errorf("BranchName() = %q, want worktree-task-1", got)
	}
	if got := Path("/repo/.worktrees", "task-1"); got != "/repo/.worktrees/task-1" {
		t.Errorf("Path() = %q, want /repo/.worktrees/task-1", got)
	}
}
