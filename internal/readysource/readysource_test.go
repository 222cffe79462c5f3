package readysource

import "testing"

func TestExtractAgent(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		want     string
	}{
		{"colon form", "task-1 agent:claude needs review", "claude"},
		{"equals form", "task-2 agent=codex", "codex"},
		{"slash form", "task-3 agent/aider extra", "aider"},
		{"case insensitive", "task-4 Agent:Claude", "Claude"},
		{"no match falls back to default", "task-5 no agent tag here", "claude"},
		{"empty metadata falls back to default", "", "claude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAgent(tt.metadata, "claude"); got != tt.want {
				t.Errorf("ExtractAgent(%q) = %q, want %q", tt.metadata, got, tt.want)
			}
		})
	}
}
