package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte(``))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.VillageDir != ".village" {
		t.Errorf("VillageDir = %q, want .village", cfg.VillageDir)
	}
	if cfg.WorktreesDir != ".worktrees" {
		t.Errorf("WorktreesDir = %q, want .worktrees", cfg.WorktreesDir)
	}
	if cfg.SessionName != "village" {
		t.Errorf("SessionName = %q, want village", cfg.SessionName)
	}
	if cfg.DefaultAgent != "claude" {
		t.Errorf("DefaultAgent = %q, want claude", cfg.DefaultAgent)
	}
	if cfg.MaxWorkers != 3 {
		t.Errorf("MaxWorkers = %d, want 3", cfg.MaxWorkers)
	}
	if cfg.ReadySourceCmd != "bd" {
		t.Errorf("ReadySourceCmd = %q, want bd", cfg.ReadySourceCmd)
	}
}

func TestParseConcernWatchesDefaulting(t *testing.T) {
	cfg, err := parse([]byte(`
concerns:
  - name: security
    prompt: review
  - name: docs
    prompt: update docs
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Concerns[0].Watches != "completed" {
		t.Errorf("first concern Watches = %q, want completed", cfg.Concerns[0].Watches)
	}
	if cfg.Concerns[1].Watches != "security" {
		t.Errorf("second concern Watches = %q, want security (previous concern)", cfg.Concerns[1].Watches)
	}
}

func TestParseConcernFieldsMatchInput(t *testing.T) {
	cfg, err := parse([]byte(`
concerns:
  - name: security
    watches: completed
    prompt: review for vulnerabilities
    command: claude
    args: ["--dangerously-skip-permissions"]
    preamble: be thorough
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := Concern{
		Name:     "security",
		Watches:  "completed",
		Prompt:   "review for vulnerabilities",
		Command:  "claude",
		Args:     []string{"--dangerously-skip-permissions"},
		Preamble: "be thorough",
	}
	if diff := cmp.Diff(want, cfg.Concerns[0]); diff != "" {
		t.Errorf("parsed concern mismatch (-want +got):\n%s", diff)
	}
}

func TestParseExplicitWatchesNotOverridden(t *testing.T) {
	cfg, err := parse([]byte(`
concerns:
  - name: security
    watches: completed
    prompt: review
  - name: docs
    watches: completed
    prompt: update docs
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Concerns[1].Watches != "completed" {
		t.Errorf("explicit watches was overridden: got %q", cfg.Concerns[1].Watches)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid minimal config",
			cfg:  Config{MaxWorkers: 1, SCMKind: "git"},
		},
		{
			name:    "zero max_workers",
			cfg:     Config{MaxWorkers: 0, SCMKind: "git"},
			wantErr: []string{"max_workers must be >= 1"},
		},
		{
			name:    "unsupported scm_kind",
			cfg:     Config{MaxWorkers: 1, SCMKind: "hg"},
			wantErr: []string{`scm_kind "hg" is not supported (only "git")`},
		},
		{
			name: "concern missing name",
			cfg: Config{MaxWorkers: 1, SCMKind: "git", Concerns: []Concern{
				{Prompt: "review"},
			}},
			wantErr: []string{"concerns[0]: name is required"},
		},
		{
			name: "concern missing prompt",
			cfg: Config{MaxWorkers: 1, SCMKind: "git", Concerns: []Concern{
				{Name: "security", Watches: "completed"},
			}},
			wantErr: []string{"concerns[0] (security): prompt is required"},
		},
		{
			name: "duplicate concern name",
			cfg: Config{MaxWorkers: 1, SCMKind: "git", Concerns: []Concern{
				{Name: "security", Watches: "completed", Prompt: "a"},
				{Name: "security", Watches: "completed", Prompt: "b"},
			}},
			wantErr: []string{`concerns[1]: duplicate name "security"`},
		},
		{
			name: "concern cycle",
			cfg: Config{MaxWorkers: 1, SCMKind: "git", Concerns: []Concern{
				{Name: "a", Watches: "b", Prompt: "x"},
				{Name: "b", Watches: "a", Prompt: "y"},
			}},
			wantErr: []string{"cycle detected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&tt.cfg)
			if len(tt.wantErr) == 0 {
				if len(errs) != 0 {
					t.Fatalf("Validate() = %v, want no errors", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("Validate() = no errors, want containing %v", tt.wantErr)
			}
			for _, want := range tt.wantErr {
				found := false
				for _, e := range errs {
					if strings.Contains(e.Error(), want) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Validate() = %v, want an error containing %q", errs, want)
				}
			}
		})
	}
}

func TestValidateGatesDuplicateNames(t *testing.T) {
	gates := []Gate{
		{Name: "lint", Run: "echo ok"},
		{Name: "lint", Run: "echo again"},
	}
	errs := ValidateGates(gates)
	if len(errs) != 1 {
		t.Fatalf("ValidateGates() = %v, want exactly one error", errs)
	}
}

func TestFindRoots(t *testing.T) {
	cfg := &Config{Concerns: []Concern{
		{Name: "security", Watches: "completed"},
		{Name: "docs", Watches: "security"},
		{Name: "style", Watches: "completed"},
	}}
	roots := cfg.FindRoots()
	if len(roots) != 2 {
		t.Fatalf("FindRoots() = %v, want 2 roots", roots)
	}
}

func TestResolvePreamble(t *testing.T) {
	cfg := &Config{Preamble: "global preamble"}
	if got := cfg.ResolvePreamble(Concern{Preamble: "concern preamble"}); got != "concern preamble" {
		t.Errorf("ResolvePreamble() = %q, want concern-level override", got)
	}
	if got := cfg.ResolvePreamble(Concern{}); got != "global preamble" {
		t.Errorf("ResolvePreamble() = %q, want global preamble", got)
	}

	empty := &Config{}
	if got := empty.ResolvePreamble(Concern{}); got != DefaultPreamble {
		t.Errorf("ResolvePreamble() = %q, want DefaultPreamble", got)
	}
}
