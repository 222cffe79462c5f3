// Package config loads and validates village.yaml. A Config is parsed once
// per process and passed explicitly through the call graph - there is no
// package-level singleton, matching the teacher's internal/config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loomwork/village/internal/gitscm"
)

// Config is the parsed, defaulted village.yaml.
type Config struct {
	GitRoot         string       `yaml:"git_root,omitempty"`
	VillageDir      string       `yaml:"village_dir,omitempty"`
	WorktreesDir    string       `yaml:"worktrees_dir,omitempty"`
	SessionName     string       `yaml:"session_name,omitempty"`
	DefaultAgent    string       `yaml:"default_agent,omitempty"`
	MaxWorkers      int          `yaml:"max_workers,omitempty"`
	QueueTTLMinutes int          `yaml:"queue_ttl_minutes,omitempty"`
	SCMKind         string       `yaml:"scm_kind,omitempty"`
	ReadySourceCmd  string       `yaml:"ready_source_command,omitempty"`
	MinCLIVersion   string       `yaml:"min_cli_version,omitempty"`
	Preamble        string       `yaml:"preamble,omitempty"`
	Permissions     *Permissions `yaml:"permissions,omitempty"`
	Gates           []Gate       `yaml:"gates,omitempty"`
	Concerns        []Concern    `yaml:"concerns,omitempty"`
	Dashboard       Dashboard    `yaml:"dashboard,omitempty"`
	PollInterval    Duration     `yaml:"poll_interval,omitempty"`
}

// Gate defines a quality gate run against a worker's staged files before
// its task can be marked completed.
type Gate struct {
	Name string `yaml:"name"`
	Run  string `yaml:"run"`
}

// Permissions mirrors the Claude Code .claude/settings.json permissions
// block. When set, village writes it into each worktree before the agent's
// window is created.
type Permissions struct {
	Allow []string `yaml:"allow" json:"allow"`
	Deny  []string `yaml:"deny,omitempty" json:"deny,omitempty"`
}

// Concern is one stage of the optional post-completion pipeline: an
// additional agent pass that pipeline.FanOutCompletion resumes as its own
// task for a completed task. No command calls FanOutCompletion.
type Concern struct {
	Name     string   `yaml:"name"`
	Watches  string   `yaml:"watches"` // another concern's name, or "completed"
	Prompt   string   `yaml:"prompt"`
	Command  string   `yaml:"command,omitempty"`
	Args     []string `yaml:"args,omitempty"`
	Preamble string   `yaml:"preamble,omitempty"`
}

// Dashboard configures the optional always-on status window created by
// `village up`.
type Dashboard struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Command string `yaml:"command,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// DefaultPreamble is prepended to every concern prompt when no custom
// preamble is configured.
const DefaultPreamble = "You are running non-interactively. Do not ask questions or wait for confirmation.\n" +
	"If something is unclear, make your best judgement and proceed.\n" +
	"Do not run git commit — your changes will be committed automatically."

// ResolvePreamble returns the effective preamble for a concern.
func (cfg *Config) ResolvePreamble(c Concern) string {
	if c.Preamble != "" {
		return c.Preamble
	}
	if cfg.Preamble != "" {
		return cfg.Preamble
	}
	return DefaultPreamble
}

// Load reads and parses path, then fills in defaults and resolves git_root
// when left blank (walks up from the config file's directory).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if cfg.GitRoot == "" {
		root, err := gitscm.GitRoot(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("resolving git_root: %w", err)
		}
		cfg.GitRoot = root
	}
	if !filepath.IsAbs(cfg.VillageDir) {
		cfg.VillageDir = filepath.Join(cfg.GitRoot, cfg.VillageDir)
	}
	if !filepath.IsAbs(cfg.WorktreesDir) {
		cfg.WorktreesDir = filepath.Join(cfg.GitRoot, cfg.WorktreesDir)
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	// queue_ttl_minutes defaults before unmarshal so an explicit 0 (dedup
	// disabled) survives.
	cfg := Config{QueueTTLMinutes: 10}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if cfg.VillageDir == "" {
		cfg.VillageDir = ".village"
	}
	if cfg.WorktreesDir == "" {
		cfg.WorktreesDir = ".worktrees"
	}
	if cfg.SessionName == "" {
		cfg.SessionName = "village"
	}
	if cfg.DefaultAgent == "" {
		cfg.DefaultAgent = "claude"
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 3
	}
	if cfg.SCMKind == "" {
		cfg.SCMKind = "git"
	}
	if cfg.ReadySourceCmd == "" {
		cfg.ReadySourceCmd = "bd"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(30 * time.Second)
	}

	for i := range cfg.Concerns {
		if cfg.Concerns[i].Watches == "" {
			if i == 0 {
				cfg.Concerns[i].Watches = "completed"
			} else {
				cfg.Concerns[i].Watches = cfg.Concerns[i-1].Name
			}
		}
	}

	return &cfg, nil
}

// Validate returns every structural error found in cfg. An empty slice
// means cfg is usable.
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("max_workers must be >= 1"))
	}
	if cfg.SCMKind != "git" {
		errs = append(errs, fmt.Errorf("scm_kind %q is not supported (only \"git\")", cfg.SCMKind))
	}

	names := make(map[string]bool)
	for i, c := range cfg.Concerns {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("concerns[%d]: name is required", i))
		} else if names[c.Name] {
			errs = append(errs, fmt.Errorf("concerns[%d]: duplicate name %q", i, c.Name))
		} else {
			names[c.Name] = true
		}
		if c.Prompt == "" {
			errs = append(errs, fmt.Errorf("concerns[%d] (%s): prompt is required", i, c.Name))
		}
	}
	if cycleErr := detectCycles(cfg.Concerns); cycleErr != nil {
		errs = append(errs, cycleErr)
	}

	errs = append(errs, ValidateGates(cfg.Gates)...)
	errs = append(errs, validateMinVersion(cfg.MinCLIVersion)...)

	return errs
}

// ValidateGates checks that gates have unique, non-empty names and commands.
func ValidateGates(gates []Gate) []error {
	var errs []error
	names := make(map[string]bool)
	for i, g := range gates {
		if g.Name == "" {
			errs = append(errs, fmt.Errorf("gates[%d]: name is required", i))
		} else if names[g.Name] {
			errs = append(errs, fmt.Errorf("gates[%d]: duplicate name %q", i, g.Name))
		} else {
			names[g.Name] = true
		}
		if g.Run == "" {
			errs = append(errs, fmt.Errorf("gates[%d]: run is required", i))
		}
	}
	return errs
}

func detectCycles(concerns []Concern) error {
	nameSet := make(map[string]bool)
	for _, c := range concerns {
		nameSet[c.Name] = true
	}
	adj := make(map[string][]string)
	for _, c := range concerns {
		if nameSet[c.Watches] {
			adj[c.Name] = append(adj[c.Name], c.Watches)
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)

	var visit func(node string) error
	visit = func(node string) error {
		color[node] = gray
		for _, dep := range adj[node] {
			if color[dep] == gray {
				return fmt.Errorf("cycle detected: %s -> %s", node, dep)
			}
			if color[dep] == white {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, c := range concerns {
		if color[c.Name] == white {
			if err := visit(c.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// HasConcern returns true if name is a configured concern.
func (cfg *Config) HasConcern(name string) bool {
	for _, c := range cfg.Concerns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// BuildNameSet returns the set of every concern name.
func (cfg *Config) BuildNameSet() map[string]bool {
	set := make(map[string]bool, len(cfg.Concerns))
	for _, c := range cfg.Concerns {
		set[c.Name] = true
	}
	return set
}

// BuildDownstreamMap maps a concern name to the concerns that watch it.
func (cfg *Config) BuildDownstreamMap() map[string][]string {
	nameSet := cfg.BuildNameSet()
	downstream := make(map[string][]string)
	for _, c := range cfg.Concerns {
		if nameSet[c.Watches] {
			downstream[c.Watches] = append(downstream[c.Watches], c.Name)
		}
	}
	return downstream
}

// FindRoots returns concerns that watch "completed" rather than another concern.
func (cfg *Config) FindRoots() []string {
	nameSet := cfg.BuildNameSet()
	var roots []string
	for _, c := range cfg.Concerns {
		if !nameSet[c.Watches] {
			roots = append(roots, c.Name)
		}
	}
	return roots
}
