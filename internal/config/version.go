package config

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// validateMinVersion checks that minVersion, if set, parses as a semantic
// version. The actual comparison against the running binary's version
// happens in internal/cli (which knows the build-time Version string);
// this only guards against a malformed constraint in village.yaml.
func validateMinVersion(minVersion string) []error {
	if minVersion == "" {
		return nil
	}
	if _, err := semver.NewVersion(minVersion); err != nil {
		return []error{fmt.Errorf("min_cli_version %q is not a valid semantic version: %w", minVersion, err)}
	}
	return nil
}

// SatisfiesMinVersion reports whether running (e.g. "0.4.2") is >= the
// configured min_cli_version. A blank constraint or an unparsable running
// version always satisfies - this check degrades gracefully rather than
// blocking operation over a version string mismatch.
func SatisfiesMinVersion(cfg *Config, running string) bool {
	if cfg.MinCLIVersion == "" {
		return true
	}
	min, err := semver.NewVersion(cfg.MinCLIVersion)
	if err != nil {
		return true
	}
	have, err := semver.NewVersion(running)
	if err != nil {
		return true
	}
	return !have.LessThan(min)
}
