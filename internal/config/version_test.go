package config

import "testing"

func TestValidateMinVersion(t *testing.T) {
	if errs := validateMinVersion(""); len(errs) != 0 {
		t.Errorf("validateMinVersion(\"\") = %v, want no errors", errs)
	}
	if errs := validateMinVersion("1.2.3"); len(errs) != 0 {
		t.Errorf("validateMinVersion(valid) = %v, want no errors", errs)
	}
	if errs := validateMinVersion("not-a-version"); len(errs) == 0 {
		t.Error("validateMinVersion(invalid) = no errors, want one")
	}
}

func TestSatisfiesMinVersion(t *testing.T) {
	tests := []struct {
		name    string
		minVer  string
		running string
		want    bool
	}{
		{"no constraint configured", "", "0.1.0", true},
		{"running newer satisfies", "1.0.0", "1.2.0", true},
		{"running equal satisfies", "1.0.0", "1.0.0", true},
		{"running older fails", "1.2.0", "1.0.0", false},
		{"unparsable running degrades to satisfied", "1.2.0", "not-a-version", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{MinCLIVersion: tt.minVer}
			if got := SatisfiesMinVersion(cfg, tt.running); got != tt.want {
				t.Errorf("SatisfiesMinVersion(min=%q, running=%q) = %v, want %v", tt.minVer, tt.running, got, tt.want)
			}
		})
	}
}
