package contract

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestGenerateWithEmptyTemplateIsNoop(t *testing.T) {
	e := Envelope{TaskID: "task-1"}
	got, err := Generate(e, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Prompt != "" {
		t.Errorf("Prompt = %q, want empty", got.Prompt)
	}
}

func TestGenerateSubstitutesFields(t *testing.T) {
	e := Envelope{TaskID: "task-42"}
	got, err := Generate(e, "Work on {{.TaskID}} carefully.")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Prompt != "Work on task-42 carefully." {
		t.Errorf("Prompt = %q, unexpected", got.Prompt)
	}
}

func TestGenerateSupportsSprigFuncs(t *testing.T) {
	e := Envelope{TaskID: "abcdefgh-1234"}
	got, err := Generate(e, "{{.TaskID | trunc 8}}")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Prompt != "abcdefgh" {
		t.Errorf("Prompt = %q, want truncated task id", got.Prompt)
	}
}

func TestGenerateRejectsMalformedTemplate(t *testing.T) {
	if _, err := Generate(Envelope{}, "{{ .Unclosed"); err == nil {
		t.Error("Generate() = nil error, want a parse error for malformed template")
	}
}

func TestHeredocCommandEmbedsPayloadBetweenMatchingDelimiters(t *testing.T) {
	e := Envelope{TaskID: "task-1", Agent: "claude", ClaimedAt: time.Now().UTC()}
	cmd, err := HeredocCommand("claude", []string{"--dangerously-skip-permissions"}, e)
	if err != nil {
		t.Fatalf("HeredocCommand: %v", err)
	}

	if !strings.HasPrefix(cmd, "claude --dangerously-skip-permissions <<'") {
		t.Fatalf("HeredocCommand() = %q, missing expected prefix", cmd)
	}

	lines := strings.Split(cmd, "\n")
	first := lines[0]
	openIdx := strings.Index(first, "<<'") + 3
	delim := first[openIdx : len(first)-1]

	last := lines[len(lines)-1]
	if last != delim {
		t.Errorf("closing delimiter = %q, want %q", last, delim)
	}

	payload := strings.Join(lines[1:len(lines)-1], "\n")
	var decoded Envelope
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload did not decode as JSON: %v", err)
	}
	if decoded.TaskID != "task-1" || decoded.Agent != "claude" {
		t.Errorf("decoded envelope = %+v, unexpected", decoded)
	}
}

func TestHeredocCommandDelimiterNeverAppearsInPayload(t *testing.T) {
	e := Envelope{TaskID: "task-1", Prompt: "contains VILLAGE_CONTRACT_ in free text"}
	cmd, err := HeredocCommand("claude", nil, e)
	if err != nil {
		t.Fatalf("HeredocCommand: %v", err)
	}
	lines := strings.Split(cmd, "\n")
	delim := lines[len(lines)-1]
	payload := strings.Join(lines[1:len(lines)-1], "\n")
	if strings.Count(payload, delim) != 0 {
		t.Errorf("payload unexpectedly contains the chosen delimiter %q", delim)
	}
}
