package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONWrapsPayloadInEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, "ready", map[string]bool{"ok": true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Command != "ready" || decoded.Version != 1 {
		t.Errorf("envelope = %+v, unexpected", decoded)
	}
}

func TestTableAlignsOnLongestName(t *testing.T) {
	var buf bytes.Buffer
	Table(&buf, []Field{
		{Name: "short", Value: "1"},
		{Name: "a much longer name", Value: "2"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Table() produced %d lines, want 2", len(lines))
	}
	shortValueCol := strings.Index(lines[0], "1")
	longValueCol := strings.Index(lines[1], "2")
	if shortValueCol != longValueCol {
		t.Errorf("values are not column-aligned: %q vs %q", lines[0], lines[1])
	}
}
