// Package render is the shared JSON/text output envelope for every
// command: {"command": "...", "version": 1, ...}. Go's encoding/json
// already emits map keys in sorted order and struct fields in declaration
// order, so no extra sorting pass is needed for "stable key order" output.
package render

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope wraps a command's JSON payload with its name and schema version.
type Envelope struct {
	Command string      `json:"command"`
	Version int         `json:"version"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON writes cmd's payload to w as a single indented JSON object.
func JSON(w io.Writer, cmd string, data interface{}) error {
	env := Envelope{Command: cmd, Version: 1, Data: data}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// Field is one row of aligned text table output.
type Field struct {
	Name  string
	Value string
}

// Table writes rows as left-aligned "name: value" pairs to w.
func Table(w io.Writer, rows []Field) {
	width := 0
	for _, r := range rows {
		if n := len(r.Name) + 1; n > width {
			width = n
		}
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s  %s\n", width, r.Name+":", r.Value)
	}
}
