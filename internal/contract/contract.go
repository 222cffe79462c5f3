// Package contract builds the JSON envelope injected into a worker's tmux
// pane and the heredoc command that delivers it.
package contract

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"

	"github.com/loomwork/village/internal/villageerr"
)

// Envelope is the payload handed to the agent process inside its pane.
type Envelope struct {
	TaskID       string    `json:"task_id"`
	Agent        string    `json:"agent"`
	WorktreePath string    `json:"worktree_path"`
	GitRoot      string    `json:"git_root"`
	WindowName   string    `json:"window_name"`
	ClaimedAt    time.Time `json:"claimed_at"`
	Prompt       string    `json:"prompt,omitempty"`
}

// Generate builds the envelope for one resume action. preambleTemplate may
// contain {{.TaskID}}-style placeholders and sprig helper functions
// (e.g. {{.TaskID | trunc 8}}); a template with no placeholders behaves as
// a literal string, matching the common case.
func Generate(e Envelope, preambleTemplate string) (Envelope, error) {
	if preambleTemplate == "" {
		return e, nil
	}
	tmpl, err := template.New("preamble").Funcs(sprig.TxtFuncMap()).Parse(preambleTemplate)
	if err != nil {
		return e, villageerr.Wrap(villageerr.Config, "parsing preamble template", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, e); err != nil {
		return e, villageerr.Wrap(villageerr.Config, "rendering preamble template", err)
	}
	e.Prompt = buf.String()
	return e, nil
}

// HeredocCommand builds the shell-ready command that, when sent to a tmux
// pane via send-keys, pipes the envelope's JSON encoding into agentCmd's
// stdin via a heredoc. The delimiter is randomized and checked against the
// payload so a task prompt can never prematurely terminate the heredoc.
func HeredocCommand(agentCmd string, agentArgs []string, e Envelope) (string, error) {
	payload, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", villageerr.Wrap(villageerr.SubprocessFailure, "encoding contract", err)
	}

	delim, err := uniqueDelimiter(string(payload))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(agentCmd)
	for _, a := range agentArgs {
		b.WriteString(" ")
		b.WriteString(a)
	}
	fmt.Fprintf(&b, " <<'%s'\n%s\n%s", delim, payload, delim)
	return b.String(), nil
}

// uniqueDelimiter returns a heredoc delimiter guaranteed not to appear
// inside payload, retrying with a fresh random suffix on the (astronomically
// unlikely) chance of collision.
func uniqueDelimiter(payload string) (string, error) {
	for attempt := 0; attempt < 8; attempt++ {
		var buf [6]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", villageerr.Wrap(villageerr.SubprocessFailure, "generating heredoc delimiter", err)
		}
		delim := "VILLAGE_CONTRACT_" + strings.ToUpper(hex.EncodeToString(buf[:]))
		if !strings.Contains(payload, delim) {
			return delim, nil
		}
	}
	return "", villageerr.New(villageerr.SubprocessFailure, "could not generate a safe heredoc delimiter")
}
