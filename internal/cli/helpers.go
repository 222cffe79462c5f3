package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/loomwork/village/internal/villageerr"
)

// configErrorList joins several validation errors into one *villageerr.Error
// of kind Config, the shape the command surface expects to translate to an
// exit code.
func configErrorList(errs []error) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return villageerr.New(villageerr.Config, strings.Join(msgs, "; "))
}

// exitForError prints err to stderr and exits with the code its Kind maps
// to. The only other os.Exit call site is `queue`, whose exit code encodes
// a batch outcome (partial success) rather than a single error's Kind.
func exitForError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(villageerr.KindOf(err).ExitCode())
}
