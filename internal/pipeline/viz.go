package pipeline

import (
	"fmt"
	"strings"

	"github.com/loomwork/village/internal/config"
)

// Render draws the concern DAG as an ASCII tree rooted at each concern
// that watches "completed", in the teacher's printGraph/printBranch style.
func Render(cfg *config.Config) string {
	downstream := cfg.BuildDownstreamMap()
	roots := cfg.FindRoots()

	var b strings.Builder
	b.WriteString("completed\n")
	for i, root := range roots {
		last := i == len(roots)-1
		printBranch(&b, root, downstream, "", last)
	}
	return b.String()
}

func printBranch(b *strings.Builder, name string, downstream map[string][]string, prefix string, last bool) {
	connector := "├── "
	nextPrefix := prefix + "│   "
	if last {
		connector = "└── "
		nextPrefix = prefix + "    "
	}
	fmt.Fprintf(b, "%s%s%s\n", prefix, connector, name)

	children := downstream[name]
	for i, child := range children {
		printBranch(b, child, downstream, nextPrefix, i == len(children)-1)
	}
}
