package main

import (
	"os"

	"github.com/loomwork/village/internal/cli"
	"github.com/loomwork/village/internal/villageerr"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(villageerr.KindOf(err).ExitCode())
	}
}
