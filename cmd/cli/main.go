package main

import (
	"os"

	"github.com/downfa11-org/mapped-queue/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
