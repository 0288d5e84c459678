package main

import (
	"os"

	"github.com/asbrown77/bagile-platform-sub001/ingest/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
