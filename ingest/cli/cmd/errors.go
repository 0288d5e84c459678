package cmd

import "github.com/asbrown77/bagile-platform-sub001/ingest/cli/pkg/output"

func printError(err error) {
	output.Error("%v", err)
}
