package main

import (
	"os"

	seagentcmder "github.com/papercomputeco/seagent/cmd/seagent"
)

func main() {
	cmd := seagentcmder.NewSeagentCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
