package testutils

import (
	"bytes"
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// Execute runs root with args, feeding stdin and capturing stdout and stderr.
func Execute(root *cobra.Command, stdin string, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
