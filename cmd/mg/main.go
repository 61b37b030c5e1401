package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if cmd, err := root.ExecuteC(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to %s: %v\n", cmd.Name(), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mg",
		Short:         "a minimal content-addressed version control system",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// porcelain
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newCommitCmd())
	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newShowCmd())

	// plumbing
	cmd.AddCommand(newCatFileCmd())
	cmd.AddCommand(newHashObjectCmd())
	cmd.AddCommand(newLsTreeCmd())
	cmd.AddCommand(newUpdateIndexCmd())
	cmd.AddCommand(newUnpackObjectsCmd())
	cmd.AddCommand(newVerifyPackCmd())

	return cmd
}
