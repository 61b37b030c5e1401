package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/mycroft/mg/internal/errutil"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "record changes to the repository",
	}

	message := cmd.Flags().StringP("message", "m", "", "use the given message as the commit message")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if *message == "" {
			return errors.New("a commit message is required, use -m")
		}
		return commitCmd(cmd.OutOrStdout(), *message)
	}

	return cmd
}

func commitCmd(out io.Writer, message string) (err error) {
	r, err := loadRepository()
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	commit, err := r.Commit(message)
	if err != nil {
		return err
	}

	branch, err := r.CurrentBranch()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "[%s %s] %s\n", branch, commit.ID().String()[:7], message)
	return nil
}
