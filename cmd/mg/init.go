package main

import (
	"io"
	"os"

	mg "github.com/mycroft/mg"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "create an empty repository",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		return initCmd(cmd.OutOrStdout(), dir)
	}

	return cmd
}

func initCmd(out io.Writer, directory string) error {
	if directory == "" {
		directory = os.Getenv("REPO_PATH")
	}
	if directory == "" {
		pwd, err := os.Getwd()
		if err != nil {
			return err
		}
		directory = pwd
	}
	if err := os.MkdirAll(directory, 0o750); err != nil {
		return err
	}

	r, err := mg.InitRepository(directory)
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // best-effort on the reporting path

	fprintln(out, "Initialized empty repository in", directory)
	return nil
}
