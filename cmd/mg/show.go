package main

import (
	"io"

	"github.com/mycroft/mg/internal/errutil"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [OBJECT]",
		Short: "show the textual payload of a commit, defaulting to the branch tip",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		return showCmd(cmd.OutOrStdout(), name)
	}

	return cmd
}

func showCmd(out io.Writer, name string) (err error) {
	r, err := loadRepository()
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	if name == "" {
		commit, err := r.CurrentCommit()
		if err != nil {
			return err
		}
		return prettyPrintObject(out, commit.ToObject())
	}

	oid, err := resolveOid(r, name)
	if err != nil {
		return err
	}
	o, err := r.Backend().Object(oid)
	if err != nil {
		return err
	}
	return prettyPrintObject(out, o)
}
