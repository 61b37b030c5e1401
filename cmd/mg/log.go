package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mycroft/mg/internal/errutil"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "show commit history",
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return logCmd(cmd.OutOrStdout())
	}

	return cmd
}

func logCmd(out io.Writer) (err error) {
	r, err := loadRepository()
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	commits, err := r.Log()
	if err != nil {
		return err
	}

	for _, c := range commits {
		firstLine := strings.SplitN(c.Message(), "\n", 2)[0]
		fmt.Fprintf(out, "%s %s\n", c.ID().String(), firstLine)
	}
	return nil
}
