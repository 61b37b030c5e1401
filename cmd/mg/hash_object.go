package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mycroft/mg/ginternals/object"
	"github.com/mycroft/mg/internal/errutil"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newHashObjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object FILE",
		Short: "compute the object id and optionally write it to the object store",
		Args:  cobra.ExactArgs(1),
	}

	typ := cmd.Flags().StringP("type", "t", "blob", "specify the object type")
	write := cmd.Flags().BoolP("write", "w", false, "actually write the object to the object database")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return hashObjectCmd(cmd.OutOrStdout(), args[0], *typ, *write)
	}

	return cmd
}

func hashObjectCmd(out io.Writer, filePath, typ string, write bool) (err error) {
	r, err := loadRepository()
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	if cerr := r.CheckPathInRepo(filePath); cerr != nil {
		return cerr
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	var o *object.Object
	switch typ {
	case object.TypeBlob.String():
		o = object.New(object.TypeBlob, content)
	case object.TypeCommit.String():
		o = object.New(object.TypeCommit, content)
		if _, err = o.AsCommit(); err != nil {
			return xerrors.Errorf("invalid commit file: %w", err)
		}
	case object.TypeTree.String():
		o = object.New(object.TypeTree, content)
		if _, err = o.AsTree(); err != nil {
			return xerrors.Errorf("invalid tree file: %w", err)
		}
	default:
		return xerrors.Errorf("unsupported object type %s", typ)
	}

	if write {
		if _, err := r.Backend().WriteObject(o); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, o.ID().String())
	return nil
}
