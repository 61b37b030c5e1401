package main

import (
	"fmt"
	"io"

	"github.com/mycroft/mg/ginternals/object"
	"github.com/mycroft/mg/internal/errutil"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newLsTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree TREE-ISH",
		Short: "list the contents of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return lsTreeCmd(cmd.OutOrStdout(), args[0])
	}

	return cmd
}

func lsTreeCmd(out io.Writer, name string) (err error) {
	r, err := loadRepository()
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	oid, err := resolveOid(r, name)
	if err != nil {
		return err
	}

	o, err := r.Backend().Object(oid)
	if err != nil {
		return err
	}

	var tree *object.Tree
	switch o.Type() {
	case object.TypeTree:
		tree, err = o.AsTree()
	case object.TypeCommit:
		var c *object.Commit
		c, err = o.AsCommit()
		if err == nil {
			var treeObj *object.Object
			treeObj, err = r.Backend().Object(c.TreeID())
			if err == nil {
				tree, err = treeObj.AsTree()
			}
		}
	default:
		return xerrors.Errorf("%s is not a tree-ish: %w", name, object.ErrObjectInvalid)
	}
	if err != nil {
		return err
	}

	fmt.Fprint(out, tree.Render())
	return nil
}
