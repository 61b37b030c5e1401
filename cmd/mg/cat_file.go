package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mycroft/mg/ginternals/object"
	"github.com/mycroft/mg/internal/errutil"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var errBadFile = errors.New("bad file")

type catFileParams struct {
	typeOnly    bool
	sizeOnly    bool
	prettyPrint bool
	objectName  string
	typ         string
}

func newCatFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file [TYPE] OBJECT",
		Short: "provide content or type and size information for repository objects",
		Args:  cobra.RangeArgs(1, 2),
	}

	typeOnly := cmd.Flags().BoolP("t", "t", false, "show the object type")
	sizeOnly := cmd.Flags().BoolP("s", "s", false, "show the object size")
	prettyPrint := cmd.Flags().BoolP("p", "p", false, "pretty-print the contents of the object")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p := catFileParams{
			typeOnly:    *typeOnly,
			sizeOnly:    *sizeOnly,
			prettyPrint: *prettyPrint,
			objectName:  args[0],
		}
		if len(args) == 2 {
			p.typ = args[0]
			p.objectName = args[1]
		}
		return catFileCmd(cmd.OutOrStdout(), p)
	}
	return cmd
}

func catFileCmd(out io.Writer, p catFileParams) (err error) {
	if p.typ != "" && (p.typeOnly || p.sizeOnly || p.prettyPrint) {
		return errors.New("type not supported with options -t, -s, -p")
	}
	if p.typ == "" && !p.typeOnly && !p.sizeOnly && !p.prettyPrint {
		return errors.New("type and object required")
	}

	r, err := loadRepository()
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	oid, err := resolveOid(r, p.objectName)
	if err != nil {
		return err
	}

	o, err := r.Backend().Object(oid)
	if err != nil {
		return err
	}

	if p.typ != "" {
		if _, err := object.NewTypeFromString(p.typ); err != nil {
			return xerrors.Errorf("%s: %w", p.typ, err)
		}
		if o.Type().String() != p.typ {
			return xerrors.Errorf("%s: %w", p.objectName, errBadFile)
		}
	}

	switch {
	case p.sizeOnly:
		fmt.Fprintln(out, strconv.Itoa(o.Size()))
	case p.typeOnly:
		fmt.Fprintln(out, o.Type().String())
	case p.prettyPrint:
		return prettyPrintObject(out, o)
	default:
		fmt.Fprint(out, string(o.Bytes()))
	}
	return nil
}

func prettyPrintObject(out io.Writer, o *object.Object) error {
	switch o.Type() {
	case object.TypeCommit:
		c, err := o.AsCommit()
		if err != nil {
			return xerrors.Errorf("could not get commit: %w", err)
		}
		fmt.Fprintf(out, "tree %s\n", c.TreeID().String())
		if c.HasParent() {
			fmt.Fprintf(out, "parent %s\n", c.ParentID().String())
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, c.Message())
	case object.TypeTree:
		tree, err := o.AsTree()
		if err != nil {
			return xerrors.Errorf("could not get tree: %w", err)
		}
		fmt.Fprint(out, tree.Render())
	case object.TypeBlob:
		fmt.Fprint(out, string(o.Bytes()))
	default:
		return xerrors.Errorf("pretty-print not supported for type %s", o.Type().String())
	}
	return nil
}
