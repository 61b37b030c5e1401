package main

import (
	"fmt"
	"io"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/packfile"
	"github.com/mycroft/mg/internal/errutil"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newUnpackObjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack-objects PACK-FILE",
		Short: "explode every object in a pack into loose objects",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return unpackObjectsCmd(cmd.OutOrStdout(), args[0])
	}

	return cmd
}

func unpackObjectsCmd(out io.Writer, packPath string) (err error) {
	r, err := loadRepository()
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	pack, err := packfile.NewFromFileWithBackend(afero.NewOsFs(), packPath, r.Backend())
	if err != nil {
		return xerrors.Errorf("could not open %s: %w", packPath, err)
	}
	defer func() {
		if cerr := pack.Close(); err == nil {
			err = cerr
		}
	}()

	count := 0
	walkErr := pack.WalkOids(func(oid ginternals.Oid) error {
		o, gErr := pack.GetObject(oid)
		if gErr != nil {
			return xerrors.Errorf("could not materialize %s: %w", oid.String(), gErr)
		}
		if _, wErr := r.Backend().WriteObject(o); wErr != nil {
			return xerrors.Errorf("could not persist %s: %w", oid.String(), wErr)
		}
		count++
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	fmt.Fprintf(out, "unpacked %d objects\n", count)
	return nil
}
