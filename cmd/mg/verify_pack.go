package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/packfile"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newVerifyPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-pack IDX-FILE",
		Short: "list every object recorded in a pack index",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return verifyPackCmd(cmd.OutOrStdout(), args[0])
	}

	return cmd
}

func verifyPackCmd(out io.Writer, idxPath string) (err error) {
	f, err := os.Open(idxPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	idx, err := packfile.NewIndex(bufio.NewReader(f))
	if err != nil {
		return xerrors.Errorf("could not read %s: %w", idxPath, err)
	}

	packPath := strings.TrimSuffix(idxPath, ".idx") + ".pack"
	_, statErr := os.Stat(packPath)
	hasPack := statErr == nil

	walkErr := idx.WalkOids(func(oid ginternals.Oid) error {
		offset, oErr := idx.GetObjectOffset(oid)
		if oErr != nil {
			return oErr
		}
		crc, cErr := idx.GetObjectCRC32(oid)
		if cErr != nil {
			return cErr
		}
		fmt.Fprintf(out, "%s offset: 0x%x crc32: %d\n", oid.String(), offset, crc)
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	if !hasPack {
		fmt.Fprintf(out, "%s: no matching .pack file found\n", idxPath)
	}
	return nil
}
