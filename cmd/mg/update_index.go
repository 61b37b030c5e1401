package main

import (
	"os"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"github.com/mycroft/mg/internal/errutil"
	"github.com/spf13/cobra"
)

func newUpdateIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-index FILE...",
		Short: "register file contents in the staging index",
		Args:  cobra.MinimumNArgs(1),
	}

	add := cmd.Flags().Bool("add", false, "add the specified files, creating blobs for their content")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !*add {
			return nil
		}
		return updateIndexCmd(args)
	}

	return cmd
}

func updateIndexCmd(paths []string) (err error) {
	r, err := loadRepository()
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	idx, err := r.Backend().Index()
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := r.CheckPathInRepo(path); err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		oid, err := r.Backend().WriteObject(object.New(object.TypeBlob, content))
		if err != nil {
			return err
		}

		mtime := info.ModTime()
		idx.Add(ginternals.IndexEntry{
			MTimeSec:  uint32(mtime.Unix()), //nolint:gosec // truncation accepted, matches on-disk format width
			MTimeNano: uint32(mtime.Nanosecond()),
			Mode:      fileMode(info),
			Size:      uint32(info.Size()), //nolint:gosec // truncation accepted, matches on-disk format width
			SHA1:      oid,
			Path:      path,
		})
	}

	return r.Backend().WriteIndex(idx)
}

func fileMode(info os.FileInfo) uint32 {
	if info.Mode()&0o111 != 0 {
		return uint32(object.ModeExecutable)
	}
	return uint32(object.ModeFile)
}
