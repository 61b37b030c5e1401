package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	mg "github.com/mycroft/mg"
	"github.com/mycroft/mg/ginternals"
	"golang.org/x/xerrors"
)

func loadRepository() (*mg.Repository, error) {
	root := os.Getenv("REPO_PATH")
	if root == "" {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = pwd
	}
	r, err := mg.OpenRepository(root)
	if err != nil {
		if errors.Is(err, mg.ErrRepositoryNotExist) {
			return nil, fmt.Errorf("not a %s repository: %s", "mg", root)
		}
		return nil, err
	}
	return r, nil
}

// resolveOid resolves name as an object id, falling back to a branch
// name under refs/heads if it isn't one
func resolveOid(r *mg.Repository, name string) (ginternals.Oid, error) {
	oid, err := ginternals.NewOidFromStr(name)
	if err == nil {
		return oid, nil
	}

	toTry := []string{name, "refs/heads/" + name}
	for _, refName := range toTry {
		ref, err := r.Backend().Reference(refName)
		if err == nil {
			return ref.Target(), nil
		}
		if !errors.Is(err, ginternals.ErrRefNotFound) {
			return ginternals.NullOid, xerrors.Errorf("could not check if ref %s exists: %w", refName, err)
		}
	}

	return ginternals.NullOid, xerrors.Errorf("not a valid object name %s", name)
}

func fprintln(out io.Writer, a ...interface{}) {
	fmt.Fprintln(out, a...)
}
