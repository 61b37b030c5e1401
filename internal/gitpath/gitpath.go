// Package gitpath contains consts to work with paths inside the
// metadata directory of a repository
package gitpath

import "os"

// .git/ files and directories
const (
	DotGitPath      = ".git"
	ConfigPath      = "config"
	DescriptionPath = "description"
	PackedRefsPath  = "packed-refs"
	HEADPath        = "HEAD"
	IndexPath       = "index"
	ObjectsPath     = "objects"
	ObjectsInfoPath = ObjectsPath + string(os.PathSeparator) + "info"
	ObjectsPackPath = ObjectsPath + string(os.PathSeparator) + "pack"
	RefsPath        = "refs"
	RefsTagsPath    = RefsPath + "/tags"
	RefsHeadsPath   = RefsPath + "/heads"
	RefsRemotesPath = RefsPath + "/remotes"
)
