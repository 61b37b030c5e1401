package ginternals

import (
	"bytes"

	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

// INI section/key names used in .git/config
const (
	CfgCore                = "core"
	CfgCoreFormatVersion    = "repositoryformatversion"
	CfgCoreFileMode         = "filemode"
	CfgCoreBare             = "bare"
	CfgCoreLogAllRefUpdate  = "logallrefupdates"
	CfgCoreIgnoreCase       = "ignorecase"
	CfgCorePrecomposeUnicode = "precomposeunicode"
)

// Config represents the content of a repository's .git/config file
type Config struct {
	file *ini.File
}

// DefaultConfig returns the configuration written by Init, matching
// the defaults of a freshly created repository.
func DefaultConfig() *Config {
	f := ini.Empty()
	core, _ := f.NewSection(CfgCore) //nolint:errcheck // NewSection never fails on ini.Empty()
	values := map[string]string{
		CfgCoreFormatVersion:    "0",
		CfgCoreFileMode:         "true",
		CfgCoreBare:             "false",
		CfgCoreLogAllRefUpdate:  "true",
		CfgCoreIgnoreCase:       "true",
		CfgCorePrecomposeUnicode: "true",
	}
	for k, v := range values {
		_, _ = core.NewKey(k, v) //nolint:errcheck // NewKey never fails here
	}
	return &Config{file: f}
}

// LoadConfig reads a config file from the given path
func LoadConfig(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, xerrors.Errorf("could not load config at %s: %w", path, err)
	}
	return &Config{file: f}, nil
}

// LoadConfigBytes parses a config file already read into memory -
// used by backends that store the repository on a virtual filesystem
func LoadConfigBytes(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, xerrors.Errorf("could not parse config: %w", err)
	}
	return &Config{file: f}, nil
}

// Save persists the config to the given path
func (c *Config) Save(path string) error {
	if err := c.file.SaveTo(path); err != nil {
		return xerrors.Errorf("could not save config to %s: %w", path, err)
	}
	return nil
}

// Bytes renders the config the way it would be written to disk
func (c *Config) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.file.WriteTo(&buf); err != nil {
		return nil, xerrors.Errorf("could not render config: %w", err)
	}
	return buf.Bytes(), nil
}

// Bool returns the boolean value of a key in a section, or def if the
// key is absent
func (c *Config) Bool(section, key string, def bool) bool {
	sec := c.file.Section(section)
	if sec == nil || !sec.HasKey(key) {
		return def
	}
	return sec.Key(key).MustBool(def)
}

// String returns the string value of a key in a section, or def if the
// key is absent
func (c *Config) String(section, key, def string) string {
	sec := c.file.Section(section)
	if sec == nil || !sec.HasKey(key) {
		return def
	}
	return sec.Key(key).MustString(def)
}

// Set sets a key in a section, creating both if needed
func (c *Config) Set(section, key, value string) error {
	sec, err := c.file.GetSection(section)
	if err != nil {
		sec, err = c.file.NewSection(section)
		if err != nil {
			return xerrors.Errorf("could not create section %s: %w", section, err)
		}
	}
	if _, err := sec.NewKey(key, value); err != nil {
		return xerrors.Errorf("could not set %s.%s: %w", section, key, err)
	}
	return nil
}
