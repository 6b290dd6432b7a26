package util

import (
	"path/filepath"

	"gopkg.in/ini.v1"
)

// ini files live in a config directory next to the binary
const configDir = "config"

// Ini loads the named ini file and returns the keys of its unnamed section.
// A missing file is an error; callers treat that as "no config".
func Ini(name string) (map[string]string, error) {
	cfg, err := ini.Load(filepath.Join(configDir, name))
	if err != nil {
		return nil, err
	}
	return cfg.Section("").KeysHash(), nil
}
