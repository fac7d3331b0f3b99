// Package configuration reads layered json5 config files:
// `<name>.<ext>` carries checked-in defaults, `<name>.local.<ext>`
// carries operator overrides and wins on conflicts.
package configuration

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localPath derives the override file's path: the `.local` segment
// goes between the base name and the extension.
func localPath(name string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)
	return filepath.Join(filepath.Dir(name), prefix+".local"+ext)
}

// decodeLayer reads one config file into `into`. A missing or empty
// file reports found=false without error, the layering treats it as
// absent.
func decodeLayer[T any](path string, into *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, into)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadConfig loads `name` and merges `<name>.local.<ext>` over it.
// When neither file exists the error satisfies os.IsNotExist.
func ReadConfig[T any](name string) (T, error) {
	var out T

	found, err := decodeLayer(name, &out)
	if err != nil {
		return out, err
	}

	var overrides T
	foundLocal, err := decodeLayer(localPath(name), &overrides)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, overrides, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath(name))
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks up from the cwd to the filesystem root looking
// for a directory where ReadConfig succeeds for the name.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	root, err := filepath.Abs("/")
	if err != nil {
		return defaultOut, err
	}
	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for current != root {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			current = filepath.Dir(current)
			continue
		}
		if err != nil {
			return defaultOut, err
		}
		return config, nil
	}

	return defaultOut, os.ErrNotExist
}
