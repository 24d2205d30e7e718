// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package os

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	bos "os"
	"slices"
	"strings"

	"github.com/samber/lo"
)

func CreateDirIfNotExisting(path string) error {
	if PathExists(path) {
		return nil
	}
	slog.Debug("Dir not existing, creating it", "path", path)

	if err := bos.MkdirAll(path, bos.ModePerm); err != nil {
		return fmt.Errorf("could not create directory '%s': %w", path, err)
	}
	return nil
}

func PathExists(path string) bool {
	_, err := bos.Stat(path)
	if err == nil {
		slog.Debug("Path exists", "path", path)
		return true
	}

	if !errors.Is(err, fs.ErrNotExist) {
		slog.Error("could not check existence of path", "path", path, "error", err)
	}
	return false
}

func RemovePaths(paths ...string) error {
	slog.Debug("Deleting paths", "paths", paths)

	for _, path := range paths {
		if err := bos.RemoveAll(path); err != nil {
			return fmt.Errorf("could not remove '%s': %w", path, err)
		}
		slog.Debug("Path removed", "path", path)
	}
	return nil
}

// EnvToMap converts 'KEY=value' entries (e.g. from os.Environ) into a map.
// Later entries win; entries without '=' are ignored.
func EnvToMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// MapToEnv converts an env map into sorted 'KEY=value' entries.
func MapToEnv(env map[string]string) []string {
	keys := lo.Keys(env)
	slices.Sort(keys)

	return lo.Map(keys, func(key string, _ int) string {
		return key + "=" + env[key]
	})
}

// MergeEnv returns a new map containing the ambient entries overlaid with the overrides.
// Neither input is modified.
func MergeEnv(ambient []string, overrides map[string]string) map[string]string {
	return lo.Assign(EnvToMap(ambient), overrides)
}
