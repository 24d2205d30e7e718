// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"errors"
	"fmt"
	"log/slog"
	bos "os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ekmixon/dcos-cli/internal/os"
)

const logFileName = "dcos-ci.log"

func SetVerbosity(verbosity string, levelVar *slog.LevelVar) error {
	level, err := parseLevel(verbosity)
	if err != nil {
		return err
	}

	levelVar.Set(level)

	slog.Info("logger level set", "level", level)

	return nil
}

// DefaultLogFilePath returns the log file path used when none is configured
func DefaultLogFilePath() string {
	return filepath.Join(bos.TempDir(), "dcos-ci", logFileName)
}

func LevelToLowerString(level slog.Level) string {
	return strings.ToLower(level.String())
}

func ReplaceSourceFilePath(_ []string, attribute slog.Attr) slog.Attr {
	if attribute.Key == slog.SourceKey {
		if source, ok := attribute.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	}
	return attribute
}

func parseLevel(input string) (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(input)); err != nil {
		parsedLevel, intErr := strconv.Atoi(input)
		if intErr != nil {
			return level, fmt.Errorf("cannot convert '%s' to log level: %w", input, errors.Join(err, intErr))
		}
		level = slog.Level(parsedLevel)
	}

	return level, nil
}

// InitializeLogFile creates the log directory and file if not existing
// Returns the log file handle
// path - The log file path
func InitializeLogFile(path string) *bos.File {
	dir := filepath.Dir(path)

	if err := os.CreateDirIfNotExisting(dir); err != nil {
		panic(err)
	}

	logFile, err := bos.OpenFile(
		path,
		bos.O_APPEND|bos.O_CREATE|bos.O_WRONLY,
		0644,
	)
	if err != nil {
		panic(err)
	}

	return logFile
}
