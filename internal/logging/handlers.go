// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
)

type FileHandler struct {
	slog.Handler
	logFile *os.File
}

// CliHandler renders records on the terminal via pterm, gated by the shared level
type CliHandler struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
}

const (
	componentAttributeName = "component"
	componentName          = "dcos-ci"
)

// NewFileHandler initializes the log file at the given path and creates an slog handler logging to this file
func NewFileHandler(filePath string) HandlerBuilder {
	return func(levelVar *slog.LevelVar) SlogHandler {
		logFile := InitializeLogFile(filePath)
		options := &slog.HandlerOptions{
			Level:       levelVar,
			AddSource:   true,
			ReplaceAttr: ReplaceSourceFilePath,
		}
		componentAttribute := slog.String(componentAttributeName, componentName)

		return &FileHandler{
			Handler: slog.NewJSONHandler(logFile, options).WithAttrs([]slog.Attr{componentAttribute}),
			logFile: logFile,
		}
	}
}

func NewCliHandler() HandlerBuilder {
	return func(levelVar *slog.LevelVar) SlogHandler {
		logger := pterm.DefaultLogger.
			WithLevel(pterm.LogLevelTrace).
			WithMaxWidth(pterm.GetTerminalWidth())

		return &CliHandler{
			handler:  pterm.NewSlogHandler(logger),
			levelVar: levelVar,
		}
	}
}

// Flush writes pending changes to the log file
func (h *FileHandler) Flush() {
	if h.logFile == nil {
		return
	}

	if err := h.logFile.Sync(); err != nil {
		log.Fatal(err)
	}
}

// Close closes the log file and removes the file handle
func (h *FileHandler) Close() {
	if h.logFile == nil {
		return
	}

	if err := h.logFile.Close(); err != nil {
		log.Fatal(err)
	}

	h.logFile = nil
}

func (h *CliHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.levelVar.Level()
}

func (h *CliHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.handler.Handle(ctx, record)
}

func (h *CliHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CliHandler{handler: h.handler.WithAttrs(attrs), levelVar: h.levelVar}
}

func (h *CliHandler) WithGroup(name string) slog.Handler {
	return &CliHandler{handler: h.handler.WithGroup(name), levelVar: h.levelVar}
}

// Flush does nothing
func (h *CliHandler) Flush() { /*empty*/ }

// Close does nothing
func (h *CliHandler) Close() { /*empty*/ }
