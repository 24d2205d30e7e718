// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package logging

import (
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
	"github.com/samber/lo"
)

type SlogHandler interface {
	slog.Handler
	Flush()
	Close()
}

type HandlerBuilder func(levelVar *slog.LevelVar) SlogHandler

// Slogger fans out every record to a changeable set of handlers sharing one level.
type Slogger struct {
	Logger   *slog.Logger
	levelVar *slog.LevelVar
	handlers []SlogHandler
}

func NewSlogger() *Slogger {
	return &Slogger{
		Logger:   slog.Default(),
		levelVar: new(slog.LevelVar),
	}
}

// SetHandlers flushes and closes the current handlers and replaces them with the given ones
func (s *Slogger) SetHandlers(builders ...HandlerBuilder) *Slogger {
	s.Flush()
	s.Close()

	s.handlers = lo.Map(builders, func(build HandlerBuilder, _ int) SlogHandler {
		return build(s.levelVar)
	})

	slogHandlers := lo.Map(s.handlers, func(handler SlogHandler, _ int) slog.Handler {
		return handler
	})

	s.Logger = slog.New(slogmulti.Fanout(slogHandlers...))
	return s
}

func (s *Slogger) SetGlobally() *Slogger {
	slog.SetDefault(s.Logger)
	return s
}

func (s *Slogger) SetVerbosity(verbosity string) error {
	return SetVerbosity(verbosity, s.levelVar)
}

func (s *Slogger) Flush() {
	for _, handler := range s.handlers {
		handler.Flush()
	}
}

func (s *Slogger) Close() {
	for _, handler := range s.handlers {
		handler.Close()
	}
}
