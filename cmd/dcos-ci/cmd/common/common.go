// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/ekmixon/dcos-cli/internal/cli"
	"github.com/ekmixon/dcos-cli/internal/config"
	"github.com/ekmixon/dcos-cli/internal/logging"
)

type FailureSeverity uint8
type ContextKey string

// CmdFailure is an expected command failure, printed without stack of wrapped errors
type CmdFailure struct {
	Severity FailureSeverity
	Code     string
	Message  string
	ExitCode cli.ExitCode
}

type CmdContext struct {
	config *config.Config
	logger *logging.Slogger
}

const (
	CliName = "dcos-ci"

	SeverityWarning FailureSeverity = 3
	SeverityError   FailureSeverity = 4

	ContextKeyCmdContext ContextKey = "cmd-context"
)

var ErrMissingCmdContext = errors.New("command context not initialized")

func NewCmdContext(config *config.Config, logger *logging.Slogger) *CmdContext {
	return &CmdContext{config: config, logger: logger}
}

func (c *CmdContext) Config() *config.Config {
	return c.config
}

func (c *CmdContext) Logger() *logging.Slogger {
	return c.logger
}

// FromContext returns the command context set by the root command
func FromContext(ctx context.Context) (*CmdContext, error) {
	cmdContext, ok := ctx.Value(ContextKeyCmdContext).(*CmdContext)
	if !ok {
		return nil, ErrMissingCmdContext
	}
	return cmdContext, nil
}

func (c *CmdFailure) Error() string {
	return fmt.Sprintf("%s: %s", c.Code, c.Message)
}

func (s FailureSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}
