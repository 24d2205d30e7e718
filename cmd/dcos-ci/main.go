// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd"
	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd/common"
	"github.com/ekmixon/dcos-cli/internal/cli"
	"github.com/ekmixon/dcos-cli/internal/logging"
)

func main() {
	exitCode := cli.ExitCodeSuccess

	logger := logging.NewSlogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	defer func() {
		if err := recover(); err != nil {
			exitCode = cli.ExitCodeFailure
			handleUnexpectedError(err)
		}

		stop()
		logger.Flush()
		logger.Close()
		os.Exit(int(exitCode))
	}()

	err := cmd.CreateRootCmd(logger).ExecuteContext(ctx)
	if err == nil {
		return
	}

	exitCode = cli.ExitCodeFailure

	var cmdFailure *common.CmdFailure
	if !errors.As(err, &cmdFailure) {
		handleUnexpectedError(err)
		return
	}

	if cmdFailure.ExitCode != cli.ExitCodeSuccess {
		exitCode = cmdFailure.ExitCode
	}

	switch cmdFailure.Severity {
	case common.SeverityWarning:
		pterm.Warning.Println(cmdFailure.Message)
	case common.SeverityError:
		pterm.Error.Println(cmdFailure.Message)
	default:
		slog.Warn("unknown cmd failure severity", "severity", cmdFailure.Severity)
	}

	slog.Error("command failed",
		"severity", fmt.Sprintf("%d(%s)", cmdFailure.Severity, cmdFailure.Severity),
		"code", cmdFailure.Code,
		"message", cmdFailure.Message)
}

func handleUnexpectedError(err any) {
	pterm.Error.Println(fmt.Errorf("%v", err))

	slog.Error("unexpected error", "error", err)
}
