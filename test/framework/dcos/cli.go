// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package dcos

import (
	"context"
	"strings"
	"time"

	//lint:ignore ST1001 test framework code
	. "github.com/onsi/gomega"

	"github.com/ekmixon/dcos-cli/internal/cluster"
	"github.com/ekmixon/dcos-cli/internal/os"
)

type ExitCode int

const (
	ExitCodeSuccess ExitCode = 0
	ExitCodeFailure ExitCode = 1
)

type Executor interface {
	Execute(ctx context.Context, request os.ExecutionRequest) (*os.ExecutionResult, error)
}

type CliRunner struct {
	cliPath  string
	executor Executor
	timeout  time.Duration
	env      map[string]string
}

func NewCli(cliPath string, executor Executor, timeout time.Duration) *CliRunner {
	return &CliRunner{
		cliPath:  cliPath,
		executor: executor,
		timeout:  timeout,
	}
}

// For returns a runner whose calls target the given cluster
func (r *CliRunner) For(handle *cluster.Handle) *CliRunner {
	return &CliRunner{
		cliPath:  r.cliPath,
		executor: r.executor,
		timeout:  r.timeout,
		env:      handle.Env(),
	}
}

// Run returns stdout and exit code; it fails only when the client could not be run to completion
func (r *CliRunner) Run(ctx context.Context, cliArgs ...string) (string, int) {
	result, err := r.executor.Execute(ctx, os.ExecutionRequest{
		Command: append([]string{r.cliPath}, cliArgs...),
		Env:     r.env,
		Timeout: r.timeout,
	})

	Expect(err).ToNot(HaveOccurred())

	return result.StdOut, result.ExitCode
}

// RunOrFail is a convenience wrapper around the dcos client
func (r *CliRunner) RunOrFail(ctx context.Context, cliArgs ...string) string {
	return r.RunWithExitCode(ctx, ExitCodeSuccess, cliArgs...)
}

func (r *CliRunner) RunWithExitCode(ctx context.Context, expectedExitCode ExitCode, cliArgs ...string) string {
	output, exitCode := r.Run(ctx, cliArgs...)

	Expect(exitCode).To(Equal(int(expectedExitCode)), "Command '%s %s' exited with unexpected exit code", r.cliPath, strings.Join(cliArgs, " "))

	return output
}

// Path returns the file path of the client binary
func (r *CliRunner) Path() string {
	return r.cliPath
}
