// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package os

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/onsi/gomega/gexec"
	"github.com/shirou/gopsutil/v3/process"
)

// ExecutionRequest describes a single external process invocation.
type ExecutionRequest struct {
	// Command holds the program followed by its arguments; must not be empty
	Command []string
	// Env is the complete environment of the child; nil inherits the caller's environment
	Env map[string]string
	// Stdin is bound to the child's standard input; nil means empty input
	Stdin io.Reader
	// Timeout bounds the wall-clock runtime; zero means no bound
	Timeout time.Duration
	// Redact lists secret values masked in logs and errors; the process receives them unmodified
	Redact []string
}

// ExecutionResult is the outcome of a process that exited on its own.
// Carriage returns are stripped from both streams.
type ExecutionResult struct {
	ExitCode int
	StdOut   string
	StdErr   string
}

type SpawnError struct {
	Command []string
	Err     error
}

type TimeoutError struct {
	Command []string
	Timeout time.Duration
	Pid     int
	// StdOut and StdErr contain the output produced until termination (best-effort)
	StdOut string
	StdErr string
}

type CmdRunner struct {
	outputWriter io.Writer
	waitDelay    time.Duration
}

type CmdRunnerOption func(*CmdRunner)

const (
	defaultWaitDelay = 5 * time.Second
	redactedValue    = "***"
)

var (
	ErrEmptyCommand = errors.New("command must not be empty")
	ErrSpawn        = errors.New("process could not be started")
	ErrTimeout      = errors.New("process did not exit in time")
)

// WithOutputWriter mirrors stdout and stderr of every process to the given writer while it runs.
func WithOutputWriter(writer io.Writer) CmdRunnerOption {
	return func(r *CmdRunner) {
		r.outputWriter = writer
	}
}

// WithWaitDelay bounds how long output pipes are drained after the process has been killed.
func WithWaitDelay(delay time.Duration) CmdRunnerOption {
	return func(r *CmdRunner) {
		r.waitDelay = delay
	}
}

func NewCmdRunner(options ...CmdRunnerOption) *CmdRunner {
	runner := &CmdRunner{waitDelay: defaultWaitDelay}

	for _, option := range options {
		option(runner)
	}
	return runner
}

// Execute runs the requested process and blocks until it exits, the timeout elapses or the context is done.
// A non-zero exit code is not an error. On timeout or cancellation the process and all of its descendants
// are killed before the error is returned.
func (r *CmdRunner) Execute(ctx context.Context, request ExecutionRequest) (*ExecutionResult, error) {
	if len(request.Command) == 0 {
		return nil, ErrEmptyCommand
	}

	cmd := exec.Command(request.Command[0], request.Command[1:]...)
	cmd.Stdin = request.Stdin
	cmd.WaitDelay = r.waitDelay
	if request.Env != nil {
		cmd.Env = MapToEnv(request.Env)
	}

	logged := redact(request.Command, request.Redact)
	cmdLine := strings.Join(logged, " ")

	slog.Debug("Starting command", "command", cmdLine, "timeout", request.Timeout)

	// gexec tracks every started session globally; test suites rely on that so gexec.KillAndWait in their
	// teardown reaches processes left over by aborted specs
	session, err := gexec.Start(cmd, r.outputWriter, r.outputWriter)
	if err != nil {
		slog.Error("command could not be started", "command", cmdLine, "error", err)
		return nil, &SpawnError{Command: logged, Err: err}
	}

	var timeout <-chan time.Time
	if request.Timeout > 0 {
		timer := time.NewTimer(request.Timeout)
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case <-session.Exited:
	case <-timeout:
		terminate(session)

		stdOut, stdErr := contents(session)

		slog.Error("command timed out", "command", cmdLine, "timeout", request.Timeout, "stdout", stdOut, "stderr", stdErr)

		return nil, &TimeoutError{
			Command: logged,
			Timeout: request.Timeout,
			Pid:     cmd.Process.Pid,
			StdOut:  stdOut,
			StdErr:  stdErr,
		}
	case <-ctx.Done():
		terminate(session)

		stdOut, stdErr := contents(session)

		slog.Error("command canceled", "command", cmdLine, "stdout", stdOut, "stderr", stdErr, "error", ctx.Err())

		return nil, fmt.Errorf("command '%s' canceled: %w", cmdLine, ctx.Err())
	}

	stdOut, stdErr := contents(session)
	result := &ExecutionResult{
		ExitCode: session.ExitCode(),
		StdOut:   stdOut,
		StdErr:   stdErr,
	}

	slog.Info("command executed", "command", cmdLine, "exit-code", result.ExitCode, "stdout", result.StdOut, "stderr", result.StdErr)

	return result, nil
}

// NormalizeLineEndings removes all carriage returns; applying it twice is a no-op.
func NormalizeLineEndings(text string) string {
	return strings.ReplaceAll(text, "\r", "")
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("command '%s' could not be started: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func (e *SpawnError) Is(target error) bool {
	return target == ErrSpawn
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command '%s' did not exit within %v", strings.Join(e.Command, " "), e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// terminate kills the process tree of the session and waits for the session to exit.
// Descendants are collected before the root is killed, since they get re-parented afterwards.
func terminate(session *gexec.Session) {
	pid := session.Command.Process.Pid
	descendants := collectDescendants(int32(pid))

	slog.Debug("Killing process tree", "pid", pid, "descendants", len(descendants))

	session.Kill()

	for _, descendant := range descendants {
		if err := descendant.Kill(); err != nil {
			slog.Debug("could not kill descendant process", "pid", descendant.Pid, "error", err)
		}
	}

	<-session.Exited

	slog.Debug("Process tree terminated", "pid", pid)
}

func collectDescendants(pid int32) (descendants []*process.Process) {
	root, err := process.NewProcess(pid)
	if err != nil {
		slog.Debug("could not inspect process", "pid", pid, "error", err)
		return nil
	}

	children, err := root.Children()
	if err != nil {
		if !errors.Is(err, process.ErrorNoChildren) {
			slog.Debug("could not list child processes", "pid", pid, "error", err)
		}
		return nil
	}

	for _, child := range children {
		descendants = append(descendants, child)
		descendants = append(descendants, collectDescendants(child.Pid)...)
	}
	return descendants
}

func redact(command []string, secrets []string) []string {
	redacted := make([]string, len(command))
	for i, arg := range command {
		for _, secret := range secrets {
			if secret != "" {
				arg = strings.ReplaceAll(arg, secret, redactedValue)
			}
		}
		redacted[i] = arg
	}
	return redacted
}

func contents(session *gexec.Session) (stdOut string, stdErr string) {
	return NormalizeLineEndings(string(session.Out.Contents())), NormalizeLineEndings(string(session.Err.Contents()))
}
