// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package os_test

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/ekmixon/dcos-cli/internal/os"
)

var _ = Describe("CmdRunner", Label("integration"), func() {
	var sut *os.CmdRunner

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("process tests rely on POSIX shell utilities")
		}
		sut = os.NewCmdRunner(os.WithWaitDelay(time.Second))
	})

	Describe("Execute", func() {
		When("command is empty", func() {
			It("returns an error without spawning anything", func(ctx context.Context) {
				result, err := sut.Execute(ctx, os.ExecutionRequest{})

				Expect(err).To(MatchError(os.ErrEmptyCommand))
				Expect(result).To(BeNil())
			})
		})

		When("program does not exist", func() {
			It("returns a spawn error", func(ctx context.Context) {
				result, err := sut.Execute(ctx, os.ExecutionRequest{Command: []string{"non-existent-program-4711"}})

				Expect(err).To(MatchError(os.ErrSpawn))
				Expect(result).To(BeNil())

				var spawnErr *os.SpawnError
				Expect(errors.As(err, &spawnErr)).To(BeTrue())
				Expect(spawnErr.Command).To(Equal([]string{"non-existent-program-4711"}))
			})
		})

		When("process exits without timeout", func() {
			It("returns exit code and captured streams", func(ctx context.Context) {
				result, err := sut.Execute(ctx, os.ExecutionRequest{Command: []string{"echo", "hello"}})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.ExitCode).To(Equal(0))
				Expect(result.StdOut).To(Equal("hello\n"))
				Expect(result.StdErr).To(BeEmpty())
			})

			It("returns non-zero exit codes as data", func(ctx context.Context) {
				result, err := sut.Execute(ctx, os.ExecutionRequest{Command: []string{"sh", "-c", "echo oops >&2; exit 3"}})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.ExitCode).To(Equal(3))
				Expect(result.StdOut).To(BeEmpty())
				Expect(result.StdErr).To(Equal("oops\n"))
			})

			It("strips carriage returns from both streams", func(ctx context.Context) {
				result, err := sut.Execute(ctx, os.ExecutionRequest{Command: []string{"sh", "-c", `printf 'a\r\nb\r\n'; printf 'c\r\n' >&2`}})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.StdOut).To(Equal("a\nb\n"))
				Expect(result.StdErr).To(Equal("c\n"))
			})

			It("binds stdin", func(ctx context.Context) {
				result, err := sut.Execute(ctx, os.ExecutionRequest{
					Command: []string{"cat"},
					Stdin:   strings.NewReader("from-stdin"),
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.StdOut).To(Equal("from-stdin"))
			})

			It("uses exactly the given environment", func(ctx context.Context) {
				result, err := sut.Execute(ctx, os.ExecutionRequest{
					Command: []string{"/bin/sh", "-c", `echo "$TEST_VAR|$HOME"`},
					Env:     map[string]string{"TEST_VAR": "test-value"},
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.StdOut).To(Equal("test-value|\n"))
			})

			It("mirrors output to the configured writer", func(ctx context.Context) {
				buffer := gbytes.NewBuffer()
				sut = os.NewCmdRunner(os.WithOutputWriter(buffer))

				_, err := sut.Execute(ctx, os.ExecutionRequest{Command: []string{"echo", "mirrored"}})

				Expect(err).ToNot(HaveOccurred())
				Expect(buffer).To(gbytes.Say("mirrored"))
			})
		})

		When("secrets are redacted", func() {
			It("passes them unmodified to the process but masks them in errors", func(ctx context.Context) {
				result, err := sut.Execute(ctx, os.ExecutionRequest{
					Command: []string{"echo", "--password=s3cret"},
					Redact:  []string{"s3cret"},
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.StdOut).To(Equal("--password=s3cret\n"))

				_, err = sut.Execute(ctx, os.ExecutionRequest{
					Command: []string{"sleep", "5", "s3cret"},
					Redact:  []string{"s3cret"},
					Timeout: 50 * time.Millisecond,
				})

				Expect(err).To(MatchError(os.ErrTimeout))
				Expect(err.Error()).ToNot(ContainSubstring("s3cret"))
				Expect(err.Error()).To(ContainSubstring("***"))
			})
		})

		When("timeout elapses", func() {
			It("kills the process and returns a timeout error", func(ctx context.Context) {
				start := time.Now()

				result, err := sut.Execute(ctx, os.ExecutionRequest{
					Command: []string{"sleep", "5"},
					Timeout: 100 * time.Millisecond,
				})

				Expect(time.Since(start)).To(BeNumerically("<", 4*time.Second))
				Expect(err).To(MatchError(os.ErrTimeout))
				Expect(result).To(BeNil())

				var timeoutErr *os.TimeoutError
				Expect(errors.As(err, &timeoutErr)).To(BeTrue())
				Expect(timeoutErr.Timeout).To(Equal(100 * time.Millisecond))
				Expect(isGone(int32(timeoutErr.Pid))).To(BeTrue())
			})

			It("returns the partial output", func(ctx context.Context) {
				_, err := sut.Execute(ctx, os.ExecutionRequest{
					Command: []string{"sh", "-c", `printf 'partial\r\n'; exec sleep 5`},
					Timeout: 500 * time.Millisecond,
				})

				var timeoutErr *os.TimeoutError
				Expect(errors.As(err, &timeoutErr)).To(BeTrue())
				Expect(timeoutErr.StdOut).To(Equal("partial\n"))
			})

			It("kills descendant processes as well", func(ctx context.Context) {
				_, err := sut.Execute(ctx, os.ExecutionRequest{
					Command: []string{"sh", "-c", `sleep 30 & echo $!; wait`},
					Timeout: 500 * time.Millisecond,
				})

				var timeoutErr *os.TimeoutError
				Expect(errors.As(err, &timeoutErr)).To(BeTrue())

				grandchildPid, convErr := strconv.Atoi(strings.TrimSpace(timeoutErr.StdOut))
				Expect(convErr).ToNot(HaveOccurred())

				Eventually(func() bool { return isGone(int32(grandchildPid)) }).WithTimeout(5 * time.Second).Should(BeTrue())
			})
		})

		When("context is canceled", func() {
			It("kills the process and returns the context error", func(ctx context.Context) {
				cancelCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
				defer cancel()

				result, err := sut.Execute(cancelCtx, os.ExecutionRequest{Command: []string{"sleep", "5"}})

				Expect(err).To(MatchError(context.DeadlineExceeded))
				Expect(err).ToNot(MatchError(os.ErrTimeout))
				Expect(result).To(BeNil())
			})
		})

		When("suite teardown kills leftover processes", func() {
			It("reaches a still running process", func(ctx context.Context) {
				done := make(chan *os.ExecutionResult, 1)
				go func() {
					defer GinkgoRecover()

					result, err := sut.Execute(ctx, os.ExecutionRequest{Command: []string{"sh", "-c", "echo started; sleep 30"}})
					Expect(err).ToNot(HaveOccurred())
					done <- result
				}()

				Consistently(done).WithTimeout(300 * time.Millisecond).ShouldNot(Receive())

				gexec.KillAndWait(5 * time.Second)

				var result *os.ExecutionResult
				Eventually(done).WithTimeout(5 * time.Second).Should(Receive(&result))
				Expect(result.ExitCode).ToNot(BeZero())
				Expect(result.StdOut).To(Equal("started\n"))
			})
		})

		When("invoked concurrently", func() {
			It("keeps the results of all invocations apart", func(ctx context.Context) {
				const count = 8
				results := make([]*os.ExecutionResult, count)
				errs := make([]error, count)

				var wg sync.WaitGroup
				for i := range count {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()

						results[i], errs[i] = sut.Execute(ctx, os.ExecutionRequest{Command: []string{"echo", strconv.Itoa(i)}})
					}()
				}
				wg.Wait()

				for i := range count {
					Expect(errs[i]).ToNot(HaveOccurred())
					Expect(results[i].StdOut).To(Equal(strconv.Itoa(i) + "\n"))
				}
			})
		})
	})

	Describe("NormalizeLineEndings", Label("unit"), func() {
		It("removes carriage returns idempotently", func() {
			once := os.NormalizeLineEndings("a\r\nb\r\n\r")
			twice := os.NormalizeLineEndings(once)

			Expect(once).To(Equal("a\nb\n"))
			Expect(twice).To(Equal(once))
		})
	})
})

// isGone reports whether the process no longer exists or is only a zombie waiting to be reaped.
func isGone(pid int32) bool {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return true
	}
	status, err := proc.Status()
	if err != nil {
		return true
	}
	for _, s := range status {
		if s == process.Zombie {
			return true
		}
	}
	return false
}
