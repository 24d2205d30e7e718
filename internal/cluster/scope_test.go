// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cluster_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/ekmixon/dcos-cli/internal/cluster"
	"github.com/ekmixon/dcos-cli/internal/os"
)

var _ = Describe("WithCluster", func() {
	var runner *runnerMock
	var sut *cluster.Manager

	BeforeEach(func() {
		runner = &runnerMock{}
		sut = newManager(runner)
	})

	When("body succeeds", func() {
		It("passes the attached handle and tears it down afterwards", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(0, ""), nil)

			var received *cluster.Handle
			err := cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(handle *cluster.Handle) error {
				Expect(handle.State()).To(Equal(cluster.StateAttached))
				received = handle
				return nil
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(received.State()).To(Equal(cluster.StateTornDown))
			Expect(runner.commands()).To(ContainElement("dcos cluster remove " + label))
		})
	})

	When("body fails", func() {
		It("tears down and returns the body error", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(0, ""), nil)
			bodyErr := errors.New("assertion failed")

			err := cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(*cluster.Handle) error { return bodyErr })

			Expect(err).To(MatchError(bodyErr))
			Expect(err).ToNot(MatchError(cluster.ErrTeardown))
			Expect(runner.commands()).To(ContainElement("dcos cluster remove " + label))
		})
	})

	When("body and teardown fail", func() {
		It("reports both errors", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(1, ""), nil)
			bodyErr := errors.New("assertion failed")

			err := cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(*cluster.Handle) error { return bodyErr })

			Expect(err).To(MatchError(bodyErr))
			Expect(err).To(MatchError(cluster.ErrTeardown))
		})
	})

	When("only teardown fails", func() {
		It("returns the teardown error", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(1, ""), nil)

			err := cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(*cluster.Handle) error { return nil })

			Expect(err).To(MatchError(cluster.ErrTeardown))
		})
	})

	When("setup fails", func() {
		It("does not run the body", func(ctx context.Context) {
			runner.on("cluster", "setup").Return(exited(1, ""), nil)
			runner.on("cluster", "remove").Return(exited(1, ""), nil)

			called := false
			err := cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(*cluster.Handle) error {
				called = true
				return nil
			})

			Expect(err).To(MatchError(cluster.ErrSetup))
			Expect(called).To(BeFalse())
		})
	})

	When("body panics", func() {
		It("tears down and continues panicking", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(0, ""), nil)

			Expect(func() {
				_ = cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(*cluster.Handle) error { panic("boom") })
			}).To(PanicWith("boom"))

			Expect(runner.commands()).To(ContainElement("dcos cluster remove " + label))
		})
	})

	When("body panics and teardown fails", func() {
		It("continues panicking with both the panic value and the teardown error", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(&os.ExecutionResult{ExitCode: 1, StdErr: "unknown cluster"}, nil)

			var recovered any
			func() {
				defer func() { recovered = recover() }()
				_ = cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(*cluster.Handle) error { panic("boom") })
			}()

			panicErr, ok := recovered.(*cluster.PanicError)
			Expect(ok).To(BeTrue())
			Expect(panicErr.Value).To(Equal("boom"))
			Expect(panicErr).To(MatchError(cluster.ErrTeardown))
			Expect(panicErr).To(MatchError(ContainSubstring("boom")))
			Expect(panicErr).To(MatchError(ContainSubstring("unknown cluster")))
		})

		It("keeps a panicking error in the chain", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(1, ""), nil)
			bodyErr := errors.New("assertion failed")

			var recovered any
			func() {
				defer func() { recovered = recover() }()
				_ = cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(*cluster.Handle) error { panic(bodyErr) })
			}()

			Expect(recovered).To(BeAssignableToTypeOf(&cluster.PanicError{}))
			Expect(recovered.(error)).To(MatchError(bodyErr))
			Expect(recovered.(error)).To(MatchError(cluster.ErrTeardown))
		})
	})

	When("context is canceled within the body", func() {
		It("still tears down", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(0, ""), nil)

			bodyCtx, cancel := context.WithCancel(ctx)

			err := cluster.WithCluster(bodyCtx, sut, cluster.NewConfig(), func(*cluster.Handle) error {
				cancel()
				return bodyCtx.Err()
			})

			Expect(err).To(MatchError(context.Canceled))

			teardownRequest := runner.requests()[len(runner.requests())-1]
			Expect(teardownRequest.Command).To(Equal([]string{"dcos", "cluster", "remove", label}))
		})
	})

	When("teardown cannot be run", func() {
		It("keeps the cause in the error chain", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(nil, &os.TimeoutError{Command: []string{"dcos"}})

			err := cluster.WithCluster(ctx, sut, cluster.NewConfig(), func(*cluster.Handle) error { return nil })

			Expect(err).To(MatchError(cluster.ErrTeardown))
			Expect(err).To(MatchError(os.ErrTimeout))
		})
	})
})

var _ = Describe("Acquire", func() {
	var runner *runnerMock
	var sut *cluster.Manager

	BeforeEach(func() {
		runner = &runnerMock{}
		sut = newManager(runner)
	})

	When("setup succeeds", func() {
		It("returns the attached handle and a release that tears it down", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(0, ""), nil)

			handle, release, err := cluster.Acquire(ctx, sut, cluster.NewConfig())

			Expect(err).ToNot(HaveOccurred())
			Expect(handle.State()).To(Equal(cluster.StateAttached))
			Expect(runner.commands()).ToNot(ContainElement("dcos cluster remove " + label))

			Expect(release(ctx)).To(Succeed())

			Expect(handle.State()).To(Equal(cluster.StateTornDown))
			Expect(runner.commands()).To(ContainElement("dcos cluster remove " + label))
		})

		It("releases with a canceled context", func(ctx context.Context) {
			expectAttachable(runner)

			var removeCtxErr error
			runner.on("cluster", "remove").Run(func(args mock.Arguments) {
				removeCtxErr = args.Get(0).(context.Context).Err()
			}).Return(exited(0, ""), nil)

			_, release, err := cluster.Acquire(ctx, sut, cluster.NewConfig())
			Expect(err).ToNot(HaveOccurred())

			canceled, cancel := context.WithCancel(ctx)
			cancel()

			Expect(release(canceled)).To(Succeed())
			Expect(removeCtxErr).ToNot(HaveOccurred())
		})

		It("fails a second release", func(ctx context.Context) {
			expectAttachable(runner)
			runner.on("cluster", "remove").Return(exited(0, ""), nil)

			_, release, err := cluster.Acquire(ctx, sut, cluster.NewConfig())
			Expect(err).ToNot(HaveOccurred())

			Expect(release(ctx)).To(Succeed())
			Expect(release(ctx)).To(MatchError(cluster.ErrInvalidState))
		})
	})

	When("setup fails", func() {
		It("returns no handle and no release", func(ctx context.Context) {
			runner.on("cluster", "setup").Return(exited(1, ""), nil)
			runner.on("cluster", "remove").Return(exited(1, ""), nil)

			handle, release, err := cluster.Acquire(ctx, sut, cluster.NewConfig())

			Expect(err).To(MatchError(cluster.ErrSetup))
			Expect(handle).To(BeNil())
			Expect(release).To(BeNil())
		})
	})
})
