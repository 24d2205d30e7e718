// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package framework

import (
	"context"

	//lint:ignore ST1001 test framework code
	. "github.com/onsi/ginkgo/v2"
	//lint:ignore ST1001 test framework code
	. "github.com/onsi/gomega"

	"github.com/ekmixon/dcos-cli/internal/cluster"
)

// DefaultCluster sets up a cluster for the current node and registers its release as Ginkgo cleanup.
// A failing teardown is reported as an additional failure, even when the node itself has failed already.
func (s *DcosTestSuite) DefaultCluster(ctx context.Context, options ...cluster.Option) *cluster.Handle {
	handle, release, err := cluster.Acquire(ctx, s.manager, cluster.NewConfig(options...))

	Expect(err).ToNot(HaveOccurred(), "Cluster should be set up to execute the tests")

	GinkgoWriter.Println("Cluster <", handle.Name, "> attached at <", handle.Url, ">")

	DeferCleanup(func(ctx SpecContext) {
		GinkgoWriter.Println("Tearing down cluster <", handle.Name, ">..")

		Expect(release(ctx)).To(Succeed(), "Cluster should be torn down after the tests")
	})

	return handle
}

// WithCluster runs the body against a freshly set up cluster and tears it down afterwards.
// Assertion failures of the body and teardown errors are reported together as one failure.
func (s *DcosTestSuite) WithCluster(ctx context.Context, body func(*cluster.Handle), options ...cluster.Option) {
	err := cluster.WithCluster(ctx, s.manager, cluster.NewConfig(options...), func(handle *cluster.Handle) error {
		return InterceptGomegaFailure(func() {
			body(handle)
		})
	})

	Expect(err).ToNot(HaveOccurred())
}
