// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package verify_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/ekmixon/dcos-cli/internal/httpclient"
	bos "github.com/ekmixon/dcos-cli/internal/os"
	"github.com/ekmixon/dcos-cli/internal/reflection"
	"github.com/ekmixon/dcos-cli/internal/verify"
)

type repositoryMock struct {
	mock.Mock
}

func (m *repositoryMock) TagNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	tags, _ := args.Get(0).([]string)
	return tags, args.Error(1)
}

func (m *repositoryMock) LatestCommit(ctx context.Context, branch string) (string, error) {
	args := m.Called(ctx, branch)

	return args.String(0), args.Error(1)
}

// binaryServer serves shell scripts printing the configured CLI version per path
type binaryServer struct {
	*httptest.Server
	mu       sync.Mutex
	binaries map[string]string
	requests int
}

const (
	releaseLatestPath = "/cli/releases/binaries/dcos/linux/x86-64/latest/dcos"
	legacyLatestPath  = "/binaries/cli/linux/x86-64/latest/dcos"
	dcos113Path       = "/binaries/cli/linux/x86-64/dcos-1.13/dcos"
	dcos112Path       = "/binaries/cli/linux/x86-64/dcos-1.12/dcos"
	dcos111Path       = "/binaries/cli/linux/x86-64/dcos-1.11/dcos"
	dcos110Path       = "/binaries/cli/linux/x86-64/dcos-1.10/dcos"
	testingPath       = "/cli/testing/binaries/dcos/linux/x86-64/master/dcos"
)

func script(version string) string {
	return fmt.Sprintf("#!/bin/sh\necho 'dcoscli.version=%s'\necho 'dcos.version=N/A'\n", version)
}

func newBinaryServer() *binaryServer {
	server := &binaryServer{binaries: map[string]string{
		releaseLatestPath: script("1.0.0"),
		legacyLatestPath:  script("1.0.0"),
		dcos113Path:       script("0.8.4"),
		dcos112Path:       script("0.7.3"),
		dcos111Path:       script("0.6.2"),
		dcos110Path:       script("0.5.1"),
		testingPath:       script("abc123"),
	}}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.mu.Lock()
		defer server.mu.Unlock()

		server.requests++

		content, ok := server.binaries[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(content))
	}))
	DeferCleanup(server.Close)
	return server
}

func (s *binaryServer) serve(path string, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binaries[path] = content
}

func (s *binaryServer) remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.binaries, path)
}

func (s *binaryServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func expectEmptyDir(dir string) {
	GinkgoHelper()

	entries, err := os.ReadDir(dir)
	Expect(err).ToNot(HaveOccurred())
	Expect(entries).To(BeEmpty())
}

var _ = Describe("Verifier", Label("integration"), func() {
	var repository *repositoryMock
	var server *binaryServer
	var options verify.Options

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("served binaries are shell scripts")
		}

		repository = &repositoryMock{}
		repository.On(reflection.GetFunctionName(repository.TagNames), mock.Anything).Return([]string{"0.5.1", "0.6.2", "0.7.3", "0.8.4", "1.0.0", "nightly"}, nil)
		repository.On(reflection.GetFunctionName(repository.LatestCommit), mock.Anything, "master").Return("abc123", nil)

		server = newBinaryServer()

		options = verify.Options{
			Platform:         "linux",
			DownloadBaseUrl:  server.URL,
			Branch:           "master",
			MaxDownloadBytes: 1024,
			CommandTimeout:   10 * time.Second,
			TempDir:          GinkgoT().TempDir(),
		}
	})

	newVerifier := func() *verify.Verifier {
		downloader := httpclient.NewResilientClient(httpclient.Options{MaxRetries: 1, BackoffMin: time.Millisecond, BackoffMax: 2 * time.Millisecond})

		return verify.NewVerifier(repository, downloader, bos.NewCmdRunner(bos.WithOutputWriter(GinkgoWriter)), options)
	}

	When("all binaries report the expected versions", func() {
		It("succeeds and removes all downloads", func(ctx context.Context) {
			report, err := newVerifier().Verify(ctx)

			Expect(err).ToNot(HaveOccurred())
			Expect(report.Platform).To(Equal("linux"))
			Expect(report.Results).To(HaveLen(7))
			Expect(report.Failed()).To(BeEmpty())

			for _, result := range report.Results {
				Expect(result.Actual).To(Equal(result.Version))
				Expect(result.Checksum).To(MatchRegexp("^[0-9a-f]{64}$"))
			}
			Expect(report.Results[2].Actual).To(Equal("0.8.4"))
			Expect(report.Results[6].Actual).To(Equal("abc123"))

			expectEmptyDir(options.TempDir)
		})
	})

	When("a binary reports another version", func() {
		It("checks all binaries and reports the mismatch", func(ctx context.Context) {
			server.serve(dcos113Path, script("0.8.3"))

			report, err := newVerifier().Verify(ctx)

			Expect(err).To(MatchError(verify.ErrVerification))
			Expect(err).To(MatchError(ContainSubstring("1 of 7")))

			var mismatch *verify.MismatchError
			Expect(errors.As(err, &mismatch)).To(BeTrue())
			Expect(mismatch.Url).To(Equal(server.URL + dcos113Path))
			Expect(mismatch.Expected).To(Equal("0.8.4"))
			Expect(mismatch.Actual).To(Equal("0.8.3"))

			Expect(report.Results).To(HaveLen(7))
			Expect(report.Failed()).To(HaveLen(1))

			expectEmptyDir(options.TempDir)
		})
	})

	When("binaries are missing", func() {
		It("aggregates all failures", func(ctx context.Context) {
			server.remove(testingPath)
			server.remove(dcos110Path)

			report, err := newVerifier().Verify(ctx)

			Expect(err).To(MatchError(verify.ErrVerification))
			Expect(err).To(MatchError(ContainSubstring("status 404")))
			Expect(err).To(MatchError(ContainSubstring(testingPath)))
			Expect(err).To(MatchError(ContainSubstring(dcos110Path)))
			Expect(report.Failed()).To(HaveLen(2))

			expectEmptyDir(options.TempDir)
		})
	})

	When("a download exceeds the size limit", func() {
		It("fails without executing the binary", func(ctx context.Context) {
			options.MaxDownloadBytes = 10

			report, err := newVerifier().Verify(ctx)

			Expect(err).To(MatchError(verify.ErrDownloadTooLarge))
			Expect(report.Failed()).To(HaveLen(7))
			Expect(report.Results).To(HaveEach(HaveField("Actual", BeEmpty())))

			expectEmptyDir(options.TempDir)
		})
	})

	When("a binary fails to print its version", func() {
		It("reports the exit code", func(ctx context.Context) {
			server.serve(releaseLatestPath, "#!/bin/sh\necho 'broken' >&2\nexit 1\n")

			_, err := newVerifier().Verify(ctx)

			Expect(err).To(MatchError(ContainSubstring("exited with code 1: broken")))

			expectEmptyDir(options.TempDir)
		})
	})

	When("a binary hangs", func() {
		It("reports the timeout", func(ctx context.Context) {
			server.serve(releaseLatestPath, "#!/bin/sh\nsleep 10\n")
			options.CommandTimeout = 200 * time.Millisecond

			_, err := newVerifier().Verify(ctx)

			Expect(err).To(MatchError(bos.ErrTimeout))
		})
	})

	When("tags cannot be listed", func() {
		It("returns the error without downloading", func(ctx context.Context) {
			repository = &repositoryMock{}
			repository.On(reflection.GetFunctionName(repository.TagNames), mock.Anything).Return(nil, errors.New("rate limit exceeded"))

			report, err := newVerifier().Verify(ctx)

			Expect(err).To(MatchError("rate limit exceeded"))
			Expect(report).To(BeNil())
			Expect(server.requestCount()).To(Equal(0))
		})
	})

	When("latest commit cannot be determined", func() {
		It("returns the error without downloading", func(ctx context.Context) {
			repository = &repositoryMock{}
			repository.On(reflection.GetFunctionName(repository.TagNames), mock.Anything).Return([]string{}, nil)
			repository.On(reflection.GetFunctionName(repository.LatestCommit), mock.Anything, "master").Return("", errors.New("branch not found"))

			_, err := newVerifier().Verify(ctx)

			Expect(err).To(MatchError("branch not found"))
			Expect(server.requestCount()).To(Equal(0))
		})
	})
})
