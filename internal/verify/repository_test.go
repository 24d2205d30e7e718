// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package verify_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ekmixon/dcos-cli/internal/verify"
)

type apiServer struct {
	*httptest.Server
	mu            sync.Mutex
	authorization []string
	perPage       []string
}

func newApiServer() *apiServer {
	api := &apiServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/dcos/dcos-cli/tags", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"name":"0.5.0"}]`)
			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/dcos/dcos-cli/tags?per_page=100&page=2>; rel="next", <%s/repos/dcos/dcos-cli/tags?per_page=100&page=2>; rel="last"`, api.URL, api.URL))
		fmt.Fprint(w, `[{"name":"0.8.0"},{"name":"0.7.1"}]`)
	})
	mux.HandleFunc("/repos/dcos/dcos-cli/commits/master", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)

		fmt.Fprint(w, `{"sha":"deadbeef"}`)
	})
	mux.HandleFunc("/repos/dcos/dcos-cli/commits/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	api.Server = httptest.NewServer(mux)
	DeferCleanup(api.Close)
	return api
}

func (a *apiServer) record(r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.authorization = append(a.authorization, r.Header.Get("Authorization"))
	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		a.perPage = append(a.perPage, perPage)
	}
}

func (a *apiServer) authorizations() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.authorization...)
}

func (a *apiServer) pageSizes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.perPage...)
}

var _ = Describe("GithubRepository", Label("integration"), func() {
	var api *apiServer

	BeforeEach(func() {
		api = newApiServer()
	})

	Describe("TagNames", func() {
		It("collects the tags of all pages", func(ctx context.Context) {
			sut, err := verify.NewGithubRepository("dcos", "dcos-cli", "t0k3n", verify.WithBaseUrl(api.URL))
			Expect(err).ToNot(HaveOccurred())

			actual, err := sut.TagNames(ctx)

			Expect(err).ToNot(HaveOccurred())
			Expect(actual).To(Equal([]string{"0.8.0", "0.7.1", "0.5.0"}))
			Expect(api.authorizations()).To(HaveEach("Bearer t0k3n"))
			Expect(api.pageSizes()).To(ContainElement("100"))
		})

		When("repository does not exist", func() {
			It("returns an error", func(ctx context.Context) {
				sut, err := verify.NewGithubRepository("dcos", "unknown", "", verify.WithBaseUrl(api.URL))
				Expect(err).ToNot(HaveOccurred())

				_, err = sut.TagNames(ctx)

				Expect(err).To(MatchError(ContainSubstring("could not list tags of 'dcos/unknown'")))
			})
		})
	})

	Describe("LatestCommit", func() {
		It("returns the SHA of the branch head", func(ctx context.Context) {
			sut, err := verify.NewGithubRepository("dcos", "dcos-cli", "", verify.WithBaseUrl(api.URL+"/"))
			Expect(err).ToNot(HaveOccurred())

			actual, err := sut.LatestCommit(ctx, "master")

			Expect(err).ToNot(HaveOccurred())
			Expect(actual).To(Equal("deadbeef"))
			Expect(api.authorizations()).To(HaveEach(BeEmpty()))
		})

		When("branch does not exist", func() {
			It("returns an error", func(ctx context.Context) {
				sut, err := verify.NewGithubRepository("dcos", "dcos-cli", "", verify.WithBaseUrl(api.URL))
				Expect(err).ToNot(HaveOccurred())

				_, err = sut.LatestCommit(ctx, "unknown")

				Expect(err).To(MatchError(ContainSubstring("could not get latest commit of 'dcos/dcos-cli@unknown'")))
			})
		})

		When("commit has no SHA", func() {
			It("returns an error", func(ctx context.Context) {
				sut, err := verify.NewGithubRepository("dcos", "dcos-cli", "", verify.WithBaseUrl(api.URL))
				Expect(err).ToNot(HaveOccurred())

				_, err = sut.LatestCommit(ctx, "empty")

				Expect(err).To(MatchError(ContainSubstring("has no SHA")))
			})
		})
	})

	Describe("WithBaseUrl", func() {
		It("rejects invalid URLs", func() {
			_, err := verify.NewGithubRepository("dcos", "dcos-cli", "", verify.WithBaseUrl("http://[::1"))

			Expect(err).To(MatchError(ContainSubstring("invalid API base URL")))
		})
	})
})
