// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package verify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/go-github/v72/github"
	"github.com/samber/lo"
)

// Repository provides the release tags and the branch head of the CLI source repository
type Repository interface {
	TagNames(ctx context.Context) ([]string, error)
	LatestCommit(ctx context.Context, branch string) (string, error)
}

type GithubRepository struct {
	client *github.Client
	owner  string
	name   string
}

type GithubOption func(*github.Client) error

const tagsPerPage = 100

// WithBaseUrl points the client to another API endpoint, e.g. a GitHub Enterprise server
func WithBaseUrl(baseUrl string) GithubOption {
	return func(c *github.Client) error {
		parsed, err := url.Parse(strings.TrimSuffix(baseUrl, "/") + "/")
		if err != nil {
			return fmt.Errorf("invalid API base URL '%s': %w", baseUrl, err)
		}
		c.BaseURL = parsed
		return nil
	}
}

// NewGithubRepository creates a repository client; an empty token results in anonymous, rate-limited access.
func NewGithubRepository(owner string, name string, token string, options ...GithubOption) (*GithubRepository, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	} else {
		slog.Warn("No GitHub token configured, using anonymous API access")
	}

	for _, option := range options {
		if err := option(client); err != nil {
			return nil, err
		}
	}

	return &GithubRepository{client: client, owner: owner, name: name}, nil
}

func (r *GithubRepository) TagNames(ctx context.Context) ([]string, error) {
	options := &github.ListOptions{PerPage: tagsPerPage}

	var names []string
	for {
		tags, response, err := r.client.Repositories.ListTags(ctx, r.owner, r.name, options)
		if err != nil {
			return nil, fmt.Errorf("could not list tags of '%s/%s': %w", r.owner, r.name, err)
		}

		names = append(names, lo.Map(tags, func(tag *github.RepositoryTag, _ int) string { return tag.GetName() })...)

		if response.NextPage == 0 {
			break
		}
		options.Page = response.NextPage
	}

	slog.Debug("Tags listed", "repository", r.owner+"/"+r.name, "count", len(names))

	return names, nil
}

func (r *GithubRepository) LatestCommit(ctx context.Context, branch string) (string, error) {
	commit, _, err := r.client.Repositories.GetCommit(ctx, r.owner, r.name, branch, nil)
	if err != nil {
		return "", fmt.Errorf("could not get latest commit of '%s/%s@%s': %w", r.owner, r.name, branch, err)
	}
	if commit.GetSHA() == "" {
		return "", fmt.Errorf("latest commit of '%s/%s@%s' has no SHA", r.owner, r.name, branch)
	}
	return commit.GetSHA(), nil
}
