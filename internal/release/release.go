// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/ekmixon/dcos-cli/internal/release/artifacts"
)

type Uploader interface {
	UploadFile(ctx context.Context, bucket string, key string, path string) error
}

type Notifier interface {
	Notify(ctx context.Context, version string, urls []string) error
}

type Planner func(mode artifacts.Mode, version string) ([]artifacts.Artifact, error)

type Request struct {
	Mode     artifacts.Mode
	Version  string
	BuildDir string
}

type Result struct {
	// URLs of the uploaded artifacts in upload order
	URLs []string
	// NotificationErr is set when the release announcement could not be sent; the release itself succeeded
	NotificationErr error
}

// Publisher uploads build outputs to the download bucket and announces releases.
type Publisher struct {
	bucket   string
	uploader Uploader
	notifier Notifier
	plan     Planner
}

var ErrMissingArtifact = errors.New("build artifact missing")

func NewPublisher(bucket string, uploader Uploader, notifier Notifier) *Publisher {
	return &Publisher{
		bucket:   bucket,
		uploader: uploader,
		notifier: notifier,
		plan:     artifacts.Plan,
	}
}

func (p *Publisher) WithPlanner(plan Planner) *Publisher {
	p.plan = plan
	return p
}

// Publish uploads all artifacts sequentially and stops at the first failing upload.
// Only release builds are announced; a failed announcement is reported in the result, not as error.
func (p *Publisher) Publish(ctx context.Context, request Request) (*Result, error) {
	planned, err := p.plan(request.Mode, request.Version)
	if err != nil {
		return nil, fmt.Errorf("could not plan artifacts: %w", err)
	}

	if err := checkSources(request.BuildDir, planned); err != nil {
		return nil, err
	}

	slog.Info("Publishing artifacts", "mode", request.Mode, "version", request.Version, "count", len(planned), "bucket", p.bucket)

	result := &Result{}
	for _, artifact := range planned {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		source := filepath.Join(request.BuildDir, filepath.FromSlash(artifact.Source))

		if err := p.uploader.UploadFile(ctx, p.bucket, artifact.Key, source); err != nil {
			return result, fmt.Errorf("upload of '%s' failed: %w", artifact.Key, err)
		}
		result.URLs = append(result.URLs, artifacts.URL(p.bucket, artifact.Key))
	}

	if request.Mode != artifacts.ModeRelease {
		slog.Debug("Testing build, skipping notification")
		return result, nil
	}

	if err := p.notifier.Notify(ctx, request.Version, result.URLs); err != nil {
		slog.Warn("Could not post release notification", "error", err)
		result.NotificationErr = err
	}

	return result, nil
}

func checkSources(buildDir string, planned []artifacts.Artifact) error {
	sources := lo.Uniq(lo.Map(planned, func(a artifacts.Artifact, _ int) string { return a.Source }))

	var errs []error
	for _, source := range sources {
		path := filepath.Join(buildDir, filepath.FromSlash(source))

		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: '%s': %w", ErrMissingArtifact, path, err))
			continue
		}
		if info.IsDir() {
			errs = append(errs, fmt.Errorf("%w: '%s' is a directory", ErrMissingArtifact, path))
		}
	}
	return errors.Join(errs...)
}
