// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package release

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd/common"
	"github.com/ekmixon/dcos-cli/internal/cli"
	"github.com/ekmixon/dcos-cli/internal/config"
	"github.com/ekmixon/dcos-cli/internal/httpclient"
	rel "github.com/ekmixon/dcos-cli/internal/release"
	"github.com/ekmixon/dcos-cli/internal/release/artifacts"
	"github.com/ekmixon/dcos-cli/internal/release/notify"
	"github.com/ekmixon/dcos-cli/internal/release/storage"
)

const (
	ErrNoVersionCode = "no-version"

	example = `
  # publish the binaries of a tag build
  TAG_NAME=0.8.2 dcos-ci release

  # publish the binaries of a branch build from another dir
  BRANCH_NAME=master dcos-ci release --build-dir ./out
`
)

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "release",
		Short:   "Upload the built binaries to the download bucket and announce releases",
		Long:    "Uploads the binaries of a tag build ('TAG_NAME') to the release channels or of a branch build ('BRANCH_NAME') to the testing channel",
		Example: example,
		RunE:    runRelease,
	}

	cmd.Flags().String(config.BuildDirFlagName, "", "Directory containing the built binaries (default: 'build' in the working dir)")
	cmd.Flags().SortFlags = false

	return cmd
}

func runRelease(cmd *cobra.Command, args []string) error {
	cmdContext, err := common.FromContext(cmd.Context())
	if err != nil {
		return err
	}
	cfg := cmdContext.Config()

	mode, version := artifacts.DetermineMode(cfg.Build.TagName, cfg.Build.BranchName)
	if version == "" {
		return &common.CmdFailure{
			Severity: common.SeverityError,
			Code:     ErrNoVersionCode,
			Message:  "Neither 'TAG_NAME' nor 'BRANCH_NAME' is set, cannot determine what to publish",
			ExitCode: cli.ExitCodeFailure,
		}
	}

	buildDir, err := filepath.Abs(cfg.Build.Dir)
	if err != nil {
		return fmt.Errorf("invalid build dir '%s': %w", cfg.Build.Dir, err)
	}

	slog.Info("Starting release", "mode", mode, "version", version, "build-dir", buildDir)

	uploader, err := storage.NewS3Uploader(cmd.Context(), cfg.Storage.Region)
	if err != nil {
		return err
	}

	notifier := notify.NewSlackNotifier(notify.SlackConfig{
		HookUrl: cfg.Notification.HookUrl,
		Channel: cfg.Notification.Channel,
		Token:   cfg.Notification.Token,
	}, newHttpClient(cfg))

	start := time.Now()

	result, err := rel.NewPublisher(cfg.Storage.Bucket, uploader, notifier).
		Publish(cmd.Context(), rel.Request{Mode: mode, Version: version, BuildDir: buildDir})
	if err != nil {
		return err
	}

	if result.NotificationErr != nil {
		pterm.Warning.Printfln("Couldn't post Slack notification: %v", result.NotificationErr)
	}

	pterm.Success.Printfln("Published %d artifacts of %s build '%s' in %v", len(result.URLs), mode, version, time.Since(start).Round(time.Millisecond))

	return nil
}

func newHttpClient(cfg *config.Config) *httpclient.ResilientClient {
	return httpclient.NewResilientClient(httpclient.Options{
		RequestTimeout: cfg.Notification.Timeout,
		MaxRetries:     cfg.Http.MaxRetries,
		BackoffMin:     cfg.Http.BackoffMin,
		BackoffMax:     cfg.Http.BackoffMax,
	})
}
