// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package verify

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd/common"
	"github.com/ekmixon/dcos-cli/internal/cli"
	"github.com/ekmixon/dcos-cli/internal/config"
	"github.com/ekmixon/dcos-cli/internal/httpclient"
	bos "github.com/ekmixon/dcos-cli/internal/os"
	ve "github.com/ekmixon/dcos-cli/internal/verify"
)

const (
	ErrUnsupportedPlatformCode = "unsupported-platform"
	ErrVerificationCode        = "verification-failed"
)

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify that the published binaries report the expected versions",
		Long:  "Downloads the binaries of all release channels and the testing channel and compares their '--version' output with the latest tags and the latest commit",
		RunE:  runVerify,
	}

	cmd.Flags().String(config.PlatformFlagName, "", "Platform of the binaries to verify, one of [linux, darwin, windows] (default: current OS)")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	cmdContext, err := common.FromContext(cmd.Context())
	if err != nil {
		return err
	}
	cfg := cmdContext.Config().Verification

	platform, err := ve.DeterminePlatform(cfg.Platform)
	if err != nil {
		return &common.CmdFailure{
			Severity: common.SeverityError,
			Code:     ErrUnsupportedPlatformCode,
			Message:  err.Error(),
			ExitCode: cli.ExitCodeFailure,
		}
	}

	maxDownloadBytes, err := cfg.MaxDownloadBytes()
	if err != nil {
		return err
	}

	repository, err := ve.NewGithubRepository(cfg.Repository.Owner, cfg.Repository.Name, cfg.Token)
	if err != nil {
		return err
	}

	httpConfig := cmdContext.Config().Http
	downloader := httpclient.NewResilientClient(httpclient.Options{
		MaxRetries: httpConfig.MaxRetries,
		BackoffMin: httpConfig.BackoffMin,
		BackoffMax: httpConfig.BackoffMax,
	})

	verifier := ve.NewVerifier(repository, downloader, bos.NewCmdRunner(), ve.Options{
		Platform:         platform,
		DownloadBaseUrl:  cfg.DownloadBaseUrl,
		Branch:           cfg.Repository.Branch,
		MaxDownloadBytes: maxDownloadBytes,
		CommandTimeout:   cfg.CommandTimeout,
	})

	report, err := verifier.Verify(cmd.Context())
	if report != nil {
		printReport(report)
	}
	if err == nil {
		pterm.Success.Printfln("All %s binaries report the expected versions", report.Title())
		return nil
	}
	if errors.Is(err, ve.ErrVerification) {
		return &common.CmdFailure{
			Severity: common.SeverityError,
			Code:     ErrVerificationCode,
			Message:  fmt.Sprintf("%d of %d %s binaries failed verification", len(report.Failed()), len(report.Results), report.Title()),
			ExitCode: cli.ExitCodeVerificationFailed,
		}
	}
	return err
}

func printReport(report *ve.Report) {
	data := pterm.TableData{{"URL", "Expected", "Actual", "Result"}}
	for _, result := range report.Results {
		status := pterm.Green("ok")
		if result.Err != nil {
			status = pterm.Red(result.Err.Error())
		}
		data = append(data, []string{result.Url, result.Version, result.Actual, status})
	}

	pterm.DefaultSection.Printfln("%s binaries", report.Title())

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}
