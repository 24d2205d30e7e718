// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/ini.v1"

	bos "github.com/ekmixon/dcos-cli/internal/os"
)

type Downloader interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

type Runner interface {
	Execute(ctx context.Context, request bos.ExecutionRequest) (*bos.ExecutionResult, error)
}

type Options struct {
	Platform        string
	DownloadBaseUrl string
	Branch          string
	// MaxDownloadBytes caps every download; zero or less means unlimited
	MaxDownloadBytes int64
	CommandTimeout   time.Duration
	// TempDir receives the downloads; empty means the OS default
	TempDir string
}

type CheckResult struct {
	Expectation
	Actual   string
	Checksum string
	Err      error
}

type Report struct {
	Platform string
	Results  []CheckResult
}

type MismatchError struct {
	Url      string
	Expected string
	Actual   string
}

// Verifier downloads the published binaries and checks the versions they report.
type Verifier struct {
	repository Repository
	downloader Downloader
	runner     Runner
	options    Options
}

const (
	versionSection = "version"
	versionKey     = "dcoscli.version"
	binaryMode     = 0744
)

var (
	ErrVerification     = errors.New("verification failed")
	ErrDownloadTooLarge = errors.New("download exceeds size limit")
)

func NewVerifier(repository Repository, downloader Downloader, runner Runner, options Options) *Verifier {
	return &Verifier{
		repository: repository,
		downloader: downloader,
		runner:     runner,
		options:    options,
	}
}

// Verify checks every expectation, also after failures. All failures are returned joined.
func (v *Verifier) Verify(ctx context.Context) (*Report, error) {
	tagNames, err := v.repository.TagNames(ctx)
	if err != nil {
		return nil, err
	}

	commit, err := v.repository.LatestCommit(ctx, v.options.Branch)
	if err != nil {
		return nil, err
	}

	latest, err := FindLatest(tagNames, DefaultSeries, OverallFloor)
	if err != nil {
		return nil, err
	}

	slog.Info("Latest versions determined", "overall", latest.Overall(), "0.8", latest.Series("0.8"), "0.7", latest.Series("0.7"),
		"0.6", latest.Series("0.6"), "0.5", latest.Series("0.5"), "commit", commit)

	expectations := Expectations(v.options.DownloadBaseUrl, v.options.Platform, Sources{Latest: latest, Branch: v.options.Branch, Commit: commit})

	report := &Report{Platform: v.options.Platform}
	for _, expectation := range expectations {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Results = append(report.Results, v.check(ctx, expectation))
	}

	if failed := report.Failed(); len(failed) > 0 {
		errs := lo.Map(failed, func(r CheckResult, _ int) error { return r.Err })
		return report, fmt.Errorf("%w: %d of %d binaries: %w", ErrVerification, len(failed), len(report.Results), errors.Join(errs...))
	}
	return report, nil
}

func (r *Report) Failed() []CheckResult {
	return lo.Filter(r.Results, func(result CheckResult, _ int) bool { return result.Err != nil })
}

// Title returns the platform name for display, e.g. 'Darwin'
func (r *Report) Title() string {
	return cases.Title(language.English).String(r.Platform)
}

// ParseCliVersion reads 'dcoscli.version' from the 'key=value' lines printed by 'dcos --version'
func ParseCliVersion(output string) (string, error) {
	file, err := ini.Load([]byte("[" + versionSection + "]\n" + output))
	if err != nil {
		return "", fmt.Errorf("could not parse version output: %w", err)
	}

	key, err := file.Section(versionSection).GetKey(versionKey)
	if err != nil {
		return "", fmt.Errorf("'%s' not found in version output: %w", versionKey, err)
	}
	return key.String(), nil
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("'%s': expected version '%s', got '%s'", e.Url, e.Expected, e.Actual)
}

func (v *Verifier) check(ctx context.Context, expectation Expectation) CheckResult {
	result := CheckResult{Expectation: expectation}

	slog.Info("Verifying binary", "url", expectation.Url, "expected", expectation.Version)

	binary, checksum, err := v.download(ctx, expectation.Url)
	if err != nil {
		result.Err = fmt.Errorf("'%s': %w", expectation.Url, err)
		return result
	}
	defer remove(binary)

	result.Checksum = checksum

	slog.Debug("Binary downloaded", "url", expectation.Url, "sha256", checksum)

	actual, err := v.cliVersion(ctx, binary)
	if err != nil {
		result.Err = fmt.Errorf("'%s': %w", expectation.Url, err)
		return result
	}
	result.Actual = actual

	if actual != expectation.Version {
		result.Err = &MismatchError{Url: expectation.Url, Expected: expectation.Version, Actual: actual}
	}
	return result
}

func (v *Verifier) download(ctx context.Context, url string) (binary string, checksum string, err error) {
	response, err := v.downloader.Get(ctx, url)
	if err != nil {
		return "", "", fmt.Errorf("download failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("download failed with status %d", response.StatusCode)
	}

	file, err := os.CreateTemp(v.options.TempDir, "dcos-*"+path.Ext(url))
	if err != nil {
		return "", "", fmt.Errorf("could not create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			remove(file.Name())
		}
	}()

	var body io.Reader = response.Body
	if v.options.MaxDownloadBytes > 0 {
		body = io.LimitReader(response.Body, v.options.MaxDownloadBytes+1)
	}

	hash := sha256.New()
	written, copyErr := io.Copy(io.MultiWriter(file, hash), body)
	if err = errors.Join(copyErr, file.Close()); err != nil {
		return "", "", fmt.Errorf("could not write download: %w", err)
	}

	if v.options.MaxDownloadBytes > 0 && written > v.options.MaxDownloadBytes {
		err = fmt.Errorf("%w of %d bytes", ErrDownloadTooLarge, v.options.MaxDownloadBytes)
		return "", "", err
	}

	if err = os.Chmod(file.Name(), binaryMode); err != nil {
		return "", "", fmt.Errorf("could not make binary executable: %w", err)
	}

	return file.Name(), hex.EncodeToString(hash.Sum(nil)), nil
}

func (v *Verifier) cliVersion(ctx context.Context, binary string) (string, error) {
	result, err := v.runner.Execute(ctx, bos.ExecutionRequest{
		Command: []string{binary, "--version"},
		Timeout: v.options.CommandTimeout,
	})
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("'--version' exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.StdErr))
	}
	return ParseCliVersion(result.StdOut)
}

func remove(path string) {
	if err := os.Remove(path); err != nil {
		slog.Warn("Could not remove downloaded binary", "path", path, "error", err)
	}
}
