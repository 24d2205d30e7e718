// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package verify

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/ekmixon/dcos-cli/internal/release/artifacts"
)

// Expectation is a published binary and the version it must report
type Expectation struct {
	Url     string
	Version string
}

type Sources struct {
	Latest *LatestVersions
	Branch string
	Commit string
}

type channel struct {
	prefix  string
	name    string
	version func(Sources) string
}

const (
	PlatformLinux   = "linux"
	PlatformDarwin  = "darwin"
	PlatformWindows = "windows"

	binaryName = "dcos"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	supportedPlatforms = []string{PlatformLinux, PlatformDarwin, PlatformWindows}

	channels = []channel{
		{prefix: artifacts.ReleasePrefix, name: "latest", version: overall},
		{prefix: artifacts.LegacyReleasePrefix, name: "latest", version: overall},
		{prefix: artifacts.LegacyReleasePrefix, name: "dcos-1.13", version: series("0.8")},
		{prefix: artifacts.LegacyReleasePrefix, name: "dcos-1.12", version: series("0.7")},
		{prefix: artifacts.LegacyReleasePrefix, name: "dcos-1.11", version: series("0.6")},
		{prefix: artifacts.LegacyReleasePrefix, name: "dcos-1.10", version: series("0.5")},
	}
)

// DeterminePlatform returns the configured platform or, when empty, the one this binary runs on
func DeterminePlatform(configured string) (string, error) {
	platform := configured
	if platform == "" {
		platform = runtime.GOOS
	}
	if !slices.Contains(supportedPlatforms, platform) {
		return "", fmt.Errorf("%w '%s', expected one of [%s]", ErrUnsupportedPlatform, platform, strings.Join(supportedPlatforms, ", "))
	}
	return platform, nil
}

// Expectations lists the release channels followed by the testing channel of the branch.
func Expectations(baseUrl string, platform string, sources Sources) []Expectation {
	name := binaryName
	if platform == PlatformWindows {
		name += ".exe"
	}

	all := append(slices.Clone(channels), channel{
		prefix:  artifacts.TestingPrefix,
		name:    sources.Branch,
		version: func(s Sources) string { return s.Commit },
	})

	baseUrl = strings.TrimSuffix(baseUrl, "/")

	return lo.Map(all, func(c channel, _ int) Expectation {
		return Expectation{
			Url:     baseUrl + "/" + artifacts.ObjectKey(c.prefix, platform, artifacts.Arch, c.name, name),
			Version: c.version(sources),
		}
	})
}

func overall(s Sources) string {
	return s.Latest.Overall()
}

func series(name string) func(Sources) string {
	return func(s Sources) string {
		return s.Latest.Series(name)
	}
}
