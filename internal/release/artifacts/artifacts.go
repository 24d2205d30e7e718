// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package artifacts

import (
	_ "embed"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type Mode string

// Artifact maps a build output file (relative to the build dir) to its object key in the bucket
type Artifact struct {
	Source string
	Key    string
}

type Layout struct {
	Arch    string         `yaml:"arch"`
	Files   []string       `yaml:"files"`
	Release ChannelsLayout `yaml:"release"`
	Testing ChannelsLayout `yaml:"testing"`
}

type ChannelsLayout struct {
	Prefixes []string `yaml:"prefixes"`
	Channels []string `yaml:"channels"`
}

const (
	// ModeRelease publishes a tagged build
	ModeRelease Mode = "release"
	// ModeTesting publishes a branch build
	ModeTesting Mode = "testing"

	versionPlaceholder = "{{version}}"

	// Arch is the only architecture binaries are published for
	Arch = "x86-64"

	ReleasePrefix       = "cli/releases/binaries/dcos"
	LegacyReleasePrefix = "binaries/cli"
	TestingPrefix       = "cli/testing/binaries/dcos"
)

var (
	//go:embed embed/layout.yaml
	layoutContent []byte

	loadLayout = sync.OnceValues(func() (*Layout, error) {
		return ParseLayout(layoutContent)
	})

	ErrEmptyVersion = errors.New("version must not be empty")
)

// DetermineMode returns the release mode and version: tag builds are releases, everything else is a testing build of the branch.
func DetermineMode(tagName, branchName string) (Mode, string) {
	if tagName != "" {
		return ModeRelease, tagName
	}
	return ModeTesting, branchName
}

// Plan returns the artifacts to publish, ordered by prefix, channel and file.
func Plan(mode Mode, version string) ([]Artifact, error) {
	layout, err := loadLayout()
	if err != nil {
		return nil, err
	}
	return layout.Plan(mode, version)
}

func ParseLayout(content []byte) (*Layout, error) {
	var layout Layout
	if err := yaml.Unmarshal(content, &layout); err != nil {
		return nil, fmt.Errorf("could not parse artifact layout: %w", err)
	}
	if layout.Arch == "" || len(layout.Files) == 0 {
		return nil, errors.New("artifact layout must define arch and files")
	}
	return &layout, nil
}

func (l *Layout) Plan(mode Mode, version string) ([]Artifact, error) {
	if version == "" {
		return nil, ErrEmptyVersion
	}

	var channels ChannelsLayout
	switch mode {
	case ModeRelease:
		channels = l.Release
	case ModeTesting:
		channels = l.Testing
	default:
		return nil, fmt.Errorf("unsupported mode '%s'", mode)
	}

	var result []Artifact
	for _, prefix := range channels.Prefixes {
		for _, channel := range channels.Channels {
			channel = strings.ReplaceAll(channel, versionPlaceholder, version)

			result = append(result, lo.Map(l.Files, func(file string, _ int) Artifact {
				return Artifact{Source: file, Key: l.key(prefix, channel, file)}
			})...)
		}
	}
	return result, nil
}

// URL returns the public download URL of the given object key
func URL(bucket string, key string) string {
	return fmt.Sprintf("https://%s/%s", bucket, key)
}

// ObjectKey returns '<prefix>/<platform>/<arch>/<channel>/<file name>'
func ObjectKey(prefix, platform, arch, channel, name string) string {
	return path.Join(prefix, platform, arch, channel, name)
}

func (l *Layout) key(prefix, channel, file string) string {
	platform, name := path.Split(file)
	return ObjectKey(prefix, strings.TrimSuffix(platform, "/"), l.Arch, channel, name)
}
