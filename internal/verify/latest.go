// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package verify

import (
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
)

// LatestVersions holds the highest tag per minor release series and overall.
// Tag names are kept as they are, since published binaries report the tag name.
type LatestVersions struct {
	series  map[string]tag
	overall tag
}

type tag struct {
	name    string
	version *semver.Version
}

const OverallFloor = "0.7.0"

var DefaultSeries = []string{"0.5", "0.6", "0.7", "0.8"}

// FindLatest determines the latest tags, starting each series at '<series>.0' and overall at the given floor.
// Tags that are not strict 'MAJOR.MINOR.PATCH[-PRERELEASE]' versions are skipped.
func FindLatest(tagNames []string, series []string, overallFloor string) (*LatestVersions, error) {
	overall, err := parseTag(overallFloor)
	if err != nil {
		return nil, fmt.Errorf("invalid overall floor: %w", err)
	}

	latest := &LatestVersions{series: make(map[string]tag, len(series)), overall: overall}

	for _, s := range series {
		floor, err := parseTag(s + ".0")
		if err != nil {
			return nil, fmt.Errorf("invalid series '%s': %w", s, err)
		}
		latest.series[seriesOf(floor.version)] = floor
	}

	for _, name := range tagNames {
		candidate, err := parseTag(name)
		if err != nil {
			slog.Debug("Skipping tag", "tag", name, "reason", err)
			continue
		}

		key := seriesOf(candidate.version)
		if current, ok := latest.series[key]; ok && candidate.version.GreaterThan(current.version) {
			latest.series[key] = candidate
		}

		if candidate.version.GreaterThan(latest.overall.version) {
			latest.overall = candidate
		}
	}
	return latest, nil
}

// Series returns the latest tag of the given series, e.g. '0.8', or an empty string for unknown series
func (l *LatestVersions) Series(series string) string {
	return l.series[series].name
}

func (l *LatestVersions) Overall() string {
	return l.overall.name
}

func parseTag(name string) (tag, error) {
	version, err := semver.StrictNewVersion(name)
	if err != nil {
		return tag{}, err
	}
	return tag{name: name, version: version}, nil
}

func seriesOf(version *semver.Version) string {
	return fmt.Sprintf("%d.%d", version.Major(), version.Minor())
}
