// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package version

import (
	"fmt"
	"runtime"
)

// Build metadata injected via -ldflags "-X ...". Defaults apply to go run and go test.
var (
	version      = "0.0.0"
	buildDate    = "1970-01-01T00:00:00Z"
	gitCommit    = ""
	gitTag       = ""
	gitTreeState = "" // 'clean' or 'dirty'
)

type Version struct {
	Version      string
	BuildDate    string
	GitCommit    string
	GitTag       string
	GitTreeState string
	GoVersion    string
	Platform     string
}

func (v Version) String() string {
	return v.Version
}

func GetVersion() Version {
	return Version{
		Version:      versionString(),
		BuildDate:    buildDate,
		GitCommit:    gitCommit,
		GitTag:       gitTag,
		GitTreeState: gitTreeState,
		GoVersion:    runtime.Version(),
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Print prints the version for the given CLI. If no print function is provided, it defaults to fmt.Printf.
func (v Version) Print(cliName string, printFuncs ...func(format string, a ...any)) {
	printFunc := func(format string, a ...any) {
		fmt.Printf(format, a...)
	}
	if len(printFuncs) > 0 {
		printFunc = printFuncs[0]
	}

	printFunc("%s: %s\n", cliName, v)
	printFunc("  BuildDate: %s\n", v.BuildDate)
	printFunc("  GitCommit: %s\n", v.GitCommit)
	printFunc("  GitTreeState: %s\n", v.GitTreeState)
	if v.GitTag != "" {
		printFunc("  GitTag: %s\n", v.GitTag)
	}
	printFunc("  GoVersion: %s\n", v.GoVersion)
	printFunc("  Platform: %s\n", v.Platform)
}

// a clean, tagged build is an official release; everything else gets commit metadata appended
func versionString() string {
	if gitCommit != "" && gitTag != "" && gitTreeState == "clean" {
		return gitTag
	}

	result := "v" + version
	if len(gitCommit) < 7 {
		return result + "+unknown"
	}

	result += "+" + gitCommit[:7]
	if gitTreeState != "clean" {
		result += ".dirty"
	}
	return result
}
