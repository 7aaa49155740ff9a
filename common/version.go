// Copyright 2021-2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

var (
	// commitHash contains the current Git revision.
	// Use mage to build to make sure this gets set.
	commitHash string

	// buildDate contains the date of the current build.
	buildDate string
)

// Version represents a SemVer 2.0.0 compatible build version
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

func (v Version) String() string {
	preRelease := ""
	metadata := ""

	if v.Suffix != "" {
		preRelease = "-" + v.Suffix
		if commitHash != "" {
			metadata = "+" + strings.ToLower(commitHash)
		}
	}

	return fmt.Sprintf("%d.%d.%d%s%s", v.Major, v.Minor, v.Patch, preRelease, metadata)
}

// dependencyList returns the sorted module dependencies compiled into the binary
func dependencyList() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}
	sort.Strings(deps)

	return deps
}

// BuildVersionString creates the text printed by "pvanalyzer version"
func BuildVersionString(verbose bool) string {
	date := buildDate
	if date == "" {
		date = "unknown"
	}

	commit := commitHash
	if commit == "" {
		commit = "unknown"
	}

	versionString := fmt.Sprintf(`pvanalyzer v%s %s/%s

Build Date: %s
Commit: %s
Built with: %s`,
		CurrentVersion.String(), runtime.GOOS, runtime.GOARCH, date, commit, runtime.Version())

	if verbose {
		versionString += "\n\nDependencies:\n\n" + strings.Join(dependencyList(), "\n")
	}

	return versionString
}
