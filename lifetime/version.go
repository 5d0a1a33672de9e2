package lifetime

import (
	"runtime"

	"golang.org/x/mod/semver"
)

// Version information for the lifetime runtime.
const (
	// Version is the current version of the runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the lifetime package.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Discipline summarizes the enforced rules.
	Discipline string

	// GoVersion is the Go runtime the program was built with.
	GoVersion string
}

// GetInfo returns information about the runtime.
//
// Example:
//
//	info := lifetime.GetInfo()
//	fmt.Printf("lifetime %s (%s)\n", info.Version, info.Discipline)
func GetInfo() Info {
	return Info{
		Version:    Version,
		Discipline: "single owner, exclusive mutable borrow, shared reads",
		GoVersion:  runtime.Version(),
	}
}

// Compatible reports whether code written against version v (with or
// without a leading "v") can use this runtime: same major version and
// not newer than Version. Invalid versions are never compatible.
func Compatible(v string) bool {
	v = canonical(v)
	cur := canonical(Version)
	if !semver.IsValid(v) {
		return false
	}
	return semver.Major(v) == semver.Major(cur) && semver.Compare(v, cur) <= 0
}

func canonical(v string) string {
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	return semver.Canonical(v)
}
