package csda

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is the current SDK version.
//
// This version follows semantic versioning (https://semver.org/).
const Version = "0.1.0"

// STACVersion is the STAC specification version items are expected to
// follow.
const STACVersion = "1.0.0"

// STACVersionRange is the semver constraint an item's stac_version must
// satisfy for [Client.DownloadItem]. The -0 suffixes admit prereleases
// such as 1.1.0-beta.1.
const STACVersionRange = ">= 1.0.0-0, < 2.0.0-0"

// UserAgent returns the default User-Agent header value.
func UserAgent() string {
	return "csda-go/" + Version
}

// CompatibilityStatus is the outcome of a STAC version check.
type CompatibilityStatus int

const (
	// Compatible means the version satisfies [STACVersionRange].
	Compatible CompatibilityStatus = iota

	// Incompatible means the version is valid semver outside the range.
	Incompatible

	// Unknown means the version could not be parsed.
	Unknown
)

func (s CompatibilityStatus) String() string {
	switch s {
	case Compatible:
		return "compatible"
	case Incompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

// CompatibilityResult describes a STAC version check.
type CompatibilityResult struct {
	Status         CompatibilityStatus
	STACVersion    string
	SupportedRange string
	Message        string
}

// IsCompatible reports whether Status is [Compatible].
func (r CompatibilityResult) IsCompatible() bool {
	return r.Status == Compatible
}

// CheckSTACCompatibility checks version against [STACVersionRange].
func CheckSTACCompatibility(version string) CompatibilityResult {
	result := CompatibilityResult{
		STACVersion:    version,
		SupportedRange: STACVersionRange,
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		result.Status = Unknown
		result.Message = fmt.Sprintf("cannot parse STAC version %q: %v", version, err)
		return result
	}

	constraint, err := semver.NewConstraint(STACVersionRange)
	if err != nil {
		result.Status = Unknown
		result.Message = fmt.Sprintf("invalid supported range %q: %v", STACVersionRange, err)
		return result
	}

	if constraint.Check(v) {
		result.Status = Compatible
		result.Message = fmt.Sprintf("STAC version %s is compatible", version)
	} else {
		result.Status = Incompatible
		result.Message = fmt.Sprintf("STAC version %s is not compatible, supported range is %s", version, STACVersionRange)
	}
	return result
}

// IsSTACCompatible reports whether version satisfies [STACVersionRange].
func IsSTACCompatible(version string) bool {
	return CheckSTACCompatibility(version).IsCompatible()
}

// CheckSTACVersion returns an *Error with [CodePrecondition] unless version
// satisfies [STACVersionRange].
func CheckSTACVersion(version string) error {
	result := CheckSTACCompatibility(version)
	if result.IsCompatible() {
		return nil
	}
	return newError(CodePrecondition, result.Message, 0, nil)
}
