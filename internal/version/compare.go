package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// DevelopmentVersion marks a build without a release version.
const DevelopmentVersion = "main"

// CheckResultCompatibility reports whether a result written by resultVersion
// can be read by an engine at engineVersion.
//
// Rules:
//   - "main" on either side skips the check
//   - major versions must match
//   - a result from a newer minor version is rejected, older ones are readable
//   - patch versions are ignored
//
// Examples:
//   - engine 1.2.0, result 1.2.7 -> OK
//   - engine 1.3.0, result 1.1.0 -> OK
//   - engine 1.2.0, result 1.3.0 -> ERROR
//   - engine 2.0.0, result 1.9.0 -> ERROR
func CheckResultCompatibility(engineVersion, resultVersion string) error {
	if IsDevelopment(engineVersion) || IsDevelopment(resultVersion) {
		return nil
	}

	engineVersion = strings.TrimPrefix(engineVersion, "v")
	resultVersion = strings.TrimPrefix(resultVersion, "v")

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid engine version '%s'", engineVersion)
	}

	resultSemver, err := semver.NewVersion(resultVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid result version '%s'", resultVersion)
	}

	if engineSemver.Major() != resultSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: engine is %d.x.x but result was written by %d.x.x",
			engineSemver.Major(), resultSemver.Major())
	}

	if resultSemver.Minor() > engineSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"result was written by %d.%d.x, newer than engine %d.%d.x",
			resultSemver.Major(), resultSemver.Minor(),
			engineSemver.Major(), engineSemver.Minor())
	}

	return nil
}
