package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-riskbot/pkg/errors"
)

// CheckSnapshotCompatibility checks whether a binary can load a ledger
// snapshot written by snapshotVersion.
//
// Compatibility Rules:
//   - An empty snapshot version (written before versions were recorded) is accepted
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - The snapshot's minor version must not be newer than the binary's
//   - Patch versions can differ
//
// Examples:
//   - Binary 1.2.0, Snapshot 1.2.0 -> OK
//   - Binary 1.3.0, Snapshot 1.2.7 -> OK (older snapshot)
//   - Binary 1.2.0, Snapshot 1.3.0 -> ERROR (newer snapshot)
//   - Binary 2.0.0, Snapshot 1.2.0 -> ERROR (major differs)
func CheckSnapshotCompatibility(binaryVersion, snapshotVersion string) error {
	binaryVersion = strings.TrimPrefix(binaryVersion, "v")
	snapshotVersion = strings.TrimPrefix(snapshotVersion, "v")

	if snapshotVersion == "" || binaryVersion == "main" || snapshotVersion == "main" {
		return nil
	}

	binarySemver, err := semver.NewVersion(binaryVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid binary version '%s'", binaryVersion)
	}

	snapshotSemver, err := semver.NewVersion(snapshotVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeEncoding, err, "invalid snapshot version '%s'", snapshotVersion)
	}

	if binarySemver.Major() != snapshotSemver.Major() {
		return errors.Newf(errors.ErrCodeEncoding, "major version mismatch: binary is %d.x.x but snapshot was written by %d.x.x",
			binarySemver.Major(), snapshotSemver.Major())
	}

	if snapshotSemver.Minor() > binarySemver.Minor() {
		return errors.Newf(errors.ErrCodeEncoding, "snapshot written by newer version %d.%d.x, binary is %d.%d.x",
			snapshotSemver.Major(), snapshotSemver.Minor(),
			binarySemver.Major(), binarySemver.Minor())
	}

	return nil
}
