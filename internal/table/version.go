package table

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

const versionSymbolPrefix = "_defmt_version_ = "

// versionFromSymbol extracts the marker value from a version symbol name.
// Some linkers keep the quotes from the linker script, so both the quoted
// and unquoted forms are accepted.
func versionFromSymbol(name string) (string, bool) {
	trimmed := strings.TrimPrefix(name, `"`)
	if !strings.HasPrefix(trimmed, versionSymbolPrefix) {
		return "", false
	}
	v := strings.TrimPrefix(trimmed, versionSymbolPrefix)
	return strings.TrimSuffix(v, `"`), true
}

// CheckVersion compares the firmware's wire-format marker against the
// decoder's supported version. The major version must match exactly and the
// decoder's minor/patch must be at least the firmware's.
func CheckVersion(found, supported string) error {
	incompatible := func(reason string, err error) error {
		return &BuildIncompatibleError{Found: found, Supported: supported, Reason: reason, Err: err}
	}

	if found == "" {
		return incompatible("no version marker in image", nil)
	}
	want, err := semver.NewVersion(supported)
	if err != nil {
		return incompatible("decoder version is not a semantic version", err)
	}
	got, err := semver.NewVersion(found)
	if err != nil {
		return incompatible("version marker is not a semantic version", err)
	}

	if got.Major() != want.Major() {
		return incompatible("major version differs", nil)
	}
	if got.Minor() > want.Minor() ||
		(got.Minor() == want.Minor() && got.Patch() > want.Patch()) {
		return incompatible("firmware is newer than this decoder", nil)
	}
	return nil
}
