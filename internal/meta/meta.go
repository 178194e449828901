// Package meta exposes the build version shown by the /version command.
package meta

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var rawVersion string

// Version returns the trimmed contents of the embedded VERSION file,
// or "unknown" when it is empty.
func Version() string {
	v := strings.TrimSpace(rawVersion)
	if v == "" {
		return "unknown"
	}
	return v
}

// Banner formats the one-line version banner.
func Banner(version string) string {
	return "Mentor Bot v" + version
}
