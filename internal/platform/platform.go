// Package platform maps the running machine onto the tags used by the
// installation directory naming convention.
package platform

import "runtime"

// Platform describes the host the process runs on.
type Platform struct {
	// OS tag as used in installation directory names: "linux", "macos"
	// or "windows".
	OS string
	// Arch tag: "x86_64" or "arm64".
	Arch string
	// Rosetta is true when the process runs under architecture
	// translation. Native engine libraries are unreliable under
	// translation, so resolution then restricts to native-arch installs.
	Rosetta bool
}

// Detect returns the current platform.
func Detect() Platform {
	return Platform{OS: osTag(runtime.GOOS), Arch: archTag(runtime.GOARCH), Rosetta: translated()}
}

func osTag(goos string) string {
	switch goos {
	case "darwin":
		return "macos"
	default:
		return goos
	}
}

func archTag(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	default:
		return goarch
	}
}
