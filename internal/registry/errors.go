package registry

// engineNotInstalledError signals that no installation of the family exists
// at all; installing one is the caller's move, not this package's.
type engineNotInstalledError struct{ family, version string }

func (e engineNotInstalledError) Error() string {
	return "no installed engine for " + e.family + " " + e.version
}

// ErrEngineNotInstalled constructs an engine-not-installed error.
func ErrEngineNotInstalled(family, version string) error {
	return engineNotInstalledError{family: family, version: version}
}

// IsEngineNotInstalled reports whether err means the family has no
// installation under the engines root.
func IsEngineNotInstalled(err error) bool {
	_, ok := err.(engineNotInstalledError)
	return ok
}
