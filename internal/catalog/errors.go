package catalog

// unsupportedEngineError signals a family the catalog knows nothing about.
type unsupportedEngineError struct{ family string }

func (e unsupportedEngineError) Error() string {
	return "unsupported engine family: " + e.family
}

// ErrUnsupportedEngine constructs an unsupported-family error.
func ErrUnsupportedEngine(family string) error { return unsupportedEngineError{family: family} }

// IsUnsupportedEngine reports whether err names an unknown engine family.
func IsUnsupportedEngine(err error) bool {
	_, ok := err.(unsupportedEngineError)
	return ok
}

// noAdapterMappingError signals a known family with no adapter runtime
// recorded for the requested training version.
type noAdapterMappingError struct{ family, version string }

func (e noAdapterMappingError) Error() string {
	return "no adapter mapping for " + e.family + " " + e.version
}

// IsNoAdapterMapping reports whether err indicates a catalog gap for a
// training version.
func IsNoAdapterMapping(err error) bool {
	_, ok := err.(noAdapterMappingError)
	return ok
}
