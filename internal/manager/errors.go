package manager

// engineConflictError signals that a different, binary-incompatible version
// of the same backend is already resident. Fatal for the request: reuse the
// resident version or restart the process.
type engineConflictError struct{ group, loaded, requested string }

func (e engineConflictError) Error() string {
	return "engine conflict for " + e.group + ": version " + e.loaded +
		" is already resident, cannot load " + e.requested +
		" in the same process"
}

// IsEngineConflict reports whether err indicates a resident-version conflict.
func IsEngineConflict(err error) bool {
	_, ok := err.(engineConflictError)
	return ok
}

// illegalStateError signals a lifecycle call made out of order.
type illegalStateError struct {
	op    string
	state SessionState
}

func (e illegalStateError) Error() string {
	return "cannot " + e.op + " a session in state " + string(e.state)
}

// IsIllegalState reports whether err indicates an out-of-order lifecycle call.
func IsIllegalState(err error) bool {
	_, ok := err.(illegalStateError)
	return ok
}

// loadModelError wraps a backend-reported load failure. Recoverable: the
// session stays created and the caller may retry with another descriptor.
type loadModelError struct {
	family, version string
	cause           error
}

func (e loadModelError) Error() string {
	return "load model with " + e.family + " " + e.version + ": " + e.cause.Error()
}

func (e loadModelError) Unwrap() error { return e.cause }

// IsLoadModel reports whether err is a backend-reported load failure.
func IsLoadModel(err error) bool {
	_, ok := err.(loadModelError)
	return ok
}

// runModelError wraps a backend-reported run failure; session state is
// untouched.
type runModelError struct {
	family, version string
	cause           error
}

func (e runModelError) Error() string {
	return "run model with " + e.family + " " + e.version + ": " + e.cause.Error()
}

func (e runModelError) Unwrap() error { return e.cause }

// IsRunModel reports whether err is a backend-reported run failure.
func IsRunModel(err error) bool {
	_, ok := err.(runModelError)
	return ok
}

// sessionNotFoundError signals an unknown session id on the manager surface.
type sessionNotFoundError struct{ id string }

func (e sessionNotFoundError) Error() string { return "session not found: " + e.id }

// IsSessionNotFound reports whether err names a missing session id.
func IsSessionNotFound(err error) bool {
	_, ok := err.(sessionNotFoundError)
	return ok
}
