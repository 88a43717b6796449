package scope

import (
	"strings"

	"enginehost/pkg/types"
)

// scopeConstructionError means the installation directory cannot back a
// scope: required files are missing or the adapter code does not evaluate.
type scopeConstructionError struct {
	desc    types.EngineDescriptor
	missing []string
	cause   error
}

func (e scopeConstructionError) Error() string {
	msg := "cannot construct scope for " + e.desc.Family + " " + e.desc.ResolvedVersion + " at " + e.desc.Dir
	if len(e.missing) > 0 {
		msg += ": missing files: " + strings.Join(e.missing, ", ")
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e scopeConstructionError) Unwrap() error { return e.cause }

// IsScopeConstruction reports whether err indicates a corrupt or incomplete
// installation.
func IsScopeConstruction(err error) bool {
	_, ok := err.(scopeConstructionError)
	return ok
}

// MissingFromError returns the missing-file list carried by a scope
// construction error, if any.
func MissingFromError(err error) []string {
	if e, ok := err.(scopeConstructionError); ok {
		return e.missing
	}
	return nil
}

// adapterNotFoundError means the scope evaluated but does not expose the
// expected adapter entry points, or exposes one with the wrong signature.
type adapterNotFoundError struct {
	desc   types.EngineDescriptor
	symbol string
	got    string
}

func (e adapterNotFoundError) Error() string {
	msg := "adapter for " + e.desc.Family + " " + e.desc.ResolvedVersion +
		" does not define " + e.symbol
	if e.got != "" {
		msg += " (found " + e.got + ")"
	}
	return msg
}

// IsAdapterNotFound reports whether err indicates a scope without the
// expected adapter contract.
func IsAdapterNotFound(err error) bool {
	_, ok := err.(adapterNotFoundError)
	return ok
}
