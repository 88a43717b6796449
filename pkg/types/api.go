package types

// ResolveRequest is the payload for POST /resolve and the resolve half of
// POST /sessions. CPU/GPU are tri-state: nil means "use the family's
// catalog defaults".
type ResolveRequest struct {
	// Backend family, e.g. "pytorch".
	Family string `json:"family"`
	// Version of the framework the model was trained with.
	Version string `json:"version"`
	// Explicit capability request; omit both to take catalog defaults.
	CPU *bool `json:"cpu,omitempty"`
	GPU *bool `json:"gpu,omitempty"`
	// When true, exact-match resolution is required and the fallback
	// ranking is skipped.
	Exact bool `json:"exact,omitempty"`
}

// SessionRequest creates a session and loads a model into it.
type SessionRequest struct {
	ResolveRequest
	// Directory containing the model files.
	ModelDir string `json:"model_dir"`
	// Path of the model source file within ModelDir.
	ModelSource string `json:"model_source"`
	// Optional tensorflow serving tag / signature definition.
	ServingTag    string `json:"serving_tag,omitempty"`
	ServingSigDef string `json:"serving_sig_def,omitempty"`
}

// RunRequest carries tensors for POST /sessions/{id}/run. Outputs name the
// tensors the adapter must fill; they come back populated in RunResponse.
type RunRequest struct {
	Inputs  []Tensor `json:"inputs"`
	Outputs []Tensor `json:"outputs"`
}

// RunResponse returns the output tensors after a successful run.
type RunResponse struct {
	Outputs []Tensor `json:"outputs"`
}

// SessionStatus summarizes one live session for GET /sessions.
type SessionStatus struct {
	ID         string           `json:"id"`
	State      string           `json:"state"`
	Descriptor EngineDescriptor `json:"descriptor"`
}

// EnginesResponse wraps the list returned by GET /engines/installed.
type EnginesResponse struct {
	Engines []InstalledEngine `json:"engines"`
}

// StatusResponse is the answer to GET /status.
type StatusResponse struct {
	EnginesDir string          `json:"engines_dir"`
	Installed  int             `json:"installed"`
	Sessions   []SessionStatus `json:"sessions"`
	// Resident maps coexistence group -> version recorded in the ledger.
	Resident map[string]string `json:"resident,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
