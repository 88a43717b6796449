// Package adapterapi is the fixed lifecycle contract shared between the host
// and every engine adapter. It is the only host package whose symbols are
// seeded into an isolated execution scope, so adapters can be invoked through
// a common interface without depending on each other's symbol space. Keep it
// dependency-free.
package adapterapi

import "enginehost/pkg/types"

// Adapter is the lifecycle every backend adapter implements. An adapter
// plugin declares top-level functions with these exact names and signatures;
// the scope loader wraps them into an Adapter handle.
type Adapter interface {
	// LoadModel prepares the model found in modelDir for execution.
	// modelSource is the path of the model's source file (weights bundle,
	// torchscript file, saved-model dir...) within modelDir.
	LoadModel(modelDir, modelSource string) error
	// Run executes the loaded model. Output tensors are supplied by the
	// caller and filled in place; when Run returns without error they
	// contain valid results.
	Run(inputs, outputs []*types.Tensor) error
	// CloseModel releases the model. Must tolerate being called on an
	// already-closed adapter.
	CloseModel() error
}

// Func names an adapter plugin must export.
const (
	FuncLoadModel  = "LoadModel"
	FuncRun        = "Run"
	FuncCloseModel = "CloseModel"
)
