// Package scope builds the isolated execution scope an engine adapter runs
// in. Every scope owns a fresh interpreter whose symbol resolution is seeded
// only with the standard library and the shared adapter contract, then the
// installation's own adapter code; nothing leaks between scopes, even when
// two installations define same-named symbols. The boundary is the
// installation directory, not the family.
//
// Portability note: closing a scope drops the interpreter and its memory,
// but any native library an adapter pulled in stays resident for the process
// lifetime. The ledger, not the scope, accounts for that.
package scope

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"

	"enginehost/pkg/adapterapi"
	"enginehost/pkg/types"
)

const (
	// AdapterFile is the entry point every installation must provide.
	AdapterFile = "adapter.go"
	// ManifestFile declares the other files the installation needs.
	ManifestFile = "manifest.yaml"
)

type manifest struct {
	Files []string `yaml:"files"`
}

// MissingFiles returns the required files absent from an installation
// directory: the manifest itself, the adapter entry point, and everything
// the manifest declares. An empty result means the installation is complete.
func MissingFiles(dir string) ([]string, error) {
	var missing []string
	required := []string{ManifestFile, AdapterFile}
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err == nil {
		var m manifest
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
		}
		required = append(required, m.Files...)
	}
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// Scope is one isolated adapter scope. Scopes are single-use: one per
// satisfied request, never shared, never reopened.
type Scope struct {
	desc    types.EngineDescriptor
	interp  *interp.Interpreter
	adapter *handle
}

// Open validates the installation the descriptor points at and constructs
// its scope. The missing-file check runs before any code is evaluated so a
// corrupt installation is reported with the exact files it lacks.
func Open(desc types.EngineDescriptor) (*Scope, error) {
	missing, err := MissingFiles(desc.Dir)
	if err != nil {
		return nil, scopeConstructionError{desc: desc, cause: err}
	}
	if len(missing) > 0 {
		return nil, scopeConstructionError{desc: desc, missing: missing}
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, scopeConstructionError{desc: desc, cause: err}
	}
	if err := i.Use(hostSymbols()); err != nil {
		return nil, scopeConstructionError{desc: desc, cause: err}
	}
	if _, err := i.EvalPath(filepath.Join(desc.Dir, AdapterFile)); err != nil {
		return nil, scopeConstructionError{desc: desc, cause: err}
	}
	h, err := resolveAdapter(i, desc)
	if err != nil {
		return nil, err
	}
	return &Scope{desc: desc, interp: i, adapter: h}, nil
}

// Adapter returns the single adapter instance living in the scope, or nil
// once the scope is closed.
func (s *Scope) Adapter() adapterapi.Adapter {
	if s.interp == nil {
		return nil
	}
	return s.adapter
}

// Descriptor returns the descriptor the scope was opened for.
func (s *Scope) Descriptor() types.EngineDescriptor { return s.desc }

// Close releases the scope. Safe to call twice. Globally-resident native
// symbols are not, and cannot be, released here.
func (s *Scope) Close() {
	s.interp = nil
	s.adapter = nil
}

// hostSymbols is the fixed set of shared definitions every scope is seeded
// with, so adapters can speak the lifecycle contract without reaching into
// any other scope.
func hostSymbols() interp.Exports {
	return interp.Exports{
		"enginehost/pkg/types/types": {
			"Tensor":  reflect.ValueOf((*types.Tensor)(nil)),
			"MajorOf": reflect.ValueOf(types.MajorOf),
		},
		"enginehost/pkg/adapterapi/adapterapi": {
			"FuncLoadModel":  reflect.ValueOf(adapterapi.FuncLoadModel),
			"FuncRun":        reflect.ValueOf(adapterapi.FuncRun),
			"FuncCloseModel": reflect.ValueOf(adapterapi.FuncCloseModel),
		},
	}
}

// Exact signatures the adapter contract requires. Checked at construction:
// a wrong-signature function must fail Open, not panic the first lifecycle
// call through reflect.
var (
	loadModelType  = reflect.TypeOf((func(string, string) error)(nil))
	runType        = reflect.TypeOf((func([]*types.Tensor, []*types.Tensor) error)(nil))
	closeModelType = reflect.TypeOf((func() error)(nil))
)

func resolveAdapter(i *interp.Interpreter, desc types.EngineDescriptor) (*handle, error) {
	h := &handle{}
	for _, bind := range []struct {
		name string
		typ  reflect.Type
		dst  *reflect.Value
	}{
		{adapterapi.FuncLoadModel, loadModelType, &h.load},
		{adapterapi.FuncRun, runType, &h.run},
		{adapterapi.FuncCloseModel, closeModelType, &h.closeFn},
	} {
		v, err := i.Eval(bind.name)
		if err != nil || !v.IsValid() || v.Kind() != reflect.Func {
			return nil, adapterNotFoundError{desc: desc, symbol: bind.name}
		}
		if v.Type() != bind.typ {
			return nil, adapterNotFoundError{desc: desc, symbol: bind.name, got: v.Type().String()}
		}
		*bind.dst = v
	}
	return h, nil
}

// handle wraps the adapter functions resolved inside the scope into the
// shared lifecycle interface.
type handle struct {
	load, run, closeFn reflect.Value
}

func (h *handle) LoadModel(modelDir, modelSource string) error {
	return callErr(h.load, reflect.ValueOf(modelDir), reflect.ValueOf(modelSource))
}

func (h *handle) Run(inputs, outputs []*types.Tensor) error {
	return callErr(h.run, reflect.ValueOf(inputs), reflect.ValueOf(outputs))
}

func (h *handle) CloseModel() error {
	return callErr(h.closeFn)
}

// callErr invokes an adapter function. resolveAdapter validated the
// signature, so there is exactly one result and it is an error interface.
func callErr(fn reflect.Value, args ...reflect.Value) error {
	out := fn.Call(args)
	if out[0].IsNil() {
		return nil
	}
	return out[0].Interface().(error)
}
