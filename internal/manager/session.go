package manager

import (
	"sync"

	"enginehost/internal/catalog"
	"enginehost/internal/scope"
	"enginehost/pkg/adapterapi"
	"enginehost/pkg/types"
)

// SessionState is the lifecycle state of a session. Transitions are
// one-directional: created -> loaded -> closed.
type SessionState string

const (
	SessionCreated SessionState = "created"
	SessionLoaded  SessionState = "loaded"
	SessionClosed  SessionState = "closed"
)

// Session owns exactly one isolated scope and one adapter handle. Lifecycle
// calls block the invoking goroutine; calls on one session are serialized,
// sessions of different engines are independent of each other.
type Session struct {
	mu      sync.Mutex
	id      string
	desc    types.EngineDescriptor
	ledger  *Ledger
	scope   *scope.Scope
	adapter adapterapi.Adapter
	state   SessionState
}

// NewSession creates a session around a resolved descriptor. No scope is
// opened yet.
func NewSession(id string, desc types.EngineDescriptor, ledger *Ledger) *Session {
	return &Session{id: id, desc: desc, ledger: ledger, state: SessionCreated}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Descriptor returns the resolved descriptor the session was created with.
func (s *Session) Descriptor() types.EngineDescriptor { return s.desc }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load admits the descriptor against the ledger, opens the isolated scope
// and asks the adapter to load the model.
//
// A ledger conflict fails before any scope exists. A scope-construction
// failure rolls back an admission this call made, since no adapter code was
// evaluated. A load failure after the scope opened keeps the ledger entry
// (native state may already be resident), closes the scope and leaves the
// session created so the caller can retry or discard it.
func (s *Session) Load(modelDir, modelSource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionCreated {
		return illegalStateError{op: "load", state: s.state}
	}
	group := s.desc.Group()
	admitted, err := s.ledger.Admit(group, s.desc.ResolvedVersion)
	if err != nil {
		return err
	}
	sc, err := scope.Open(s.desc)
	if err != nil {
		if admitted {
			s.ledger.Release(group)
		}
		return err
	}
	adapter := sc.Adapter()
	if err := adapter.LoadModel(modelDir, modelSource); err != nil {
		sc.Close()
		return loadModelError{family: s.desc.Family, version: s.desc.ResolvedVersion, cause: err}
	}
	s.scope = sc
	s.adapter = adapter
	s.state = SessionLoaded
	return nil
}

// Run executes the loaded model. Output tensors are filled in place; a run
// failure does not change session state and the session may run again.
func (s *Session) Run(inputs, outputs []*types.Tensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionLoaded {
		return illegalStateError{op: "run", state: s.state}
	}
	if err := s.adapter.Run(inputs, outputs); err != nil {
		return runModelError{family: s.desc.Family, version: s.desc.ResolvedVersion, cause: err}
	}
	return nil
}

// Close ends the session from created or loaded state and releases its
// scope. Closing a closed session is a no-op. The ledger entry is cleared
// only when this session loaded a releasable family; native entries outlive
// every session by design of the platform, not of this code.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionClosed {
		return nil
	}
	if s.adapter != nil {
		// Adapters tolerate closing an already-closed model.
		_ = s.adapter.CloseModel()
	}
	if s.scope != nil {
		s.scope.Close()
		s.scope = nil
		s.adapter = nil
	}
	if s.state == SessionLoaded && catalog.Releasable(s.desc.Family) {
		s.ledger.Release(s.desc.Group())
	}
	s.state = SessionClosed
	return nil
}

// Status projects the session for the API surface.
func (s *Session) Status() types.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.SessionStatus{ID: s.id, State: string(s.state), Descriptor: s.desc}
}
