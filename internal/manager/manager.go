// Package manager ties catalog, registry, ledger and scopes together behind
// the two narrow contracts external collaborators consume: resolve a request
// into a descriptor, and drive a loaded engine's lifecycle.
package manager

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"enginehost/internal/history"
	"enginehost/internal/registry"
	"enginehost/pkg/types"
)

// Config carries the manager's collaborators. Zero values are usable: a nil
// history store records nothing, a missing ledger gets a fresh one.
type Config struct {
	EnginesDir string
	Ledger     *Ledger
	History    *history.Store
	Logger     zerolog.Logger
}

// Manager owns the session table and the process ledger.
type Manager struct {
	enginesDir string
	ledger     *Ledger
	hist       *history.Store
	log        zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds a manager from cfg.
func New(cfg Config) *Manager {
	ledger := cfg.Ledger
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Manager{
		enginesDir: cfg.EnginesDir,
		ledger:     ledger,
		hist:       cfg.History,
		log:        cfg.Logger,
		sessions:   map[string]*Session{},
	}
}

// EnginesDir returns the installation root the manager resolves against.
func (m *Manager) EnginesDir() string { return m.enginesDir }

// Ledger exposes the process ledger, mainly for status reporting.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// ListInstalled scans the installation root.
func (m *Manager) ListInstalled() ([]types.InstalledEngine, error) {
	return registry.Scan(m.enginesDir)
}

// Resolve maps a request onto a descriptor, recording outcome and fallback
// metrics along the way.
func (m *Manager) Resolve(ctx context.Context, req types.ResolveRequest) (types.EngineDescriptor, error) {
	desc, err := ResolveRequest(req, m.enginesDir)
	if err != nil {
		resolutionsTotal.WithLabelValues(req.Family, outcomeError).Inc()
		m.record(ctx, history.Event{Kind: history.KindResolve, Family: req.Family, Requested: req.Version, Detail: err.Error()})
		return types.EngineDescriptor{}, err
	}
	resolutionsTotal.WithLabelValues(req.Family, outcomeOK).Inc()
	if desc.Fallback() {
		fallbacksTotal.WithLabelValues(req.Family, fallbackVersion).Inc()
	}
	if req.GPU != nil && *req.GPU && !desc.GPU {
		fallbacksTotal.WithLabelValues(req.Family, fallbackGPU).Inc()
	}
	m.log.Debug().
		Str("family", desc.Family).
		Str("requested", desc.RequestedVersion).
		Str("resolved", desc.ResolvedVersion).
		Bool("gpu", desc.GPU).
		Msg("resolved engine")
	m.record(ctx, history.Event{
		Kind: history.KindResolve, Family: desc.Family,
		Requested: desc.RequestedVersion, Resolved: desc.ResolvedVersion,
		GPU: desc.GPU, OK: true,
	})
	return desc, nil
}

// OpenSession resolves req, creates a session and loads the model into it.
// The session is registered only after a successful load.
func (m *Manager) OpenSession(ctx context.Context, req types.SessionRequest) (*Session, error) {
	desc, err := m.Resolve(ctx, req.ResolveRequest)
	if err != nil {
		return nil, err
	}
	desc = desc.WithServingTags(req.ServingTag, req.ServingSigDef)
	sess := NewSession(ulid.Make().String(), desc, m.ledger)
	if err := sess.Load(req.ModelDir, req.ModelSource); err != nil {
		loadsTotal.WithLabelValues(desc.Family, outcomeError).Inc()
		kind := history.KindLoad
		if IsEngineConflict(err) {
			conflictsTotal.WithLabelValues(desc.Family).Inc()
			kind = history.KindConflict
		}
		m.record(ctx, history.Event{Kind: kind, Family: desc.Family, Requested: desc.RequestedVersion, Resolved: desc.ResolvedVersion, Detail: err.Error()})
		return nil, err
	}
	loadsTotal.WithLabelValues(desc.Family, outcomeOK).Inc()
	openSessions.Inc()
	m.mu.Lock()
	m.sessions[sess.ID()] = sess
	m.mu.Unlock()
	m.log.Info().
		Str("session", sess.ID()).
		Str("family", desc.Family).
		Str("version", desc.ResolvedVersion).
		Msg("session loaded")
	m.record(ctx, history.Event{Kind: history.KindLoad, Family: desc.Family, Requested: desc.RequestedVersion, Resolved: desc.ResolvedVersion, GPU: desc.GPU, OK: true})
	return sess, nil
}

// Session looks a session up by id.
func (m *Manager) Session(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, sessionNotFoundError{id: id}
	}
	return sess, nil
}

// RunSession runs a loaded session with the supplied tensors.
func (m *Manager) RunSession(id string, inputs, outputs []*types.Tensor) error {
	sess, err := m.Session(id)
	if err != nil {
		return err
	}
	return sess.Run(inputs, outputs)
}

// CloseSession closes a session and drops it from the table.
func (m *Manager) CloseSession(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return sessionNotFoundError{id: id}
	}
	if err := sess.Close(); err != nil {
		return err
	}
	openSessions.Dec()
	desc := sess.Descriptor()
	m.record(ctx, history.Event{Kind: history.KindClose, Family: desc.Family, Resolved: desc.ResolvedVersion, OK: true})
	return nil
}

// Sessions projects the session table for the API surface.
func (m *Manager) Sessions() []types.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.SessionStatus, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.Status())
	}
	return out
}

// Status summarizes the manager for GET /status.
func (m *Manager) Status() types.StatusResponse {
	installed, _ := m.ListInstalled()
	return types.StatusResponse{
		EnginesDir: m.enginesDir,
		Installed:  len(installed),
		Sessions:   m.Sessions(),
		Resident:   m.ledger.Resident(),
	}
}

// History returns recent events, newest first. Nil without a store.
func (m *Manager) History(ctx context.Context, limit int) ([]history.Event, error) {
	return m.hist.Recent(ctx, limit)
}

// Shutdown closes every open session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.CloseSession(ctx, id); err != nil {
			m.log.Warn().Str("session", id).Err(err).Msg("close session on shutdown")
		}
	}
}

func (m *Manager) record(ctx context.Context, e history.Event) {
	if err := m.hist.Record(ctx, e); err != nil {
		m.log.Warn().Err(err).Msg("record history event")
	}
}
