package manager

import "sync"

// Ledger is the one piece of state shared across every session in the
// process: which version of each coexistence group has already been
// instantiated. Native backends bind process-wide symbols that cannot be
// unlinked, so entries normally live as long as the process; only families
// running on a managed runtime get their entries cleared on close.
//
// The ledger is an explicit, injectable object rather than package statics
// so tests construct an isolated one per run.
type Ledger struct {
	mu     sync.Mutex
	loaded map[string]string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{loaded: map[string]string{}}
}

// AlreadyLoaded reports the version recorded for a coexistence group.
func (l *Ledger) AlreadyLoaded(group string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.loaded[group]
	return v, ok
}

// Admit records version for group, or fails with an engine conflict when a
// different version is already resident. The bool reports whether this call
// created the entry, so a caller whose load never evaluated any code can
// undo exactly its own admission.
func (l *Ledger) Admit(group, version string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.loaded[group]
	if !ok {
		l.loaded[group] = version
		return true, nil
	}
	if cur == version {
		return false, nil
	}
	return false, engineConflictError{group: group, loaded: cur, requested: version}
}

// Release clears the entry for group. Callers gate this on the family's
// coexistence policy; for native backends a cleared entry would be a lie.
func (l *Ledger) Release(group string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.loaded, group)
}

// Resident returns a copy of the current group -> version table.
func (l *Ledger) Resident() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.loaded))
	for k, v := range l.loaded {
		out[k] = v
	}
	return out
}
