// Package scope implements ignition's hierarchical cancellation tree.
// Each Scope owns a cancellation source linked to its parent's, and
// records why and by which signal it was cancelled the first time that
// happens. Later cancellation requests are no-ops.
package scope

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Reason classifies why a scope (or a signal racing against one) was
// cancelled. Priority when several sources fire is scope-originated
// reasons, then global timeout, then external cancellation; per-signal
// timeout is always attributed locally before any of these can apply.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonGlobalTimeout
	ReasonPerSignalTimeout
	ReasonScopeCancelled
	ReasonBundleCancelled
	ReasonDependencyFailed
	ReasonExternalCancellation
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonGlobalTimeout:
		return "GlobalTimeout"
	case ReasonPerSignalTimeout:
		return "PerSignalTimeout"
	case ReasonScopeCancelled:
		return "ScopeCancelled"
	case ReasonBundleCancelled:
		return "BundleCancelled"
	case ReasonDependencyFailed:
		return "DependencyFailed"
	case ReasonExternalCancellation:
		return "ExternalCancellation"
	default:
		return "Unknown"
	}
}

// Scope is a node in the cancellation tree. The zero value is not usable;
// construct with New or a parent's Child.
type Scope struct {
	id     string
	name   string
	parent *Scope

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	cancelled  bool
	reason     Reason
	triggeredBy string

	children []*Scope
}

// New creates a root scope linked to parent (a background context if nil).
func New(name string, parent context.Context) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{id: uuid.New().String(), name: name, ctx: ctx, cancel: cancel}
}

// Child creates a descendant scope whose token is derived from this
// scope's token. Cancelling the parent observably cancels every
// descendant, tagged with ReasonScopeCancelled and the parent's
// triggering signal name.
func (s *Scope) Child(name string) *Scope {
	s.mu.Lock()
	ctx, cancel := context.WithCancel(s.ctx)
	child := &Scope{id: uuid.New().String(), name: name, parent: s, ctx: ctx, cancel: cancel}
	s.children = append(s.children, child)
	alreadyCancelled := s.cancelled
	reason, triggeredBy := s.reason, s.triggeredBy
	s.mu.Unlock()

	if alreadyCancelled {
		child.Cancel(reason, triggeredBy)
	}
	return child
}

// Name returns the scope's name.
func (s *Scope) Name() string { return s.name }

// ID returns the scope's unique identifier, stable for the scope's
// lifetime, for correlating log lines and traces with a specific node
// in the cancellation tree.
func (s *Scope) ID() string { return s.id }

// Token returns the context carrying this scope's cancellation.
func (s *Scope) Token() context.Context { return s.ctx }

// Cancel cancels this scope and every descendant exactly once. The first
// call wins and is the one whose reason/triggeredBy are recorded;
// subsequent calls are no-ops. Descendants always observe
// ReasonScopeCancelled with this scope's triggering signal, never the
// reason passed by the caller that cancelled an ancestor.
func (s *Scope) Cancel(reason Reason, triggeredBy string) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.reason = reason
	s.triggeredBy = triggeredBy
	children := append([]*Scope(nil), s.children...)
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	for _, c := range children {
		c.Cancel(ReasonScopeCancelled, triggeredBy)
	}
}

// Cancelled reports whether this scope has been cancelled.
func (s *Scope) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Reason returns the recorded cancellation reason and triggering signal
// name. Both are zero-valued if the scope has not been cancelled.
func (s *Scope) Reason() (Reason, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason, s.triggeredBy
}

// Release tears down this scope's cancellation source without marking any
// reason, so callers that never observed a cancellation can still free
// resources on every exit path.
func (s *Scope) Release() {
	s.mu.Lock()
	cancelled := s.cancelled
	cancel := s.cancel
	s.mu.Unlock()
	if !cancelled {
		cancel()
	}
}
