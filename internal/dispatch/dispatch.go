// Package dispatch is the thin command-executor boundary described in
// SPEC_FULL §6.1. It accepts already-parsed command structs and applies
// them to a store/session pair — it performs no text or wire parsing,
// which remains the job of an actual protocol layer (explicitly out of
// scope for this core per spec §1).
package dispatch

import (
	"github.com/rkv-project/rkv/internal/namespace"
	"github.com/rkv-project/rkv/internal/store"
)

// Select switches the session's active namespace (spec §6 "SELECT").
type Select struct {
	Name     string
	Password *string // nil means "no password presented"
}

// Set writes key=value in the session's active namespace (spec §6 "SET").
type Set struct {
	Key   []byte
	Value []byte
}

// Get reads key from the session's active namespace (spec §6 "GET").
type Get struct {
	Key []byte
}

// NSNew creates a namespace (spec §6 "NSNEW").
type NSNew struct {
	Name string
}

// NSSet mutates a namespace policy field (spec §6 "NSSET").
type NSSet struct {
	Name  string
	Field string
	Value string
}

// Rotate closes the session's current namespace's active segment pair
// and opens the next one in sequence (spec §4.2 "jump_next", §4.5).
type Rotate struct{}

// Executor applies parsed commands to a store and a per-connection
// session.
type Executor struct {
	Store   *store.Store
	Session *namespace.Session
}

// New returns an Executor bound to store with a fresh session
// initialized to {"default", true}.
func New(s *store.Store) (*Executor, error) {
	sess, err := s.NewSession()
	if err != nil {
		return nil, err
	}
	return &Executor{Store: s, Session: sess}, nil
}

// Do dispatches cmd to the appropriate handler and returns its result.
// Get returns ([]byte, nil); every other command returns (nil, err).
func (ex *Executor) Do(cmd any) ([]byte, error) {
	switch c := cmd.(type) {
	case Select:
		return nil, ex.Session.Select(c.Name, c.Password)
	case Set:
		return nil, ex.Session.Set(c.Key, c.Value)
	case Get:
		return ex.Session.Get(c.Key)
	case NSNew:
		_, err := ex.Store.Mgr.Create(c.Name)
		return nil, err
	case NSSet:
		return nil, ex.Store.Mgr.NSSet(c.Name, c.Field, c.Value)
	case Rotate:
		return nil, ex.Session.Rotate()
	default:
		panic("dispatch: unknown command type")
	}
}
