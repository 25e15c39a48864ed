package namespace

import (
	"github.com/google/uuid"

	"github.com/rkv-project/rkv/internal/rkverrors"
)

// Session is the per-connection state machine of spec §4.4:
// {selected_namespace, authenticated}. The zero value is not usable;
// construct with Manager.NewSession.
type Session struct {
	id            uuid.UUID
	mgr           *Manager
	namespace     *Namespace
	authenticated bool
}

// NewSession returns a session initialized to {"default", true}, per
// spec §4.4. The session is stamped with an opaque id a future
// protocol layer can log or correlate against, without that id ever
// becoming part of this core's own addressing.
func (m *Manager) NewSession() (*Session, error) {
	ns, ok := m.get(DefaultName)
	if !ok {
		return nil, rkverrors.ErrKeyNotFound
	}
	return &Session{id: uuid.New(), mgr: m, namespace: ns, authenticated: true}, nil
}

// ID returns the session's opaque handle.
func (s *Session) ID() uuid.UUID { return s.id }

// Namespace returns the session's currently selected namespace.
func (s *Session) Namespace() *Namespace { return s.namespace }

// Authenticated reports whether this session holds write ownership of
// its current namespace.
func (s *Session) Authenticated() bool { return s.authenticated }

// Select transitions the session to name, authenticating with an
// optional password. On failure the prior selection is left intact —
// the transition is atomic or not at all (spec §4.4).
func (s *Session) Select(name string, password *string) error {
	ns, authenticated, err := s.mgr.Select(name, password)
	if err != nil {
		return err
	}
	s.namespace = ns
	s.authenticated = authenticated
	return nil
}

// Get reads key from the session's current namespace.
func (s *Session) Get(key []byte) ([]byte, error) {
	return s.namespace.Get(key)
}

// Set writes key=value to the session's current namespace, subject to
// the read-only mode described in spec §4.4.
func (s *Session) Set(key, value []byte) error {
	if !s.authenticated {
		return rkverrors.ErrReadOnly
	}
	return s.namespace.Set(key, value)
}

// Rotate closes the session's current namespace's active segment pair
// and opens the next one in sequence (spec §4.2 "jump_next"), subject
// to the same write-ownership rule as Set.
func (s *Session) Rotate() error {
	if !s.authenticated {
		return rkverrors.ErrReadOnly
	}
	return s.namespace.Rotate()
}
