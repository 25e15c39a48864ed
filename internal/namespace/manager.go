package namespace

import (
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/crypto/bcrypt"

	"github.com/rkv-project/rkv/internal/config"
	"github.com/rkv-project/rkv/internal/rkverrors"
)

// Manager is the namespace registry: the collection of independent
// namespace triples described in spec §4.4, keyed by logical name.
type Manager struct {
	root string
	cfg  config.Config
	reg  map[string]string // logical name -> directory id
	ns   map[string]*Namespace

	mu sync.Mutex
}

// NewManager loads (or initializes) the namespace registry rooted at
// cfg.RootPath, ensuring the protected "default" namespace exists. cfg
// also supplies the durability posture and index-file sequence bound
// every namespace it opens is constructed with.
func NewManager(cfg config.Config) (*Manager, error) {
	reg, err := loadRegistry(cfg.RootPath)
	if err != nil {
		return nil, err
	}

	m := &Manager{root: cfg.RootPath, cfg: cfg, reg: reg, ns: make(map[string]*Namespace)}

	if _, err := m.open(DefaultName); err != nil {
		return nil, err
	}
	return m, nil
}

// open loads an already-registered namespace (or creates a brand new
// one) into memory, caching it for subsequent lookups. Idempotent:
// calling it again on an already-open namespace is a no-op.
func (m *Manager) open(name string) (*Namespace, error) {
	if ns, ok := m.ns[name]; ok {
		return ns, nil
	}

	dirID, known := m.reg[name]
	if !known {
		dirID = dirFor(name)
		m.reg[name] = dirID
		if err := saveRegistry(m.root, m.reg); err != nil {
			return nil, err
		}
	}

	policy, err := loadPolicy(nsDirPath(m.root, dirID))
	if err != nil {
		return nil, err
	}
	if name == DefaultName {
		policy = defaultPolicy()
	}

	ns, err := open(m.root, name, dirID, policy, m.cfg)
	if err != nil {
		return nil, err
	}

	m.ns[name] = ns
	return ns, nil
}

func nsDirPath(root, dirID string) string {
	return root + "/" + dirID
}

func defaultPolicy() Policy {
	return Policy{Public: true, MaxSize: 0}
}

// Create allocates (or, if it already exists on disk, reloads) a
// namespace named name (spec §4.4 "create"). Idempotent.
func (m *Manager) Create(name string) (*Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open(name)
}

// get returns an already-open namespace by name without creating it,
// for lookups that must fail on a missing namespace (e.g. Select).
func (m *Manager) get(name string) (*Namespace, bool) {
	if ns, ok := m.ns[name]; ok {
		return ns, true
	}
	if _, known := m.reg[name]; known {
		ns, err := m.open(name)
		if err != nil {
			return nil, false
		}
		return ns, true
	}
	return nil, false
}

// Select resolves name (and an optional password) to a namespace and
// the write ownership the caller is granted, per the rules of spec
// §4.4 and read-only mode. password == nil means "no password was
// presented" (distinct from an empty-string password).
func (m *Manager) Select(name string, password *string) (ns *Namespace, authenticated bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.get(name)
	if !ok {
		return nil, false, rkverrors.ErrKeyNotFound
	}

	p := ns.Policy()

	if len(p.PasswordHash) == 0 {
		if !p.Public {
			// Private with no password configured: nothing can ever
			// satisfy "a password is required" (spec §4.4), so deny.
			return nil, false, rkverrors.ErrAuthDenied
		}
		return ns, true, nil
	}

	if password != nil {
		if bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(*password)) != nil {
			return nil, false, rkverrors.ErrAuthDenied
		}
		return ns, true, nil
	}

	if p.Public {
		// Public read-only view: selection succeeds without the
		// password, but write ownership is withheld (spec §4.4).
		return ns, false, nil
	}

	return nil, false, rkverrors.ErrAuthDenied
}

// NSSet mutates a policy field of name (spec §4.4 "nsset"). Fails with
// ErrProtectedNamespace for the "default" namespace regardless of
// field.
func (m *Manager) NSSet(name, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == DefaultName {
		return rkverrors.ErrProtectedNamespace
	}

	ns, ok := m.get(name)
	if !ok {
		return rkverrors.ErrKeyNotFound
	}

	switch field {
	case "public":
		switch value {
		case "0":
			ns.policy.Public = false
		case "1":
			ns.policy.Public = true
		default:
			return fmt.Errorf("%w: public must be \"0\" or \"1\"", rkverrors.ErrInvalidArgument)
		}

	case "password":
		if value == "" {
			ns.policy.PasswordHash = nil
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
			if err != nil {
				// bcrypt rejects inputs over 72 bytes (ErrPasswordTooLong):
				// a client-supplied password, not a process-level failure.
				return fmt.Errorf("%w: %v", rkverrors.ErrInvalidArgument, err)
			}
			ns.policy.PasswordHash = hash
		}

	case "maxsize":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: maxsize must be a decimal byte count", rkverrors.ErrInvalidArgument)
		}
		ns.policy.MaxSize = n

	default:
		return fmt.Errorf("%w: unknown NSSET field %q", rkverrors.ErrInvalidArgument, field)
	}

	return savePolicy(ns.dir, ns.policy)
}

// Close flushes and closes every open namespace, aggregating any
// per-namespace failures instead of stopping at the first one (spec
// SPEC_FULL §4.5).
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error
	for _, ns := range m.ns {
		errs = multierr.Append(errs, ns.Close())
	}
	return errs
}

// Emergency fsyncs every open namespace's active index segment (spec
// §4.5 "emergency").
func (m *Manager) Emergency() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error
	for _, ns := range m.ns {
		errs = multierr.Append(errs, ns.Emergency())
	}
	return errs
}
