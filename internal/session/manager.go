// Package session owns the client-side authentication state: a two-state
// machine (Anonymous, Authenticated) with named transitions and a durable
// token store. There is no refresh logic; expiry is only ever observed when a
// downstream call reports an authentication rejection.
package session

import (
	"context"
	"errors"
	"sync"

	"supplygw/internal/model"
	"supplygw/internal/workflow"
)

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Manager is the single writer of session state. Every transition replaces
// the whole state atomically; readers take the token at call time. Order
// operations must not reach the network while the manager is Anonymous.
type Manager struct {
	mu    sync.Mutex
	store Store
	state State
	sess  model.Session

	// Displayed order view with a monotonic sequence guard: a listing
	// response is applied only if it belongs to the latest issued request,
	// so a slow stale listing never clobbers a newer one.
	orders  []model.SupplyOrder
	drafts  map[int64]workflow.Status
	listSeq uint64
	applied uint64
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, drafts: map[int64]workflow.Status{}}
}

// Restore transitions directly to Authenticated when a stored token exists.
// Reports whether a session was restored; the caller is expected to attempt
// an initial listing with it.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	sess, err := m.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sess.Empty() {
		return false, nil
	}
	m.mu.Lock()
	m.state, m.sess = Authenticated, sess
	m.mu.Unlock()
	return true, nil
}

// Login records a successful authentication and persists the token.
func (m *Manager) Login(ctx context.Context, sess model.Session) error {
	if err := m.store.Save(ctx, sess); err != nil {
		return err
	}
	m.mu.Lock()
	m.state, m.sess = Authenticated, sess
	m.mu.Unlock()
	return nil
}

// Logout tears the session down. Safe to call from Anonymous.
func (m *Manager) Logout(ctx context.Context) error { return m.teardown(ctx) }

// SessionExpired tears the session down after a downstream 401/403. Safe to
// call redundantly; concurrent in-flight calls may each report the same
// rejection.
func (m *Manager) SessionExpired(ctx context.Context) error { return m.teardown(ctx) }

func (m *Manager) teardown(ctx context.Context) error {
	err := m.store.Clear(ctx)
	m.mu.Lock()
	m.state = Anonymous
	m.sess = model.Session{}
	m.orders = nil
	m.drafts = map[int64]workflow.Status{}
	m.mu.Unlock()
	return err
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the current session and whether one is active.
func (m *Manager) Session() (model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess, m.state == Authenticated
}

// BeginList issues a sequence number for a listing request.
func (m *Manager) BeginList() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listSeq++
	return m.listSeq
}

// ApplyList installs a listing result if, and only if, it came from the
// latest issued request. Draft statuses reset to the listed statuses.
func (m *Manager) ApplyList(seq uint64, orders []model.SupplyOrder) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.listSeq {
		return false
	}
	m.applied = seq
	m.orders = orders
	m.drafts = make(map[int64]workflow.Status, len(orders))
	for _, o := range orders {
		if st, err := workflow.Parse(o.Status); err == nil {
			m.drafts[o.ID] = st
		}
	}
	return true
}

// Orders returns the currently displayed listing.
func (m *Manager) Orders() []model.SupplyOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SupplyOrder, len(m.orders))
	copy(out, m.orders)
	return out
}

// SetDraft records the status an operator has picked for an order but not
// yet submitted.
func (m *Manager) SetDraft(orderID int64, st workflow.Status) {
	m.mu.Lock()
	m.drafts[orderID] = st
	m.mu.Unlock()
}

// Draft returns the pending status selection for an order.
func (m *Manager) Draft(orderID int64) (workflow.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.drafts[orderID]
	return st, ok
}
