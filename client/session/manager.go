// Package session owns the client's authentication lifecycle. All writes
// to the current session funnel through a single Manager, so the rest of
// the client only ever reads a consistent snapshot.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-blog-server/client/api"
)

// State is the session lifecycle state.
type State string

// Session states. Anonymous means no credential; Pending means an
// authentication exchange is in flight; Active means a credential is held
// and presumed valid.
const (
	StateAnonymous State = "anonymous"
	StatePending   State = "pending"
	StateActive    State = "active"
)

// DefaultRefreshDebounce is the minimum interval between credential
// refresh requests.
const DefaultRefreshDebounce = time.Minute

// AuthAPI is the slice of the server API the manager needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*api.Identity, error)
	Register(ctx context.Context, username, password string) (*api.Identity, error)
	Me(ctx context.Context) (*api.Identity, error)
	Refresh(ctx context.Context) (*api.Identity, error)
}

// Manager is the single writer for session state. Reads (Current, Token)
// may happen from any goroutine.
type Manager struct {
	mu      sync.Mutex
	state   State
	session *Session

	// epoch increments on every eviction. In-flight operations capture it
	// before releasing the lock and discard their result if it has moved,
	// so a logout or rejection during a network round trip always wins.
	epoch uint64

	client      AuthAPI
	store       Store
	debounce    time.Duration
	lastRefresh time.Time
	nowTime     func() time.Time
	logger      zerolog.Logger
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime overrides the manager's clock.
func WithNowTime(nowTime func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowTime
	}
}

// WithRefreshDebounce overrides the minimum interval between refreshes.
func WithRefreshDebounce(debounce time.Duration) ManagerOption {
	return func(m *Manager) {
		m.debounce = debounce
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session Manager over the given API client and store.
func NewManager(client AuthAPI, store Store, options ...ManagerOption) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] nil api client")
	}
	if store == nil {
		return nil, errors.New("[NewManager] nil store")
	}
	m := &Manager{
		state:    StateAnonymous,
		client:   client,
		store:    store,
		debounce: DefaultRefreshDebounce,
		nowTime:  time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Current returns the session user and state. The user is the zero value
// unless the state is Active.
func (m *Manager) Current() (User, State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return User{}, m.state
	}
	return m.session.User, m.state
}

// Token returns the current credential, or "" when not Active. It
// satisfies api.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Credential
}

// Bootstrap adopts any persisted session optimistically, then validates
// it against the server in the background. The returned channel delivers
// the validation outcome: nil when the session was confirmed or none
// existed, otherwise the validation error (after which the adopted
// session has been evicted unless something newer replaced it first).
func (m *Manager) Bootstrap(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	persisted, err := m.store.Load()
	if err != nil {
		m.logger.Warn().Err(err).Msg("session load failed, starting anonymous")
		done <- err
		return done
	}
	if persisted == nil {
		done <- nil
		return done
	}

	m.mu.Lock()
	m.session = persisted
	m.setStateLocked(StateActive)
	epoch := m.epoch
	m.mu.Unlock()

	go func() {
		identity, err := m.client.Me(ctx)
		if err != nil {
			// The adopted session stays trusted for exactly one
			// validation round trip. Evict only if it is still the
			// session we adopted: a login or rejection that landed
			// while Me was in flight has already replaced or removed
			// it, and that outcome must stand.
			m.logger.Debug().Err(err).Msg("session validation failed")
			m.mu.Lock()
			if m.session == persisted {
				if clearErr := m.evictLocked("boot validation failed"); clearErr != nil {
					m.logger.Warn().Err(clearErr).Msg("session clear failed")
				}
			}
			m.mu.Unlock()
			done <- err
			return
		}
		m.adopt(epoch, identity, persisted.Credential)
		done <- nil
	}()
	return done
}

// Login authenticates and activates a session.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	return m.authenticate(ctx, username, password, m.client.Login)
}

// SignUp registers a new account and activates a session.
func (m *Manager) SignUp(ctx context.Context, username, password string) error {
	return m.authenticate(ctx, username, password, m.client.Register)
}

func (m *Manager) authenticate(ctx context.Context, username, password string, exchange func(context.Context, string, string) (*api.Identity, error)) error {
	m.mu.Lock()
	previous := m.state
	m.setStateLocked(StatePending)
	epoch := m.epoch
	m.mu.Unlock()

	identity, err := exchange(ctx, username, password)
	if err != nil {
		// A failed exchange leaves any existing session untouched.
		m.mu.Lock()
		if m.epoch == epoch && m.state == StatePending {
			m.setStateLocked(previous)
		}
		m.mu.Unlock()
		return err
	}
	if !m.adopt(epoch, identity, identity.Token) {
		return errors.New("[Manager.authenticate] session evicted during exchange")
	}
	return nil
}

// Logout evicts the session, erasing both the in-memory state and the
// persisted copy.
func (m *Manager) Logout() error {
	return m.evict("logout")
}

// OnCredentialRejected evicts the session. Wire it as the API client's
// rejection handler so any 401 on a credentialed request lands here.
func (m *Manager) OnCredentialRejected() {
	if err := m.evict("credential rejected"); err != nil {
		m.logger.Warn().Err(err).Msg("session clear failed")
	}
}

// Refresh exchanges the current credential for a fresh one, at most once
// per debounce window. Calls outside an Active session or inside the
// window are no-ops.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return nil
	}
	now := m.nowTime()
	if now.Sub(m.lastRefresh) < m.debounce {
		m.mu.Unlock()
		return nil
	}
	m.lastRefresh = now
	epoch := m.epoch
	m.mu.Unlock()

	identity, err := m.client.Refresh(ctx)
	if err != nil {
		return errors.Wrap(err, "[Manager.Refresh]")
	}
	m.adopt(epoch, identity, identity.Token)
	return nil
}

// adopt installs an identity as the active session unless an eviction
// happened since epoch was captured. Reports whether it was applied.
func (m *Manager) adopt(epoch uint64, identity *api.Identity, credential string) bool {
	session := &Session{
		User: User{
			ID:       identity.ID,
			Username: identity.Username,
			Role:     identity.Role,
		},
		Credential: credential,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return false
	}
	m.session = session
	m.setStateLocked(StateActive)
	// Persist under the same lock as the state change. An eviction that
	// interleaved between the two would be overwritten in the store,
	// resurrecting a logged-out session on the next boot.
	if err := m.store.Save(session); err != nil {
		m.logger.Warn().Err(err).Msg("session save failed")
	}
	return true
}

func (m *Manager) evict(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictLocked(reason)
}

// evictLocked resets to Anonymous and erases the persisted session. The
// store write happens under the lock so it cannot interleave with a
// concurrent adopt.
func (m *Manager) evictLocked(reason string) error {
	m.session = nil
	m.epoch++
	m.lastRefresh = time.Time{}
	if m.state != StateAnonymous {
		m.logger.Info().Str("from", string(m.state)).Str("to", string(StateAnonymous)).Str("reason", reason).Msg("session transition")
	}
	m.state = StateAnonymous
	return m.store.Clear()
}

func (m *Manager) setStateLocked(next State) {
	if m.state == next {
		return
	}
	m.logger.Info().Str("from", string(m.state)).Str("to", string(next)).Msg("session transition")
	m.state = next
}
