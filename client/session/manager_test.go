package session_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-blog-server/client/api"
	"github.com/jrsteele09/go-blog-server/client/session"
)

var errRejected = errors.New("credential rejected")

// fakeAuthAPI scripts the server side of the auth exchange. When a call
// fails with errRejected it also fires the rejection hook, the way the
// real request layer does on a credentialed 401.
type fakeAuthAPI struct {
	identity     api.Identity
	loginErr     error
	meErr        error
	refreshErr   error
	loginCalls   int
	meCalls      int
	refreshCalls int
	onRejected   func()

	// When set, Me signals meStarted and then blocks until meGate closes.
	meStarted chan struct{}
	meGate    chan struct{}
}

func (f *fakeAuthAPI) result(err error) (*api.Identity, error) {
	if err != nil {
		if errors.Is(err, errRejected) && f.onRejected != nil {
			f.onRejected()
		}
		return nil, err
	}
	identity := f.identity
	return &identity, nil
}

func (f *fakeAuthAPI) Login(_ context.Context, _, _ string) (*api.Identity, error) {
	f.loginCalls++
	return f.result(f.loginErr)
}

func (f *fakeAuthAPI) Register(_ context.Context, _, _ string) (*api.Identity, error) {
	f.loginCalls++
	return f.result(f.loginErr)
}

func (f *fakeAuthAPI) Me(_ context.Context) (*api.Identity, error) {
	f.meCalls++
	if f.meStarted != nil {
		close(f.meStarted)
		f.meStarted = nil
	}
	if f.meGate != nil {
		<-f.meGate
	}
	return f.result(f.meErr)
}

func (f *fakeAuthAPI) Refresh(_ context.Context) (*api.Identity, error) {
	f.refreshCalls++
	return f.result(f.refreshErr)
}

// testFixture holds all test dependencies
type testFixture struct {
	client  *fakeAuthAPI
	store   *session.MemoryStore
	manager *session.Manager
	now     time.Time
}

func setupTestFixture(t *testing.T, options ...session.ManagerOption) *testFixture {
	t.Helper()

	f := &testFixture{
		client: &fakeAuthAPI{
			identity: api.Identity{ID: "user-1", Username: "ada", Role: "user", Token: "token-1"},
		},
		store: session.NewMemoryStore(),
		now:   time.Now(),
	}

	options = append([]session.ManagerOption{
		session.WithNowTime(func() time.Time { return f.now }),
	}, options...)

	manager, err := session.NewManager(f.client, f.store, options...)
	require.NoError(t, err)
	f.manager = manager
	f.client.onRejected = manager.OnCredentialRejected
	return f
}

func TestLogin_ActivatesAndPersists(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.manager.Login(context.Background(), "ada", "secret1"))

	user, state := f.manager.Current()
	require.Equal(t, session.StateActive, state)
	require.Equal(t, "ada", user.Username)
	require.Equal(t, "token-1", f.manager.Token())

	persisted, err := f.store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, "token-1", persisted.Credential)
	require.Equal(t, "user-1", persisted.User.ID)
}

func TestLogin_FailureReturnsToAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	f.client.loginErr = errors.New("invalid username or password")

	require.Error(t, f.manager.Login(context.Background(), "ada", "wrong"))

	_, state := f.manager.Current()
	require.Equal(t, session.StateAnonymous, state)
	require.Empty(t, f.manager.Token())

	persisted, err := f.store.Load()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), "ada", "secret1"))

	// Switching accounts with a bad password leaves the current session
	// exactly as it was.
	f.client.loginErr = errors.New("invalid username or password")
	require.Error(t, f.manager.Login(context.Background(), "grace", "wrong"))

	user, state := f.manager.Current()
	require.Equal(t, session.StateActive, state)
	require.Equal(t, "ada", user.Username)
	require.Equal(t, "token-1", f.manager.Token())
}

func TestSignUp_Activates(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.manager.SignUp(context.Background(), "ada", "secret1"))

	_, state := f.manager.Current()
	require.Equal(t, session.StateActive, state)
}

func TestLogout_ClearsEverything(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), "ada", "secret1"))

	require.NoError(t, f.manager.Logout())

	_, state := f.manager.Current()
	require.Equal(t, session.StateAnonymous, state)
	require.Empty(t, f.manager.Token())

	persisted, err := f.store.Load()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

// stallingStore blocks a single armed Save until released, holding open
// the window between a session change and its persistence.
type stallingStore struct {
	*session.MemoryStore
	stall   atomic.Bool
	started chan struct{}
	release chan struct{}
}

func (s *stallingStore) Save(sess *session.Session) error {
	if s.stall.CompareAndSwap(true, false) {
		close(s.started)
		<-s.release
	}
	return s.MemoryStore.Save(sess)
}

func TestLogout_WinsOverInFlightRefresh(t *testing.T) {
	client := &fakeAuthAPI{
		identity: api.Identity{ID: "user-1", Username: "ada", Role: "user", Token: "token-1"},
	}
	store := &stallingStore{
		MemoryStore: session.NewMemoryStore(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	manager, err := session.NewManager(client, store)
	require.NoError(t, err)
	client.onRejected = manager.OnCredentialRejected

	require.NoError(t, manager.Login(context.Background(), "ada", "secret1"))

	client.identity.Token = "token-2"
	store.stall.Store(true)

	refreshDone := make(chan error, 1)
	go func() { refreshDone <- manager.Refresh(context.Background()) }()
	<-store.started

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- manager.Logout() }()

	close(store.release)
	require.NoError(t, <-refreshDone)
	require.NoError(t, <-logoutDone)

	// The logout must stand however the two interleave: anonymous in
	// memory and nothing persisted for the next boot to adopt.
	_, state := manager.Current()
	require.Equal(t, session.StateAnonymous, state)
	require.Empty(t, manager.Token())

	persisted, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

func TestBootstrap_NoPersistedSession(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, <-f.manager.Bootstrap(context.Background()))

	_, state := f.manager.Current()
	require.Equal(t, session.StateAnonymous, state)
	require.Zero(t, f.client.meCalls)
}

func TestBootstrap_AdoptsAndValidates(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(&session.Session{
		User:       session.User{ID: "user-1", Username: "ada", Role: "user"},
		Credential: "persisted-token",
	}))

	// The session server-side has since been promoted.
	f.client.identity.Role = "admin"

	done := f.manager.Bootstrap(context.Background())

	// Adoption is immediate and optimistic.
	_, state := f.manager.Current()
	require.Equal(t, session.StateActive, state)

	require.NoError(t, <-done)
	require.Equal(t, 1, f.client.meCalls)

	user, state := f.manager.Current()
	require.Equal(t, session.StateActive, state)
	require.Equal(t, "admin", user.Role)
	// Validation confirms the identity but keeps the persisted credential.
	require.Equal(t, "persisted-token", f.manager.Token())
}

func TestBootstrap_EvictsRejectedSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(&session.Session{
		User:       session.User{ID: "user-1", Username: "ada", Role: "user"},
		Credential: "stale-token",
	}))
	f.client.meErr = errRejected

	require.Error(t, <-f.manager.Bootstrap(context.Background()))

	_, state := f.manager.Current()
	require.Equal(t, session.StateAnonymous, state)
	require.Empty(t, f.manager.Token())

	persisted, err := f.store.Load()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

func TestBootstrap_EvictsOnValidationFailure(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(&session.Session{
		User:       session.User{ID: "user-1", Username: "ada", Role: "user"},
		Credential: "persisted-token",
	}))
	f.client.meErr = errors.New("server unreachable")

	require.Error(t, <-f.manager.Bootstrap(context.Background()))

	// An unvalidated session is never trusted past one round trip.
	_, state := f.manager.Current()
	require.Equal(t, session.StateAnonymous, state)
	require.Empty(t, f.manager.Token())

	persisted, err := f.store.Load()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

func TestBootstrap_FailureSparesNewerSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Save(&session.Session{
		User:       session.User{ID: "user-1", Username: "ada", Role: "user"},
		Credential: "stale-token",
	}))
	f.client.meErr = errors.New("server unreachable")
	meStarted := make(chan struct{})
	f.client.meStarted = meStarted
	f.client.meGate = make(chan struct{})

	done := f.manager.Bootstrap(context.Background())
	<-meStarted

	// A fresh login completes while the boot validation is in flight.
	require.NoError(t, f.manager.Login(context.Background(), "ada", "secret1"))

	close(f.client.meGate)
	require.Error(t, <-done)

	// The failed validation concerned the stale session, not the one the
	// login just established.
	user, state := f.manager.Current()
	require.Equal(t, session.StateActive, state)
	require.Equal(t, "ada", user.Username)
	require.Equal(t, "token-1", f.manager.Token())

	persisted, err := f.store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, "token-1", persisted.Credential)
}

func TestOnCredentialRejected_Evicts(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), "ada", "secret1"))

	f.manager.OnCredentialRejected()

	_, state := f.manager.Current()
	require.Equal(t, session.StateAnonymous, state)

	persisted, err := f.store.Load()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

func TestRefresh_Debounced(t *testing.T) {
	f := setupTestFixture(t, session.WithRefreshDebounce(time.Minute))
	require.NoError(t, f.manager.Login(context.Background(), "ada", "secret1"))

	f.client.identity.Token = "token-2"
	require.NoError(t, f.manager.Refresh(context.Background()))
	require.Equal(t, 1, f.client.refreshCalls)
	require.Equal(t, "token-2", f.manager.Token())

	// Inside the window the second call is a no-op and the first issued
	// credential stays current.
	f.client.identity.Token = "token-3"
	f.now = f.now.Add(30 * time.Second)
	require.NoError(t, f.manager.Refresh(context.Background()))
	require.Equal(t, 1, f.client.refreshCalls)
	require.Equal(t, "token-2", f.manager.Token())

	// Past the window it refreshes again.
	f.now = f.now.Add(31 * time.Second)
	require.NoError(t, f.manager.Refresh(context.Background()))
	require.Equal(t, 2, f.client.refreshCalls)
	require.Equal(t, "token-3", f.manager.Token())
}

func TestRefresh_NoOpWhenAnonymous(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.manager.Refresh(context.Background()))
	require.Zero(t, f.client.refreshCalls)
}

func TestRefresh_RejectionEvicts(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.Login(context.Background(), "ada", "secret1"))

	f.client.refreshErr = errRejected
	require.Error(t, f.manager.Refresh(context.Background()))

	_, state := f.manager.Current()
	require.Equal(t, session.StateAnonymous, state)
	require.Empty(t, f.manager.Token())
}
