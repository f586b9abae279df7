package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	sharedInfra "github.com/mateusmacedo/carpool-bff/internal/infrastructure"
	"github.com/mateusmacedo/carpool-bff/internal/session/application"
	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
	zapAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/zaplogger/adapter"
)

// fakeGateway answers through optional function fields and counts every call.
type fakeGateway struct {
	mu    sync.Mutex
	calls int

	loginFn    func(sessionDomain.Credentials) (sessionDomain.Session, error)
	registerFn func(sessionDomain.RegisterFields) (sessionDomain.Session, error)
	meFn       func(token string) (sessionDomain.Profile, error)
	logoutFn   func(token string) error
	refreshFn  func(refreshToken string) (sessionDomain.Session, error)
	completeFn func(token string, fields sessionDomain.CompletionFields) (sessionDomain.Profile, error)
	updateFn   func(token string, update sessionDomain.ProfileUpdate) (sessionDomain.Profile, error)
	deleteFn   func(token string) error
}

func (g *fakeGateway) count() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGateway) Login(_ context.Context, c sessionDomain.Credentials) (sessionDomain.Session, error) {
	g.count()
	return g.loginFn(c)
}

func (g *fakeGateway) Register(_ context.Context, f sessionDomain.RegisterFields) (sessionDomain.Session, error) {
	g.count()
	return g.registerFn(f)
}

func (g *fakeGateway) Me(_ context.Context, token string) (sessionDomain.Profile, error) {
	g.count()
	return g.meFn(token)
}

func (g *fakeGateway) Logout(_ context.Context, token string) error {
	g.count()
	if g.logoutFn == nil {
		return nil
	}
	return g.logoutFn(token)
}

func (g *fakeGateway) Refresh(_ context.Context, refreshToken string) (sessionDomain.Session, error) {
	g.count()
	return g.refreshFn(refreshToken)
}

func (g *fakeGateway) CompleteProfile(_ context.Context, token string, f sessionDomain.CompletionFields) (sessionDomain.Profile, error) {
	g.count()
	return g.completeFn(token, f)
}

func (g *fakeGateway) UpdateProfile(_ context.Context, token string, u sessionDomain.ProfileUpdate) (sessionDomain.Profile, error) {
	g.count()
	return g.updateFn(token, u)
}

func (g *fakeGateway) DeleteAccount(_ context.Context, token string) error {
	g.count()
	return g.deleteFn(token)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []sessionDomain.ChangeKind
}

func (n *recordingNotifier) Notify(_ context.Context, change sessionDomain.Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change.Kind)
	return nil
}

func (n *recordingNotifier) Subscribe(context.Context) (*sessionDomain.Subscription, error) {
	return nil, errors.New("not supported")
}

func (n *recordingNotifier) kinds() []sessionDomain.ChangeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sessionDomain.ChangeKind(nil), n.changes...)
}

func unreachable() error {
	return &sessionDomain.GatewayError{Err: errors.New("connection refused")}
}

func status(code int) error {
	return &sessionDomain.GatewayError{Status: code}
}

var camille = sessionDomain.Session{
	Profile: sessionDomain.Profile{ID: "u-1", Email: "camille@mail.fr", Username: "camille", IsActive: true},
	Tokens:  sessionDomain.Tokens{Token: "access-1", RefreshToken: "refresh-1"},
}

type storeFixture struct {
	gateway  *fakeGateway
	medium   *sharedInfra.InMemoryMedium
	notifier *recordingNotifier
	store    *application.Store
}

func newStoreFixture() *storeFixture {
	gateway := &fakeGateway{}
	medium := sharedInfra.NewInMemoryMedium()
	notifier := &recordingNotifier{}
	return &storeFixture{
		gateway:  gateway,
		medium:   medium,
		notifier: notifier,
		store:    application.NewStore(gateway, medium, notifier, zapAdapter.NewNopAppLogger()),
	}
}

func (f *storeFixture) loggedIn(t *testing.T) {
	t.Helper()
	f.gateway.loginFn = func(sessionDomain.Credentials) (sessionDomain.Session, error) { return camille, nil }
	_, err := f.store.Login(context.Background(), sessionDomain.Credentials{Email: camille.Email, Password: "pw"})
	require.NoError(t, err)
}

func (f *storeFixture) scalar(t *testing.T, key string) (string, bool) {
	t.Helper()
	value, err := f.medium.Get(context.Background(), key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return "", false
	}
	require.NoError(t, err)
	return string(value), true
}

func TestCurrentUser_NoTokenMakesNoNetworkCall(t *testing.T) {
	f := newStoreFixture()

	profile, err := f.store.CurrentUser(context.Background())

	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.Zero(t, f.gateway.Calls())
}

func TestLogin_PersistsTokensAndNotifies(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)

	token, ok := f.scalar(t, application.TokenKey)
	require.True(t, ok)
	assert.Equal(t, "access-1", token)
	refresh, ok := f.scalar(t, application.RefreshTokenKey)
	require.True(t, ok)
	assert.Equal(t, "refresh-1", refresh)
	assert.Equal(t, []sessionDomain.ChangeKind{sessionDomain.ChangeLogin}, f.notifier.kinds())

	id, name, ok := f.store.CurrentOwner(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)
	assert.Equal(t, "camille", name)
}

func TestLogin_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind domain.AuthKind
	}{
		{"unreachable", unreachable(), domain.AuthUnreachable},
		{"not found", status(404), domain.AuthNotFound},
		{"bad credentials", status(400), domain.AuthBadCredentials},
		{"inactive", status(401), domain.AuthInactive},
		{"other", status(503), domain.AuthUnknown},
		{"untyped", errors.New("weird"), domain.AuthUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newStoreFixture()
			f.gateway.loginFn = func(sessionDomain.Credentials) (sessionDomain.Session, error) {
				return sessionDomain.Session{}, tc.err
			}

			_, err := f.store.Login(context.Background(), sessionDomain.Credentials{Email: "x", Password: "y"})

			assert.True(t, domain.IsAuthKind(err, tc.kind), "got %v", err)
			_, held := f.scalar(t, application.TokenKey)
			assert.False(t, held)
			assert.Empty(t, f.notifier.kinds())
		})
	}
}

func TestLogin_UnreachableLeavesSessionAbsent(t *testing.T) {
	f := newStoreFixture()
	f.gateway.loginFn = func(sessionDomain.Credentials) (sessionDomain.Session, error) {
		return sessionDomain.Session{}, unreachable()
	}

	_, err := f.store.Login(context.Background(), sessionDomain.Credentials{Email: "x", Password: "y"})
	require.True(t, domain.IsAuthKind(err, domain.AuthUnreachable))

	profile, err := f.store.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.Equal(t, 1, f.gateway.Calls())
}

func TestLogin_WithoutTokenInResponseFails(t *testing.T) {
	f := newStoreFixture()
	f.gateway.loginFn = func(sessionDomain.Credentials) (sessionDomain.Session, error) {
		return sessionDomain.Session{Profile: camille.Profile}, nil
	}

	_, err := f.store.Login(context.Background(), sessionDomain.Credentials{})

	assert.True(t, domain.IsAuthKind(err, domain.AuthUnknown))
}

func TestRegister_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind domain.AuthKind
	}{
		{"invalid password", status(400), domain.AuthInvalidPassword},
		{"conflict", status(409), domain.AuthConflict},
		{"already used", status(500), domain.AuthConflict},
		{"unreachable", unreachable(), domain.AuthUnreachable},
		{"other", status(418), domain.AuthUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newStoreFixture()
			f.gateway.registerFn = func(sessionDomain.RegisterFields) (sessionDomain.Session, error) {
				return sessionDomain.Session{}, tc.err
			}

			_, err := f.store.Register(context.Background(), sessionDomain.RegisterFields{Email: "x"})

			assert.True(t, domain.IsAuthKind(err, tc.kind), "got %v", err)
		})
	}
}

func TestRegister_EstablishesSession(t *testing.T) {
	f := newStoreFixture()
	f.gateway.registerFn = func(fields sessionDomain.RegisterFields) (sessionDomain.Session, error) {
		assert.Equal(t, "camille", fields.Username)
		return camille, nil
	}

	session, err := f.store.Register(context.Background(), sessionDomain.RegisterFields{Username: "camille", Email: camille.Email, Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, camille, session)
	assert.Equal(t, []sessionDomain.ChangeKind{sessionDomain.ChangeRegister}, f.notifier.kinds())
}

func TestCurrentUser_FetchesProfileWithBearerToken(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)
	f.gateway.meFn = func(token string) (sessionDomain.Profile, error) {
		assert.Equal(t, "access-1", token)
		return camille.Profile, nil
	}

	profile, err := f.store.CurrentUser(context.Background())

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "camille@mail.fr", profile.Email)
}

func TestCurrentUser_ExpiredTokenIsAbsent(t *testing.T) {
	for _, code := range []int{401, 403, 404} {
		f := newStoreFixture()
		f.loggedIn(t)
		f.gateway.meFn = func(string) (sessionDomain.Profile, error) { return sessionDomain.Profile{}, status(code) }

		profile, err := f.store.CurrentUser(context.Background())

		require.NoError(t, err, "status %d", code)
		assert.Nil(t, profile)
		_, _, ok := f.store.CurrentOwner(context.Background())
		assert.False(t, ok, "cached profile must be dropped")
	}
}

func TestCurrentUser_UnreachableIsAuthError(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)
	f.gateway.meFn = func(string) (sessionDomain.Profile, error) { return sessionDomain.Profile{}, unreachable() }

	_, err := f.store.CurrentUser(context.Background())

	assert.True(t, domain.IsAuthKind(err, domain.AuthUnreachable))
}

func TestLogout_UnreachableGatewayStillClears(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)
	require.NoError(t, f.medium.Put(context.Background(), "myBookings", []byte("[]")))
	f.gateway.logoutFn = func(string) error { return unreachable() }

	require.NoError(t, f.store.Logout(context.Background()))

	assert.Empty(t, f.medium.Keys())
	assert.Equal(t, []sessionDomain.ChangeKind{sessionDomain.ChangeLogin, sessionDomain.ChangeLogout}, f.notifier.kinds())
	_, _, ok := f.store.CurrentOwner(context.Background())
	assert.False(t, ok)
}

func TestLogout_WithoutTokenSkipsGateway(t *testing.T) {
	f := newStoreFixture()

	require.NoError(t, f.store.Logout(context.Background()))

	assert.Zero(t, f.gateway.Calls())
	assert.Equal(t, []sessionDomain.ChangeKind{sessionDomain.ChangeLogout}, f.notifier.kinds())
}

func TestClear_IsLocalOnly(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)
	calls := f.gateway.Calls()

	require.NoError(t, f.store.Clear(context.Background()))

	assert.Equal(t, calls, f.gateway.Calls())
	_, held := f.scalar(t, application.TokenKey)
	assert.False(t, held)
	assert.Contains(t, f.notifier.kinds(), sessionDomain.ChangeClear)
}

func TestRefresh(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)
	renewed := camille
	renewed.Tokens = sessionDomain.Tokens{Token: "access-2", RefreshToken: "refresh-2"}
	f.gateway.refreshFn = func(refreshToken string) (sessionDomain.Session, error) {
		assert.Equal(t, "refresh-1", refreshToken)
		return renewed, nil
	}

	_, err := f.store.Refresh(context.Background())
	require.NoError(t, err)

	token, _ := f.scalar(t, application.TokenKey)
	assert.Equal(t, "access-2", token)
	refresh, _ := f.scalar(t, application.RefreshTokenKey)
	assert.Equal(t, "refresh-2", refresh)
	assert.Contains(t, f.notifier.kinds(), sessionDomain.ChangeRefresh)
}

func TestRefresh_WithoutRefreshTokenIsUnauthorized(t *testing.T) {
	f := newStoreFixture()

	_, err := f.store.Refresh(context.Background())

	assert.True(t, domain.IsAuthKind(err, domain.AuthUnauthorized))
	assert.Zero(t, f.gateway.Calls())
}

func TestProfileCalls_RequireToken(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	_, err := f.store.CompleteProfile(ctx, sessionDomain.CompletionFields{})
	assert.True(t, domain.IsAuthKind(err, domain.AuthUnauthorized))
	_, err = f.store.UpdateProfile(ctx, sessionDomain.ProfileUpdate{})
	assert.True(t, domain.IsAuthKind(err, domain.AuthUnauthorized))
	err = f.store.DeleteAccount(ctx)
	assert.True(t, domain.IsAuthKind(err, domain.AuthUnauthorized))
	assert.Zero(t, f.gateway.Calls())
}

func TestCompleteProfile_UpdatesCacheAndNotifies(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)
	f.gateway.completeFn = func(token string, fields sessionDomain.CompletionFields) (sessionDomain.Profile, error) {
		p := camille.Profile
		p.Username = "camille-driver"
		p.RoleUser = fields.RoleUser
		return p, nil
	}

	profile, err := f.store.CompleteProfile(context.Background(), sessionDomain.CompletionFields{RoleUser: "ROLE_DRIVER"})
	require.NoError(t, err)
	assert.Equal(t, "ROLE_DRIVER", profile.RoleUser)

	_, name, ok := f.store.CurrentOwner(context.Background())
	require.True(t, ok)
	assert.Equal(t, "camille-driver", name)
	assert.Contains(t, f.notifier.kinds(), sessionDomain.ChangeProfile)
}

func TestUpdateProfile_ErrorMapping(t *testing.T) {
	cases := map[int]domain.AuthKind{
		401: domain.AuthUnauthorized,
		404: domain.AuthNotFound,
		400: domain.AuthConflict,
		409: domain.AuthConflict,
	}

	for code, kind := range cases {
		f := newStoreFixture()
		f.loggedIn(t)
		f.gateway.updateFn = func(string, sessionDomain.ProfileUpdate) (sessionDomain.Profile, error) {
			return sessionDomain.Profile{}, status(code)
		}

		_, err := f.store.UpdateProfile(context.Background(), sessionDomain.ProfileUpdate{Address: "Lyon"})

		assert.True(t, domain.IsAuthKind(err, kind), "status %d: got %v", code, err)
	}
}

func TestDeleteAccount_ClearsLocalState(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)
	f.gateway.deleteFn = func(token string) error {
		assert.Equal(t, "access-1", token)
		return nil
	}

	require.NoError(t, f.store.DeleteAccount(context.Background()))

	assert.Empty(t, f.medium.Keys())
	assert.Equal(t, []sessionDomain.ChangeKind{sessionDomain.ChangeLogin, sessionDomain.ChangeLogout}, f.notifier.kinds())
}

func TestDeleteAccount_GatewayFailureKeepsSession(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)
	f.gateway.deleteFn = func(string) error { return status(404) }

	err := f.store.DeleteAccount(context.Background())

	assert.True(t, domain.IsAuthKind(err, domain.AuthNotFound))
	_, held := f.scalar(t, application.TokenKey)
	assert.True(t, held)
}

func TestCurrentOwner_IgnoresCacheOfAnotherToken(t *testing.T) {
	f := newStoreFixture()
	f.loggedIn(t)

	// another process replaced the token in the shared medium
	require.NoError(t, f.medium.Put(context.Background(), application.TokenKey, []byte("access-other")))

	_, _, ok := f.store.CurrentOwner(context.Background())
	assert.False(t, ok)
}
