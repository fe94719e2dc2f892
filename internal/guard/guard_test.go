package guard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"educonnect/internal/auth"
	"educonnect/internal/cache"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/rbac"
	"educonnect/internal/session"
)

type fakeProfiles struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
	calls atomic.Int32
	// block, when set, holds fetches for principal ids listed in slow.
	block chan struct{}
	slow  map[string]bool
}

func (f *fakeProfiles) FindByID(ctx context.Context, id string) (*model.User, error) {
	f.calls.Add(1)
	f.mu.Lock()
	block, slow := f.block, f.slow[id]
	f.mu.Unlock()
	if block != nil && slow {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeProfiles) setRole(id, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id].Role = role
}

type fakeSignOut struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSignOut) ForceSignOut(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return nil
}

func (f *fakeSignOut) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type countingSessions struct {
	session.Store
	puts, clears atomic.Int32
}

func (s *countingSessions) Put(ctx context.Context, tab string, rec session.Record) error {
	s.puts.Add(1)
	return s.Store.Put(ctx, tab, rec)
}

func (s *countingSessions) Clear(ctx context.Context, tab string) error {
	s.clears.Add(1)
	return s.Store.Clear(ctx, tab)
}

type fixture struct {
	guard    *Guard
	profiles *fakeProfiles
	signOut  *fakeSignOut
	sessions *countingSessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pages, err := rbac.DefaultPages()
	require.NoError(t, err)

	f := &fixture{
		profiles: &fakeProfiles{users: map[string]*model.User{
			"student": {ID: "student", Email: "s@school.edu", FirstName: "Sam", LastName: "Lee", Role: "Client User", StudentID: "S-1", Status: model.UserStatusActive},
			"admin":   {ID: "admin", Email: "a@school.edu", Username: "ada", Role: "Admin", StudentID: "stale", Status: model.UserStatusActive},
			"super":   {ID: "super", Email: "root@school.edu", Role: "Super Admin", Status: model.UserStatusActive},
			"norole":  {ID: "norole", Email: "n@school.edu", Status: model.UserStatusActive},
			"teacher": {ID: "teacher", Email: "t@school.edu", Role: "Teacher", Status: model.UserStatusActive},
			"retired": {ID: "retired", Email: "r@school.edu", Role: "Admin", Status: model.UserStatusInactive},
		}},
		signOut:  &fakeSignOut{},
		sessions: &countingSessions{Store: session.NewKVStore(cache.NewMemory(), time.Hour)},
	}
	f.guard = New(f.profiles, f.signOut, f.sessions, pages, zap.NewNop(), Config{VerifyTimeout: time.Second})
	return f
}

func req(tab, principal, path string) Request {
	r := Request{Tab: tab, Path: path}
	if principal != "" {
		r.Principal = &Principal{ID: principal}
	}
	return r
}

func (f *fixture) stored(t *testing.T, tab string) *session.Record {
	t.Helper()
	rec, err := f.sessions.Get(context.Background(), tab)
	require.NoError(t, err)
	return rec
}

func TestClientUserOnAdminPageIsSignedOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.sessions.Store.Put(ctx, "t1", session.Record{PrincipalID: "student", Role: rbac.ClientUser}))

	out, err := f.guard.Verify(ctx, req("t1", "student", "/admin/dashboard.html"))
	require.NoError(t, err)

	assert.Equal(t, Denied, out.State)
	assert.False(t, out.Allowed)
	assert.True(t, out.SignedOut)
	assert.Equal(t, "/customer/login.html", out.Redirect)
	assert.NotEmpty(t, out.Alert)
	assert.Nil(t, out.Session)
	assert.Equal(t, []string{"student"}, f.signOut.calls)
	assert.Nil(t, f.stored(t, "t1"), "no session record may remain")
	assert.Equal(t, Denied, f.guard.State("t1"))
}

func TestSuperAdminOnEventsPageIsRedirectedOnly(t *testing.T) {
	f := newFixture(t)

	out, err := f.guard.Verify(context.Background(), req("t1", "super", "/admin/events.html"))
	require.NoError(t, err)

	assert.Equal(t, Denied, out.State)
	assert.False(t, out.SignedOut)
	assert.Equal(t, "/admin/dashboard.html", out.Redirect)
	assert.Zero(t, f.signOut.count())

	rec := f.stored(t, "t1")
	require.NotNil(t, rec, "redirect-only denial keeps the session")
	assert.Equal(t, rbac.SuperAdmin, rec.Role)
}

func TestAuthorizedPublishesSession(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, Idle, f.guard.State("t1"))
	out, err := f.guard.Verify(context.Background(), req("t1", "admin", "/admin/events.html?x=1"))
	require.NoError(t, err)

	assert.Equal(t, Authorized, out.State)
	assert.True(t, out.Allowed)
	assert.Empty(t, out.Redirect)
	require.NotNil(t, out.Session)
	assert.Equal(t, rbac.Admin, out.Session.Role)
	assert.Equal(t, "ada", out.Session.DisplayName)
	assert.Empty(t, out.Session.StudentID, "student id only travels with client users")
	require.NotNil(t, out.Affordances)
	assert.Contains(t, out.Affordances.Show, "eventsLink")

	assert.Equal(t, out.Session, f.stored(t, "t1"))
	assert.Nil(t, f.stored(t, "t2"), "sessions are tab scoped")
	assert.Equal(t, Authorized, f.guard.State("t1"))
}

func TestStudentSessionCarriesStudentID(t *testing.T) {
	f := newFixture(t)
	out, err := f.guard.Verify(context.Background(), req("t1", "student", "/customer/dashboard.html"))
	require.NoError(t, err)
	require.True(t, out.Allowed)
	assert.Equal(t, "S-1", out.Session.StudentID)
	assert.Equal(t, "Sam Lee", out.Session.DisplayName)
}

func TestAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.guard.Verify(ctx, req("t1", "", "/index.html"))
	require.NoError(t, err)
	assert.True(t, out.Allowed)

	require.NoError(t, f.sessions.Store.Put(ctx, "t1", session.Record{PrincipalID: "gone", Role: rbac.Admin}))
	out, err = f.guard.Verify(ctx, req("t1", "", "/admin/dashboard.html"))
	require.NoError(t, err)
	assert.Equal(t, Denied, out.State)
	assert.False(t, out.SignedOut)
	assert.Equal(t, "/admin/login.html", out.Redirect)
	assert.Nil(t, f.stored(t, "t1"))

	out, err = f.guard.Verify(ctx, req("t1", "", "/customer/attendance.html"))
	require.NoError(t, err)
	assert.Equal(t, "/customer/login.html", out.Redirect)

	assert.Zero(t, f.signOut.count())
	assert.Zero(t, f.profiles.calls.Load())
}

func TestDefinitiveProfileFailuresSignOut(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		fetchErr  error
	}{
		{name: "missing profile", principal: "ghost"},
		{name: "inactive account", principal: "retired"},
		{name: "permission error", principal: "admin", fetchErr: errors.New("permission denied")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.profiles.err = tt.fetchErr
			ctx := context.Background()
			require.NoError(t, f.sessions.Store.Put(ctx, "t1", session.Record{PrincipalID: tt.principal}))

			out, err := f.guard.Verify(ctx, req("t1", tt.principal, "/admin/dashboard.html"))
			require.NoError(t, err)
			assert.Equal(t, Denied, out.State)
			assert.True(t, out.SignedOut)
			assert.Equal(t, "/admin/login.html", out.Redirect)
			assert.Equal(t, []string{tt.principal}, f.signOut.calls)
			assert.Nil(t, f.stored(t, "t1"))
		})
	}
}

func TestRoleFallbacks(t *testing.T) {
	for _, principal := range []string{"norole", "teacher"} {
		t.Run(principal, func(t *testing.T) {
			f := newFixture(t)
			out, err := f.guard.Verify(context.Background(), req("t1", principal, "/customer/dashboard.html"))
			require.NoError(t, err)
			assert.True(t, out.Allowed)
			assert.Equal(t, rbac.ClientUser, out.Session.Role)

			out, err = f.guard.Verify(context.Background(), req("t1", principal, "/admin/dashboard.html"))
			require.NoError(t, err)
			assert.True(t, out.SignedOut)
		})
	}
}

func TestTransientFailureKeepsPrincipalSignedIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prior := session.Record{PrincipalID: "admin", Role: rbac.Admin}
	require.NoError(t, f.sessions.Store.Put(ctx, "t1", prior))
	f.profiles.err = fmt.Errorf("fetch profile: %w", context.DeadlineExceeded)

	out, err := f.guard.Verify(ctx, req("t1", "admin", "/admin/dashboard.html"))
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, Error, out.State)
	assert.False(t, out.SignedOut)
	assert.Zero(t, f.signOut.count())
	assert.Equal(t, &prior, f.stored(t, "t1"), "transient failures leave the session alone")
	assert.Equal(t, Error, f.guard.State("t1"))

	// the next trigger retries
	f.profiles.err = nil
	out, err = f.guard.Verify(ctx, req("t1", "admin", "/admin/dashboard.html"))
	require.NoError(t, err)
	assert.True(t, out.Allowed)
}

func TestConcurrentDuplicatesShareOnePass(t *testing.T) {
	f := newFixture(t)
	f.profiles.block = make(chan struct{})
	f.profiles.slow = map[string]bool{"student": true}

	const callers = 8
	var wg sync.WaitGroup
	outs := make([]Outcome, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = f.guard.Verify(context.Background(), req("t1", "student", "/admin/dashboard.html"))
		}(i)
	}

	require.Eventually(t, func() bool { return f.profiles.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(f.profiles.block)
	wg.Wait()

	assert.Equal(t, int32(1), f.profiles.calls.Load())
	assert.Equal(t, 1, f.signOut.count(), "exactly one sign-out")
	assert.Equal(t, int32(1), f.sessions.clears.Load())
	for i := range outs {
		require.NoError(t, errs[i])
		assert.True(t, outs[i].Shared)
		outs[i].Shared = false
		assert.Equal(t, outs[0], outs[i])
	}
}

func TestReverificationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := req("t1", "admin", "/admin/dashboard.html")

	first, err := f.guard.Verify(ctx, r)
	require.NoError(t, err)
	rec1 := f.stored(t, "t1")

	second, err := f.guard.Verify(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, rec1, f.stored(t, "t1"))
	assert.Zero(t, f.signOut.count())
}

func TestOlderPassIsSuperseded(t *testing.T) {
	f := newFixture(t)
	f.profiles.block = make(chan struct{})
	f.profiles.slow = map[string]bool{"student": true}
	ctx := context.Background()

	done := make(chan Outcome, 1)
	go func() {
		out, _ := f.guard.Verify(ctx, req("t1", "student", "/admin/dashboard.html"))
		done <- out
	}()
	require.Eventually(t, func() bool { return f.profiles.calls.Load() == 1 }, time.Second, time.Millisecond)

	newer, err := f.guard.Verify(ctx, req("t1", "admin", "/admin/dashboard.html"))
	require.NoError(t, err)
	require.True(t, newer.Allowed)

	close(f.profiles.block)
	older := <-done

	assert.True(t, older.Superseded)
	assert.Zero(t, f.signOut.count(), "a superseded pass has no side effects")
	rec := f.stored(t, "t1")
	require.NotNil(t, rec)
	assert.Equal(t, "admin", rec.PrincipalID)
	assert.Equal(t, Authorized, f.guard.State("t1"))
}

func TestGatePassesAreOrderedPerPage(t *testing.T) {
	f := newFixture(t)
	f.profiles.block = make(chan struct{})
	f.profiles.slow = map[string]bool{"admin": true}
	ctx := context.Background()

	gate := func(path string) Request {
		r := req("t1", "admin", path)
		r.Gate = true
		return r
	}

	done := make(chan Outcome, 1)
	go func() {
		out, _ := f.guard.Verify(ctx, gate("/admin/events.html"))
		done <- out
	}()
	require.Eventually(t, func() bool { return f.profiles.calls.Load() == 1 }, time.Second, time.Millisecond)

	f.profiles.mu.Lock()
	f.profiles.slow = nil
	f.profiles.mu.Unlock()
	dashboard, err := f.guard.Verify(ctx, gate("/admin/dashboard.html"))
	require.NoError(t, err)
	assert.True(t, dashboard.Allowed)

	close(f.profiles.block)
	events := <-done
	assert.False(t, events.Superseded)
	assert.True(t, events.Allowed)
	require.NotNil(t, events.Session)
	assert.Equal(t, "admin", events.Session.PrincipalID)

	assert.Nil(t, f.stored(t, "t1"), "gate passes do not publish the tab session")
	assert.Equal(t, Idle, f.guard.State("t1"))
}

func TestGateSignOutClearsTabSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.guard.Verify(ctx, req("t1", "student", "/customer/dashboard.html"))
	require.NoError(t, err)
	require.NotNil(t, f.stored(t, "t1"))

	r := req("t1", "student", "/admin/events.html")
	r.Gate = true
	out, err := f.guard.Verify(ctx, r)
	require.NoError(t, err)
	assert.True(t, out.SignedOut)
	assert.Equal(t, 1, f.signOut.count())
	assert.Nil(t, f.stored(t, "t1"))
}

func TestCallerCancellationDoesNotAbortPass(t *testing.T) {
	f := newFixture(t)
	f.profiles.block = make(chan struct{})
	f.profiles.slow = map[string]bool{"student": true}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := f.guard.Verify(ctx, req("t1", "student", "/admin/dashboard.html"))
		errCh <- err
	}()
	require.Eventually(t, func() bool { return f.profiles.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(f.profiles.block)
	assert.Eventually(t, func() bool { return f.signOut.count() == 1 }, time.Second, time.Millisecond)
}

func TestIdleTabsArePruned(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	f.guard.now = func() time.Time { return now }
	f.guard.cfg.IdleTTL = time.Minute

	_, err := f.guard.Verify(context.Background(), req("old", "admin", "/admin/dashboard.html"))
	require.NoError(t, err)
	assert.Equal(t, Authorized, f.guard.State("old"))

	now = now.Add(5 * time.Minute)
	_, err = f.guard.Verify(context.Background(), req("new", "admin", "/admin/dashboard.html"))
	require.NoError(t, err)
	assert.Equal(t, Idle, f.guard.State("old"))
	assert.Equal(t, Authorized, f.guard.State("new"))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("query: %w", timeoutErr{}), true},
		{errors.New("rpc error: code = Unavailable"), true},
		{errors.New("FAILED-PRECONDITION: offline"), true},
		{errors.New("network is unreachable"), true},
		{apperrors.ErrNotFound, false},
		{errors.New("permission denied"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTransient(tt.err), "%v", tt.err)
	}
}

func TestWatchReverifiesOnPrincipalChange(t *testing.T) {
	f := newFixture(t)
	broker := auth.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, unsubscribe := broker.Subscribe(ctx)
	defer unsubscribe()

	outs := make(chan Outcome, 8)
	done := make(chan error, 1)
	go func() {
		done <- f.guard.Watch(ctx, req("t1", "admin", "/admin/dashboard.html"), changes, func(o Outcome, _ error) {
			outs <- o
		})
	}()

	first := <-outs
	assert.True(t, first.Allowed)

	broker.Publish(auth.PrincipalChange{Kind: auth.ProfileChanged, PrincipalID: "someone-else"})
	f.profiles.setRole("admin", "Client User")
	broker.Publish(auth.PrincipalChange{Kind: auth.ProfileChanged, PrincipalID: "admin"})

	second := <-outs
	assert.True(t, second.SignedOut, "demoted principal is signed out on the next change")
	assert.Equal(t, "/customer/login.html", second.Redirect)

	broker.Publish(auth.PrincipalChange{Kind: auth.SignedOut, PrincipalID: "admin"})
	third := <-outs
	assert.False(t, third.SignedOut)
	assert.Equal(t, "/admin/login.html", third.Redirect, "after sign-out the tab is anonymous")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Len(t, outs, 0, "unrelated principals trigger nothing")
}
