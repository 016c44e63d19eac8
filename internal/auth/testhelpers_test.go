package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agencyworks/siteworks/internal/testutil"
)

const (
	testEmail    = "owner@agency.test"
	testPassword = "Corr3ct-Horse-Battery"
)

// fakeSession is an in-memory Session.
type fakeSession struct {
	mu      sync.Mutex
	adminID string
	starts  int
	ends    int
}

func (s *fakeSession) AdminID(context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adminID
}

func (s *fakeSession) Start(_ context.Context, id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminID = id.ID
	s.starts++
	return nil
}

func (s *fakeSession) End(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminID = ""
	s.ends++
	return nil
}

// recordingMailer captures reset links.
type recordingMailer struct {
	mu    sync.Mutex
	to    []string
	links []string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func (m *recordingMailer) last() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		return "", ""
	}
	return m.to[len(m.to)-1], m.links[len(m.links)-1]
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	backend *LocalBackend
	guard   *Guard
	mailer  *recordingMailer
	clock   *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	queries := testutil.TestQueries(t)
	clock := newTestClock()
	mailer := &recordingMailer{}
	logger := testutil.TestLoggerSilent()

	backend := NewLocalBackend(queries, mailer, logger, LocalConfig{
		ResetURL: "https://www.example-agency.com/admin/reset",
		Now:      clock.Now,
	})
	throttle := NewThrottle(NewSQLAttemptStore(queries), 0, 0)
	guard := NewGuard(backend, throttle, logger, GuardConfig{Now: clock.Now})

	return &testEnv{backend: backend, guard: guard, mailer: mailer, clock: clock}
}

func (e *testEnv) bootstrap(t *testing.T) {
	t.Helper()
	st, err := e.guard.Bootstrap(context.Background(), &fakeSession{}, testEmail, testPassword, testPassword)
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if st.State != StateAuthenticated {
		t.Fatalf("Bootstrap() state = %q", st.State)
	}
}
