package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agencyworks/siteworks/internal/auth"
	"github.com/agencyworks/siteworks/internal/notifier"
	"github.com/agencyworks/siteworks/internal/objectstore"
	"github.com/agencyworks/siteworks/internal/seo"
	"github.com/agencyworks/siteworks/internal/service"
	"github.com/agencyworks/siteworks/internal/sitemap"
	"github.com/agencyworks/siteworks/internal/store"
	"github.com/agencyworks/siteworks/internal/testutil"
)

const (
	testEmail    = "owner@agency.test"
	testPassword = "Corr3ct-Horse-Battery"
)

// fakeSession is an in-memory auth.Session.
type fakeSession struct {
	mu    sync.Mutex
	id    string
	email string
}

func (s *fakeSession) AdminID(context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *fakeSession) Email(context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

func (s *fakeSession) Start(_ context.Context, id auth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.email = id.ID, id.Email
	return nil
}

func (s *fakeSession) End(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.email = "", ""
	return nil
}

// captureMailer records outgoing mail.
type captureMailer struct {
	mu   sync.Mutex
	sent []service.Message
}

func (m *captureMailer) Send(_ context.Context, msg service.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// pingRecorder is a fake search engine endpoint.
type pingRecorder struct {
	mu       sync.Mutex
	sitemaps []string
	status   int
}

func (p *pingRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sitemaps = append(p.sitemaps, r.URL.Query().Get("sitemap"))
	if p.status != 0 {
		w.WriteHeader(p.status)
	}
}

func (p *pingRecorder) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sitemaps...)
}

// testEnv wires the handlers to a migrated SQLite database, an in-memory
// bucket and a fake search engine.
type testEnv struct {
	db        *sql.DB
	queries   *store.Queries
	store     *objectstore.MemoryStore
	generator *sitemap.Generator
	notifier  *notifier.Notifier
	engine    *pingRecorder
	mailer    *captureMailer
	content   *service.ContentService
	contacts  *service.ContactService
	events    *service.EventService
	backend   *auth.LocalBackend
	guard     *auth.Guard
	session   *fakeSession
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.TestDB(t)
	queries := store.New(db)
	logger := testutil.TestLoggerSilent()
	objects := objectstore.NewMemoryStore("https://cdn.example-agency.com/files")

	engine := &pingRecorder{}
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	mailer := &captureMailer{}
	content := service.NewContentService(queries, logger)
	backend := auth.NewLocalBackend(queries, service.ResetMailer{Mailer: mailer}, logger, auth.LocalConfig{
		ResetURL: "https://www.example-agency.com/admin/reset",
	})
	throttle := auth.NewThrottle(auth.NewMemoryAttemptStore(), 5, 15*time.Minute)

	return &testEnv{
		db:      db,
		queries: queries,
		store:   objects,
		generator: sitemap.NewGenerator(content, objects, logger, sitemap.Config{
			DefaultBaseURL: "https://www.example-agency.com",
		}),
		notifier: notifier.New(notifier.Config{
			Endpoints: map[string]string{"google": srv.URL, "bing": srv.URL},
			Timeout:   2 * time.Second,
		}, logger),
		engine:   engine,
		mailer:   mailer,
		content:  content,
		contacts: service.NewContactService(queries, mailer, "hello@agency.test", logger),
		events:   service.NewEventService(db),
		backend:  backend,
		guard:    auth.NewGuard(backend, throttle, logger, auth.GuardConfig{}),
		session:  &fakeSession{},
	}
}

func (e *testEnv) functions() *FunctionsHandler {
	return NewFunctionsHandler(e.generator, e.notifier, e.contacts, e.events, testutil.TestLoggerSilent())
}

func (e *testEnv) auth() *AuthHandler {
	return NewAuthHandler(e.guard, e.session, e.events, testutil.TestLoggerSilent())
}

func (e *testEnv) sitemaps() *SitemapHandler {
	return NewSitemapHandler(e.generator, e.notifier, seo.RobotsConfig{SiteURL: "https://www.example-agency.com"},
		e.events, testutil.TestLoggerSilent())
}

// bootstrap creates the admin account and signs the fake session in.
func (e *testEnv) bootstrap(t *testing.T) {
	t.Helper()
	if _, err := e.guard.Bootstrap(context.Background(), e.session, testEmail, testPassword, testPassword); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:41000"
	return req
}

// withURLParam adds a chi URL parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeBody unmarshals a JSON response body.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return resp
}
