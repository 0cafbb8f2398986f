package letterpress

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

// recorderMailer captures outbound messages instead of delivering them.
type recorderMailer struct {
	mu   sync.Mutex
	msgs []Message
}

func (m *recorderMailer) Send(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *recorderMailer) sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.msgs...)
}

// newTestApp builds a fully wired App on temp storage with a recorder mailer.
func newTestApp(t *testing.T) (*App, *recorderMailer) {
	t.Helper()
	mailer := &recorderMailer{}
	cfg := SiteConfig{
		Name:          "Test Blog",
		URL:           "http://blog.test",
		Author:        "Kelly",
		DatabasePath:  filepath.Join(t.TempDir(), "blog.db"),
		StaticDir:     t.TempDir(),
		SessionSecret: "test-session-secret",
		Mail:          MailConfig{TestRecipient: "operator@blog.test"},
	}
	a := New(cfg, ViewFuncs{}, WithMailer(mailer))
	if err := a.Init(); err != nil {
		t.Fatalf("init app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, mailer
}

func doGet(a *App, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func doForm(a *App, method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

// provisionAdmin stores a credential the way the CLI subcommand would.
func provisionAdmin(t *testing.T, a *App, email, password string) {
	t.Helper()
	digest, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := a.Store.UpsertAdmin(email, digest); err != nil {
		t.Fatalf("store admin: %v", err)
	}
}

// adminSession logs in and returns the session cookies for later requests.
func adminSession(t *testing.T, a *App, email, password string) []*http.Cookie {
	t.Helper()
	rec := doForm(a, http.MethodPost, "/admin/login", url.Values{
		"email":    {email},
		"password": {password},
	}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login: got status %d, want %d", rec.Code, http.StatusSeeOther)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login: no session cookie set")
	}
	return cookies
}
