package letterpress

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// pngBytes encodes a solid w×h PNG for upload tests.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type upload struct {
	field    string
	filename string
	data     []byte
}

func doMultipart(t *testing.T, a *App, target string, fields map[string]string, uploads []upload, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, up := range uploads {
		fw, err := mw.CreateFormFile(up.field, up.filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(up.data); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

var createFields = map[string]string{
	"h1":          "A Trip North",
	"sample":      "Three days on the coast",
	"youtube_vid": "",
	"body":        "<p>It rained.</p>",
	"category":    "travel",
}

func TestCreatePostWithHeaderFile(t *testing.T) {
	a, _ := newTestApp(t)
	provisionAdmin(t, a, "op@blog.test", "secret-password")
	cookies := adminSession(t, a, "op@blog.test", "secret-password")

	rec := doMultipart(t, a, "/admin/create", createFields, []upload{
		{field: "header", filename: "Cover Photo.png", data: pngBytes(t, 40, 30)},
		{field: "body_imgs", filename: "inline.png", data: pngBytes(t, 20, 20)},
	}, cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect, body: %s", rec.Code, rec.Body.String())
	}

	post, err := a.Store.GetPost(1)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if !post.HeaderPath.Valid {
		t.Fatal("header path should be set")
	}
	if post.HeaderPath.String != "static/post_imgs/1/cover-photo.jpg" {
		t.Errorf("header path = %q", post.HeaderPath.String)
	}
	if post.Date != time.Now().Format("2006-01-02") {
		t.Errorf("date = %q, want today", post.Date)
	}

	// Published files live in the directory named after the post id.
	dir := filepath.Join(a.Config.StaticDir, "post_imgs", "1")
	if _, err := os.Stat(filepath.Join(dir, "cover-photo.jpg")); err != nil {
		t.Errorf("published header missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "inline.jpg")); err != nil {
		t.Errorf("published body image missing: %v", err)
	}

	assets, err := a.Store.PostAssets(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(assets) != 1 || assets[0].ImgPath != "static/post_imgs/1/inline.jpg" {
		t.Errorf("assets = %+v", assets)
	}
}

func TestCreatePostWithoutHeaderFile(t *testing.T) {
	a, _ := newTestApp(t)
	provisionAdmin(t, a, "op@blog.test", "secret-password")
	cookies := adminSession(t, a, "op@blog.test", "secret-password")

	rec := doMultipart(t, a, "/admin/create", createFields, nil, cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}

	post, err := a.Store.GetPost(1)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if post.HeaderPath.Valid {
		t.Errorf("header path = %q, want NULL", post.HeaderPath.String)
	}
	if _, err := os.Stat(filepath.Join(a.Config.StaticDir, "post_imgs", "1")); !os.IsNotExist(err) {
		t.Error("no image directory should exist for a post without uploads")
	}
}

func TestCreateRequiresSession(t *testing.T) {
	a, _ := newTestApp(t)

	rec := doMultipart(t, a, "/admin/create", createFields, nil, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect to login", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("redirect location = %q", loc)
	}
	if _, err := a.Store.GetPost(1); err == nil {
		t.Error("no post should be created for an anonymous request")
	}
}

func TestCreateFormShowsPredictedID(t *testing.T) {
	a, _ := newTestApp(t)
	provisionAdmin(t, a, "op@blog.test", "secret-password")
	cookies := adminSession(t, a, "op@blog.test", "secret-password")

	if _, err := a.Store.CreatePost(testPost("Existing", "travel"), "", nil); err != nil {
		t.Fatal(err)
	}

	rec := doGet(a, "/admin/create", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Post #2") {
		t.Errorf("form should show the predicted next id, got: %s", rec.Body.String())
	}
}

func TestEditPreservesHeaderWithoutNewFile(t *testing.T) {
	a, _ := newTestApp(t)
	provisionAdmin(t, a, "op@blog.test", "secret-password")
	cookies := adminSession(t, a, "op@blog.test", "secret-password")

	id, err := a.Store.CreatePost(testPost("Before", "travel"), "cover.jpg", nil)
	if err != nil {
		t.Fatal(err)
	}

	rec := doForm(a, http.MethodPost, "/admin/edit/1", url.Values{
		"h1":          {"After"},
		"sample":      {"Updated excerpt"},
		"youtube_vid": {"vid42"},
		"body":        {"<p>Updated.</p>"},
	}, cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}

	post, err := a.Store.GetPost(id)
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "After" || post.YoutubeVid != "vid42" {
		t.Errorf("fields not overwritten: %+v", post)
	}
	if !post.HeaderPath.Valid || post.HeaderPath.String != "static/post_imgs/1/cover.jpg" {
		t.Errorf("header path = %v, want preserved exactly", post.HeaderPath)
	}
	if post.Category != "travel" || post.Date != "2024-03-01" {
		t.Errorf("category/date must not change on edit: %q %q", post.Category, post.Date)
	}
}

func TestEditReplacesHeaderWithNewFile(t *testing.T) {
	a, _ := newTestApp(t)
	provisionAdmin(t, a, "op@blog.test", "secret-password")
	cookies := adminSession(t, a, "op@blog.test", "secret-password")

	if _, err := a.Store.CreatePost(testPost("Post", "travel"), "old.jpg", nil); err != nil {
		t.Fatal(err)
	}

	rec := doMultipart(t, a, "/admin/edit/1", map[string]string{
		"h1":          "Post",
		"sample":      "x",
		"youtube_vid": "",
		"body":        "b",
	}, []upload{
		{field: "header", filename: "fresh.png", data: pngBytes(t, 10, 10)},
	}, cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect, body: %s", rec.Code, rec.Body.String())
	}

	post, _ := a.Store.GetPost(1)
	if post.HeaderPath.String != "static/post_imgs/1/fresh.jpg" {
		t.Errorf("header path = %q", post.HeaderPath.String)
	}
	// The new file is published under the existing post id.
	if _, err := os.Stat(filepath.Join(a.Config.StaticDir, "post_imgs", "1", "fresh.jpg")); err != nil {
		t.Errorf("published header missing: %v", err)
	}
}

func TestEditUnknownPostIs404(t *testing.T) {
	a, _ := newTestApp(t)
	provisionAdmin(t, a, "op@blog.test", "secret-password")
	cookies := adminSession(t, a, "op@blog.test", "secret-password")

	rec := doForm(a, http.MethodPost, "/admin/edit/99", url.Values{
		"h1": {"t"}, "sample": {"s"}, "youtube_vid": {""}, "body": {"b"},
	}, cookies)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = doGet(a, "/admin/edit/99", cookies)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET status = %d, want 404", rec.Code)
	}
}

func TestSendMailReachesSubscribedOnly(t *testing.T) {
	a, mailer := newTestApp(t)
	provisionAdmin(t, a, "op@blog.test", "secret-password")
	cookies := adminSession(t, a, "op@blog.test", "secret-password")

	if err := a.Store.AddSubscriber("Ada", "L", "ada@x.com"); err != nil {
		t.Fatal(err)
	}
	if err := a.Store.AddSubscriber("Ben", "M", "ben@x.com"); err != nil {
		t.Fatal(err)
	}
	if err := a.Store.Unsubscribe("ben@x.com"); err != nil {
		t.Fatal(err)
	}

	rec := doForm(a, http.MethodPost, "/admin/send-mail", url.Values{
		"subject":   {"News"},
		"body_text": {"a new post is up"},
		"body_html": {"<p>Hi {name}!</p>"},
	}, cookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}

	msgs := mailer.sent()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (retired subscriber skipped)", len(msgs))
	}
	got := msgs[0]
	if got.To != "ada@x.com" || got.Subject != "News" {
		t.Errorf("message = %+v", got)
	}
	if !strings.HasPrefix(got.Text, "Hello Ada,\n") {
		t.Errorf("text greeting = %q", got.Text)
	}
	if got.HTML != "<p>Hi Ada!</p>" {
		t.Errorf("html = %q, want the placeholder personalized", got.HTML)
	}
}

func TestSendMailRequires401(t *testing.T) {
	a, mailer := newTestApp(t)

	rec := doForm(a, http.MethodPost, "/admin/send-mail", url.Values{"subject": {"s"}}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if len(mailer.sent()) != 0 {
		t.Error("no mail may be sent for an anonymous request")
	}
}

func TestSendTestMailsOperator(t *testing.T) {
	a, mailer := newTestApp(t)
	provisionAdmin(t, a, "op@blog.test", "secret-password")
	cookies := adminSession(t, a, "op@blog.test", "secret-password")

	rec := doForm(a, http.MethodPost, "/admin/send-test", url.Values{
		"subject":   {"Preview"},
		"body_text": {"check this"},
		"body_html": {"<p>Hi {name}</p>"},
	}, cookies)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	msgs := mailer.sent()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].To != "operator@blog.test" {
		t.Errorf("to = %q, want the configured operator address", msgs[0].To)
	}
	if msgs[0].HTML != "<p>Hi Kelly</p>" {
		t.Errorf("html = %q, want the author name substituted", msgs[0].HTML)
	}
}
