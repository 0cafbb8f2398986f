package letterpress

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// ViewFuncs holds the templ components the framework calls when rendering
// pages. Any nil field falls back to a minimal built-in component, so a site
// can override only the pages it cares about.
type ViewFuncs struct {
	Home        func(cfg SiteConfig, posts []Post) templ.Component
	PostPage    func(cfg SiteConfig, post Post, assets []PostAsset) templ.Component
	Category    func(cfg SiteConfig, posts []Post, category string) templ.Component
	AdminLogin  func(cfg SiteConfig, message string) templ.Component
	AdminPanel  func(cfg SiteConfig, message string) templ.Component
	CreateForm  func(cfg SiteConfig, nextID int64) templ.Component
	EditForm    func(cfg SiteConfig, post Post) templ.Component
	SendMail    func(cfg SiteConfig) templ.Component
	NotFound    func(cfg SiteConfig) templ.Component
	ServerError func(cfg SiteConfig) templ.Component
}

func (v *ViewFuncs) setDefaults() {
	if v.Home == nil {
		v.Home = defaultHome
	}
	if v.PostPage == nil {
		v.PostPage = defaultPostPage
	}
	if v.Category == nil {
		v.Category = defaultCategory
	}
	if v.AdminLogin == nil {
		v.AdminLogin = defaultAdminLogin
	}
	if v.AdminPanel == nil {
		v.AdminPanel = defaultAdminPanel
	}
	if v.CreateForm == nil {
		v.CreateForm = defaultCreateForm
	}
	if v.EditForm == nil {
		v.EditForm = defaultEditForm
	}
	if v.SendMail == nil {
		v.SendMail = defaultSendMail
	}
	if v.NotFound == nil {
		v.NotFound = defaultNotFound
	}
	if v.ServerError == nil {
		v.ServerError = defaultServerError
	}
}

// component wraps a render function into a templ.Component.
func component(fn func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return fn(w)
	})
}

func writePageTop(w io.Writer, cfg SiteConfig, title string) error {
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n",
		html.EscapeString(title))
	return err
}

func writePageBottom(w io.Writer) error {
	_, err := io.WriteString(w, "</body></html>\n")
	return err
}

func writePostSummary(w io.Writer, p Post) error {
	_, err := fmt.Fprintf(w, "<article><h2><a href=\"/post/%d\">%s</a></h2><time>%s</time><p>%s</p></article>\n",
		p.ID, html.EscapeString(p.Title), FormatDate(p.Date), html.EscapeString(p.Sample))
	return err
}

func defaultHome(cfg SiteConfig, posts []Post) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, cfg.Name); err != nil {
			return err
		}
		fmt.Fprintf(w, "<h1>%s</h1>\n", html.EscapeString(cfg.Name))
		for _, p := range posts {
			if err := writePostSummary(w, p); err != nil {
				return err
			}
		}
		return writePageBottom(w)
	})
}

func defaultPostPage(cfg SiteConfig, post Post, assets []PostAsset) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, post.Title); err != nil {
			return err
		}
		fmt.Fprintf(w, "<article><h1>%s</h1><time>%s</time>\n", html.EscapeString(post.Title), FormatDate(post.Date))
		if post.HeaderPath.Valid {
			fmt.Fprintf(w, "<img src=\"/%s\" alt=\"\">\n", post.HeaderPath.String)
		}
		if post.YoutubeVid != "" {
			fmt.Fprintf(w, "<iframe src=\"https://www.youtube.com/embed/%s\"></iframe>\n", html.EscapeString(post.YoutubeVid))
		}
		// Body is author-supplied HTML, written as-is.
		io.WriteString(w, post.Body)
		for _, asset := range assets {
			fmt.Fprintf(w, "<img src=\"/%s\" alt=\"\">\n", asset.ImgPath)
		}
		if _, err := io.WriteString(w, "</article>\n"); err != nil {
			return err
		}
		return writePageBottom(w)
	})
}

func defaultCategory(cfg SiteConfig, posts []Post, category string) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, category); err != nil {
			return err
		}
		fmt.Fprintf(w, "<h1>%s</h1>\n", html.EscapeString(category))
		for _, p := range posts {
			if err := writePostSummary(w, p); err != nil {
				return err
			}
		}
		return writePageBottom(w)
	})
}

func defaultAdminLogin(cfg SiteConfig, message string) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, "Login"); err != nil {
			return err
		}
		if message != "" {
			fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(message))
		}
		io.WriteString(w, `<form method="post" action="/admin/login">
<label>Email<input type="email" name="email"></label>
<label>Password<input type="password" name="password"></label>
<button type="submit">Log in</button>
</form>
`)
		return writePageBottom(w)
	})
}

func defaultAdminPanel(cfg SiteConfig, message string) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, "Admin"); err != nil {
			return err
		}
		if message != "" {
			fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(message))
		}
		io.WriteString(w, `<nav>
<a href="/admin/create">New Post</a>
<a href="/admin/send-mail">Send Mail</a>
<a href="/admin/logout">Log out</a>
</nav>
`)
		return writePageBottom(w)
	})
}

func defaultCreateForm(cfg SiteConfig, nextID int64) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, "New Post"); err != nil {
			return err
		}
		fmt.Fprintf(w, "<p>Post #%d</p>\n", nextID)
		io.WriteString(w, `<form method="post" action="/admin/create" enctype="multipart/form-data">
<input name="h1" placeholder="Title">
<input name="sample" placeholder="Excerpt">
<input name="category" placeholder="Category">
<input name="youtube_vid" placeholder="YouTube id">
<input type="file" name="header">
<input type="file" name="body_imgs" multiple>
<textarea name="body"></textarea>
<button type="submit">Publish</button>
</form>
`)
		return writePageBottom(w)
	})
}

func defaultEditForm(cfg SiteConfig, post Post) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, "Edit Post"); err != nil {
			return err
		}
		fmt.Fprintf(w, `<form method="post" action="/admin/edit/%d" enctype="multipart/form-data">
<input name="h1" value="%s">
<input name="sample" value="%s">
<input name="youtube_vid" value="%s">
<input type="file" name="header">
<textarea name="body">%s</textarea>
<button type="submit">Update</button>
</form>
`, post.ID, html.EscapeString(post.Title), html.EscapeString(post.Sample),
			html.EscapeString(post.YoutubeVid), html.EscapeString(post.Body))
		return writePageBottom(w)
	})
}

func defaultSendMail(cfg SiteConfig) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, "Send Mail"); err != nil {
			return err
		}
		io.WriteString(w, `<form method="post" action="/admin/send-mail">
<input name="subject" placeholder="Subject">
<textarea name="body_text"></textarea>
<textarea name="body_html"></textarea>
<button type="submit">Send</button>
</form>
`)
		return writePageBottom(w)
	})
}

func defaultNotFound(cfg SiteConfig) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, "Not Found"); err != nil {
			return err
		}
		io.WriteString(w, "<h1>404</h1><p>Page not found.</p>\n")
		return writePageBottom(w)
	})
}

func defaultServerError(cfg SiteConfig) templ.Component {
	return component(func(w io.Writer) error {
		if err := writePageTop(w, cfg, "Server Error"); err != nil {
			return err
		}
		io.WriteString(w, "<h1>500</h1><p>Something went wrong.</p>\n")
		return writePageBottom(w)
	})
}
