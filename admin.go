package letterpress

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *App) handleLoginForm(c echo.Context) error {
	if IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	return Render(c, a.Views.AdminLogin(a.Config, ""))
}

// handleLogin verifies the submitted credentials. Apart from the rate limit,
// every failure produces the same page with the same message, whether the
// identity exists or not. A success replaces the session wholesale.
func (a *App) handleLogin(c echo.Context) error {
	if IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	if !a.checkCredentials(email, password) {
		a.loginLimiter.Record(ip)
		return Render(c, a.Views.AdminLogin(a.Config, loginFailedMessage))
	}
	if err := setAdminSession(c, email); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin")
}

// handleLogout clears the session and lands on the public home page. Logging
// out while anonymous is a no-op that still redirects.
func (a *App) handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleAdminPanel(c echo.Context) error {
	msg := c.QueryParam("msg")
	if msg == "" {
		msg = "Signed in as " + AdminIdentity(c)
	}
	return Render(c, a.Views.AdminPanel(a.Config, msg))
}

// handleCreateForm shows the authoring form with the predicted next post id.
// The prediction is display only; the id actually used is assigned by the
// store inside the creation transaction.
func (a *App) handleCreateForm(c echo.Context) error {
	next, err := a.Store.NextPostID()
	if err != nil {
		return err
	}
	return Render(c, a.Views.CreateForm(a.Config, next))
}

// handleCreate persists a new post and its uploaded images. Files are staged
// first and published under the assigned id only after the row transaction
// commits, so a failure partway through leaves neither rows nor files behind.
func (a *App) handleCreate(c echo.Context) error {
	batch := a.newUploadBatch()
	defer batch.Discard()

	headerName := ""
	if fh, err := c.FormFile("header"); err == nil && fh.Filename != "" {
		name, err := batch.Add(fh)
		if err != nil {
			return c.String(http.StatusBadRequest, "Invalid header image: "+err.Error())
		}
		headerName = name
	}

	var assetNames []string
	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["body_imgs"] {
			if fh.Filename == "" {
				continue
			}
			name, err := batch.Add(fh)
			if err != nil {
				return c.String(http.StatusBadRequest, "Invalid body image: "+err.Error())
			}
			assetNames = append(assetNames, name)
		}
	}

	post := Post{
		Title:      c.FormValue("h1"),
		Sample:     c.FormValue("sample"),
		YoutubeVid: c.FormValue("youtube_vid"),
		Body:       c.FormValue("body"),
		Category:   c.FormValue("category"),
		Date:       time.Now().Format("2006-01-02"),
	}
	id, err := a.Store.CreatePost(post, headerName, assetNames)
	if err != nil {
		return err
	}
	if err := batch.Publish(id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.Redirect(http.StatusSeeOther, "/admin?msg=Success%2C+your+post+is+live.")
}

func (a *App) handleEditForm(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	post, err := a.Store.GetPost(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}
	return Render(c, a.Views.EditForm(a.Config, post))
}

// handleEdit overwrites the mutable fields of an existing post. A newly
// supplied header image is stored under the existing post id and replaces
// the header path; otherwise the stored path is preserved unchanged.
// Category and date stay as authored; edits do not touch them.
func (a *App) handleEdit(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	batch := a.newUploadBatch()
	defer batch.Discard()

	var newHeaderPath sql.NullString
	if fh, err := c.FormFile("header"); err == nil && fh.Filename != "" {
		name, err := batch.Add(fh)
		if err != nil {
			return c.String(http.StatusBadRequest, "Invalid header image: "+err.Error())
		}
		newHeaderPath = sql.NullString{String: AssetPath(id, name), Valid: true}
	}

	err = a.Store.UpdatePost(id,
		c.FormValue("h1"),
		c.FormValue("sample"),
		c.FormValue("youtube_vid"),
		c.FormValue("body"),
		newHeaderPath,
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}
	if err := batch.Publish(id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.Redirect(http.StatusSeeOther, "/admin?msg=Success%2C+the+post+has+been+updated.")
}

func (a *App) handleSendMailForm(c echo.Context) error {
	return Render(c, a.Views.SendMail(a.Config))
}

// handleSendMail bulk-sends the composed mail to every subscribed recipient,
// personalizing the greeting and any {name} placeholder in the HTML body.
func (a *App) handleSendMail(c echo.Context) error {
	subs, err := a.Store.ListSubscribed()
	if err != nil {
		return err
	}
	subject := c.FormValue("subject")
	bodyText := c.FormValue("body_text")
	bodyHTML := c.FormValue("body_html")
	for _, sub := range subs {
		msg := Message{
			To:      sub.Email,
			Subject: subject,
			Text:    "Hello " + sub.First + ",\n" + bodyText,
			HTML:    personalize(bodyHTML, sub.First),
		}
		if err := a.Mailer.Send(msg); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusSeeOther, "/admin?msg=Success%2C+the+mail+has+been+sent.")
}

// handleSendTest delivers the composed mail to the operator's own address.
func (a *App) handleSendTest(c echo.Context) error {
	msg := Message{
		To:      a.Config.Mail.TestRecipient,
		Subject: c.FormValue("subject"),
		Text:    c.FormValue("body_text"),
		HTML:    personalize(c.FormValue("body_html"), a.Config.Author),
	}
	if err := a.Mailer.Send(msg); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
