package letterpress

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.Config, posts))
}

func (a *App) handlePost(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	post, err := a.Cache.GetPost(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}
	assets, err := a.Store.PostAssets(id)
	if err != nil {
		return err
	}
	return Render(c, a.Views.PostPage(a.Config, post, assets))
}

func (a *App) handleCategory(c echo.Context) error {
	category := c.Param("category")
	posts, err := a.Cache.ListPosts(category)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Category(a.Config, posts, category))
}

// handleSubscribe registers a mailing-list entrant and sends a best-effort
// welcome mail. The subscriber row stays committed even when delivery fails.
func (a *App) handleSubscribe(c echo.Context) error {
	first := strings.TrimSpace(c.FormValue("first"))
	last := strings.TrimSpace(c.FormValue("last"))
	email := strings.TrimSpace(c.FormValue("email"))
	if first == "" || last == "" || email == "" {
		return c.String(http.StatusBadRequest, "First name, last name and email are required")
	}
	if err := a.Store.AddSubscriber(first, last, email); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return c.String(http.StatusConflict, "Sorry this email is already subscribed")
		}
		return err
	}
	if err := a.Mailer.Send(welcomeMessage(a.Config, first, email)); err != nil {
		c.Logger().Errorf("welcome mail to %s: %v", email, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleUnsubscribe(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	if email == "" {
		return c.String(http.StatusBadRequest, "Email is required")
	}
	if err := a.Store.Unsubscribe(email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleRobots generates robots.txt dynamically using the site URL.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}
