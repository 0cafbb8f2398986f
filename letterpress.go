// Package letterpress is a personal blogging platform built with Go, Echo,
// and templ: readers browse posts by category and join an email list, and a
// single authenticated administrator authors posts and sends bulk mail.
//
// Sites provide their own templ components via ViewFuncs (minimal built-ins
// cover anything left nil), and letterpress handles the handler logic,
// session guard, storage, and mail dispatch.
package letterpress

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
)

// App is the central letterpress application. It wires together the store,
// cache, mailer, session guard, and view components.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache
	Views  ViewFuncs
	Mailer Mailer

	loginLimiter *LoginLimiter
	customRoutes []func(*App)
}

// New creates a letterpress App with the given configuration and views.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	views.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init opens the store and wires the cache, limiter, mailer, middleware,
// and routes. It is split from Start so tests can drive a.Echo directly.
func (a *App) Init() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("letterpress: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("letterpress: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(store, a.Config.PostCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.Mailer == nil {
		if a.Config.Mail.Host != "" {
			a.Mailer = NewSMTPMailer(a.Config.Mail)
		} else {
			a.Mailer = discardMailer{}
		}
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the application and runs the HTTP server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/static", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/rss", a.handleRSS)

	e.GET("/", a.handleHome)
	e.GET("/post/:id", a.handlePost)
	e.POST("/subscribe", a.handleSubscribe)
	e.POST("/unsubscribe", a.handleUnsubscribe)
	// Category pages live at the path root, matching the site's historical
	// URLs. Static routes above take precedence over the parameter.
	e.GET("/:category", a.handleCategory)

	// Admin area. GET pages redirect anonymous visitors to the login form;
	// POST-only endpoints answer 401 outright.
	g := e.Group("/admin")
	g.GET("", a.handleAdminPanel, requireAdminPage)
	g.GET("/login", a.handleLoginForm)
	g.POST("/login", a.handleLogin)
	g.GET("/logout", a.handleLogout)
	g.GET("/create", a.handleCreateForm, requireAdminPage)
	g.POST("/create", a.handleCreate, requireAdminPage)
	g.GET("/edit/:id", a.handleEditForm, requireAdminPage)
	g.POST("/edit/:id", a.handleEdit, requireAdminPage)
	g.GET("/send-mail", a.handleSendMailForm, requireAdminPage)
	g.POST("/send-mail", a.handleSendMail, requireAdminPost)
	g.POST("/send-test", a.handleSendTest, requireAdminPost)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.Config))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("letterpress: required environment variable %s is not set", key)
	}
	return v
}
