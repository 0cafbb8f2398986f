package letterpress

import "time"

// SiteConfig holds all configuration for a letterpress site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name, also used to sign outbound mail

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/blog.db")
	StaticDir    string // Serving root for uploads and site assets (default "static")

	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	Mail MailConfig

	PostCacheTTL time.Duration // Post cache TTL (default 5min)
}

// MailConfig configures the SMTP transport behind the default Mailer.
// An empty Host disables outbound mail (sends become no-ops).
type MailConfig struct {
	Host     string
	Port     int // implicit-SSL port, typically 465
	Username string
	Password string

	// TestRecipient is the operator address that /admin/send-test delivers to.
	TestRecipient string
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 465
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithMailer replaces the SMTP mailer built from MailConfig. Used by tests
// and by deployments with a non-SMTP delivery path.
func WithMailer(m Mailer) Option {
	return func(a *App) {
		a.Mailer = m
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are installed.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
