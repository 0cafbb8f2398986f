package letterpress

import (
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const sessionName = "admin_session"

// loginFailedMessage is the single response for every failed login. Unknown
// identity and wrong password must stay observably identical.
const loginFailedMessage = "Username or password incorrect."

// dummyDigest is verified against when the identity does not exist, so the
// lookup-miss path costs a bcrypt comparison just like a wrong password.
var dummyDigest = func() string {
	d, err := bcrypt.GenerateFromPassword([]byte("letterpress-no-such-admin"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(d)
}()

// HashPassword returns a bcrypt digest of plaintext for storage.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether plaintext matches digest. Callers only ever
// learn the boolean, never why verification failed.
func VerifyPassword(digest, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// checkCredentials verifies a login attempt against the store. A missing
// identity and a wrong password are indistinguishable to the caller.
func (a *App) checkCredentials(email, password string) bool {
	admin, err := a.Store.GetAdmin(email)
	if err != nil {
		VerifyPassword(dummyDigest, password)
		return false
	}
	return VerifyPassword(admin.PasswordHash, password)
}

// IsAdmin reports whether the request carries an authenticated admin session.
func IsAdmin(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	auth, ok := sess.Values["authenticated"].(bool)
	return ok && auth
}

// AdminIdentity returns the identity stored in the session, or "" when
// anonymous.
func AdminIdentity(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	identity, _ := sess.Values["identity"].(string)
	return identity
}

func setAdminSession(c echo.Context, identity string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	// Replace all values wholesale: nothing from a pre-login session may
	// carry over into the authenticated one.
	sess.Values = map[interface{}]interface{}{
		"authenticated": true,
		"identity":      identity,
	}
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// requireAdminPage guards browser-facing admin routes: anonymous requests
// are redirected to the login form before any data access happens.
func requireAdminPage(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return c.Redirect(http.StatusSeeOther, "/admin/login")
		}
		return next(c)
	}
}

// requireAdminPost guards POST-only endpoints: anonymous requests get a bare
// 401 rather than a redirect.
func requireAdminPost(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return c.NoContent(http.StatusUnauthorized)
		}
		return next(c)
	}
}
