package auth

import (
	"net/http"
	"time"
)

const (
	// DefaultCookieName is the cookie carrying the session token.
	DefaultCookieName = "token"
	// DefaultCookieMaxAge is how long browsers retain the session cookie.
	DefaultCookieMaxAge = 15 * time.Minute
)

// CookieConfig configures a CookieTransport.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// CookieTransport carries session tokens between server and client.
type CookieTransport struct {
	name   string
	maxAge time.Duration
	secure bool
}

func NewCookieTransport(cfg CookieConfig) *CookieTransport {
	name := cfg.Name
	if name == "" {
		name = DefaultCookieName
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultCookieMaxAge
	}
	return &CookieTransport{name: name, maxAge: maxAge, secure: cfg.Secure}
}

// Name returns the cookie name.
func (t *CookieTransport) Name() string {
	return t.name
}

// Attach sets the session cookie on the response.
func (t *CookieTransport) Attach(w http.ResponseWriter, token string) {
	cookie := t.base()
	cookie.Value = token
	cookie.MaxAge = int(t.maxAge.Seconds())
	cookie.Expires = time.Now().Add(t.maxAge)
	http.SetCookie(w, cookie)
}

// Detach clears the session cookie using the same attribute set it was issued with.
func (t *CookieTransport) Detach(w http.ResponseWriter) {
	cookie := t.base()
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

// Extract reads the session token from the request. A missing or empty cookie reports false.
func (t *CookieTransport) Extract(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(t.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (t *CookieTransport) base() *http.Cookie {
	return &http.Cookie{
		Name:     t.name,
		Path:     "/",
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
