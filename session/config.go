package session

import (
	"net/http"
	"time"
)

// Expiry decides how long a session outlives the client's last request.
// The zero value is OnSessionEnd.
type Expiry struct {
	inactivity time.Duration
}

// OnSessionEnd keeps the session until the browser session ends. The cookie has no
// Max-Age and the stored record no TTL.
func OnSessionEnd() Expiry {
	return Expiry{}
}

// OnInactivity expires the session d after the last request that used it.
func OnInactivity(d time.Duration) Expiry {
	return Expiry{inactivity: d}
}

func (e Expiry) expiresAt(now time.Time) time.Time {
	if e.inactivity <= 0 {
		return time.Time{}
	}
	return now.Add(e.inactivity)
}

func (e Expiry) maxAge() int {
	if e.inactivity <= 0 {
		return 0
	}
	return int(e.inactivity.Seconds())
}

func (e Expiry) refreshes() bool {
	return e.inactivity > 0
}

type Config struct {
	CookieName string
	Path       string
	Domain     string
	Secure     bool
	// HTTPOnly defaults to true, set DisableHTTPOnly to let scripts read the cookie.
	DisableHTTPOnly bool
	SameSite        http.SameSite
	Expiry          Expiry

	// Metrics is optional
	Metrics *Metrics
}

func (c Config) withDefaults() Config {
	if c.CookieName == "" {
		c.CookieName = "id"
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteStrictMode
	}
	return c
}

func (c Config) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.CookieName,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   maxAge,
		Secure:   c.Secure,
		HttpOnly: !c.DisableHTTPOnly,
		SameSite: c.SameSite,
	}
}
