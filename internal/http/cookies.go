package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	sessionCookieName  = "session_id"
	stateCookieName    = "oauth_state"
	nonceCookieName    = "oauth_nonce"
	redirectCookieName = "post_login_redirect"

	// The sign-in round trip through Google must finish within this window.
	loginFlowTTL = 10 * time.Minute
)

// cookieJar writes HttpOnly, Lax cookies scoped to one domain. Secure is set
// when the request arrived over TLS, directly or through a proxy.
type cookieJar struct {
	domain string
}

func (j cookieJar) base(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     "/",
		Domain:   j.domain,
		HttpOnly: true,
		Secure:   r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"),
		SameSite: http.SameSiteLaxMode,
	}
}

func (j cookieJar) set(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	c := j.base(r, name)
	c.Value = value
	c.MaxAge = int(ttl.Seconds())
	http.SetCookie(w, c)
}

func (j cookieJar) clear(w http.ResponseWriter, r *http.Request, names ...string) {
	for _, name := range names {
		c := j.base(r, name)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0).UTC()
		http.SetCookie(w, c)
	}
}

// take returns the value of a cookie and clears it.
func (j cookieJar) take(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	j.clear(w, r, name)
	return c.Value, true
}

// safeRedirectPath keeps redirects on this origin: a relative path starting
// with a single "/". Anything else becomes "/".
func safeRedirectPath(candidate string) string {
	if candidate == "" || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
