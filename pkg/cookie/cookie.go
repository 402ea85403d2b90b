// Package cookie gives the runtime a document.cookie style view over an
// http.CookieJar.
//
// The same jar can be handed to an HTTP fetcher, so cookies a page sets are
// sent with later fragment requests and cookies the server sets are visible
// to the page.
package cookie

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Jar reads and writes cookies for a single origin.
type Jar struct {
	jar    http.CookieJar
	origin *url.URL
	now    func() time.Time
}

// New creates a jar for origin (e.g. "http://localhost:8080/").
func New(origin string) (*Jar, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("cookie: parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("cookie: origin %q needs a scheme and host", origin)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{jar: jar, origin: u, now: time.Now}, nil
}

// HTTPJar returns the underlying jar for use in an http.Client.
func (j *Jar) HTTPJar() http.CookieJar {
	return j.jar
}

// Origin returns the URL cookies are scoped to.
func (j *Jar) Origin() *url.URL {
	return j.origin
}

// Get returns the value of the named cookie.
func (j *Jar) Get(name string) (string, bool) {
	for _, c := range j.jar.Cookies(j.origin) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Set stores a cookie. A zero maxAge makes a session cookie.
func (j *Jar) Set(name, value string, maxAge time.Duration) {
	c := &http.Cookie{Name: name, Value: value, Path: "/"}
	if maxAge > 0 {
		c.Expires = j.now().Add(maxAge)
	}
	j.jar.SetCookies(j.origin, []*http.Cookie{c})
}

// Delete expires the named cookie.
func (j *Jar) Delete(name string) {
	j.jar.SetCookies(j.origin, []*http.Cookie{{Name: name, Path: "/", MaxAge: -1}})
}

// All returns every cookie visible to the origin.
func (j *Jar) All() map[string]string {
	out := map[string]string{}
	for _, c := range j.jar.Cookies(j.origin) {
		out[c.Name] = c.Value
	}
	return out
}

// String formats the cookies like document.cookie, sorted by name.
func (j *Jar) String() string {
	cookies := j.jar.Cookies(j.origin)
	sort.Slice(cookies, func(a, b int) bool { return cookies[a].Name < cookies[b].Name })
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
