package widget

import (
	"regexp"
	"strings"
)

// Ref is a parsed widget reference of the form ["@"]dotted.path[ as alias].
type Ref struct {
	// Origin is the dotted path as written, including a leading "@" for
	// remote widgets. Definitions are stored under it.
	Origin string

	// Alias is the "as" name, or empty.
	Alias string
}

var aliasPattern = regexp.MustCompile(`^(.*)\s+as\s+(.*)$`)

// ParseRef parses a reference. It reports false for blank input.
func ParseRef(s string) (Ref, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, false
	}
	if m := aliasPattern.FindStringSubmatch(s); m != nil {
		origin, alias := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if origin == "" {
			return Ref{}, false
		}
		return Ref{Origin: origin, Alias: alias}, true
	}
	return Ref{Origin: s}, true
}

// Remote reports whether the widget comes from the remote widget host.
func (r Ref) Remote() bool {
	return strings.HasPrefix(r.Origin, "@")
}

// segments returns the dotted path split on ".", without the "@".
func (r Ref) segments() []string {
	var out []string
	for _, s := range strings.Split(strings.TrimPrefix(r.Origin, "@"), ".") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Leaf returns the trailing path segment of the origin.
func (r Ref) Leaf() string {
	segs := r.segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// ID is the name documents use to mount the widget: the alias if present,
// else the leaf.
func (r Ref) ID() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Leaf()
}

// Path returns the fetch URL of the widget file. Local widgets live under
// widgetDir, remote ones under remoteHost. The alias never affects the path.
func (r Ref) Path(widgetDir, remoteHost string) string {
	base := widgetDir
	if r.Remote() {
		base = remoteHost
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(r.segments(), "/") + ".html"
}

// CacheKey is the page cache view key for the widget file.
func (r Ref) CacheKey() string {
	return "widget$" + r.Origin
}

func (r Ref) String() string {
	if r.Alias != "" {
		return r.Origin + " as " + r.Alias
	}
	return r.Origin
}
