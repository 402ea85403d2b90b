// Package route parses and formats the location fragment that drives
// navigation.
//
// A fragment has the shape path[?query][#hash]:
//
//	info := route.Parse("/users?id=7#bio")
//	info.Path   // "/users"
//	info.Search // "?id=7"
//	info.Hash   // "#bio"
//	info.Query  // map[id:7]
//
// Query values are not percent-decoded. Callers decode when they need to.
package route

import (
	"regexp"
	"sort"
	"strings"
)

// Info is a parsed location fragment.
type Info struct {
	// Path always begins with "/".
	Path string

	// Search is "?" followed by the query string, or empty.
	Search string

	// Hash is "#" followed by the sub-fragment, or empty.
	Hash string

	// Query holds the raw key/value pairs from Search.
	Query map[string]string
}

var fragmentPattern = regexp.MustCompile(`(?s)^(/?[^?#]*)(\?[^#]*|)(#.*|)$`)

// Parse splits a fragment (without its leading "#") into its parts. It never
// fails; input that does not split cleanly yields empty components.
func Parse(fragment string) Info {
	info := Info{Path: "/", Query: map[string]string{}}

	m := fragmentPattern.FindStringSubmatch(fragment)
	if m == nil {
		return info
	}

	info.Path = m[1]
	if !strings.HasPrefix(info.Path, "/") {
		info.Path = "/" + info.Path
	}
	info.Search = m[2]
	info.Hash = m[3]

	// A value ends at the next "=", so "a=1=2" yields "1".
	for _, pair := range strings.Split(strings.TrimPrefix(info.Search, "?"), "&") {
		parts := strings.Split(pair, "=")
		if parts[0] == "" {
			continue
		}
		value := ""
		if len(parts) > 1 {
			value = parts[1]
		}
		info.Query[parts[0]] = value
	}
	return info
}

// BuildQuery encodes params as k=v pairs joined by "&", escaped the way
// encodeURIComponent escapes. Keys are sorted so output is stable.
func BuildQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, EscapeComponent(k)+"="+EscapeComponent(params[k]))
	}
	return strings.Join(parts, "&")
}

// Format builds a location hash ("#path?query#hash") for navigation.
func Format(path string, query map[string]string, hash string) string {
	var b strings.Builder
	b.WriteByte('#')
	b.WriteString(path)
	if q := BuildQuery(query); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	if hash != "" {
		b.WriteByte('#')
		b.WriteString(hash)
	}
	return b.String()
}

// EscapeComponent percent-encodes s, leaving A-Z a-z 0-9 and -_.!~*'() as is.
func EscapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
