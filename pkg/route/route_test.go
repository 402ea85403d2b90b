package route

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		path   string
		search string
		hash   string
		query  map[string]string
	}{
		{"empty", "", "/", "", "", map[string]string{}},
		{"root", "/", "/", "", "", map[string]string{}},
		{"no leading slash", "home", "/home", "", "", map[string]string{}},
		{"query", "/a?x=1&y=2", "/a", "?x=1&y=2", "", map[string]string{"x": "1", "y": "2"}},
		{"query and hash", "/a?x=1#top", "/a", "?x=1", "#top", map[string]string{"x": "1"}},
		{"hash only", "/docs#intro", "/docs", "", "#intro", map[string]string{}},
		{"empty key dropped", "/a?=v&k=1&&", "/a", "?=v&k=1&&", "", map[string]string{"k": "1"}},
		{"key without value", "/a?flag", "/a", "?flag", "", map[string]string{"flag": ""}},
		{"not decoded", "/s?q=a%20b", "/s", "?q=a%20b", "", map[string]string{"q": "a%20b"}},
		{"value ends at next equals", "/s?e=a=b", "/s", "?e=a=b", "", map[string]string{"e": "a"}},
		{"equals and flag", "/a?x=1=2&flag", "/a", "?x=1=2&flag", "", map[string]string{"x": "1", "flag": ""}},
		{"only query", "?x=1", "/", "?x=1", "", map[string]string{"x": "1"}},
		{"newline in hash", "/a#x\ny", "/a", "", "#x\ny", map[string]string{}},
		{"hash containing question mark", "/a#b?c", "/a", "", "#b?c", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Parse(tt.input)
			assert.Equal(t, tt.path, info.Path)
			assert.Equal(t, tt.search, info.Search)
			assert.Equal(t, tt.hash, info.Hash)
			assert.Equal(t, tt.query, info.Query)
		})
	}
}

func TestParse_PathAlwaysRooted(t *testing.T) {
	inputs := []string{"", "a", "//a", "?", "#", "a/b/c?d#e", "\x00", "??", "##", "é"}
	for _, in := range inputs {
		assert.True(t, strings.HasPrefix(Parse(in).Path, "/"), "input %q", in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "#/home", Format("/home", nil, ""))
	assert.Equal(t, "#/search?a=1&q=hello%20world", Format("/search", map[string]string{"q": "hello world", "a": "1"}, ""))
	assert.Equal(t, "#/doc#part-2", Format("/doc", map[string]string{}, "part-2"))
	assert.Equal(t, "#", Format("", nil, ""))
}

func TestEscapeComponent(t *testing.T) {
	assert.Equal(t, "a-b_c.d!e~f*g'h(i)j", EscapeComponent("a-b_c.d!e~f*g'h(i)j"))
	assert.Equal(t, "%26%3D%2F%3F%23%20", EscapeComponent("&=/?# "))
	assert.Equal(t, "%C3%A9", EscapeComponent("é"))
}
