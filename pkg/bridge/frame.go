package bridge

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Frame types.
const (
	// FrameHash is sent by the browser with its current location hash.
	FrameHash = "hash"

	// FrameRender carries the root markup and document title.
	FrameRender = "render"

	// FrameNavigate asks the browser to change its location.
	FrameNavigate = "navigate"

	// FrameReload asks the browser to reload the shell.
	FrameReload = "reload"
)

// Frame is one message on the bridge. It is encoded as a msgpack map with
// string keys, which the shell script decodes without a library.
type Frame struct {
	Type    string `msgpack:"t"`
	Hash    string `msgpack:"hash,omitempty"`
	HTML    string `msgpack:"html,omitempty"`
	Title   string `msgpack:"title,omitempty"`
	Replace bool   `msgpack:"replace,omitempty"`
}

// Encode serializes f.
func Encode(f Frame) ([]byte, error) {
	// A render frame always carries both fields so the browser can clear them.
	if f.Type == FrameRender {
		return msgpack.Marshal(map[string]string{
			"t":     f.Type,
			"html":  f.HTML,
			"title": f.Title,
		})
	}
	return msgpack.Marshal(&f)
}

// Decode parses a frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	err := msgpack.Unmarshal(data, &f)
	return f, err
}
