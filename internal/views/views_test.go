package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessages(t *testing.T) {
	assert.Equal(t, `<h1>404 Not Found</h1><p>/missing is not found in server</p>`, String(NotFound("/missing")))
	assert.Equal(t, `<h1>Render Error</h1><p>/bad is not a valid template</p>`, String(RenderError("/bad")))
	assert.Equal(t, `<h1>Load Widget ui.card Failed</h1>`, String(WidgetFailed("ui.card")))
	assert.Equal(t, `<h1>Widget ui.card is invalid</h1>`, String(WidgetInvalid("ui.card")))
}

func TestMessages_Escape(t *testing.T) {
	assert.Equal(t,
		`<h1>404 Not Found</h1><p>/&lt;script&gt; is not found in server</p>`,
		String(NotFound("/<script>")))
}

func TestShell(t *testing.T) {
	out := String(Shell(ShellData{Title: "A & B", Bridge: "/_bridge", Root: "#app", Body: `<div id="app">x</div>`}))

	assert.Contains(t, out, `<title>A &amp; B</title>`)
	assert.Contains(t, out, `<div id="app">x</div>`)
	assert.Contains(t, out, `window.__hashpage={"bridge":"/_bridge","root":"#app"};`)
	assert.Contains(t, out, `new WebSocket(`)
}
