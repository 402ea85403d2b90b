// Package views holds the markup the runtime and the server produce on
// their own: inline error messages and the browser shell page.
package views

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// NotFound is rendered when a view cannot be fetched and no fallback helps.
func NotFound(view string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1>404 Not Found</h1><p>`+templ.EscapeString(view)+` is not found in server</p>`)
		return err
	})
}

// RenderError is rendered when a fetched view has no template.
func RenderError(view string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1>Render Error</h1><p>`+templ.EscapeString(view)+` is not a valid template</p>`)
		return err
	})
}

// WidgetFailed is rendered into the application root when a widget cannot
// be fetched.
func WidgetFailed(name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1>Load Widget `+templ.EscapeString(name)+` Failed</h1>`)
		return err
	})
}

// WidgetInvalid is rendered into the application root when a widget file
// has no template.
func WidgetInvalid(name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1>Widget `+templ.EscapeString(name)+` is invalid</h1>`)
		return err
	})
}

// String renders c to a string. The components in this package only fail
// when the writer fails, which a strings.Builder never does.
func String(c templ.Component) string {
	var b strings.Builder
	_ = c.Render(context.Background(), &b)
	return b.String()
}
