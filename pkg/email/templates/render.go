// Package templates holds the HTML building blocks of billing emails.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Render renders tpl to a string.
func Render(ctx context.Context, tpl templ.Component) (string, error) {
	var sb strings.Builder
	if err := tpl.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Layout wraps body in a minimal inline-styled document.
func Layout(title string, body ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+
			`</title></head><body style="font-family:Arial,sans-serif;color:#1f2933;max-width:560px;margin:0 auto;padding:24px">`+
			`<h1 style="font-size:20px">`+templ.EscapeString(title)+`</h1>`); err != nil {
			return err
		}
		for _, c := range body {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p style="font-size:14px;line-height:20px">`+templ.EscapeString(s)+`</p>`)
		return err
	})
}

// Button renders a link styled as a call to action. Unsafe URLs are replaced.
func Button(label, href string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p><a href="`+templ.EscapeString(string(templ.URL(href)))+
			`" style="background:#2563eb;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none">`+
			templ.EscapeString(label)+`</a></p>`)
		return err
	})
}
