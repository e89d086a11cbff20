package template

import (
	"io"
)

// TemplateRenderer is the seam presentation renderers use to execute named
// templates and inline template strings. It follows the contract of
// github.com/goliatone/go-template engines.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
