package vanilla

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var markdownPolicy = sync.OnceValue(bluemonday.UGCPolicy)

// renderMarkdown converts author markdown to HTML and strips anything the
// UGC policy does not allow, so raw HTML in block text cannot inject markup.
func renderMarkdown(text string) string {
	extensions := blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs | blackfriday.Autolink
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags,
	})
	unsafe := blackfriday.Run([]byte(text), blackfriday.WithRenderer(renderer), blackfriday.WithExtensions(extensions))
	return string(markdownPolicy().SanitizeBytes(unsafe))
}
