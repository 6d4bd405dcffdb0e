// Package surface abstracts the document backend: something that renders
// pages, can locate literal text occurrences as rectangles, and can apply
// an opaque visual replacement at a rectangle.
package surface

import (
	"github.com/veilhq/veil/internal/region"
)

// Surface is the document backend consumed by the engine. Implementations
// wrap a concrete document format; the engine only ever sees rectangles.
type Surface interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// PageText returns the full text of a page for detection.
	PageText(page int) (string, error)

	// Locate returns the rectangles of all occurrences of text on the
	// page, in reading order. Zero results means the text cannot be
	// found on the rendered page.
	Locate(page int, text string) ([]region.Rect, error)

	// Apply renders replacement text over the given rectangle.
	Apply(page int, rect region.Rect, replacement string, strategy region.Strategy) error
}
