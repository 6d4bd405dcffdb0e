package surface

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/veilhq/veil/internal/region"
)

// TextSurface is a plain-text document surface on a unit character grid:
// one line per row (y), one rune per column (x). It exists so the engine
// is end-to-end runnable and testable without a PDF backend.
type TextSurface struct {
	pages [][][]rune // page -> line -> runes
}

// NewTextSurface builds a surface from page texts.
func NewTextSurface(pages []string) *TextSurface {
	s := &TextSurface{pages: make([][][]rune, len(pages))}
	for i, text := range pages {
		lines := strings.Split(text, "\n")
		s.pages[i] = make([][]rune, len(lines))
		for j, line := range lines {
			s.pages[i][j] = []rune(line)
		}
	}
	return s
}

// LoadFile reads a document from a single file, splitting pages on form
// feed characters.
func LoadFile(path string) (*TextSurface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}
	return NewTextSurface(strings.Split(string(data), "\f")), nil
}

// LoadDir reads a document whose pages are the .txt files of a directory,
// in lexical filename order.
func LoadDir(dir string) (*TextSurface, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading document directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no .txt pages in %s", dir)
	}
	sort.Strings(names)

	pages := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading page %s: %w", name, err)
		}
		pages = append(pages, string(data))
	}
	return NewTextSurface(pages), nil
}

// PageCount returns the number of pages.
func (s *TextSurface) PageCount() int { return len(s.pages) }

// PageText returns the text of one page.
func (s *TextSurface) PageText(page int) (string, error) {
	if page < 0 || page >= len(s.pages) {
		return "", fmt.Errorf("page %d out of range [0,%d)", page, len(s.pages))
	}
	lines := make([]string, len(s.pages[page]))
	for i, l := range s.pages[page] {
		lines[i] = string(l)
	}
	return strings.Join(lines, "\n"), nil
}

// Render is PageText without the error for pages known to exist; it
// panics on a bad index.
func (s *TextSurface) Render(page int) string {
	text, err := s.PageText(page)
	if err != nil {
		panic(err)
	}
	return text
}

// Pages returns the rendered text of every page.
func (s *TextSurface) Pages() []string {
	out := make([]string, s.PageCount())
	for i := range out {
		out[i] = s.Render(i)
	}
	return out
}

// Document joins all pages with form feeds, the inverse of LoadFile.
func (s *TextSurface) Document() string {
	return strings.Join(s.Pages(), "\f")
}

// Locate returns one rectangle per occurrence of text on the page. Each
// rect spans [column, column+len) horizontally and one row vertically.
// Texts containing newlines cannot be located on the line grid.
func (s *TextSurface) Locate(page int, text string) ([]region.Rect, error) {
	if page < 0 || page >= len(s.pages) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", page, len(s.pages))
	}
	if text == "" || strings.Contains(text, "\n") {
		return nil, nil
	}

	needle := []rune(text)
	var rects []region.Rect
	for row, line := range s.pages[page] {
		for col := 0; col+len(needle) <= len(line); col++ {
			if string(line[col:col+len(needle)]) == text {
				rects = append(rects, region.Rect{
					X0: float64(col),
					Y0: float64(row),
					X1: float64(col + len(needle)),
					Y1: float64(row + 1),
				})
				col += len(needle) - 1
			}
		}
	}
	return rects, nil
}

// Apply overwrites every grid cell covered by rect with the replacement
// text, truncating or space-padding to the rectangle width. Rows beyond
// the first repeat the replacement so a merged multi-row region stays
// fully covered.
func (s *TextSurface) Apply(page int, rect region.Rect, replacement string, strategy region.Strategy) error {
	if page < 0 || page >= len(s.pages) {
		return fmt.Errorf("page %d out of range [0,%d)", page, len(s.pages))
	}

	y0 := int(math.Floor(rect.Y0))
	y1 := int(math.Ceil(rect.Y1))
	x0 := int(math.Floor(rect.X0))
	x1 := int(math.Ceil(rect.X1))
	if y0 < 0 {
		y0 = 0
	}
	if x0 < 0 {
		x0 = 0
	}

	fill := []rune(replacement)
	for row := y0; row < y1 && row < len(s.pages[page]); row++ {
		line := s.pages[page][row]
		end := x1
		if end > len(line) {
			end = len(line)
		}
		for i := x0; i < end; i++ {
			if i-x0 < len(fill) {
				line[i] = fill[i-x0]
			} else {
				line[i] = ' '
			}
		}
	}
	return nil
}
