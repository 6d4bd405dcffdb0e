// Package mapping guarantees replacement consistency within one document
// run: a given original value always maps to the same pseudo value, and
// parts of multi-word person names stay consistent with later occurrences
// of the individual parts.
package mapping

import (
	"strings"
	"sync"

	"github.com/veilhq/veil/internal/detect"
)

// Cache is the per-run replacement store. One instance per document run;
// discard it when the run ends. All methods are safe for concurrent use:
// the lookup-or-create sequence is check-then-insert, so unsynchronized
// sharing would let two goroutines issue different replacements for the
// same original.
type Cache struct {
	mu        sync.Mutex
	values    map[string]string // original text -> replacement
	nameParts map[string]string // single name token -> replacement token
	used      map[string]bool   // replacement values already issued
}

// NewCache creates an empty replacement cache for one document run.
func NewCache() *Cache {
	return &Cache{
		values:    make(map[string]string),
		nameParts: make(map[string]string),
		used:      make(map[string]bool),
	}
}

// LookupOrCreate returns the replacement for original, creating and caching
// one on first sight. Calling it twice with the same original on the same
// cache instance always returns the same value. Distinct originals receive
// distinct replacements by construction: every draw excludes values that
// were already issued.
func (c *Cache) LookupOrCreate(original, kind string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.values[original]; ok {
		return cached
	}

	var replacement string
	if kind == detect.KindPerson {
		replacement = c.personReplacement(original)
	} else {
		replacement = c.valueReplacement(original, kind)
	}

	c.values[original] = replacement
	c.used[replacement] = true
	return replacement
}

// Len returns the number of distinct originals mapped so far.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// personReplacement resolves each whitespace-separated name part through
// the name-part table, so "Aaron Mehta" and a later lone "Aaron" agree on
// the same fake first name. The first part draws from first names, every
// later part from last names. Caller holds c.mu.
func (c *Cache) personReplacement(original string) string {
	parts := strings.Fields(original)
	if len(parts) == 0 {
		return c.draw(original, firstNames)
	}

	replaced := make([]string, len(parts))
	for i, part := range parts {
		if cached, ok := c.nameParts[part]; ok {
			replaced[i] = cached
			continue
		}
		pool := lastNames
		if i == 0 {
			pool = firstNames
		}
		pick := c.draw(part, pool)
		c.nameParts[part] = pick
		c.used[pick] = true
		replaced[i] = pick
	}
	return strings.Join(replaced, " ")
}

// valueReplacement produces a category-appropriate value for non-person
// kinds. Caller holds c.mu.
func (c *Cache) valueReplacement(original, kind string) string {
	switch kind {
	case detect.KindAddress:
		return c.draw(original, addresses)
	case detect.KindOrg:
		return c.draw(original, organizations)
	case detect.KindEmail:
		return c.drawEmail(original)
	case detect.KindPhone, detect.KindSSN, detect.KindCreditCard, detect.KindIBAN, detect.KindIPAddress:
		if strings.ContainsAny(original, "0123456789") {
			return c.substituteDigits(original)
		}
		return c.genericToken(original, kind)
	}
	if strings.ContainsAny(original, "0123456789") {
		return c.substituteDigits(original)
	}
	return c.genericToken(original, kind)
}
