package mapping

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Value pools for pseudo replacements. Draws are keyed by a hash of the
// original value so the same original picks the same pool entry across
// runs, with linear probing past values the cache already issued.

var firstNames = []string{
	"Alex", "Bianca", "Carl", "Diana", "Elias", "Fiona", "Gustav", "Hana",
	"Igor", "Jana", "Karim", "Lena", "Marco", "Nadia", "Oskar", "Priya",
	"Quentin", "Rosa", "Stefan", "Tara", "Umar", "Vera", "Wim", "Xenia",
	"Yusuf", "Zoe", "Anton", "Birgit", "Cesar", "Dorte", "Emil", "Frida",
}

var lastNames = []string{
	"Albrecht", "Bergmann", "Castillo", "Dijkstra", "Eriksen", "Fontaine",
	"Gruber", "Holm", "Ibanez", "Jansen", "Keller", "Lindqvist", "Moreau",
	"Nakamura", "Olsen", "Petrov", "Quirke", "Rossi", "Sandoval", "Tanaka",
	"Urbano", "Visser", "Wagner", "Xavier", "Ybarra", "Zimmermann",
	"Andersen", "Brandt", "Costa", "Duran", "Engel", "Farkas",
}

var addresses = []string{
	"12 Elm Street", "48 Harbor Lane", "7 Birchwood Avenue", "230 Mill Road",
	"91 Cedar Court", "15 Station Square", "3 Orchard Drive", "66 Granite Way",
	"104 Willow Boulevard", "27 Foundry Street", "58 Meadow Lane",
	"19 Lighthouse Road", "340 Prospect Avenue", "81 Juniper Court",
	"5 Cobble Close", "142 Summit Drive",
}

var organizations = []string{
	"Northwind Trading", "Meridian Labs", "Cobalt Systems", "Harborview Group",
	"Lattice Industries", "Pinebrook Partners", "Vectra Logistics",
	"Summit Analytics", "Bluefield Energy", "Crestline Media",
	"Ironwood Holdings", "Quartz Dynamics", "Silverbirch Consulting",
	"Tidewater Supply", "Granite Peak Software", "Amberline Freight",
}

// draw picks a pool entry keyed by a hash of the original, probing forward
// past already-issued values. When the whole pool is exhausted a numeric
// suffix disambiguates. Caller holds c.mu.
func (c *Cache) draw(original string, pool []string) string {
	start := int(hash32(original) % uint32(len(pool)))
	for i := 0; i < len(pool); i++ {
		pick := pool[(start+i)%len(pool)]
		if !c.used[pick] {
			return pick
		}
	}
	base := pool[start]
	for n := 2; ; n++ {
		pick := fmt.Sprintf("%s%d", base, n)
		if !c.used[pick] {
			return pick
		}
	}
}

// drawEmail derives a stable fake mailbox from the original address.
func (c *Cache) drawEmail(original string) string {
	h := hash32(original)
	for salt := uint32(0); ; salt++ {
		pick := fmt.Sprintf("user%08x@example.com", h+salt)
		if !c.used[pick] {
			return pick
		}
	}
}

// substituteDigits replaces each digit with one derived from a hash stream
// seeded by the original, preserving every non-digit character so the
// visual format (dashes, dots, spacing) survives.
func (c *Cache) substituteDigits(original string) string {
	for salt := uint64(0); ; salt++ {
		seed := hash64(original) + salt
		var b strings.Builder
		b.Grow(len(original))
		for _, ch := range original {
			if ch >= '0' && ch <= '9' {
				seed = seed*6364136223846793005 + 1442695040888963407
				b.WriteByte(byte('0' + (seed>>33)%10))
			} else {
				b.WriteRune(ch)
			}
		}
		pick := b.String()
		if pick != original && !c.used[pick] {
			return pick
		}
	}
}

// genericToken is the masked fallback for kinds with no richer generator.
func (c *Cache) genericToken(original, kind string) string {
	label := strings.ToUpper(strings.TrimSpace(kind))
	if label == "" {
		label = "VALUE"
	}
	h := hash32(original)
	for salt := uint32(0); ; salt++ {
		pick := fmt.Sprintf("[%s-%08x]", label, h+salt)
		if !c.used[pick] {
			return pick
		}
	}
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
