package region

import (
	"sort"
)

// Resolve merges geometrically overlapping directives into disjoint regions.
//
// Every directive starts as its own singleton region. Regions are sorted in
// reading order (page, then y0, then x0) so merge results are deterministic,
// then swept: each region is tested for 2-D overlap against the already
// resolved set and merged into the first hit, or appended as new.
//
// Merging two rectangles can produce a bounding box that newly overlaps a
// region that was already resolved, so the sweep repeats until a full pass
// performs no merge. A single pass is not enough when three or more
// rectangles chain together (A overlaps B, B overlaps C, A not C).
func Resolve(directives []Directive) []Region {
	regions := make([]Region, 0, len(directives))
	for _, d := range directives {
		regions = append(regions, Region{
			Rect:       d.Rect,
			Page:       d.Page,
			Directives: []Directive{d},
		})
	}

	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Rect.Y0 != b.Rect.Y0 {
			return a.Rect.Y0 < b.Rect.Y0
		}
		return a.Rect.X0 < b.Rect.X0
	})

	for {
		var merged bool
		resolved := make([]Region, 0, len(regions))
		for _, reg := range regions {
			hit := -1
			for i := range resolved {
				if resolved[i].Page == reg.Page && resolved[i].Rect.Overlaps(reg.Rect) {
					hit = i
					break
				}
			}
			if hit < 0 {
				resolved = append(resolved, reg)
				continue
			}
			resolved[hit].Rect = resolved[hit].Rect.Union(reg.Rect)
			resolved[hit].Directives = append(resolved[hit].Directives, reg.Directives...)
			merged = true
		}
		regions = resolved
		if !merged {
			return regions
		}
	}
}
