// Package entity cleans extracted entities and projects references into
// the normalized form used for matching.
package entity

import (
	"strings"

	"github.com/matsen/refmatch/internal/reference"
)

// Postprocess cleans a bag in place:
//   - DOI fragments are joined and canonicalized, or cleared if malformed;
//   - a VOLUME pair ["12", "3"] becomes VOLUME "12" and ISSUE "3";
//   - hyphens are trimmed from page numbers.
//
// Other fields are left untouched.
func Postprocess(bag *reference.EntityBag) {
	if bag == nil {
		return
	}

	if frags := bag.Get(reference.DOI); len(frags) > 0 {
		if doi := CanonicalDOI(frags...); doi != "" {
			bag.Set(reference.DOI, doi)
		} else {
			bag.Clear(reference.DOI)
		}
	}

	if vols := bag.Get(reference.Volume); len(vols) == 2 {
		volume, issue := vols[0], vols[1]
		issues := append([]string{issue}, bag.Get(reference.Issue)...)
		bag.Set(reference.Volume, volume)
		bag.Set(reference.Issue, issues...)
	}

	for _, f := range []reference.Field{reference.PageFirst, reference.PageLast} {
		vals := bag.Get(f)
		if len(vals) == 0 {
			continue
		}
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = strings.Trim(v, "-")
		}
		bag.Set(f, trimmed...)
	}
}
