// pkg/transform/countrystate.go
package transform

import (
	"sort"
	"strings"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// ResolveCountryState resolves a raw country/state pair to (two-letter
// country code, state code). Both inputs are stripped of everything except
// letters and spaces first. The country matches when its upper-case or title-case
// form equals any of the three stored name forms. A state longer than two
// characters is resolved through the matched country's state table; a
// short one is upper-cased and used directly.
//
// Resolution is atomic: when the country is unknown, or the state name
// cannot be found under the matched country, both results are empty.
// Partial resolution is never returned.
func (t *Transformer) ResolveCountryState(country, state string) (string, string) {
	// Spaces survive the cleanup so multi-word names still match their
	// stored forms.
	cleanCountry := strings.TrimSpace(reNonLetterSpace.ReplaceAllString(country, ""))
	cleanState := strings.TrimSpace(reNonLetterSpace.ReplaceAllString(state, ""))

	for _, key := range t.countryKeys {
		if !matchesCountry(cleanCountry, key) {
			continue
		}

		if len(cleanState) > 2 {
			code, ok := t.countries[key][titleCase(cleanState)]
			if !ok {
				return "", ""
			}
			return key.TwoLetter, code
		}
		return key.TwoLetter, strings.ToUpper(cleanState)
	}

	return "", ""
}

func matchesCountry(cleaned string, key model.CountryKey) bool {
	upper := strings.ToUpper(cleaned)
	title := titleCase(cleaned)

	for _, form := range []string{key.Name, key.TwoLetter, key.ThreeLetter} {
		if form != "" && (upper == form || title == form) {
			return true
		}
	}
	return false
}

// sortedCountryKeys fixes the lookup order so resolution is deterministic
// regardless of map iteration order.
func sortedCountryKeys(index model.CountryStateIndex) []model.CountryKey {
	keys := make([]model.CountryKey, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].TwoLetter < keys[j].TwoLetter
	})
	return keys
}
