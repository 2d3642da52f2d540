package domain

import "strings"

// Qualifier suffixes that may be stripped from a canonical key when the
// shorter form does not collide with a distinct existing key. Order matters:
// longer phrases first so "state park" folds before "park".
var qualifierSuffixes = []string{
	"state park",
	"county park",
	"regional park",
	"open space preserve",
	"park",
	"trail",
	"trailhead",
	"preserve",
	"reserve",
}

// Leading noise words the sources wrap around location names.
var strippedPrefixes = []string{
	"the ",
	"maybe ",
	"possibly ",
	"probably ",
	"called ",
	"near ",
}

// CanonicalKey normalizes a raw location name into the merge key: lowercase,
// trimmed, internal whitespace collapsed, noise prefixes removed, and the
// mt/mt. abbreviation folded to "mount" so "Mt. Tamalpais" and
// "Mount Tamalpais" merge.
func CanonicalKey(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), " ")

	for _, prefix := range strippedPrefixes {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}

	s = strings.TrimRight(s, ",.!?;:-")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "mt. ") {
		s = "mount " + s[len("mt. "):]
	} else if strings.HasPrefix(s, "mt ") {
		s = "mount " + s[len("mt "):]
	}

	return s
}

// StripQualifier returns the key with one trailing qualifier suffix removed,
// and whether anything was stripped. The caller owns the collision check:
// a stripped form that matches a distinct existing key must not be used.
func StripQualifier(key string) (string, bool) {
	for _, suffix := range qualifierSuffixes {
		full := " " + suffix
		if strings.HasSuffix(key, full) {
			base := strings.TrimSpace(strings.TrimSuffix(key, full))
			if base != "" {
				return base, true
			}
		}
	}
	return key, false
}

// CityKey derives the stable cache partition key from a city display name.
// Total and stable: the same input always yields the same key, and case or
// spacing variants collapse ("San Francisco, CA" == "san francisco, ca").
func CityKey(city string) string {
	return slugify(city)
}

// CategoryKey derives the stable category partition key.
func CategoryKey(category string) string {
	return slugify(category)
}

// slugify lowercases and replaces every run of non-alphanumeric characters
// with a single underscore. Used only for key derivation, never display.
func slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}
