package gtfs

import "strings"

// RegionPrefix derives the namespace prefix for a region name: every
// non-alphanumeric rune becomes '_', the result is lower-cased and
// terminated by '_'. "OSEA (Famagusta)" yields "osea__famagusta__".
func RegionPrefix(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 1)
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	b.WriteByte('_')
	return b.String()
}
