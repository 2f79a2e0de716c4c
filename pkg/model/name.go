package model

import "strings"

// SanitizeName reduces a job name to a token usable both as a path
// component and as a scheduler job name: spaces become hyphens and every
// character outside [A-Za-z0-9-] is dropped.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('-')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}
