package validators

import "strings"

const maxIDLength = 128

// SanitizeID trims identifiers taken from paths and bodies and caps their length.
func SanitizeID(input string) string {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) > maxIDLength {
		return trimmed[:maxIDLength]
	}
	return trimmed
}
