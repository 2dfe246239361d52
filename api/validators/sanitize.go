package validators

import "strings"

// SanitizeString trims surrounding whitespace and clamps the value to maxLen
// bytes. A maxLen of zero disables the clamp.
func SanitizeString(input string, maxLen int) string {
	out := strings.TrimSpace(input)
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}
