package secrets

import (
	"strings"

	masker "github.com/goliatone/go-masker"
)

func init() {
	// Register the fields that show up around secret records so masking
	// uses sane defaults when callers log whole maps.
	for _, field := range []string{"value", "secret", "client_secret", "password"} {
		masker.Default.RegisterMaskField(field, "preserveEnds(2,2)")
	}
}

// MaskValue returns a masked rendition of a secret value safe for logging.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	if masked, err := masker.Default.String("preserveEnds(2,2)", value); err == nil {
		return masked
	}
	// Fallback masking if no rule is registered.
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}
