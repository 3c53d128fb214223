package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = map[string]struct{}{
	"payment_reference": {},
	"reason":            {},
}

// MaskSecret redacts a value while keeping the last four characters.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskMetadata copies metadata, masking string values stored under
// sensitive keys. Empty keys are dropped.
func MaskMetadata(input map[string]any) map[string]any {
	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitiveKeys[strings.ToLower(trimmedKey)]; ok {
			if text, isString := value.(string); isString {
				masked[trimmedKey] = MaskSecret(text)
				continue
			}
		}
		masked[trimmedKey] = value
	}
	return masked
}
