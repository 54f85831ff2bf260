package pokeapi

import (
	"go/token"
	"strings"
	"unicode"
)

// ReservedSuffix is appended to keys that collide with Go keywords.
const ReservedSuffix = "_"

// SanitizeKey maps a JSON key to the field name it is exposed under.
// Hyphens become underscores and Go keywords get ReservedSuffix. The mapping is
// deterministic; keys that still are not identifiers yield a
// *MalformedIdentifierError.
func SanitizeKey(key string) (string, error) {
	name := strings.ReplaceAll(key, "-", "_")

	if name == "" {
		return "", &MalformedIdentifierError{Key: key, Reason: "is empty"}
	}

	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		case unicode.IsDigit(r):
			return "", &MalformedIdentifierError{Key: key, Reason: "starts with a digit"}
		default:
			return "", &MalformedIdentifierError{Key: key, Reason: "contains " + string(r)}
		}
	}

	if token.IsKeyword(name) {
		name += ReservedSuffix
	}

	return name, nil
}
