package match

import (
	"regexp"
	"slices"
	"strings"
)

// noiseEndpoints have canonical names that drop connector words, e.g.
// "Pokémon Black and White" is "black-white".
var noiseEndpoints = map[string]struct{}{
	"version":       {},
	"version-group": {},
}

var (
	noiseWords     = regexp.MustCompile(`(?i)\b(pok[eé]mon|and)\b`)
	nonAlphanumRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize turns a raw query into two candidate catalog names: the tokens
// joined with hyphens, and the same tokens joined in reverse order.
func Normalize(endpoint, raw string) (string, string) {
	if _, ok := noiseEndpoints[endpoint]; ok {
		raw = noiseWords.ReplaceAllString(raw, " ")
	}

	tokens := slices.DeleteFunc(
		nonAlphanumRun.Split(strings.ToLower(raw), -1),
		func(token string) bool { return token == "" },
	)

	forward := strings.Join(tokens, "-")

	slices.Reverse(tokens)

	return forward, strings.Join(tokens, "-")
}
