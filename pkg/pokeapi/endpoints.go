package pokeapi

import "slices"

// knownEndpoints is the closed set of endpoints the client will talk to.
var knownEndpoints = []string{
	"ability",
	"berry",
	"berry-firmness",
	"berry-flavor",
	"characteristic",
	"contest-effect",
	"contest-type",
	"egg-group",
	"encounter-condition",
	"encounter-condition-value",
	"encounter-method",
	"evolution-chain",
	"evolution-trigger",
	"gender",
	"generation",
	"growth-rate",
	"item",
	"item-attribute",
	"item-category",
	"item-fling-effect",
	"item-pocket",
	"language",
	"location",
	"location-area",
	"machine",
	"move",
	"move-ailment",
	"move-battle-style",
	"move-category",
	"move-damage-class",
	"move-learn-method",
	"move-target",
	"nature",
	"pal-park-area",
	"pokeathlon-stat",
	"pokedex",
	"pokemon",
	"pokemon-color",
	"pokemon-form",
	"pokemon-habitat",
	"pokemon-shape",
	"pokemon-species",
	"region",
	"stat",
	"super-contest-effect",
	"type",
	"version",
	"version-group",
}

var knownEndpointSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(knownEndpoints))
	for _, endpoint := range knownEndpoints {
		set[endpoint] = struct{}{}
	}

	return set
}()

// KnownEndpoints returns a sorted copy of every supported endpoint name.
func KnownEndpoints() []string {
	return slices.Clone(knownEndpoints)
}

// IsKnownEndpoint reports whether endpoint belongs to the supported set.
func IsKnownEndpoint(endpoint string) bool {
	_, ok := knownEndpointSet[endpoint]

	return ok
}

// ValidateEndpoint returns an ErrInvalidRequest error for unknown endpoints.
func ValidateEndpoint(endpoint string) error {
	if !IsKnownEndpoint(endpoint) {
		return invalidRequestf("unknown endpoint %q", endpoint)
	}

	return nil
}
