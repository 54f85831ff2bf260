package pokeapi_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	t.Parallel()

	err := &pokeapi.APIError{StatusCode: http.StatusNotFound, URL: base + "/pokemon/agumon", Detail: "Not Found"}
	assert.Equal(t, "remote request failed: GET "+base+"/pokemon/agumon returned 404: Not Found", err.Error())

	bare := &pokeapi.APIError{StatusCode: http.StatusBadGateway, URL: "u"}
	assert.Equal(t, "remote request failed: GET u returned 502", bare.Error())

	wrapped := fmt.Errorf("fetching: %w", err)
	assert.True(t, pokeapi.IsNotFound(wrapped))
	assert.True(t, pokeapi.IsRemoteFailure(wrapped))
	assert.False(t, pokeapi.IsNotFound(bare))
	assert.False(t, pokeapi.IsNotFound(errors.New("404")))

	var apiErr *pokeapi.APIError
	require.ErrorAs(t, wrapped, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	invalid := pokeapi.ValidateEndpoint("digimon")
	assert.True(t, pokeapi.IsInvalidRequest(invalid))
	assert.False(t, pokeapi.IsUnknownResource(invalid))
	assert.Contains(t, invalid.Error(), `unknown endpoint "digimon"`)

	unknown := fmt.Errorf("%w: berry/99", pokeapi.ErrUnknownResource)
	assert.True(t, pokeapi.IsUnknownResource(unknown))
	assert.False(t, pokeapi.IsInvalidRequest(unknown))

	malformed := &pokeapi.MalformedIdentifierError{Key: "2nd", Reason: "starts with a digit"}
	require.ErrorIs(t, malformed, pokeapi.ErrMalformedIdentifier)
	assert.Equal(t, `malformed identifier: key "2nd" starts with a digit`, malformed.Error())
}
