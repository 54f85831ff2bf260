package pokeapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URLParts is the decomposition of a service URL.
type URLParts struct {
	Endpoint string
	Resource Identifier
	Subpath  string
	Query    string
}

// JoinURL joins parts with single slashes, ignoring empty parts and surrounding slashes.
func JoinURL(parts ...string) string {
	cleaned := make([]string, 0, len(parts))

	for i, part := range parts {
		if i == 0 {
			part = strings.TrimRight(part, "/")
		} else {
			part = strings.Trim(part, "/")
		}

		if part != "" {
			cleaned = append(cleaned, part)
		}
	}

	return strings.Join(cleaned, "/")
}

// BuildURL returns <base>/<endpoint>/<resource-or-empty>[?<querystring>].
func BuildURL(baseURL, endpoint string, resource Identifier, querystring string) string {
	joined := JoinURL(baseURL, endpoint, resource.String())

	querystring = strings.TrimPrefix(querystring, "?")
	if querystring != "" {
		joined += "?" + querystring
	}

	return joined
}

// ListURL returns the URL listing every resource of an endpoint in one page.
func ListURL(baseURL, endpoint string, limit int) string {
	return BuildURL(baseURL, endpoint, NoResource, "limit="+strconv.Itoa(limit))
}

// BreakURL splits a service URL into endpoint, resource and any trailing subpath.
func BreakURL(baseURL, rawURL string) (URLParts, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return URLParts{}, fmt.Errorf("parsing base url: %w", err)
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return URLParts{}, fmt.Errorf("%w: %w", ErrNotPokeAPIURL, err)
	}

	if target.Host != "" && !strings.EqualFold(target.Host, base.Host) {
		return URLParts{}, fmt.Errorf("%w: %s", ErrNotPokeAPIURL, rawURL)
	}

	rest, ok := strings.CutPrefix(target.Path, base.Path)
	if !ok {
		return URLParts{}, fmt.Errorf("%w: %s", ErrNotPokeAPIURL, rawURL)
	}

	segments := strings.FieldsFunc(rest, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return URLParts{}, fmt.Errorf("%w: %s has no endpoint", ErrNotPokeAPIURL, rawURL)
	}

	parts := URLParts{Endpoint: segments[0], Query: target.RawQuery}

	if len(segments) > 1 {
		parts.Resource = ParseIdentifier(segments[1])
	}

	if len(segments) > 2 {
		parts.Subpath = strings.Join(segments[2:], "/")
	}

	return parts, nil
}

// ResourceIDFromURL returns the numeric id in the trailing path segment of a resource URL.
func ResourceIDFromURL(rawURL string) (int, error) {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = strings.TrimRight(trimmed[:i], "/")
	}

	segment := trimmed[strings.LastIndexByte(trimmed, '/')+1:]

	id, err := strconv.Atoi(segment)
	if err != nil {
		return 0, fmt.Errorf("no numeric id in %s: %w", rawURL, err)
	}

	return id, nil
}
