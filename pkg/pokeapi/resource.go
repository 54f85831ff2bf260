package pokeapi

import "fmt"

// Resource is a materialized top-level response plus the request that produced it.
// The metadata is fixed at construction; the data fields are reached through the embedded Node.
type Resource struct {
	*Node

	endpoint   string
	identifier Identifier
	url        string
	name       string
	id         int
}

// NewResource materializes raw as the resource identified by endpoint and identifier.
func NewResource(endpoint string, identifier Identifier, url string, raw []byte) (*Resource, error) {
	value, err := MaterializeJSON(endpoint, raw)
	if err != nil {
		return nil, err
	}

	node, ok := value.(*Node)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", ErrUnexpectedShape, url, value)
	}

	resource := &Resource{
		Node:       node,
		endpoint:   endpoint,
		identifier: identifier,
		url:        url,
	}

	resource.name, _ = node.GetString("name")
	if name, ok := identifier.NameValue(); ok && resource.name == "" {
		resource.name = name
	}

	resource.id, err = node.GetInt("id")
	if err != nil {
		resource.id, _ = identifier.IDValue()
	}

	return resource, nil
}

// Endpoint returns the endpoint the resource was fetched from.
func (r *Resource) Endpoint() string {
	return r.endpoint
}

// Identifier returns the resolved identifier used for the request.
func (r *Resource) Identifier() Identifier {
	return r.identifier
}

// URL returns the fully qualified request URL.
func (r *Resource) URL() string {
	return r.url
}

// Name returns the canonical resource name, when known.
func (r *Resource) Name() string {
	return r.name
}

// ID returns the numeric resource id, or 0 when unknown.
func (r *Resource) ID() int {
	return r.id
}
