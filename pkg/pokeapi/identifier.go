package pokeapi

import (
	"strconv"
	"strings"
)

// IdentifierKind tells which form an Identifier holds.
type IdentifierKind int

const (
	// KindNone means no resource was given (endpoint listing or querystring request).
	KindNone IdentifierKind = iota
	// KindName is a string resource name, subject to fuzzy resolution.
	KindName
	// KindID is a positive numeric id, checked against the catalog.
	KindID
)

// Identifier addresses one resource within an endpoint, by name or by id.
type Identifier struct {
	kind IdentifierKind
	name string
	id   int
}

// NoResource is the empty identifier.
var NoResource = Identifier{}

// Name returns a name identifier.
func Name(name string) Identifier {
	return Identifier{kind: KindName, name: name}
}

// ID returns a numeric identifier.
func ID(id int) Identifier {
	return Identifier{kind: KindID, id: id}
}

// ParseIdentifier turns command-line style input into an Identifier. Digits,
// optionally signed, become an ID with leading zeros ignored; zero, negative
// and out-of-range numbers give an ID that fails Validate. Anything else is a
// Name and empty input is NoResource.
func ParseIdentifier(raw string) Identifier {
	if raw == "" {
		return NoResource
	}

	digits := strings.TrimPrefix(raw, "-")
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return Name(raw)
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return ID(0)
	}

	return ID(id)
}

// Kind returns the identifier form.
func (i Identifier) Kind() IdentifierKind {
	return i.kind
}

// IsZero reports whether no resource is addressed.
func (i Identifier) IsZero() bool {
	return i.kind == KindNone
}

// NameValue returns the name and whether the identifier is a name.
func (i Identifier) NameValue() (string, bool) {
	return i.name, i.kind == KindName
}

// IDValue returns the id and whether the identifier is an id.
func (i Identifier) IDValue() (int, bool) {
	return i.id, i.kind == KindID
}

// String renders the identifier as it appears in a URL path segment.
func (i Identifier) String() string {
	switch i.kind {
	case KindName:
		return i.name
	case KindID:
		return strconv.Itoa(i.id)
	default:
		return ""
	}
}

// Validate checks the identifier invariants: names are non-empty, ids positive.
func (i Identifier) Validate() error {
	switch i.kind {
	case KindName:
		if i.name == "" {
			return invalidRequestf("resource name must not be empty")
		}
	case KindID:
		if i.id <= 0 {
			return invalidRequestf("resource id must be positive, got %d", i.id)
		}
	case KindNone:
	}

	return nil
}
