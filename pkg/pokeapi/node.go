package pokeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Field is one entry of a Node: the original JSON key, the sanitized name and the value.
//
// Value is one of *Node, []*Node, json.Number, string, bool, nil, or a
// passthrough []interface{} for arrays that are not made only of objects.
type Field struct {
	Key   string
	Name  string
	Value interface{}
}

// Node is a materialized JSON object with sanitized, ordered fields.
type Node struct {
	key    string
	fields []Field
	index  map[string]int
}

// object is an order-preserving decoded JSON object.
type object struct {
	keys   []string
	values []interface{}
}

// MaterializeJSON decodes raw JSON and materializes it under key.
func MaterializeJSON(key string, raw []byte) (interface{}, error) {
	value, err := decodeOrdered(raw)
	if err != nil {
		return nil, err
	}

	return Materialize(key, value)
}

// Materialize converts a decoded JSON value into a *Node, a []*Node or a passthrough value.
// Objects may be given as map[string]interface{}; their keys are then taken in sorted order.
func Materialize(key string, value interface{}) (interface{}, error) {
	switch typed := value.(type) {
	case *object:
		return newNode(key, typed)
	case map[string]interface{}:
		return newNode(key, objectFromMap(typed))
	case []interface{}:
		if !allObjects(typed) {
			return plainSlice(typed), nil
		}

		nodes := make([]*Node, 0, len(typed))

		for _, element := range typed {
			materialized, err := Materialize(key, element)
			if err != nil {
				return nil, err
			}

			nodes = append(nodes, materialized.(*Node))
		}

		return nodes, nil
	default:
		return value, nil
	}
}

func newNode(key string, obj *object) (*Node, error) {
	node := &Node{
		key:    key,
		fields: make([]Field, 0, len(obj.keys)),
		index:  make(map[string]int, len(obj.keys)),
	}

	for i, fieldKey := range obj.keys {
		name, err := SanitizeKey(fieldKey)
		if err != nil {
			return nil, err
		}

		if existing, ok := node.index[name]; ok {
			return nil, &MalformedIdentifierError{
				Key:    fieldKey,
				Reason: fmt.Sprintf("collides with key %q as field %s", node.fields[existing].Key, name),
			}
		}

		value, err := Materialize(fieldKey, obj.values[i])
		if err != nil {
			return nil, err
		}

		node.index[name] = len(node.fields)
		node.fields = append(node.fields, Field{Key: fieldKey, Name: name, Value: value})
	}

	return node, nil
}

// Key returns the JSON key this node was materialized under.
func (n *Node) Key() string {
	return n.key
}

// Len returns the number of fields.
func (n *Node) Len() int {
	return len(n.fields)
}

// Fields returns the fields in their original order.
func (n *Node) Fields() []Field {
	return slices.Clone(n.fields)
}

// Names returns the sanitized field names in their original order.
func (n *Node) Names() []string {
	names := make([]string, len(n.fields))
	for i, f := range n.fields {
		names[i] = f.Name
	}

	return names
}

// Get returns the value of a field by sanitized name or by original JSON key.
func (n *Node) Get(name string) (interface{}, bool) {
	if i, ok := n.index[name]; ok {
		return n.fields[i].Value, true
	}

	sanitized, err := SanitizeKey(name)
	if err != nil {
		return nil, false
	}

	if i, ok := n.index[sanitized]; ok {
		return n.fields[i].Value, true
	}

	return nil, false
}

// Has reports whether the field exists.
func (n *Node) Has(name string) bool {
	_, ok := n.Get(name)

	return ok
}

// GetString returns a string field.
func (n *Node) GetString(name string) (string, error) {
	value, err := n.lookup(name)
	if err != nil {
		return "", err
	}

	s, ok := value.(string)
	if !ok {
		return "", fieldTypeError(name, "string", value)
	}

	return s, nil
}

// GetInt returns an integer field.
func (n *Node) GetInt(name string) (int, error) {
	value, err := n.lookup(name)
	if err != nil {
		return 0, err
	}

	number, ok := value.(json.Number)
	if !ok {
		return 0, fieldTypeError(name, "number", value)
	}

	i, err := number.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an integer: %w", ErrFieldType, name, err)
	}

	return int(i), nil
}

// GetFloat returns a numeric field as float64.
func (n *Node) GetFloat(name string) (float64, error) {
	value, err := n.lookup(name)
	if err != nil {
		return 0, err
	}

	number, ok := value.(json.Number)
	if !ok {
		return 0, fieldTypeError(name, "number", value)
	}

	f, err := number.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number: %w", ErrFieldType, name, err)
	}

	return f, nil
}

// GetBool returns a boolean field.
func (n *Node) GetBool(name string) (bool, error) {
	value, err := n.lookup(name)
	if err != nil {
		return false, err
	}

	b, ok := value.(bool)
	if !ok {
		return false, fieldTypeError(name, "bool", value)
	}

	return b, nil
}

// GetNode returns a nested object field.
func (n *Node) GetNode(name string) (*Node, error) {
	value, err := n.lookup(name)
	if err != nil {
		return nil, err
	}

	child, ok := value.(*Node)
	if !ok {
		return nil, fieldTypeError(name, "object", value)
	}

	return child, nil
}

// GetNodes returns a field holding an array of objects.
func (n *Node) GetNodes(name string) ([]*Node, error) {
	value, err := n.lookup(name)
	if err != nil {
		return nil, err
	}

	children, ok := value.([]*Node)
	if !ok {
		return nil, fieldTypeError(name, "array of objects", value)
	}

	return children, nil
}

// ReferenceURL returns the node's "url" field when it is a string.
func (n *Node) ReferenceURL() (string, bool) {
	value, ok := n.Get("url")
	if !ok {
		return "", false
	}

	s, ok := value.(string)

	return s, ok && s != ""
}

// IsReference reports whether the node points at another resource.
func (n *Node) IsReference() bool {
	_, ok := n.ReferenceURL()

	return ok
}

// MarshalJSON writes the node back out with its original keys and order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, f := range n.fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling field %s: %w", f.Key, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Plain converts the node into maps, slices and native numbers keyed by the original JSON keys.
func (n *Node) Plain() map[string]interface{} {
	out := make(map[string]interface{}, len(n.fields))
	for _, f := range n.fields {
		out[f.Key] = PlainValue(f.Value)
	}

	return out
}

// PlainValue converts a materialized value into plain Go values with native numbers.
func PlainValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case *Node:
		return typed.Plain()
	case []*Node:
		out := make([]interface{}, len(typed))
		for i, child := range typed {
			out[i] = child.Plain()
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, element := range typed {
			out[i] = PlainValue(element)
		}

		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			out[k] = PlainValue(v)
		}

		return out
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}

		if f, err := typed.Float64(); err == nil {
			return f
		}

		return typed.String()
	default:
		return value
	}
}

func (n *Node) lookup(name string) (interface{}, error) {
	value, ok := n.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldMissing, name)
	}

	return value, nil
}

func fieldTypeError(name, want string, got interface{}) error {
	return fmt.Errorf("%w: %s is %T, not %s", ErrFieldType, name, got, want)
}

func allObjects(values []interface{}) bool {
	for _, v := range values {
		switch v.(type) {
		case *object, map[string]interface{}:
		default:
			return false
		}
	}

	return true
}

func objectFromMap(m map[string]interface{}) *object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	obj := &object{keys: keys, values: make([]interface{}, len(keys))}
	for i, k := range keys {
		obj.values[i] = m[k]
	}

	return obj
}

// plainSlice replaces decoded objects inside a passthrough array with plain maps.
func plainSlice(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = plainDecoded(v)
	}

	return out
}

func plainDecoded(value interface{}) interface{} {
	switch typed := value.(type) {
	case *object:
		m := make(map[string]interface{}, len(typed.keys))
		for i, k := range typed.keys {
			m[k] = plainDecoded(typed.values[i])
		}

		return m
	case []interface{}:
		return plainSlice(typed)
	default:
		return value
	}
}

// decodeOrdered parses JSON keeping object key order and numbers as json.Number.
func decodeOrdered(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	value, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding json: %w", ErrTrailingData)
	}

	return value, nil
}

func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{}
		seen := make(map[string]int)

		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}

			key, _ := keyTok.(string)

			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}

			if i, dup := seen[key]; dup {
				obj.values[i] = value

				continue
			}

			seen[key] = len(obj.keys)
			obj.keys = append(obj.keys, key)
			obj.values = append(obj.values, value)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return obj, nil
	case '[':
		values := make([]interface{}, 0)

		for dec.More() {
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}

			values = append(values, value)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return values, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedDelim, delim)
	}
}
