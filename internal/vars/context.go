// Package vars implements the engine's variable context: an ordered,
// cloneable, JSON-serializable string-to-value mapping whose top level
// is always an object.
package vars

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context is the engine's evolving variable mapping. The zero value is
// not usable; use New.
type Context struct {
	order  []string
	values map[string]any
}

// New returns an empty Context.
func New() *Context {
	return &Context{values: make(map[string]any)}
}

// FromMap builds a Context from a plain map, preserving no particular
// order (Go map iteration order is not guaranteed); callers that need
// deterministic order should Insert keys one at a time instead.
func FromMap(m map[string]any) *Context {
	c := New()
	for k, v := range m {
		c.Insert(k, v)
	}
	return c
}

// Insert sets key to value, appending key to the iteration order if new.
func (c *Context) Insert(key string, value any) {
	if _, exists := c.values[key]; !exists {
		c.order = append(c.order, key)
	}
	c.values[key] = value
}

// Get returns the value for key and whether it was present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetOr returns the value for key, or def if absent.
func (c *Context) GetOr(key string, def any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Delete removes key from the context.
func (c *Context) Delete(key string) {
	if _, exists := c.values[key]; !exists {
		return
	}
	delete(c.values, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Keys returns keys in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of keys.
func (c *Context) Len() int { return len(c.order) }

// Clone returns a deep copy of the context.
func (c *Context) Clone() *Context {
	clone := New()
	for _, k := range c.order {
		clone.Insert(k, deepCopy(c.values[k]))
	}
	return clone
}

// Extend inserts every key from other into c, overwriting on conflict
// (shallow — unlike Merge, nested objects are not recursively combined).
func (c *Context) Extend(other *Context) {
	for _, k := range other.order {
		c.Insert(k, other.values[k])
	}
}

// Merge deep-merges other into c: object-into-object merges
// recursively; any other value kind (including array) overwrites.
func (c *Context) Merge(other *Context) {
	for _, k := range other.order {
		ov := other.values[k]
		if existing, ok := c.values[k]; ok {
			c.Insert(k, mergeValue(existing, ov))
		} else {
			c.Insert(k, ov)
		}
	}
}

func mergeValue(existing, incoming any) any {
	em, eok := existing.(map[string]any)
	im, iok := incoming.(map[string]any)
	if eok && iok {
		merged := make(map[string]any, len(em)+len(im))
		for k, v := range em {
			merged[k] = v
		}
		for k, v := range im {
			if ev, exists := merged[k]; exists {
				merged[k] = mergeValue(ev, v)
			} else {
				merged[k] = v
			}
		}
		return merged
	}
	return incoming
}

// ToJSONObject converts the context to a single JSON object. The
// returned map carries no key order: encoding/json sorts map keys when
// marshaling, and FromJSON does not restore the insertion order.
func (c *Context) ToJSONObject() (map[string]any, error) {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (c *Context) MarshalJSON() ([]byte, error) {
	obj, err := c.ToJSONObject()
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// UnmarshalJSON implements json.Unmarshaler. The top level must decode
// to a JSON object; anything else violates the context invariant.
func (c *Context) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("variable context must decode from a JSON object: %w", err)
	}
	c.values = make(map[string]any)
	c.order = nil
	for k, v := range normalizeNumbers(raw).(map[string]any) {
		c.Insert(k, v)
	}
	return nil
}

// FromJSON parses a JSON object into a new Context.
func FromJSON(data []byte) (*Context, error) {
	c := New()
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return c, nil
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = deepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = deepCopy(vv)
		}
		return out
	default:
		return v
	}
}

// normalizeNumbers converts json.Number leaves into int64 or float64,
// so downstream code never has to special-case json.Number.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, vv := range val {
			val[k] = normalizeNumbers(vv)
		}
		return val
	case []any:
		for i, vv := range val {
			val[i] = normalizeNumbers(vv)
		}
		return val
	default:
		return v
	}
}
