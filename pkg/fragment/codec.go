package fragment

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

// DecodeError reports a fragment that is not well-formed JSON. Encode never
// produces such a fragment, so in practice this surfaces only when callers
// feed the codec strings from outside the session.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fragment: decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Codec produces canonical string encodings of editor snapshots. The zero
// value is not usable; construct with NewCodec.
//
// Encode is reentrancy-guarded: the editor's own serialization can trigger
// nested snapshot requests, and a nested call short-circuits to the last
// known-good encoding so a single logical pass is observed as atomic.
type Codec struct {
	busy atomic.Bool

	mu       sync.Mutex
	lastGood string
}

// NewCodec returns a codec whose last known-good value starts as the default
// empty document.
func NewCodec() *Codec {
	return &Codec{lastGood: DefaultDocument}
}

// Encode converts raw — a string, or an arbitrary object graph — into a
// decodable JSON string. It never fails: inputs that cannot be preserved
// degrade to DefaultDocument. Nested calls return the last known-good value.
func (c *Codec) Encode(raw any) string {
	if !c.busy.CompareAndSwap(false, true) {
		return c.LastGood()
	}
	defer c.busy.Store(false)

	encoded := encodeValue(raw)

	c.mu.Lock()
	c.lastGood = encoded
	c.mu.Unlock()

	return encoded
}

// Decode parses an encoded fragment back into the generic form the editor
// accepts as input.
func (c *Codec) Decode(encoded string) (any, error) {
	var out any
	if err := json.Unmarshal([]byte(encoded), &out); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return out, nil
}

// LastGood returns the most recent successful encoding.
func (c *Codec) LastGood() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastGood
}

func encodeValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return DefaultDocument
	case string:
		if strings.TrimSpace(v) == "" || !json.Valid([]byte(v)) {
			return DefaultDocument
		}
		return v
	case []byte:
		return encodeValue(string(v))
	}

	// Fast path: most snapshots marshal directly. encoding/json rejects
	// cycles and non-data members, which routes those graphs to the
	// cycle-dropping traversal below.
	if data, err := json.Marshal(raw); err == nil {
		return string(data)
	}

	plain, ok := flatten(reflect.ValueOf(raw), map[uintptr]bool{})
	if !ok {
		return DefaultDocument
	}
	data, err := json.Marshal(plain)
	if err != nil {
		return DefaultDocument
	}
	return string(data)
}

// flatten walks an object graph producing a plain data tree. Back-edges and
// non-data members (functions, channels) are dropped: inside maps and structs
// the key is omitted, inside slices the element becomes null, mirroring how a
// seen-set JSON replacer behaves. The second return is false when the value
// itself cannot be represented.
func flatten(v reflect.Value, seen map[uintptr]bool) (any, bool) {
	if !v.IsValid() {
		return nil, true
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, true
		}
		addr := v.Pointer()
		if seen[addr] {
			return nil, false
		}
		seen[addr] = true
		defer delete(seen, addr)
		return flatten(v.Elem(), seen)

	case reflect.Interface:
		if v.IsNil() {
			return nil, true
		}
		return flatten(v.Elem(), seen)

	case reflect.Map:
		if v.IsNil() {
			return nil, true
		}
		addr := v.Pointer()
		if seen[addr] {
			return nil, false
		}
		seen[addr] = true
		defer delete(seen, addr)

		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			child, ok := flatten(iter.Value(), seen)
			if !ok {
				continue
			}
			out[fmt.Sprint(iter.Key().Interface())] = child
		}
		return out, true

	case reflect.Slice:
		if v.IsNil() {
			return nil, true
		}
		addr := v.Pointer()
		if seen[addr] {
			return nil, false
		}
		seen[addr] = true
		defer delete(seen, addr)
		return flattenSequence(v, seen)

	case reflect.Array:
		return flattenSequence(v, seen)

	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue
			}
			name := jsonFieldName(field)
			if name == "" {
				continue
			}
			child, ok := flatten(v.Field(i), seen)
			if !ok {
				continue
			}
			out[name] = child
		}
		return out, true

	case reflect.Func, reflect.Chan, reflect.UnsafePointer,
		reflect.Complex64, reflect.Complex128:
		return nil, false

	default:
		return v.Interface(), true
	}
}

func flattenSequence(v reflect.Value, seen map[uintptr]bool) (any, bool) {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		child, ok := flatten(v.Index(i), seen)
		if !ok {
			child = nil
		}
		out[i] = child
	}
	return out, true
}

func jsonFieldName(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}
