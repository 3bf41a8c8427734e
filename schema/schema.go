// Package schema is a minimal stand-in for the external SchemaLoader and
// ValueCodec collaborators the spec treats as black boxes: it parses a
// handful of primitive schema texts into a ValueCodec that knows how to
// write, read, and skip one record of that type on a tap.Tap. A real
// deployment would swap this package for a full schema resolver; the
// four streams in this module only ever interact with the ValueCodec
// interface.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SaveTheRbtz/ocf-go/tap"
)

// ErrUnsupportedSchema is returned by Parse when the schema text names a
// type this package does not implement. BlockDecoder reports it as the
// SchemaParse error kind with this error's message appended; only the
// SchemaParse sentinel is in the resulting error chain.
var ErrUnsupportedSchema = errors.New("schema: unsupported schema")

// ErrValueType is returned by Write when a value does not match what the
// schema's type can encode. The encoders report it as the EncodeFailure
// error kind with this error's message appended; only the EncodeFailure
// sentinel is in the resulting error chain.
var ErrValueType = errors.New("schema: value does not match schema type")

// ValueCodec is the per-type record writer/reader/skipper driven by a
// schema, exactly the spec's black-box interface.
type ValueCodec interface {
	// Text returns the canonical schema text, the same string that is
	// written into the OCF header's avro.schema metadata entry.
	Text() string
	// Write encodes val onto t. A non-nil error means val itself is
	// rejected by the schema (EncodeFailure); tap overflow is instead
	// signaled by t.IsValid() and is not an error here.
	Write(t *tap.Tap, val interface{}) error
	// Read decodes one value from t. Underflow is signaled by
	// t.IsValid(), not by a returned error.
	Read(t *tap.Tap) (interface{}, error)
	// Skip advances t past one value without decoding it.
	Skip(t *tap.Tap)
}

// Parse parses a schema text (e.g. `"long"`) into a ValueCodec. Only a
// handful of Avro primitive types are implemented; anything else
// surfaces ErrUnsupportedSchema.
func Parse(text string) (ValueCodec, error) {
	switch strings.TrimSpace(text) {
	case `"null"`:
		return nullCodec{}, nil
	case `"boolean"`:
		return booleanCodec{}, nil
	case `"long"`:
		return longCodec{}, nil
	case `"string"`:
		return stringCodec{}, nil
	case `"bytes"`:
		return bytesCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSchema, text)
	}
}

func toInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	}
	return 0, false
}

type nullCodec struct{}

func (nullCodec) Text() string { return `"null"` }
func (nullCodec) Write(_ *tap.Tap, val interface{}) error {
	if val != nil {
		return fmt.Errorf("%w: expected nil, got %T", ErrValueType, val)
	}
	return nil
}
func (nullCodec) Read(_ *tap.Tap) (interface{}, error) { return nil, nil }
func (nullCodec) Skip(_ *tap.Tap)                      {}

type booleanCodec struct{}

func (booleanCodec) Text() string { return `"boolean"` }

func (booleanCodec) Write(t *tap.Tap, val interface{}) error {
	b, ok := val.(bool)
	if !ok {
		return fmt.Errorf("%w: expected bool, got %T", ErrValueType, val)
	}
	if b {
		t.WriteFixed([]byte{1})
	} else {
		t.WriteFixed([]byte{0})
	}
	return nil
}

func (booleanCodec) Read(t *tap.Tap) (interface{}, error) {
	p := t.ReadRaw(1)
	if !t.IsValid() || p == nil {
		return nil, nil
	}
	return p[0] != 0, nil
}

func (booleanCodec) Skip(t *tap.Tap) { t.Skip(1) }

type longCodec struct{}

func (longCodec) Text() string { return `"long"` }

func (longCodec) Write(t *tap.Tap, val interface{}) error {
	n, ok := toInt64(val)
	if !ok {
		return fmt.Errorf("%w: expected integer, got %T", ErrValueType, val)
	}
	t.WriteLong(n)
	return nil
}

func (longCodec) Read(t *tap.Tap) (interface{}, error) {
	n := t.ReadLong()
	if !t.IsValid() {
		return nil, nil
	}
	return n, nil
}

func (longCodec) Skip(t *tap.Tap) { t.ReadLong() }

type stringCodec struct{}

func (stringCodec) Text() string { return `"string"` }

func (stringCodec) Write(t *tap.Tap, val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("%w: expected string, got %T", ErrValueType, val)
	}
	t.WriteBytes([]byte(s))
	return nil
}

func (stringCodec) Read(t *tap.Tap) (interface{}, error) {
	p := t.ReadBytes()
	if !t.IsValid() {
		return nil, nil
	}
	return string(p), nil
}

func (stringCodec) Skip(t *tap.Tap) { t.SkipBytes() }

type bytesCodec struct{}

func (bytesCodec) Text() string { return `"bytes"` }

func (bytesCodec) Write(t *tap.Tap, val interface{}) error {
	b, ok := val.([]byte)
	if !ok {
		return fmt.Errorf("%w: expected []byte, got %T", ErrValueType, val)
	}
	t.WriteBytes(b)
	return nil
}

func (bytesCodec) Read(t *tap.Tap) (interface{}, error) {
	p := t.ReadBytes()
	if !t.IsValid() {
		return nil, nil
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

func (bytesCodec) Skip(t *tap.Tap) { t.SkipBytes() }
