// Package codec turns entity graphs into the string values the key-value
// store holds, and back.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec encodes one value to a store string and decodes it back.
type Codec interface {
	Name() string
	Marshal(v any) (string, error)
	Unmarshal(data string, v any) error
}

// New returns the codec registered under name. An empty name selects JSON.
func New(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "cbor":
		return NewCBOR()
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

// JSON is the default codec. Field names follow the documented wire format.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSON) Unmarshal(data string, v any) error {
	return json.Unmarshal([]byte(data), v)
}

// CBOR encodes with RFC 8949 core deterministic encoding, so the same value
// always produces the same bytes. Struct fields reuse their json tags.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR builds the deterministic CBOR codec.
func NewCBOR() (*CBOR, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("codec: CBOR encoder initialization failed: %w", err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("codec: CBOR decoder initialization failed: %w", err)
	}
	return &CBOR{enc: enc, dec: dec}, nil
}

func (*CBOR) Name() string { return "cbor" }

func (c *CBOR) Marshal(v any) (string, error) {
	b, err := c.enc.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *CBOR) Unmarshal(data string, v any) error {
	return c.dec.Unmarshal([]byte(data), v)
}
