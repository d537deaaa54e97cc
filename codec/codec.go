// Package codec encodes domain objects into canonical textual identities.
//
// The identity keys the similarity result cache, so two sources that encode
// to the same bytes are treated as the same reference object.
package codec

import (
	"fmt"

	"github.com/hupe1980/coltab/deriver"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}

type identity struct {
	Parent []byte   `json:"p"`
	Aux    [][]byte `json:"a,omitempty"`
}

// Identity returns the canonical identity of a source. A deriver that
// implements deriver.Canonicalizer defines the identity itself; otherwise the
// source is encoded with c (Default if nil).
func Identity(c Codec, d deriver.Deriver, src deriver.Source) (string, error) {
	if cz, ok := d.(deriver.Canonicalizer); ok {
		return cz.Canonical(src), nil
	}
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(identity{Parent: src.Parent, Aux: src.Aux})
	if err != nil {
		return "", fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	return string(b), nil
}
