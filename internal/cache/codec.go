package cache

import (
	json "github.com/goccy/go-json"
)

// Codec converts cached values to and from their stored byte form.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default Codec. Map keys are emitted in sorted order, so equal values
// always encode to identical bytes.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
