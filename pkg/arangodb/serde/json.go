package serde

import (
	"encoding/json"
	"fmt"
)

type jsonSerde struct{}

var jsonCodec = jsonSerde{}

func JSON() Serde {
	return jsonCodec
}

func (jsonSerde) ContentType() string {
	return ContentTypeJSON
}

func (jsonSerde) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonSerde) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonSerde) Field(data []byte, name string) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}

	value, ok := fields[name]
	if !ok {
		return nil, nil
	}

	return value, nil
}

func (jsonSerde) Elements(data []byte) ([][]byte, error) {
	elements := []json.RawMessage{}
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("failed to decode array: %w", err)
	}

	result := make([][]byte, 0, len(elements))
	for _, e := range elements {
		result = append(result, e)
	}

	return result, nil
}
