package serde

import (
	"fmt"

	"github.com/arangodb/go-velocypack"
)

type vpackSerde struct{}

var vpackCodec = vpackSerde{}

func VPack() Serde {
	return vpackCodec
}

func (vpackSerde) ContentType() string {
	return ContentTypeVPack
}

func (vpackSerde) Marshal(v any) ([]byte, error) {
	s, err := velocypack.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (vpackSerde) Unmarshal(data []byte, v any) error {
	return velocypack.Unmarshal(velocypack.Slice(data), v)
}

func (vpackSerde) Field(data []byte, name string) ([]byte, error) {
	s := velocypack.Slice(data)
	if !s.IsObject() {
		return nil, fmt.Errorf("failed to decode object: unexpected velocypack type %v", s.Type())
	}

	value, err := s.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read attribute %s: %w", name, err)
	}

	if len(value) == 0 || value.IsNone() {
		return nil, nil
	}

	return []byte(value), nil
}

func (vpackSerde) Elements(data []byte) ([][]byte, error) {
	s := velocypack.Slice(data)
	if !s.IsArray() {
		return nil, fmt.Errorf("failed to decode array: unexpected velocypack type %v", s.Type())
	}

	length, err := s.Length()
	if err != nil {
		return nil, fmt.Errorf("failed to read array length: %w", err)
	}

	result := make([][]byte, 0, length)
	for i := velocypack.ValueLength(0); i < length; i++ {
		element, err := s.At(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read array element %d: %w", i, err)
		}
		result = append(result, []byte(element))
	}

	return result, nil
}

// Size returns the number of bytes taken by the first value in data
func Size(data []byte) (int, error) {
	size, err := velocypack.Slice(data).ByteSize()
	if err != nil {
		return 0, err
	}
	return int(size), nil
}
