// Package serde holds the codecs used to put values on the wire. Requests and responses are
// either JSON or VelocyPack, VelocyPack itself is implemented by github.com/arangodb/go-velocypack.
package serde

import (
	"strings"
)

const (
	ContentTypeJSON  string = "application/json"
	ContentTypeVPack string = "application/x-velocypack"
)

type Serde interface {
	ContentType() string

	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error

	// Field returns the encoded value of a top level attribute of an object, or nil if the
	// attribute is not present
	Field(data []byte, name string) ([]byte, error)
	// Elements returns the encoded values of all members of an array
	Elements(data []byte) ([][]byte, error)
}

// ForContentType returns the codec able to decode a body with the given content type. Unknown
// or missing content types fall back to the supplied default.
func ForContentType(contentType string, fallback Serde) Serde {
	switch {
	case strings.HasPrefix(contentType, ContentTypeVPack):
		return VPack()
	case strings.HasPrefix(contentType, ContentTypeJSON):
		return JSON()
	}

	if fallback == nil {
		return JSON()
	}

	return fallback
}
