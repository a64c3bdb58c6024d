package arangodb

import (
	"fmt"
	"strings"
)

// DocumentMeta holds the system attributes every stored document carries
type DocumentMeta struct {
	Key string `json:"_key,omitempty"`
	ID  string `json:"_id,omitempty"`
	Rev string `json:"_rev,omitempty"`
}

// DocumentID returns the handle of a document, e.g. users/1234
func DocumentID(collection, key string) string {
	return collection + "/" + key
}

// SplitDocumentID splits a document handle into collection name and key
func SplitDocumentID(id string) (string, string, error) {
	collection, key, found := strings.Cut(id, "/")
	if !found || collection == "" || key == "" {
		return "", "", fmt.Errorf("invalid document handle %q", id)
	}
	return collection, key, nil
}

type DocumentCreateEntity struct {
	DocumentMeta
}

type DocumentUpdateEntity struct {
	DocumentMeta
	OldRev string `json:"_oldRev,omitempty"`
}

type DocumentDeleteEntity struct {
	DocumentMeta
}

// ErrorEntity is the per document error reported by multi document operations
type ErrorEntity struct {
	Error        bool   `json:"error"`
	ErrorMessage string `json:"errorMessage"`
	Code         int    `json:"code"`
	ErrorNum     int    `json:"errorNum"`
}

// MultiDocumentEntity is the outcome of an operation on several documents. DocumentsAndErrors
// keeps the request order and holds either a T or an ErrorEntity per position.
type MultiDocumentEntity[T any] struct {
	Documents          []T
	Errors             []ErrorEntity
	DocumentsAndErrors []any
}

func (m *MultiDocumentEntity[T]) HasErrors() bool {
	return len(m.Errors) > 0
}

type DocumentImportEntity struct {
	Created int64    `json:"created"`
	Errors  int64    `json:"errors"`
	Empty   int64    `json:"empty"`
	Updated int64    `json:"updated"`
	Ignored int64    `json:"ignored"`
	Details []string `json:"details,omitempty"`
}

// VertexEntity is the metadata of a vertex written through a named graph
type VertexEntity struct {
	DocumentMeta
}

type VertexUpdateEntity struct {
	DocumentMeta
	OldRev string `json:"_oldRev,omitempty"`
}

// EdgeEntity is the metadata of an edge written through a named graph
type EdgeEntity struct {
	DocumentMeta
	From string `json:"_from,omitempty"`
	To   string `json:"_to,omitempty"`
}

type EdgeUpdateEntity struct {
	DocumentMeta
	OldRev string `json:"_oldRev,omitempty"`
}

// BaseEdgeDocument is a convenience type for edges that carry no attributes of their own
type BaseEdgeDocument struct {
	DocumentMeta
	From string `json:"_from"`
	To   string `json:"_to"`
}
