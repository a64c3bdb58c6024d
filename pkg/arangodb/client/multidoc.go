package client

import (
	"fmt"
	"reflect"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
)

// sliceTarget fills a caller supplied *[]T one element per document. Positions that failed on
// the server get the zero value so indexes keep matching the request.
type sliceTarget struct {
	slice reflect.Value
}

func newSliceTarget(target any) (*sliceTarget, error) {
	if target == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return nil, fmt.Errorf("decode target must be a pointer to a slice, got %T (%w)", target, errors.ErrBadRequest)
	}

	s := rv.Elem()
	s.Set(reflect.MakeSlice(s.Type(), 0, 0))

	return &sliceTarget{slice: s}, nil
}

func (t *sliceTarget) append(codec serde.Serde, raw []byte) error {
	if t == nil {
		return nil
	}

	elem := reflect.New(t.slice.Type().Elem())
	if raw != nil {
		if err := codec.Unmarshal(raw, elem.Interface()); err != nil {
			return fmt.Errorf("failed to decode document: %s (%w)", err.Error(), errors.ErrBadResponse)
		}
	}

	t.slice.Set(reflect.Append(t.slice, elem.Elem()))
	return nil
}

// sliceLength returns the number of elements of a slice or array argument
func sliceLength(documents any) (int, error) {
	rv := reflect.ValueOf(documents)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 0, fmt.Errorf("expected a slice of documents, got %T (%w)", documents, errors.ErrBadRequest)
	}

	return rv.Len(), nil
}

type multiDocumentTargets struct {
	results    *sliceTarget
	newObjects *sliceTarget
	oldObjects *sliceTarget
}

func newMultiDocumentTargets(results, newObjects, oldObjects any) (*multiDocumentTargets, error) {
	var err error
	t := &multiDocumentTargets{}

	if t.results, err = newSliceTarget(results); err != nil {
		return nil, err
	}
	if t.newObjects, err = newSliceTarget(newObjects); err != nil {
		return nil, err
	}
	if t.oldObjects, err = newSliceTarget(oldObjects); err != nil {
		return nil, err
	}

	return t, nil
}

// parseMultiDocument splits an array response into documents and per position errors. Meta data
// is decoded with the response codec, user documents with the document serde.
func parseMultiDocument[T any](c *arangoClient, resp *arangoResponse, targets *multiDocumentTargets) (*arangodb.MultiDocumentEntity[T], error) {
	elements, err := resp.codec.Elements(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("expected an array response: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	docs := c.documentSerde(resp)
	result := &arangodb.MultiDocumentEntity[T]{
		Documents:          make([]T, 0, len(elements)),
		DocumentsAndErrors: make([]any, 0, len(elements)),
	}

	for _, element := range elements {
		if isErrorElement(resp.codec, element) {
			report := arangodb.ErrorEntity{}
			if err := resp.codec.Unmarshal(element, &report); err != nil {
				return nil, fmt.Errorf("failed to decode array element: %s (%w)", err.Error(), errors.ErrBadResponse)
			}

			result.Errors = append(result.Errors, report)
			result.DocumentsAndErrors = append(result.DocumentsAndErrors, report)

			for _, target := range []*sliceTarget{targets.results, targets.newObjects, targets.oldObjects} {
				if err := target.append(docs, nil); err != nil {
					return nil, err
				}
			}
			continue
		}

		var doc T
		if err := resp.codec.Unmarshal(element, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode array element: %s (%w)", err.Error(), errors.ErrBadResponse)
		}
		result.Documents = append(result.Documents, doc)
		result.DocumentsAndErrors = append(result.DocumentsAndErrors, doc)

		if err := targets.results.append(docs, element); err != nil {
			return nil, err
		}
		if err := appendField(targets.newObjects, resp.codec, docs, element, "new"); err != nil {
			return nil, err
		}
		if err := appendField(targets.oldObjects, resp.codec, docs, element, "old"); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// isErrorElement reports whether an element carries "error": true. User documents may have an
// error attribute of any other type.
func isErrorElement(codec serde.Serde, element []byte) bool {
	raw, err := codec.Field(element, "error")
	if err != nil || raw == nil {
		return false
	}

	flag := false
	if codec.Unmarshal(raw, &flag) != nil {
		return false
	}

	return flag
}

func appendField(target *sliceTarget, codec, docs serde.Serde, element []byte, name string) error {
	if target == nil {
		return nil
	}

	raw, err := codec.Field(element, name)
	if err != nil {
		return fmt.Errorf("failed to read %s from array element: %s (%w)", name, err.Error(), errors.ErrBadResponse)
	}

	return target.append(docs, raw)
}
