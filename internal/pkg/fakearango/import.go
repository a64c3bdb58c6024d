package fakearango

import (
	"bufio"
	"bytes"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
)

// importLines splits a body of type documents, one JSON object per line. Blank lines are
// reported as nil elements.
func importLines(body []byte) ([]any, error) {
	elements := []any{}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			elements = append(elements, nil)
			continue
		}

		var element any
		if err := serde.JSON().Unmarshal(line, &element); err != nil {
			return nil, badParameter("failed to parse line %d: %s", len(elements)+1, err.Error())
		}
		elements = append(elements, element)
	}

	return elements, scanner.Err()
}

func applyPrefix(doc map[string]any, name, prefix string) {
	if prefix == "" {
		return
	}
	if v, ok := doc[name].(string); ok && v != "" && !strings.Contains(v, "/") {
		doc[name] = prefix + "/" + v
	}
}

type collectionSnapshot struct {
	documents map[string]document
	order     []string
	lastValue int64
	revision  string
}

func snapshot(c *collection) collectionSnapshot {
	return collectionSnapshot{
		documents: maps.Clone(c.documents),
		order:     slices.Clone(c.order),
		lastValue: c.lastValue,
		revision:  c.revision,
	}
}

func (cs collectionSnapshot) restore(c *collection) {
	c.documents = cs.documents
	c.order = cs.order
	c.lastValue = cs.lastValue
	c.revision = cs.revision
}

func (s *Server) importDocuments(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, badParameter("failed to read request body: %s", err.Error()))
		return
	}

	query := r.URL.Query()

	var elements []any
	switch query.Get("type") {
	case "list", "auto", "":
		if err := requestSerde(r).Unmarshal(body, &elements); err != nil {
			writeError(w, r, badParameter("expecting a JSON array in the request"))
			return
		}
	case "documents":
		if elements, err = importLines(body); err != nil {
			writeError(w, r, err)
			return
		}
	default:
		writeError(w, r, badParameter("invalid value for type"))
		return
	}

	o := writeOptions{keepNull: true, mergeObjects: true, ignoreRevs: true}
	switch arangodb.OnDuplicate(query.Get("onDuplicate")) {
	case arangodb.OnDuplicateUpdate:
		o.overwriteMode = arangodb.OverwriteModeUpdate
	case arangodb.OnDuplicateReplace:
		o.overwriteMode = arangodb.OverwriteModeReplace
	case arangodb.OnDuplicateIgnore:
		o.overwriteMode = arangodb.OverwriteModeIgnore
	}

	complete := queryBool(r, "complete", false)
	details := queryBool(r, "details", false)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransaction(r); err != nil {
		writeError(w, r, err)
		return
	}

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := db.collection(query.Get("collection"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	before := snapshot(c)
	if queryBool(r, "overwrite", false) {
		c.truncate()
	}

	result := arangodb.DocumentImportEntity{}
	for i, element := range elements {
		if element == nil {
			result.Empty++
			continue
		}

		doc, ok := asObject(element)
		if !ok {
			result.Errors++
			if details {
				result.Details = append(result.Details, fmt.Sprintf("at position %d: invalid JSON type (expecting object)", i))
			}
			continue
		}

		doc = maps.Clone(doc)
		applyPrefix(doc, "_from", query.Get("fromPrefix"))
		applyPrefix(doc, "_to", query.Get("toPrefix"))

		_, outcome, err := s.insert(c, doc, o)
		if err != nil {
			result.Errors++
			if details {
				result.Details = append(result.Details, fmt.Sprintf("at position %d: creating document failed with error '%s'", i, err.Error()))
			}
			continue
		}

		switch outcome {
		case outcomeCreated:
			result.Created++
		case outcomeUpdated:
			result.Updated++
		case outcomeIgnored:
			result.Ignored++
		}
	}

	if complete && result.Errors > 0 {
		before.restore(c)
		writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoUniqueConstraintViolated, "import aborted, %d documents failed", result.Errors))
		return
	}

	write(w, r, http.StatusCreated, result)
}
