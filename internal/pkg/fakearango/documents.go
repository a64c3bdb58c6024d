package fakearango

import (
	"net/http"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

type writeOptions struct {
	waitForSync   bool
	returnNew     bool
	returnOld     bool
	silent        bool
	overwriteMode arangodb.OverwriteMode
	keepNull      bool
	mergeObjects  bool
	ignoreRevs    bool
	ifMatch       string
}

func parseWriteOptions(r *http.Request) writeOptions {
	o := writeOptions{
		waitForSync:   queryBool(r, "waitForSync", false),
		returnNew:     queryBool(r, "returnNew", false),
		returnOld:     queryBool(r, "returnOld", false),
		silent:        queryBool(r, "silent", false),
		overwriteMode: arangodb.OverwriteMode(r.URL.Query().Get("overwriteMode")),
		keepNull:      queryBool(r, "keepNull", true),
		mergeObjects:  queryBool(r, "mergeObjects", true),
		ignoreRevs:    queryBool(r, "ignoreRevs", true),
		ifMatch:       strings.Trim(r.Header.Get(arangodb.HeaderIfMatch), `"`),
	}

	if o.overwriteMode == "" && queryBool(r, "overwrite", false) {
		o.overwriteMode = arangodb.OverwriteModeReplace
	}

	return o
}

func (o writeOptions) status(c *collection) int {
	if o.waitForSync || c.properties.WaitForSync {
		return http.StatusCreated
	}
	return http.StatusAccepted
}

type writeOutcome int

const (
	outcomeCreated writeOutcome = iota
	outcomeUpdated
	outcomeIgnored
)

var systemAttributes = []string{"_key", "_id", "_rev", "_from", "_to"}

// userAttributes copies the attributes of body that are not managed by the server
func userAttributes(body map[string]any) document {
	doc := document{}
	for k, v := range body {
		doc[k] = v
	}
	for _, name := range systemAttributes {
		delete(doc, name)
	}
	return doc
}

func errDocumentNotFound() *apiError {
	return newError(http.StatusNotFound, errors.ErrorArangoDocumentNotFound, "document not found")
}

func errRevisionConflict() *apiError {
	return newError(http.StatusPreconditionFailed, errors.ErrorArangoConflict, "conflict, _rev values do not match")
}

func checkRevision(existing document, body map[string]any, o writeOptions) error {
	if o.ifMatch != "" && o.ifMatch != existing.rev() {
		return errRevisionConflict()
	}
	if !o.ignoreRevs && body != nil {
		if rev, ok := body["_rev"].(string); ok && rev != "" && rev != existing.rev() {
			return errRevisionConflict()
		}
	}
	return nil
}

// edgeEnds validates _from and _to of an edge, falling back to fallback for missing values
func edgeEnds(body map[string]any, fallback document) (string, string, error) {
	from, _ := body["_from"].(string)
	to, _ := body["_to"].(string)

	if fallback != nil {
		if from == "" {
			from, _ = fallback["_from"].(string)
		}
		if to == "" {
			to, _ = fallback["_to"].(string)
		}
	}

	for _, handle := range []string{from, to} {
		if _, _, err := arangodb.SplitDocumentID(handle); err != nil {
			return "", "", newError(http.StatusBadRequest, errors.ErrorArangoDocumentHandleBad, "edge attribute missing or invalid")
		}
	}

	return from, to, nil
}

// store completes doc with system attributes and saves it, previous is the document it
// replaces or nil
func (s *Server) store(c *collection, key string, doc, previous document, body map[string]any) (document, error) {
	doc["_key"] = key
	doc["_id"] = arangodb.DocumentID(c.name, key)

	if c.isEdge() {
		from, to, err := edgeEnds(body, previous)
		if err != nil {
			return nil, err
		}
		doc["_from"] = from
		doc["_to"] = to
	}

	if err := c.checkUnique(doc); err != nil {
		return nil, err
	}

	doc["_rev"] = s.nextRev()
	c.put(doc)

	return doc, nil
}

func writeResultBody(stored, previous document, o writeOptions) map[string]any {
	result := stored.meta()
	if previous != nil {
		result["_oldRev"] = previous.rev()
	}
	if o.returnNew && stored != nil {
		result["new"] = stored.clone()
	}
	if o.returnOld && previous != nil {
		result["old"] = previous.clone()
	}
	return result
}

// insert stores a new document or resolves a key conflict according to the overwrite mode.
// Callers hold s.mu.
func (s *Server) insert(c *collection, body map[string]any, o writeOptions) (map[string]any, writeOutcome, error) {
	key := ""
	if raw, ok := body["_key"]; ok {
		k, isString := raw.(string)
		if !isString || !validKey.MatchString(k) {
			return nil, outcomeCreated, newError(http.StatusBadRequest, errors.ErrorArangoDocumentKeyBad, "illegal document key")
		}
		key = k
	}

	existing, exists := c.documents[key]
	if key != "" && !exists && !c.keyOptions.AllowUserKeys {
		return nil, outcomeCreated, newError(http.StatusBadRequest, errors.ErrorArangoDocumentKeyUnexpected, "must not specify _key for this collection")
	}

	if exists {
		switch o.overwriteMode {
		case arangodb.OverwriteModeIgnore:
			return existing.meta(), outcomeIgnored, nil
		case arangodb.OverwriteModeReplace:
			stored, err := s.store(c, key, userAttributes(body), existing, body)
			if err != nil {
				return nil, outcomeUpdated, err
			}
			return writeResultBody(stored, existing, o), outcomeUpdated, nil
		case arangodb.OverwriteModeUpdate:
			patched := merge(existing, userAttributes(body), o.keepNull, o.mergeObjects)
			stored, err := s.store(c, key, userAttributes(patched), existing, body)
			if err != nil {
				return nil, outcomeUpdated, err
			}
			return writeResultBody(stored, existing, o), outcomeUpdated, nil
		}

		return nil, outcomeCreated, newError(http.StatusConflict, errors.ErrorArangoUniqueConstraintViolated,
			"unique constraint violated - in index primary of type primary over '_key'; conflicting key: %s", key)
	}

	if key == "" {
		key = c.generateKey()
	}

	stored, err := s.store(c, key, userAttributes(body), nil, body)
	if err != nil {
		return nil, outcomeCreated, err
	}

	return writeResultBody(stored, nil, o), outcomeCreated, nil
}

// change replaces or patches an existing document. Callers hold s.mu.
func (s *Server) change(c *collection, key string, body map[string]any, o writeOptions, replace bool) (map[string]any, error) {
	existing, ok := c.documents[key]
	if !ok {
		return nil, errDocumentNotFound()
	}

	if err := checkRevision(existing, body, o); err != nil {
		return nil, err
	}

	doc := userAttributes(body)
	if !replace {
		doc = userAttributes(merge(existing, doc, o.keepNull, o.mergeObjects))
	}

	stored, err := s.store(c, key, doc, existing, body)
	if err != nil {
		return nil, err
	}

	return writeResultBody(stored, existing, o), nil
}

// remove deletes a document. Callers hold s.mu.
func (s *Server) remove(c *collection, key string, body map[string]any, o writeOptions) (map[string]any, error) {
	existing, ok := c.documents[key]
	if !ok {
		return nil, errDocumentNotFound()
	}

	if err := checkRevision(existing, body, o); err != nil {
		return nil, err
	}

	c.remove(key)
	c.revision = s.nextRev()

	result := existing.meta()
	if o.returnOld {
		result["old"] = existing.clone()
	}
	return result, nil
}

// selectorKey extracts the key from a multi document element, either a key, a handle or an
// object with _key or _id
func selectorKey(c *collection, element any) (string, map[string]any, error) {
	invalid := newError(http.StatusBadRequest, errors.ErrorArangoDocumentHandleBad, "invalid document handle")

	switch v := element.(type) {
	case string:
		if strings.Contains(v, "/") {
			if !c.isDocumentHandle(v) {
				return "", nil, newError(http.StatusBadRequest, errors.ErrorArangoCrossCollectionRequest, "cross collection request")
			}
			_, key, _ := arangodb.SplitDocumentID(v)
			return key, nil, nil
		}
		if v == "" {
			return "", nil, invalid
		}
		return v, nil, nil
	}

	body, ok := asObject(element)
	if !ok {
		return "", nil, newError(http.StatusBadRequest, errors.ErrorArangoDocumentTypeInvalid, "invalid document type")
	}

	if key, ok := body["_key"].(string); ok && key != "" {
		return key, body, nil
	}
	if id, ok := body["_id"].(string); ok && c.isDocumentHandle(id) {
		_, key, _ := arangodb.SplitDocumentID(id)
		return key, body, nil
	}

	return "", nil, invalid
}

// writeElements answers a multi document operation, silent operations only report errors
func writeElements(w http.ResponseWriter, r *http.Request, status int, results []any, silent bool) {
	if silent {
		errs := []any{}
		for _, result := range results {
			if _, ok := result.(errorBody); ok {
				errs = append(errs, result)
			}
		}
		results = errs
	}
	write(w, r, status, results)
}

func elementError(err error) any {
	if ae, ok := err.(*apiError); ok {
		return ae.body()
	}
	return newError(http.StatusInternalServerError, errors.ErrorFailed, "%s", err.Error()).body()
}

func (s *Server) documentCollection(r *http.Request) (*collection, error) {
	if err := s.checkTransaction(r); err != nil {
		return nil, err
	}
	_, c, err := s.lookupCollection(r)
	return c, err
}

func (s *Server) insertDocuments(w http.ResponseWriter, r *http.Request) {
	var body any
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	o := parseWriteOptions(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.documentCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if elements, ok := body.([]any); ok {
		results := make([]any, 0, len(elements))
		for _, element := range elements {
			doc, ok := asObject(element)
			if !ok {
				results = append(results, elementError(newError(http.StatusBadRequest, errors.ErrorArangoDocumentTypeInvalid, "invalid document type")))
				continue
			}
			result, _, err := s.insert(c, doc, o)
			if err != nil {
				results = append(results, elementError(err))
				continue
			}
			results = append(results, result)
		}
		writeElements(w, r, o.status(c), results, o.silent)
		return
	}

	doc, ok := asObject(body)
	if !ok {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorArangoDocumentTypeInvalid, "invalid document type"))
		return
	}

	result, _, err := s.insert(c, doc, o)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if o.silent {
		result = map[string]any{}
	}

	write(w, r, o.status(c), result)
}

func (s *Server) changeDocuments(w http.ResponseWriter, r *http.Request, replace bool) {
	elements := []any{}
	if err := decode(r, &elements); err != nil {
		writeError(w, r, err)
		return
	}

	o := parseWriteOptions(r)
	o.ifMatch = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.documentCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results := make([]any, 0, len(elements))
	for _, element := range elements {
		key, body, err := selectorKey(c, element)
		if err == nil && body == nil {
			err = newError(http.StatusBadRequest, errors.ErrorArangoDocumentTypeInvalid, "invalid document type")
		}
		if err != nil {
			results = append(results, elementError(err))
			continue
		}

		result, err := s.change(c, key, body, o, replace)
		if err != nil {
			results = append(results, elementError(err))
			continue
		}
		results = append(results, result)
	}

	writeElements(w, r, o.status(c), results, o.silent)
}

// putDocuments replaces several documents, or reads them when onlyget is set
func (s *Server) putDocuments(w http.ResponseWriter, r *http.Request) {
	if queryBool(r, "onlyget", false) {
		s.readDocuments(w, r)
		return
	}
	s.changeDocuments(w, r, true)
}

func (s *Server) updateDocuments(w http.ResponseWriter, r *http.Request) {
	s.changeDocuments(w, r, false)
}

func (s *Server) readDocuments(w http.ResponseWriter, r *http.Request) {
	selectors := []any{}
	if err := decode(r, &selectors); err != nil {
		writeError(w, r, err)
		return
	}

	o := parseWriteOptions(r)
	o.ifMatch = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.documentCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results := make([]any, 0, len(selectors))
	for _, selector := range selectors {
		key, body, err := selectorKey(c, selector)
		if err != nil {
			results = append(results, elementError(err))
			continue
		}

		doc, ok := c.documents[key]
		if !ok {
			results = append(results, elementError(errDocumentNotFound()))
			continue
		}

		if err := checkRevision(doc, body, o); err != nil {
			results = append(results, elementError(err))
			continue
		}

		results = append(results, doc.clone())
	}

	write(w, r, http.StatusOK, results)
}

func (s *Server) deleteDocuments(w http.ResponseWriter, r *http.Request) {
	selectors := []any{}
	if err := decode(r, &selectors); err != nil {
		writeError(w, r, err)
		return
	}

	o := parseWriteOptions(r)
	o.ifMatch = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.documentCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if o.waitForSync || c.properties.WaitForSync {
		status = http.StatusOK
	}

	results := make([]any, 0, len(selectors))
	for _, selector := range selectors {
		key, body, err := selectorKey(c, selector)
		if err != nil {
			results = append(results, elementError(err))
			continue
		}

		result, err := s.remove(c, key, body, o)
		if err != nil {
			results = append(results, elementError(err))
			continue
		}
		results = append(results, result)
	}

	writeElements(w, r, status, results, o.silent)
}

// readDocument answers GET and HEAD for a single document and honours If-Match and
// If-None-Match
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.documentCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, ok := c.documents[param(r, "key")]
	if !ok {
		writeError(w, r, errDocumentNotFound())
		return
	}

	if !preconditions(w, r, doc) {
		return
	}

	write(w, r, http.StatusOK, doc)
}

// preconditions evaluates If-None-Match and If-Match of a read against doc and sets the Etag
// header. It reports false when the response has already been written.
func preconditions(w http.ResponseWriter, r *http.Request, doc document) bool {
	etag := `"` + doc.rev() + `"`

	if ifNoneMatch := strings.Trim(r.Header.Get(arangodb.HeaderIfNoneMatch), `"`); ifNoneMatch != "" && ifNoneMatch == doc.rev() {
		w.Header().Set("Etag", etag)
		w.WriteHeader(http.StatusNotModified)
		return false
	}

	if ifMatch := strings.Trim(r.Header.Get(arangodb.HeaderIfMatch), `"`); ifMatch != "" && ifMatch != doc.rev() {
		writeError(w, r, errRevisionConflict())
		return false
	}

	w.Header().Set("Etag", etag)
	return true
}

func (s *Server) changeDocument(w http.ResponseWriter, r *http.Request, replace bool) {
	body := map[string]any{}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	o := parseWriteOptions(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.documentCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.change(c, param(r, "key"), body, o, replace)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if o.silent {
		result = map[string]any{}
	}

	write(w, r, o.status(c), result)
}

func (s *Server) replaceDocument(w http.ResponseWriter, r *http.Request) {
	s.changeDocument(w, r, true)
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	s.changeDocument(w, r, false)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	o := parseWriteOptions(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.documentCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.remove(c, param(r, "key"), nil, o)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if o.silent {
		result = map[string]any{}
	}

	status := http.StatusAccepted
	if o.waitForSync || c.properties.WaitForSync {
		status = http.StatusOK
	}

	write(w, r, status, result)
}
