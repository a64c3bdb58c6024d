package fakearango

import (
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

// builtinAnalyzers are present in every database and can not be removed
var builtinAnalyzers = []arangodb.SearchAnalyzer{
	{Name: "identity", Type: arangodb.AnalyzerTypeIdentity, Features: []arangodb.AnalyzerFeature{arangodb.AnalyzerFeatureFrequency, arangodb.AnalyzerFeatureNorm}},
	{Name: "text_en", Type: arangodb.AnalyzerTypeText, Properties: map[string]any{"locale": "en", "case": "lower", "stemming": true}, Features: []arangodb.AnalyzerFeature{arangodb.AnalyzerFeatureFrequency, arangodb.AnalyzerFeatureNorm, arangodb.AnalyzerFeaturePosition}},
	{Name: "text_sv", Type: arangodb.AnalyzerTypeText, Properties: map[string]any{"locale": "sv", "case": "lower", "stemming": true}, Features: []arangodb.AnalyzerFeature{arangodb.AnalyzerFeatureFrequency, arangodb.AnalyzerFeatureNorm, arangodb.AnalyzerFeaturePosition}},
}

func isBuiltinAnalyzer(name string) bool {
	return slices.ContainsFunc(builtinAnalyzers, func(a arangodb.SearchAnalyzer) bool { return a.Name == name })
}

func errViewNotFound(name string) *apiError {
	return newError(http.StatusNotFound, errors.ErrorArangoDataSourceNotFound, "collection or view not found: %s", name)
}

// lookupView returns the view addressed by the request. Callers hold s.mu.
func (s *Server) lookupView(r *http.Request) (*database, *arangodb.ArangoSearchPropertiesEntity, error) {
	db, err := s.database(r)
	if err != nil {
		return nil, nil, err
	}

	name := param(r, "view")
	v, ok := db.views[name]
	if !ok {
		return nil, nil, errViewNotFound(name)
	}

	return db, v, nil
}

// checkLinks verifies that linked collections and the analyzers they use exist
func checkLinks(db *database, links map[string]arangodb.ArangoSearchLink) error {
	for name, link := range links {
		if _, err := db.collection(name); err != nil {
			return err
		}
		if err := checkLinkAnalyzers(db, link); err != nil {
			return err
		}
	}
	return nil
}

func checkLinkAnalyzers(db *database, link arangodb.ArangoSearchLink) error {
	for _, analyzer := range link.Analyzers {
		if _, ok := db.analyzers[analyzer]; !ok && !isBuiltinAnalyzer(analyzer) {
			return badParameter("analyzer '%s' not found", analyzer)
		}
	}
	for _, field := range link.Fields {
		if err := checkLinkAnalyzers(db, field); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) listViews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := []arangodb.ViewEntity{}
	for _, v := range db.views {
		views = append(views, v.ViewEntity)
	}
	slices.SortFunc(views, func(a, b arangodb.ViewEntity) int {
		return strings.Compare(a.Name, b.Name)
	})

	writeResult(w, r, http.StatusOK, views)
}

func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	request := arangodb.ViewCreateRequest{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	if !validName.MatchString(request.Name) {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorArangoIllegalName, "illegal name"))
		return
	}

	if request.Type != arangodb.ViewTypeArangoSearch {
		writeError(w, r, badParameter("invalid view type %q", request.Type))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	_, collectionExists := db.collections[request.Name]
	if _, exists := db.views[request.Name]; exists || collectionExists {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoDuplicateName, "duplicate name"))
		return
	}

	if err := checkLinks(db, request.Links); err != nil {
		writeError(w, r, err)
		return
	}

	id := s.nextID()
	o := request.ArangoSearchCreateOptions

	v := &arangodb.ArangoSearchPropertiesEntity{
		ViewEntity: arangodb.ViewEntity{
			ID:               id,
			Name:             request.Name,
			Type:             arangodb.ViewTypeArangoSearch,
			GloballyUniqueID: "h" + id,
		},
		WriteBufferIdle:        o.WriteBufferIdle,
		WriteBufferActive:      o.WriteBufferActive,
		WriteBufferSizeMax:     o.WriteBufferSizeMax,
		PrimarySort:            o.PrimarySort,
		PrimarySortCompression: o.PrimarySortCompression,
		StoredValues:           o.StoredValues,
	}
	replaceViewOptions(v, o.ArangoSearchPropertiesOptions)

	db.views[v.Name] = v

	write(w, r, http.StatusCreated, v)
}

// replaceViewOptions sets every mutable property of v, falling back to defaults for zero
// values
func replaceViewOptions(v *arangodb.ArangoSearchPropertiesEntity, o arangodb.ArangoSearchPropertiesOptions) {
	v.CleanupIntervalStep = cmpOr(o.CleanupIntervalStep, 2)
	v.ConsolidationIntervalMsec = cmpOr(o.ConsolidationIntervalMsec, 1000)
	v.CommitIntervalMsec = cmpOr(o.CommitIntervalMsec, 1000)
	v.ConsolidationPolicy = o.ConsolidationPolicy
	if v.ConsolidationPolicy == nil {
		v.ConsolidationPolicy = &arangodb.ConsolidationPolicy{Type: "tier", SegmentsMin: 1, SegmentsMax: 10, SegmentsBytesMax: 5368709120}
	}
	v.Links = maps.Clone(o.Links)
}

// updateViewOptions changes the properties of v that o sets
func updateViewOptions(v *arangodb.ArangoSearchPropertiesEntity, o arangodb.ArangoSearchPropertiesOptions) {
	v.CleanupIntervalStep = cmpOr(o.CleanupIntervalStep, v.CleanupIntervalStep)
	v.ConsolidationIntervalMsec = cmpOr(o.ConsolidationIntervalMsec, v.ConsolidationIntervalMsec)
	v.CommitIntervalMsec = cmpOr(o.CommitIntervalMsec, v.CommitIntervalMsec)
	if o.ConsolidationPolicy != nil {
		v.ConsolidationPolicy = o.ConsolidationPolicy
	}
	if len(o.Links) > 0 {
		if v.Links == nil {
			v.Links = map[string]arangodb.ArangoSearchLink{}
		}
		maps.Copy(v.Links, o.Links)
	}
}

func cmpOr(v, fallback int64) int64 {
	if v != 0 {
		return v
	}
	return fallback
}

func (s *Server) viewInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, v, err := s.lookupView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, v.ViewEntity)
}

func (s *Server) dropView(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, v, err := s.lookupView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	delete(db.views, v.Name)

	writeResult(w, r, http.StatusOK, true)
}

func (s *Server) renameView(w http.ResponseWriter, r *http.Request) {
	request := struct {
		Name string `json:"name"`
	}{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	if !validName.MatchString(request.Name) {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorArangoIllegalName, "illegal name"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, v, err := s.lookupView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	_, collectionExists := db.collections[request.Name]
	if _, exists := db.views[request.Name]; exists || collectionExists {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoDuplicateName, "duplicate name"))
		return
	}

	delete(db.views, v.Name)
	v.Name = request.Name
	db.views[v.Name] = v

	write(w, r, http.StatusOK, v.ViewEntity)
}

func (s *Server) viewProperties(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, v, err := s.lookupView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, v)
}

func (s *Server) changeViewProperties(w http.ResponseWriter, r *http.Request, replace bool) {
	options := arangodb.ArangoSearchPropertiesOptions{}
	if err := decode(r, &options); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, v, err := s.lookupView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := checkLinks(db, options.Links); err != nil {
		writeError(w, r, err)
		return
	}

	if replace {
		replaceViewOptions(v, options)
	} else {
		updateViewOptions(v, options)
	}

	write(w, r, http.StatusOK, v)
}

func (s *Server) replaceViewProperties(w http.ResponseWriter, r *http.Request) {
	s.changeViewProperties(w, r, true)
}

func (s *Server) updateViewProperties(w http.ResponseWriter, r *http.Request) {
	s.changeViewProperties(w, r, false)
}

func (s *Server) listAnalyzers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	analyzers := slices.Clone(builtinAnalyzers)
	for _, a := range db.analyzers {
		analyzers = append(analyzers, a)
	}
	slices.SortFunc(analyzers, func(a, b arangodb.SearchAnalyzer) int {
		return strings.Compare(a.Name, b.Name)
	})

	writeResult(w, r, http.StatusOK, analyzers)
}

func (s *Server) findAnalyzer(db *database, name string) (arangodb.SearchAnalyzer, error) {
	if a, ok := db.analyzers[name]; ok {
		return a, nil
	}
	for _, a := range builtinAnalyzers {
		if a.Name == name {
			return a, nil
		}
	}
	return arangodb.SearchAnalyzer{}, newError(http.StatusNotFound, errors.ErrorArangoDocumentNotFound, "analyzer '%s' not found", name)
}

// createAnalyzer answers 200 for an analyzer identical to an existing one and refuses
// definitions that differ
func (s *Server) createAnalyzer(w http.ResponseWriter, r *http.Request) {
	analyzer := arangodb.SearchAnalyzer{}
	if err := decode(r, &analyzer); err != nil {
		writeError(w, r, err)
		return
	}

	if !validName.MatchString(analyzer.Name) {
		writeError(w, r, badParameter("invalid analyzer name %q", analyzer.Name))
		return
	}

	switch analyzer.Type {
	case arangodb.AnalyzerTypeIdentity, arangodb.AnalyzerTypeDelimiter, arangodb.AnalyzerTypeStem,
		arangodb.AnalyzerTypeNorm, arangodb.AnalyzerTypeNgram, arangodb.AnalyzerTypeText:
	default:
		writeError(w, r, newError(http.StatusNotImplemented, errors.ErrorNotImplemented, "analyzer type %q is not supported", analyzer.Type))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if existing, err := s.findAnalyzer(db, analyzer.Name); err == nil {
		if reflect.DeepEqual(existing, analyzer) {
			write(w, r, http.StatusOK, existing)
			return
		}
		writeError(w, r, badParameter("analyzer '%s' already exists with a different definition", analyzer.Name))
		return
	}

	db.analyzers[analyzer.Name] = analyzer

	write(w, r, http.StatusCreated, analyzer)
}

func (s *Server) getAnalyzer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	analyzer, err := s.findAnalyzer(db, param(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, analyzer)
}

func usesAnalyzer(link arangodb.ArangoSearchLink, name string) bool {
	if slices.Contains(link.Analyzers, name) {
		return true
	}
	for _, field := range link.Fields {
		if usesAnalyzer(field, name) {
			return true
		}
	}
	return false
}

func (s *Server) deleteAnalyzer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := param(r, "name")
	if isBuiltinAnalyzer(name) {
		writeError(w, r, newError(http.StatusForbidden, errors.ErrorForbidden, "built-in analyzer '%s' can not be removed", name))
		return
	}

	if _, ok := db.analyzers[name]; !ok {
		writeError(w, r, newError(http.StatusNotFound, errors.ErrorArangoDocumentNotFound, "analyzer '%s' not found", name))
		return
	}

	if !queryBool(r, "force", false) {
		for _, v := range db.views {
			for _, link := range v.Links {
				if usesAnalyzer(link, name) {
					writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoConflict, "analyzer '%s' is in use by view '%s'", name, v.Name))
					return
				}
			}
		}
	}

	delete(db.analyzers, name)

	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "name": name})
}
