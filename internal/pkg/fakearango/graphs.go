package fakearango

import (
	"net/http"
	"slices"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

func errGraphNotFound(name string) *apiError {
	return newError(http.StatusNotFound, errors.ErrorGraphNotFound, "graph '%s' not found", name)
}

// lookupGraph returns the graph addressed by the request. Callers hold s.mu.
func (s *Server) lookupGraph(r *http.Request) (*database, *arangodb.GraphEntity, error) {
	db, err := s.database(r)
	if err != nil {
		return nil, nil, err
	}

	name := param(r, "graph")
	g, ok := db.graphs[name]
	if !ok {
		return nil, nil, errGraphNotFound(name)
	}

	return db, g, nil
}

func graphStatus(r *http.Request) int {
	if queryBool(r, "waitForSync", false) {
		return http.StatusCreated
	}
	return http.StatusAccepted
}

func writeGraph(w http.ResponseWriter, r *http.Request, status int, g *arangodb.GraphEntity) {
	write(w, r, status, map[string]any{"error": false, "code": status, "graph": g})
}

// ensureGraphCollection creates a missing collection used by a graph or checks the type of
// an existing one. Callers hold s.mu.
func (s *Server) ensureGraphCollection(db *database, name string, t arangodb.CollectionType) error {
	if !validName.MatchString(name) {
		return newError(http.StatusBadRequest, errors.ErrorArangoIllegalName, "illegal name %q", name)
	}

	if c, ok := db.collections[name]; ok {
		if c.properties.Type != t {
			if t == arangodb.CollectionTypeEdge {
				return newError(http.StatusBadRequest, errors.ErrorGraphEdgeColDoesNotExist, "collection '%s' is not an edge collection", name)
			}
			return newError(http.StatusBadRequest, errors.ErrorGraphWrongCollectionTypeVertex, "collection '%s' is not a document collection", name)
		}
		return nil
	}

	db.collections[name] = newCollection(s.nextID(), name, arangodb.CollectionCreateOptions{Type: t})
	return nil
}

func (s *Server) ensureEdgeDefinition(db *database, ed arangodb.EdgeDefinition) error {
	if ed.Collection == "" || len(ed.From) == 0 || len(ed.To) == 0 {
		return newError(http.StatusBadRequest, errors.ErrorGraphInvalidGraph, "invalid edge definition for '%s'", ed.Collection)
	}

	if err := s.ensureGraphCollection(db, ed.Collection, arangodb.CollectionTypeEdge); err != nil {
		return err
	}

	for _, name := range slices.Concat(ed.From, ed.To) {
		if err := s.ensureGraphCollection(db, name, arangodb.CollectionTypeDocument); err != nil {
			return err
		}
	}

	return nil
}

func edgeDefinitionIndex(g *arangodb.GraphEntity, collection string) int {
	return slices.IndexFunc(g.EdgeDefinitions, func(ed arangodb.EdgeDefinition) bool {
		return ed.Collection == collection
	})
}

// usedInEdgeDefinitions reports whether name is a vertex collection of any edge definition
func usedInEdgeDefinitions(g *arangodb.GraphEntity, name string) bool {
	for _, ed := range g.EdgeDefinitions {
		if slices.Contains(ed.From, name) || slices.Contains(ed.To, name) {
			return true
		}
	}
	return false
}

// reconcileOrphans moves vertex collections no longer used by an edge definition into the
// orphans and removes orphans that an edge definition now uses
func reconcileOrphans(g *arangodb.GraphEntity, previous []string) {
	orphans := []string{}
	for _, name := range g.OrphanCollections {
		if !usedInEdgeDefinitions(g, name) {
			orphans = append(orphans, name)
		}
	}

	for _, name := range previous {
		if !usedInEdgeDefinitions(g, name) && !slices.Contains(orphans, name) {
			orphans = append(orphans, name)
		}
	}

	g.OrphanCollections = orphans
}

// dropUnused removes collections that no graph other than except refers to
func (db *database) dropUnused(except string, names ...string) {
	for _, name := range names {
		used := false
		for graphName, g := range db.graphs {
			if graphName == except {
				continue
			}
			if edgeDefinitionIndex(g, name) >= 0 || slices.Contains(g.VertexCollections(), name) {
				used = true
				break
			}
		}
		if !used {
			delete(db.collections, name)
		}
	}
}

func (s *Server) touchGraph(g *arangodb.GraphEntity) {
	g.Rev = s.nextRev()
}

func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	graphs := []arangodb.GraphEntity{}
	for _, g := range db.graphs {
		graphs = append(graphs, *g)
	}
	slices.SortFunc(graphs, func(a, b arangodb.GraphEntity) int {
		return strings.Compare(a.Name, b.Name)
	})

	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "graphs": graphs})
}

func (s *Server) createGraph(w http.ResponseWriter, r *http.Request) {
	request := arangodb.GraphCreateRequest{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	if !validName.MatchString(request.Name) {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorGraphInvalidGraph, "invalid graph name"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, exists := db.graphs[request.Name]; exists {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorGraphDuplicate, "graph '%s' already exists", request.Name))
		return
	}

	seen := map[string]bool{}
	for _, ed := range request.EdgeDefinitions {
		if seen[ed.Collection] {
			writeError(w, r, newError(http.StatusBadRequest, errors.ErrorGraphCollectionMultiUse, "collection '%s' is used in multiple edge definitions", ed.Collection))
			return
		}
		seen[ed.Collection] = true
	}

	for _, ed := range request.EdgeDefinitions {
		if err := s.ensureEdgeDefinition(db, ed); err != nil {
			writeError(w, r, err)
			return
		}
	}

	for _, name := range request.OrphanCollections {
		if err := s.ensureGraphCollection(db, name, arangodb.CollectionTypeDocument); err != nil {
			writeError(w, r, err)
			return
		}
	}

	g := &arangodb.GraphEntity{
		Name:              request.Name,
		Key:               request.Name,
		ID:                "_graphs/" + request.Name,
		EdgeDefinitions:   request.EdgeDefinitions,
		OrphanCollections: request.OrphanCollections,
		IsSmart:           request.IsSmart,
		IsDisjoint:        request.IsDisjoint,
		NumberOfShards:    1,
		ReplicationFactor: 1,
		WriteConcern:      1,
	}
	if g.OrphanCollections == nil {
		g.OrphanCollections = []string{}
	}
	if request.Options != nil {
		g.SmartGraphAttribute = request.Options.SmartGraphAttribute
	}
	reconcileOrphans(g, nil)
	s.touchGraph(g)

	db.graphs[g.Name] = g

	writeGraph(w, r, graphStatus(r), g)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeGraph(w, r, http.StatusOK, g)
}

func (s *Server) dropGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	delete(db.graphs, g.Name)

	if queryBool(r, "dropCollections", false) {
		names := g.VertexCollections()
		for _, ed := range g.EdgeDefinitions {
			names = append(names, ed.Collection)
		}
		db.dropUnused(g.Name, names...)
	}

	status := graphStatus(r)
	write(w, r, status, map[string]any{"error": false, "code": status, "removed": true})
}

func (s *Server) graphVertexCollections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	names := g.VertexCollections()
	slices.Sort(names)

	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "collections": names})
}

func (s *Server) addVertexCollection(w http.ResponseWriter, r *http.Request) {
	request := struct {
		Collection string `json:"collection"`
	}{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if usedInEdgeDefinitions(g, request.Collection) {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorGraphCollectionUsedInEdgeDef, "collection '%s' is already used in an edge definition", request.Collection))
		return
	}

	if slices.Contains(g.OrphanCollections, request.Collection) {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoDuplicateName, "collection '%s' is already an orphan of the graph", request.Collection))
		return
	}

	if err := s.ensureGraphCollection(db, request.Collection, arangodb.CollectionTypeDocument); err != nil {
		writeError(w, r, err)
		return
	}

	g.OrphanCollections = append(g.OrphanCollections, request.Collection)
	s.touchGraph(g)

	writeGraph(w, r, graphStatus(r), g)
}

func (s *Server) removeVertexCollection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := param(r, "collection")

	i := slices.Index(g.OrphanCollections, name)
	if i < 0 {
		if usedInEdgeDefinitions(g, name) {
			writeError(w, r, newError(http.StatusBadRequest, errors.ErrorGraphNotInOrphanCollection, "collection '%s' is not an orphan of the graph", name))
			return
		}
		writeError(w, r, newError(http.StatusNotFound, errors.ErrorGraphVertexColDoesNotExist, "vertex collection '%s' is not part of the graph", name))
		return
	}

	g.OrphanCollections = slices.Delete(g.OrphanCollections, i, i+1)
	s.touchGraph(g)

	if queryBool(r, "dropCollection", false) {
		db.dropUnused(g.Name, name)
	}

	writeGraph(w, r, graphStatus(r), g)
}

func (s *Server) graphEdgeDefinitions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	names := []string{}
	for _, ed := range g.EdgeDefinitions {
		names = append(names, ed.Collection)
	}
	slices.Sort(names)

	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "collections": names})
}

func (s *Server) addEdgeDefinition(w http.ResponseWriter, r *http.Request) {
	ed := arangodb.EdgeDefinition{}
	if err := decode(r, &ed); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if edgeDefinitionIndex(g, ed.Collection) >= 0 {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorGraphCollectionMultiUse, "collection '%s' is used in multiple edge definitions", ed.Collection))
		return
	}

	if err := s.ensureEdgeDefinition(db, ed); err != nil {
		writeError(w, r, err)
		return
	}

	g.EdgeDefinitions = append(g.EdgeDefinitions, ed)
	reconcileOrphans(g, nil)
	s.touchGraph(g)

	writeGraph(w, r, graphStatus(r), g)
}

func (s *Server) replaceEdgeDefinition(w http.ResponseWriter, r *http.Request) {
	ed := arangodb.EdgeDefinition{}
	if err := decode(r, &ed); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := param(r, "collection")
	if ed.Collection != name {
		writeError(w, r, badParameter("edge definition collection '%s' does not match '%s'", ed.Collection, name))
		return
	}

	i := edgeDefinitionIndex(g, name)
	if i < 0 {
		writeError(w, r, newError(http.StatusNotFound, errors.ErrorGraphEdgeColDoesNotExist, "edge collection '%s' is not part of the graph", name))
		return
	}

	if err := s.ensureEdgeDefinition(db, ed); err != nil {
		writeError(w, r, err)
		return
	}

	previous := slices.Concat(g.EdgeDefinitions[i].From, g.EdgeDefinitions[i].To)
	g.EdgeDefinitions[i] = ed
	reconcileOrphans(g, previous)
	s.touchGraph(g)

	writeGraph(w, r, graphStatus(r), g)
}

func (s *Server) removeEdgeDefinition(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, g, err := s.lookupGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := param(r, "collection")

	i := edgeDefinitionIndex(g, name)
	if i < 0 {
		writeError(w, r, newError(http.StatusNotFound, errors.ErrorGraphEdgeColDoesNotExist, "edge collection '%s' is not part of the graph", name))
		return
	}

	previous := slices.Concat(g.EdgeDefinitions[i].From, g.EdgeDefinitions[i].To)
	g.EdgeDefinitions = slices.Delete(g.EdgeDefinitions, i, i+1)
	reconcileOrphans(g, previous)
	s.touchGraph(g)

	if queryBool(r, "dropCollections", false) {
		db.dropUnused(g.Name, name)
	}

	writeGraph(w, r, graphStatus(r), g)
}

// graphCollection returns the collection of a vertex or edge request after checking that the
// graph uses it as kind. Callers hold s.mu.
func (s *Server) graphCollection(r *http.Request, kind string) (*collection, *arangodb.GraphEntity, error) {
	if err := s.checkTransaction(r); err != nil {
		return nil, nil, err
	}

	db, g, err := s.lookupGraph(r)
	if err != nil {
		return nil, nil, err
	}

	name := param(r, "collection")
	if kind == "edge" {
		if edgeDefinitionIndex(g, name) < 0 {
			return nil, nil, newError(http.StatusNotFound, errors.ErrorGraphEdgeColDoesNotExist, "edge collection '%s' is not part of the graph", name)
		}
	} else if !slices.Contains(g.VertexCollections(), name) {
		return nil, nil, newError(http.StatusNotFound, errors.ErrorGraphVertexColDoesNotExist, "vertex collection '%s' is not part of the graph", name)
	}

	c, err := db.collection(name)
	if err != nil {
		return nil, nil, err
	}

	return c, g, nil
}

// checkEdge verifies that the ends of an edge are vertices the edge definition connects
func (s *Server) checkEdge(r *http.Request, c *collection, g *arangodb.GraphEntity, body map[string]any, existing document) error {
	from, to, err := edgeEnds(body, existing)
	if err != nil {
		return err
	}

	ed := g.EdgeDefinitions[edgeDefinitionIndex(g, c.name)]

	db, err := s.database(r)
	if err != nil {
		return err
	}

	for _, end := range []struct {
		handle  string
		allowed []string
	}{{from, ed.From}, {to, ed.To}} {
		name, key, _ := arangodb.SplitDocumentID(end.handle)
		if !slices.Contains(end.allowed, name) {
			return newError(http.StatusBadRequest, errors.ErrorGraphInvalidEdge, "edge '%s' is not allowed in edge collection '%s'", end.handle, c.name)
		}

		vertices, err := db.collection(name)
		if err != nil {
			return err
		}
		if _, ok := vertices.documents[key]; !ok {
			return newError(http.StatusNotFound, errors.ErrorArangoDocumentNotFound, "referenced vertex '%s' not found", end.handle)
		}
	}

	return nil
}

// graphWriteBody moves the new and old documents of a write result next to the meta data
// held in the attribute named kind
func graphWriteBody(kind string, status int, result map[string]any) map[string]any {
	body := map[string]any{"error": false, "code": status}
	for _, attr := range []string{"new", "old"} {
		if v, ok := result[attr]; ok {
			body[attr] = v
			delete(result, attr)
		}
	}
	body[kind] = result
	return body
}

func (s *Server) insertGraphDocument(w http.ResponseWriter, r *http.Request, kind string) {
	body := map[string]any{}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	o := parseWriteOptions(r)
	o.overwriteMode = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	c, g, err := s.graphCollection(r, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if kind == "edge" {
		if err := s.checkEdge(r, c, g, body, nil); err != nil {
			writeError(w, r, err)
			return
		}
	}

	result, _, err := s.insert(c, body, o)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := o.status(c)
	write(w, r, status, graphWriteBody(kind, status, result))
}

func (s *Server) readGraphDocument(w http.ResponseWriter, r *http.Request, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, _, err := s.graphCollection(r, kind)
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

	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, kind: doc})
}

func (s *Server) changeGraphDocument(w http.ResponseWriter, r *http.Request, kind string, replace bool) {
	body := map[string]any{}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	o := parseWriteOptions(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, g, err := s.graphCollection(r, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := param(r, "key")
	existing, ok := c.documents[key]
	if !ok {
		writeError(w, r, errDocumentNotFound())
		return
	}

	if kind == "edge" {
		if err := s.checkEdge(r, c, g, body, existing); err != nil {
			writeError(w, r, err)
			return
		}
	}

	result, err := s.change(c, key, body, o, replace)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if o.waitForSync || c.properties.WaitForSync {
		status = http.StatusOK
	}
	write(w, r, status, graphWriteBody(kind, status, result))
}

// deleteGraphDocument removes a vertex or an edge. Removing a vertex also removes the edges
// of the graph connected to it.
func (s *Server) deleteGraphDocument(w http.ResponseWriter, r *http.Request, kind string) {
	o := parseWriteOptions(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, g, err := s.graphCollection(r, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := param(r, "key")
	result, err := s.remove(c, key, nil, o)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if kind == "vertex" {
		db, _ := s.database(r)
		s.removeConnectedEdges(db, g, c.name+"/"+key)
	}

	status := http.StatusAccepted
	if o.waitForSync || c.properties.WaitForSync {
		status = http.StatusOK
	}

	body := map[string]any{"error": false, "code": status, "removed": true}
	if old, ok := result["old"]; ok {
		body["old"] = old
	}
	write(w, r, status, body)
}

func (s *Server) removeConnectedEdges(db *database, g *arangodb.GraphEntity, handle string) {
	for _, ed := range g.EdgeDefinitions {
		edges, ok := db.collections[ed.Collection]
		if !ok {
			continue
		}

		removed := false
		for _, edge := range edges.all() {
			if edge["_from"] == handle || edge["_to"] == handle {
				edges.remove(edge.key())
				removed = true
			}
		}
		if removed {
			edges.revision = s.nextRev()
		}
	}
}

func (s *Server) insertVertex(w http.ResponseWriter, r *http.Request) {
	s.insertGraphDocument(w, r, "vertex")
}

func (s *Server) readVertex(w http.ResponseWriter, r *http.Request) {
	s.readGraphDocument(w, r, "vertex")
}

func (s *Server) replaceVertex(w http.ResponseWriter, r *http.Request) {
	s.changeGraphDocument(w, r, "vertex", true)
}

func (s *Server) updateVertex(w http.ResponseWriter, r *http.Request) {
	s.changeGraphDocument(w, r, "vertex", false)
}

func (s *Server) deleteVertex(w http.ResponseWriter, r *http.Request) {
	s.deleteGraphDocument(w, r, "vertex")
}

func (s *Server) insertEdge(w http.ResponseWriter, r *http.Request) {
	s.insertGraphDocument(w, r, "edge")
}

func (s *Server) readEdge(w http.ResponseWriter, r *http.Request) {
	s.readGraphDocument(w, r, "edge")
}

func (s *Server) replaceEdge(w http.ResponseWriter, r *http.Request) {
	s.changeGraphDocument(w, r, "edge", true)
}

func (s *Server) updateEdge(w http.ResponseWriter, r *http.Request) {
	s.changeGraphDocument(w, r, "edge", false)
}

func (s *Server) deleteEdge(w http.ResponseWriter, r *http.Request) {
	s.deleteGraphDocument(w, r, "edge")
}
