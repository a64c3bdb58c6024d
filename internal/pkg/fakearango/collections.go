package fakearango

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

// lookupCollection returns the database and collection addressed by the request. Callers hold
// s.mu.
func (s *Server) lookupCollection(r *http.Request) (*database, *collection, error) {
	db, err := s.database(r)
	if err != nil {
		return nil, nil, err
	}

	c, err := db.collection(param(r, "collection"))
	if err != nil {
		return nil, nil, err
	}

	return db, c, nil
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	excludeSystem := queryBool(r, "excludeSystem", false)

	result := []arangodb.CollectionEntity{}
	for _, c := range db.collections {
		if excludeSystem && c.properties.IsSystem {
			continue
		}
		result = append(result, c.entity())
	}
	slices.SortFunc(result, func(a, b arangodb.CollectionEntity) int {
		return strings.Compare(a.Name, b.Name)
	})

	writeResult(w, r, http.StatusOK, result)
}

type collectionCreateRequest struct {
	arangodb.CollectionCreateOptions
	Name string `json:"name"`
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	request := collectionCreateRequest{}
	if err := decode(r, &request); err != nil {
		writeError(w, r, err)
		return
	}

	if !validName.MatchString(request.Name) {
		writeError(w, r, newError(http.StatusBadRequest, errors.ErrorArangoIllegalName, "illegal name"))
		return
	}

	if request.Type != 0 && request.Type != arangodb.CollectionTypeDocument && request.Type != arangodb.CollectionTypeEdge {
		writeError(w, r, badParameter("invalid collection type %d", request.Type))
		return
	}

	if request.KeyOptions != nil {
		switch request.KeyOptions.Type {
		case "", arangodb.KeyTypeTraditional, arangodb.KeyTypeAutoIncrement, arangodb.KeyTypeUUID, arangodb.KeyTypePadded:
		default:
			writeError(w, r, badParameter("invalid key generator type %q", request.KeyOptions.Type))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.database(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, exists := db.collections[request.Name]; exists {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoDuplicateName, "duplicate name"))
		return
	}

	if _, exists := db.views[request.Name]; exists {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoDuplicateName, "duplicate name"))
		return
	}

	c := newCollection(s.nextID(), request.Name, request.CollectionCreateOptions)
	db.collections[request.Name] = c

	write(w, r, http.StatusOK, c.propertiesEntity())
}

func (s *Server) collectionInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, c.entity())
}

func (s *Server) dropCollection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if c.properties.IsSystem && !queryBool(r, "isSystem", false) {
		writeError(w, r, newError(http.StatusForbidden, errors.ErrorForbidden, "cannot drop system collection without isSystem"))
		return
	}

	delete(db.collections, c.name)

	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "id": c.id})
}

func (s *Server) collectionProperties(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, c.propertiesEntity())
}

func (s *Server) changeCollectionProperties(w http.ResponseWriter, r *http.Request) {
	options := arangodb.CollectionPropertiesOptions{}
	if err := decode(r, &options); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if options.WaitForSync != nil {
		c.properties.WaitForSync = *options.WaitForSync
	}
	if options.CacheEnabled != nil {
		c.properties.CacheEnabled = *options.CacheEnabled
	}
	if options.Schema != nil {
		c.properties.Schema = options.Schema
	}
	if options.ComputedValues != nil {
		c.properties.ComputedValues = options.ComputedValues
	}
	if options.ReplicationFactor != 0 {
		c.properties.ReplicationFactor = options.ReplicationFactor
	}
	if options.WriteConcern != 0 {
		c.properties.WriteConcern = options.WriteConcern
	}

	write(w, r, http.StatusOK, c.propertiesEntity())
}

func (s *Server) collectionCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransaction(r); err != nil {
		writeError(w, r, err)
		return
	}

	_, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, arangodb.CollectionCountEntity{CollectionEntity: c.entity(), Count: int64(len(c.documents))})
}

func (s *Server) collectionRevision(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, arangodb.CollectionRevisionEntity{CollectionEntity: c.entity(), Revision: c.revision})
}

func (s *Server) truncateCollection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransaction(r); err != nil {
		writeError(w, r, err)
		return
	}

	_, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c.truncate()
	c.revision = s.nextRev()

	write(w, r, http.StatusOK, c.entity())
}

func (s *Server) setCollectionStatus(w http.ResponseWriter, r *http.Request, status arangodb.CollectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c.properties.Status = status

	write(w, r, http.StatusOK, c.entity())
}

func (s *Server) loadCollection(w http.ResponseWriter, r *http.Request) {
	s.setCollectionStatus(w, r, arangodb.CollectionStatusLoaded)
}

func (s *Server) unloadCollection(w http.ResponseWriter, r *http.Request) {
	s.setCollectionStatus(w, r, arangodb.CollectionStatusUnloaded)
}

func (s *Server) renameCollection(w http.ResponseWriter, r *http.Request) {
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

	db, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, exists := db.collections[request.Name]; exists {
		writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoDuplicateName, "duplicate name"))
		return
	}

	delete(db.collections, c.name)
	c.name = request.Name
	c.properties.Name = request.Name
	db.collections[c.name] = c

	for _, d := range c.documents {
		d["_id"] = c.name + "/" + d.key()
	}

	write(w, r, http.StatusOK, c.entity())
}

// responsibleShard hashes the shard keys of the document, the fake has a single shard per
// collection but still validates that the shard keys are present
func (s *Server) responsibleShard(w http.ResponseWriter, r *http.Request) {
	doc := document{}
	if err := decode(r, &doc); err != nil {
		writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, c, err := s.lookupCollection(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	values, complete := fieldValues(doc, c.properties.ShardKeys)
	if !complete {
		writeError(w, r, badParameter("shard key values missing"))
		return
	}

	h := fnv.New32a()
	for _, v := range values {
		h.Write([]byte(fmt.Sprint(v)))
	}
	shards := uint32(max(c.properties.NumberOfShards, 1))

	write(w, r, http.StatusOK, arangodb.ShardEntity{ShardID: "s" + c.id + strconv.FormatUint(uint64(h.Sum32()%shards), 10)})
}
