package fakearango

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
)

func (s *Server) indexCollection(r *http.Request, name string) (*collection, error) {
	db, err := s.database(r)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, newError(http.StatusBadRequest, errors.ErrorArangoCollectionParameterMissing, "collection parameter missing")
	}
	return db.collection(name)
}

func (s *Server) listIndexes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.indexCollection(r, r.URL.Query().Get("collection"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	write(w, r, http.StatusOK, map[string]any{
		"error":   false,
		"code":    http.StatusOK,
		"indexes": c.indexes,
	})
}

func sameIndex(index arangodb.IndexEntity, definition arangodb.IndexDefinition) bool {
	if index.Type != definition.Type || !slices.Equal(index.Fields, definition.Fields) {
		return false
	}
	if definition.Name != "" && definition.Name != index.Name {
		return false
	}
	flag := func(p *bool) bool { return p != nil && *p }
	return flag(index.Unique) == flag(definition.Unique) && flag(index.Sparse) == flag(definition.Sparse)
}

func (s *Server) ensureIndex(w http.ResponseWriter, r *http.Request) {
	definition := arangodb.IndexDefinition{}
	if err := decode(r, &definition); err != nil {
		writeError(w, r, err)
		return
	}

	switch definition.Type {
	case arangodb.IndexTypePersistent, arangodb.IndexTypeHash, arangodb.IndexTypeSkiplist, arangodb.IndexTypeGeo,
		arangodb.IndexTypeFulltext, arangodb.IndexTypeTTL, arangodb.IndexTypeZKD:
	default:
		writeError(w, r, badParameter("invalid index type %q", definition.Type))
		return
	}

	if len(definition.Fields) == 0 {
		writeError(w, r, badParameter("index needs at least one field"))
		return
	}

	if definition.Type == arangodb.IndexTypeTTL && (definition.ExpireAfter == nil || len(definition.Fields) != 1) {
		writeError(w, r, badParameter("ttl index needs a single field and expireAfter"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.indexCollection(r, r.URL.Query().Get("collection"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	for _, index := range c.indexes {
		if sameIndex(index, definition) {
			write(w, r, http.StatusOK, index)
			return
		}
		if definition.Name != "" && index.Name == definition.Name {
			writeError(w, r, newError(http.StatusConflict, errors.ErrorArangoDuplicateName, "duplicate value: index name %s", definition.Name))
			return
		}
	}

	id := strconv.Itoa(c.nextIndexID)
	c.nextIndexID++

	index := arangodb.IndexEntity{
		ID:              c.name + "/" + id,
		Name:            definition.Name,
		Type:            definition.Type,
		Fields:          definition.Fields,
		Unique:          arangodb.Bool(definition.Unique != nil && *definition.Unique),
		Sparse:          arangodb.Bool(definition.Sparse != nil && *definition.Sparse),
		Deduplicate:     definition.Deduplicate,
		Estimates:       definition.Estimates,
		MinLength:       definition.MinLength,
		GeoJSON:         definition.GeoJSON,
		LegacyPolygons:  definition.LegacyPolygons,
		FieldValueTypes: definition.FieldValueTypes,
		CacheEnabled:    definition.CacheEnabled,
		StoredValues:    definition.StoredValues,
	}
	if index.Name == "" {
		index.Name = "idx_" + id
	}
	if definition.ExpireAfter != nil {
		index.ExpireAfter = *definition.ExpireAfter
	}

	c.indexes = append(c.indexes, index)
	if *index.Unique {
		for _, d := range c.documents {
			if err := c.checkUnique(d); err != nil {
				c.indexes = c.indexes[:len(c.indexes)-1]
				writeError(w, r, err)
				return
			}
		}
	}

	index.IsNewlyCreated = true
	write(w, r, http.StatusCreated, index)
}

func (s *Server) findIndex(r *http.Request) (*collection, int, error) {
	c, err := s.indexCollection(r, param(r, "collection"))
	if err != nil {
		return nil, -1, err
	}

	id := param(r, "id")
	i := slices.IndexFunc(c.indexes, func(index arangodb.IndexEntity) bool {
		return index.ID == c.name+"/"+id || index.Name == id
	})
	if i < 0 {
		return nil, -1, newError(http.StatusNotFound, errors.ErrorArangoIndexNotFound, "index not found")
	}

	return c, i, nil
}

func (s *Server) getIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, i, err := s.findIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	index := c.indexes[i]
	index.IsNewlyCreated = false

	write(w, r, http.StatusOK, index)
}

func (s *Server) deleteIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, i, err := s.findIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	index := c.indexes[i]
	if index.Type == arangodb.IndexTypePrimary || index.Type == arangodb.IndexTypeEdge {
		writeError(w, r, newError(http.StatusForbidden, errors.ErrorForbidden, "cannot drop %s index", index.Type))
		return
	}

	c.indexes = slices.Delete(c.indexes, i, i+1)

	write(w, r, http.StatusOK, map[string]any{"error": false, "code": http.StatusOK, "id": index.ID})
}
