package fakearango

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/google/uuid"
)

type document map[string]any

func (d document) key() string {
	s, _ := d["_key"].(string)
	return s
}

func (d document) rev() string {
	s, _ := d["_rev"].(string)
	return s
}

func (d document) meta() map[string]any {
	return map[string]any{"_key": d["_key"], "_id": d["_id"], "_rev": d["_rev"]}
}

func (d document) clone() document {
	c := make(document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

type database struct {
	id   string
	name string

	collections map[string]*collection
	graphs      map[string]*arangodb.GraphEntity
	views       map[string]*arangodb.ArangoSearchPropertiesEntity
	analyzers   map[string]arangodb.SearchAnalyzer
	cursors     map[string]*cursor
}

func newDatabase(id, name string) *database {
	return &database{
		id:          id,
		name:        name,
		collections: map[string]*collection{},
		graphs:      map[string]*arangodb.GraphEntity{},
		views:       map[string]*arangodb.ArangoSearchPropertiesEntity{},
		analyzers:   map[string]arangodb.SearchAnalyzer{},
		cursors:     map[string]*cursor{},
	}
}

func (db *database) entity() arangodb.DatabaseEntity {
	return arangodb.DatabaseEntity{ID: db.id, Name: db.name, IsSystem: db.name == systemDatabase}
}

func (db *database) collection(name string) (*collection, error) {
	c, ok := db.collections[name]
	if !ok {
		return nil, newError(http.StatusNotFound, errors.ErrorArangoDataSourceNotFound, "collection or view not found: %s", name)
	}
	return c, nil
}

type collection struct {
	id   string
	name string

	properties arangodb.CollectionPropertiesEntity
	keyOptions arangodb.KeyOptions
	lastValue  int64

	documents map[string]document
	order     []string

	indexes     []arangodb.IndexEntity
	nextIndexID int

	revision string
}

var validName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_\-]{0,255}$`)
var validKey = regexp.MustCompile(`^[a-zA-Z0-9_\-:.@()+,=;$!*'%]{1,254}$`)

func newCollection(id, name string, options arangodb.CollectionCreateOptions) *collection {
	t := options.Type
	if t == 0 {
		t = arangodb.CollectionTypeDocument
	}

	keyOptions := arangodb.KeyOptions{Type: arangodb.KeyTypeTraditional, AllowUserKeys: true}
	if options.KeyOptions != nil {
		keyOptions = *options.KeyOptions
		if keyOptions.Type == "" {
			keyOptions.Type = arangodb.KeyTypeTraditional
		}
	}

	c := &collection{
		id:         id,
		name:       name,
		keyOptions: keyOptions,
		documents:  map[string]document{},
		properties: arangodb.CollectionPropertiesEntity{
			CollectionEntity: arangodb.CollectionEntity{
				ID:               id,
				Name:             name,
				Status:           arangodb.CollectionStatusLoaded,
				Type:             t,
				IsSystem:         options.IsSystem || (len(name) > 0 && name[0] == '_'),
				GloballyUniqueID: "c" + id,
			},
			WaitForSync:    options.WaitForSync,
			Schema:         options.Schema,
			CacheEnabled:   options.CacheEnabled,
			ComputedValues: options.ComputedValues,
			ShardKeys:      []string{"_key"},
			NumberOfShards: 1,
		},
		revision: "0",
	}

	primary := arangodb.IndexEntity{ID: name + "/0", Name: "primary", Type: arangodb.IndexTypePrimary, Fields: []string{"_key"}, Unique: arangodb.Bool(true), Sparse: arangodb.Bool(false)}
	c.indexes = append(c.indexes, primary)

	if t == arangodb.CollectionTypeEdge {
		edge := arangodb.IndexEntity{ID: name + "/1", Name: "edge", Type: arangodb.IndexTypeEdge, Fields: []string{"_from", "_to"}, Unique: arangodb.Bool(false), Sparse: arangodb.Bool(false)}
		c.indexes = append(c.indexes, edge)
	}
	c.nextIndexID = len(c.indexes)

	return c
}

func (c *collection) isEdge() bool {
	return c.properties.Type == arangodb.CollectionTypeEdge
}

func (c *collection) entity() arangodb.CollectionEntity {
	return c.properties.CollectionEntity
}

func (c *collection) propertiesEntity() arangodb.CollectionPropertiesEntity {
	p := c.properties
	keyOptions := c.keyOptions
	keyOptions.LastValue = c.lastValue
	p.KeyOptions = &keyOptions
	p.Count = int64(len(c.documents))
	return p
}

// generateKey returns a new key according to the key generator of the collection
func (c *collection) generateKey() string {
	switch c.keyOptions.Type {
	case arangodb.KeyTypeUUID:
		return uuid.NewString()
	case arangodb.KeyTypeAutoIncrement:
		increment := int64(max(c.keyOptions.Increment, 1))
		if c.lastValue == 0 && c.keyOptions.Offset > 0 {
			c.lastValue = int64(c.keyOptions.Offset)
		} else {
			c.lastValue += increment
		}
		return strconv.FormatInt(c.lastValue, 10)
	case arangodb.KeyTypePadded:
		c.lastValue++
		return fmt.Sprintf("%016x", c.lastValue)
	}

	c.lastValue++
	return strconv.FormatInt(c.lastValue, 10)
}

func (c *collection) isDocumentHandle(id string) bool {
	collection, _, err := arangodb.SplitDocumentID(id)
	return err == nil && collection == c.name
}

// put stores a document, keeping the scan order of documents already present
func (c *collection) put(doc document) {
	k := doc.key()
	if _, exists := c.documents[k]; !exists {
		c.order = append(c.order, k)
	}
	c.documents[k] = doc
	c.revision = doc.rev()
}

func (c *collection) remove(key string) {
	delete(c.documents, key)
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}

func (c *collection) truncate() {
	c.documents = map[string]document{}
	c.order = nil
}

// all returns the documents in insertion order
func (c *collection) all() []document {
	docs := make([]document, 0, len(c.order))
	for _, k := range c.order {
		docs = append(docs, c.documents[k])
	}
	return docs
}

// checkUnique reports a violation of any unique index by doc. Documents with the key of doc
// are ignored.
func (c *collection) checkUnique(doc document) error {
	for _, index := range c.indexes {
		if index.Type == arangodb.IndexTypePrimary || index.Unique == nil || !*index.Unique {
			continue
		}

		sparse := index.Sparse != nil && *index.Sparse
		values, complete := fieldValues(doc, index.Fields)
		if sparse && !complete {
			continue
		}

		for _, other := range c.documents {
			if other.key() == doc.key() {
				continue
			}
			otherValues, otherComplete := fieldValues(other, index.Fields)
			if sparse && !otherComplete {
				continue
			}
			if equalValues(values, otherValues) {
				return newError(http.StatusConflict, errors.ErrorArangoUniqueConstraintViolated,
					"unique constraint violated - in index %s of type %s over %v", index.Name, index.Type, index.Fields)
			}
		}
	}
	return nil
}

func fieldValues(doc document, fields []string) ([]any, bool) {
	values := make([]any, 0, len(fields))
	complete := true
	for _, f := range fields {
		v, ok := attribute(doc, f)
		if !ok || v == nil {
			complete = false
		}
		values = append(values, v)
	}
	return values, complete
}

type cursor struct {
	id          string
	results     []any
	batchSize   int
	count       bool
	allowRetry  bool
	batchID     int
	lastBatch   []any
	lastHasMore bool
	stats       arangodb.CursorStats
}

type user struct {
	entity      arangodb.UserEntity
	password    string
	databases   map[string]arangodb.Permissions
	collections map[string]map[string]arangodb.Permissions
}

func (u *user) databasePermission(name string) arangodb.Permissions {
	if p, ok := u.databases[name]; ok {
		return p
	}
	if p, ok := u.databases["*"]; ok {
		return p
	}
	return arangodb.PermissionsNone
}

func (u *user) collectionPermission(database, name string) arangodb.Permissions {
	for _, db := range []string{database, "*"} {
		if perms, ok := u.collections[db]; ok {
			if p, ok := perms[name]; ok {
				return p
			}
			if p, ok := perms["*"]; ok {
				return p
			}
		}
	}
	return u.databasePermission(database)
}

type transaction struct {
	database string
	entity   arangodb.StreamTransactionEntity
}
