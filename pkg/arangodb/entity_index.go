package arangodb

type IndexType string

const (
	IndexTypePrimary    IndexType = "primary"
	IndexTypeEdge       IndexType = "edge"
	IndexTypePersistent IndexType = "persistent"
	IndexTypeHash       IndexType = "hash"
	IndexTypeSkiplist   IndexType = "skiplist"
	IndexTypeGeo        IndexType = "geo"
	IndexTypeFulltext   IndexType = "fulltext"
	IndexTypeTTL        IndexType = "ttl"
	IndexTypeZKD        IndexType = "zkd"
)

// IndexEntity describes an index. Which of the optional attributes are set depends on Type.
type IndexEntity struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name,omitempty"`
	Type                IndexType `json:"type"`
	Fields              []string  `json:"fields,omitempty"`
	Unique              *bool     `json:"unique,omitempty"`
	Sparse              *bool     `json:"sparse,omitempty"`
	Deduplicate         *bool     `json:"deduplicate,omitempty"`
	Estimates           *bool     `json:"estimates,omitempty"`
	SelectivityEstimate float64   `json:"selectivityEstimate,omitempty"`
	MinLength           int       `json:"minLength,omitempty"`
	GeoJSON             *bool     `json:"geoJson,omitempty"`
	LegacyPolygons      *bool     `json:"legacyPolygons,omitempty"`
	ExpireAfter         int       `json:"expireAfter,omitempty"`
	InBackground        bool      `json:"inBackground,omitempty"`
	IsNewlyCreated      bool      `json:"isNewlyCreated,omitempty"`
	FieldValueTypes     string    `json:"fieldValueTypes,omitempty"`
	CacheEnabled        *bool     `json:"cacheEnabled,omitempty"`
	StoredValues        []string  `json:"storedValues,omitempty"`
}

type IndexesEntity struct {
	Indexes []IndexEntity `json:"indexes"`
}

// CollectionName returns the collection part of an index handle such as users/0
func (ie IndexEntity) CollectionName() string {
	collection, _, err := SplitDocumentID(ie.ID)
	if err != nil {
		return ""
	}
	return collection
}
