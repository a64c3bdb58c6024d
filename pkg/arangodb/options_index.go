package arangodb

// IndexDefinition is the request body of an index creation
type IndexDefinition struct {
	Type            IndexType `json:"type"`
	Fields          []string  `json:"fields"`
	Name            string    `json:"name,omitempty"`
	Unique          *bool     `json:"unique,omitempty"`
	Sparse          *bool     `json:"sparse,omitempty"`
	Deduplicate     *bool     `json:"deduplicate,omitempty"`
	Estimates       *bool     `json:"estimates,omitempty"`
	CacheEnabled    *bool     `json:"cacheEnabled,omitempty"`
	StoredValues    []string  `json:"storedValues,omitempty"`
	GeoJSON         *bool     `json:"geoJson,omitempty"`
	LegacyPolygons  *bool     `json:"legacyPolygons,omitempty"`
	MinLength       int       `json:"minLength,omitempty"`
	ExpireAfter     *int      `json:"expireAfter,omitempty"`
	FieldValueTypes string    `json:"fieldValueTypes,omitempty"`
	InBackground    bool      `json:"inBackground,omitempty"`
}

type PersistentIndexOptions struct {
	Name         string
	Unique       bool
	Sparse       bool
	Deduplicate  *bool
	Estimates    *bool
	CacheEnabled bool
	StoredValues []string
	InBackground bool
}

func (o *PersistentIndexOptions) Definition(fields []string) IndexDefinition {
	return persistentDefinition(IndexTypePersistent, fields, o)
}

func persistentDefinition(indexType IndexType, fields []string, o *PersistentIndexOptions) IndexDefinition {
	d := IndexDefinition{Type: indexType, Fields: fields}
	if o == nil {
		return d
	}

	d.Name = o.Name
	d.Unique = Bool(o.Unique)
	d.Sparse = Bool(o.Sparse)
	d.Deduplicate = o.Deduplicate
	d.Estimates = o.Estimates
	if o.CacheEnabled {
		d.CacheEnabled = Bool(true)
	}
	d.StoredValues = o.StoredValues
	d.InBackground = o.InBackground

	return d
}

// HashIndexOptions and SkiplistIndexOptions create what newer servers treat as persistent
// indexes, the type name is kept on the wire
type HashIndexOptions struct {
	Name         string
	Unique       bool
	Sparse       bool
	Deduplicate  *bool
	InBackground bool
}

func (o *HashIndexOptions) Definition(fields []string) IndexDefinition {
	if o == nil {
		return persistentDefinition(IndexTypeHash, fields, nil)
	}
	return persistentDefinition(IndexTypeHash, fields, &PersistentIndexOptions{
		Name: o.Name, Unique: o.Unique, Sparse: o.Sparse, Deduplicate: o.Deduplicate, InBackground: o.InBackground,
	})
}

type SkiplistIndexOptions struct {
	Name         string
	Unique       bool
	Sparse       bool
	Deduplicate  *bool
	InBackground bool
}

func (o *SkiplistIndexOptions) Definition(fields []string) IndexDefinition {
	if o == nil {
		return persistentDefinition(IndexTypeSkiplist, fields, nil)
	}
	return persistentDefinition(IndexTypeSkiplist, fields, &PersistentIndexOptions{
		Name: o.Name, Unique: o.Unique, Sparse: o.Sparse, Deduplicate: o.Deduplicate, InBackground: o.InBackground,
	})
}

type GeoIndexOptions struct {
	Name           string
	GeoJSON        bool
	LegacyPolygons bool
	InBackground   bool
}

func (o *GeoIndexOptions) Definition(fields []string) IndexDefinition {
	d := IndexDefinition{Type: IndexTypeGeo, Fields: fields}
	if o == nil {
		return d
	}

	d.Name = o.Name
	d.GeoJSON = Bool(o.GeoJSON)
	if o.LegacyPolygons {
		d.LegacyPolygons = Bool(true)
	}
	d.InBackground = o.InBackground

	return d
}

type FulltextIndexOptions struct {
	Name         string
	MinLength    int
	InBackground bool
}

func (o *FulltextIndexOptions) Definition(fields []string) IndexDefinition {
	d := IndexDefinition{Type: IndexTypeFulltext, Fields: fields}
	if o == nil {
		return d
	}

	d.Name = o.Name
	d.MinLength = o.MinLength
	d.InBackground = o.InBackground

	return d
}

type TTLIndexOptions struct {
	Name         string
	InBackground bool
}

// Definition for a ttl index, documents expire expireAfter seconds after the time stored in
// the single indexed field
func (o *TTLIndexOptions) Definition(field string, expireAfter int) IndexDefinition {
	d := IndexDefinition{Type: IndexTypeTTL, Fields: []string{field}, ExpireAfter: &expireAfter}
	if o == nil {
		return d
	}

	d.Name = o.Name
	d.InBackground = o.InBackground

	return d
}

type ZKDIndexOptions struct {
	Name         string
	Unique       bool
	InBackground bool
}

func (o *ZKDIndexOptions) Definition(fields []string) IndexDefinition {
	d := IndexDefinition{Type: IndexTypeZKD, Fields: fields, FieldValueTypes: "double"}
	if o == nil {
		return d
	}

	d.Name = o.Name
	if o.Unique {
		d.Unique = Bool(true)
	}
	d.InBackground = o.InBackground

	return d
}
