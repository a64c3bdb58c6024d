package arangodb

// EdgeDefinition connects the vertices of the From collections with those of the To
// collections through the edge collection Collection
type EdgeDefinition struct {
	Collection string   `json:"collection"`
	From       []string `json:"from"`
	To         []string `json:"to"`
}

type GraphEntity struct {
	Name                string            `json:"name"`
	Key                 string            `json:"_key,omitempty"`
	ID                  string            `json:"_id,omitempty"`
	Rev                 string            `json:"_rev,omitempty"`
	EdgeDefinitions     []EdgeDefinition  `json:"edgeDefinitions"`
	OrphanCollections   []string          `json:"orphanCollections"`
	NumberOfShards      int               `json:"numberOfShards,omitempty"`
	ReplicationFactor   ReplicationFactor `json:"replicationFactor,omitempty"`
	WriteConcern        int               `json:"writeConcern,omitempty"`
	IsSmart             bool              `json:"isSmart,omitempty"`
	IsDisjoint          bool              `json:"isDisjoint,omitempty"`
	IsSatellite         bool              `json:"isSatellite,omitempty"`
	SmartGraphAttribute string            `json:"smartGraphAttribute,omitempty"`
}

// VertexCollections returns the names of every vertex collection the graph uses, orphans
// included, without duplicates
func (g GraphEntity) VertexCollections() []string {
	seen := map[string]bool{}
	result := []string{}

	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				result = append(result, n)
			}
		}
	}

	for _, ed := range g.EdgeDefinitions {
		add(ed.From)
		add(ed.To)
	}
	add(g.OrphanCollections)

	return result
}
