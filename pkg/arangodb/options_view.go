package arangodb

// ArangoSearchPropertiesOptions holds the mutable properties of an arangosearch view
type ArangoSearchPropertiesOptions struct {
	CleanupIntervalStep       int64                       `json:"cleanupIntervalStep,omitempty"`
	ConsolidationIntervalMsec int64                       `json:"consolidationIntervalMsec,omitempty"`
	CommitIntervalMsec        int64                       `json:"commitIntervalMsec,omitempty"`
	ConsolidationPolicy       *ConsolidationPolicy        `json:"consolidationPolicy,omitempty"`
	Links                     map[string]ArangoSearchLink `json:"links,omitempty"`
}

// ArangoSearchCreateOptions adds the properties that can only be set when a view is created
type ArangoSearchCreateOptions struct {
	ArangoSearchPropertiesOptions
	WriteBufferIdle        int64         `json:"writebufferIdle,omitempty"`
	WriteBufferActive      int64         `json:"writebufferActive,omitempty"`
	WriteBufferSizeMax     int64         `json:"writebufferSizeMax,omitempty"`
	PrimarySort            []PrimarySort `json:"primarySort,omitempty"`
	PrimarySortCompression string        `json:"primarySortCompression,omitempty"`
	StoredValues           []StoredValue `json:"storedValues,omitempty"`
}

type ViewCreateRequest struct {
	ArangoSearchCreateOptions
	Name string   `json:"name"`
	Type ViewType `json:"type"`
}

func (o *ArangoSearchCreateOptions) Request(name string) ViewCreateRequest {
	r := ViewCreateRequest{Name: name, Type: ViewTypeArangoSearch}
	if o != nil {
		r.ArangoSearchCreateOptions = *o
	}
	return r
}
