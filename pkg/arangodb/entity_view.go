package arangodb

type ViewType string

const (
	ViewTypeArangoSearch ViewType = "arangosearch"
	ViewTypeSearchAlias  ViewType = "search-alias"
)

type ViewEntity struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name"`
	Type             ViewType `json:"type"`
	GloballyUniqueID string   `json:"globallyUniqueId,omitempty"`
}

type ConsolidationPolicy struct {
	Type             string  `json:"type,omitempty"`
	Threshold        float64 `json:"threshold,omitempty"`
	SegmentsMin      int64   `json:"segmentsMin,omitempty"`
	SegmentsMax      int64   `json:"segmentsMax,omitempty"`
	SegmentsBytesMax int64   `json:"segmentsBytesMax,omitempty"`
}

type PrimarySort struct {
	Field     string `json:"field"`
	Ascending bool   `json:"asc"`
}

type StoredValue struct {
	Fields      []string `json:"fields"`
	Compression string   `json:"compression,omitempty"`
}

// ArangoSearchLink configures how the documents of one collection, or one nested field,
// are indexed by a view
type ArangoSearchLink struct {
	Analyzers          []string                    `json:"analyzers,omitempty"`
	Fields             map[string]ArangoSearchLink `json:"fields,omitempty"`
	IncludeAllFields   *bool                       `json:"includeAllFields,omitempty"`
	TrackListPositions *bool                       `json:"trackListPositions,omitempty"`
	StoreValues        string                      `json:"storeValues,omitempty"`
	InBackground       bool                        `json:"inBackground,omitempty"`
}

type ArangoSearchPropertiesEntity struct {
	ViewEntity
	CleanupIntervalStep       int64                       `json:"cleanupIntervalStep,omitempty"`
	ConsolidationIntervalMsec int64                       `json:"consolidationIntervalMsec,omitempty"`
	CommitIntervalMsec        int64                       `json:"commitIntervalMsec,omitempty"`
	WriteBufferIdle           int64                       `json:"writebufferIdle,omitempty"`
	WriteBufferActive         int64                       `json:"writebufferActive,omitempty"`
	WriteBufferSizeMax        int64                       `json:"writebufferSizeMax,omitempty"`
	ConsolidationPolicy       *ConsolidationPolicy        `json:"consolidationPolicy,omitempty"`
	PrimarySort               []PrimarySort               `json:"primarySort,omitempty"`
	PrimarySortCompression    string                      `json:"primarySortCompression,omitempty"`
	StoredValues              []StoredValue               `json:"storedValues,omitempty"`
	Links                     map[string]ArangoSearchLink `json:"links,omitempty"`
}

type AnalyzerType string

const (
	AnalyzerTypeIdentity  AnalyzerType = "identity"
	AnalyzerTypeDelimiter AnalyzerType = "delimiter"
	AnalyzerTypeStem      AnalyzerType = "stem"
	AnalyzerTypeNorm      AnalyzerType = "norm"
	AnalyzerTypeNgram     AnalyzerType = "ngram"
	AnalyzerTypeText      AnalyzerType = "text"
)

type AnalyzerFeature string

const (
	AnalyzerFeatureFrequency AnalyzerFeature = "frequency"
	AnalyzerFeatureNorm      AnalyzerFeature = "norm"
	AnalyzerFeaturePosition  AnalyzerFeature = "position"
)

type SearchAnalyzer struct {
	Name       string            `json:"name"`
	Type       AnalyzerType      `json:"type"`
	Properties map[string]any    `json:"properties,omitempty"`
	Features   []AnalyzerFeature `json:"features,omitempty"`
}
