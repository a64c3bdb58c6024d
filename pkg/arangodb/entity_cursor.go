package arangodb

// CursorEntity is the decoded part of a cursor response. The result batch itself stays
// encoded until the caller reads documents from the cursor.
type CursorEntity struct {
	ID          string      `json:"id,omitempty"`
	HasMore     bool        `json:"hasMore"`
	Count       *int64      `json:"count,omitempty"`
	Cached      bool        `json:"cached"`
	NextBatchID string      `json:"nextBatchId,omitempty"`
	Extra       CursorExtra `json:"extra"`
}

type CursorExtra struct {
	Stats    CursorStats        `json:"stats"`
	Warnings []CursorWarning    `json:"warnings,omitempty"`
	Profile  map[string]float64 `json:"profile,omitempty"`
	Plan     map[string]any     `json:"plan,omitempty"`
}

type CursorStats struct {
	WritesExecuted  int64   `json:"writesExecuted"`
	WritesIgnored   int64   `json:"writesIgnored"`
	ScannedFull     int64   `json:"scannedFull"`
	ScannedIndex    int64   `json:"scannedIndex"`
	CursorsCreated  int64   `json:"cursorsCreated,omitempty"`
	CursorsRearmed  int64   `json:"cursorsRearmed,omitempty"`
	CacheHits       int64   `json:"cacheHits,omitempty"`
	CacheMisses     int64   `json:"cacheMisses,omitempty"`
	Filtered        int64   `json:"filtered"`
	HTTPRequests    int64   `json:"httpRequests"`
	FullCount       int64   `json:"fullCount,omitempty"`
	ExecutionTime   float64 `json:"executionTime"`
	PeakMemoryUsage int64   `json:"peakMemoryUsage"`
}

type CursorWarning struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
