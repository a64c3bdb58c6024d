package arangodb

type AqlQueryOptions struct {
	Count       bool
	BatchSize   int
	TTL         int
	Cache       *bool
	MemoryLimit int64

	FullCount                   bool
	MaxWarningCount             int
	FailOnWarning               *bool
	Stream                      bool
	Profile                     int
	MaxRuntime                  float64
	AllowRetry                  bool
	MaxPlans                    int
	OptimizerRules              []string
	SkipInaccessibleCollections bool
	FillBlockCache              *bool
	Shards                      []string

	AllowDirtyRead      bool
	StreamTransactionID string
}

type optimizer struct {
	Rules []string `json:"rules,omitempty"`
}

type queryRequestOptions struct {
	FullCount                   bool       `json:"fullCount,omitempty"`
	MaxWarningCount             int        `json:"maxWarningCount,omitempty"`
	FailOnWarning               *bool      `json:"failOnWarning,omitempty"`
	Stream                      bool       `json:"stream,omitempty"`
	Profile                     int        `json:"profile,omitempty"`
	MaxRuntime                  float64    `json:"maxRuntime,omitempty"`
	AllowRetry                  bool       `json:"allowRetry,omitempty"`
	MaxPlans                    int        `json:"maxPlans,omitempty"`
	Optimizer                   *optimizer `json:"optimizer,omitempty"`
	SkipInaccessibleCollections bool       `json:"skipInaccessibleCollections,omitempty"`
	FillBlockCache              *bool      `json:"fillBlockCache,omitempty"`
	ShardIDs                    []string   `json:"shardIds,omitempty"`
}

func (ro queryRequestOptions) isEmpty() bool {
	return !ro.FullCount && ro.MaxWarningCount == 0 && ro.FailOnWarning == nil && !ro.Stream &&
		ro.Profile == 0 && ro.MaxRuntime == 0 && !ro.AllowRetry && ro.MaxPlans == 0 &&
		ro.Optimizer == nil && !ro.SkipInaccessibleCollections && ro.FillBlockCache == nil &&
		len(ro.ShardIDs) == 0
}

// QueryRequest is the request body that creates a cursor
type QueryRequest struct {
	Query       string               `json:"query"`
	BindVars    map[string]any       `json:"bindVars,omitempty"`
	Count       bool                 `json:"count,omitempty"`
	BatchSize   int                  `json:"batchSize,omitempty"`
	TTL         int                  `json:"ttl,omitempty"`
	Cache       *bool                `json:"cache,omitempty"`
	MemoryLimit int64                `json:"memoryLimit,omitempty"`
	Options     *queryRequestOptions `json:"options,omitempty"`
}

func (o *AqlQueryOptions) Request(query string, bindVars map[string]any) QueryRequest {
	r := QueryRequest{Query: query, BindVars: bindVars}
	if o == nil {
		return r
	}

	r.Count = o.Count
	r.BatchSize = o.BatchSize
	r.TTL = o.TTL
	r.Cache = o.Cache
	r.MemoryLimit = o.MemoryLimit

	ro := queryRequestOptions{
		FullCount:                   o.FullCount,
		MaxWarningCount:             o.MaxWarningCount,
		FailOnWarning:               o.FailOnWarning,
		Stream:                      o.Stream,
		Profile:                     o.Profile,
		MaxRuntime:                  o.MaxRuntime,
		AllowRetry:                  o.AllowRetry,
		MaxPlans:                    o.MaxPlans,
		SkipInaccessibleCollections: o.SkipInaccessibleCollections,
		FillBlockCache:              o.FillBlockCache,
		ShardIDs:                    o.Shards,
	}
	if len(o.OptimizerRules) > 0 {
		ro.Optimizer = &optimizer{Rules: o.OptimizerRules}
	}

	if !ro.isEmpty() {
		r.Options = &ro
	}

	return r
}

func (o *AqlQueryOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}

	h := headers(HeaderStreamTransactionID, o.StreamTransactionID)
	if o.AllowDirtyRead {
		h[HeaderAllowDirtyRead] = "true"
	}

	return h
}

type AqlQueryExplainOptions struct {
	AllPlans       bool
	MaxPlans       int
	OptimizerRules []string
}

type explainRequestOptions struct {
	AllPlans  bool       `json:"allPlans,omitempty"`
	MaxPlans  int        `json:"maxNumberOfPlans,omitempty"`
	Optimizer *optimizer `json:"optimizer,omitempty"`
}

type ExplainRequest struct {
	Query    string                `json:"query"`
	BindVars map[string]any        `json:"bindVars,omitempty"`
	Options  explainRequestOptions `json:"options"`
}

func (o *AqlQueryExplainOptions) Request(query string, bindVars map[string]any) ExplainRequest {
	r := ExplainRequest{Query: query, BindVars: bindVars}
	if o == nil {
		return r
	}

	r.Options.AllPlans = o.AllPlans
	r.Options.MaxPlans = o.MaxPlans
	if len(o.OptimizerRules) > 0 {
		r.Options.Optimizer = &optimizer{Rules: o.OptimizerRules}
	}

	return r
}

type AqlFunctionCreateOptions struct {
	IsDeterministic bool
}

type AqlFunctionDeleteOptions struct {
	Group bool
}

type AqlFunctionGetOptions struct {
	Namespace string
}
