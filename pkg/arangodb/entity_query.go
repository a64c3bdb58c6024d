package arangodb

type ExecutionCollection struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ExecutionVariable struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ExecutionPlan struct {
	Nodes            []map[string]any      `json:"nodes,omitempty"`
	Rules            []string              `json:"rules,omitempty"`
	Collections      []ExecutionCollection `json:"collections,omitempty"`
	Variables        []ExecutionVariable   `json:"variables,omitempty"`
	EstimatedCost    float64               `json:"estimatedCost"`
	EstimatedNrItems int64                 `json:"estimatedNrItems"`
}

type ExplainStats struct {
	RulesExecuted   int64   `json:"rulesExecuted"`
	RulesSkipped    int64   `json:"rulesSkipped"`
	PlansCreated    int64   `json:"plansCreated"`
	PeakMemoryUsage int64   `json:"peakMemoryUsage"`
	ExecutionTime   float64 `json:"executionTime"`
}

type AqlExecutionExplainEntity struct {
	Plan      *ExecutionPlan  `json:"plan,omitempty"`
	Plans     []ExecutionPlan `json:"plans,omitempty"`
	Warnings  []CursorWarning `json:"warnings,omitempty"`
	Stats     ExplainStats    `json:"stats"`
	Cacheable bool            `json:"cacheable"`
}

type AstNode struct {
	Type     string    `json:"type"`
	Name     string    `json:"name,omitempty"`
	ID       int64     `json:"id,omitempty"`
	Value    any       `json:"value,omitempty"`
	Subnodes []AstNode `json:"subNodes,omitempty"`
}

type AqlParseEntity struct {
	Collections []string  `json:"collections"`
	BindVars    []string  `json:"bindVars"`
	AST         []AstNode `json:"ast"`
}

type AqlFunctionEntity struct {
	Name            string `json:"name"`
	Code            string `json:"code"`
	IsDeterministic bool   `json:"isDeterministic"`
}

// QueryEntity describes a running or slow query
type QueryEntity struct {
	ID              string         `json:"id"`
	Database        string         `json:"database,omitempty"`
	User            string         `json:"user,omitempty"`
	Query           string         `json:"query"`
	BindVars        map[string]any `json:"bindVars,omitempty"`
	Started         string         `json:"started"`
	RunTime         float64        `json:"runTime"`
	PeakMemoryUsage int64          `json:"peakMemoryUsage,omitempty"`
	State           string         `json:"state"`
	Stream          bool           `json:"stream"`
}

type QueryCacheMode string

const (
	QueryCacheModeOff    QueryCacheMode = "off"
	QueryCacheModeOn     QueryCacheMode = "on"
	QueryCacheModeDemand QueryCacheMode = "demand"
)

type QueryCachePropertiesEntity struct {
	Mode           QueryCacheMode `json:"mode,omitempty"`
	MaxResults     int64          `json:"maxResults,omitempty"`
	MaxResultsSize int64          `json:"maxResultsSize,omitempty"`
	MaxEntrySize   int64          `json:"maxEntrySize,omitempty"`
	IncludeSystem  bool           `json:"includeSystem"`
}

type QueryTrackingPropertiesEntity struct {
	Enabled              bool    `json:"enabled"`
	TrackSlowQueries     bool    `json:"trackSlowQueries"`
	TrackBindVars        bool    `json:"trackBindVars"`
	MaxSlowQueries       int64   `json:"maxSlowQueries,omitempty"`
	SlowQueryThreshold   float64 `json:"slowQueryThreshold,omitempty"`
	MaxQueryStringLength int64   `json:"maxQueryStringLength,omitempty"`
}
