package arangodb

import (
	"net/url"
)

type GraphCreateOptions struct {
	OrphanCollections   []string
	IsSmart             bool
	IsDisjoint          bool
	SmartGraphAttribute string
	NumberOfShards      int
	ReplicationFactor   ReplicationFactor
	WriteConcern        int
	Satellites          []string
	WaitForSync         bool
}

type graphCreateRequestOptions struct {
	SmartGraphAttribute string            `json:"smartGraphAttribute,omitempty"`
	NumberOfShards      int               `json:"numberOfShards,omitempty"`
	ReplicationFactor   ReplicationFactor `json:"replicationFactor,omitempty"`
	WriteConcern        int               `json:"writeConcern,omitempty"`
	Satellites          []string          `json:"satellites,omitempty"`
}

// GraphCreateRequest is the body sent to create a named graph
type GraphCreateRequest struct {
	Name              string                     `json:"name"`
	EdgeDefinitions   []EdgeDefinition           `json:"edgeDefinitions"`
	OrphanCollections []string                   `json:"orphanCollections,omitempty"`
	IsSmart           bool                       `json:"isSmart,omitempty"`
	IsDisjoint        bool                       `json:"isDisjoint,omitempty"`
	Options           *graphCreateRequestOptions `json:"options,omitempty"`
}

func (o *GraphCreateOptions) Request(name string, edgeDefinitions []EdgeDefinition) GraphCreateRequest {
	if edgeDefinitions == nil {
		edgeDefinitions = []EdgeDefinition{}
	}

	r := GraphCreateRequest{Name: name, EdgeDefinitions: edgeDefinitions}
	if o == nil {
		return r
	}

	r.OrphanCollections = o.OrphanCollections
	r.IsSmart = o.IsSmart
	r.IsDisjoint = o.IsDisjoint

	if o.SmartGraphAttribute != "" || o.NumberOfShards != 0 || o.ReplicationFactor != 0 || o.WriteConcern != 0 || len(o.Satellites) > 0 {
		r.Options = &graphCreateRequestOptions{
			SmartGraphAttribute: o.SmartGraphAttribute,
			NumberOfShards:      o.NumberOfShards,
			ReplicationFactor:   o.ReplicationFactor,
			WriteConcern:        o.WriteConcern,
			Satellites:          o.Satellites,
		}
	}

	return r
}

func (o *GraphCreateOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "waitForSync", o.WaitForSync)
	return q
}

type VertexCollectionCreateOptions struct {
	Satellites []string
}

type EdgeDefinitionOptions struct {
	WaitForSync     bool
	DropCollections bool
	Satellites      []string
}

func (o *EdgeDefinitionOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "waitForSync", o.WaitForSync)
	setBool(q, "dropCollections", o.DropCollections)
	return q
}

// EdgeDefinitionRemoveOptions controls removal of an edge definition from a graph
type EdgeDefinitionRemoveOptions struct {
	WaitForSync     bool
	DropCollections bool
}

func (o *EdgeDefinitionRemoveOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "waitForSync", o.WaitForSync)
	setBool(q, "dropCollections", o.DropCollections)
	return q
}

type VertexCreateOptions struct {
	WaitForSync         bool
	ReturnNew           bool
	StreamTransactionID string

	NewObject any
}

func (o *VertexCreateOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "waitForSync", o.WaitForSync)
	setBool(q, "returnNew", o.ReturnNew || o.NewObject != nil)
	return q
}

func (o *VertexCreateOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderStreamTransactionID, o.StreamTransactionID)
}

type VertexReadOptions struct {
	IfMatch             string
	IfNoneMatch         string
	StreamTransactionID string
}

func (o *VertexReadOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderIfMatch, o.IfMatch, HeaderIfNoneMatch, o.IfNoneMatch, HeaderStreamTransactionID, o.StreamTransactionID)
}

type VertexReplaceOptions struct {
	WaitForSync         bool
	KeepNull            *bool
	IfMatch             string
	ReturnNew           bool
	ReturnOld           bool
	StreamTransactionID string

	NewObject any
	OldObject any
}

func (o *VertexReplaceOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "waitForSync", o.WaitForSync)
	setOptionalBool(q, "keepNull", o.KeepNull)
	setBool(q, "returnNew", o.ReturnNew || o.NewObject != nil)
	setBool(q, "returnOld", o.ReturnOld || o.OldObject != nil)
	return q
}

func (o *VertexReplaceOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderIfMatch, o.IfMatch, HeaderStreamTransactionID, o.StreamTransactionID)
}

type VertexUpdateOptions struct {
	WaitForSync         bool
	KeepNull            *bool
	IfMatch             string
	ReturnNew           bool
	ReturnOld           bool
	StreamTransactionID string

	NewObject any
	OldObject any
}

func (o *VertexUpdateOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "waitForSync", o.WaitForSync)
	setOptionalBool(q, "keepNull", o.KeepNull)
	setBool(q, "returnNew", o.ReturnNew || o.NewObject != nil)
	setBool(q, "returnOld", o.ReturnOld || o.OldObject != nil)
	return q
}

func (o *VertexUpdateOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderIfMatch, o.IfMatch, HeaderStreamTransactionID, o.StreamTransactionID)
}

type VertexDeleteOptions struct {
	WaitForSync         bool
	IfMatch             string
	ReturnOld           bool
	StreamTransactionID string

	OldObject any
}

func (o *VertexDeleteOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "waitForSync", o.WaitForSync)
	setBool(q, "returnOld", o.ReturnOld || o.OldObject != nil)
	return q
}

func (o *VertexDeleteOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderIfMatch, o.IfMatch, HeaderStreamTransactionID, o.StreamTransactionID)
}

// Edges accept the same options as vertices
type (
	EdgeCreateOptions  = VertexCreateOptions
	EdgeReadOptions    = VertexReadOptions
	EdgeReplaceOptions = VertexReplaceOptions
	EdgeUpdateOptions  = VertexUpdateOptions
	EdgeDeleteOptions  = VertexDeleteOptions
)
