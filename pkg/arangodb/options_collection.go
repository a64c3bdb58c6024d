package arangodb

import (
	"net/url"
)

// CollectionCreateOptions is sent as the request body of a collection creation, the two
// replication flags are sent as query parameters
type CollectionCreateOptions struct {
	Type                 CollectionType    `json:"type,omitempty"`
	WaitForSync          bool              `json:"waitForSync,omitempty"`
	KeyOptions           *KeyOptions       `json:"keyOptions,omitempty"`
	NumberOfShards       int               `json:"numberOfShards,omitempty"`
	ReplicationFactor    ReplicationFactor `json:"replicationFactor,omitempty"`
	WriteConcern         int               `json:"writeConcern,omitempty"`
	ShardKeys            []string          `json:"shardKeys,omitempty"`
	ShardingStrategy     string            `json:"shardingStrategy,omitempty"`
	DistributeShardsLike string            `json:"distributeShardsLike,omitempty"`
	SmartJoinAttribute   string            `json:"smartJoinAttribute,omitempty"`
	Schema               *CollectionSchema `json:"schema,omitempty"`
	ComputedValues       []ComputedValue   `json:"computedValues,omitempty"`
	CacheEnabled         bool              `json:"cacheEnabled,omitempty"`
	IsSystem             bool              `json:"isSystem,omitempty"`

	WaitForSyncReplication   *bool `json:"-"`
	EnforceReplicationFactor *bool `json:"-"`
}

func (o *CollectionCreateOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}

	setOptionalBool(q, "waitForSyncReplication", o.WaitForSyncReplication)
	setOptionalBool(q, "enforceReplicationFactor", o.EnforceReplicationFactor)

	return q
}

type CollectionsReadOptions struct {
	ExcludeSystem bool
}

func (o *CollectionsReadOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "excludeSystem", o.ExcludeSystem)
	return q
}

// CollectionPropertiesOptions lists the properties that can be changed on an existing
// collection
type CollectionPropertiesOptions struct {
	WaitForSync       *bool             `json:"waitForSync,omitempty"`
	Schema            *CollectionSchema `json:"schema,omitempty"`
	ComputedValues    []ComputedValue   `json:"computedValues,omitempty"`
	CacheEnabled      *bool             `json:"cacheEnabled,omitempty"`
	ReplicationFactor ReplicationFactor `json:"replicationFactor,omitempty"`
	WriteConcern      int               `json:"writeConcern,omitempty"`
}

type CollectionTruncateOptions struct {
	WaitForSync         bool
	Compact             *bool
	StreamTransactionID string
}

func (o *CollectionTruncateOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "waitForSync", o.WaitForSync)
	setOptionalBool(q, "compact", o.Compact)
	return q
}

func (o *CollectionTruncateOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderStreamTransactionID, o.StreamTransactionID)
}

type CollectionCountOptions struct {
	StreamTransactionID string
}

func (o *CollectionCountOptions) Headers() map[string]string {
	if o == nil {
		return map[string]string{}
	}
	return headers(HeaderStreamTransactionID, o.StreamTransactionID)
}

type CollectionDropOptions struct {
	IsSystem bool
}

func (o *CollectionDropOptions) Params() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	setBool(q, "isSystem", o.IsSystem)
	return q
}
