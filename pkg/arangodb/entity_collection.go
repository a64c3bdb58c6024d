package arangodb

import (
	"encoding/json"
	"fmt"

	"github.com/arangodb/go-velocypack"
)

type CollectionType int

const (
	CollectionTypeDocument CollectionType = 2
	CollectionTypeEdge     CollectionType = 3
)

type CollectionStatus int

const (
	CollectionStatusNewBorn   CollectionStatus = 1
	CollectionStatusUnloaded  CollectionStatus = 2
	CollectionStatusLoaded    CollectionStatus = 3
	CollectionStatusUnloading CollectionStatus = 4
	CollectionStatusDeleted   CollectionStatus = 5
	CollectionStatusLoading   CollectionStatus = 6
)

type CollectionEntity struct {
	ID               string           `json:"id,omitempty"`
	Name             string           `json:"name"`
	Status           CollectionStatus `json:"status,omitempty"`
	Type             CollectionType   `json:"type,omitempty"`
	IsSystem         bool             `json:"isSystem,omitempty"`
	GloballyUniqueID string           `json:"globallyUniqueId,omitempty"`
}

type KeyType string

const (
	KeyTypeTraditional   KeyType = "traditional"
	KeyTypeAutoIncrement KeyType = "autoincrement"
	KeyTypeUUID          KeyType = "uuid"
	KeyTypePadded        KeyType = "padded"
)

type KeyOptions struct {
	Type          KeyType `json:"type,omitempty"`
	AllowUserKeys bool    `json:"allowUserKeys"`
	Increment     int     `json:"increment,omitempty"`
	Offset        int     `json:"offset,omitempty"`
	LastValue     int64   `json:"lastValue,omitempty"`
}

type CollectionSchema struct {
	Rule    map[string]any `json:"rule,omitempty"`
	Level   string         `json:"level,omitempty"`
	Message string         `json:"message,omitempty"`
}

type ComputedValue struct {
	Name          string   `json:"name"`
	Expression    string   `json:"expression"`
	Overwrite     bool     `json:"overwrite"`
	ComputeOn     []string `json:"computeOn,omitempty"`
	KeepNull      *bool    `json:"keepNull,omitempty"`
	FailOnWarning bool     `json:"failOnWarning,omitempty"`
}

type CollectionPropertiesEntity struct {
	CollectionEntity
	WaitForSync          bool              `json:"waitForSync"`
	Count                int64             `json:"count,omitempty"`
	KeyOptions           *KeyOptions       `json:"keyOptions,omitempty"`
	NumberOfShards       int               `json:"numberOfShards,omitempty"`
	ShardKeys            []string          `json:"shardKeys,omitempty"`
	ReplicationFactor    ReplicationFactor `json:"replicationFactor,omitempty"`
	WriteConcern         int               `json:"writeConcern,omitempty"`
	ShardingStrategy     string            `json:"shardingStrategy,omitempty"`
	DistributeShardsLike string            `json:"distributeShardsLike,omitempty"`
	SmartJoinAttribute   string            `json:"smartJoinAttribute,omitempty"`
	Schema               *CollectionSchema `json:"schema,omitempty"`
	CacheEnabled         bool              `json:"cacheEnabled,omitempty"`
	ComputedValues       []ComputedValue   `json:"computedValues,omitempty"`
}

type CollectionRevisionEntity struct {
	CollectionEntity
	Revision string `json:"revision"`
}

type CollectionCountEntity struct {
	CollectionEntity
	Count int64 `json:"count"`
}

type ShardEntity struct {
	ShardID string `json:"shardId"`
}

// ReplicationFactor is a number of copies or the special value satellite, which the server
// encodes as the string "satellite"
type ReplicationFactor int

const ReplicationFactorSatellite ReplicationFactor = -1

func (rf ReplicationFactor) value() any {
	if rf == ReplicationFactorSatellite {
		return "satellite"
	}
	return int(rf)
}

func (rf *ReplicationFactor) set(v any) error {
	switch n := v.(type) {
	case nil:
		*rf = 0
	case string:
		if n != "satellite" {
			return fmt.Errorf("invalid replication factor %q", n)
		}
		*rf = ReplicationFactorSatellite
	case float64:
		*rf = ReplicationFactor(n)
	case int64:
		*rf = ReplicationFactor(n)
	case uint64:
		*rf = ReplicationFactor(n)
	case int:
		*rf = ReplicationFactor(n)
	default:
		return fmt.Errorf("invalid replication factor %v", v)
	}
	return nil
}

func (rf ReplicationFactor) MarshalJSON() ([]byte, error) {
	return json.Marshal(rf.value())
}

func (rf *ReplicationFactor) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return rf.set(v)
}

func (rf ReplicationFactor) MarshalVPack() (velocypack.Slice, error) {
	return velocypack.Marshal(rf.value())
}

func (rf *ReplicationFactor) UnmarshalVPack(slice velocypack.Slice) error {
	var v any
	if err := velocypack.Unmarshal(slice, &v); err != nil {
		return err
	}
	return rf.set(v)
}
