package arangodb

import (
	"encoding/json"
	"testing"

	"github.com/arangodb/go-velocypack"
	"github.com/matryer/is"
)

func TestDocumentCreateOptionsParams(t *testing.T) {
	is := is.New(t)

	var target map[string]any
	o := &DocumentCreateOptions{
		WaitForSync:         true,
		OverwriteMode:       OverwriteModeUpdate,
		KeepNull:            Bool(false),
		NewObject:           &target,
		StreamTransactionID: "123",
	}

	q := o.Params()
	is.Equal(q.Get("waitForSync"), "true")
	is.Equal(q.Get("overwriteMode"), "update")
	is.Equal(q.Get("keepNull"), "false")
	is.Equal(q.Get("returnNew"), "true") // implied by the decode target
	is.Equal(q.Get("returnOld"), "")
	is.Equal(q.Get("mergeObjects"), "")

	is.Equal(o.Headers()[HeaderStreamTransactionID], "123")
}

func TestNilOptionsRenderNothing(t *testing.T) {
	is := is.New(t)

	var create *DocumentCreateOptions
	var read *DocumentReadOptions
	var query *AqlQueryOptions

	is.Equal(len(create.Params()), 0)
	is.Equal(len(create.Headers()), 0)
	is.Equal(len(read.Headers()), 0)
	is.Equal(query.Request("RETURN 1", nil), QueryRequest{Query: "RETURN 1"})
}

func TestReadOptionsHeaders(t *testing.T) {
	is := is.New(t)

	o := &DocumentReadOptions{IfNoneMatch: "_abc", AllowDirtyRead: true}
	h := o.Headers()

	is.Equal(h[HeaderIfNoneMatch], "_abc")
	is.Equal(h[HeaderAllowDirtyRead], "true")
	_, hasIfMatch := h[HeaderIfMatch]
	is.True(!hasIfMatch)
}

func TestQueryRequestBody(t *testing.T) {
	is := is.New(t)

	o := &AqlQueryOptions{Count: true, BatchSize: 2, AllowRetry: true, OptimizerRules: []string{"-all"}}
	b, err := json.Marshal(o.Request("FOR d IN @@c RETURN d", map[string]any{"@c": "users"}))
	is.NoErr(err)
	is.Equal(string(b), `{"query":"FOR d IN @@c RETURN d","bindVars":{"@c":"users"},"count":true,"batchSize":2,"options":{"allowRetry":true,"optimizer":{"rules":["-all"]}}}`)

	b, err = json.Marshal((&AqlQueryOptions{BatchSize: 10}).Request("RETURN 1", nil))
	is.NoErr(err)
	is.Equal(string(b), `{"query":"RETURN 1","batchSize":10}`)
}

func TestIndexDefinitions(t *testing.T) {
	is := is.New(t)

	d := (&PersistentIndexOptions{Unique: true, Name: "by_name"}).Definition([]string{"name"})
	b, err := json.Marshal(d)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"persistent","fields":["name"],"name":"by_name","unique":true,"sparse":false}`)

	ttl := (*TTLIndexOptions)(nil).Definition("expiresAt", 0)
	b, err = json.Marshal(ttl)
	is.NoErr(err)
	is.Equal(string(b), `{"type":"ttl","fields":["expiresAt"],"expireAfter":0}`)
}

func TestReplicationFactorEncoding(t *testing.T) {
	is := is.New(t)

	type holder struct {
		RF ReplicationFactor `json:"replicationFactor"`
	}

	b, err := json.Marshal(holder{RF: ReplicationFactorSatellite})
	is.NoErr(err)
	is.Equal(string(b), `{"replicationFactor":"satellite"}`)

	h := holder{}
	is.NoErr(json.Unmarshal([]byte(`{"replicationFactor":3}`), &h))
	is.Equal(h.RF, ReplicationFactor(3))

	is.NoErr(json.Unmarshal([]byte(`{"replicationFactor":"satellite"}`), &h))
	is.Equal(h.RF, ReplicationFactorSatellite)

	is.True(json.Unmarshal([]byte(`{"replicationFactor":"lots"}`), &h) != nil)

	s, err := velocypack.Marshal(holder{RF: 2})
	is.NoErr(err)

	h = holder{}
	is.NoErr(velocypack.Unmarshal(s, &h))
	is.Equal(h.RF, ReplicationFactor(2))
}

func TestDocumentHandles(t *testing.T) {
	is := is.New(t)

	is.Equal(DocumentID("users", "1"), "users/1")

	c, k, err := SplitDocumentID("users/1")
	is.NoErr(err)
	is.Equal(c, "users")
	is.Equal(k, "1")

	_, _, err = SplitDocumentID("no-slash")
	is.True(err != nil)
}

func TestGraphVertexCollections(t *testing.T) {
	is := is.New(t)

	g := GraphEntity{
		EdgeDefinitions: []EdgeDefinition{
			{Collection: "knows", From: []string{"people"}, To: []string{"people", "pets"}},
		},
		OrphanCollections: []string{"places"},
	}

	is.Equal(g.VertexCollections(), []string{"people", "pets", "places"})
}

func TestLogOptionsParams(t *testing.T) {
	is := is.New(t)

	q := (&LogOptions{Upto: LogLevelWarning, Size: 10, Sort: LogSortDescending}).Params()
	is.Equal(q.Get("upto"), "WARNING")
	is.Equal(q.Get("size"), "10")
	is.Equal(q.Get("sort"), "desc")
	is.Equal(q.Get("offset"), "")
}
