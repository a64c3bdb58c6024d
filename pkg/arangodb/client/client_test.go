package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var method = expects.RequestMethod
var path = expects.RequestPath
var body = expects.RequestBody
var queryParam = expects.QueryParamEquals

type user struct {
	arangodb.DocumentMeta
	Name string `json:"name"`
	Age  int    `json:"age,omitempty"`
}

func newTestClient(is *is.I, url string) ArangoDB {
	c, err := New(Hosts(url))
	is.NoErr(err)
	return c
}

func TestVersion(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodGet), path("/_db/_system/_api/version"), queryParam("details", "true")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"server":"arango","version":"3.11.4","license":"community"}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())
	defer c.Close()

	v, err := c.Version(context.Background())
	is.NoErr(err)
	is.Equal(v.Version, "3.11.4")
}

func TestInsertDocumentDecodesNewObject(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/_db/mydb/_api/document/users"),
			queryParam("returnNew", "true"),
			body(`{"name":"alice"}`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusCreated),
			response.Body([]byte(`{"_key":"1","_id":"users/1","_rev":"_a","new":{"_key":"1","_id":"users/1","_rev":"_a","name":"alice"}}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	stored := user{}
	meta, err := c.DB("mydb").Collection("users").InsertDocument(context.Background(),
		map[string]string{"name": "alice"},
		&arangodb.DocumentCreateOptions{NewObject: &stored},
	)
	is.NoErr(err)
	is.Equal(meta.Key, "1")
	is.Equal(meta.ID, "users/1")
	is.Equal(stored.Name, "alice")
	is.Equal(stored.Rev, "_a")
}

func TestReadMissingDocumentIsNotFound(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodGet), path("/_db/mydb/_api/document/users/nope")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusNotFound),
			response.Body([]byte(`{"error":true,"code":404,"errorNum":1202,"errorMessage":"document not found"}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	_, err := c.DB("mydb").Collection("users").ReadDocument(context.Background(), "nope", &user{}, nil)
	is.True(errors.IsNotFound(err))
	is.True(errors.IsErrorNum(err, errors.ErrorArangoDocumentNotFound))
}

func TestDocumentExistsMapsNotFoundToFalse(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodHead), path("/_db/mydb/_api/document/users/nope")),
		Returns(response.Code(http.StatusNotFound)),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	exists, err := c.DB("mydb").Collection("users").DocumentExists(context.Background(), "nope", nil)
	is.NoErr(err)
	is.True(!exists)
}

func TestEmptyKeyIsRejectedBeforeSending(t *testing.T) {
	is := is.New(t)

	c := newTestClient(is, "http://127.0.0.1:1")

	_, err := c.DB("mydb").Collection("users").ReadDocument(context.Background(), "", nil, nil)
	is.True(errors.Is(err, errors.ErrBadRequest))
}

func TestPreconditionFailedOnRevisionMismatch(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodPatch), path("/_db/mydb/_api/document/users/1")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusPreconditionFailed),
			response.Body([]byte(`{"error":true,"code":412,"errorNum":1200,"errorMessage":"conflict, _rev values do not match"}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	_, err := c.DB("mydb").Collection("users").UpdateDocument(context.Background(), "1",
		map[string]int{"age": 3},
		&arangodb.DocumentUpdateOptions{IfMatch: "_old"},
	)
	is.True(errors.IsPreconditionFailed(err))
	is.True(!errors.IsConflict(err))
}

func TestInsertDocumentsSplitsDocumentsAndErrors(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodPost), path("/_db/mydb/_api/document/users"), queryParam("returnNew", "true")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusAccepted),
			response.Body([]byte(`[
				{"_key":"1","_id":"users/1","_rev":"_a","new":{"_key":"1","name":"alice"}},
				{"error":true,"errorNum":1210,"code":409,"errorMessage":"unique constraint violated"},
				{"_key":"3","_id":"users/3","_rev":"_c","new":{"_key":"3","name":"carol"}}
			]`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	created := []user{}
	result, err := c.DB("mydb").Collection("users").InsertDocuments(context.Background(),
		[]user{{Name: "alice"}, {Name: "bob"}, {Name: "carol"}},
		&arangodb.DocumentCreateOptions{NewObject: &created},
	)
	is.NoErr(err)

	is.True(result.HasErrors())
	is.Equal(len(result.Documents), 2)
	is.Equal(len(result.Errors), 1)
	is.Equal(result.Errors[0].ErrorNum, errors.ErrorArangoUniqueConstraintViolated)
	is.Equal(len(result.DocumentsAndErrors), 3)

	_, isError := result.DocumentsAndErrors[1].(arangodb.ErrorEntity)
	is.True(isError)

	is.Equal(len(created), 3)
	is.Equal(created[0].Name, "alice")
	is.Equal(created[1].Name, "")
	is.Equal(created[2].Key, "3")
}

func TestMultiDocumentTargetMustBeSlice(t *testing.T) {
	is := is.New(t)

	c := newTestClient(is, "http://127.0.0.1:1")

	notASlice := user{}
	_, err := c.DB("mydb").Collection("users").InsertDocuments(context.Background(),
		[]user{{Name: "alice"}},
		&arangodb.DocumentCreateOptions{NewObject: &notASlice},
	)
	is.True(errors.Is(err, errors.ErrBadRequest))
}

func TestImportSendsJSONList(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/_db/mydb/_api/import"),
			queryParam("collection", "users"),
			queryParam("type", "list"),
			queryParam("onDuplicate", "update"),
			body(`[{"name":"alice"},{"name":"bob"}]`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusCreated),
			response.Body([]byte(`{"created":2,"errors":0,"empty":0,"updated":0,"ignored":0}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	result, err := c.DB("mydb").Collection("users").ImportDocuments(context.Background(),
		[]map[string]string{{"name": "alice"}, {"name": "bob"}},
		&arangodb.DocumentImportOptions{OnDuplicate: arangodb.OnDuplicateUpdate},
	)
	is.NoErr(err)
	is.Equal(result.Created, int64(2))
}

func TestEnsureIndexReportsCreation(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/_db/mydb/_api/index"),
			queryParam("collection", "users"),
			body(`{"type":"persistent","fields":["name"],"unique":true,"sparse":false}`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusCreated),
			response.Body([]byte(`{"id":"users/42","name":"idx_42","type":"persistent","fields":["name"],"unique":true,"sparse":false}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	index, err := c.DB("mydb").Collection("users").EnsurePersistentIndex(context.Background(), []string{"name"}, &arangodb.PersistentIndexOptions{Unique: true})
	is.NoErr(err)
	is.True(index.IsNewlyCreated)
	is.Equal(index.CollectionName(), "users")
}

type cursorServer struct {
	deletes   atomic.Int32
	nextBatch atomic.Value
}

func newCursorServer(t *testing.T, cs *cursorServer) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /_db/mydb/_api/cursor", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		req := arangodb.QueryRequest{}
		if err := json.Unmarshal(b, &req); err != nil || req.BatchSize != 2 {
			t.Errorf("unexpected cursor request: %s", string(b))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"42","result":[{"_key":"a","name":"alice"},{"_key":"b","name":"bob"}],"hasMore":true,"count":3,"cached":false,"nextBatchId":"2","extra":{"stats":{"scannedFull":3}}}`))
	})

	next := func(w http.ResponseWriter, r *http.Request) {
		cs.nextBatch.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"result":[{"_key":"c","name":"carol"}],"hasMore":false,"cached":false,"extra":{"stats":{"scannedFull":3,"executionTime":0.5}}}`))
	}
	mux.HandleFunc("POST /_db/mydb/_api/cursor/42", next)
	mux.HandleFunc("POST /_db/mydb/_api/cursor/42/2", next)

	mux.HandleFunc("DELETE /_db/mydb/_api/cursor/42", func(w http.ResponseWriter, r *http.Request) {
		cs.deletes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"42","error":false,"code":202}`))
	})

	return httptest.NewServer(mux)
}

func TestCursorFetchesFollowUpBatches(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cs := &cursorServer{}
	s := newCursorServer(t, cs)
	defer s.Close()

	c := newTestClient(is, s.URL)

	cursor, err := c.DB("mydb").Query(ctx, "FOR u IN users RETURN u", nil, &arangodb.AqlQueryOptions{BatchSize: 2, Count: true})
	is.NoErr(err)

	count, ok := cursor.Count()
	is.True(ok)
	is.Equal(count, int64(3))
	is.Equal(cursor.ID(), "42")

	names := []string{}
	for cursor.HasMore() {
		u := user{}
		meta, err := cursor.ReadDocument(ctx, &u)
		is.NoErr(err)
		is.Equal(meta.Key, u.Key)
		names = append(names, u.Name)
	}

	is.Equal(names, []string{"alice", "bob", "carol"})
	is.Equal(cs.nextBatch.Load(), "/_db/mydb/_api/cursor/42")
	is.Equal(cursor.Statistics().ExecutionTime, 0.5)

	_, err = cursor.ReadDocument(ctx, &user{})
	is.True(errors.Is(err, errors.ErrNoMoreDocuments))

	is.NoErr(cursor.Close(ctx))
	is.Equal(cs.deletes.Load(), int32(0)) // drained cursors are gone on the server already

	_, err = cursor.ReadDocument(ctx, &user{})
	is.True(errors.Is(err, errors.ErrCursorClosed))
}

func TestCursorWithRetryUsesBatchID(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cs := &cursorServer{}
	s := newCursorServer(t, cs)
	defer s.Close()

	c := newTestClient(is, s.URL)

	users, err := QueryAll[user](ctx, c.DB("mydb"), "FOR u IN users RETURN u", nil, &arangodb.AqlQueryOptions{BatchSize: 2, AllowRetry: true})
	is.NoErr(err)
	is.Equal(len(users), 3)
	is.Equal(cs.nextBatch.Load(), "/_db/mydb/_api/cursor/42/2")
}

func TestClosingUndrainedCursorDeletesIt(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cs := &cursorServer{}
	s := newCursorServer(t, cs)
	defer s.Close()

	c := newTestClient(is, s.URL)

	cursor, err := c.DB("mydb").Query(ctx, "FOR u IN users RETURN u", nil, &arangodb.AqlQueryOptions{BatchSize: 2})
	is.NoErr(err)

	_, err = cursor.ReadDocument(ctx, nil)
	is.NoErr(err)

	is.NoErr(cursor.Close(ctx))
	is.NoErr(cursor.Close(ctx))
	is.Equal(cs.deletes.Load(), int32(1))
	is.True(!cursor.HasMore())
}

func TestCursorSkipsEmptyBatches(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	var fetches atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /_db/mydb/_api/cursor", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"7","result":[],"hasMore":true,"cached":false}`))
	})
	mux.HandleFunc("POST /_db/mydb/_api/cursor/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if fetches.Add(1) < 3 {
			w.Write([]byte(`{"result":[],"hasMore":true,"cached":false}`))
			return
		}
		w.Write([]byte(`{"result":[{"_key":"a","name":"alice"}],"hasMore":false,"cached":false}`))
	})

	s := httptest.NewServer(mux)
	defer s.Close()

	c := newTestClient(is, s.URL)

	cursor, err := c.DB("mydb").Query(ctx, "FOR u IN users RETURN u", nil, nil)
	is.NoErr(err)
	is.True(cursor.HasMore())

	u := user{}
	_, err = cursor.ReadDocument(ctx, &u)
	is.NoErr(err)
	is.Equal(u.Name, "alice")
	is.Equal(fetches.Load(), int32(3))
	is.True(!cursor.HasMore())
}

func TestForEachStopsOnCallbackError(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cs := &cursorServer{}
	s := newCursorServer(t, cs)
	defer s.Close()

	c := newTestClient(is, s.URL)

	cursor, err := c.DB("mydb").Query(ctx, "FOR u IN users RETURN u", nil, &arangodb.AqlQueryOptions{BatchSize: 2})
	is.NoErr(err)

	stop := errors.ErrBadRequest
	seen := 0
	err = ForEach(ctx, cursor, func(u user, _ arangodb.DocumentMeta) error {
		seen++
		return stop
	})

	is.Equal(err, stop)
	is.Equal(seen, 1)
	is.Equal(cs.deletes.Load(), int32(1))
}

func TestReadVertexThroughGraph(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodGet), path("/_db/mydb/_api/gharial/social/vertex/people/alice")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"error":false,"code":200,"vertex":{"_key":"alice","_id":"people/alice","_rev":"_x","name":"Alice"}}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	alice := user{}
	meta, err := c.DB("mydb").Graph("social").VertexCollection("people").ReadVertex(context.Background(), "alice", &alice, nil)
	is.NoErr(err)
	is.Equal(meta.ID, "people/alice")
	is.Equal(alice.Name, "Alice")
}

func TestCreateGraphSendsDefinitions(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/_db/mydb/_api/gharial"),
			body(`{"name":"social","edgeDefinitions":[{"collection":"knows","from":["people"],"to":["people"]}]}`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusAccepted),
			response.Body([]byte(`{"error":false,"code":202,"graph":{"name":"social","edgeDefinitions":[{"collection":"knows","from":["people"],"to":["people"]}],"orphanCollections":[]}}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	g, err := c.DB("mydb").CreateGraph(context.Background(), "social",
		[]arangodb.EdgeDefinition{{Collection: "knows", From: []string{"people"}, To: []string{"people"}}}, nil)
	is.NoErr(err)
	is.Equal(g.Name(), "social")
}

func TestJavaScriptTransactionResult(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodPost), path("/_db/mydb/_api/transaction")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"error":false,"code":200,"result":42}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	result := 0
	err := c.DB("mydb").Transaction(context.Background(), "function () { return 42; }", &result,
		&arangodb.TransactionOptions{WriteCollections: []string{"users"}})
	is.NoErr(err)
	is.Equal(result, 42)
}

func TestStreamTransactionHeaderIsForwarded(t *testing.T) {
	is := is.New(t)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(arangodb.HeaderStreamTransactionID) != "trx1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"count":7}`))
	}))
	defer s.Close()

	c := newTestClient(is, s.URL)

	count, err := c.DB("mydb").Collection("users").Count(context.Background(), &arangodb.CollectionCountOptions{StreamTransactionID: "trx1"})
	is.NoErr(err)
	is.Equal(count, int64(7))
}

func TestUnexpectedSuccessCodeIsBadResponse(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, expects.AnyInput()),
		Returns(response.ContentType("application/json"), response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	_, err := c.Engine(context.Background())
	is.True(errors.Is(err, errors.ErrBadResponse))
}

func TestRouteIsImmutable(t *testing.T) {
	is := is.New(t)

	c := newTestClient(is, "http://127.0.0.1:1")

	base := c.DB("mydb").Route("_api", "foxx")
	service := base.With("/my service/").WithQueryParam("mount", "/x")

	is.Equal(base.Path(), "/_api/foxx")
	is.Equal(service.Path(), "/_api/foxx/my%20service")

	r := base.(*route)
	is.Equal(len(r.query), 0)
}

func TestRouteReturnsServerErrors(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodGet), path("/_db/mydb/custom/hello"), queryParam("name", "x")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusForbidden),
			response.Body([]byte(`{"error":true,"code":403,"errorNum":11,"errorMessage":"forbidden"}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	resp, err := c.DB("mydb").Route("custom", "hello").WithQueryParam("name", "x").Get(context.Background())
	is.True(errors.Is(err, errors.ErrForbidden))
	is.Equal(resp.StatusCode, http.StatusForbidden)
}

func TestAccessibleDatabasesForUserAreSorted(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodGet), path("/_db/_system/_api/user/bob/database")),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"error":false,"code":200,"result":{"zoo":"rw","app":"ro"}}`)),
		),
	)
	defer s.Close()

	c := newTestClient(is, s.URL())

	names, err := c.AccessibleDatabasesFor(context.Background(), "bob")
	is.NoErr(err)
	is.Equal(names, []string{"app", "zoo"})
}
