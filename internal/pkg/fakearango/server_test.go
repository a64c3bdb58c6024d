package fakearango

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/diwise/arangodb-driver/pkg/arangodb/connection"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/matryer/is"
)

type city struct {
	arangodb.DocumentMeta
	Name       string `json:"name"`
	Population int    `json:"population,omitempty"`
}

// newTestServer starts the fake on an HTTP and a VST listener and returns both endpoints
func newTestServer(t *testing.T, options ...Option) (string, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	s, err := New(ctx, options...)
	if err != nil {
		t.Fatalf("failed to create server: %s", err.Error())
	}

	httpServer := httptest.NewServer(s)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %s", err.Error())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ServeVST(ctx, l)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		httpServer.Close()
	})

	return httpServer.URL, "http://" + l.Addr().String()
}

func newClient(is *is.I, endpoint string, options ...client.Option) client.ArangoDB {
	c, err := client.New(append([]client.Option{client.Hosts(endpoint)}, options...)...)
	is.NoErr(err)
	return c
}

func TestDocumentsOverEveryProtocol(t *testing.T) {
	httpURL, vstURL := newTestServer(t)

	protocols := map[string]struct {
		protocol connection.Protocol
		endpoint string
	}{
		"json":  {connection.ProtocolHTTPJSON, httpURL},
		"vpack": {connection.ProtocolHTTPVPack, httpURL},
		"vst":   {connection.ProtocolVST, vstURL},
	}

	for name, p := range protocols {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			ctx := context.Background()

			c := newClient(is, p.endpoint, client.Protocol(p.protocol))
			defer c.Close()

			v, err := c.Version(ctx)
			is.NoErr(err)
			is.Equal(v.Version, serverVersion)

			db, err := c.CreateDatabase(ctx, "db_"+name, nil)
			is.NoErr(err)
			defer db.Drop(ctx)

			cities, err := db.CreateCollection(ctx, "cities", nil)
			is.NoErr(err)

			meta, err := cities.InsertDocument(ctx, city{Name: "Sundsvall", Population: 99000}, nil)
			is.NoErr(err)
			is.True(meta.Key != "")

			sundsvall := city{}
			_, err = cities.ReadDocument(ctx, meta.Key, &sundsvall, nil)
			is.NoErr(err)
			is.Equal(sundsvall.Name, "Sundsvall")

			_, err = cities.UpdateDocument(ctx, meta.Key, map[string]int{"population": 100000}, &arangodb.DocumentUpdateOptions{IfMatch: "_nope"})
			is.True(errors.IsPreconditionFailed(err))

			created := []city{}
			result, err := cities.InsertDocuments(ctx,
				[]city{{Name: "Umeå"}, {DocumentMeta: arangodb.DocumentMeta{Key: meta.Key}, Name: "dup"}},
				&arangodb.DocumentCreateOptions{NewObject: &created},
			)
			is.NoErr(err)
			is.Equal(len(result.Errors), 1)
			is.Equal(created[0].Name, "Umeå")

			all, err := client.QueryAll[city](ctx, db, "FOR c IN cities SORT c.population DESC RETURN c", nil, &arangodb.AqlQueryOptions{BatchSize: 1})
			is.NoErr(err)
			is.Equal(len(all), 2)
			is.Equal(all[0].Name, "Sundsvall")

			_, err = cities.ReadDocument(ctx, "missing", nil, nil)
			is.True(errors.IsNotFound(err))
		})
	}
}

func TestAuthentication(t *testing.T) {
	httpURL, vstURL := newTestServer(t, WithRootPassword("secret"))

	t.Run("http", func(t *testing.T) {
		is := is.New(t)
		ctx := context.Background()

		c := newClient(is, httpURL, client.BasicAuthentication("root", "wrong"))
		defer c.Close()

		_, err := c.Databases(ctx)
		is.True(errors.IsUnauthorized(err))

		c = newClient(is, httpURL, client.BasicAuthentication("root", "secret"))
		defer c.Close()

		names, err := c.Databases(ctx)
		is.NoErr(err)
		is.Equal(names, []string{systemDatabase})
	})

	t.Run("vst", func(t *testing.T) {
		is := is.New(t)

		c := newClient(is, vstURL, client.Protocol(connection.ProtocolVST), client.BasicAuthentication("root", "secret"))
		defer c.Close()

		names, err := c.Databases(context.Background())
		is.NoErr(err)
		is.Equal(names, []string{systemDatabase})
	})
}

func TestUsersAreLimitedByTheirPermissions(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	httpURL, _ := newTestServer(t, WithRootPassword("secret"))

	root := newClient(is, httpURL, client.BasicAuthentication("root", "secret"))
	defer root.Close()

	db, err := root.CreateDatabase(ctx, "sensors", nil)
	is.NoErr(err)
	_, err = db.CreateCollection(ctx, "readings", nil)
	is.NoErr(err)

	_, err = root.CreateUser(ctx, "reader", "pw", nil)
	is.NoErr(err)
	is.NoErr(db.GrantAccess(ctx, "reader", arangodb.PermissionsReadOnly))

	reader := newClient(is, httpURL, client.BasicAuthentication("reader", "pw"))
	defer reader.Close()

	readings := reader.DB("sensors").Collection("readings")

	count, err := readings.Count(ctx, nil)
	is.NoErr(err)
	is.Equal(count, int64(0))

	_, err = readings.InsertDocument(ctx, map[string]any{"value": 1}, nil)
	is.True(errors.Is(err, errors.ErrForbidden))

	_, err = reader.CreateDatabase(ctx, "other", nil)
	is.True(errors.Is(err, errors.ErrForbidden))
}

func TestStreamTransactionLifecycle(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	httpURL, _ := newTestServer(t)

	c := newClient(is, httpURL)
	defer c.Close()

	db := c.DB(systemDatabase)
	_, err := db.CreateCollection(ctx, "accounts", nil)
	is.NoErr(err)

	trx, err := db.BeginStreamTransaction(ctx, &arangodb.StreamTransactionOptions{WriteCollections: []string{"accounts"}})
	is.NoErr(err)
	is.Equal(trx.Status, arangodb.StreamTransactionRunning)

	running, err := db.StreamTransactions(ctx)
	is.NoErr(err)
	is.Equal(len(running), 1)

	accounts := db.Collection("accounts")
	_, err = accounts.InsertDocument(ctx, map[string]any{"balance": 10}, &arangodb.DocumentCreateOptions{StreamTransactionID: trx.ID})
	is.NoErr(err)

	committed, err := db.CommitStreamTransaction(ctx, trx.ID)
	is.NoErr(err)
	is.Equal(committed.Status, arangodb.StreamTransactionCommitted)

	_, err = db.AbortStreamTransaction(ctx, trx.ID)
	is.True(err != nil)

	_, err = accounts.InsertDocument(ctx, map[string]any{"balance": 20}, &arangodb.DocumentCreateOptions{StreamTransactionID: trx.ID})
	is.True(err != nil)

	_, err = db.BeginStreamTransaction(ctx, &arangodb.StreamTransactionOptions{ReadCollections: []string{"missing"}})
	is.True(errors.IsNotFound(err))
}

func TestImportDocuments(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	httpURL, _ := newTestServer(t)

	c := newClient(is, httpURL)
	defer c.Close()

	db := c.DB(systemDatabase)
	cities, err := db.CreateCollection(ctx, "cities", nil)
	is.NoErr(err)

	result, err := cities.ImportDocuments(ctx, []map[string]any{
		{"_key": "sundsvall", "name": "Sundsvall"},
		{"_key": "umea", "name": "Umeå"},
		{"_key": "sundsvall", "name": "Sundsvall again"},
	}, &arangodb.DocumentImportOptions{Details: true})
	is.NoErr(err)
	is.Equal(result.Created, int64(2))
	is.Equal(result.Errors, int64(1))
	is.Equal(len(result.Details), 1)

	result, err = cities.ImportDocuments(ctx, []map[string]any{
		{"_key": "sundsvall", "name": "Sundsvall", "population": 99000},
	}, &arangodb.DocumentImportOptions{OnDuplicate: arangodb.OnDuplicateUpdate})
	is.NoErr(err)
	is.Equal(result.Updated, int64(1))

	count, err := cities.Count(ctx, nil)
	is.NoErr(err)
	is.Equal(count, int64(2))
}

func TestConditionalRead(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	httpURL, _ := newTestServer(t)

	c := newClient(is, httpURL)
	defer c.Close()

	cities, err := c.DB(systemDatabase).CreateCollection(ctx, "cities", nil)
	is.NoErr(err)

	meta, err := cities.InsertDocument(ctx, city{Name: "Östersund"}, nil)
	is.NoErr(err)

	result := city{}
	read, err := cities.ReadDocument(ctx, meta.Key, &result, &arangodb.DocumentReadOptions{IfNoneMatch: meta.Rev})
	is.NoErr(err)
	is.Equal(read.Rev, meta.Rev)
	is.Equal(result.Name, "")

	exists, err := cities.DocumentExists(ctx, meta.Key, nil)
	is.NoErr(err)
	is.True(exists)
}
