package client

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/connection"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/matryer/is"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const integrationPassword = "integration"

func startArangoDB(t *testing.T) string {
	if os.Getenv("ARANGODB_INTEGRATION") != "true" {
		t.Skip("set ARANGODB_INTEGRATION=true to run against a containerized server")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "arangodb:3.11",
			ExposedPorts: []string{"8529/tcp"},
			Env:          map[string]string{"ARANGO_ROOT_PASSWORD": integrationPassword},
			WaitingFor: wait.ForHTTP("/_api/version").
				WithPort("8529/tcp").
				WithStatusCodeMatcher(func(status int) bool { return status == 200 || status == 401 }).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start arangodb container: %s", err.Error())
	}

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err.Error())
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "8529/tcp", "http")
	if err != nil {
		t.Fatalf("failed to resolve container endpoint: %s", err.Error())
	}

	return endpoint
}

func TestAgainstArangoDB(t *testing.T) {
	endpoint := startArangoDB(t)

	for _, protocol := range []connection.Protocol{connection.ProtocolHTTPJSON, connection.ProtocolHTTPVPack, connection.ProtocolVST} {
		t.Run(protocol.String(), func(t *testing.T) {
			is := is.New(t)
			ctx := context.Background()

			c, err := New(Hosts(endpoint), BasicAuthentication("root", integrationPassword), Protocol(protocol))
			is.NoErr(err)
			defer c.Close()

			v, err := c.Version(ctx)
			is.NoErr(err)
			is.True(v.Version != "")

			name := "it_" + protocol.String()
			db, err := c.CreateDatabase(ctx, name, nil)
			is.NoErr(err)
			defer db.Drop(ctx)

			users, err := db.CreateCollection(ctx, "users", nil)
			is.NoErr(err)

			meta, err := users.InsertDocument(ctx, user{Name: "alice", Age: 30}, nil)
			is.NoErr(err)

			alice := user{}
			_, err = users.ReadDocument(ctx, meta.Key, &alice, nil)
			is.NoErr(err)
			is.Equal(alice.Name, "alice")

			_, err = users.UpdateDocument(ctx, meta.Key, map[string]int{"age": 31}, &arangodb.DocumentUpdateOptions{IfMatch: "_nope"})
			is.True(errors.IsPreconditionFailed(err))

			created := []user{}
			result, err := users.InsertDocuments(ctx,
				[]user{{Name: "bob"}, {DocumentMeta: arangodb.DocumentMeta{Key: meta.Key}, Name: "dup"}},
				&arangodb.DocumentCreateOptions{NewObject: &created},
			)
			is.NoErr(err)
			is.Equal(len(result.Errors), 1)
			is.Equal(created[0].Name, "bob")

			all, err := QueryAll[user](ctx, db, "FOR u IN users SORT u.name RETURN u", nil, &arangodb.AqlQueryOptions{BatchSize: 1})
			is.NoErr(err)
			is.Equal(len(all), 2)

			_, err = users.ReadDocument(ctx, "missing", nil, nil)
			is.True(errors.IsNotFound(err))
		})
	}
}
