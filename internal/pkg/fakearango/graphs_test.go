package fakearango

import (
	"context"
	"testing"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/matryer/is"
)

func newGraphFixture(t *testing.T, is *is.I) (client.Database, client.Graph) {
	httpURL, _ := newTestServer(t)

	c := newClient(is, httpURL)
	t.Cleanup(func() { c.Close() })

	db := c.DB(systemDatabase)

	g, err := db.CreateGraph(context.Background(), "roads", []arangodb.EdgeDefinition{
		{Collection: "connects", From: []string{"cities"}, To: []string{"cities"}},
	}, nil)
	is.NoErr(err)

	return db, g
}

func TestCreateGraphCreatesCollections(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db, g := newGraphFixture(t, is)

	info, err := db.Collection("connects").Info(ctx)
	is.NoErr(err)
	is.Equal(info.Type, arangodb.CollectionTypeEdge)

	vertices, err := g.VertexCollections(ctx)
	is.NoErr(err)
	is.Equal(vertices, []string{"cities"})

	_, err = db.CreateGraph(ctx, "roads", nil, nil)
	is.True(errors.IsConflict(err))

	graphs, err := db.Graphs(ctx)
	is.NoErr(err)
	is.Equal(len(graphs), 1)
	is.Equal(graphs[0].Name, "roads")
}

func TestRemovingAVertexRemovesItsEdges(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db, g := newGraphFixture(t, is)

	cities := g.VertexCollection("cities")
	for _, key := range []string{"sundsvall", "ostersund", "umea"} {
		_, err := cities.InsertVertex(ctx, map[string]any{"_key": key}, nil)
		is.NoErr(err)
	}

	connects := g.EdgeCollection("connects")
	_, err := connects.InsertEdge(ctx, map[string]any{"_from": "cities/sundsvall", "_to": "cities/ostersund", "road": "E14"}, nil)
	is.NoErr(err)
	_, err = connects.InsertEdge(ctx, map[string]any{"_from": "cities/umea", "_to": "cities/ostersund", "road": "E12"}, nil)
	is.NoErr(err)

	is.NoErr(cities.DeleteVertex(ctx, "ostersund", nil))

	count, err := db.Collection("connects").Count(ctx, nil)
	is.NoErr(err)
	is.Equal(count, int64(0))

	_, err = cities.ReadVertex(ctx, "ostersund", nil, nil)
	is.True(errors.IsNotFound(err))
}

func TestEdgesMustConnectVerticesOfTheDefinition(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	_, g := newGraphFixture(t, is)

	_, err := g.VertexCollection("cities").InsertVertex(ctx, map[string]any{"_key": "sundsvall"}, nil)
	is.NoErr(err)

	connects := g.EdgeCollection("connects")

	_, err = connects.InsertEdge(ctx, map[string]any{"_from": "cities/sundsvall", "_to": "towns/matfors"}, nil)
	is.True(errors.IsErrorNum(err, errors.ErrorGraphInvalidEdge))

	_, err = connects.InsertEdge(ctx, map[string]any{"_from": "cities/sundsvall", "_to": "cities/missing"}, nil)
	is.True(errors.IsNotFound(err))

	_, err = g.EdgeCollection("rails").InsertEdge(ctx, map[string]any{"_from": "cities/sundsvall", "_to": "cities/sundsvall"}, nil)
	is.True(errors.IsErrorNum(err, errors.ErrorGraphEdgeColDoesNotExist))
}

func TestVertexUpdates(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	_, g := newGraphFixture(t, is)

	cities := g.VertexCollection("cities")
	created, err := cities.InsertVertex(ctx, map[string]any{"_key": "umea", "name": "Umeå"}, nil)
	is.NoErr(err)

	updated := map[string]any{}
	meta, err := cities.UpdateVertex(ctx, "umea", map[string]any{"population": 130000}, &arangodb.VertexUpdateOptions{NewObject: &updated})
	is.NoErr(err)
	is.Equal(meta.OldRev, created.Rev)
	is.Equal(updated["name"], "Umeå")

	_, err = cities.ReplaceVertex(ctx, "umea", map[string]any{"name": "Umeå"}, &arangodb.VertexReplaceOptions{IfMatch: created.Rev})
	is.True(errors.IsPreconditionFailed(err))

	result := map[string]any{}
	_, err = cities.ReadVertex(ctx, "umea", &result, nil)
	is.NoErr(err)
	is.Equal(result["population"], float64(130000))
}

func TestOrphanCollections(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	_, g := newGraphFixture(t, is)

	info, err := g.AddVertexCollection(ctx, "regions", nil)
	is.NoErr(err)
	is.Equal(info.OrphanCollections, []string{"regions"})

	_, err = g.AddVertexCollection(ctx, "cities", nil)
	is.True(errors.IsErrorNum(err, errors.ErrorGraphCollectionUsedInEdgeDef))

	info, err = g.AddEdgeDefinition(ctx, arangodb.EdgeDefinition{Collection: "borders", From: []string{"regions"}, To: []string{"regions"}}, nil)
	is.NoErr(err)
	is.Equal(len(info.OrphanCollections), 0)

	names, err := g.EdgeDefinitions(ctx)
	is.NoErr(err)
	is.Equal(names, []string{"borders", "connects"})

	info, err = g.RemoveEdgeDefinition(ctx, "borders", nil)
	is.NoErr(err)
	is.Equal(info.OrphanCollections, []string{"regions"})

	is.NoErr(g.VertexCollection("regions").Drop(ctx, false))

	info, err = g.Info(ctx)
	is.NoErr(err)
	is.Equal(len(info.OrphanCollections), 0)
}

func TestDropGraphWithCollections(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db, g := newGraphFixture(t, is)

	is.NoErr(g.Drop(ctx, true))

	exists, err := g.Exists(ctx)
	is.NoErr(err)
	is.True(!exists)

	_, err = db.Collection("cities").Info(ctx)
	is.True(errors.IsNotFound(err))
}
