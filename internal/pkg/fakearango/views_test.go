package fakearango

import (
	"context"
	"testing"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/matryer/is"
)

func newViewFixture(t *testing.T, is *is.I) client.Database {
	httpURL, _ := newTestServer(t)

	c := newClient(is, httpURL)
	t.Cleanup(func() { c.Close() })

	db := c.DB(systemDatabase)

	_, err := db.CreateCollection(context.Background(), "places", nil)
	is.NoErr(err)

	return db
}

func TestCreateArangoSearchView(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db := newViewFixture(t, is)

	v, err := db.CreateArangoSearch(ctx, "places_view", &arangodb.ArangoSearchCreateOptions{
		ArangoSearchPropertiesOptions: arangodb.ArangoSearchPropertiesOptions{
			Links: map[string]arangodb.ArangoSearchLink{
				"places": {Analyzers: []string{"text_sv"}},
			},
		},
	})
	is.NoErr(err)

	props, err := v.Properties(ctx)
	is.NoErr(err)
	is.Equal(props.Type, arangodb.ViewTypeArangoSearch)
	is.Equal(props.CommitIntervalMsec, int64(1000))
	is.Equal(props.Links["places"].Analyzers, []string{"text_sv"})

	_, err = db.CreateArangoSearch(ctx, "places", nil)
	is.True(errors.IsConflict(err))

	views, err := db.Views(ctx)
	is.NoErr(err)
	is.Equal(len(views), 1)
	is.Equal(views[0].Name, "places_view")
}

func TestViewLinksMustExist(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db := newViewFixture(t, is)

	_, err := db.CreateArangoSearch(ctx, "towns_view", &arangodb.ArangoSearchCreateOptions{
		ArangoSearchPropertiesOptions: arangodb.ArangoSearchPropertiesOptions{
			Links: map[string]arangodb.ArangoSearchLink{"towns": {}},
		},
	})
	is.True(errors.IsNotFound(err))

	_, err = db.CreateArangoSearch(ctx, "places_view", &arangodb.ArangoSearchCreateOptions{
		ArangoSearchPropertiesOptions: arangodb.ArangoSearchPropertiesOptions{
			Links: map[string]arangodb.ArangoSearchLink{"places": {Analyzers: []string{"missing"}}},
		},
	})
	is.True(errors.IsErrorNum(err, errors.ErrorBadParameter))
}

func TestUpdateAndReplaceViewProperties(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db := newViewFixture(t, is)

	v, err := db.CreateArangoSearch(ctx, "places_view", nil)
	is.NoErr(err)

	props, err := v.UpdateProperties(ctx, arangodb.ArangoSearchPropertiesOptions{
		CommitIntervalMsec: 5000,
		Links:              map[string]arangodb.ArangoSearchLink{"places": {}},
	})
	is.NoErr(err)
	is.Equal(props.CommitIntervalMsec, int64(5000))
	is.Equal(len(props.Links), 1)

	props, err = v.UpdateProperties(ctx, arangodb.ArangoSearchPropertiesOptions{CleanupIntervalStep: 4})
	is.NoErr(err)
	is.Equal(props.CommitIntervalMsec, int64(5000))
	is.Equal(len(props.Links), 1)

	props, err = v.ReplaceProperties(ctx, arangodb.ArangoSearchPropertiesOptions{CleanupIntervalStep: 4})
	is.NoErr(err)
	is.Equal(props.CommitIntervalMsec, int64(1000))
	is.Equal(len(props.Links), 0)
}

func TestRenameAndDropView(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db := newViewFixture(t, is)

	v, err := db.CreateArangoSearch(ctx, "places_view", nil)
	is.NoErr(err)

	_, err = v.Rename(ctx, "places")
	is.True(errors.IsConflict(err))

	renamed, err := v.Rename(ctx, "search")
	is.NoErr(err)
	is.Equal(renamed.Name, "search")

	exists, err := db.View("places_view").Exists(ctx)
	is.NoErr(err)
	is.True(!exists)

	is.NoErr(db.View("search").Drop(ctx))

	_, err = db.View("search").Info(ctx)
	is.True(errors.IsNotFound(err))
}

func TestSearchAnalyzers(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db := newViewFixture(t, is)

	shingles := arangodb.SearchAnalyzer{
		Name:       "shingles",
		Type:       arangodb.AnalyzerTypeNgram,
		Properties: map[string]any{"min": float64(2), "max": float64(3), "preserveOriginal": false},
	}

	created, err := db.CreateSearchAnalyzer(ctx, shingles)
	is.NoErr(err)
	is.Equal(created.Name, "shingles")

	_, err = db.CreateSearchAnalyzer(ctx, shingles)
	is.NoErr(err)

	shingles.Properties = map[string]any{"min": float64(1)}
	_, err = db.CreateSearchAnalyzer(ctx, shingles)
	is.True(errors.IsErrorNum(err, errors.ErrorBadParameter))

	_, err = db.CreateSearchAnalyzer(ctx, arangodb.SearchAnalyzer{Name: "geo", Type: "geojson"})
	is.True(err != nil)

	analyzers, err := db.SearchAnalyzers(ctx)
	is.NoErr(err)
	is.Equal(len(analyzers), len(builtinAnalyzers)+1)

	_, err = db.CreateArangoSearch(ctx, "places_view", &arangodb.ArangoSearchCreateOptions{
		ArangoSearchPropertiesOptions: arangodb.ArangoSearchPropertiesOptions{
			Links: map[string]arangodb.ArangoSearchLink{"places": {Analyzers: []string{"shingles"}}},
		},
	})
	is.NoErr(err)

	err = db.DeleteSearchAnalyzer(ctx, "shingles", false)
	is.True(errors.IsConflict(err))

	is.NoErr(db.DeleteSearchAnalyzer(ctx, "shingles", true))

	_, err = db.SearchAnalyzer(ctx, "shingles")
	is.True(errors.IsNotFound(err))

	err = db.DeleteSearchAnalyzer(ctx, "text_en", false)
	is.True(errors.Is(err, errors.ErrForbidden))
}
