package fakearango

import (
	"context"
	"testing"

	"github.com/diwise/arangodb-driver/pkg/arangodb"
	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/matryer/is"
)

func newQueryFixture(is *is.I) (*Server, *database) {
	s, err := New(context.Background())
	is.NoErr(err)

	db := s.databases[systemDatabase]
	c := newCollection(s.nextID(), "cities", arangodb.CollectionCreateOptions{})
	db.collections[c.name] = c

	for _, city := range []map[string]any{
		{"_key": "sundsvall", "name": "Sundsvall", "population": 99000, "coastal": true},
		{"_key": "ostersund", "name": "Östersund", "population": 64000, "coastal": false},
		{"_key": "umea", "name": "Umeå", "population": 130000, "coastal": true},
	} {
		_, _, err := s.insert(c, city, writeOptions{keepNull: true, mergeObjects: true, ignoreRevs: true})
		is.NoErr(err)
	}

	return s, db
}

func run(s *Server, db *database, query string, bindVars map[string]any) ([]any, error) {
	q, err := parseAQL(query)
	if err != nil {
		return nil, err
	}
	if err := q.checkBindVars(bindVars); err != nil {
		return nil, err
	}
	result, err := s.execute(db, q, bindVars)
	if err != nil {
		return nil, err
	}
	return result.results, nil
}

func TestQueryFiltersAndSorts(t *testing.T) {
	is := is.New(t)
	s, db := newQueryFixture(is)

	results, err := run(s, db, "FOR c IN cities FILTER c.coastal == true SORT c.population DESC RETURN c.name", nil)
	is.NoErr(err)
	is.Equal(results, []any{"Umeå", "Sundsvall"})
}

func TestQueryWithBindParameters(t *testing.T) {
	is := is.New(t)
	s, db := newQueryFixture(is)

	results, err := run(s, db,
		"FOR c IN @@collection FILTER c.population >= @min && c._key != 'umea' SORT c._key RETURN c._key",
		map[string]any{"@collection": "cities", "min": 60000},
	)
	is.NoErr(err)
	is.Equal(results, []any{"ostersund", "sundsvall"})
}

func TestQueryLimitWithOffset(t *testing.T) {
	is := is.New(t)
	s, db := newQueryFixture(is)

	results, err := run(s, db, "FOR c IN cities SORT c.population LIMIT 1, 1 RETURN c._key", nil)
	is.NoErr(err)
	is.Equal(results, []any{"sundsvall"})
}

func TestQueryOverRange(t *testing.T) {
	is := is.New(t)
	s, db := newQueryFixture(is)

	results, err := run(s, db, "FOR i IN 1..5 FILTER i NOT IN [2, 4] RETURN {value: i}", nil)
	is.NoErr(err)
	is.Equal(len(results), 3)
	is.Equal(results[0], map[string]any{"value": int64(1)})
}

func TestQueryReturnDistinct(t *testing.T) {
	is := is.New(t)
	s, db := newQueryFixture(is)

	results, err := run(s, db, "FOR c IN cities SORT c.coastal RETURN DISTINCT c.coastal", nil)
	is.NoErr(err)
	is.Equal(results, []any{false, true})
}

func TestQueryInsertAndRemove(t *testing.T) {
	is := is.New(t)
	s, db := newQueryFixture(is)

	_, err := run(s, db, "FOR i IN 1..2 INSERT {_key: CONCAT_KEY} INTO cities", nil)
	is.True(err != nil)

	_, err = run(s, db, "INSERT {_key: 'kiruna', name: 'Kiruna'} INTO cities", nil)
	is.NoErr(err)
	is.Equal(len(db.collections["cities"].documents), 4)

	results, err := run(s, db, "FOR c IN cities FILTER c.coastal == false REMOVE c IN cities RETURN OLD._key", nil)
	is.NoErr(err)
	is.Equal(results, []any{"ostersund"})
	is.Equal(len(db.collections["cities"].documents), 3)

	_, err = run(s, db, "FOR k IN @keys REMOVE k IN @@col", map[string]any{"keys": []any{"umea", "kiruna"}, "@col": "cities"})
	is.NoErr(err)
	is.Equal(len(db.collections["cities"].documents), 1)
}

func TestQueryWithoutReturnMustWrite(t *testing.T) {
	is := is.New(t)

	_, err := parseAQL("FOR c IN cities FILTER c.coastal")
	is.True(err != nil)
	is.Equal(err.(*apiError).errorNum, errors.ErrorQueryParse)
}

func TestEmptyQuery(t *testing.T) {
	is := is.New(t)

	_, err := parseAQL("   ")
	is.Equal(err.(*apiError).errorNum, errors.ErrorQueryEmpty)
}

func TestMissingBindParameter(t *testing.T) {
	is := is.New(t)

	q, err := parseAQL("FOR c IN cities FILTER c.name == @name RETURN c")
	is.NoErr(err)

	err = q.checkBindVars(map[string]any{})
	is.Equal(err.(*apiError).errorNum, errors.ErrorQueryBindParameterMissing)

	err = q.checkBindVars(map[string]any{"name": "Umeå", "unused": 1})
	is.Equal(err.(*apiError).errorNum, errors.ErrorBadParameter)
}

func TestUnknownCollection(t *testing.T) {
	is := is.New(t)
	s, db := newQueryFixture(is)

	_, err := run(s, db, "FOR c IN towns RETURN c", nil)
	is.Equal(err.(*apiError).code, 404)
}
