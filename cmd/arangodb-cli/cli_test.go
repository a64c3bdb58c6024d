package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diwise/arangodb-driver/internal/pkg/fakearango"
	"github.com/matryer/is"
)

type testCLI struct {
	url string
	out *bytes.Buffer
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()

	s, err := fakearango.New(context.Background())
	if err != nil {
		t.Fatalf("failed to create server: %s", err.Error())
	}

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	return &testCLI{url: srv.URL, out: &bytes.Buffer{}}
}

func (tc *testCLI) run(stdin string, args ...string) error {
	tc.out.Reset()

	cmd := newRootCommand("test")
	cmd.SetOut(tc.out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file", "", "--hosts", tc.url}, args...))

	return cmd.ExecuteContext(context.Background())
}

// result decodes the json printed after the heading line, if there is one
func (tc *testCLI) result(is *is.I, v any) {
	output := tc.out.String()
	if first, rest, ok := strings.Cut(output, "\n"); ok && !strings.HasPrefix(first, "[") && !strings.HasPrefix(first, "{") {
		output = rest
	}
	is.NoErr(json.Unmarshal([]byte(output), v))
}

func TestDatabasesAndCollections(t *testing.T) {
	is := is.New(t)
	tc := newTestCLI(t)

	is.NoErr(tc.run("", "databases", "create", "sensors"))
	is.NoErr(tc.run("", "databases", "list"))

	names := []string{}
	tc.result(is, &names)
	is.Equal(names, []string{"_system", "sensors"})

	is.NoErr(tc.run("", "--database", "sensors", "collections", "create", "readings"))
	is.NoErr(tc.run("", "--database", "sensors", "collections", "create", "--edge", "links"))
	is.NoErr(tc.run("", "-d", "sensors", "collections", "list"))

	collections := []map[string]any{}
	tc.result(is, &collections)
	is.Equal(len(collections), 2)

	is.NoErr(tc.run("", "-d", "sensors", "collections", "count", "readings"))
	var count int64
	tc.result(is, &count)
	is.Equal(count, int64(0))

	is.NoErr(tc.run("", "-d", "sensors", "collections", "drop", "links"))
	is.True(tc.run("", "-d", "sensors", "collections", "count", "links") != nil)
}

func TestDocumentsAndQueries(t *testing.T) {
	is := is.New(t)
	tc := newTestCLI(t)

	is.NoErr(tc.run("", "collections", "create", "cities"))
	is.NoErr(tc.run("", "documents", "insert", "cities", `{"_key":"sundsvall","name":"Sundsvall","population":99000}`))
	is.NoErr(tc.run(`{"_key":"umea","name":"Umeå","population":130000}`, "documents", "insert", "cities", "-"))

	is.NoErr(tc.run("", "documents", "get", "cities", "umea"))
	doc := map[string]any{}
	tc.result(is, &doc)
	is.Equal(doc["name"], "Umeå")

	is.NoErr(tc.run("", "query", "FOR c IN @@col FILTER c.population > @min RETURN c._key", "--bind", "@col=cities", "--bind", "min=100000", "--batch-size", "1"))
	keys := []string{}
	tc.result(is, &keys)
	is.Equal(keys, []string{"umea"})

	is.NoErr(tc.run("", "documents", "delete", "cities", "umea"))
	is.True(tc.run("", "documents", "get", "cities", "umea") != nil)
}

func TestImportJSONLines(t *testing.T) {
	is := is.New(t)
	tc := newTestCLI(t)

	path := filepath.Join(t.TempDir(), "cities.jsonl")
	is.NoErr(os.WriteFile(path, []byte("{\"_key\":\"sundsvall\"}\n\n{\"_key\":\"umea\"}\n{\"_key\":\"sundsvall\"}\n"), 0o600))

	is.NoErr(tc.run("", "collections", "create", "cities"))
	is.NoErr(tc.run("", "import", "cities", path))

	result := map[string]any{}
	tc.result(is, &result)
	is.Equal(result["created"], float64(2))
	is.Equal(result["errors"], float64(1))
}

func TestUsers(t *testing.T) {
	is := is.New(t)
	tc := newTestCLI(t)

	is.NoErr(tc.run("", "users", "create", "reader", "--password", "pw"))
	is.NoErr(tc.run("", "users", "grant", "reader", "ro"))
	is.True(tc.run("", "users", "grant", "reader", "admin") != nil)

	is.NoErr(tc.run("", "users", "list"))
	users := []map[string]any{}
	tc.result(is, &users)
	is.Equal(len(users), 2)

	is.NoErr(tc.run("", "users", "delete", "reader"))
}

func TestParseBindVars(t *testing.T) {
	is := is.New(t)

	bindVars, err := parseBindVars([]string{"min=100", "name=Umeå", "tags=[\"a\",\"b\"]", "@col=cities", "flag=true"})
	is.NoErr(err)
	is.Equal(bindVars["min"], float64(100))
	is.Equal(bindVars["name"], "Umeå")
	is.Equal(bindVars["tags"], []any{"a", "b"})
	is.Equal(bindVars["@col"], "cities")
	is.Equal(bindVars["flag"], true)

	_, err = parseBindVars([]string{"novalue"})
	is.True(err != nil)

	bindVars, err = parseBindVars(nil)
	is.NoErr(err)
	is.True(bindVars == nil)
}

func TestReadJSONLinesReportsTheFailingLine(t *testing.T) {
	is := is.New(t)

	_, err := readJSONLines(strings.NewReader("{\"a\":1}\nnot json\n"))
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "line 2"))
}
