package connection

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	arangoerrors "github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/klauspost/compress/gzip"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var method = expects.RequestMethod
var path = expects.RequestPath
var body = expects.RequestBody
var queryParam = expects.QueryParamEquals

func TestRequestIsSentToDatabasePath(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/_db/mydb/_api/version"),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"server":"arango","version":"3.11.0"}`)),
		),
	)
	defer s.Close()

	conn, err := New([]string{s.URL()})
	is.NoErr(err)
	defer conn.Close()

	resp, err := conn.Do(context.Background(), NewRequest("mydb", http.MethodGet, "/_api/version"))
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.ContentType, "application/json")
	is.True(strings.Contains(string(resp.Body), `"version":"3.11.0"`))
}

func TestRequestBodyAndQueryParameters(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/_db/_system/_api/document/users"),
			queryParam("waitForSync", "true"),
			body(`{"name":"alice"}`),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusCreated),
			response.Body([]byte(`{"_key":"1","_id":"users/1","_rev":"_a"}`)),
		),
	)
	defer s.Close()

	conn, err := New([]string{s.URL()})
	is.NoErr(err)
	defer conn.Close()

	req := NewRequest("_system", http.MethodPost, "/_api/document/users").
		SetQuery("waitForSync", "true").
		SetBody(map[string]string{"name": "alice"})

	resp, err := conn.Do(context.Background(), req)
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusCreated)
}

func TestServerErrorsAreReturnedAsResponses(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, expects.AnyInput()),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusNotFound),
			response.Body([]byte(`{"error":true,"code":404,"errorNum":1202,"errorMessage":"document not found"}`)),
		),
	)
	defer s.Close()

	conn, err := New([]string{s.URL()})
	is.NoErr(err)
	defer conn.Close()

	resp, err := conn.Do(context.Background(), NewRequest("_system", http.MethodGet, "/_api/document/users/nope"))
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestBasicAuthentication(t *testing.T) {
	is := is.New(t)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || user != "root" || password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	conn, err := New([]string{s.URL}, WithAuthentication(BasicAuthentication("root", "secret")))
	is.NoErr(err)
	defer conn.Close()

	resp, err := conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestJWTAuthenticationCanBeReplaced(t *testing.T) {
	is := is.New(t)

	var lastToken atomic.Value
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastToken.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	conn, err := New([]string{s.URL}, WithAuthentication(JWTAuthentication("first")))
	is.NoErr(err)
	defer conn.Close()

	_, err = conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.NoErr(err)
	is.Equal(lastToken.Load(), "bearer first")

	is.NoErr(conn.SetAuthentication(JWTAuthentication("second")))

	_, err = conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.NoErr(err)
	is.Equal(lastToken.Load(), "bearer second")
}

func TestVelocyPackContentNegotiation(t *testing.T) {
	is := is.New(t)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != serde.ContentTypeVPack || r.Header.Get("Accept") != serde.ContentTypeVPack {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		b, _ := io.ReadAll(r.Body)
		doc := map[string]any{}
		if err := serde.VPack().Unmarshal(b, &doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		out, _ := serde.VPack().Marshal(map[string]any{"echo": doc["name"]})
		w.Header().Set("Content-Type", serde.ContentTypeVPack)
		w.WriteHeader(http.StatusOK)
		w.Write(out)
	}))
	defer s.Close()

	conn, err := New([]string{s.URL}, WithProtocol(ProtocolHTTPVPack))
	is.NoErr(err)
	defer conn.Close()

	is.Equal(conn.Serde().ContentType(), serde.ContentTypeVPack)

	resp, err := conn.Do(context.Background(), NewRequest("", http.MethodPost, "/echo").SetBody(map[string]string{"name": "bob"}))
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusOK)

	result := struct {
		Echo string `json:"echo"`
	}{}
	is.NoErr(serde.VPack().Unmarshal(resp.Body, &result))
	is.Equal(result.Echo, "bob")
}

func TestRequestBodyIsCompressedOverThreshold(t *testing.T) {
	is := is.New(t)

	var encoding atomic.Value
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding.Store(r.Header.Get("Content-Encoding"))

		b, _ := io.ReadAll(r.Body)
		plain, err := Decompress(r.Header.Get("Content-Encoding"), b)
		if err != nil || !strings.Contains(string(plain), "aaaa") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	conn, err := New([]string{s.URL}, WithCompression(CompressionDeflate, 100, 0))
	is.NoErr(err)
	defer conn.Close()

	small := map[string]string{"v": "a"}
	resp, err := conn.Do(context.Background(), NewRequest("", http.MethodPost, "/_api/document/c").SetBody(small))
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusBadRequest) // body too small to contain the marker
	is.Equal(encoding.Load(), "")

	large := map[string]string{"v": strings.Repeat("a", 500)}
	resp, err = conn.Do(context.Background(), NewRequest("", http.MethodPost, "/_api/document/c").SetBody(large))
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(encoding.Load(), "deflate")
}

func TestCompressedResponseIsDecoded(t *testing.T) {
	is := is.New(t)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"compressed":false}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)

		gz := gzip.NewWriter(w)
		gz.Write([]byte(`{"compressed":true}`))
		gz.Close()
	}))
	defer s.Close()

	conn, err := New([]string{s.URL}, WithCompression(CompressionGzip, 0, 0))
	is.NoErr(err)
	defer conn.Close()

	resp, err := conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.NoErr(err)
	is.Equal(string(resp.Body), `{"compressed":true}`)
}

func TestFailoverToNextHostWhenUnreachable(t *testing.T) {
	is := is.New(t)

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	unreachable := "http://127.0.0.1:1"

	conn, err := New([]string{unreachable, s.URL})
	is.NoErr(err)
	defer conn.Close()

	resp, err := conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.NoErr(err)
	is.Equal(resp.Endpoint, s.URL)
}

func TestNoFailoverOnServerErrorResponse(t *testing.T) {
	is := is.New(t)

	var secondHits atomic.Int32

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer first.Close()

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer second.Close()

	conn, err := New([]string{first.URL, second.URL})
	is.NoErr(err)
	defer conn.Close()

	resp, err := conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusServiceUnavailable)
	is.Equal(secondHits.Load(), int32(0))
}

func TestNoFailoverWhenResponseTimesOut(t *testing.T) {
	is := is.New(t)

	var slowHits, fastHits atomic.Int32
	release := make(chan struct{})

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slowHits.Add(1)
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer slow.Close()
	defer close(release)

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fastHits.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer fast.Close()

	conn, err := New([]string{slow.URL, fast.URL}, WithTimeout(100*time.Millisecond))
	is.NoErr(err)
	defer conn.Close()

	req := NewRequest("", http.MethodPost, "/_api/document/cities")
	req.Body = map[string]any{"name": "Sundsvall"}

	_, err = conn.Do(context.Background(), req)
	is.True(err != nil)
	is.True(arangoerrors.Is(err, arangoerrors.ErrRequest))
	is.True(!arangoerrors.Is(err, arangoerrors.ErrNoHostAvailable))
	is.Equal(slowHits.Load(), int32(1))
	is.Equal(fastHits.Load(), int32(0))
}

func TestAllHostsUnreachable(t *testing.T) {
	is := is.New(t)

	conn, err := New([]string{"http://127.0.0.1:1", "http://127.0.0.1:2"})
	is.NoErr(err)
	defer conn.Close()

	_, err = conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.True(arangoerrors.Is(err, arangoerrors.ErrNoHostAvailable))
	is.True(arangoerrors.Is(err, arangoerrors.ErrRequest))
}

func TestRoundRobinRotatesHosts(t *testing.T) {
	is := is.New(t)

	var hits [2]atomic.Int32
	newServer := func(i int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits[i].Add(1)
			w.WriteHeader(http.StatusOK)
		}))
	}

	a, b := newServer(0), newServer(1)
	defer a.Close()
	defer b.Close()

	conn, err := New([]string{a.URL, b.URL}, WithLoadBalancing(LoadBalancingRoundRobin))
	is.NoErr(err)
	defer conn.Close()

	for range 4 {
		_, err := conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
		is.NoErr(err)
	}

	is.Equal(hits[0].Load(), int32(2))
	is.Equal(hits[1].Load(), int32(2))
}

func TestAcquireHostListReplacesEndpoints(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/_db/_system/_api/cluster/endpoints"),
		),
		Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"error":false,"code":200,"endpoints":[{"endpoint":"tcp://10.0.0.1:8529"},{"endpoint":"ssl://10.0.0.2:8530"}]}`)),
		),
	)
	defer s.Close()

	conn, err := New([]string{s.URL()})
	is.NoErr(err)
	defer conn.Close()

	endpoints, err := AcquireHostList(context.Background(), conn)
	is.NoErr(err)
	is.Equal(endpoints, []string{"http://10.0.0.1:8529", "https://10.0.0.2:8530"})

	is.NoErr(conn.UpdateEndpoints(endpoints))
	is.Equal(conn.Endpoints(), endpoints)
}

func TestNewRequiresEndpoints(t *testing.T) {
	is := is.New(t)

	_, err := New(nil)
	is.True(arangoerrors.Is(err, arangoerrors.ErrNoHostAvailable))
}

func TestParseNames(t *testing.T) {
	is := is.New(t)

	p, err := ParseProtocol("VST")
	is.NoErr(err)
	is.Equal(p, ProtocolVST)

	_, err = ParseProtocol("carrier-pigeon")
	is.True(err != nil)

	lb, err := ParseLoadBalancing("round_robin")
	is.NoErr(err)
	is.Equal(lb, LoadBalancingRoundRobin)

	c, err := ParseCompression("gzip")
	is.NoErr(err)
	is.Equal(c, CompressionGzip)
}
