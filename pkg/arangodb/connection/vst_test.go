package connection

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"

	arangoerrors "github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/matryer/is"
)

// vstEchoServer answers every request with the database, method, path and parameters it saw
type vstEchoServer struct {
	listener net.Listener
	user     string
	password string
	wg       sync.WaitGroup
}

func newVSTEchoServer(t *testing.T, user, password string) *vstEchoServer {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %s", err.Error())
	}

	s := &vstEchoServer{listener: l, user: user, password: password}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go s.serve(conn)
		}
	}()

	t.Cleanup(func() {
		l.Close()
	})

	return s
}

func (s *vstEchoServer) URL() string {
	return "vst://" + s.listener.Addr().String()
}

func (s *vstEchoServer) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	reader := bufio.NewReader(conn)

	preamble := make([]byte, len(VSTPreamble))
	if _, err := io.ReadFull(reader, preamble); err != nil || string(preamble) != VSTPreamble {
		return
	}

	var writeMu sync.Mutex
	reply := func(messageID uint64, status int, body any) {
		var b []byte
		if body != nil {
			b, _ = serde.VPack().Marshal(body)
		}
		message, _ := EncodeVSTResponse(status, map[string]string{"content-type": serde.ContentTypeVPack}, b)

		writeMu.Lock()
		defer writeMu.Unlock()

		// small chunks exercise reassembly on the client side
		for _, c := range BuildChunks(messageID, message, 7) {
			c.WriteTo(conn)
		}
	}

	authenticated := s.user == ""
	assembler := NewMessageAssembler()

	for {
		chunk, err := ReadChunk(reader)
		if err != nil {
			return
		}

		message, complete := assembler.Add(chunk)
		if !complete {
			continue
		}

		m, err := DecodeVSTMessage(message)
		if err != nil {
			reply(chunk.MessageID, http.StatusBadRequest, nil)
			continue
		}

		if m.Type == vstTypeAuth {
			if m.User == s.user && m.Password == s.password {
				authenticated = true
				reply(chunk.MessageID, http.StatusOK, nil)
			} else {
				reply(chunk.MessageID, http.StatusUnauthorized, map[string]any{"error": true, "code": 401, "errorNum": 11, "errorMessage": "not authorized"})
			}
			continue
		}

		if !authenticated {
			reply(chunk.MessageID, http.StatusUnauthorized, nil)
			continue
		}

		echo := map[string]any{
			"database": m.Database,
			"method":   m.Method,
			"path":     m.Path,
			"params":   m.Params,
			"bodySize": len(m.Body),
		}

		go reply(chunk.MessageID, http.StatusOK, echo)
	}
}

type echoResult struct {
	Database string            `json:"database"`
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Params   map[string]string `json:"params"`
	BodySize int               `json:"bodySize"`
}

func TestVSTRequestRoundTrip(t *testing.T) {
	is := is.New(t)

	s := newVSTEchoServer(t, "", "")

	conn, err := New([]string{s.URL()}, WithProtocol(ProtocolVST))
	is.NoErr(err)
	defer conn.Close()

	req := NewRequest("mydb", http.MethodPut, "/_api/collection/users/truncate").SetQuery("waitForSync", "true")

	resp, err := conn.Do(context.Background(), req)
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.ContentType, serde.ContentTypeVPack)

	result := echoResult{}
	is.NoErr(serde.VPack().Unmarshal(resp.Body, &result))
	is.Equal(result.Database, "mydb")
	is.Equal(result.Method, http.MethodPut)
	is.Equal(result.Path, "/_api/collection/users/truncate")
	is.Equal(result.Params["waitForSync"], "true")
}

func TestVSTMultiplexesConcurrentRequests(t *testing.T) {
	is := is.New(t)

	s := newVSTEchoServer(t, "", "")

	conn, err := New([]string{s.URL()}, WithProtocol(ProtocolVST), WithChunkSize(64))
	is.NoErr(err)
	defer conn.Close()

	const requests = 20

	var wg sync.WaitGroup
	results := make([]echoResult, requests)
	errs := make([]error, requests)

	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			payload := map[string]string{"data": string(bytes.Repeat([]byte("x"), 100*i))}
			req := NewRequest("_system", http.MethodPost, fmt.Sprintf("/_api/document/c%d", i)).SetBody(payload)

			resp, err := conn.Do(context.Background(), req)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = serde.VPack().Unmarshal(resp.Body, &results[i])
		}(i)
	}

	wg.Wait()

	for i := range requests {
		is.NoErr(errs[i])
		is.Equal(results[i].Path, fmt.Sprintf("/_api/document/c%d", i))
		is.True(results[i].BodySize >= 100*i)
	}
}

func TestVSTAuthentication(t *testing.T) {
	is := is.New(t)

	s := newVSTEchoServer(t, "root", "secret")

	conn, err := New([]string{s.URL()}, WithProtocol(ProtocolVST), WithAuthentication(BasicAuthentication("root", "secret")))
	is.NoErr(err)
	defer conn.Close()

	resp, err := conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusOK)
}

func TestVSTAuthenticationFailure(t *testing.T) {
	is := is.New(t)

	s := newVSTEchoServer(t, "root", "secret")

	conn, err := New([]string{s.URL()}, WithProtocol(ProtocolVST), WithAuthentication(BasicAuthentication("root", "wrong")))
	is.NoErr(err)
	defer conn.Close()

	_, err = conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.True(arangoerrors.IsUnauthorized(err))
}

func TestVSTUnreachableHost(t *testing.T) {
	is := is.New(t)

	conn, err := New([]string{"vst://127.0.0.1:1"}, WithProtocol(ProtocolVST))
	is.NoErr(err)
	defer conn.Close()

	_, err = conn.Do(context.Background(), NewRequest("", http.MethodGet, "/_api/version"))
	is.True(arangoerrors.Is(err, arangoerrors.ErrRequest))
}
