package fakearango

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/diwise/arangodb-driver/pkg/arangodb/connection"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const (
	vstRequest        = 1
	vstAuthentication = 1000
)

// ServeVST accepts VelocyStream connections on l and serves their requests with the same
// handlers as the HTTP endpoint. It returns when ctx is cancelled or l fails.
func (s *Server) ServeVST(ctx context.Context, l net.Listener) error {
	log := logging.GetFromContext(ctx)

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		log.Debug("accepted vst connection", "remote", conn.RemoteAddr().String())

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveVSTConnection(ctx, conn)
		}()
	}
}

type vstSession struct {
	mu            sync.Mutex
	authorization string
}

func (vs *vstSession) setAuthorization(value string) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.authorization = value
}

func (vs *vstSession) getAuthorization() string {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.authorization
}

func (s *Server) serveVSTConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)

	preamble := make([]byte, len(connection.VSTPreamble))
	if _, err := io.ReadFull(reader, preamble); err != nil || string(preamble) != connection.VSTPreamble {
		return
	}

	var writeMu sync.Mutex
	reply := func(messageID uint64, status int, meta map[string]string, body []byte) {
		message, err := connection.EncodeVSTResponse(status, meta, body)
		if err != nil {
			return
		}

		writeMu.Lock()
		defer writeMu.Unlock()

		for _, c := range connection.BuildChunks(messageID, message, connection.DefaultChunkSize) {
			if _, err := c.WriteTo(conn); err != nil {
				return
			}
		}
	}

	session := &vstSession{}
	assembler := connection.NewMessageAssembler()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		chunk, err := connection.ReadChunk(reader)
		if err != nil {
			return
		}

		message, complete := assembler.Add(chunk)
		if !complete {
			continue
		}

		m, err := connection.DecodeVSTMessage(message)
		if err != nil {
			status, meta, body := vstError(badParameter("%s", err.Error()))
			reply(chunk.MessageID, status, meta, body)
			continue
		}

		switch m.Type {
		case vstAuthentication:
			status, meta, body := s.vstAuthenticate(session, m)
			reply(chunk.MessageID, status, meta, body)
		case vstRequest:
			wg.Add(1)
			go func(messageID uint64) {
				defer wg.Done()
				status, meta, body := s.vstServe(ctx, session, m)
				reply(messageID, status, meta, body)
			}(chunk.MessageID)
		default:
			status, meta, body := vstError(badParameter("unexpected vst message type %d", m.Type))
			reply(chunk.MessageID, status, meta, body)
		}
	}
}

func vstError(err *apiError) (int, map[string]string, []byte) {
	body, _ := serde.VPack().Marshal(err.body())
	return err.code, map[string]string{"content-type": serde.ContentTypeVPack}, body
}

// vstAuthenticate checks the credentials of an authentication message and keeps them for
// the requests that follow on the connection
func (s *Server) vstAuthenticate(session *vstSession, m connection.VSTMessage) (int, map[string]string, []byte) {
	r := &http.Request{Header: http.Header{}}
	if m.Encryption == "jwt" {
		r.Header.Set("Authorization", "bearer "+m.Token)
	} else {
		r.SetBasicAuth(m.User, m.Password)
	}

	s.mu.Lock()
	_, err := s.authenticate(r)
	s.mu.Unlock()

	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return vstError(apiErr)
		}
		return vstError(newError(http.StatusUnauthorized, http.StatusUnauthorized, "%s", err.Error()))
	}

	session.setAuthorization(r.Header.Get("Authorization"))

	return http.StatusOK, map[string]string{}, nil
}

// vstServe turns a request message into an HTTP request for the router
func (s *Server) vstServe(ctx context.Context, session *vstSession, m connection.VSTMessage) (int, map[string]string, []byte) {
	path := m.Path
	if !strings.HasPrefix(path, "/_db/") {
		database := m.Database
		if database == "" {
			database = systemDatabase
		}
		path = "/_db/" + url.PathEscape(database) + path
	}

	query := url.Values{}
	for k, v := range m.Params {
		query.Set(k, v)
	}

	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	r, err := http.NewRequestWithContext(ctx, m.Method, target, bytes.NewReader(m.Body))
	if err != nil {
		return vstError(badParameter("invalid request: %s", err.Error()))
	}

	for k, v := range m.Meta {
		r.Header.Set(k, v)
	}
	if r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", serde.ContentTypeVPack)
	}
	r.Header.Set("Accept", serde.ContentTypeVPack)

	if authorization := session.getAuthorization(); authorization != "" {
		r.Header.Set("Authorization", authorization)
	}

	w := newBufferedResponse()
	s.handler.ServeHTTP(w, r)

	meta := map[string]string{}
	for k := range w.header {
		meta[strings.ToLower(k)] = w.header.Get(k)
	}

	if w.status == 0 {
		w.status = http.StatusOK
	}

	return w.status, meta, w.body.Bytes()
}

// bufferedResponse collects what a handler writes so that it can be sent as a single vst
// message
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: http.Header{}}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}
