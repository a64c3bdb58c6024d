package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

var errVSTConnectionClosed = fmt.Errorf("vst connection closed")

// vstHost keeps up to maxConnections multiplexed connections to one endpoint
type vstHost struct {
	address   string
	baseURL   string
	useTLS    bool
	tlsConfig *tls.Config
	timeout   time.Duration
	chunkSize int

	maxConnections int
	auth           func() *Authentication
	debug          bool

	mu    sync.Mutex
	conns []*vstConnection
	next  int
}

func newVSTHost(endpoint string, s settings, auth func() *Authentication) (*vstHost, error) {
	baseURL := normalizeEndpoint(endpoint)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %s: %w", endpoint, err)
	}

	address := u.Host
	if u.Port() == "" {
		address = net.JoinHostPort(u.Hostname(), "8529")
	}

	return &vstHost{
		address:        address,
		baseURL:        baseURL,
		useTLS:         u.Scheme == "https" || s.tlsConfig != nil,
		tlsConfig:      s.tlsConfig,
		timeout:        s.timeout,
		chunkSize:      s.chunkSize,
		maxConnections: s.maxConnections,
		auth:           auth,
		debug:          s.debug,
	}, nil
}

func (h *vstHost) endpoint() string {
	return h.baseURL
}

func (h *vstHost) close() error {
	h.mu.Lock()
	conns := h.conns
	h.conns = nil
	h.mu.Unlock()

	for _, c := range conns {
		c.close(errVSTConnectionClosed)
	}
	return nil
}

// connection returns a live connection, dialing a new one while the pool is not full
func (h *vstHost) connection(ctx context.Context) (*vstConnection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	alive := h.conns[:0]
	for _, c := range h.conns {
		if !c.isClosed() {
			alive = append(alive, c)
		}
	}
	h.conns = alive

	if len(h.conns) < h.maxConnections {
		c, err := h.dial(ctx)
		if err != nil {
			return nil, err
		}
		h.conns = append(h.conns, c)
		return c, nil
	}

	h.next = (h.next + 1) % len(h.conns)
	return h.conns[h.next], nil
}

func (h *vstHost) dial(ctx context.Context) (*vstConnection, error) {
	dialer := &net.Dialer{Timeout: h.timeout, KeepAlive: 30 * time.Second}
	if h.timeout == 0 {
		dialer.Timeout = 30 * time.Second
	}

	var conn net.Conn
	var err error

	if h.useTLS {
		td := &tls.Dialer{NetDialer: dialer, Config: h.tlsConfig}
		conn, err = td.DialContext(ctx, "tcp", h.address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", h.address)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %s (%w, %w)", h.address, err.Error(), errors.ErrRequest, errHostUnreachable)
	}

	if _, err := conn.Write([]byte(VSTPreamble)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send vst preamble: %s (%w, %w)", err.Error(), errors.ErrRequest, errHostUnreachable)
	}

	c := newVSTConnection(conn, h.chunkSize)

	if auth := h.auth(); auth != nil && auth.Type != AuthenticationNone {
		if err := c.authenticate(ctx, *auth); err != nil {
			c.close(err)
			return nil, err
		}
	}

	return c, nil
}

func (h *vstHost) resetConnections() {
	h.close()
}

func (h *vstHost) do(ctx context.Context, r *Request) (*Response, error) {
	codec := serde.VPack()

	body, contentType, err := encodeRequestBody(codec, r)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{}
	for k, v := range r.Header {
		meta[strings.ToLower(k)] = v
	}
	if body != nil && contentType != codec.ContentType() {
		meta["content-type"] = contentType
	}

	params := map[string]string{}
	for k, v := range r.Query {
		if len(v) > 0 {
			params[k] = v[len(v)-1]
		}
	}

	message, err := EncodeVSTRequest(r.Database, r.Method, r.Path, params, meta, body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vst request: %s (%w)", err.Error(), errors.ErrBadRequest)
	}

	c, err := h.connection(ctx)
	if err != nil {
		return nil, err
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	reply, err := c.roundTrip(ctx, message)
	if err != nil {
		return nil, err
	}

	if reply.StatusCode == 0 {
		return nil, fmt.Errorf("vst response without status code (%w)", errors.ErrBadResponse)
	}

	responseContentType := reply.Meta["content-type"]
	if responseContentType == "" {
		responseContentType = codec.ContentType()
	}

	if h.debug && reply.StatusCode >= http.StatusBadRequest {
		log := logging.GetFromContext(ctx)
		log.Error("request failed", "method", r.Method, "database", r.Database, "path", r.Path, "status", reply.StatusCode)
	}

	return &Response{
		StatusCode:  reply.StatusCode,
		Header:      reply.Meta,
		ContentType: responseContentType,
		Body:        reply.Body,
		Endpoint:    h.baseURL,
	}, nil
}

type vstResult struct {
	message []byte
	err     error
}

// vstConnection multiplexes requests over a single socket. One goroutine reads chunks and
// hands every completed message to the caller waiting for its id.
type vstConnection struct {
	conn      net.Conn
	chunkSize int

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan vstResult
	err     error
	closed  chan struct{}
}

func newVSTConnection(conn net.Conn, chunkSize int) *vstConnection {
	c := &vstConnection{
		conn:      conn,
		chunkSize: chunkSize,
		pending:   map[uint64]chan vstResult{},
		closed:    make(chan struct{}),
	}

	go c.readLoop()

	return c
}

func (c *vstConnection) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *vstConnection) close(reason error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return
	}
	c.err = reason
	pending := c.pending
	c.pending = map[uint64]chan vstResult{}
	close(c.closed)
	c.mu.Unlock()

	c.conn.Close()

	for _, ch := range pending {
		ch <- vstResult{err: reason}
	}
}

func (c *vstConnection) readLoop() {
	reader := bufio.NewReader(c.conn)
	assembler := NewMessageAssembler()

	for {
		chunk, err := ReadChunk(reader)
		if err != nil {
			c.close(fmt.Errorf("failed to read vst chunk: %s (%w)", err.Error(), errors.ErrBadResponse))
			return
		}

		message, complete := assembler.Add(chunk)
		if !complete {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[chunk.MessageID]
		delete(c.pending, chunk.MessageID)
		c.mu.Unlock()

		if ok {
			ch <- vstResult{message: message}
		}
	}
}

func (c *vstConnection) send(messageID uint64, message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, chunk := range BuildChunks(messageID, message, c.chunkSize) {
		if _, err := chunk.WriteTo(c.conn); err != nil {
			return err
		}
	}

	return nil
}

func (c *vstConnection) roundTrip(ctx context.Context, message []byte) (VSTMessage, error) {
	messageID := c.nextID.Add(1)
	ch := make(chan vstResult, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return VSTMessage{}, fmt.Errorf("failed to send request: %s (%w)", err.Error(), errors.ErrRequest)
	}
	c.pending[messageID] = ch
	c.mu.Unlock()

	if err := c.send(messageID, message); err != nil {
		err = fmt.Errorf("failed to send request: %s (%w)", err.Error(), errors.ErrRequest)
		c.close(err)
		return VSTMessage{}, err
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, messageID)
		c.mu.Unlock()
		return VSTMessage{}, ctx.Err()
	case result := <-ch:
		if result.err != nil {
			return VSTMessage{}, result.err
		}

		reply, err := DecodeVSTMessage(result.message)
		if err != nil {
			return VSTMessage{}, fmt.Errorf("%s (%w)", err.Error(), errors.ErrBadResponse)
		}

		return reply, nil
	}
}

func (c *vstConnection) authenticate(ctx context.Context, auth Authentication) error {
	message, err := encodeVSTAuthentication(auth)
	if err != nil {
		return fmt.Errorf("%s (%w)", err.Error(), errors.ErrInternal)
	}

	reply, err := c.roundTrip(ctx, message)
	if err != nil {
		return err
	}

	if reply.StatusCode < http.StatusOK || reply.StatusCode >= http.StatusMultipleChoices {
		return errors.NewErrorFromResponse(reply.StatusCode, c.conn.RemoteAddr().String(), reply.Body, serde.VPack().Unmarshal)
	}

	return nil
}
