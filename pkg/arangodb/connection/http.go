package connection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/http/httputil"
	"strings"
	"sync/atomic"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type httpConnection struct {
	baseURL string
	client  http.Client
	serde   serde.Serde
	auth    func() *Authentication

	compression          Compression
	compressionThreshold int
	compressionLevel     int

	debug bool
}

func newHTTPConnection(endpoint string, s settings, auth func() *Authentication) *httpConnection {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:     s.maxConnections,
		MaxIdleConnsPerHost: s.maxConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     s.tlsConfig,
		DisableCompression:  true,
	}

	return &httpConnection{
		baseURL: normalizeEndpoint(endpoint),
		client: http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   s.timeout,
		},
		serde:                s.serde(),
		auth:                 auth,
		compression:          s.compression,
		compressionThreshold: s.compressionThreshold,
		compressionLevel:     s.compressionLevel,
		debug:                s.debug,
	}
}

func (c *httpConnection) endpoint() string {
	return c.baseURL
}

func (c *httpConnection) close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *httpConnection) do(ctx context.Context, r *Request) (*Response, error) {
	body, contentType, err := encodeRequestBody(c.serde, r)
	if err != nil {
		return nil, err
	}

	contentEncoding := ""
	if c.compression != CompressionNone && len(body) > 0 && len(body) >= c.compressionThreshold {
		body, err = compress(c.compression, c.compressionLevel, body)
		if err != nil {
			return nil, fmt.Errorf("failed to compress request body: %s (%w)", err.Error(), errors.ErrInternal)
		}
		contentEncoding = c.compression.String()
	}

	u := c.baseURL + databasePath(r.Database, r.Path)
	if len(r.Query) > 0 {
		u = u + "?" + r.Query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	// a request that was written may have been applied, only unsent requests can move to another host
	var wrote atomic.Bool
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				wrote.Store(true)
			}
		},
	}

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), r.Method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %s (%w)", err.Error(), errors.ErrInternal)
	}

	req.Header.Set("Accept", c.serde.ContentType())
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}
	if c.compression != CompressionNone {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	if auth := c.auth(); auth != nil {
		switch auth.Type {
		case AuthenticationBasic:
			req.SetBasicAuth(auth.User, auth.Password)
		case AuthenticationJWT:
			req.Header.Set("Authorization", "bearer "+auth.Token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if wrote.Load() {
			return nil, fmt.Errorf("no response to request: %s (%w)", err.Error(), errors.ErrRequest)
		}
		return nil, fmt.Errorf("failed to send request: %s (%w, %w)", err.Error(), errors.ErrRequest, errHostUnreachable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	respBody, err = Decompress(resp.Header.Get("Content-Encoding"), respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress response body: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	if c.debug && resp.StatusCode >= http.StatusBadRequest {
		reqbytes, _ := httputil.DumpRequest(req, false)
		respbytes, _ := httputil.DumpResponse(resp, false)

		log := logging.GetFromContext(ctx)
		log.Error("request failed", "request", string(reqbytes), "response", string(respbytes), "body", string(respBody))
	}

	header := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		header[strings.ToLower(k)] = resp.Header.Get(k)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Header:      header,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
		Endpoint:    c.baseURL,
	}, nil
}

func encodeRequestBody(codec serde.Serde, r *Request) ([]byte, string, error) {
	if r.RawBody != nil {
		contentType := r.ContentType
		if contentType == "" {
			contentType = codec.ContentType()
		}
		return r.RawBody, contentType, nil
	}

	if r.Body == nil {
		return nil, "", nil
	}

	body, err := codec.Marshal(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request body: %s (%w)", err.Error(), errors.ErrBadRequest)
	}

	return body, codec.ContentType(), nil
}
