package connection

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"go.opentelemetry.io/otel/metric"
)

type LoadBalancing int

const (
	LoadBalancingNone LoadBalancing = iota
	LoadBalancingRoundRobin
	LoadBalancingOneRandom
)

func ParseLoadBalancing(name string) (LoadBalancing, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return LoadBalancingNone, nil
	case "round_robin", "roundrobin":
		return LoadBalancingRoundRobin, nil
	case "one_random", "onerandom":
		return LoadBalancingOneRandom, nil
	}
	return LoadBalancingNone, fmt.Errorf("unknown load balancing strategy %q", name)
}

type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionDeflate
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionDeflate:
		return "deflate"
	}
	return "none"
}

func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "deflate":
		return CompressionDeflate, nil
	}
	return CompressionNone, fmt.Errorf("unknown compression %q", name)
}

const (
	DefaultChunkSize            = 30000
	DefaultMaxConnections       = 1
	DefaultTimeout              = 0
	DefaultCompressionThreshold = 1024
	DefaultCompressionLevel     = 6
)

// Option configures a connection created by New
type Option func(*settings)

type settings struct {
	protocol Protocol
	auth     *Authentication
	timeout  time.Duration

	maxConnections int
	chunkSize      int
	tlsConfig      *tls.Config
	loadBalancing  LoadBalancing

	compression          Compression
	compressionThreshold int
	compressionLevel     int

	acquireHostList         bool
	acquireHostListInterval time.Duration

	meterProvider metric.MeterProvider

	debug bool
}

func defaultSettings() settings {
	return settings{
		protocol:                ProtocolHTTPJSON,
		timeout:                 DefaultTimeout,
		maxConnections:          DefaultMaxConnections,
		chunkSize:               DefaultChunkSize,
		loadBalancing:           LoadBalancingNone,
		compression:             CompressionNone,
		compressionThreshold:    DefaultCompressionThreshold,
		compressionLevel:        DefaultCompressionLevel,
		acquireHostListInterval: time.Hour,
	}
}

func (s settings) serde() serde.Serde {
	if s.protocol == ProtocolHTTPJSON {
		return serde.JSON()
	}
	return serde.VPack()
}

func WithProtocol(protocol Protocol) Option {
	return func(s *settings) {
		s.protocol = protocol
	}
}

func WithAuthentication(auth Authentication) Option {
	return func(s *settings) {
		s.auth = &auth
	}
}

// WithTimeout limits the time spent on connecting plus one request round trip
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.timeout = timeout
	}
}

func WithMaxConnections(max int) Option {
	return func(s *settings) {
		if max > 0 {
			s.maxConnections = max
		}
	}
}

func WithChunkSize(size int) Option {
	return func(s *settings) {
		if size > chunkHeaderSize {
			s.chunkSize = size
		}
	}
}

func WithTLS(config *tls.Config) Option {
	return func(s *settings) {
		s.tlsConfig = config
	}
}

func WithLoadBalancing(strategy LoadBalancing) Option {
	return func(s *settings) {
		s.loadBalancing = strategy
	}
}

// WithCompression compresses request bodies of at least threshold bytes. A level of 0
// selects the default level.
func WithCompression(compression Compression, threshold, level int) Option {
	return func(s *settings) {
		s.compression = compression
		if threshold >= 0 {
			s.compressionThreshold = threshold
		}
		if level != 0 {
			s.compressionLevel = level
		}
	}
}

// WithAcquireHostList replaces the configured endpoints with the ones reported by the
// cluster, at start and then once every interval
func WithAcquireHostList(enabled bool, interval time.Duration) Option {
	return func(s *settings) {
		s.acquireHostList = enabled
		if interval > 0 {
			s.acquireHostListInterval = interval
		}
	}
}

func WithDebug(enabled bool) Option {
	return func(s *settings) {
		s.debug = enabled
	}
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(s *settings) {
		s.meterProvider = provider
	}
}
