package connection

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb/errors"
	"github.com/diwise/arangodb-driver/pkg/arangodb/serde"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

// errHostUnreachable marks failures where the request never reached the host
var errHostUnreachable = fmt.Errorf("host unreachable")

type hostConnection interface {
	do(ctx context.Context, r *Request) (*Response, error)
	endpoint() string
	close() error
}

type pool struct {
	settings settings
	codec    serde.Serde
	metrics  *requestMetrics

	mu        sync.RWMutex
	auth      *Authentication
	endpoints []string
	hosts     map[string]hostConnection
	active    int
	rotation  int

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New returns a connection to the given endpoints. Endpoints may use the http, https, tcp,
// ssl or vst schemes, a missing scheme means http.
func New(endpoints []string, options ...Option) (Connection, error) {
	s := defaultSettings()
	for _, option := range options {
		option(&s)
	}

	normalized := normalizeEndpoints(endpoints)
	if len(normalized) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required (%w)", errors.ErrNoHostAvailable)
	}

	if s.protocol != ProtocolHTTPJSON && s.protocol != ProtocolHTTPVPack && s.protocol != ProtocolVST {
		return nil, fmt.Errorf("%s (%w)", s.protocol, errors.ErrUnsupportedProtocol)
	}

	p := &pool{
		settings:  s,
		codec:     s.serde(),
		metrics:   newRequestMetrics(s.meterProvider),
		auth:      s.auth,
		endpoints: normalized,
		hosts:     map[string]hostConnection{},
		stop:      make(chan struct{}),
	}

	if s.loadBalancing == LoadBalancingOneRandom {
		p.active = rand.IntN(len(normalized))
	}

	if s.acquireHostList {
		p.wg.Add(1)
		go p.refreshHostList(s.acquireHostListInterval)
	}

	return p, nil
}

func normalizeEndpoints(endpoints []string) []string {
	result := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if e == "" {
			continue
		}
		n := normalizeEndpoint(e)
		if !slices.Contains(result, n) {
			result = append(result, n)
		}
	}
	return result
}

func (p *pool) Serde() serde.Serde {
	return p.codec
}

func (p *pool) Protocol() Protocol {
	return p.settings.protocol
}

func (p *pool) Endpoints() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.endpoints)
}

// UpdateEndpoints replaces the host list, connections to hosts no longer listed are closed
func (p *pool) UpdateEndpoints(endpoints []string) error {
	normalized := normalizeEndpoints(endpoints)
	if len(normalized) == 0 {
		return fmt.Errorf("at least one endpoint is required (%w)", errors.ErrNoHostAvailable)
	}

	p.mu.Lock()
	current := ""
	if len(p.endpoints) > 0 {
		current = p.endpoints[p.active%len(p.endpoints)]
	}

	p.endpoints = normalized
	p.active = max(slices.Index(normalized, current), 0)

	var removed []hostConnection
	for e, hc := range p.hosts {
		if !slices.Contains(normalized, e) {
			removed = append(removed, hc)
			delete(p.hosts, e)
		}
	}
	p.mu.Unlock()

	for _, hc := range removed {
		hc.close()
	}

	return nil
}

func (p *pool) SetAuthentication(auth Authentication) error {
	p.mu.Lock()
	p.auth = &auth
	hosts := make([]hostConnection, 0, len(p.hosts))
	for _, hc := range p.hosts {
		hosts = append(hosts, hc)
	}
	p.mu.Unlock()

	// vst authenticates per connection, new credentials need new connections
	for _, hc := range hosts {
		if vh, ok := hc.(*vstHost); ok {
			vh.resetConnections()
		}
	}

	return nil
}

func (p *pool) authentication() *Authentication {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.auth
}

func (p *pool) Close() error {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()

	p.mu.Lock()
	hosts := p.hosts
	p.hosts = map[string]hostConnection{}
	p.mu.Unlock()

	for _, hc := range hosts {
		hc.close()
	}

	return nil
}

// candidates returns the endpoints in the order they should be tried for the next request
func (p *pool) candidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	start := p.active % n

	if p.settings.loadBalancing == LoadBalancingRoundRobin {
		start = p.rotation % n
		p.rotation = (p.rotation + 1) % n
	}

	result := make([]string, 0, n)
	for i := 0; i < n; i++ {
		result = append(result, p.endpoints[(start+i)%n])
	}

	return result
}

func (p *pool) host(endpoint string) (hostConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if hc, ok := p.hosts[endpoint]; ok {
		return hc, nil
	}

	var hc hostConnection
	if p.settings.protocol == ProtocolVST {
		vh, err := newVSTHost(endpoint, p.settings, p.authentication)
		if err != nil {
			return nil, err
		}
		hc = vh
	} else {
		hc = newHTTPConnection(endpoint, p.settings, p.authentication)
	}

	p.hosts[endpoint] = hc
	return hc, nil
}

func (p *pool) markActive(endpoint string) {
	if p.settings.loadBalancing == LoadBalancingRoundRobin {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.Index(p.endpoints, endpoint); i >= 0 {
		p.active = i
	}
}

// Do sends the request to the current host. Only failures to reach a host move the request
// to the next one. A server response of any status, or a request that was sent but got no
// response, is returned to the caller.
func (p *pool) Do(ctx context.Context, r *Request) (*Response, error) {
	var lastErr error

	candidates := p.candidates()

	for i, endpoint := range candidates {
		hc, err := p.host(endpoint)
		if err != nil {
			return nil, err
		}

		started := time.Now()
		resp, err := hc.do(ctx, r)
		if err == nil {
			p.metrics.record(ctx, p.settings.protocol, r.Method, resp.StatusCode, started)
			p.markActive(endpoint)
			return resp, nil
		}

		p.metrics.record(ctx, p.settings.protocol, r.Method, 0, started)

		if !errors.Is(err, errHostUnreachable) || ctx.Err() != nil {
			return nil, err
		}

		lastErr = err

		if i < len(candidates)-1 {
			p.metrics.failover(ctx, endpoint)
			logging.GetFromContext(ctx).Warn("host unreachable, trying next", "endpoint", endpoint, "err", err.Error())
		}
	}

	if len(candidates) == 1 {
		return nil, lastErr
	}

	return nil, fmt.Errorf("all hosts failed, last error: %w (%w)", lastErr, errors.ErrNoHostAvailable)
}

type clusterEndpoints struct {
	Endpoints []struct {
		Endpoint string `json:"endpoint"`
	} `json:"endpoints"`
}

// AcquireHostList asks the server for the endpoints of all coordinators
func AcquireHostList(ctx context.Context, conn Connection) ([]string, error) {
	resp, err := conn.Do(ctx, NewRequest("_system", http.MethodGet, "/_api/cluster/endpoints"))
	if err != nil {
		return nil, err
	}

	codec := serde.ForContentType(resp.ContentType, conn.Serde())

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewErrorFromResponse(resp.StatusCode, resp.Endpoint, resp.Body, codec.Unmarshal)
	}

	ce := clusterEndpoints{}
	if err := codec.Unmarshal(resp.Body, &ce); err != nil {
		return nil, fmt.Errorf("failed to decode cluster endpoints: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	endpoints := make([]string, 0, len(ce.Endpoints))
	for _, e := range ce.Endpoints {
		endpoints = append(endpoints, normalizeEndpoint(e.Endpoint))
	}

	return endpoints, nil
}

func (p *pool) refreshHostList(interval time.Duration) {
	defer p.wg.Done()

	ctx := context.Background()
	log := logging.GetFromContext(ctx)

	refresh := func() {
		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		endpoints, err := AcquireHostList(reqCtx, p)
		if err != nil {
			log.Warn("failed to acquire host list", "err", err.Error())
			return
		}

		if len(endpoints) == 0 {
			return
		}

		if err := p.UpdateEndpoints(endpoints); err == nil {
			log.Info("host list updated", "endpoints", endpoints)
		}
	}

	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			refresh()
		}
	}
}
