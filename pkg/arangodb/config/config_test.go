package config

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/matryer/is"
)

func TestLoadConfig(t *testing.T) {
	is, config := setupConfigTest(t)

	is.Equal(len(config.Hosts), 2) // should have two hosts
	is.Equal(config.Hosts[1], "http://db2:8529")
	is.Equal(config.User, "admin")
	is.Equal(config.Database, "inventory")
}

func TestLoadTransportSettings(t *testing.T) {
	is, config := setupConfigTest(t)

	is.Equal(config.Protocol, "vst")
	is.Equal(config.Timeout, "5s")
	is.Equal(config.MaxConnections, 4)
	is.Equal(config.LoadBalancing, "round_robin")
	is.Equal(config.Compression.Type, "gzip")
	is.Equal(config.Compression.Threshold, 512)
}

func TestDefaultsAreKeptForMissingKeys(t *testing.T) {
	is := is.New(t)

	config, err := LoadConfiguration(bytes.NewBufferString("password: secret\n"))
	is.NoErr(err)

	is.Equal(config.Hosts, []string{"http://127.0.0.1:8529"})
	is.Equal(config.User, "root")
	is.Equal(config.Database, "_system")
	is.Equal(config.Protocol, "http_json")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	is, config := setupConfigTest(t)

	t.Setenv("ARANGODB_HOSTS", "http://a:8529, http://b:8529")
	t.Setenv("ARANGODB_DATABASE", "other")
	t.Setenv("ARANGODB_MAX_CONNECTIONS", "9")
	t.Setenv("ARANGODB_USE_TLS", "true")

	config.ApplyEnvironment(context.Background())

	is.Equal(config.Hosts, []string{"http://a:8529", "http://b:8529"})
	is.Equal(config.Database, "other")
	is.Equal(config.MaxConnections, 9)
	is.True(config.UseTLS)
	is.Equal(config.User, "admin") // not overridden
}

func TestUnknownNamesAreRejected(t *testing.T) {
	is := is.New(t)

	for _, cfg := range []*Config{
		{Protocol: "carrier-pigeon"},
		{LoadBalancing: "sticky"},
		{Compression: CompressionConfig{Type: "brotli"}},
		{Timeout: "soon"},
	} {
		_, err := cfg.ClientOptions()
		is.True(err != nil)
	}
}

func TestClientOptionsConnectToConfiguredHost(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		testutils.Expects(is, expects.RequestMethod(http.MethodGet), expects.RequestPath("/_db/_system/_api/version")),
		testutils.Returns(
			response.ContentType("application/json"),
			response.Code(http.StatusOK),
			response.Body([]byte(`{"server":"arango","version":"3.11.4","license":"community"}`)),
		),
	)
	defer s.Close()

	cfg := Default()
	cfg.Hosts = []string{s.URL()}
	cfg.Password = "secret"
	cfg.Timeout = "2s"

	options, err := cfg.ClientOptions()
	is.NoErr(err)

	c, err := client.New(options...)
	is.NoErr(err)
	defer c.Close()

	v, err := c.Version(context.Background())
	is.NoErr(err)
	is.Equal(v.Version, "3.11.4")
	is.Equal(s.RequestCount(), 1)
}

func setupConfigTest(t *testing.T) (*is.I, *Config) {
	is := is.New(t)
	cfgData := bytes.NewBuffer([]byte(configFile))
	config, err := LoadConfiguration(cfgData)
	is.NoErr(err)

	return is, config
}

var configFile string = `
hosts:
  - http://db1:8529
  - http://db2:8529
user: admin
password: changeme
database: inventory
protocol: vst
timeout: 5s
maxConnections: 4
loadBalancing: round_robin
compression:
  type: gzip
  threshold: 512
`
