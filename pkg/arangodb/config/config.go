package config

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/diwise/arangodb-driver/pkg/arangodb/connection"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	yaml "gopkg.in/yaml.v2"
)

type CompressionConfig struct {
	Type      string `yaml:"type"`
	Threshold int    `yaml:"threshold"`
	Level     int    `yaml:"level"`
}

type Config struct {
	Hosts    []string `yaml:"hosts"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	JWT      string   `yaml:"jwt"`
	Database string   `yaml:"database"`
	Protocol string   `yaml:"protocol"`
	Timeout  string   `yaml:"timeout"`

	MaxConnections int  `yaml:"maxConnections"`
	ChunkSize      int  `yaml:"chunkSize"`
	UseTLS         bool `yaml:"useTLS"`

	LoadBalancing           string `yaml:"loadBalancing"`
	AcquireHostList         bool   `yaml:"acquireHostList"`
	AcquireHostListInterval string `yaml:"acquireHostListInterval"`

	Compression CompressionConfig `yaml:"compression"`

	Debug bool `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		Hosts:    []string{"http://127.0.0.1:8529"},
		User:     "root",
		Database: "_system",
		Protocol: connection.ProtocolHTTPJSON.String(),
	}
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	err = yaml.Unmarshal(buf, cfg)

	return cfg, err
}

// ApplyEnvironment lets ARANGODB_* variables override the values in cfg. Hosts are separated
// by commas.
func (cfg *Config) ApplyEnvironment(ctx context.Context) *Config {
	if hosts := env.GetVariableOrDefault(ctx, "ARANGODB_HOSTS", ""); hosts != "" {
		cfg.Hosts = splitHosts(hosts)
	}

	cfg.User = env.GetVariableOrDefault(ctx, "ARANGODB_USER", cfg.User)
	cfg.Password = env.GetVariableOrDefault(ctx, "ARANGODB_PASSWORD", cfg.Password)
	cfg.JWT = env.GetVariableOrDefault(ctx, "ARANGODB_JWT", cfg.JWT)
	cfg.Database = env.GetVariableOrDefault(ctx, "ARANGODB_DATABASE", cfg.Database)
	cfg.Protocol = env.GetVariableOrDefault(ctx, "ARANGODB_PROTOCOL", cfg.Protocol)
	cfg.Timeout = env.GetVariableOrDefault(ctx, "ARANGODB_TIMEOUT", cfg.Timeout)
	cfg.LoadBalancing = env.GetVariableOrDefault(ctx, "ARANGODB_LOAD_BALANCING", cfg.LoadBalancing)
	cfg.Compression.Type = env.GetVariableOrDefault(ctx, "ARANGODB_COMPRESSION", cfg.Compression.Type)

	cfg.MaxConnections = intFromEnv(ctx, "ARANGODB_MAX_CONNECTIONS", cfg.MaxConnections)
	cfg.ChunkSize = intFromEnv(ctx, "ARANGODB_CHUNK_SIZE", cfg.ChunkSize)
	cfg.UseTLS = boolFromEnv(ctx, "ARANGODB_USE_TLS", cfg.UseTLS)
	cfg.AcquireHostList = boolFromEnv(ctx, "ARANGODB_ACQUIRE_HOST_LIST", cfg.AcquireHostList)
	cfg.Debug = boolFromEnv(ctx, "ARANGODB_DEBUG", cfg.Debug)

	return cfg
}

// ClientOptions converts the configuration into options for client.New
func (cfg *Config) ClientOptions() ([]client.Option, error) {
	protocol, err := connection.ParseProtocol(cfg.Protocol)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	strategy, err := connection.ParseLoadBalancing(cfg.LoadBalancing)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	compression, err := connection.ParseCompression(cfg.Compression.Type)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	timeout, err := parseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}

	interval, err := parseDuration(cfg.AcquireHostListInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid host list interval: %w", err)
	}

	hosts := cfg.Hosts
	if cfg.UseTLS {
		hosts = make([]string, 0, len(cfg.Hosts))
		for _, h := range cfg.Hosts {
			hosts = append(hosts, strings.Replace(h, "http://", "https://", 1))
		}
	}

	options := []client.Option{
		client.Hosts(hosts...),
		client.Protocol(protocol),
		client.LoadBalancing(strategy),
		client.Debug(cfg.Debug),
	}

	if cfg.JWT != "" {
		options = append(options, client.JWTAuthentication(cfg.JWT))
	} else if cfg.User != "" {
		options = append(options, client.BasicAuthentication(cfg.User, cfg.Password))
	}

	if timeout > 0 {
		options = append(options, client.Timeout(timeout))
	}
	if cfg.MaxConnections > 0 {
		options = append(options, client.MaxConnections(cfg.MaxConnections))
	}
	if cfg.ChunkSize > 0 {
		options = append(options, client.ChunkSize(cfg.ChunkSize))
	}
	if cfg.UseTLS {
		options = append(options, client.UseTLS(nil))
	}
	if compression != connection.CompressionNone {
		threshold := cfg.Compression.Threshold
		if threshold == 0 {
			threshold = connection.DefaultCompressionThreshold
		}
		options = append(options, client.Compression(compression, threshold, cfg.Compression.Level))
	}
	if cfg.AcquireHostList {
		if interval > 0 {
			options = append(options, client.AcquireHostListInterval(interval))
		} else {
			options = append(options, client.AcquireHostList(true))
		}
	}

	return options, nil
}

func splitHosts(value string) []string {
	hosts := []string{}
	for _, h := range strings.Split(value, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}

func intFromEnv(ctx context.Context, name string, fallback int) int {
	value := env.GetVariableOrDefault(ctx, name, "")
	if value == "" {
		return fallback
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func boolFromEnv(ctx context.Context, name string, fallback bool) bool {
	value := env.GetVariableOrDefault(ctx, name, "")
	if value == "" {
		return fallback
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
