package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/diwise/arangodb-driver/pkg/arangodb/client"
	"github.com/diwise/arangodb-driver/pkg/arangodb/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type cli struct {
	version string

	configPath     string
	envFile        string
	hosts          []string
	user           string
	database       string
	protocol       string
	passwordPrompt bool
}

func newRootCommand(version string) *cobra.Command {
	c := &cli{version: version}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Command line client for ArangoDB",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to a yaml configuration file")
	flags.StringVar(&c.envFile, "env-file", ".env", "environment file to load if it exists")
	flags.StringSliceVar(&c.hosts, "hosts", nil, "server endpoints, overrides the configuration")
	flags.StringVarP(&c.user, "user", "u", "", "user name, overrides the configuration")
	flags.StringVarP(&c.database, "database", "d", "", "database to use, overrides the configuration")
	flags.StringVar(&c.protocol, "protocol", "", "http-json, http-vpack or vst")
	flags.BoolVar(&c.passwordPrompt, "password-prompt", false, "read the password from the terminal")

	root.AddCommand(
		c.versionCommand(),
		c.databasesCommand(),
		c.collectionsCommand(),
		c.documentsCommand(),
		c.queryCommand(),
		c.importCommand(),
		c.usersCommand(),
		c.mockServerCommand(),
	)

	return root
}

// loadConfig merges, in increasing order of precedence, the defaults, the configuration
// file, the environment and the command line flags
func (c *cli) loadConfig(ctx context.Context) (*config.Config, error) {
	if c.envFile != "" {
		err := godotenv.Load(c.envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", c.envFile, err)
		}
	}

	cfg := config.Default()

	if c.configPath != "" {
		f, err := os.Open(c.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open configuration: %w", err)
		}
		defer f.Close()

		cfg, err = config.LoadConfiguration(f)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	cfg.ApplyEnvironment(ctx)

	if len(c.hosts) > 0 {
		cfg.Hosts = c.hosts
	}
	if c.user != "" {
		cfg.User = c.user
	}
	if c.database != "" {
		cfg.Database = c.database
	}
	if c.protocol != "" {
		cfg.Protocol = c.protocol
	}

	if c.passwordPrompt {
		fmt.Fprintf(os.Stderr, "Password for %s: ", cfg.User)
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		cfg.Password = string(password)
	}

	return cfg, nil
}

// connect returns a client for the configured servers together with the configured database
func (c *cli) connect(ctx context.Context) (client.ArangoDB, client.Database, error) {
	cfg, err := c.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	options, err := cfg.ClientOptions()
	if err != nil {
		return nil, nil, err
	}

	arango, err := client.New(options...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	return arango, arango.DB(cfg.Database), nil
}

// run connects before calling fn and closes the client afterwards
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, arango client.ArangoDB, db client.Database) error) error {
	ctx := cmd.Context()

	arango, db, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer arango.Close()

	return fn(ctx, arango, db)
}
