package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diwise/arangodb-driver/internal/pkg/fakearango"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/spf13/cobra"
)

type mockServerFlags struct {
	listen          string
	vstListen       string
	rootPassword    string
	allowedOrigins  []string
	policyPath      string
	shutdownTimeout time.Duration
}

func (c *cli) mockServerCommand() *cobra.Command {
	flags := mockServerFlags{}

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory stand-in for an ArangoDB server",
		Long: "Serves the REST api used by the driver from memory, over HTTP with json or velocypack bodies " +
			"and optionally over VelocyStream. Nothing is persisted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveMock(cmd.Context(), flags)
		},
	}

	port := env.GetVariableOrDefault(context.Background(), "SERVICE_PORT", "8529")

	cmd.Flags().StringVar(&flags.listen, "listen", ":"+port, "http listen address")
	cmd.Flags().StringVar(&flags.vstListen, "vst-listen", "", "velocystream listen address, disabled when empty")
	cmd.Flags().StringVar(&flags.rootPassword, "root-password", "", "enable authentication with this root password")
	cmd.Flags().StringSliceVar(&flags.allowedOrigins, "allowed-origins", []string{"*"}, "origins allowed by cors")
	cmd.Flags().StringVar(&flags.policyPath, "policy", "", "rego policy file used to authorize requests")
	cmd.Flags().DurationVar(&flags.shutdownTimeout, "shutdown-timeout", 5*time.Second, "time allowed for requests in flight on shutdown")

	return cmd
}

func serveMock(ctx context.Context, flags mockServerFlags) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.GetFromContext(ctx)

	options := []fakearango.Option{
		fakearango.WithServiceName(appName),
		fakearango.WithAllowedOrigins(flags.allowedOrigins...),
	}
	if flags.rootPassword != "" {
		options = append(options, fakearango.WithRootPassword(flags.rootPassword))
	}
	if flags.policyPath != "" {
		policy, err := readPolicy(flags.policyPath)
		if err != nil {
			return err
		}
		options = append(options, fakearango.WithPolicy(policy))
	}

	s, err := fakearango.New(ctx, options...)
	if err != nil {
		return err
	}

	errs := make(chan error, 2)

	srv := &http.Server{
		Addr:              flags.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting to listen for http connections", "addr", flags.listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http listener failed: %w", err)
		}
	}()

	if flags.vstListen != "" {
		l, err := net.Listen("tcp", flags.vstListen)
		if err != nil {
			srv.Close()
			return fmt.Errorf("failed to listen for vst connections: %w", err)
		}

		go func() {
			log.Info("starting to listen for vst connections", "addr", l.Addr().String())
			if err := s.ServeVST(ctx, l); err != nil {
				errs <- fmt.Errorf("vst listener failed: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errs:
		log.Error("mock server failed", "err", err.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), flags.shutdownTimeout)
	defer cancel()

	stop()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	return err
}

func readPolicy(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read policy: %w", err)
	}
	return string(b), nil
}
