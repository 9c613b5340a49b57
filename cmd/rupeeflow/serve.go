package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/rupeeflow/internal/api"
	"github.com/Veraticus/rupeeflow/internal/broker"
	"github.com/Veraticus/rupeeflow/internal/certs"
	"github.com/Veraticus/rupeeflow/internal/config"
	"github.com/Veraticus/rupeeflow/internal/ofx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serves the JSON API and the live websocket feed used by the web app.

When broker.url points at RabbitMQ, replicas sharing a database forward
change notices to each other so every websocket client sees fresh data.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	serverCfg, err := config.LoadServerConfig(v)
	if err != nil {
		return err
	}
	brokerCfg := config.LoadBrokerConfig(v)

	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	adv, closeAdvisor, err := newAdvisor(d.logger)
	if err != nil {
		return err
	}
	defer closeAdvisor()
	if adv == nil {
		d.logger.Warn("advisor not configured; advice and chat routes will answer 503")
	}

	opts := api.Options{
		Importer: ofx.NewParser(d.logger),
		Logger:   d.logger,
	}
	if serverCfg.TLS {
		if opts.TLS, err = certs.NewStore(serverCfg.CertDir).TLSConfig(); err != nil {
			return err
		}
	}
	srv := api.New(serverCfg, d.identity, d.store, adv, opts)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	if brokerCfg.Enabled() {
		b := broker.New(brokerCfg.URL, brokerCfg.Exchange, d.logger)
		defer func() { _ = b.Close() }()
		d.store.SetNotifier(b)
		g.Go(func() error {
			return b.Consume(ctx, func(ctx context.Context, n broker.Notice) error {
				return d.store.Refresh(ctx, n.UserID, n.Topic)
			})
		})
		d.logger.Info("forwarding change notices", "exchange", brokerCfg.Exchange, "origin", b.Origin())
	}

	start := time.Now()
	err = g.Wait()
	d.logger.Info("server stopped", "uptime", time.Since(start).Round(time.Second))
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
