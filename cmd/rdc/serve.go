package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"

	"github.com/Veraticus/rd-classifier/internal/api"
	"github.com/Veraticus/rd-classifier/internal/certs"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/config"
	"github.com/Veraticus/rd-classifier/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the config store and classification over HTTP",
		Long: `Serve the configured store under ` + api.BasePath + ` so browsers and other rdc
installs (store.driver: remote) can share profiles. Also accepts workbook
uploads for classification.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.LoadServerConfig(viper.GetViper())

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if store.driver == config.DriverRemote {
		return common.NewUserError("serve needs a local store; store.driver is remote", common.ErrInvalidConfig)
	}

	opts := api.DefaultOptions()
	if len(cfg.AllowedOrigins) > 0 {
		opts.AllowedOrigins = cfg.AllowedOrigins
	}
	if cfg.TLS {
		host, _, _ := net.SplitHostPort(cfg.Addr)
		tlsConfig, err := certs.NewFileManager(filepath.Join(config.Dir(), "certs"), host).TLSConfig()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		opts.TLS = tlsConfig
	}
	server := api.NewServer(store.ConfigStore, opts)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx, cfg.Addr)
	})
	if fs, ok := store.ConfigStore.(*storage.FileStore); ok {
		g.Go(func() error {
			return fs.Watch(ctx, func(configs map[string]json.RawMessage) {
				slog.Info("Config file changed", "path", fs.Path(), "keys", len(configs))
			})
		})
	}
	return g.Wait()
}
