package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/notamwatch/api"
)

func (a *app) newService() (*api.Service, func(), error) {
	var opts []api.Option
	ledger, err := a.openLedger()
	if err != nil {
		return nil, nil, err
	}
	closer := func() {}
	if ledger != nil {
		opts = append(opts, api.WithLedger(ledger))
		closer = func() { ledger.Close() }
	}
	return api.New(a.openStore(), a.logger, opts...), closer, nil
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored NOTAMs over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			svc, closeSvc, err := a.newService()
			if err != nil {
				return err
			}
			defer closeSvc()

			srv := &http.Server{
				Addr:              addr,
				Handler:           svc.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("notamwatch: listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			a.logger.Info("notamwatch: stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Expose the stored NOTAMs as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeSvc, err := a.newService()
			if err != nil {
				return err
			}
			defer closeSvc()
			return svc.NewMCPServer(version).Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
