package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simoncinid/hostgpt-sub000/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the widget bridge server",
		Long:  "Serves the chat widget API locally: JSON endpoints for the session protocol plus SSE and WebSocket event streams.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hostgpt.yaml", "path to HostGPT config file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath, addr string) error {
	hub := server.NewHub()
	engine, cfg, err := buildEngine(configPath, hub.Broadcast)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if err := engine.Load(ctx); err != nil {
		return err
	}

	if addr == "" {
		addr = cfg.Serve.Addr
	}
	return server.Start(ctx, server.StartOpts{
		Engine:      engine,
		Hub:         hub,
		Addr:        addr,
		RefreshCron: cfg.Serve.RefreshCron,
		Out:         cmd.OutOrStdout(),
	})
}
