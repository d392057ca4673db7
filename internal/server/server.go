// Package server runs the local widget bridge: an HTTP server the chat
// widget frontend talks to. It exposes the session protocol as JSON
// endpoints and streams protocol events over SSE and WebSocket.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/simoncinid/hostgpt-sub000/internal/audio"
	"github.com/simoncinid/hostgpt-sub000/internal/session"
)

// StartOpts holds configuration for the bridge server.
type StartOpts struct {
	Engine      *session.Engine
	Hub         *Hub   // optional; no event streaming without it
	Addr        string // defaults to :8090
	RefreshCron string // optional chatbot info refresh schedule
	Out         io.Writer
}

// Start launches the bridge server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Engine == nil {
		return fmt.Errorf("server: engine is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8090"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	b := &bridge{engine: opts.Engine, hub: opts.Hub}
	registerRoutes(router, b)

	// Scheduled chatbot info refresh keeps the welcome message and house
	// rules current on long-lived widgets.
	if opts.RefreshCron != "" {
		sched := cron.New()
		if _, err := sched.AddFunc(opts.RefreshCron, func() {
			refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			opts.Engine.RefreshInfo(refreshCtx)
		}); err != nil {
			return fmt.Errorf("server: refresh schedule %q: %w", opts.RefreshCron, err)
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Widget bridge listening on %s\n", opts.Addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// bridge holds the per-server state behind the handlers. The voice capture
// slot mirrors the widget's single push-to-talk button.
type bridge struct {
	engine *session.Engine
	hub    *Hub

	mu      sync.Mutex
	capture audio.Capture
}
