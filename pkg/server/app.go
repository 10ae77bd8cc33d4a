package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "WattCast/pkg/http"
	applogger "WattCast/pkg/logger"
)

// Loop is the long-running job the app supervises.
type Loop interface {
	Run(ctx context.Context) error
}

// Closer is a named resource released on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	loop    Loop
	http    *xhttp.Server
	log     *applogger.Logger
	closers []Closer
	timeout time.Duration
}

// New creates an App. httpServer may be nil when the API is disabled.
// closers run in reverse order on shutdown, so pass them in construction
// order.
func New(loop Loop, httpServer *xhttp.Server, log *applogger.Logger, closers ...Closer) *App {
	if log == nil {
		log = applogger.NewNop()
	}
	return &App{
		loop:    loop,
		http:    httpServer,
		log:     log,
		closers: closers,
		timeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and the loop and blocks until the loop ends.
// SIGINT and SIGTERM cancel the loop, which then returns nil; a fatal loop
// error or an HTTP serve failure is returned after shutdown.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var httpErr <-chan error
	if a.http != nil {
		if err := a.http.Start(); err != nil {
			a.shutdown()
			return err
		}
		httpErr = a.http.Err()
	}

	loopErr := make(chan error, 1)
	go func() { loopErr <- a.loop.Run(ctx) }()

	var err error
	select {
	case err = <-loopErr:
	case herr := <-httpErr:
		err = fmt.Errorf("http server: %w", herr)
		stop()
		if lerr := <-loopErr; lerr != nil {
			err = errors.Join(err, lerr)
		}
	}

	if err == nil {
		a.log.Info("shutdown signal received")
	}
	a.shutdown()
	return err
}

// shutdown gracefully stops all services.
func (a *App) shutdown() {
	a.log.Info("shutting down")

	if a.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.http.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
		cancel()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if c.Close == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
