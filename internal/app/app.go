// Package app wires the combined light daemon together and owns its lifecycle.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/config"
)

// App holds the configured services of one daemon instance.
type App struct {
	cfg      *config.Config
	services *Services
}

// New opens storage and builds every service. The network is only used to
// discover the bridge when no address is configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	services, err := NewServices(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: services}, nil
}

// Run starts the services, blocks until ctx is done or a service fails fatally,
// then tears everything down. A fatal background failure is returned.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fatal := make(chan error, 1)
	onFatalError := func(err error) {
		log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		select {
		case fatal <- err:
		default:
		}
		cancel()
	}

	if err := a.services.Start(ctx, onFatalError); err != nil {
		a.services.Close()
		return err
	}

	log.Info().
		Str("light", a.cfg.Light.Name).
		Int("lights", len(a.services.Light.zones.AllLights())).
		Msg("combinedd started")

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	a.services.Close()

	select {
	case err := <-fatal:
		return err
	default:
		return nil
	}
}

// ResetState forgets the persisted target brightness.
func (a *App) ResetState() error {
	return a.services.Targets.Reset()
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
