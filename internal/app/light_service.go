package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/combined"
	"github.com/dokzlo13/combinedd/internal/config"
	"github.com/dokzlo13/combinedd/internal/hue"
	"github.com/dokzlo13/combinedd/internal/ledger"
	"github.com/dokzlo13/combinedd/internal/light"
	"github.com/dokzlo13/combinedd/internal/mapping"
	"github.com/dokzlo13/combinedd/internal/storage"
)

// LightService owns the light state cache and the combined light controller.
type LightService struct {
	hue     *HueService
	zones   mapping.Zones
	Cache   *light.Cache
	Ctrl    *combined.Controller
	detach  func()
	running bool
	done    chan struct{}
}

// NewLightService builds the controller from the validated light config.
// l may be nil when the ledger is disabled.
func NewLightService(cfg *config.Config, hueSvc *HueService, l *ledger.Ledger, targets *storage.TargetStore) (*LightService, error) {
	zones, err := cfg.Light.Zones()
	if err != nil {
		return nil, err
	}

	cache := light.NewCache()

	opts := combined.Options{
		Name:      cfg.Light.ObjectID(),
		Zones:     zones,
		Lights:    cache,
		Commander: hueSvc.Backend,
		Store:     targets,
	}
	if l != nil {
		opts.Journal = ledger.NewJournal(l, cfg.Light.ObjectID())
	}

	return &LightService{
		hue:   hueSvc,
		zones: zones,
		Cache: cache,
		Ctrl:  combined.New(opts),
		done:  make(chan struct{}),
	}, nil
}

// Start primes the cache, starts the controller loop and subscribes it to light updates.
func (s *LightService) Start(ctx context.Context) error {
	if err := hue.Prime(ctx, s.hue.Backend, s.Cache, s.zones.AllLights()); err != nil {
		return err
	}

	s.running = true
	go func() {
		defer close(s.done)
		s.Ctrl.Run(ctx)
	}()

	s.detach = s.Ctrl.Attach(ctx, s.hue.Bus)

	// Anything missed while the stream was down is picked up from a fresh snapshot.
	s.hue.EventStream.OnConnect = func(ctx context.Context) {
		if err := hue.Prime(ctx, s.hue.Backend, s.Cache, s.zones.AllLights()); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh light states after reconnect")
			return
		}
		if err := s.Ctrl.Sync(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to resync combined light")
		}
	}
	return nil
}

// Sync seeds the target from the primed cache.
func (s *LightService) Sync(ctx context.Context) error {
	return s.Ctrl.Sync(ctx)
}

// Close detaches from the bus, stops the controller and waits for queued work.
func (s *LightService) Close() {
	if s.detach != nil {
		s.detach()
	}
	s.Ctrl.Close()
	if s.running {
		<-s.done
	}
}
