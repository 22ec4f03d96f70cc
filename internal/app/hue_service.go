package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/config"
	"github.com/dokzlo13/combinedd/internal/eventbus"
	"github.com/dokzlo13/combinedd/internal/hue"
	v2 "github.com/dokzlo13/combinedd/internal/hue/v2"
)

// HueService wraps the bridge backend, the event stream and the bus it feeds.
type HueService struct {
	cfg *config.Config

	Backend     hue.Backend
	EventStream *v2.EventStream
	Bus         *eventbus.Bus
}

// NewHueService creates the Hue components without connecting.
func NewHueService(cfg *config.Config) *HueService {
	var (
		backend  hue.Backend
		v2Client *v2.Client
	)

	switch cfg.Hue.API {
	case config.HueAPIV1:
		backend = hue.NewV1Backend(cfg.Hue.Bridge, cfg.Hue.Token, cfg.Hue.RateLimitRPS)
		// The event stream only exists on the V2 API; it reports V1 ids alongside.
		v2Client = v2.NewClient(cfg.Hue.Bridge, cfg.Hue.Token, hue.NewHTTPClient(cfg.Hue.Timeout.Duration()))
	default:
		b := hue.NewV2Backend(cfg.Hue.Bridge, cfg.Hue.Token, cfg.Hue.Timeout.Duration(), cfg.Hue.RateLimitRPS)
		backend = b
		v2Client = b.Client()
	}

	eventStream := v2.NewEventStreamWithConfig(v2Client, v2.EventStreamConfig{
		MinBackoff:    cfg.Hue.MinRetryBackoff.Duration(),
		MaxBackoff:    cfg.Hue.MaxRetryBackoff.Duration(),
		Multiplier:    cfg.Hue.RetryMultiplier,
		MaxReconnects: cfg.Hue.MaxReconnects,
		V1IDs:         cfg.Hue.API == config.HueAPIV1,
	})

	return &HueService{
		cfg:         cfg,
		Backend:     backend,
		EventStream: eventStream,
		Bus:         eventbus.NewWithQueueSize(cfg.EventBus.GetQueueSize()),
	}
}

// Start connects to the Hue bridge.
func (s *HueService) Start(ctx context.Context) error {
	if err := s.Backend.Connect(ctx); err != nil {
		return err
	}
	log.Info().Str("bridge", s.cfg.Hue.Bridge).Str("api", s.cfg.Hue.API).Msg("Connected to Hue bridge")
	return nil
}

// StartBackground starts the event stream listener.
// onFatalError is called when the stream gives up reconnecting.
func (s *HueService) StartBackground(ctx context.Context, onFatalError func(error)) {
	go func() {
		if err := s.EventStream.Run(ctx, s.Bus); err != nil {
			if errors.Is(err, v2.ErrMaxReconnectsExceeded) {
				log.Error().Msg("Event stream: max reconnects exceeded, triggering shutdown")
				if onFatalError != nil {
					onFatalError(err)
				}
			} else {
				log.Error().Err(err).Msg("Event stream error")
			}
		}
	}()
}

// Close releases all resources.
func (s *HueService) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.Backend != nil {
		s.Backend.Close()
	}
}
