package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/api"
	"github.com/dokzlo13/combinedd/internal/config"
	"github.com/dokzlo13/combinedd/internal/db"
	"github.com/dokzlo13/combinedd/internal/hue"
	"github.com/dokzlo13/combinedd/internal/ledger"
	"github.com/dokzlo13/combinedd/internal/storage"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB      *db.DB
	Ledger  *ledger.Ledger // nil when disabled
	Store   *storage.Store
	Targets *storage.TargetStore

	// High-level services
	Hue       *HueService
	Light     *LightService
	MQTT      *MQTTService
	API       *APIService
	LedgerSvc *LedgerService
}

// NewServices creates all services with proper dependency injection.
func NewServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	if cfg.Hue.Bridge == "" {
		log.Info().Dur("timeout", cfg.Hue.DiscoveryTimeout.Duration()).Msg("No bridge configured, discovering via mDNS")
		host, err := hue.DiscoverBridge(ctx, cfg.Hue.BridgeID, cfg.Hue.DiscoveryTimeout.Duration())
		if err != nil {
			return nil, fmt.Errorf("bridge discovery: %w", err)
		}
		cfg.Hue.Bridge = host
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	if cfg.Ledger.IsEnabled() {
		s.Ledger = ledger.New(database.DB)
		s.LedgerSvc = NewLedgerService(cfg, s.Ledger)
	}

	s.Store = storage.NewStore(database.DB)
	s.Targets = storage.NewTargetStore(s.Store)

	s.Hue = NewHueService(cfg)

	s.Light, err = NewLightService(cfg, s.Hue, s.Ledger, s.Targets)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.MQTT = NewMQTTService(cfg, s.Light.Ctrl)

	deps := api.Deps{
		Controller: s.Light.Ctrl,
		Ready:      s.Light.Cache.Ready,
	}
	if s.Ledger != nil {
		deps.Ledger = s.Ledger
	}
	s.API = NewAPIService(cfg, deps)
	s.Light.Ctrl.AddPublisher(s.API.Hub)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs (e.g., max reconnects exceeded).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	if err := s.Hue.Start(ctx); err != nil {
		return err
	}

	if err := s.Light.Start(ctx); err != nil {
		return err
	}

	// Publishers must be registered before the first sync publishes.
	if err := s.MQTT.Start(ctx); err != nil {
		return err
	}

	if err := s.Light.Sync(ctx); err != nil {
		return err
	}

	s.Hue.StartBackground(ctx, onFatalError)
	s.API.Start(ctx)
	if s.LedgerSvc != nil {
		s.LedgerSvc.Start(ctx)
	}

	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.MQTT != nil {
		s.MQTT.Close()
	}
	if s.Light != nil {
		s.Light.Close()
	}
	if s.Hue != nil {
		s.Hue.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
