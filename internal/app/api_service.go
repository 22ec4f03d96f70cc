package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/api"
	"github.com/dokzlo13/combinedd/internal/config"
)

// APIService runs the HTTP control and health endpoints and the state stream.
type APIService struct {
	cfg  *config.Config
	deps api.Deps
	Hub  *api.Hub
}

// NewAPIService creates a new APIService. The hub is created even when the
// server is disabled so it can be registered as a publisher unconditionally.
func NewAPIService(cfg *config.Config, deps api.Deps) *APIService {
	hub := api.NewHub()
	deps.Hub = hub
	deps.CORSOrigins = cfg.API.CORSOrigins
	return &APIService{cfg: cfg, deps: deps, Hub: hub}
}

// Start begins serving if enabled.
func (s *APIService) Start(ctx context.Context) {
	if !s.cfg.API.Enabled {
		log.Info().Msg("API server is disabled")
		return
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.API.Host, s.cfg.API.Port)
	server := api.NewServer(addr, api.NewRouter(s.deps), s.cfg.ShutdownTimeout.Duration())
	go s.Hub.Run(ctx)
	go server.Run(ctx)
}
