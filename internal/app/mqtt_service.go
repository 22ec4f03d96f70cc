package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/combined"
	"github.com/dokzlo13/combinedd/internal/config"
	"github.com/dokzlo13/combinedd/internal/mqtt"
)

// MQTTService exposes the combined light on an MQTT broker.
type MQTTService struct {
	cfg    *config.Config
	ctrl   *combined.Controller
	Client *mqtt.Client
	Entity *mqtt.Entity
}

// NewMQTTService creates the service; nothing connects until Start.
func NewMQTTService(cfg *config.Config, ctrl *combined.Controller) *MQTTService {
	return &MQTTService{cfg: cfg, ctrl: ctrl}
}

// Start connects to the broker and registers the entity as a state publisher.
func (s *MQTTService) Start(ctx context.Context) error {
	if !s.cfg.MQTT.Enabled {
		log.Info().Msg("MQTT is disabled")
		return nil
	}

	topics := mqtt.Topics{
		Base:            s.cfg.MQTT.BaseTopic,
		ObjectID:        s.cfg.Light.ObjectID(),
		DiscoveryPrefix: s.cfg.MQTT.Discovery.Prefix,
	}

	client, err := mqtt.Connect(s.cfg.MQTT, topics)
	if err != nil {
		return err
	}
	s.Client = client

	s.Entity = mqtt.NewEntity(client, topics, s.ctrl, s.cfg.Light.Name, s.cfg.MQTT.Discovery.Enabled)
	if err := s.Entity.Start(ctx); err != nil {
		return err
	}
	client.SetOnConnect(s.Entity.Announce)
	s.ctrl.AddPublisher(s.Entity)

	log.Info().Str("state_topic", topics.State()).Str("command_topic", topics.Command()).Msg("MQTT light entity ready")
	return nil
}

// Close publishes offline and disconnects.
func (s *MQTTService) Close() {
	if s.Client != nil {
		if err := s.Client.Close(); err != nil {
			log.Warn().Err(err).Msg("MQTT close error")
		}
	}
}
