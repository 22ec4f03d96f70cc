package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/combined"
)

// Broker is the part of Client the entity needs.
type Broker interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler MessageHandler) error
}

// Controller is the combined light driven by MQTT commands.
type Controller interface {
	TurnOn(ctx context.Context, brightness *uint8) error
	TurnOff(ctx context.Context) error
	State() combined.State
}

// stateMessage is the JSON schema light payload used for state and commands.
type stateMessage struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness,omitempty"`
}

type discoveryMessage struct {
	Name                string   `json:"name"`
	UniqueID            string   `json:"unique_id"`
	Schema              string   `json:"schema"`
	StateTopic          string   `json:"state_topic"`
	CommandTopic        string   `json:"command_topic"`
	AvailabilityTopic   string   `json:"availability_topic"`
	Brightness          bool     `json:"brightness"`
	BrightnessScale     int      `json:"brightness_scale"`
	SupportedColorModes []string `json:"supported_color_modes"`
}

// Entity exposes the combined light as an MQTT JSON light.
// It implements combined.Publisher.
type Entity struct {
	broker    Broker
	topics    Topics
	ctrl      Controller
	name      string
	discovery bool

	ctx context.Context
}

// NewEntity creates an entity; call Start once the broker is connected.
func NewEntity(broker Broker, topics Topics, ctrl Controller, name string, discovery bool) *Entity {
	return &Entity{
		broker:    broker,
		topics:    topics,
		ctrl:      ctrl,
		name:      name,
		discovery: discovery,
		ctx:       context.Background(),
	}
}

// Start subscribes to the command topic and announces the entity.
// ctx bounds the commands issued on behalf of MQTT messages.
func (e *Entity) Start(ctx context.Context) error {
	e.ctx = ctx
	if err := e.broker.Subscribe(e.topics.Command(), e.handleCommand); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", e.topics.Command(), err)
	}
	e.Announce()
	return nil
}

// Announce publishes discovery (if enabled) and the current state.
// Called on start and after every reconnect.
func (e *Entity) Announce() {
	if e.discovery {
		payload, err := json.Marshal(discoveryMessage{
			Name:                e.name,
			UniqueID:            "combinedd_" + e.topics.ObjectID,
			Schema:              "json",
			StateTopic:          e.topics.State(),
			CommandTopic:        e.topics.Command(),
			AvailabilityTopic:   e.topics.Availability(),
			Brightness:          true,
			BrightnessScale:     255,
			SupportedColorModes: []string{"brightness"},
		})
		if err == nil {
			err = e.broker.Publish(e.topics.Discovery(), payload, true)
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to publish MQTT discovery")
		}
	}
	e.Publish(e.ctrl.State())
}

// Publish implements combined.Publisher.
func (e *Entity) Publish(s combined.State) {
	msg := stateMessage{State: "OFF"}
	if s.On {
		msg.State = "ON"
		if s.Brightness != nil {
			b := int(*s.Brightness)
			msg.Brightness = &b
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode light state")
		return
	}
	if err := e.broker.Publish(e.topics.State(), payload, true); err != nil {
		log.Warn().Err(err).Str("topic", e.topics.State()).Msg("Failed to publish light state")
		return
	}
	log.Debug().RawJSON("state", payload).Msg("Published light state")
}

func (e *Entity) handleCommand(_ string, payload []byte) error {
	on, brightness, err := ParseCommand(payload)
	if err != nil {
		return err
	}

	if !on {
		return e.ctrl.TurnOff(e.ctx)
	}
	return e.ctrl.TurnOn(e.ctx, brightness)
}

// ParseCommand decodes a JSON schema command or a bare ON/OFF payload.
func ParseCommand(payload []byte) (on bool, brightness *uint8, err error) {
	text := strings.TrimSpace(string(payload))
	switch strings.ToUpper(text) {
	case "ON":
		return true, nil, nil
	case "OFF":
		return false, nil, nil
	}

	var msg stateMessage
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		return false, nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	switch strings.ToUpper(msg.State) {
	case "OFF":
		return false, nil, nil
	case "ON", "":
	default:
		return false, nil, fmt.Errorf("%w: unknown state %q", ErrInvalidCommand, msg.State)
	}

	if msg.Brightness != nil {
		if *msg.Brightness < 0 || *msg.Brightness > 255 {
			return false, nil, fmt.Errorf("%w: brightness %d out of range 0-255", ErrInvalidCommand, *msg.Brightness)
		}
		b := uint8(*msg.Brightness)
		brightness = &b
	} else if msg.State == "" {
		return false, nil, fmt.Errorf("%w: empty command", ErrInvalidCommand)
	}
	return true, brightness, nil
}
