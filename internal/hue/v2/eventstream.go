package v2

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/eventbus"
	"github.com/dokzlo13/combinedd/internal/light"
)

// ErrMaxReconnectsExceeded is returned when the maximum number of reconnect attempts is exceeded.
var ErrMaxReconnectsExceeded = errors.New("max reconnects exceeded")

// EventStreamConfig contains configuration for event stream reconnection.
type EventStreamConfig struct {
	MinBackoff    time.Duration // Minimum backoff between reconnects
	MaxBackoff    time.Duration // Maximum backoff between reconnects
	Multiplier    float64       // Backoff multiplier
	MaxReconnects int           // Max reconnect attempts, 0 = infinite
	V1IDs         bool          // Report lights by their V1 id ("5") instead of the V2 UUID
}

// DefaultEventStreamConfig returns sensible defaults for event stream configuration.
func DefaultEventStreamConfig() EventStreamConfig {
	return EventStreamConfig{
		MinBackoff: 1 * time.Second,
		MaxBackoff: 2 * time.Minute,
		Multiplier: 2.0,
	}
}

// EventStream listens to the Hue event stream (SSE) via V2 API
// and publishes light updates to the bus.
type EventStream struct {
	v2Client   *Client
	httpClient *http.Client
	config     EventStreamConfig

	// OnConnect is called after every successful (re)connect. Optional.
	OnConnect func(ctx context.Context)
}

// NewEventStreamWithConfig creates a new event stream listener with custom configuration
func NewEventStreamWithConfig(v2Client *Client, config EventStreamConfig) *EventStream {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	return &EventStream{
		v2Client: v2Client,
		httpClient: &http.Client{
			Transport: transport,
			// No timeout for SSE - it's a long-lived connection
		},
		config: config,
	}
}

// Run starts listening to the event stream with automatic reconnection.
// Returns ErrMaxReconnectsExceeded if max reconnects is exceeded.
func (e *EventStream) Run(ctx context.Context, bus *eventbus.Bus) error {
	retryCount := 0
	currentBackoff := e.config.MinBackoff

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := e.connect(ctx, bus)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			retryCount++

			if e.config.MaxReconnects > 0 && retryCount > e.config.MaxReconnects {
				log.Error().
					Int("max_reconnects", e.config.MaxReconnects).
					Msg("Event stream: max reconnects exceeded, terminating")
				return ErrMaxReconnectsExceeded
			}

			log.Warn().
				Err(err).
				Dur("backoff", currentBackoff).
				Int("retry", retryCount).
				Int("max_reconnects", e.config.MaxReconnects).
				Msg("Event stream disconnected, reconnecting")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(currentBackoff):
			}

			nextBackoff := time.Duration(float64(currentBackoff) * e.config.Multiplier)
			if nextBackoff > e.config.MaxBackoff {
				nextBackoff = e.config.MaxBackoff
			}
			currentBackoff = nextBackoff

			continue
		}

		// Reset retry count and backoff on successful connection
		retryCount = 0
		currentBackoff = e.config.MinBackoff
	}
}

func (e *EventStream) connect(ctx context.Context, bus *eventbus.Bus) error {
	url := fmt.Sprintf("https://%s/eventstream/clip/v2", e.v2Client.Address())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req.Header.Set("hue-application-key", e.v2Client.Token())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	log.Info().Msg("Connected to Hue event stream")
	if e.OnConnect != nil {
		e.OnConnect(ctx)
	}

	return e.consume(bufio.NewScanner(resp.Body), bus)
}

// consume reads SSE frames until the stream ends.
func (e *EventStream) consume(scanner *bufio.Scanner, bus *eventbus.Bus) error {
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var dataBuffer strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		if line == ": hi" {
			log.Debug().Msg("Received event stream greeting")
			continue
		}

		// Empty line marks end of event
		if line == "" {
			if dataBuffer.Len() > 0 {
				e.processEvent(dataBuffer.String(), bus)
				dataBuffer.Reset()
			}
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			dataBuffer.WriteString(strings.TrimPrefix(line, "data: "))
		}
	}

	return scanner.Err()
}

func (e *EventStream) processEvent(data string, bus *eventbus.Bus) {
	var events []map[string]interface{}
	if err := json.Unmarshal([]byte(data), &events); err != nil {
		log.Warn().Err(err).Str("data", data).Msg("Failed to parse event")
		return
	}

	for _, event := range events {
		e.handleEvent(event, bus)
	}
}

func (e *EventStream) handleEvent(event map[string]interface{}, bus *eventbus.Bus) {
	eventType, _ := event["type"].(string)
	dataItems, _ := event["data"].([]interface{})

	for _, item := range dataItems {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		itemType, _ := itemMap["type"].(string)
		itemID, _ := itemMap["id"].(string)

		switch itemType {
		case "light":
			if u, ok := ParseLightUpdate(itemMap, e.config.V1IDs); ok {
				log.Debug().
					Str("id", u.ID).
					Interface("on", u.On).
					Interface("brightness", u.Brightness).
					Msg("Light change event")
				bus.Publish(eventbus.Event{
					Type: eventbus.EventTypeLightUpdate,
					Data: map[string]interface{}{"update": u},
				})
			}

		case "zigbee_connectivity":
			status, _ := itemMap["status"].(string)
			log.Debug().Str("id", itemID).Str("status", status).Msg("Connectivity event")
			bus.Publish(eventbus.Event{
				Type: eventbus.EventTypeConnectivity,
				Data: map[string]interface{}{
					"device_id": itemID,
					"status":    status,
				},
			})

		default:
			log.Trace().
				Str("event_type", eventType).
				Str("item_type", itemType).
				Str("id", itemID).
				Msg("Unhandled event type")
		}
	}
}

// ParseLightUpdate extracts on/off and brightness from one SSE light item.
// Brightness arrives in percent and is converted to the 0-255 scale.
// ok is false when the item carries neither, or has no usable id.
func ParseLightUpdate(item map[string]interface{}, v1IDs bool) (light.Update, bool) {
	var u light.Update

	if v1IDs {
		idV1, _ := item["id_v1"].(string)
		u.ID = V1ID(idV1)
	} else {
		u.ID, _ = item["id"].(string)
	}
	if u.ID == "" {
		return u, false
	}

	if on, ok := item["on"].(map[string]interface{}); ok {
		if isOn, ok := on["on"].(bool); ok {
			u.On = &isOn
		}
	}

	if dimming, ok := item["dimming"].(map[string]interface{}); ok {
		if pct, ok := dimming["brightness"].(float64); ok {
			level := light.PercentToLevel(pct)
			u.Brightness = &level
		}
	}

	if u.On == nil && u.Brightness == nil {
		return u, false
	}
	return u, true
}

// V1ID turns an id_v1 path such as "/lights/5" into "5".
func V1ID(path string) string {
	const prefix = "/lights/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	return strings.TrimPrefix(path, prefix)
}
