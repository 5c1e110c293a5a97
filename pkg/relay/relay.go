package relay

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	socketio "github.com/zhouhui8915/go-socket.io-client"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

const DefaultEventName = "registry-event"

// Config configures a socket.io relay.
type Config struct {
	URL        string
	APIKey     string
	EventName  string
	Registries []nestable.RegistryID
	Logger     *zerolog.Logger
}

// Emitter is the part of a socket.io client the relay needs.
type Emitter interface {
	Emit(message string, args ...interface{}) error
}

// SocketIOSink is a nestable.EventSink that emits events to a socket.io
// server. Emits are serialized.
type SocketIOSink struct {
	emitter   Emitter
	eventName string
	allowed   map[nestable.RegistryID]bool
	logger    zerolog.Logger
	mu        sync.Mutex
	sent      uint64
}

var _ nestable.EventSink = (*SocketIOSink)(nil)

// NewSocketIOSink dials config.URL over the websocket transport.
func NewSocketIOSink(config Config) (*SocketIOSink, error) {
	endpoint := normalizeURL(config.URL)
	if endpoint == "" {
		return nil, fmt.Errorf("relay URL is required")
	}

	options := &socketio.Options{
		Transport: "websocket",
		Query:     map[string]string{},
		Header:    map[string][]string{},
	}
	if apiKey := strings.TrimSpace(config.APIKey); apiKey != "" {
		options.Query["apiKey"] = apiKey
		options.Header["x-api-key"] = []string{apiKey}
	}

	client, err := socketio.NewClient(endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect relay %s: %w", endpoint, err)
	}

	sink := NewSink(client, config)
	_ = client.On("error", func(message any) {
		sink.logger.Warn().Str("url", endpoint).Msgf("relay error: %v", message)
	})
	_ = client.On("disconnection", func() {
		sink.logger.Warn().Str("url", endpoint).Msg("relay disconnected")
	})
	sink.logger.Info().Str("url", endpoint).Msg("relay connected")
	return sink, nil
}

// NewSink wraps an existing emitter.
func NewSink(emitter Emitter, config Config) *SocketIOSink {
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	eventName := strings.TrimSpace(config.EventName)
	if eventName == "" {
		eventName = DefaultEventName
	}

	var allowed map[nestable.RegistryID]bool
	for _, raw := range config.Registries {
		registry, err := nestable.NormalizeRegistryID(string(raw))
		if err != nil {
			logger.Warn().Str("registry", string(raw)).Err(err).Msg("ignoring relay registry filter")
			continue
		}
		if allowed == nil {
			allowed = map[nestable.RegistryID]bool{}
		}
		allowed[registry] = true
	}

	return &SocketIOSink{
		emitter:   emitter,
		eventName: eventName,
		allowed:   allowed,
		logger:    logger,
	}
}

// HandleEvents emits each event in order and stops at the first failure.
func (sink *SocketIOSink) HandleEvents(ctx context.Context, events []nestable.Event) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sink.allowed != nil && !sink.allowed[event.Registry] {
			continue
		}
		if err := sink.emitter.Emit(sink.eventName, event); err != nil {
			return fmt.Errorf("failed to relay event %s: %w", event.ID, err)
		}
		sink.sent++
	}
	return nil
}

// Sent returns how many events were emitted.
func (sink *SocketIOSink) Sent() uint64 {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return sink.sent
}

func normalizeURL(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	return parsed.String()
}
