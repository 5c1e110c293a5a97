package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

type recordingEmitter struct {
	names  []string
	events []nestable.Event
	failAt int
}

func (emitter *recordingEmitter) Emit(message string, args ...interface{}) error {
	if emitter.failAt > 0 && len(emitter.events)+1 == emitter.failAt {
		return errors.New("socket closed")
	}
	emitter.names = append(emitter.names, message)
	emitter.events = append(emitter.events, args[0].(nestable.Event))
	return nil
}

func TestSinkEmitsInOrder(t *testing.T) {
	emitter := &recordingEmitter{}
	sink := NewSink(emitter, Config{})

	events := []nestable.Event{
		{ID: "a", Type: nestable.EventMint, Registry: "0.0.5001", TokenID: 1},
		{ID: "b", Type: nestable.EventMint, Registry: "0.0.5001", TokenID: 2},
	}
	if err := sink.HandleEvents(context.Background(), events); err != nil {
		t.Fatalf("handle events failed: %v", err)
	}
	if len(emitter.events) != 2 || emitter.events[1].ID != "b" {
		t.Fatalf("unexpected emitted events: %+v", emitter.events)
	}
	if emitter.names[0] != DefaultEventName {
		t.Fatalf("expected %s, got %s", DefaultEventName, emitter.names[0])
	}
	if sink.Sent() != 2 {
		t.Fatalf("expected 2 sent, got %d", sink.Sent())
	}
}

func TestSinkFiltersRegistries(t *testing.T) {
	emitter := &recordingEmitter{}
	sink := NewSink(emitter, Config{
		EventName:  "films",
		Registries: []nestable.RegistryID{"0.0.5001", "not-a-registry"},
	})

	events := []nestable.Event{
		{ID: "a", Registry: "0.0.5001"},
		{ID: "b", Registry: "0.0.5002"},
	}
	if err := sink.HandleEvents(context.Background(), events); err != nil {
		t.Fatalf("handle events failed: %v", err)
	}
	if len(emitter.events) != 1 || emitter.events[0].ID != "a" || emitter.names[0] != "films" {
		t.Fatalf("unexpected emitted events: %+v", emitter.events)
	}
}

func TestSinkStopsAtFirstFailure(t *testing.T) {
	emitter := &recordingEmitter{failAt: 2}
	sink := NewSink(emitter, Config{})

	err := sink.HandleEvents(context.Background(), []nestable.Event{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	if err == nil {
		t.Fatalf("expected relay error")
	}
	if len(emitter.events) != 1 || sink.Sent() != 1 {
		t.Fatalf("expected one event before the failure, got %d", len(emitter.events))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewSink(&recordingEmitter{}, Config{}).HandleEvents(ctx, []nestable.Event{{ID: "a"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestNewSocketIOSinkRequiresURL(t *testing.T) {
	if _, err := NewSocketIOSink(Config{URL: "  "}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}

func TestNormalizeURL(t *testing.T) {
	if normalizeURL(" ws://localhost:3000/socket.io/ ") != "ws://localhost:3000/socket.io/" {
		t.Fatalf("unexpected normalized URL")
	}
	if normalizeURL("") != "" {
		t.Fatalf("expected empty URL")
	}
}
