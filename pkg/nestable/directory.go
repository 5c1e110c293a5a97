package nestable

import (
	"context"
	"fmt"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookmart/nestable-sdk-go/pkg/pubsub"
)

// TokenSource is the capability a registry exposes to the registries that
// nest its tokens or hold its tokens as children.
//
// Implementations are called while the directory's transaction lock is
// held and must pass the context they receive to any call they make back
// into the directory. A call made with a fresh context blocks forever.
type TokenSource interface {
	ID() RegistryID
	Exists(ctx context.Context, tokenID TokenID) (bool, error)
	DirectOwnerOf(ctx context.Context, tokenID TokenID) (Owner, error)

	// ReceiveChild records child as a pending (or, for trusted callers,
	// active) child of parentID. The child's direct owner must already be
	// the parent.
	ReceiveChild(ctx context.Context, parentID TokenID, child TokenRef, caller Account) error
	// NotifyAccepted tells the child's registry that parent accepted it.
	NotifyAccepted(ctx context.Context, childID TokenID, parent TokenRef) error
	// NotifyChildTransferred moves the child out of from and makes to its
	// direct owner.
	NotifyChildTransferred(ctx context.Context, childID TokenID, from TokenRef, to Owner) error
	// NotifyChildBurned removes a burned child from parentID's lists.
	NotifyChildBurned(ctx context.Context, parentID TokenID, child TokenRef) error
	// BurnChild burns childID and its descendants on behalf of its parent
	// and returns the number of tokens burned.
	BurnChild(ctx context.Context, childID TokenID, parent TokenRef, maxRecursiveBurns int) (int, error)
}

// EventSink receives every committed batch of events, after the
// transaction lock is released.
type EventSink interface {
	HandleEvents(ctx context.Context, events []Event) error
}

// Directory routes cross-registry calls and serializes every transaction
// of the registries attached to it.
type Directory struct {
	options DirectoryOptions
	logger  zerolog.Logger
	tracer  trace.Tracer

	mutex      sync.RWMutex
	generation uint64

	sourcesMutex sync.RWMutex
	sources      map[RegistryID]TokenSource
	order        []RegistryID

	sinksMutex sync.RWMutex
	sinks      []EventSink

	cache  *gocache.Cache
	broker *pubsub.Broker[Event]
}

// NewDirectory creates an empty directory.
func NewDirectory(options DirectoryOptions) *Directory {
	resolved := options.withDefaults()
	return &Directory{
		options: resolved,
		logger:  resolved.Logger.With().Str("component", "nestable").Logger(),
		tracer:  resolved.Tracer,
		sources: map[RegistryID]TokenSource{},
		cache:   gocache.New(resolved.ResolverCacheTTL, 2*resolved.ResolverCacheTTL),
		broker:  pubsub.NewBroker[Event](resolved.EventBufferSize),
	}
}

// Register attaches a token source. Registries created with NewRegistry
// register themselves.
func (directory *Directory) Register(source TokenSource) error {
	if source == nil {
		return fmt.Errorf("token source is required")
	}
	id, err := NormalizeRegistryID(string(source.ID()))
	if err != nil {
		return err
	}
	if id != source.ID() {
		return fmt.Errorf("token source id %q is not normalized (expected %q)", source.ID(), id)
	}

	directory.sourcesMutex.Lock()
	defer directory.sourcesMutex.Unlock()
	if _, exists := directory.sources[id]; exists {
		return fmt.Errorf("registry %s is already attached", id)
	}
	directory.sources[id] = source
	directory.order = append(directory.order, id)
	directory.logger.Debug().Str("registry", string(id)).Msg("registry attached")
	return nil
}

// Lookup returns the source attached under id.
func (directory *Directory) Lookup(id RegistryID) (TokenSource, error) {
	directory.sourcesMutex.RLock()
	defer directory.sourcesMutex.RUnlock()
	source, ok := directory.sources[id]
	if !ok {
		return nil, NewUnknownRegistryError(id)
	}
	return source, nil
}

// Registry returns the native registry attached under id.
func (directory *Directory) Registry(id RegistryID) (*Registry, error) {
	source, err := directory.Lookup(id)
	if err != nil {
		return nil, err
	}
	registry, ok := source.(*Registry)
	if !ok {
		return nil, fmt.Errorf("registry %s is not hosted by this directory", id)
	}
	return registry, nil
}

// Registries lists the attached registry ids in registration order.
func (directory *Directory) Registries() []RegistryID {
	directory.sourcesMutex.RLock()
	defer directory.sourcesMutex.RUnlock()
	return append([]RegistryID{}, directory.order...)
}

// Generation returns the number of committed transactions.
func (directory *Directory) Generation() uint64 {
	directory.mutex.RLock()
	defer directory.mutex.RUnlock()
	return directory.generation
}

// Subscribe streams committed events until ctx is cancelled.
func (directory *Directory) Subscribe(ctx context.Context) <-chan pubsub.Message[Event] {
	return directory.broker.Subscribe(ctx)
}

// AddSink attaches a sink that receives every committed batch.
func (directory *Directory) AddSink(sink EventSink) {
	if sink == nil {
		return
	}
	directory.sinksMutex.Lock()
	defer directory.sinksMutex.Unlock()
	directory.sinks = append(directory.sinks, sink)
}

// DroppedEvents reports events subscribers were too slow to receive.
func (directory *Directory) DroppedEvents() uint64 {
	return directory.broker.Dropped()
}

// Close closes every subscription.
func (directory *Directory) Close() {
	directory.broker.Close()
}

// transact runs fn as one atomic transaction. A call made while ctx
// already carries a transaction of this directory joins it.
func (directory *Directory) transact(
	ctx context.Context,
	op string,
	registry RegistryID,
	fn func(ctx context.Context, txn *transaction) error,
) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if current, ok := scopeFrom(ctx, directory); ok {
		if current.txn == nil {
			return fmt.Errorf("%s on registry %s: mutation attempted during a read", op, registry)
		}
		return fn(ctx, current.txn)
	}

	ctx, span := directory.tracer.Start(ctx, "nestable."+op, trace.WithAttributes(
		attribute.String("nestable.registry", string(registry)),
	))
	defer span.End()

	directory.mutex.Lock()
	txn := newTransaction(op)
	committed := false
	defer func() {
		if committed {
			return
		}
		txn.rollback()
		directory.mutex.Unlock()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			directory.logger.Debug().
				Err(err).
				Str("op", op).
				Str("registry", string(registry)).
				Msg("transaction rolled back")
		}
	}()

	if err = fn(withScope(ctx, scope{directory: directory, txn: txn}), txn); err != nil {
		return err
	}

	directory.generation++
	generation := directory.generation
	now := directory.options.Clock()
	events := txn.events
	for index := range events {
		events[index].ID = newEventID()
		events[index].Generation = generation
		events[index].Timestamp = now
	}
	committed = true
	directory.mutex.Unlock()

	span.SetAttributes(
		attribute.Int64("nestable.generation", int64(generation)),
		attribute.Int("nestable.events", len(events)),
	)
	directory.logger.Debug().
		Str("op", op).
		Str("registry", string(registry)).
		Uint64("generation", generation).
		Int("events", len(events)).
		Msg("transaction committed")

	directory.publish(ctx, registry, events)
	return nil
}

// read runs fn under the shared lock unless ctx already holds the lock.
func (directory *Directory) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := scopeFrom(ctx, directory); ok {
		return fn(ctx)
	}
	directory.mutex.RLock()
	defer directory.mutex.RUnlock()
	return fn(withScope(ctx, scope{directory: directory}))
}

func (directory *Directory) publish(ctx context.Context, registry RegistryID, events []Event) {
	if len(events) == 0 {
		return
	}
	directory.broker.Publish(string(registry), events...)

	directory.sinksMutex.RLock()
	sinks := append([]EventSink{}, directory.sinks...)
	directory.sinksMutex.RUnlock()

	for _, sink := range sinks {
		if err := sink.HandleEvents(ctx, events); err != nil {
			directory.logger.Warn().Err(err).Int("events", len(events)).Msg("event sink failed")
		}
	}
}
