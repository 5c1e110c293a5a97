package nestable

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bookmart/nestable-sdk-go/pkg/pubsub"
)

const (
	tracerName = "github.com/bookmart/nestable-sdk-go/pkg/nestable"

	DefaultResolverCacheTTL = time.Minute
)

// DirectoryOptions configures a Directory. The zero value is usable.
type DirectoryOptions struct {
	Logger             *zerolog.Logger
	Tracer             trace.Tracer
	MaxResolutionDepth int
	ResolverCacheTTL   time.Duration
	EventBufferSize    int
	Clock              func() time.Time
}

func (options DirectoryOptions) withDefaults() DirectoryOptions {
	resolved := options
	if resolved.Logger == nil {
		nop := zerolog.Nop()
		resolved.Logger = &nop
	}
	if resolved.Tracer == nil {
		resolved.Tracer = otel.Tracer(tracerName)
	}
	if resolved.MaxResolutionDepth <= 0 {
		resolved.MaxResolutionDepth = DefaultMaxResolutionDepth
	}
	if resolved.ResolverCacheTTL <= 0 {
		resolved.ResolverCacheTTL = DefaultResolverCacheTTL
	}
	if resolved.EventBufferSize <= 0 {
		resolved.EventBufferSize = pubsub.DefaultBufferSize
	}
	if resolved.Clock == nil {
		resolved.Clock = func() time.Time { return time.Now().UTC() }
	}
	return resolved
}

// allowsChild reports whether tokens of childRegistry may be proposed as
// children of tokens in owner. The owning registry itself is always allowed.
func (config Config) allowsChild(owner RegistryID, childRegistry RegistryID) bool {
	if childRegistry == owner {
		return true
	}
	for _, allowed := range config.AllowedChildRegistries {
		if allowed == childRegistry {
			return true
		}
	}
	return false
}

func (config Config) clone() Config {
	cloned := config
	cloned.AllowedChildRegistries = append([]RegistryID{}, config.AllowedChildRegistries...)
	return cloned
}
