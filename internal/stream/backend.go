package stream

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Error kinds for backend failures. All of them are channel-fatal for the
// failing send attempt only: the channel stays registered and the next
// valid frame retries target creation from scratch.
const (
	ErrKindUnavailable       = "backend_unavailable"
	ErrKindUnsupportedFormat = "unsupported_format"
	ErrKindSendFailed        = "send_failed"
)

// BackendError reports a failure from a texture sink.
type BackendError struct {
	Kind   string
	Reason string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (%s): %s", e.Kind, e.Reason)
}

func backendErrorf(kind, format string, args ...interface{}) *BackendError {
	return &BackendError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Target is one named output texture. A target is created for a fixed
// (width, height, channels) shape; Send may be called repeatedly without
// re-creating the handle as long as the shape is unchanged.
type Target interface {
	// Name returns the stream name consumers bind to.
	Name() string
	// Send publishes one frame. The pixel buffer is a flat row-major
	// float32 sequence of width*height*channels values.
	Send(pixels []float32) error
	// Release frees the underlying resource. Idempotent.
	Release()
}

// Backend is a texture-sharing sink. Exactly one implementation is
// selected at construction time via configuration.
type Backend interface {
	// CreateOrResize allocates a target with the given shape, replacing
	// any previous target of the same name.
	CreateOrResize(name string, width, height, channels int) (Target, error)
	// Close releases all targets and shuts the backend down.
	Close() error
}

// Options carries construction parameters for backends that need them.
type Options struct {
	// Listen is the host:port for network-served backends.
	Listen string
}

// Constructor builds a backend from options.
type Constructor func(opts Options) (Backend, error)

var (
	registryMu sync.Mutex
	registry   = make(map[string]Constructor)
)

// Register makes a backend constructor available under a name.
// Called from init functions of the backend implementations.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// New creates the backend registered under name.
func New(name string, opts Options) (Backend, error) {
	registryMu.Lock()
	ctor, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, backendErrorf(ErrKindUnavailable, "no backend registered as %q (available: %v)", name, Available())
	}
	return ctor(opts)
}

// Available lists registered backend names, sorted.
func Available() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateShape rejects dimensions no sink can represent.
func validateShape(name string, width, height, channels int) error {
	if name == "" {
		return backendErrorf(ErrKindUnsupportedFormat, "empty stream name")
	}
	if width <= 0 || height <= 0 {
		return backendErrorf(ErrKindUnsupportedFormat, "invalid dimensions %dx%d", width, height)
	}
	if width > 16384 || height > 16384 {
		return backendErrorf(ErrKindUnsupportedFormat, "dimensions %dx%d exceed 16384x16384", width, height)
	}
	if channels != 3 && channels != 4 {
		return backendErrorf(ErrKindUnsupportedFormat, "channel count %d not in {3, 4}", channels)
	}
	return nil
}

// ChannelStatus describes one live target for monitoring surfaces.
type ChannelStatus struct {
	Stream    string    `json:"stream"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Channels  int       `json:"channels"`
	Frames    int       `json:"frames"`
	UpdatedAt time.Time `json:"updated_at"`
}
