package stream

import (
	"sync"
	"time"
)

func init() {
	Register("memory", func(Options) (Backend, error) {
		return NewMemoryBackend(), nil
	})
}

// MemoryBackend retains the most recent frame per target. It backs tests
// and the in-process preview path.
type MemoryBackend struct {
	mu      sync.Mutex
	closed  bool
	targets map[string]*memoryTarget
	creates map[string]int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		targets: make(map[string]*memoryTarget),
		creates: make(map[string]int),
	}
}

func (b *MemoryBackend) CreateOrResize(name string, width, height, channels int) (Target, error) {
	if err := validateShape(name, width, height, channels); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, backendErrorf(ErrKindUnavailable, "memory backend is closed")
	}
	t := &memoryTarget{
		backend:  b,
		name:     name,
		width:    width,
		height:   height,
		channels: channels,
	}
	b.targets[name] = t
	b.creates[name]++
	return t, nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.targets = make(map[string]*memoryTarget)
	return nil
}

// Frame returns a copy of the last frame sent to name.
func (b *MemoryBackend) Frame(name string) ([]float32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.targets[name]
	if !ok || t.frame == nil {
		return nil, false
	}
	out := make([]float32, len(t.frame))
	copy(out, t.frame)
	return out, true
}

// CreateCalls reports how many times a target of this name was created.
func (b *MemoryBackend) CreateCalls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creates[name]
}

// Status snapshots all live targets.
func (b *MemoryBackend) Status() []ChannelStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ChannelStatus, 0, len(b.targets))
	for _, t := range b.targets {
		out = append(out, ChannelStatus{
			Stream:    t.name,
			Width:     t.width,
			Height:    t.height,
			Channels:  t.channels,
			Frames:    t.frames,
			UpdatedAt: t.updated,
		})
	}
	return out
}

type memoryTarget struct {
	backend  *MemoryBackend
	name     string
	width    int
	height   int
	channels int
	frame    []float32
	frames   int
	updated  time.Time
	released bool
}

func (t *memoryTarget) Name() string { return t.name }

func (t *memoryTarget) Send(pixels []float32) error {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.released {
		return backendErrorf(ErrKindSendFailed, "target %s is released", t.name)
	}
	want := t.width * t.height * t.channels
	if len(pixels) != want {
		return backendErrorf(ErrKindSendFailed, "frame for %s has %d values, want %d", t.name, len(pixels), want)
	}
	if t.frame == nil {
		t.frame = make([]float32, want)
	}
	copy(t.frame, pixels)
	t.frames++
	t.updated = time.Now()
	return nil
}

func (t *memoryTarget) Release() {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	if b.targets[t.name] == t {
		delete(b.targets, t.name)
	}
}
