// Package registry routes decoded LUT updates to per-channel stream targets.
//
// Each logical channel owns at most one live target named
// "{prefix}-{channel}". Targets are created lazily on the first update,
// reused while the LUT shape is stable, and recreated when the edge size
// or channel count changes. Updates for the same channel are serialized;
// distinct channels dispatch concurrently.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fusetg/lutbox/internal/logging"
	"github.com/fusetg/lutbox/internal/lut"
	"github.com/fusetg/lutbox/internal/stream"
)

// ChannelInfo describes one channel's live state for status surfaces.
type ChannelInfo struct {
	Channel  string    `json:"channel"`
	Stream   string    `json:"stream"`
	Size     int       `json:"size"`
	Channels int       `json:"channels"`
	Frames   int       `json:"frames"`
	Updated  time.Time `json:"updated"`
}

// Registry owns the channel-to-target mapping for one backend.
type Registry struct {
	backend   stream.Backend
	prefix    string
	converter *lut.Converter

	mu       sync.Mutex
	closed   bool
	channels map[string]*channelState
}

type channelState struct {
	mu       sync.Mutex
	target   stream.Target
	size     int
	channels int
	frames   int
	updated  time.Time
}

// New creates a registry publishing through backend. Target names are
// formed as "{prefix}-{channel}".
func New(backend stream.Backend, prefix string, converter *lut.Converter) *Registry {
	if converter == nil {
		converter = lut.NewConverter()
	}
	return &Registry{
		backend:   backend,
		prefix:    prefix,
		converter: converter,
		channels:  make(map[string]*channelState),
	}
}

// TargetName returns the stream name used for a channel.
func (r *Registry) TargetName(channel string) string {
	return r.prefix + "-" + channel
}

// Dispatch converts cube to its image layout and publishes it on the
// channel's target. A backend failure tears the target down and is
// returned to the caller; the channel itself stays registered and the
// next update retries from scratch.
func (r *Registry) Dispatch(channel string, cube *lut.Cube) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return fmt.Errorf("registry is closed")
	}
	state, ok := r.channels[channel]
	if !ok {
		state = &channelState{}
		r.channels[channel] = state
	}
	r.mu.Unlock()

	// Convert under the channel lock so same-channel updates apply in
	// arrival order even when conversion durations differ. Distinct
	// channels still convert concurrently.
	state.mu.Lock()
	defer state.mu.Unlock()

	img, err := r.converter.Convert(cube)
	if err != nil {
		return err
	}

	name := r.TargetName(channel)
	if state.target != nil && (state.size != img.Size || state.channels != img.Channels) {
		logging.Info("LUT shape changed, recreating stream target",
			zap.String("channel", channel),
			zap.Int("old_size", state.size),
			zap.Int("new_size", img.Size))
		old := state.target
		state.target = nil
		fresh, err := r.backend.CreateOrResize(name, img.Width, img.Height, img.Channels)
		if err != nil {
			old.Release()
			return err
		}
		old.Release()
		state.target = fresh
		state.size = img.Size
		state.channels = img.Channels
	}
	if state.target == nil {
		target, err := r.backend.CreateOrResize(name, img.Width, img.Height, img.Channels)
		if err != nil {
			return err
		}
		state.target = target
		state.size = img.Size
		state.channels = img.Channels
		logging.LogLUT(channel, img.Size, img.Channels, name)
	}

	if err := state.target.Send(img.Pixels); err != nil {
		state.target.Release()
		state.target = nil
		return err
	}
	state.frames++
	state.updated = time.Now()
	return nil
}

// Snapshot lists all channels that have seen at least one update,
// sorted by channel name.
func (r *Registry) Snapshot() []ChannelInfo {
	r.mu.Lock()
	states := make(map[string]*channelState, len(r.channels))
	for name, state := range r.channels {
		states[name] = state
	}
	r.mu.Unlock()

	out := make([]ChannelInfo, 0, len(states))
	for name, state := range states {
		state.mu.Lock()
		out = append(out, ChannelInfo{
			Channel:  name,
			Stream:   r.TargetName(name),
			Size:     state.size,
			Channels: state.channels,
			Frames:   state.frames,
			Updated:  state.updated,
		})
		state.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Close releases every live target and shuts the backend down.
// The registry accepts no dispatches afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	states := make([]*channelState, 0, len(r.channels))
	for _, state := range r.channels {
		states = append(states, state)
	}
	r.channels = make(map[string]*channelState)
	r.mu.Unlock()

	for _, state := range states {
		state.mu.Lock()
		if state.target != nil {
			state.target.Release()
			state.target = nil
		}
		state.mu.Unlock()
	}
	return r.backend.Close()
}
