package registry

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/fusetg/lutbox/internal/lut"
	"github.com/fusetg/lutbox/internal/stream"
)

func testCube(t *testing.T, size, channels int, seed float32) *lut.Cube {
	t.Helper()
	data := make([]float32, size*size*size*channels)
	for i := range data {
		data[i] = seed + float32(i)*0.001
	}
	cube, err := lut.NewCube(size, channels, data)
	if err != nil {
		t.Fatalf("NewCube: %v", err)
	}
	return cube
}

func TestDispatchCreatesTargetLazily(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	if n := backend.CreateCalls("vglb-lut-main"); n != 0 {
		t.Fatalf("target created before first dispatch")
	}
	if err := reg.Dispatch("main", testCube(t, 3, 3, 0)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if n := backend.CreateCalls("vglb-lut-main"); n != 1 {
		t.Fatalf("CreateCalls = %d, want 1", n)
	}
}

func TestDispatchReusesHandleForStableShape(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	for i := 0; i < 5; i++ {
		if err := reg.Dispatch("main", testCube(t, 3, 3, float32(i))); err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
	}
	if n := backend.CreateCalls("vglb-lut-main"); n != 1 {
		t.Fatalf("CreateCalls = %d, want 1 for a stable shape", n)
	}

	snap := reg.Snapshot()
	if len(snap) != 1 || snap[0].Frames != 5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDispatchRecreatesOnShapeChange(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	if err := reg.Dispatch("main", testCube(t, 3, 3, 0)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := reg.Dispatch("main", testCube(t, 4, 3, 0)); err != nil {
		t.Fatalf("Dispatch after resize: %v", err)
	}
	if n := backend.CreateCalls("vglb-lut-main"); n != 2 {
		t.Fatalf("CreateCalls = %d, want 2 after one shape change", n)
	}

	frame, ok := backend.Frame("vglb-lut-main")
	if !ok {
		t.Fatal("expected a frame for the resized target")
	}
	if len(frame) != 4*4*4*3 {
		t.Fatalf("frame has %d values, want %d", len(frame), 4*4*4*3)
	}

	// Same shape again, no further creates.
	if err := reg.Dispatch("main", testCube(t, 4, 3, 1)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if n := backend.CreateCalls("vglb-lut-main"); n != 2 {
		t.Fatalf("CreateCalls = %d, want 2", n)
	}
}

func TestResize33To64RecreatesOnce(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	// Several 33-point frames share one target, then a 64-point update
	// triggers exactly one recreation.
	for i := 0; i < 3; i++ {
		if err := reg.Dispatch("grade", testCube(t, 33, 3, float32(i))); err != nil {
			t.Fatalf("Dispatch 33: %v", err)
		}
	}
	if err := reg.Dispatch("grade", testCube(t, 64, 3, 0)); err != nil {
		t.Fatalf("Dispatch 64: %v", err)
	}
	if n := backend.CreateCalls("vglb-lut-grade"); n != 2 {
		t.Fatalf("CreateCalls = %d, want 2", n)
	}

	frame, ok := backend.Frame("vglb-lut-grade")
	if !ok {
		t.Fatal("expected frame")
	}
	if len(frame) != 64*64*64*3 {
		t.Fatalf("frame has %d values, want %d", len(frame), 64*64*64*3)
	}
}

func TestAlphaCollapseGovernsTargetShape(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	// RGBA data with alpha pinned at 1.0 collapses to a 3 channel target.
	size := 3
	data := make([]float32, size*size*size*4)
	for i := 0; i < len(data); i += 4 {
		data[i] = 0.25
		data[i+1] = 0.5
		data[i+2] = 0.75
		data[i+3] = 1.0
	}
	cube, err := lut.NewCube(size, 4, data)
	if err != nil {
		t.Fatalf("NewCube: %v", err)
	}
	if err := reg.Dispatch("main", cube); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	frame, ok := backend.Frame("vglb-lut-main")
	if !ok {
		t.Fatal("expected frame")
	}
	if len(frame) != size*size*size*3 {
		t.Fatalf("frame has %d values, want 3 channel layout %d", len(frame), size*size*size*3)
	}
}

// failingBackend fails a configurable number of sends, then recovers.
type failingBackend struct {
	*stream.MemoryBackend
	mu    sync.Mutex
	fails int
}

func (b *failingBackend) CreateOrResize(name string, width, height, channels int) (stream.Target, error) {
	inner, err := b.MemoryBackend.CreateOrResize(name, width, height, channels)
	if err != nil {
		return nil, err
	}
	return &failingTarget{backend: b, Target: inner}, nil
}

type failingTarget struct {
	backend *failingBackend
	stream.Target
}

func (t *failingTarget) Send(pixels []float32) error {
	t.backend.mu.Lock()
	if t.backend.fails > 0 {
		t.backend.fails--
		t.backend.mu.Unlock()
		return &stream.BackendError{Kind: stream.ErrKindSendFailed, Reason: "injected failure"}
	}
	t.backend.mu.Unlock()
	return t.Target.Send(pixels)
}

func TestBackendFailureRetriesNextFrame(t *testing.T) {
	backend := &failingBackend{MemoryBackend: stream.NewMemoryBackend(), fails: 1}
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	err := reg.Dispatch("main", testCube(t, 3, 3, 0))
	if err == nil {
		t.Fatal("expected injected backend failure")
	}
	if _, ok := err.(*stream.BackendError); !ok {
		t.Fatalf("expected *stream.BackendError, got %T", err)
	}

	// The failed target was torn down; the next frame recreates and lands.
	if err := reg.Dispatch("main", testCube(t, 3, 3, 1)); err != nil {
		t.Fatalf("Dispatch after failure: %v", err)
	}
	if n := backend.CreateCalls("vglb-lut-main"); n != 2 {
		t.Fatalf("CreateCalls = %d, want 2 (initial + retry)", n)
	}
	if _, ok := backend.Frame("vglb-lut-main"); !ok {
		t.Fatal("expected retry frame to land")
	}
}

func TestDistinctChannelsDispatchConcurrently(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	const workers = 4
	const frames = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			channel := fmt.Sprintf("ch%d", w)
			for i := 0; i < frames; i++ {
				if err := reg.Dispatch(channel, testCube(t, 2, 3, float32(w*100+i))); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent dispatch: %v", err)
	}

	snap := reg.Snapshot()
	if len(snap) != workers {
		t.Fatalf("snapshot has %d channels, want %d", len(snap), workers)
	}
	for _, info := range snap {
		if info.Frames != frames {
			t.Fatalf("channel %s saw %d frames, want %d", info.Channel, info.Frames, frames)
		}
		if backend.CreateCalls(info.Stream) != 1 {
			t.Fatalf("channel %s created %d targets, want 1",
				info.Channel, backend.CreateCalls(info.Stream))
		}
	}
}

func TestSameChannelAppliesInArrivalOrder(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	// The large cube takes far longer to convert than the small one;
	// the later, faster update must still be the channel's final state.
	big := testCube(t, 128, 3, 0)
	small := testCube(t, 2, 3, 1)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- reg.Dispatch("main", big)
	}()
	<-started
	time.Sleep(time.Millisecond)
	if err := reg.Dispatch("main", small); err != nil {
		t.Fatalf("Dispatch small: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Dispatch big: %v", err)
	}

	frame, ok := backend.Frame("vglb-lut-main")
	if !ok {
		t.Fatal("expected a frame for the channel")
	}
	if want := 2 * 2 * 2 * 3; len(frame) != want {
		t.Fatalf("final frame has %d values, want %d from the later update", len(frame), want)
	}
	if n := backend.CreateCalls("vglb-lut-main"); n != 2 {
		t.Fatalf("CreateCalls = %d, want 2 for one shape change", n)
	}
}

func TestDispatchPreservesBits(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)
	defer reg.Close()

	size := 2
	data := make([]float32, size*size*size*3)
	specials := []float32{
		float32(math.Inf(1)),
		-0.0,
		2.5,
		-1.5,
	}
	for i := range data {
		data[i] = specials[i%len(specials)]
	}
	cube, err := lut.NewCube(size, 3, data)
	if err != nil {
		t.Fatalf("NewCube: %v", err)
	}
	if err := reg.Dispatch("main", cube); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	frame, ok := backend.Frame("vglb-lut-main")
	if !ok {
		t.Fatal("expected frame")
	}
	// Lattice point (r=0, g=0, b=0) lands in the bottom-left pixel.
	img, err := lut.NewConverter().Convert(cube)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for i := range frame {
		if math.Float32bits(frame[i]) != math.Float32bits(img.Pixels[i]) {
			t.Fatalf("pixel value %d changed in transit", i)
		}
	}
}

func TestCloseIsTerminal(t *testing.T) {
	backend := stream.NewMemoryBackend()
	reg := New(backend, "vglb-lut", nil)

	if err := reg.Dispatch("main", testCube(t, 2, 3, 0)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := reg.Dispatch("main", testCube(t, 2, 3, 0)); err == nil {
		t.Fatal("expected error dispatching after Close")
	}
}
