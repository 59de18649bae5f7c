package stream

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fusetg/lutbox/internal/logging"
)

func init() {
	Register("websocket", func(opts Options) (Backend, error) {
		return NewWSBackend(opts.Listen)
	})
}

// FrameHeader precedes every binary frame on a stream subscription.
type FrameHeader struct {
	Type     string `json:"type"`
	Stream   string `json:"stream"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	Seq      int    `json:"seq"`
}

// WSBackend serves targets over HTTP/WebSocket. Consumers subscribe to
// /streams/{name} and receive, per frame, a JSON header message followed
// by one binary message of little-endian float32 pixel data. /channels
// returns a JSON status snapshot and /monitor pushes the same snapshot
// over a WebSocket whenever a frame lands.
type WSBackend struct {
	srv      *http.Server
	ln       net.Listener
	upgrader websocket.Upgrader

	mu       sync.Mutex
	closed   bool
	targets  map[string]*wsTarget
	monitors map[*websocket.Conn]bool
}

func NewWSBackend(listen string) (*WSBackend, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, backendErrorf(ErrKindUnavailable, "listen %s: %v", listen, err)
	}
	b := &WSBackend{
		ln:       ln,
		targets:  make(map[string]*wsTarget),
		monitors: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/streams/", b.handleStream)
	mux.HandleFunc("/channels", b.handleChannels)
	mux.HandleFunc("/monitor", b.handleMonitor)
	b.srv = &http.Server{Handler: mux}

	go func() {
		if err := b.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Error("WebSocket backend stopped", zap.Error(err))
		}
	}()
	logging.Info("WebSocket backend listening", zap.String("addr", ln.Addr().String()))
	return b, nil
}

// Addr returns the bound listen address.
func (b *WSBackend) Addr() string {
	return b.ln.Addr().String()
}

func (b *WSBackend) CreateOrResize(name string, width, height, channels int) (Target, error) {
	if err := validateShape(name, width, height, channels); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, backendErrorf(ErrKindUnavailable, "websocket backend is closed")
	}
	t := &wsTarget{
		backend:  b,
		name:     name,
		width:    width,
		height:   height,
		channels: channels,
		subs:     make(map[*websocket.Conn]bool),
	}
	if prev, ok := b.targets[name]; ok {
		// Carry subscribers over so consumers survive a LUT resize.
		prev.mu.Lock()
		for conn := range prev.subs {
			t.subs[conn] = true
		}
		prev.subs = make(map[*websocket.Conn]bool)
		prev.released = true
		prev.mu.Unlock()
	}
	b.targets[name] = t
	return t, nil
}

func (b *WSBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	targets := make([]*wsTarget, 0, len(b.targets))
	for _, t := range b.targets {
		targets = append(targets, t)
	}
	b.targets = make(map[string]*wsTarget)
	for conn := range b.monitors {
		conn.Close()
	}
	b.monitors = make(map[*websocket.Conn]bool)
	b.mu.Unlock()

	for _, t := range targets {
		t.Release()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return b.srv.Shutdown(ctx)
}

// Status snapshots all live targets.
func (b *WSBackend) Status() []ChannelStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ChannelStatus, 0, len(b.targets))
	for _, t := range b.targets {
		t.mu.Lock()
		out = append(out, ChannelStatus{
			Stream:    t.name,
			Width:     t.width,
			Height:    t.height,
			Channels:  t.channels,
			Frames:    t.frames,
			UpdatedAt: t.updated,
		})
		t.mu.Unlock()
	}
	return out
}

func (b *WSBackend) handleStream(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[len("/streams/"):]
	b.mu.Lock()
	t, ok := b.targets[name]
	b.mu.Unlock()
	if !ok {
		http.Error(w, "no such stream", http.StatusNotFound)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("stream", name),
			zap.Error(err))
		return
	}
	t.subscribe(conn)
}

func (b *WSBackend) handleChannels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b.Status())
}

func (b *WSBackend) handleMonitor(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.monitors[conn] = true
	b.mu.Unlock()
	if err := conn.WriteJSON(b.Status()); err != nil {
		b.mu.Lock()
		delete(b.monitors, conn)
		b.mu.Unlock()
		conn.Close()
		return
	}
	// Drain reads to notice the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.mu.Lock()
				delete(b.monitors, conn)
				b.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// dropSubscriber removes conn from whichever target currently owns the
// stream. Subscribers are carried over when a stream is recreated, so the
// owning target may not be the one that accepted the connection.
func (b *WSBackend) dropSubscriber(name string, conn *websocket.Conn) {
	b.mu.Lock()
	t, ok := b.targets[name]
	b.mu.Unlock()
	if !ok {
		return
	}
	t.mu.Lock()
	delete(t.subs, conn)
	t.mu.Unlock()
}

func (b *WSBackend) notifyMonitors() {
	status := b.Status()
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.monitors {
		if err := conn.WriteJSON(status); err != nil {
			delete(b.monitors, conn)
			conn.Close()
		}
	}
}

type wsTarget struct {
	backend  *WSBackend
	name     string
	width    int
	height   int
	channels int

	mu         sync.Mutex
	subs       map[*websocket.Conn]bool
	seq        int
	frames     int
	updated    time.Time
	lastHeader []byte
	lastFrame  []byte
	released   bool
}

func (t *wsTarget) Name() string { return t.name }

func (t *wsTarget) Send(pixels []float32) error {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return backendErrorf(ErrKindSendFailed, "target %s is released", t.name)
	}
	want := t.width * t.height * t.channels
	if len(pixels) != want {
		t.mu.Unlock()
		return backendErrorf(ErrKindSendFailed, "frame for %s has %d values, want %d", t.name, len(pixels), want)
	}
	t.seq++
	header, err := json.Marshal(FrameHeader{
		Type:     "frame",
		Stream:   t.name,
		Width:    t.width,
		Height:   t.height,
		Channels: t.channels,
		Seq:      t.seq,
	})
	if err != nil {
		t.mu.Unlock()
		return backendErrorf(ErrKindSendFailed, "encode header for %s: %v", t.name, err)
	}
	payload := encodeFrame(pixels)
	t.lastHeader = header
	t.lastFrame = payload
	t.frames++
	t.updated = time.Now()
	for conn := range t.subs {
		if err := writeFrame(conn, header, payload); err != nil {
			delete(t.subs, conn)
			conn.Close()
		}
	}
	t.mu.Unlock()

	t.backend.notifyMonitors()
	return nil
}

func (t *wsTarget) Release() {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.released = true
	for conn := range t.subs {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream released"))
		conn.Close()
	}
	t.subs = make(map[*websocket.Conn]bool)
	t.mu.Unlock()

	b := t.backend
	b.mu.Lock()
	if b.targets[t.name] == t {
		delete(b.targets, t.name)
	}
	b.mu.Unlock()
}

func (t *wsTarget) subscribe(conn *websocket.Conn) {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.subs[conn] = true
	// Late joiners get the most recent frame immediately.
	if t.lastHeader != nil {
		if err := writeFrame(conn, t.lastHeader, t.lastFrame); err != nil {
			delete(t.subs, conn)
			t.mu.Unlock()
			conn.Close()
			return
		}
	}
	t.mu.Unlock()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.backend.dropSubscriber(t.name, conn)
				conn.Close()
				return
			}
		}
	}()
}

func writeFrame(conn *websocket.Conn, header, payload []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, header); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, payload)
}

// encodeFrame serializes pixels as little-endian float32 bytes.
func encodeFrame(pixels []float32) []byte {
	out := make([]byte, len(pixels)*4)
	for i, v := range pixels {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// DecodeFrame is the inverse of the wire encoding, used by consumers.
func DecodeFrame(payload []byte) ([]float32, error) {
	if len(payload)%4 != 0 {
		return nil, backendErrorf(ErrKindUnsupportedFormat, "frame payload length %d is not a multiple of 4", len(payload))
	}
	out := make([]float32, len(payload)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return out, nil
}
