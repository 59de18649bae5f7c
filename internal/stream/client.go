package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
)

// Frame is one decoded frame received from a stream subscription.
type Frame struct {
	Header FrameHeader
	Pixels []float32
}

// Subscriber consumes frames from a WebSocket backend stream endpoint.
type Subscriber struct {
	conn *websocket.Conn
}

// Subscribe connects to ws://{addr}/streams/{name}.
func Subscribe(ctx context.Context, addr, name string) (*Subscriber, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/streams/" + name}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", u.String(), err)
	}
	return &Subscriber{conn: conn}, nil
}

// Next blocks until a complete header+payload pair arrives.
func (s *Subscriber) Next() (*Frame, error) {
	var header FrameHeader
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		if err := json.Unmarshal(data, &header); err != nil {
			return nil, fmt.Errorf("decode frame header: %w", err)
		}
		if header.Type == "frame" {
			break
		}
	}
	kind, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if kind != websocket.BinaryMessage {
		return nil, fmt.Errorf("expected binary payload after frame header, got message type %d", kind)
	}
	pixels, err := DecodeFrame(data)
	if err != nil {
		return nil, err
	}
	want := header.Width * header.Height * header.Channels
	if len(pixels) != want {
		return nil, fmt.Errorf("frame payload has %d values, header promises %d", len(pixels), want)
	}
	return &Frame{Header: header, Pixels: pixels}, nil
}

func (s *Subscriber) Close() error {
	return s.conn.Close()
}

// Monitor consumes status snapshots from the /monitor endpoint.
type Monitor struct {
	conn *websocket.Conn
}

func DialMonitor(ctx context.Context, addr string) (*Monitor, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/monitor"}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial monitor %s: %w", u.String(), err)
	}
	return &Monitor{conn: conn}, nil
}

// Next blocks until the backend pushes a status snapshot.
func (m *Monitor) Next() ([]ChannelStatus, error) {
	var status []ChannelStatus
	if err := m.conn.ReadJSON(&status); err != nil {
		return nil, err
	}
	return status, nil
}

func (m *Monitor) Close() error {
	return m.conn.Close()
}
