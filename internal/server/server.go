package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fusetg/lutbox/internal/logging"
	"github.com/fusetg/lutbox/internal/lut"
	"github.com/fusetg/lutbox/internal/protocol"
	"github.com/fusetg/lutbox/internal/registry"
)

// Config holds the server configuration.
type Config struct {
	Host            string
	Port            int
	MaxMessageBytes int
}

// Server accepts OpenGradeIO client connections and feeds decoded LUT
// updates into the channel registry. Each connection is independent:
// framing corruption tears down that one connection and nothing else.
type Server struct {
	config      *Config
	registry    *registry.Registry
	listener    net.Listener
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a Server dispatching into reg.
func New(config *Config, reg *registry.Registry) *Server {
	return &Server{
		config:      config,
		registry:    reg,
		activeConns: make(map[string]net.Conn),
	}
}

// Listen binds the configured address without accepting yet.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener
	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
	)
	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start binds, accepts, and blocks until a shutdown signal or an accept
// failure.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection runs the read-decode-dispatch-reply loop for one client.
func (s *Server) handleConnection(conn net.Conn) {
	connID := uuid.NewString()
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[connID] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, connID)
		s.mu.Unlock()
		logging.LogConnection(connID, remoteAddr, "connection_closed")
	}()

	logging.LogConnection(connID, remoteAddr, "connection_accepted")

	framer := protocol.NewFramer(s.config.MaxMessageBytes)
	buf := make([]byte, 64*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			framer.Feed(buf[:n])
			if !s.drainMessages(conn, connID, framer) {
				return
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				logging.Warn("Connection read failed",
					zap.String("conn_id", connID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// drainMessages processes every complete document buffered in the framer.
// Returns false when the connection must be torn down.
func (s *Server) drainMessages(conn net.Conn, connID string, framer *protocol.Framer) bool {
	for {
		doc, err := framer.Next()
		if err != nil {
			// Byte stream is corrupt; no later document boundary can be
			// trusted on this connection.
			logging.Warn("Framing failure, closing connection",
				zap.String("conn_id", connID),
				zap.Error(err),
			)
			return false
		}
		if doc == nil {
			return true
		}
		if !s.handleDocument(conn, connID, doc) {
			return false
		}
	}
}

// handleDocument decodes and dispatches one BSON document, then writes
// the reply. Returns false only when the reply cannot be written.
func (s *Server) handleDocument(conn net.Conn, connID string, doc []byte) bool {
	msg, err := protocol.Decode(doc)
	if err != nil {
		logging.LogMessageDrop(connID, err)
		return s.reply(conn, connID, false, err.Error())
	}
	if msg.Kind == protocol.KindIgnore {
		return s.reply(conn, connID, true, "")
	}

	cube, err := lut.NewCube(msg.Size, msg.Channels, msg.Data)
	if err != nil {
		logging.LogMessageDrop(connID, err)
		return s.reply(conn, connID, false, err.Error())
	}
	if err := s.registry.Dispatch(msg.Channel, cube); err != nil {
		logging.Error("Dispatch failed",
			zap.String("conn_id", connID),
			zap.String("channel", msg.Channel),
			zap.Error(err),
		)
		return s.reply(conn, connID, false, err.Error())
	}
	return s.reply(conn, connID, true, "")
}

func (s *Server) reply(conn net.Conn, connID string, ok bool, errMsg string) bool {
	out, err := protocol.EncodeReply(ok, errMsg)
	if err != nil {
		logging.Error("Failed to encode reply",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := conn.Write(out); err != nil {
		logging.Warn("Failed to write reply",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Shutdown stops accepting, closes live connections, waits for handlers,
// then closes the registry and its backend.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for connID, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("conn_id", connID))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	// Registry last so in-flight dispatches finish against a live backend.
	err := s.registry.Close()

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of active connections.
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
