package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/bestway-spa/internal/coordinator"
	"github.com/muurk/bestway-spa/internal/discovery"
	"github.com/muurk/bestway-spa/internal/logging"
	"github.com/muurk/bestway-spa/internal/version"
)

// shutdownTimeout bounds how long Shutdown waits for clients to go away
const shutdownTimeout = 10 * time.Second

// Coordinator is the subset of *coordinator.Coordinator the bridge uses
type Coordinator interface {
	Run(ctx context.Context) error
	Refresh(ctx context.Context) error
	SendCommand(ctx context.Context, key string, value int) error
	Current() coordinator.Update
	Subscribe() (<-chan coordinator.Update, func())
}

// Config holds the bridge configuration
type Config struct {
	Host string
	Port int

	// Advertise registers the bridge via mDNS under Name
	Advertise bool
	Name      string

	// DeviceID is published in the mDNS TXT record
	DeviceID string
}

// Server exposes one spa over local HTTP and websocket
type Server struct {
	config *Config
	coord  Coordinator

	httpServer *http.Server
	listener   net.Listener
	ad         *discovery.Advertisement

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	closing     bool
}

// New creates a new Server instance
func New(config *Config, coord Coordinator) *Server {
	s := &Server{
		config:      config,
		coord:       coord,
		activeConns: make(map[string]*websocket.Conn),
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start listens on the configured address, polls the spa and serves until
// ctx is cancelled or SIGINT/SIGTERM is received.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logging.Info("Starting Bestway spa bridge",
		zap.String("addr", listener.Addr().String()),
		zap.String("version", version.Version),
	)

	return s.Serve(ctx, listener)
}

// Serve runs the bridge on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.listener = listener

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		_ = s.coord.Run(ctx)
	}()

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		ad, err := discovery.Advertise(s.config.Name, port, s.config.DeviceID, version.Version)
		if err != nil {
			// The HTTP API works without mDNS
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.ad = ad
		}
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
			return
		}
		errChan <- nil
	}()

	logging.Info("Bridge listening for connections", zap.String("addr", listener.Addr().String()))

	var serveErr error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping bridge...")
	case <-ctx.Done():
	case serveErr = <-errChan:
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := s.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	<-pollDone

	return serveErr
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	s.ad.Shutdown()

	err := s.httpServer.Shutdown(ctx)

	// Hijacked websocket connections are not closed by http.Server
	s.mu.Lock()
	s.closing = true
	for addr, conn := range s.activeConns {
		logging.Debug("Closing websocket client", zap.String("remote_addr", addr))
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

	logging.Sync()

	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// ActiveConnections returns the number of connected websocket clients
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// trackConn registers a websocket client; false once shutdown has begun
func (s *Server) trackConn(addr string, conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.activeConns[addr] = conn
	s.wg.Add(1)
	return true
}

func (s *Server) untrackConn(addr string) {
	s.mu.Lock()
	delete(s.activeConns, addr)
	s.mu.Unlock()
	s.wg.Done()
}
