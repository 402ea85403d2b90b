// Package bridge connects browsers to server-side runtimes over WebSocket.
//
// Each connection gets its own hashpage.Runtime. The browser reports its
// location hash; the runtime renders and the bridge pushes the root markup
// back whenever the runtime goes idle. Navigation done by page code is sent
// to the browser so its address bar follows.
package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/hashpage"
	"github.com/vango-dev/hashpage/internal/errors"
	"github.com/vango-dev/hashpage/pkg/dom"
)

// Factory creates the runtime for one connection. obs must be passed to
// the runtime with hashpage.WithObserver. ctx carries the request's values
// and is cancelled when the connection closes; pass it on with
// hashpage.WithContext.
type Factory func(ctx context.Context, obs hashpage.Observer) (*hashpage.Runtime, error)

// Config tunes a Server.
type Config struct {
	// WriteTimeout bounds each frame write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is how often idle connections are pinged.
	// Default: 30 seconds.
	PingInterval time.Duration

	// MaxFrameSize caps frames read from the browser.
	// Default: 64KB.
	MaxFrameSize int64

	// SendBuffer is the per-connection outgoing queue length.
	// Default: 16.
	SendBuffer int

	// CheckOrigin validates the Origin header. Nil allows same-origin only.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

// Option configures a Server.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithCheckOrigin overrides the origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *Config) { c.CheckOrigin = fn }
}

// WithPingInterval sets the keepalive interval.
func WithPingInterval(d time.Duration) Option {
	return func(c *Config) { c.PingInterval = d }
}

// Server is an http.Handler that upgrades requests to bridge connections.
type Server struct {
	factory  Factory
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.RWMutex
	conns  map[*conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// New creates a bridge server.
func New(factory Factory, opts ...Option) *Server {
	cfg := Config{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		MaxFrameSize: 64 * 1024,
		SendBuffer:   16,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		factory: factory,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: cfg.Logger.With("component", "bridge"),
		conns:  make(map[*conn]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the connection until either
// side closes it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.isClosed() {
		http.Error(w, "bridge closed", http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", "error", errors.New("H040").Wrap(err))
		return
	}
	ws.SetReadLimit(s.cfg.MaxFrameSize)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{
		server: s,
		ws:     ws,
		send:   make(chan Frame, s.cfg.SendBuffer),
		cancel: cancel,
		logger: s.logger.With("remote", r.RemoteAddr),
	}

	rt, err := s.factory(ctx, c)
	if err != nil {
		cancel()
		s.logger.Error("creating runtime", "error", err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "runtime unavailable"),
			time.Now().Add(s.cfg.WriteTimeout))
		_ = ws.Close()
		return
	}
	c.rt = rt

	// Add under the lock so Close cannot be waiting on a zero counter.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		if err := rt.Shutdown(); err != nil {
			c.logger.Warn("runtime shutdown", "error", err)
		}
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge closed"),
			time.Now().Add(s.cfg.WriteTimeout))
		_ = ws.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.wg.Add(2)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		c.writeLoop(ctx)
	}()
	go func() {
		defer s.wg.Done()
		if err := rt.Run(ctx); err != nil && err != context.Canceled {
			c.logger.Warn("runtime stopped", "error", err)
		}
		if err := rt.Shutdown(); err != nil {
			c.logger.Warn("runtime shutdown", "error", err)
		}
	}()

	c.readLoop()

	cancel()
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = ws.Close()
}

// Reload asks every connected browser to reload.
func (s *Server) Reload() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.conns {
		c.enqueue(Frame{Type: FrameReload})
	}
}

// Count returns the number of open connections.
func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close disconnects every browser and waits for their runtimes to stop.
// Connections arriving afterwards are refused.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		c.cancel()
		_ = c.ws.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// =============================================================================
// Connection
// =============================================================================

type conn struct {
	server  *Server
	ws      *websocket.Conn
	rt      *hashpage.Runtime
	send    chan Frame
	cancel  context.CancelFunc
	logger  *slog.Logger
	started bool

	// Last pushed render, touched only by the runtime loop.
	lastHTML  string
	lastTitle string
	rendered  bool
}

func (c *conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}
		f, err := Decode(data)
		if err != nil {
			c.logger.Warn("dropping frame", "error", errors.New("H041").Wrap(err))
			continue
		}
		switch f.Type {
		case FrameHash:
			c.rt.SetHash(f.Hash)
			if !c.started {
				c.started = true
				c.rt.Start()
			}
		default:
			c.logger.Warn("dropping frame", "error", errors.New("H041").WithDetailf("type %q", f.Type))
		}
	}
}

func (c *conn) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.server.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.server.cfg.WriteTimeout))
			return
		case f := <-c.send:
			data, err := Encode(f)
			if err != nil {
				c.logger.Error("encoding frame", "type", f.Type, "error", err)
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.server.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.logger.Debug("write failed", "error", err)
				c.cancel()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.server.cfg.WriteTimeout)); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// enqueue drops the frame when the browser is not keeping up; the next
// render frame carries the full state anyway.
func (c *conn) enqueue(f Frame) {
	select {
	case c.send <- f:
	default:
		c.logger.Warn("send queue full, dropping frame", "type", f.Type)
	}
}

// LocationChanged implements hashpage.Observer.
func (c *conn) LocationChanged(hash string, replace bool) {
	c.enqueue(Frame{Type: FrameNavigate, Hash: "#" + hash, Replace: replace})
}

// Rendered implements hashpage.Observer.
func (c *conn) Rendered(root *dom.Element, title string) {
	html := root.InnerHTML()
	if c.rendered && html == c.lastHTML && title == c.lastTitle {
		return
	}
	c.rendered, c.lastHTML, c.lastTitle = true, html, title
	c.enqueue(Frame{Type: FrameRender, HTML: html, Title: title})
}
