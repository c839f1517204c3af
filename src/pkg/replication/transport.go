package replication

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"inkboard/src/pkg/log"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Handler receives decoded commands from the network.
type Handler func(Command)

var (
	errClosed = errors.New("connection closed")
	errFull   = errors.New("send buffer full")
)

// conn serializes writes to one websocket connection through a buffered
// channel drained by a single writer goroutine.
type conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws, send: make(chan []byte, sendBuffer)}
}

// enqueue queues data without blocking.
func (c *conn) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errFull
	}
}

func (c *conn) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// writeLoop drains send until it is closed, then closes the socket.
func (c *conn) writeLoop() error {
	defer c.ws.Close()
	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop passes every message to deliver until the socket fails.
func (c *conn) readLoop(deliver func([]byte)) error {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		deliver(data)
	}
}

// Hub is the server side of the transport. Every command received from a
// peer is handed to the local handler and relayed to all other peers.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*conn]struct{}
	handler  Handler
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewHub creates a Hub. handler may be nil for a pure relay.
func NewHub(handler Handler, logger *log.Logger) *Hub {
	return &Hub{
		conns:   make(map[*conn]struct{}),
		handler: handler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "Websocket upgrade failed", log.Fields{"error": err, "remote": r.RemoteAddr})
		return
	}
	c := newConn(ws)
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info(r.Context(), "Peer connected", log.Fields{"remote": r.RemoteAddr})

	go c.writeLoop()
	err = c.readLoop(func(data []byte) { h.receive(c, data) })

	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.close()
	h.logger.Info(r.Context(), "Peer disconnected", log.Fields{"remote": r.RemoteAddr, "error": err})
}

func (h *Hub) receive(from *conn, data []byte) {
	cmd, err := Decode(data)
	if err != nil {
		h.logger.Warn(context.Background(), "Dropped malformed command", log.Fields{"error": err})
		return
	}
	h.relay(from, data)
	if h.handler != nil {
		h.handler(cmd)
	}
}

// relay queues data to every peer except from. A peer whose buffer is full
// is skipped for this message.
func (h *Hub) relay(from *conn, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if c == from {
			continue
		}
		if err := c.enqueue(data); err != nil {
			h.logger.Warn(context.Background(), "Message not relayed to peer", log.Fields{"error": err})
		}
	}
}

// Broadcast sends a local command to all peers.
func (h *Hub) Broadcast(cmd Command) error {
	data, err := Encode(cmd)
	if err != nil {
		return err
	}
	h.relay(nil, data)
	return nil
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ListenAndServe serves the hub on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: writeWait}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.logger.Info(gctx, "Replication hub listening", log.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("replication hub: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		h.mu.Lock()
		for c := range h.conns {
			c.close()
			delete(h.conns, c)
		}
		h.mu.Unlock()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Peer is the client side of the transport.
type Peer struct {
	c       *conn
	url     string
	handler Handler
	logger  *log.Logger
}

// Dial connects to a hub at url, e.g. "ws://host:port/ws".
func Dial(ctx context.Context, url string, handler Handler, logger *log.Logger) (*Peer, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	logger.Info(ctx, "Connected to replication hub", log.Fields{"url": url})
	return &Peer{c: newConn(ws), url: url, handler: handler, logger: logger}, nil
}

// Run pumps messages until ctx is cancelled or the connection fails.
func (p *Peer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	readDone := make(chan struct{})
	g.Go(p.c.writeLoop)
	g.Go(func() error {
		defer close(readDone)
		defer p.c.close()
		err := p.c.readLoop(func(data []byte) {
			cmd, err := Decode(data)
			if err != nil {
				p.logger.Warn(gctx, "Dropped malformed command", log.Fields{"error": err})
				return
			}
			if p.handler != nil {
				p.handler(cmd)
			}
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-readDone:
		}
		p.c.close()
		return nil
	})
	err := g.Wait()
	p.logger.Info(context.Background(), "Disconnected from replication hub", log.Fields{"url": p.url, "error": err})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Send queues a command for the hub.
func (p *Peer) Send(cmd Command) error {
	data, err := Encode(cmd)
	if err != nil {
		return err
	}
	if err := p.c.enqueue(data); err != nil {
		return fmt.Errorf("send to %s: %w", p.url, err)
	}
	return nil
}

// Close ends the connection.
func (p *Peer) Close() {
	p.c.close()
}
