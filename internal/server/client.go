package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = time.Second
	maxMessageSize = 1024
	pingInterval   = time.Second
	pongWait       = 4 * pingInterval // peer is dropped after this long without a pong
	closeGrace     = 250 * time.Millisecond
)

var upgrader = websocket.Upgrader{}

var errPongTimeout = errors.New("server: client stopped answering pings")

// hub fans views out to connected clients. Each client holds only the latest
// view; a slow client skips intermediate ones.
type hub struct {
	mu      sync.Mutex
	clients map[chan View]struct{}
}

func newHub() *hub {
	return &hub{clients: map[chan View]struct{}{}}
}

func (h *hub) subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

func (h *hub) broadcast(v View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- v:
			continue
		default:
		}
		// Replace the stale view.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// client publishes views to one browser and feeds its pointer events back to
// the server.
type client struct {
	srv     *Server
	updates <-chan View
	sock    *peer
	rootCtx context.Context
}

func (s *Server) socket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	updates, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	cli := &client{
		srv:     s,
		updates: updates,
		sock:    &peer{conn: conn},
		rootCtx: c.Request.Context(),
	}
	defer cli.sock.close()

	s.log.Debug("client connected", "remote", c.ClientIP())
	if err := cli.Sync(); err != nil {
		s.log.Warn("client sync ended", "err", err)
	}
	s.log.Debug("client disconnected", "remote", c.ClientIP())
}

// Sync sends the current view, then reads pointer events, pings and publishes
// until the peer goes away. A normal close returns nil.
func (cli *client) Sync() error {
	group, ctx := errgroup.WithContext(cli.rootCtx)
	// Unblocks the pending ReadMessage on cancel.
	stop := context.AfterFunc(ctx, func() {
		_ = cli.sock.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := cli.send(cli.srv.View()); err != nil {
		return err
	}
	pongs := make(chan struct{}, 1)
	cli.sock.conn.SetPongHandler(func(string) error {
		select {
		case pongs <- struct{}{}:
		default:
		}
		return nil
	})

	group.Go(func() error { return cli.readMessages(ctx) })
	group.Go(func() error { return cli.ping(ctx, pongs) })
	group.Go(func() error { return cli.publish(ctx) })

	err := group.Wait()
	if closedNormally(err) {
		return nil
	}
	return err
}

// ping only sees pongs while readMessages is reading.
func (cli *client) ping(ctx context.Context, pongs <-chan struct{}) error {
	ticks := channerics.NewTicker(ctx.Done(), pingInterval)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pongs:
			lastPong = time.Now()
		case <-ticks:
			if time.Since(lastPong) > pongWait {
				return errPongTimeout
			}
			err := cli.sock.write(func(conn *websocket.Conn) error {
				return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			})
			if err != nil {
				return fmt.Errorf("server: ping: %w", err)
			}
		}
	}
}

// readMessages applies pointer events from the peer. Malformed events are
// logged and skipped; a read error ends the client.
func (cli *client) readMessages(ctx context.Context) error {
	cli.sock.conn.SetReadLimit(maxMessageSize)
	for {
		_, msg, err := cli.sock.conn.ReadMessage()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		var p PointerEvent
		if err := json.Unmarshal(msg, &p); err != nil {
			cli.srv.log.Warn("bad pointer message", "err", err)
			continue
		}
		ev, err := p.Event()
		if err != nil {
			cli.srv.log.Warn("bad pointer event", "err", err)
			continue
		}
		if err := cli.srv.Pointer(ev); err != nil {
			return err
		}
	}
}

func (cli *client) publish(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-cli.updates:
			if !ok {
				return nil
			}
			if err := cli.send(v); err != nil {
				return err
			}
		}
	}
}

func (cli *client) send(v View) error {
	err := cli.sock.write(func(conn *websocket.Conn) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	})
	if err != nil && !closedNormally(err) {
		return fmt.Errorf("server: publish: %w", err)
	}
	return err
}

func closedNormally(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// peer serializes writes from the publisher and the pinger. Only
// readMessages reads.
type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *peer) write(fn func(*websocket.Conn) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p.conn)
}

// close sends a close frame and gives the peer closeGrace to answer.
func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	time.Sleep(closeGrace)
	p.conn.Close()
}
