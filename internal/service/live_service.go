package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/observability"
)

const liveSendBufferSize = 8

// LiveConnectionOptions wraps metadata extracted during the HTTP upgrade.
type LiveConnectionOptions struct {
	ClientID      string
	CorrelationID string
	Context       context.Context
}

// LiveService pushes board snapshots to websocket clients and SSE subscribers.
type LiveService interface {
	ServeConnection(conn *websocket.Conn, opts LiveConnectionOptions)
	Subscribe() (<-chan dto.BoardSnapshot, func())
	Broadcast(snapshot dto.BoardSnapshot)
	Clients() int
}

type liveService struct {
	snapshot  func() dto.BoardSnapshot
	keepalive time.Duration
	logger    zerolog.Logger
	hub       *liveHub
}

type liveHub struct {
	mu          sync.RWMutex
	sockets     map[*liveClient]struct{}
	subscribers map[chan dto.BoardSnapshot]struct{}
	log         zerolog.Logger
}

type liveClient struct {
	conn    *websocket.Conn
	send    chan dto.BoardSnapshot
	options LiveConnectionOptions
	service *liveService
	closed  chan struct{}
	once    sync.Once
}

// NewLiveService builds the hub. snapshot is called for the greeting every new
// client receives before any broadcast.
func NewLiveService(snapshot func() dto.BoardSnapshot, keepalive time.Duration, logger zerolog.Logger) LiveService {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}

	return &liveService{
		snapshot:  snapshot,
		keepalive: keepalive,
		logger:    logger.With().Str("component", "live_service").Logger(),
		hub: &liveHub{
			sockets:     make(map[*liveClient]struct{}),
			subscribers: make(map[chan dto.BoardSnapshot]struct{}),
			log:         logger.With().Str("component", "live_hub").Logger(),
		},
	}
}

func (s *liveService) ServeConnection(conn *websocket.Conn, opts LiveConnectionOptions) {
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	client := &liveClient{
		conn:    conn,
		send:    make(chan dto.BoardSnapshot, liveSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(client)
	observability.LiveClients().WithLabelValues("websocket").Inc()

	if s.snapshot != nil {
		client.send <- s.snapshot()
	}

	go client.writer()
	client.reader()
}

func (s *liveService) Subscribe() (<-chan dto.BoardSnapshot, func()) {
	channel := make(chan dto.BoardSnapshot, liveSendBufferSize)
	if s.snapshot != nil {
		channel <- s.snapshot()
	}

	s.hub.subscribe(channel)
	observability.LiveClients().WithLabelValues("sse").Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.hub.unsubscribe(channel)
			observability.LiveClients().WithLabelValues("sse").Dec()
		})
	}

	return channel, cleanup
}

func (s *liveService) Broadcast(snapshot dto.BoardSnapshot) {
	s.hub.broadcast(snapshot)
}

func (s *liveService) Clients() int {
	return s.hub.count()
}

func (h *liveHub) register(client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sockets[client] = struct{}{}
	h.log.Debug().Str("client_id", client.options.ClientID).Msg("live client connected")
}

func (h *liveHub) unregister(client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sockets, client)
	h.log.Debug().Str("client_id", client.options.ClientID).Msg("live client disconnected")
}

func (h *liveHub) subscribe(ch chan dto.BoardSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[ch] = struct{}{}
}

func (h *liveHub) unsubscribe(ch chan dto.BoardSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

func (h *liveHub) broadcast(snapshot dto.BoardSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.sockets {
		select {
		case client.send <- snapshot:
		default:
			h.log.Warn().Str("client_id", client.options.ClientID).Msg("dropping snapshot for slow client")
		}
	}

	for ch := range h.subscribers {
		select {
		case ch <- snapshot:
		default:
			h.log.Warn().Msg("dropping snapshot for slow stream subscriber")
		}
	}
}

func (h *liveHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sockets) + len(h.subscribers)
}

// reader only drains the socket; clients never write to the board over it.
func (c *liveClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("live read loop ended")
			return
		}
	}
}

func (c *liveClient) writer() {
	defer c.close()

	ticker := time.NewTicker(c.service.keepalive)
	defer ticker.Stop()

	for {
		select {
		case snapshot := <-c.send:
			if err := c.conn.WriteJSON(snapshot); err != nil {
				c.service.logger.Debug().Err(err).Msg("live write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("live ping failed")
				return
			}
		case <-c.closed:
			return
		case <-c.options.Context.Done():
			return
		}
	}
}

func (c *liveClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		observability.LiveClients().WithLabelValues("websocket").Dec()
		_ = c.conn.Close()
	})
}
