package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/escrow-ledger/backend/internal/auth"
	"github.com/escrow-ledger/backend/internal/config"
	"github.com/escrow-ledger/backend/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsClient serializes writes to one connection; events for an account can
// arrive from several subscriber goroutines at once.
type wsClient struct {
	mu   sync.Mutex
	conn messageWriter
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub streams ledger events to the accounts they concern.
type WSHub struct {
	cfg        *config.Config
	subscriber events.Subscriber
	log        *zap.Logger
	mu         sync.RWMutex
	clients    map[string][]*wsClient
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:        cfg,
		subscriber: subscriber,
		log:        log,
		clients:    make(map[string][]*wsClient),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	for _, stream := range []string{events.StreamEscrow, events.StreamDeposit} {
		if err := h.subscriber.Subscribe(ctx, stream, h.dispatch); err != nil {
			h.log.Error("ws hub subscribe failed", zap.String("stream", stream), zap.Error(err))
		}
	}
}

// Recipients returns the accounts an event is delivered to.
func Recipients(event events.Event) []string {
	var out []string
	for _, k := range []string{"payer", "payee", "account_id"} {
		if v, ok := event.Payload[k].(string); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (h *WSHub) dispatch(event events.Event) {
	for _, account := range Recipients(event) {
		h.SendToAccount(account, event)
	}
}

func (h *WSHub) SendToAccount(account string, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := append([]*wsClient(nil), h.clients[account]...)
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.log.Debug("ws write failed", zap.String("account", account), zap.Error(err))
		}
	}
}

func (h *WSHub) register(account string, conn messageWriter) *wsClient {
	c := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[account] = append(h.clients[account], c)
	h.mu.Unlock()
	return c
}

func (h *WSHub) unregister(account string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.clients[account]
	for i, existing := range clients {
		if existing == c {
			h.clients[account] = append(clients[:i:i], clients[i+1:]...)
			break
		}
	}
	if len(h.clients[account]) == 0 {
		delete(h.clients, account)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	account := claims.AccountID
	client := h.register(account, conn)
	defer func() {
		h.unregister(account, client)
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
