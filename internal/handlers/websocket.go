package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gyanburu-backend/internal/middleware"
	"gyanburu-backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

type BalanceReader interface {
	Balance(ctx context.Context, identity string) (*models.BalanceResponse, error)
}

// BalanceReaderFunc adapts a function to BalanceReader.
type BalanceReaderFunc func(ctx context.Context, identity string) (*models.BalanceResponse, error)

func (f BalanceReaderFunc) Balance(ctx context.Context, identity string) (*models.BalanceResponse, error) {
	return f(ctx, identity)
}

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type feedClient struct {
	identity string
	conn     *websocket.Conn
	send     chan Message
}

// WalletFeed pushes balance changes to every open connection of an identity.
// It holds connections only; balances always come from the caller.
type WalletFeed struct {
	mu       sync.RWMutex
	clients  map[string]map[*feedClient]struct{}
	balances BalanceReader
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWalletFeed(balances BalanceReader, allowedOrigins []string, log *zap.Logger) *WalletFeed {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &WalletFeed{
		clients:  make(map[string]map[*feedClient]struct{}),
		balances: balances,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
		log: log,
	}
}

// BroadcastBalance never blocks; a client whose buffer is full misses the
// update and will see the next one.
func (f *WalletFeed) BroadcastBalance(identity string, credits int64) {
	msg := Message{
		Type: "BALANCE_UPDATE",
		Data: gin.H{"credits": credits, "timestamp": time.Now().Unix()},
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for client := range f.clients[identity] {
		select {
		case client.send <- msg:
		default:
			f.log.Debug("dropping balance update for slow client", zap.String("identity", identity))
		}
	}
}

// Connections reports how many sockets are open for identity.
func (f *WalletFeed) Connections(identity string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients[identity])
}

func (f *WalletFeed) register(client *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.clients[client.identity]
	if !ok {
		set = make(map[*feedClient]struct{})
		f.clients[client.identity] = set
	}
	set[client] = struct{}{}
}

func (f *WalletFeed) unregister(client *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.clients[client.identity]; ok {
		if _, ok := set[client]; ok {
			delete(set, client)
			close(client.send)
		}
		if len(set) == 0 {
			delete(f.clients, client.identity)
		}
	}
}

func (f *WalletFeed) HandleWebSocket(c *gin.Context) {
	identity := middleware.Identity(c)

	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{
		identity: identity,
		conn:     conn,
		send:     make(chan Message, sendBufferSize),
	}
	f.register(client)
	go f.writePump(client)

	f.sendBalance(c.Request.Context(), client)
	f.readPump(client)
}

func (f *WalletFeed) sendBalance(ctx context.Context, client *feedClient) {
	balance, err := f.balances.Balance(ctx, client.identity)
	if err != nil {
		f.log.Warn("initial balance unavailable", zap.String("identity", client.identity), zap.Error(err))
		return
	}

	f.reply(client, Message{
		Type: "BALANCE_UPDATE",
		Data: gin.H{"credits": balance.Credits, "timestamp": time.Now().Unix()},
	})
}

func (f *WalletFeed) readPump(client *feedClient) {
	defer func() {
		f.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.log.Warn("websocket read failed", zap.String("identity", client.identity), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "PING":
			f.reply(client, Message{Type: "PONG", Data: gin.H{"timestamp": time.Now().Unix()}})
		case "GET_BALANCE":
			f.sendBalance(context.Background(), client)
		}
	}
}

func (f *WalletFeed) reply(client *feedClient, msg Message) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.clients[client.identity][client]; !ok {
		return
	}
	select {
	case client.send <- msg:
	default:
	}
}

// writePump is the only writer on the connection.
func (f *WalletFeed) writePump(client *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
