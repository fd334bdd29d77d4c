package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"rugsServer/config"
	"rugsServer/db"
	"rugsServer/game"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var clientIDCounter int64

// Client is one live session. It holds no game state beyond the
// identify binding; the room is the source of truth.
type Client struct {
	id  string
	hub *Hub

	conn *websocket.Conn
	send chan []byte
	done chan struct{} // closed once by readPump, stops the writer and ping loop

	mu       sync.RWMutex
	playerID string // "" until identify; spectators may not trade
}

// HandleWS upgrades the connection and starts the session pumps.
func HandleWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("❌ WebSocket upgrade failed:", err)
			return
		}

		client := &Client{
			id:   generateClientID(),
			hub:  hub,
			conn: conn,
			send: make(chan []byte, config.WSSendBufferSize),
			done: make(chan struct{}),
		}

		hub.register <- client

		go client.writePump()
		go client.pingLoop()
		go client.readPump()

		// init unicast: current round, countdown, recent history
		client.unicast(initMessage(hub.room.Snapshot(), hub.room.History()))
	}
}

// unicast marshals and queues a message for this session only. Safe
// after teardown: the send channel is never closed, so a delayed restore
// unicast is dropped instead of panicking.
func (c *Client) unicast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("❌ Failed to marshal unicast for %s: %v", c.id, err)
		return
	}
	select {
	case <-c.done:
		// session gone, drop
	case c.send <- data:
	default:
		log.Printf("⚠️  Client %s send buffer full, dropping unicast", c.id)
	}
}

// writePump drains the send queue onto the socket until the session is
// torn down.
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write error for client %s: %v", c.id, err)
				return
			}
		case <-c.done:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// pingLoop probes liveness on its own timer. Closing the session stops
// only this probe; the round loop never notices.
func (c *Client) pingLoop() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.unicast(pingMessage(now))
		}
	}
}

// readPump parses inbound envelopes and dispatches them. A malformed
// frame is logged and dropped; it never tears down the session.
func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Read error for client %s: %v", c.id, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))

		env, err := parseEnvelope(data)
		if err != nil {
			log.Printf("⚠️  Malformed message from client %s: %v", c.id, err)
			continue
		}
		c.handle(env)
	}
}

// handle dispatches one inbound envelope. Every variant is matched
// explicitly; an unknown tag falls through to the malformed branch.
func (c *Client) handle(env Envelope) {
	switch env.Type {
	case "identify":
		c.handleIdentify(env)

	case "buy":
		c.handleBuy(env)

	case "sell":
		c.handleSell()

	case "PONG":
		latency := computeLatency(env.ServerTimestamp, time.Now())
		c.unicast(latencyMessage(latency))

	case "global-chat":
		c.handleChat(env)

	default:
		log.Printf("⚠️  Unknown message type %q from client %s", env.Type, c.id)
	}
}

// handleIdentify binds the session to a player and unicasts the restore
// payloads a reconnecting client needs to rebuild its view.
func (c *Client) handleIdentify(env Envelope) {
	if env.PlayerID == "" {
		c.unicast(errorMessage("MalformedMessage", "identify requires playerId"))
		return
	}

	c.mu.Lock()
	c.playerID = env.PlayerID
	c.mu.Unlock()
	log.Printf("🪪 Client %s identified as %s", c.id, env.PlayerID)

	snap := c.hub.room.Snapshot()
	c.unicast(tickRestoreMessage(snap.Ticks))

	if trades := c.hub.room.PlayerTrades(env.PlayerID); len(trades) > 0 {
		c.unicast(tradeRestoreMessage(env.PlayerID, trades))
	}

	c.unicast(game.PrevGamesMessage(c.hub.room.History()))

	// recent chat arrives late, it comes off the database
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.PersistTimeout)
		defer cancel()
		records, err := db.GetRecentChatMessages(ctx, 50)
		if err != nil {
			log.Printf("⚠️  Failed to load chat history: %v", err)
			return
		}
		if len(records) > 0 {
			c.unicast(chatHistoryMessage(records))
		}
	}()
}

func (c *Client) handleBuy(env Envelope) {
	playerID := c.player()
	if playerID == "" {
		c.unicast(errorMessage("MalformedMessage", "identify before trading"))
		return
	}
	if env.BuyAmount < config.MinBuyAmount || env.BuyAmount > config.MaxBuyAmount {
		c.unicast(errorMessage("MalformedMessage", "buyAmount out of range"))
		return
	}

	if _, err := c.hub.room.Buy(playerID, env.BuyAmount, env.AutoSell); err != nil {
		c.unicast(errorMessage(errorCode(err), err.Error()))
		return
	}
}

func (c *Client) handleSell() {
	playerID := c.player()
	if playerID == "" {
		c.unicast(errorMessage("MalformedMessage", "identify before trading"))
		return
	}

	if _, err := c.hub.room.Sell(playerID); err != nil {
		c.unicast(errorMessage(errorCode(err), err.Error()))
		return
	}
}

// handleChat relays a chat line to everyone and persists it in the
// background. Chat never touches game state.
func (c *Client) handleChat(env Envelope) {
	playerID := c.player()
	if playerID == "" {
		playerID = c.id
	}
	if env.Message == "" {
		return
	}

	now := time.Now()
	c.hub.Broadcast(chatMessage(playerID, env.Message, now))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.PersistTimeout)
		defer cancel()
		if err := db.StoreChatMessage(ctx, &db.ChatRecord{
			PlayerID:  playerID,
			Message:   env.Message,
			Timestamp: now,
		}); err != nil {
			log.Printf("⚠️  Failed to store chat message: %v", err)
		}
	}()
}

func (c *Client) player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// generateClientID creates a unique session id.
func generateClientID() string {
	id := atomic.AddInt64(&clientIDCounter, 1)
	return fmt.Sprintf("%d-%d", time.Now().Unix(), id)
}
