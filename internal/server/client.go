package server

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// client is one websocket viewer. Outbound frames go through the buffered
// send channel and a single write pump; the engine's publisher callbacks
// enqueue and never touch the connection.
type client struct {
	gs       *GameServer
	conn     wsConn
	send     chan wsOut
	code     string
	viewerID string
	isPlayer bool
}

// wsConn is the slice of *websocket.Conn the client uses; narrowed for tests.
type wsConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

func (c *client) enqueue(msg wsOut) {
	select {
	case c.send <- msg:
	default:
		// Slow consumer; drop the frame. The next snapshot supersedes it.
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.gs.unregister(c)
		close(c.send)
	}()

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if !c.isPlayer {
			continue // spectators only watch
		}
		if err := c.dispatch(msg); err != nil {
			c.enqueue(wsOut{Type: "error", Payload: map[string]any{"command": msg.Type, "error": err.Error()}})
		}
	}
}

// dispatch routes an in-game command from the socket to the engine. Lobby
// management stays on the REST surface.
func (c *client) dispatch(msg inbound) error {
	engine := c.gs.engine
	switch msg.Type {
	case "bid":
		var data struct {
			Amount int `json:"amount"`
		}
		if err := json.Unmarshal(msg.Payload, &data); err != nil {
			return err
		}
		return engine.PlaceBid(c.code, c.viewerID, data.Amount)
	case "pass":
		return engine.Pass(c.code, c.viewerID)
	case "confirmTax":
		return engine.ConfirmTax(c.code, c.viewerID)
	case "bribe":
		var data struct {
			TargetID string `json:"targetId"`
			Amount   int    `json:"amount"`
		}
		if err := json.Unmarshal(msg.Payload, &data); err != nil {
			return err
		}
		return engine.BribePlayer(c.code, c.viewerID, data.TargetID, data.Amount)
	case "loan":
		return engine.TakeLoan(c.code, c.viewerID)
	case "start":
		return engine.StartGame(c.code, c.viewerID)
	default:
		log.Debug().Str("type", msg.Type).Msg("unknown ws command")
		return nil
	}
}
