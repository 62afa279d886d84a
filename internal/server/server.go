package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/example/loot-auction/internal/game"
)

type wsOut struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// GameServer binds the auction engine to HTTP and websockets. It is also the
// engine's StatePublisher: snapshots and events are fanned out to per-client
// buffered channels so the engine never blocks on a slow connection.
type GameServer struct {
	engine   *game.Engine
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*client]struct{} // room code -> connections
}

func NewGameServer(timing game.Timing) *GameServer {
	gs := &GameServer{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	gs.engine = game.NewEngine(game.NewRegistry(), gs, timing)
	return gs
}

// Engine exposes the underlying engine, mainly for tests.
func (gs *GameServer) Engine() *game.Engine {
	return gs.engine
}

// PublishState implements game.Publisher.
func (gs *GameServer) PublishState(code, viewerID string, state game.Snapshot) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	for c := range gs.clients[code] {
		if c.viewerID == viewerID {
			c.enqueue(wsOut{Type: "state", Payload: state})
		}
	}
}

// PublishEvent implements game.Publisher.
func (gs *GameServer) PublishEvent(code string, event game.Event) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	for c := range gs.clients[code] {
		c.enqueue(wsOut{Type: event.Type, Payload: event.Payload})
	}
}

func (gs *GameServer) register(c *client) {
	gs.mu.Lock()
	if gs.clients[c.code] == nil {
		gs.clients[c.code] = make(map[*client]struct{})
	}
	gs.clients[c.code][c] = struct{}{}
	gs.mu.Unlock()
}

func (gs *GameServer) unregister(c *client) {
	gs.mu.Lock()
	if set, ok := gs.clients[c.code]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(gs.clients, c.code)
		}
	}
	gs.mu.Unlock()

	// Hand the seat to CPU control after the socket is gone; never while
	// holding gs.mu, since the engine publishes back through it.
	if c.isPlayer {
		if err := gs.engine.Leave(c.code, c.viewerID); err != nil {
			log.Debug().Str("room", c.code).Str("player", c.viewerID).Err(err).Msg("leave after disconnect")
		}
	}
}

// HandleWS upgrades /ws?code=...&viewerId=... and streams snapshots and
// events to that viewer. Players may also send commands over the socket.
func (gs *GameServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	viewerID := r.URL.Query().Get("viewerId")

	snap, err := gs.engine.Snapshot(code, viewerID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	isPlayer := false
	for _, p := range snap.Players {
		if p.ID == viewerID {
			isPlayer = true
		}
	}
	if !isPlayer && !snap.IsSpectator {
		http.Error(w, "unknown viewer", http.StatusForbidden)
		return
	}

	conn, err := gs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	c := &client{
		gs:       gs,
		conn:     conn,
		send:     make(chan wsOut, 32),
		code:     code,
		viewerID: viewerID,
		isPlayer: isPlayer,
	}
	gs.register(c)
	go c.writePump()

	if isPlayer {
		// A returning player takes control back from the CPU.
		if err := gs.engine.Reconnect(code, viewerID); err != nil {
			log.Debug().Str("room", code).Str("player", viewerID).Err(err).Msg("reconnect")
		}
	} else {
		c.enqueue(wsOut{Type: "state", Payload: snap})
	}

	go c.readPump()
}
