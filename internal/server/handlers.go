package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/loot-auction/internal/game"
)

// Routes registers the REST command surface and the websocket endpoint.
func (gs *GameServer) Routes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/create", gs.handleCreate).Methods("POST")
	api.HandleFunc("/join", gs.handleJoin).Methods("POST")
	api.HandleFunc("/spectate", gs.handleSpectate).Methods("POST")
	api.HandleFunc("/reconnect", gs.handleReconnect).Methods("POST")
	api.HandleFunc("/leave", gs.handleLeave).Methods("POST")
	api.HandleFunc("/addCpu", gs.handleAddCPU).Methods("POST")
	api.HandleFunc("/removeCpu", gs.handleRemoveCPU).Methods("POST")
	api.HandleFunc("/rename", gs.handleRename).Methods("POST")
	api.HandleFunc("/settings", gs.handleSettings).Methods("POST")
	api.HandleFunc("/start", gs.handleStart).Methods("POST")
	api.HandleFunc("/bid", gs.handleBid).Methods("POST")
	api.HandleFunc("/pass", gs.handlePass).Methods("POST")
	api.HandleFunc("/bribe", gs.handleBribe).Methods("POST")
	api.HandleFunc("/loan", gs.handleLoan).Methods("POST")
	api.HandleFunc("/confirmTax", gs.handleConfirmTax).Methods("POST")
	api.HandleFunc("/discard", gs.handleDiscard).Methods("POST")
	api.HandleFunc("/rooms", gs.handleListRooms).Methods("GET")
	api.HandleFunc("/state/{code}/{viewerId}", gs.handleState).Methods("GET")
	r.HandleFunc("/ws", gs.HandleWS)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, game.ErrRoomNotFound) || errors.Is(err, game.ErrPlayerNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (gs *GameServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Mode string `json:"mode"`
	}
	if !decode(w, r, &body) {
		return
	}
	room, host, err := gs.engine.CreateRoom(orDefault(body.Name, "Host"), game.Mode(body.Mode))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"roomCode": room.Code,
		"playerId": host.ID,
		"hostId":   room.HostID,
	})
}

func (gs *GameServer) handleJoin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		Name     string `json:"name"`
	}
	if !decode(w, r, &body) {
		return
	}
	player, err := gs.engine.JoinRoom(body.RoomCode, orDefault(body.Name, "Player"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"playerId": player.ID})
}

func (gs *GameServer) handleSpectate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
	}
	if !decode(w, r, &body) {
		return
	}
	specID, err := gs.engine.JoinAsSpectator(body.RoomCode)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"spectatorId": specID})
}

func (gs *GameServer) handleReconnect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		PlayerID string `json:"playerId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.Reconnect(body.RoomCode, body.PlayerID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reconnected"})
}

func (gs *GameServer) handleLeave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		PlayerID string `json:"playerId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.Leave(body.RoomCode, body.PlayerID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (gs *GameServer) handleAddCPU(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		HostID   string `json:"hostId"`
	}
	if !decode(w, r, &body) {
		return
	}
	cpu, err := gs.engine.AddCPU(body.RoomCode, body.HostID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cpuId": cpu.ID, "cpuName": cpu.DisplayName})
}

func (gs *GameServer) handleRemoveCPU(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		HostID   string `json:"hostId"`
		CPUID    string `json:"cpuId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.RemoveCPU(body.RoomCode, body.HostID, body.CPUID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (gs *GameServer) handleRename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		PlayerID string `json:"playerId"`
		Name     string `json:"name"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.RenamePlayer(body.RoomCode, body.PlayerID, orDefault(body.Name, "Player")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (gs *GameServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode        string `json:"roomCode"`
		HostID          string `json:"hostId"`
		WinThreshold    int    `json:"winThreshold"`
		StartingBalance int    `json:"startingBalance"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.UpdateSettings(body.RoomCode, body.HostID, body.WinThreshold, body.StartingBalance); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (gs *GameServer) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		HostID   string `json:"hostId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.StartGame(body.RoomCode, body.HostID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (gs *GameServer) handleBid(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		PlayerID string `json:"playerId"`
		Amount   int    `json:"amount"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.PlaceBid(body.RoomCode, body.PlayerID, body.Amount); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "bid placed"})
}

func (gs *GameServer) handlePass(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		PlayerID string `json:"playerId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.Pass(body.RoomCode, body.PlayerID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "passed"})
}

func (gs *GameServer) handleBribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		BriberID string `json:"briberId"`
		TargetID string `json:"targetId"`
		Amount   int    `json:"amount"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.BribePlayer(body.RoomCode, body.BriberID, body.TargetID, body.Amount); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "bribed"})
}

func (gs *GameServer) handleLoan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		PlayerID string `json:"playerId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.TakeLoan(body.RoomCode, body.PlayerID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loan granted"})
}

func (gs *GameServer) handleConfirmTax(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		PlayerID string `json:"playerId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.ConfirmTax(body.RoomCode, body.PlayerID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (gs *GameServer) handleDiscard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomCode string `json:"roomCode"`
		HostID   string `json:"hostId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := gs.engine.DiscardRoom(body.RoomCode, body.HostID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (gs *GameServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gs.engine.ListRooms())
}

func (gs *GameServer) handleState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap, err := gs.engine.Snapshot(vars["code"], vars["viewerId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
