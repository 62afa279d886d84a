package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/loot-auction/internal/game"
)

func newTestServer(t *testing.T) (*GameServer, *mux.Router) {
	t.Helper()
	gs := NewGameServer(game.Timing{
		TurnTimeout:        time.Hour,
		CPUDelayMin:        time.Hour,
		RoundRestartDelay:  time.Hour,
		TaxConfirmFallback: time.Hour,
	})
	r := mux.NewRouter()
	gs.Routes(r)
	return gs, r
}

func postJSON(t *testing.T, r *mux.Router, path string, body any) (int, map[string]any) {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func getJSON(t *testing.T, r *mux.Router, path string, v any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code
}

func TestCreateJoinStartFlow(t *testing.T) {
	_, r := newTestServer(t)

	status, created := postJSON(t, r, "/api/create", map[string]string{"name": "Alice", "mode": "rage"})
	if status != http.StatusOK {
		t.Fatalf("create status = %d: %v", status, created)
	}
	code, _ := created["roomCode"].(string)
	hostID, _ := created["playerId"].(string)
	if code == "" || hostID == "" || created["hostId"] != hostID {
		t.Fatalf("create response incomplete: %v", created)
	}

	status, joined := postJSON(t, r, "/api/join", map[string]string{"roomCode": code, "name": "Bob"})
	if status != http.StatusOK {
		t.Fatalf("join status = %d: %v", status, joined)
	}

	status, started := postJSON(t, r, "/api/start", map[string]string{"roomCode": code, "hostId": hostID})
	if status != http.StatusOK {
		t.Fatalf("start status = %d: %v", status, started)
	}

	var snap map[string]any
	if status := getJSON(t, r, "/api/state/"+code+"/"+hostID, &snap); status != http.StatusOK {
		t.Fatalf("state status = %d", status)
	}
	if snap["started"] != true || snap["mode"] != "rage" {
		t.Fatalf("snapshot wrong: %v", snap)
	}
	players, _ := snap["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("snapshot players = %d, want 2", len(players))
	}
	for _, raw := range players {
		p := raw.(map[string]any)
		if p["isYou"] == true {
			if p["balance"] != float64(12) {
				t.Fatalf("own balance = %v, want 12", p["balance"])
			}
		} else if p["balance"] != "???" {
			t.Fatalf("rival balance leaked: %v", p["balance"])
		}
	}
}

func TestErrorStatusMapping(t *testing.T) {
	_, r := newTestServer(t)

	status, body := postJSON(t, r, "/api/join", map[string]string{"roomCode": "NOPES", "name": "Bob"})
	if status != http.StatusNotFound {
		t.Fatalf("unknown room join status = %d: %v", status, body)
	}
	if body["error"] == "" {
		t.Fatalf("error body missing: %v", body)
	}

	status, _ = postJSON(t, r, "/api/bid", map[string]any{"roomCode": "NOPES", "playerId": "x", "amount": 1})
	if status != http.StatusNotFound {
		t.Fatalf("unknown room bid status = %d", status)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/create", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}

func TestListRooms(t *testing.T) {
	_, r := newTestServer(t)

	if _, body := postJSON(t, r, "/api/create", map[string]string{"name": "Alice"}); body["roomCode"] == "" {
		t.Fatalf("create failed: %v", body)
	}

	var rooms []map[string]any
	if status := getJSON(t, r, "/api/rooms", &rooms); status != http.StatusOK {
		t.Fatalf("rooms status = %d", status)
	}
	if len(rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(rooms))
	}
	if rooms[0]["hostName"] != "Alice" || rooms[0]["mode"] != "classic" {
		t.Fatalf("room summary wrong: %v", rooms[0])
	}
}

func TestClientDispatch(t *testing.T) {
	gs, _ := newTestServer(t)

	room, host, err := gs.engine.CreateRoom("Host", game.ModeClassic)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	guest, err := gs.engine.JoinRoom(room.Code, "Guest")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := gs.engine.StartGame(room.Code, host.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	hostClient := &client{gs: gs, code: room.Code, viewerID: host.ID, send: make(chan wsOut, 4), isPlayer: true}
	guestClient := &client{gs: gs, code: room.Code, viewerID: guest.ID, send: make(chan wsOut, 4), isPlayer: true}

	if err := guestClient.dispatch(inbound{Type: "bid", Payload: json.RawMessage(`{"amount":3}`)}); err != game.ErrNotYourTurn {
		t.Fatalf("out-of-turn socket bid: got %v, want ErrNotYourTurn", err)
	}
	if err := hostClient.dispatch(inbound{Type: "bid", Payload: json.RawMessage(`{"amount":3}`)}); err != nil {
		t.Fatalf("socket bid: %v", err)
	}
	if err := guestClient.dispatch(inbound{Type: "pass"}); err != nil {
		t.Fatalf("socket pass: %v", err)
	}
	if err := hostClient.dispatch(inbound{Type: "no-such-command"}); err != nil {
		t.Fatalf("unknown command should be ignored: %v", err)
	}
	if host.NetWorth == 0 {
		t.Fatal("round did not resolve through the socket commands")
	}
}
