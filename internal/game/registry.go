package game

import (
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// codeAlphabet omits ambiguous characters (I, O, 0, 1).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 5

// Registry owns the code->Room mapping. All registry mutation is atomic with
// respect to lookups; individual rooms carry their own lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// RoomSummary is the lobby view of a joinable room.
type RoomSummary struct {
	Code        string `json:"roomCode"`
	HostName    string `json:"hostName"`
	Mode        Mode   `json:"mode"`
	PlayerCount int    `json:"playerCount"`
	Started     bool   `json:"started"`
}

// Create registers a new room with its host as the first player.
func (reg *Registry) Create(hostName string, mode Mode) (*Room, *Player) {
	hostID := uuid.NewString()
	host := &Player{ID: hostID, DisplayName: hostName, Connected: true}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	code := reg.newCode()
	room := newRoom(code, hostID, mode)
	room.Players = append(room.Players, host)
	reg.rooms[code] = room
	return room, host
}

func (reg *Registry) Get(code string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (reg *Registry) Discard(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, code)
}

// List returns unfinished rooms for the lobby.
func (reg *Registry) List() []RoomSummary {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := []RoomSummary{}
	for _, room := range reg.rooms {
		room.mu.Lock()
		if !room.Finished {
			hostName := ""
			if host := room.playerByID(room.HostID); host != nil {
				hostName = host.DisplayName
			}
			out = append(out, RoomSummary{
				Code:        room.Code,
				HostName:    hostName,
				Mode:        room.Mode,
				PlayerCount: len(room.Players),
				Started:     room.Started,
			})
		}
		room.mu.Unlock()
	}
	return out
}

// newCode requires reg.mu to be held. Retries until the code is unused.
func (reg *Registry) newCode() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			b[i] = codeAlphabet[n.Int64()]
		}
		code := string(b)
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}
