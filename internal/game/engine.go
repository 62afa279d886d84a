package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrRoomFull           = errors.New("room is full")
	ErrRoomStarted        = errors.New("game already started")
	ErrRoomNotStarted     = errors.New("game not started")
	ErrRoomFinished       = errors.New("game already finished")
	ErrNotHost            = errors.New("only the host can do that")
	ErrNotEnoughPlayers   = errors.New("need at least 2 players")
	ErrSettingsOutOfRange = errors.New("settings out of range")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrRoundResolved      = errors.New("round already resolved")
	ErrBidTooLow          = errors.New("bid must exceed the current high bid")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotCPU             = errors.New("player is not a CPU")
	ErrCPUPlayer          = errors.New("not allowed for CPU players")
	ErrClassicMode        = errors.New("not available in classic mode")
	ErrTaxationPending    = errors.New("waiting for taxation confirmation")
)

// Timing holds every delay the engine schedules. Tests shrink these.
type Timing struct {
	TurnTimeout        time.Duration
	CPUDelayMin        time.Duration
	CPUDelayJitter     time.Duration
	RoundRestartDelay  time.Duration
	TaxConfirmFallback time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		TurnTimeout:        20 * time.Second,
		CPUDelayMin:        2 * time.Second,
		CPUDelayJitter:     3 * time.Second,
		RoundRestartDelay:  2 * time.Second,
		TaxConfirmFallback: 30 * time.Second,
	}
}

// Engine runs the per-room auction state machine. Every mutating operation,
// including timer and CPU callbacks, executes under the target room's lock,
// so mutations on one room never interleave.
type Engine struct {
	registry  *Registry
	publisher Publisher
	timing    Timing
}

func NewEngine(registry *Registry, publisher Publisher, timing Timing) *Engine {
	return &Engine{registry: registry, publisher: publisher, timing: timing}
}

func (e *Engine) withRoom(code string, fn func(*Room) error) error {
	room, err := e.registry.Get(code)
	if err != nil {
		return err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return fn(room)
}

// --- Lobby lifecycle ---

func (e *Engine) CreateRoom(hostName string, mode Mode) (*Room, *Player, error) {
	switch mode {
	case ModeClassic, ModeRage:
	case "":
		mode = ModeClassic
	default:
		return nil, nil, fmt.Errorf("%w: unknown mode %q", ErrSettingsOutOfRange, mode)
	}
	room, host := e.registry.Create(hostName, mode)
	log.Info().Str("room", room.Code).Str("mode", string(mode)).Str("host", hostName).Msg("room created")
	return room, host, nil
}

func (e *Engine) JoinRoom(code, name string) (*Player, error) {
	var player *Player
	err := e.withRoom(code, func(room *Room) error {
		if room.Started {
			return ErrRoomStarted
		}
		if len(room.Players) >= MaxPlayers {
			return ErrRoomFull
		}
		player = &Player{ID: uuid.NewString(), DisplayName: name, Connected: true}
		room.Players = append(room.Players, player)
		e.publishState(room)
		return nil
	})
	return player, err
}

func (e *Engine) JoinAsSpectator(code string) (string, error) {
	specID := "spec-" + uuid.NewString()
	err := e.withRoom(code, func(room *Room) error {
		room.Spectators[specID] = struct{}{}
		e.publishState(room)
		return nil
	})
	if err != nil {
		return "", err
	}
	return specID, nil
}

// Reconnect returns control of a CPU-takeover player to a human.
func (e *Engine) Reconnect(code, playerID string) error {
	return e.withRoom(code, func(room *Room) error {
		p := room.playerByID(playerID)
		if p == nil {
			return ErrPlayerNotFound
		}
		p.Connected = true
		p.CPU = false
		e.publishState(room)
		return nil
	})
}

// Leave marks a player disconnected and hands them to CPU control. The player
// stays in the sequence so turn-order indices remain stable.
func (e *Engine) Leave(code, playerID string) error {
	return e.withRoom(code, func(room *Room) error {
		p := room.playerByID(playerID)
		if p == nil {
			return ErrPlayerNotFound
		}
		p.Balance = 0
		p.NetWorth = 0
		p.Connected = false
		p.CPU = true
		e.publishState(room)
		return nil
	})
}

func (e *Engine) AddCPU(code, hostID string) (*Player, error) {
	var cpu *Player
	err := e.withRoom(code, func(room *Room) error {
		if room.HostID != hostID {
			return ErrNotHost
		}
		if room.Started {
			return ErrRoomStarted
		}
		if len(room.Players) >= MaxPlayers {
			return ErrRoomFull
		}
		n := 1
		for _, p := range room.Players {
			if p.CPU {
				n++
			}
		}
		cpu = &Player{
			ID:          "cpu-" + uuid.NewString(),
			DisplayName: fmt.Sprintf("CPU %d", n),
			CPU:         true,
			Connected:   true,
		}
		room.Players = append(room.Players, cpu)
		e.publishState(room)
		return nil
	})
	return cpu, err
}

func (e *Engine) RemoveCPU(code, hostID, cpuID string) error {
	return e.withRoom(code, func(room *Room) error {
		if room.HostID != hostID {
			return ErrNotHost
		}
		if room.Started {
			return ErrRoomStarted
		}
		for i, p := range room.Players {
			if p.ID == cpuID {
				if !p.CPU {
					return ErrNotCPU
				}
				room.Players = append(room.Players[:i], room.Players[i+1:]...)
				e.publishState(room)
				return nil
			}
		}
		return ErrPlayerNotFound
	})
}

func (e *Engine) RenamePlayer(code, playerID, name string) error {
	return e.withRoom(code, func(room *Room) error {
		if room.Started {
			return ErrRoomStarted
		}
		p := room.playerByID(playerID)
		if p == nil {
			return ErrPlayerNotFound
		}
		if p.CPU {
			return ErrCPUPlayer
		}
		p.DisplayName = name
		e.publishState(room)
		return nil
	})
}

func (e *Engine) UpdateSettings(code, hostID string, winThreshold, startingBalance int) error {
	return e.withRoom(code, func(room *Room) error {
		if room.HostID != hostID {
			return ErrNotHost
		}
		if room.Started {
			return ErrRoomStarted
		}
		if winThreshold < 10 || winThreshold > 200 {
			return ErrSettingsOutOfRange
		}
		if startingBalance < 1 || startingBalance > 100 {
			return ErrSettingsOutOfRange
		}
		room.WinThreshold = winThreshold
		room.StartingBalance = startingBalance
		e.publishState(room)
		return nil
	})
}

func (e *Engine) StartGame(code, hostID string) error {
	return e.withRoom(code, func(room *Room) error {
		if room.HostID != hostID {
			return ErrNotHost
		}
		if room.Started {
			return ErrRoomStarted
		}
		if len(room.Players) < 2 {
			return ErrNotEnoughPlayers
		}
		for _, p := range room.Players {
			p.Balance = room.StartingBalance
		}
		room.Started = true
		room.StartingIndex = 0
		e.publisher.PublishEvent(room.Code, Event{Type: EventGameStarted, Payload: map[string]any{"started": true}})
		log.Info().Str("room", room.Code).Int("players", len(room.Players)).Msg("game started")
		e.startRound(room)
		return nil
	})
}

func (e *Engine) DiscardRoom(code, hostID string) error {
	err := e.withRoom(code, func(room *Room) error {
		if room.HostID != hostID {
			return ErrNotHost
		}
		if room.Started {
			return ErrRoomStarted
		}
		e.cancelTimer(room)
		e.publisher.PublishEvent(room.Code, Event{Type: EventRoomDiscarded})
		return nil
	})
	if err != nil {
		return err
	}
	e.registry.Discard(code)
	log.Info().Str("room", code).Msg("room discarded")
	return nil
}

func (e *Engine) ListRooms() []RoomSummary {
	return e.registry.List()
}

// Snapshot returns the viewer's redacted view of a room.
func (e *Engine) Snapshot(code, viewerID string) (Snapshot, error) {
	var s Snapshot
	err := e.withRoom(code, func(room *Room) error {
		s = snapshot(room, viewerID)
		return nil
	})
	return s, err
}

// --- Bidding ---

func (e *Engine) PlaceBid(code, playerID string, amount int) error {
	return e.withRoom(code, func(room *Room) error {
		return e.placeBid(room, playerID, amount)
	})
}

func (e *Engine) Pass(code, playerID string) error {
	return e.withRoom(code, func(room *Room) error {
		return e.pass(room, playerID)
	})
}

// checkTurn requires room.mu. Validates the room is mid-bidding and that
// playerID holds the turn.
func (e *Engine) checkTurn(room *Room, playerID string) error {
	if !room.Started {
		return ErrRoomNotStarted
	}
	if room.Finished {
		return ErrRoomFinished
	}
	if room.WaitingForTax {
		return ErrTaxationPending
	}
	if !room.biddingOpen {
		return ErrRoundResolved
	}
	cur := room.currentPlayer()
	if cur == nil || cur.ID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

func (e *Engine) placeBid(room *Room, playerID string, amount int) error {
	if err := e.checkTurn(room, playerID); err != nil {
		return err
	}
	bidder := room.currentPlayer()
	if amount <= room.HighBid {
		return ErrBidTooLow
	}
	if amount > bidder.Balance {
		return ErrInsufficientFunds
	}
	e.cancelTimer(room)

	// Money is escrowed at bid time: the outbid player gets theirs back, the
	// new high bidder pays immediately.
	if room.HighBidderID != "" {
		if prev := room.playerByID(room.HighBidderID); prev != nil {
			prev.Balance += room.HighBid
		}
	}
	bidder.Balance -= amount
	room.HighBid = amount
	room.HighBidderID = playerID

	log.Debug().Str("room", room.Code).Str("player", bidder.DisplayName).Int("amount", amount).Msg("bid placed")
	e.publishState(room)
	e.advanceToNextBidder(room)
	return nil
}

func (e *Engine) pass(room *Room, playerID string) error {
	if err := e.checkTurn(room, playerID); err != nil {
		return err
	}
	e.cancelTimer(room)
	room.currentPlayer().Passed = true

	if room.activeBidders() <= 1 {
		e.resolveRound(room)
		return nil
	}
	e.publishState(room)
	e.advanceToNextBidder(room)
	return nil
}

// advanceToNextBidder moves the turn to the next player who has not passed
// and does not hold the high bid (a player never raises against themselves).
// If no such player exists the round resolves immediately.
func (e *Engine) advanceToNextBidder(room *Room) {
	n := len(room.Players)
	idx := room.CurrentIndex
	for i := 0; i < n; i++ {
		idx = (idx + 1) % n
		p := room.Players[idx]
		if p.Passed || p.ID == room.HighBidderID {
			continue
		}
		room.CurrentIndex = idx
		e.publishState(room)
		e.armTurnTimer(room)
		e.scheduleCPUTurn(room)
		return
	}
	e.resolveRound(room)
}

func (e *Engine) resolveRound(room *Room) {
	room.biddingOpen = false
	e.cancelTimer(room)
	result := map[string]any{
		"roundNumber": room.RoundNumber,
		"itemValue":   room.ItemValue,
	}

	if room.HighBidderID != "" {
		winner := room.playerByID(room.HighBidderID)
		winner.NetWorth += room.ItemValue
		result["roundWinner"] = winner.DisplayName
		result["bidPaid"] = room.HighBid

		if room.isJackpotRound() && room.Vault > 0 {
			e.payJackpot(room, winner)
		}

		if winner.NetWorth >= room.WinThreshold {
			room.Finished = true
			room.WinnerID = winner.ID
			e.publishState(room)
			e.publisher.PublishEvent(room.Code, Event{Type: EventWinner, Payload: map[string]any{
				"winnerId":   winner.ID,
				"winnerName": winner.DisplayName,
			}})
			log.Info().Str("room", room.Code).Str("winner", winner.DisplayName).Msg("game over")
			return
		}
	} else {
		// No one bid; the item is discarded.
		result["roundWinner"] = "none"
		result["discarded"] = true
	}

	// Income phase.
	for _, p := range room.Players {
		p.Balance++
	}
	room.StartingIndex = (room.StartingIndex + 1) % len(room.Players)

	e.publisher.PublishEvent(room.Code, Event{Type: EventRoundResult, Payload: result})
	e.publishState(room)
	log.Debug().Str("room", room.Code).Int("round", room.RoundNumber).Msg("round resolved")

	if room.Mode == ModeRage && room.RoundNumber > 0 && room.RoundNumber%taxationInterval == 0 {
		e.arm(room, e.timing.RoundRestartDelay, e.executeTaxationPhase)
		return
	}
	e.arm(room, e.timing.RoundRestartDelay, e.startRound)
}

func (e *Engine) startRound(room *Room) {
	if room.Finished {
		return
	}
	room.RoundNumber++
	room.ItemValue = minItemValue + room.rng.Intn(maxItemValue-minItemValue+1)
	room.HighBid = 0
	room.HighBidderID = ""
	for _, p := range room.Players {
		p.Passed = false
	}
	room.CurrentIndex = room.StartingIndex
	room.biddingOpen = true

	if room.Mode == ModeRage {
		e.preRoundRageActions(room)
	}

	e.publishState(room)
	e.armTurnTimer(room)
	e.scheduleCPUTurn(room)
}

// armTurnTimer auto-passes the current player when the turn timeout elapses.
func (e *Engine) armTurnTimer(room *Room) {
	e.arm(room, e.timing.TurnTimeout, func(r *Room) {
		if cur := r.currentPlayer(); cur != nil {
			_ = e.pass(r, cur.ID)
		}
	})
}

// scheduleCPUTurn arms the thinking delay for a CPU-controlled current
// player. The callback re-checks identity and control: a human may have
// reconnected while the CPU was "thinking".
func (e *Engine) scheduleCPUTurn(room *Room) {
	cur := room.currentPlayer()
	if cur == nil || !cur.CPU {
		return
	}
	id := cur.ID
	delay := e.timing.CPUDelayMin
	if e.timing.CPUDelayJitter > 0 {
		delay += time.Duration(room.rng.Int63n(int64(e.timing.CPUDelayJitter)))
	}
	e.arm(room, delay, func(r *Room) {
		cur := r.currentPlayer()
		if cur == nil || cur.ID != id {
			return
		}
		if !cur.CPU {
			e.armTurnTimer(r)
			return
		}
		if amount, ok := Decide(r, cur); ok {
			if err := e.placeBid(r, cur.ID, amount); err == nil {
				return
			}
		}
		_ = e.pass(r, cur.ID)
	})
}

// publishState sends every viewer their redacted snapshot. Caller holds
// room.mu; the publisher must not block.
func (e *Engine) publishState(room *Room) {
	for _, p := range room.Players {
		if p.CPU {
			continue
		}
		e.publisher.PublishState(room.Code, p.ID, snapshot(room, p.ID))
	}
	for specID := range room.Spectators {
		e.publisher.PublishState(room.Code, specID, snapshot(room, specID))
	}
}
