package game

import (
	"math/rand"
	"sync"
	"time"
)

type Mode string

const (
	ModeClassic Mode = "classic"
	ModeRage    Mode = "rage"
)

const (
	MaxPlayers = 8

	defaultWinThreshold    = 50
	defaultStartingBalance = 12

	minItemValue = 1
	maxItemValue = 24

	surchargeCap          = 40
	surchargePerBribeUnit = 10
	maxBribeUnits         = 4
	taxBasePercent        = 25
	taxationInterval      = 5
	jackpotInterval       = 11
	jackpotPayoutCap      = 20
	loanAmount            = 5
	loanMaxBalance        = 3
)

type Player struct {
	ID          string
	DisplayName string
	Balance     int
	NetWorth    int
	CPU         bool
	Passed      bool
	Connected   bool

	// Rage mode only.
	SurchargePercent int
	HasActiveLoan    bool
}

// Room is the aggregate for one auction game. All mutable fields are guarded
// by mu; the engine and every timer callback take the lock before touching
// them. Player order in Players is turn order and is stable once the game
// has started.
type Room struct {
	mu sync.Mutex

	Code   string
	HostID string
	Mode   Mode

	Players    []*Player
	Spectators map[string]struct{}

	Started  bool
	Finished bool
	WinnerID string

	WinThreshold    int
	StartingBalance int

	RoundNumber  int
	ItemValue    int
	HighBid      int
	HighBidderID string

	// biddingOpen is true only while a round accepts bids and passes: set
	// when a round starts, cleared the moment it resolves. Between resolution
	// and the restart timer the stale current player has no legal actions.
	biddingOpen bool

	CurrentIndex  int
	StartingIndex int

	// Rage mode only.
	Vault            int
	WaitingForTax    bool
	TaxConfirmedByID map[string]struct{}

	rng   *rand.Rand
	timer *time.Timer
}

func newRoom(code, hostID string, mode Mode) *Room {
	return &Room{
		Code:            code,
		HostID:          hostID,
		Mode:            mode,
		Spectators:      map[string]struct{}{},
		WinThreshold:    defaultWinThreshold,
		StartingBalance: defaultStartingBalance,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// The helpers below require mu to be held by the caller.

func (r *Room) playerByID(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) currentPlayer() *Player {
	if r.CurrentIndex < 0 || r.CurrentIndex >= len(r.Players) {
		return nil
	}
	return r.Players[r.CurrentIndex]
}

func (r *Room) activeBidders() int {
	n := 0
	for _, p := range r.Players {
		if !p.Passed {
			n++
		}
	}
	return n
}

func (r *Room) isJackpotRound() bool {
	return r.Mode == ModeRage && r.RoundNumber > 0 && r.RoundNumber%jackpotInterval == 0
}

func (r *Room) allTaxConfirmed() bool {
	for _, p := range r.Players {
		if _, ok := r.TaxConfirmedByID[p.ID]; !ok {
			return false
		}
	}
	return true
}

// netWorthLeader returns the richest player other than excludeID whose
// surcharge still has room to grow, or nil.
func (r *Room) netWorthLeader(excludeID string) *Player {
	var leader *Player
	for _, p := range r.Players {
		if p.ID == excludeID || p.SurchargePercent >= surchargeCap {
			continue
		}
		if leader == nil || p.NetWorth > leader.NetWorth {
			leader = p
		}
	}
	return leader
}
