package game

import (
	"math/rand"
	"testing"
)

// cpuTestRoom builds a started room directly; the first player is the host.
func cpuTestRoom(mode Mode, players ...*Player) *Room {
	r := newRoom("TESTR", players[0].ID, mode)
	r.Players = players
	r.Started = true
	r.rng = rand.New(rand.NewSource(7))
	return r
}

func TestDecideLethalBid(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, NetWorth: 40, Balance: 10}
	room := cpuTestRoom(ModeClassic, cpu, &Player{ID: "h1"})
	room.ItemValue = 12
	room.HighBid = 2

	amount, ok := Decide(room, cpu)
	if !ok || amount != 9 {
		t.Fatalf("lethal bid = (%d, %v), want (9, true)", amount, ok)
	}
}

func TestDecideBlocksLeadingHuman(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, Balance: 10}
	human := &Player{ID: "h1", NetWorth: 45}
	room := cpuTestRoom(ModeClassic, cpu, human)
	room.ItemValue = 10

	amount, ok := Decide(room, cpu)
	if !ok || amount != 6 {
		t.Fatalf("blocking bid = (%d, %v), want (6, true)", amount, ok)
	}
}

func TestDecideBlocksRivalCPU(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, Balance: 10}
	rival := &Player{ID: "c2", CPU: true, NetWorth: 44}
	room := cpuTestRoom(ModeClassic, cpu, rival)
	room.ItemValue = 10

	amount, ok := Decide(room, cpu)
	if !ok || amount != 5 {
		t.Fatalf("rival block bid = (%d, %v), want (5, true)", amount, ok)
	}
}

func TestDecidePremiumItem(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, Balance: 20}
	room := cpuTestRoom(ModeClassic, cpu, &Player{ID: "h1"})
	room.ItemValue = 20
	room.HighBid = 4

	amount, ok := Decide(room, cpu)
	if !ok || amount != 8 {
		t.Fatalf("premium bid = (%d, %v), want (8, true)", amount, ok)
	}
}

func TestDecideGoodValueRatio(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, Balance: 20}
	room := cpuTestRoom(ModeClassic, cpu, &Player{ID: "h1"})
	room.ItemValue = 14
	room.HighBid = 8

	amount, ok := Decide(room, cpu)
	if !ok || amount != 11 {
		t.Fatalf("good value bid = (%d, %v), want (11, true)", amount, ok)
	}
}

func TestDecideOpeningSteal(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, Balance: 12}
	room := cpuTestRoom(ModeClassic, cpu, &Player{ID: "h1"})
	room.ItemValue = 8

	amount, ok := Decide(room, cpu)
	if !ok || amount != 1 {
		t.Fatalf("opening steal = (%d, %v), want (1, true)", amount, ok)
	}
}

func TestDecidePassesWhenBroke(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, Balance: 2}
	room := cpuTestRoom(ModeClassic, cpu, &Player{ID: "h1"})
	room.ItemValue = 24
	room.HighBid = 5

	if amount, ok := Decide(room, cpu); ok {
		t.Fatalf("bid %d placed with only 2 in funds", amount)
	}
}

func TestDecideDefaultPass(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, Balance: 20}
	room := cpuTestRoom(ModeClassic, cpu, &Player{ID: "h1"}, &Player{ID: "h2"})
	room.ItemValue = 5
	room.HighBid = 3

	if amount, ok := Decide(room, cpu); ok {
		t.Fatalf("bid %d placed on a worthless contested item", amount)
	}
}

func TestDecideJackpotInflatesValue(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, Balance: 20}
	room := cpuTestRoom(ModeRage, cpu, &Player{ID: "h1"})
	room.RoundNumber = jackpotInterval
	room.Vault = 10
	room.ItemValue = 10

	// 10 + 10 vault reads as a premium item.
	amount, ok := Decide(room, cpu)
	if !ok || amount != 4 {
		t.Fatalf("jackpot bid = (%d, %v), want (4, true)", amount, ok)
	}
}

func TestDecideNeverExceedsBalance(t *testing.T) {
	cpu := &Player{ID: "c1", CPU: true, NetWorth: 49, Balance: 3}
	room := cpuTestRoom(ModeClassic, cpu, &Player{ID: "h1"})
	room.ItemValue = 24
	room.HighBid = 2

	amount, ok := Decide(room, cpu)
	if !ok || amount != 3 {
		t.Fatalf("capped bid = (%d, %v), want (3, true)", amount, ok)
	}
}
