package game

// CPU bidding is a prioritized rule list over the room state; the first rule
// that matches decides. Tiers are tuned to the 1..24 item value range. Decide
// is invoked under the room lock from the scheduled CPU turn and never
// mutates anything; its only nondeterminism is the speculative opening bid,
// which draws from the room's rng exactly as a human might shrug and bid.
const (
	premiumValueTier = 18
	goodValueTier    = 12
	cheapValueTier   = 10
	openingValueTier = 8
)

// Decide returns the CPU's bid for the current item, or ok=false to pass.
// Caller must hold room.mu.
func Decide(room *Room, cpu *Player) (int, bool) {
	minBid := room.HighBid + 1
	if minBid > cpu.Balance {
		return 0, false
	}
	value := room.ItemValue

	// On jackpot rounds the vault rides on the item, so mid-tier valuation
	// rules see the inflated worth.
	perceived := value
	if room.isJackpotRound() {
		perceived = value + room.Vault
	}

	// 1. Lethal: winning this item wins the game.
	if cpu.NetWorth+value >= room.WinThreshold {
		return boostedBid(minBid, cpu.Balance, 60), true
	}

	// 2. Block a leading human about to cross the threshold.
	if h := leadingHuman(room, cpu); h != nil && h.NetWorth+value >= room.WinThreshold {
		return boostedBid(minBid, cpu.Balance, 50), true
	}

	// 3. Block the closest rival of any kind.
	if r := closestRival(room, cpu); r != nil && r.NetWorth+value >= room.WinThreshold {
		return boostedBid(minBid, cpu.Balance, 40), true
	}

	// 4. Premium item within 85% of funds.
	if perceived >= premiumValueTier && minBid <= pctOf(cpu.Balance, 85) {
		return boostedBid(minBid, cpu.Balance, 15), true
	}

	// 5. Good value: mid-tier item at a >=1.5 value/cost ratio.
	if perceived >= goodValueTier && perceived*2 >= minBid*3 && minBid <= pctOf(cpu.Balance, 70) {
		return boostedBid(minBid, cpu.Balance, 10), true
	}

	// 6. Opening steal, or a 1-in-3 speculative opener on anything.
	if room.HighBid == 0 {
		if value >= openingValueTier {
			return minBid, true
		}
		if room.rng.Intn(3) == 0 {
			return minBid, true
		}
		return 0, false
	}

	// 7. Cheap pressure on a decent item.
	if minBid <= 3 && value >= cheapValueTier && minBid <= pctOf(cpu.Balance, 50) {
		return minBid, true
	}

	// 8. Endgame push once 60% of the way to the threshold.
	if cpu.NetWorth*100 >= room.WinThreshold*60 && value >= cheapValueTier && minBid+1 <= pctOf(cpu.Balance, 60) {
		return minBid + 1, true
	}

	// 9. Two-bidder squeeze at a high value/cost ratio.
	if room.activeBidders() == 2 && value >= 2*minBid && minBid <= pctOf(cpu.Balance, 50) {
		return minBid, true
	}

	return 0, false
}

func pctOf(n, pct int) int {
	return n * pct / 100
}

// boostedBid raises the minimum by a share of the player's funds, never past
// their balance.
func boostedBid(minBid, balance, pct int) int {
	bid := minBid + pctOf(balance, pct)
	if bid > balance {
		bid = balance
	}
	return bid
}

// leadingHuman returns the human (other than cpu) with the highest net worth.
func leadingHuman(room *Room, cpu *Player) *Player {
	var best *Player
	for _, p := range room.Players {
		if p.CPU || p.ID == cpu.ID {
			continue
		}
		if best == nil || p.NetWorth > best.NetWorth {
			best = p
		}
	}
	return best
}

// closestRival returns the non-self player with the highest net worth.
func closestRival(room *Room, cpu *Player) *Player {
	var best *Player
	for _, p := range room.Players {
		if p.ID == cpu.ID {
			continue
		}
		if best == nil || p.NetWorth > best.NetWorth {
			best = p
		}
	}
	return best
}
