package game

import (
	"errors"
	"math"

	"github.com/rs/zerolog/log"
)

var (
	ErrSelfBribe       = errors.New("cannot bribe yourself")
	ErrBribeOutOfRange = errors.New("bribe amount out of range")
	ErrSurchargeCapped = errors.New("target surcharge already at cap")
	ErrLoanNotNeeded   = errors.New("balance too high for a loan")
	ErrLoanOutstanding = errors.New("loan already outstanding")
	ErrVaultTooSmall   = errors.New("vault cannot fund a loan")
	ErrNoTaxationWait  = errors.New("no taxation confirmation pending")
)

func (e *Engine) checkRage(room *Room) error {
	if room.Mode != ModeRage {
		return ErrClassicMode
	}
	if !room.Started {
		return ErrRoomNotStarted
	}
	if room.Finished {
		return ErrRoomFinished
	}
	return nil
}

// BribePlayer pays bribe units into the vault to raise the target's tax
// surcharge by 10% per unit, capped at 40%. The requested amount is clamped
// to the cap room; only the effective units are charged. The published event
// names the target but not the briber.
func (e *Engine) BribePlayer(code, briberID, targetID string, amount int) error {
	return e.withRoom(code, func(room *Room) error {
		if err := e.checkRage(room); err != nil {
			return err
		}
		if briberID == targetID {
			return ErrSelfBribe
		}
		if amount < 1 || amount > maxBribeUnits {
			return ErrBribeOutOfRange
		}
		briber := room.playerByID(briberID)
		target := room.playerByID(targetID)
		if briber == nil || target == nil {
			return ErrPlayerNotFound
		}
		if err := e.bribe(room, briber, target, amount); err != nil {
			return err
		}
		e.publishState(room)
		return nil
	})
}

// bribe requires room.mu. Shared by the public operation and pre-round CPU
// actions.
func (e *Engine) bribe(room *Room, briber, target *Player, units int) error {
	capRoom := (surchargeCap - target.SurchargePercent) / surchargePerBribeUnit
	if capRoom <= 0 {
		return ErrSurchargeCapped
	}
	if units > capRoom {
		units = capRoom
	}
	if briber.Balance < units {
		return ErrInsufficientFunds
	}
	briber.Balance -= units
	room.Vault += units
	target.SurchargePercent += units * surchargePerBribeUnit

	e.publisher.PublishEvent(room.Code, Event{Type: EventBribe, Payload: map[string]any{
		"target": target.DisplayName,
		"units":  units,
		"vault":  room.Vault,
	}})
	return nil
}

// TakeLoan lends a fixed 5 from the vault to a nearly broke player in
// exchange for an immediate net-worth penalty.
func (e *Engine) TakeLoan(code, playerID string) error {
	return e.withRoom(code, func(room *Room) error {
		if err := e.checkRage(room); err != nil {
			return err
		}
		p := room.playerByID(playerID)
		if p == nil {
			return ErrPlayerNotFound
		}
		if err := e.takeLoan(room, p); err != nil {
			return err
		}
		e.publishState(room)
		return nil
	})
}

// takeLoan requires room.mu.
func (e *Engine) takeLoan(room *Room, p *Player) error {
	if p.Balance >= loanMaxBalance {
		return ErrLoanNotNeeded
	}
	if p.HasActiveLoan {
		return ErrLoanOutstanding
	}
	if room.Vault < loanAmount {
		return ErrVaultTooSmall
	}
	p.Balance += loanAmount
	room.Vault -= loanAmount
	penalty := int(math.Round(float64(p.NetWorth) * 0.35))
	if penalty < 3 {
		penalty = 3
	}
	p.NetWorth -= penalty
	if p.NetWorth < 0 {
		p.NetWorth = 0
	}
	p.HasActiveLoan = true

	e.publisher.PublishEvent(room.Code, Event{Type: EventLoan, Payload: map[string]any{
		"player":  p.DisplayName,
		"penalty": penalty,
		"vault":   room.Vault,
	}})
	return nil
}

// executeTaxationPhase levies every player, then pauses the game until all
// humans confirm or the fallback timer forces continuation. Runs under
// room.mu via the scheduler.
func (e *Engine) executeTaxationPhase(room *Room) {
	collected := 0
	for _, p := range room.Players {
		pct := taxBasePercent + p.SurchargePercent
		tax := p.NetWorth * pct / 100
		if tax > p.Balance {
			tax = p.Balance
		}
		p.Balance -= tax
		room.Vault += tax
		collected += tax
		p.SurchargePercent = 0
		p.HasActiveLoan = false
	}

	room.WaitingForTax = true
	room.TaxConfirmedByID = make(map[string]struct{})
	for _, p := range room.Players {
		if p.CPU || !p.Connected {
			room.TaxConfirmedByID[p.ID] = struct{}{}
		}
	}

	e.publisher.PublishEvent(room.Code, Event{Type: EventTaxation, Payload: map[string]any{
		"collected": collected,
		"vault":     room.Vault,
	}})
	e.publishState(room)
	log.Info().Str("room", room.Code).Int("collected", collected).Int("vault", room.Vault).Msg("taxation phase")

	if room.allTaxConfirmed() {
		e.finishTaxation(room)
		return
	}
	e.arm(room, e.timing.TaxConfirmFallback, e.finishTaxation)
}

// ConfirmTax records a player's confirmation; the round restarts once every
// human has confirmed (CPUs auto-confirm at levy time).
func (e *Engine) ConfirmTax(code, playerID string) error {
	return e.withRoom(code, func(room *Room) error {
		if !room.WaitingForTax {
			return ErrNoTaxationWait
		}
		if room.playerByID(playerID) == nil {
			return ErrPlayerNotFound
		}
		room.TaxConfirmedByID[playerID] = struct{}{}
		if room.allTaxConfirmed() {
			e.finishTaxation(room)
		}
		return nil
	})
}

// finishTaxation requires room.mu. Also the fallback timer's target.
func (e *Engine) finishTaxation(room *Room) {
	room.WaitingForTax = false
	e.startRound(room)
}

// payJackpot requires room.mu. On every 11th round the winner drains a capped
// share of the vault on top of the item itself.
func (e *Engine) payJackpot(room *Room, winner *Player) {
	payout := room.Vault
	if payout > jackpotPayoutCap {
		payout = jackpotPayoutCap
	}
	room.Vault -= payout
	winner.Balance += payout
	e.publisher.PublishEvent(room.Code, Event{Type: EventJackpot, Payload: map[string]any{
		"winner": winner.DisplayName,
		"payout": payout,
		"vault":  room.Vault,
	}})
}

// preRoundRageActions lets CPU players use the rage economy before bidding
// opens: take a loan when broke, otherwise occasionally bribe the net-worth
// leader. Requires room.mu.
func (e *Engine) preRoundRageActions(room *Room) {
	for _, p := range room.Players {
		if !p.CPU {
			continue
		}
		if p.Balance < loanMaxBalance && !p.HasActiveLoan && room.Vault >= loanAmount {
			_ = e.takeLoan(room, p)
			continue
		}
		if p.Balance < 1 || room.rng.Intn(4) != 0 {
			continue
		}
		if leader := room.netWorthLeader(p.ID); leader != nil {
			_ = e.bribe(room, p, leader, 1)
		}
	}
}
