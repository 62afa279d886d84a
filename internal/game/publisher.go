package game

// Publisher delivers redacted snapshots and discrete events to viewers. The
// engine calls it while holding the room lock, so implementations must not
// block (the websocket server hands frames to per-client buffered channels).
type Publisher interface {
	PublishState(code, viewerID string, state Snapshot)
	PublishEvent(code string, event Event)
}

const (
	EventGameStarted   = "gameStarted"
	EventRoundResult   = "roundResult"
	EventWinner        = "winner"
	EventRoomDiscarded = "roomDiscarded"
	EventBribe         = "bribe"
	EventLoan          = "loan"
	EventTaxation      = "taxation"
	EventJackpot       = "jackpot"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// PlayerView is one player as seen by a particular viewer. Balance is the
// number for the viewer's own entry and "???" for everyone else.
type PlayerView struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	NetWorth         int    `json:"netWorth"`
	CPU              bool   `json:"cpu"`
	Passed           bool   `json:"passed"`
	Connected        bool   `json:"connected"`
	Balance          any    `json:"balance"`
	IsYou            bool   `json:"isYou"`
	SurchargePercent int    `json:"surchargePercent,omitempty"`
}

type Snapshot struct {
	RoomCode            string       `json:"roomCode"`
	Mode                Mode         `json:"mode"`
	HostID              string       `json:"hostId"`
	Started             bool         `json:"started"`
	Finished            bool         `json:"finished"`
	WinnerID            string       `json:"winnerId,omitempty"`
	WinThreshold        int          `json:"winThreshold"`
	StartingBalance     int          `json:"startingBalance"`
	RoundNumber         int          `json:"roundNumber"`
	ItemValue           int          `json:"itemValue"`
	HighBid             int          `json:"currentHighBid"`
	HighBidderID        string       `json:"currentHighBidderId,omitempty"`
	CurrentTurnPlayerID string       `json:"currentTurnPlayerId,omitempty"`
	Vault               int          `json:"vault"`
	WaitingForTax       bool         `json:"waitingForTaxConfirmation"`
	IsSpectator         bool         `json:"isSpectator"`
	Players             []PlayerView `json:"players"`
}

// snapshot builds the viewer's redacted view. Caller must hold room.mu.
func snapshot(room *Room, viewerID string) Snapshot {
	s := Snapshot{
		RoomCode:        room.Code,
		Mode:            room.Mode,
		HostID:          room.HostID,
		Started:         room.Started,
		Finished:        room.Finished,
		WinnerID:        room.WinnerID,
		WinThreshold:    room.WinThreshold,
		StartingBalance: room.StartingBalance,
		RoundNumber:     room.RoundNumber,
		ItemValue:       room.ItemValue,
		HighBid:         room.HighBid,
		HighBidderID:    room.HighBidderID,
		Vault:           room.Vault,
		WaitingForTax:   room.WaitingForTax,
	}
	if _, ok := room.Spectators[viewerID]; ok {
		s.IsSpectator = true
	}
	if room.Started && !room.Finished {
		if cur := room.currentPlayer(); cur != nil {
			s.CurrentTurnPlayerID = cur.ID
		}
	}
	for _, p := range room.Players {
		view := PlayerView{
			ID:               p.ID,
			DisplayName:      p.DisplayName,
			NetWorth:         p.NetWorth,
			CPU:              p.CPU,
			Passed:           p.Passed,
			Connected:        p.Connected,
			SurchargePercent: p.SurchargePercent,
		}
		if p.ID == viewerID {
			view.Balance = p.Balance
			view.IsYou = true
		} else {
			view.Balance = "???"
		}
		s.Players = append(s.Players, view)
	}
	return s
}
