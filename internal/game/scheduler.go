package game

import "time"

// fingerprint pins a scheduled action to the room state it was armed under.
// A firing whose captured fingerprint no longer matches the live room (round
// advanced, turn moved, room finished) is a silent no-op. This is the only
// defense against a delayed callback mutating state that a real player action
// has already moved past.
type fingerprint struct {
	code  string
	round int
	turn  int
}

// The scheduling helpers require room.mu to be held by the caller.

func (r *Room) fingerprint() fingerprint {
	return fingerprint{code: r.Code, round: r.RoundNumber, turn: r.CurrentIndex}
}

// arm schedules fn to run under the room lock after d. At most one timer is
// armed per room: arming replaces whatever was pending.
func (e *Engine) arm(room *Room, d time.Duration, fn func(*Room)) {
	if room.timer != nil {
		room.timer.Stop()
	}
	fp := room.fingerprint()
	var tm *time.Timer
	tm = time.AfterFunc(d, func() {
		room.mu.Lock()
		defer room.mu.Unlock()
		if room.timer == tm {
			room.timer = nil
		}
		if room.Finished || room.fingerprint() != fp {
			return
		}
		fn(room)
	})
	room.timer = tm
}

func (e *Engine) cancelTimer(room *Room) {
	if room.timer != nil {
		room.timer.Stop()
		room.timer = nil
	}
}
