package game

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog/log"
)

// The judge order is not a fixed round-robin: each judge nominates their
// successor and the engine infers a global cyclic order from the nomination
// sequence. The order locks the moment a nomination closes the cycle back to
// the first recorded judge. If that cycle missed somebody, the omitted
// players are held in Rotation.Skipped and locking is deferred until the
// creator places them.

// SetNextCzar records the current judge's nomination of the next judge.
func (m *Manager) SetNextCzar(ctx context.Context, code, actorID, nextID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		if actorID != st.JudgeID {
			return errf(KindUnauthorized, "only the current judge may nominate a successor")
		}
		next := st.player(nextID)
		if next == nil {
			return errf(KindNotFound, "player %s not found", nextID)
		}
		if next.IsBot {
			return errf(KindValidation, "the bot cannot judge")
		}
		if next.Paused {
			return errf(KindValidation, "%s is paused and cannot judge", next.Name)
		}
		if next.ID == st.JudgeID {
			return errf(KindValidation, "the judge cannot nominate themself")
		}

		rot := &st.Rotation
		if rot.Locked {
			// The order is fixed; a nomination is only a confirmation of
			// the cyclic successor.
			expected := nextCzarID(st)
			if nextID != expected {
				return errf(KindValidation, "judge order is locked; next judge is already determined")
			}
			rot.Next = nextID
			return nil
		}

		if !containsID(rot.Order, st.JudgeID) {
			rot.Order = append(rot.Order, st.JudgeID)
		}
		rot.Next = nextID

		// Nominating the first recorded judge closes the cycle.
		if len(rot.Order) > 0 && nextID == rot.Order[0] {
			if missing := missingFromOrder(st); len(missing) == 0 {
				rot.Locked = true
				rot.Skipped = nil
				log.Info().Str("code", s.Code).Int("players", len(rot.Order)).Msg("judge order locked")
			} else {
				rot.Skipped = missing
				st.notify("Some players were skipped in the judge order", nowUTC())
			}
		}
		return nil
	})
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// missingFromOrder lists the humans absent from the assembled order.
func missingFromOrder(st *State) []SkippedPlayer {
	placed := make(map[string]bool, len(st.Rotation.Order))
	for _, id := range st.Rotation.Order {
		placed[id] = true
	}
	var missing []SkippedPlayer
	for _, p := range st.humans() {
		if !placed[p.ID] {
			missing = append(missing, SkippedPlayer{ID: p.ID, Name: p.Name})
		}
	}
	return missing
}

// PlaceSkippedPlayer repairs an incomplete judge order by inserting a
// skipped player immediately before an already-placed one. Creator only.
// Once the order covers every current human it locks.
func (m *Manager) PlaceSkippedPlayer(ctx context.Context, code, actorID, skippedID, beforeID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		if actorID != st.CreatorID {
			return errf(KindUnauthorized, "only the game creator may place skipped players")
		}
		rot := &st.Rotation
		if rot.Locked || len(rot.Skipped) == 0 {
			return errf(KindInvalidState, "there are no skipped players to place")
		}

		idx := -1
		for i, sk := range rot.Skipped {
			if sk.ID == skippedID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return errf(KindValidation, "player %s is not in the skipped list", skippedID)
		}

		at := -1
		for i, id := range rot.Order {
			if id == beforeID {
				at = i
				break
			}
		}
		if at == -1 {
			return errf(KindValidation, "player %s is not in the judge order", beforeID)
		}

		rot.Order = append(rot.Order, "")
		copy(rot.Order[at+1:], rot.Order[at:])
		rot.Order[at] = skippedID
		rot.Skipped = append(rot.Skipped[:idx], rot.Skipped[idx+1:]...)

		if len(rot.Skipped) == 0 && len(missingFromOrder(st)) == 0 {
			rot.Locked = true
			rot.Skipped = nil
			log.Info().Str("code", s.Code).Msg("judge order repaired and locked")
		}
		return nil
	})
}

// nextCzarID walks the locked cyclic order from the current judge, skipping
// identities that have left or are paused. Empty when no eligible successor
// exists.
func nextCzarID(st *State) string {
	order := st.Rotation.Order
	if len(order) == 0 {
		return ""
	}
	start := 0
	for i, id := range order {
		if id == st.JudgeID {
			start = i
			break
		}
	}
	for step := 1; step <= len(order); step++ {
		id := order[(start+step)%len(order)]
		p := st.player(id)
		if p == nil || p.IsBot || p.Paused || id == st.JudgeID {
			continue
		}
		return id
	}
	return ""
}

// advanceJudge moves the judge role to the next player: a pending nomination
// wins, then the locked order, then a random eligible player (matching how
// the first judge is chosen).
func advanceJudge(st *State) {
	var nextID string
	if pending := st.Rotation.Next; pending != "" {
		if p := st.player(pending); p != nil && !p.IsBot && !p.Paused {
			nextID = pending
		}
	}
	if nextID == "" && st.Rotation.Locked {
		nextID = nextCzarID(st)
	}
	if nextID == "" {
		var pool []*Player
		for _, p := range st.Players {
			if !p.IsBot && !p.Paused && p.ID != st.JudgeID {
				pool = append(pool, p)
			}
		}
		if len(pool) == 0 {
			return // current judge stays; nobody else can take the role
		}
		nextID = pool[rand.Intn(len(pool))].ID
	}

	for _, p := range st.Players {
		p.IsJudge = p.ID == nextID
	}
	st.JudgeID = nextID
	st.Rotation.Next = ""
}

// removeFromRotation drops a departing player from the rotation bookkeeping.
// A locked order stays locked; nextCzarID skips absentees transparently, and
// scrubbing here just keeps the persisted document tidy.
func removeFromRotation(st *State, playerID string) {
	rot := &st.Rotation
	for i, id := range rot.Order {
		if id == playerID {
			rot.Order = append(rot.Order[:i], rot.Order[i+1:]...)
			break
		}
	}
	for i, sk := range rot.Skipped {
		if sk.ID == playerID {
			rot.Skipped = append(rot.Skipped[:i], rot.Skipped[i+1:]...)
			break
		}
	}
	if rot.Next == playerID {
		rot.Next = ""
	}
}
