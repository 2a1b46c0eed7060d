package game

import (
	"context"
)

// drawCards removes and returns the first n IDs from the pile. The pile is
// only mutated when the full draw can be satisfied, so a failed draw commits
// nothing.
func drawCards(pile *[]string, n int) ([]string, error) {
	if n < 0 {
		return nil, errf(KindValidation, "draw count must not be negative")
	}
	if len(*pile) < n {
		return nil, errf(KindInsufficientCards, "draw pile has %d cards, need %d", len(*pile), n)
	}
	drawn := make([]string, n)
	copy(drawn, (*pile)[:n])
	*pile = (*pile)[n:]
	return drawn, nil
}

// discardCards appends IDs to the back of a discard pile, preserving order.
func discardCards(pile *[]string, ids []string) {
	*pile = append(*pile, ids...)
}

// ReshuffleDiscards moves every discarded ID to the bottom of the matching
// draw pile, preserving relative order. Creator only, playing only.
func (m *Manager) ReshuffleDiscards(ctx context.Context, code, actorID string) error {
	return m.update(ctx, code, func(s *Session) error {
		if s.State.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		if actorID != s.State.CreatorID {
			return errf(KindUnauthorized, "only the game creator may reshuffle")
		}
		if len(s.Discard.Response) == 0 && len(s.Discard.Prompt) == 0 {
			return errf(KindInvalidState, "discard pile is empty")
		}
		s.Draw.Response = append(s.Draw.Response, s.Discard.Response...)
		s.Draw.Prompt = append(s.Draw.Prompt, s.Discard.Prompt...)
		s.Discard.Response = nil
		s.Discard.Prompt = nil
		s.State.notify("Discarded cards were shuffled back into the decks", nowUTC())
		return nil
	})
}
