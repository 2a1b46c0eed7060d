package game

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Submit records one player's answer for the current prompt, moving the
// cards out of their hand and into the active submissions.
func (m *Manager) Submit(ctx context.Context, code, actorID string, cardIDs []string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		p := st.player(actorID)
		if p == nil {
			return errf(KindNotFound, "player %s not found", actorID)
		}
		if p.ID == st.JudgeID {
			return errf(KindUnauthorized, "the judge cannot submit cards")
		}
		if p.IsBot {
			return errf(KindValidation, "the bot submits on its own")
		}
		if p.Paused {
			return errf(KindInvalidState, "paused players cannot submit")
		}
		if st.submission(p.ID) != nil {
			return errf(KindInvalidState, "you already submitted this round")
		}
		if st.Prompt == nil {
			return errf(KindInvalidState, "no prompt is active")
		}
		if len(cardIDs) != st.Prompt.Blanks {
			return errf(KindValidation, "prompt needs %d cards, got %d", st.Prompt.Blanks, len(cardIDs))
		}

		// Validate the whole submission against the hand before touching it.
		ids := append([]string(nil), cardIDs...)
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				return errf(KindValidation, "duplicate card in submission")
			}
			seen[id] = true
			if !containsID(p.Hand, id) {
				return errf(KindValidation, "card %s is not in your hand", id)
			}
		}

		kept := make([]string, 0, len(p.Hand)-len(ids))
		for _, id := range p.Hand {
			if !seen[id] {
				kept = append(kept, id)
			}
		}
		p.Hand = kept
		st.Submissions = append(st.Submissions, Submission{PlayerID: p.ID, CardIDs: ids})
		return nil
	})
}

// ForceEarlyReview lets the judge proceed before everyone has submitted.
// One-shot per round; recorded as a flag plus a notification, not a phase.
func (m *Manager) ForceEarlyReview(ctx context.Context, code, actorID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		if actorID != st.JudgeID {
			return errf(KindUnauthorized, "only the judge may start an early review")
		}
		if st.EarlyReview {
			return errf(KindInvalidState, "review has already started")
		}
		if len(st.Submissions) == 0 {
			return errf(KindInvalidState, "no submissions to review yet")
		}
		st.EarlyReview = true
		st.notify("The judge is reviewing submissions early", nowUTC())
		return nil
	})
}

// PickWinner records the judge's choice, bumps the winner's score and
// freezes the round into history. Submissions stay visible until the round
// is advanced.
func (m *Manager) PickWinner(ctx context.Context, code, actorID, winnerID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		if actorID != st.JudgeID {
			return errf(KindUnauthorized, "only the judge may pick a winner")
		}
		if len(st.Submissions) == 0 {
			return errf(KindInvalidState, "no submissions to judge")
		}
		if roundResolved(s) {
			return errf(KindInvalidState, "a winner was already picked this round")
		}
		winner := st.player(winnerID)
		if winner == nil || st.submission(winnerID) == nil {
			return errf(KindNotFound, "player %s did not submit this round", winnerID)
		}

		winner.Score++
		frozen := make([]Submission, len(st.Submissions))
		copy(frozen, st.Submissions)
		s.History = append(s.History, HistoryEntry{
			Round:       st.Round,
			JudgeID:     st.JudgeID,
			WinnerID:    winnerID,
			Prompt:      *st.Prompt,
			Submissions: frozen,
		})
		st.notify(winner.Name+" won the round", nowUTC())
		log.Info().Str("code", s.Code).Int("round", st.Round).Str("winner", winner.Name).Msg("round won")
		return nil
	})
}

// roundResolved reports whether the current round already has a history
// entry, i.e. a winner was picked.
func roundResolved(s *Session) bool {
	n := len(s.History)
	return n > 0 && s.History[n-1].Round == s.State.Round
}

// AdvanceRound closes the judged round and deals the next one: spent cards
// go to the discard piles, hands refill, a fresh prompt is drawn and the
// judge role moves on. End-of-game conditions are checked here.
func (m *Manager) AdvanceRound(ctx context.Context, code, actorID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		if actorID != st.JudgeID && actorID != st.CreatorID {
			return errf(KindUnauthorized, "only the judge or the creator may advance the round")
		}
		if !roundResolved(s) {
			return errf(KindInvalidState, "pick a winner before advancing")
		}

		// Spent cards out of play first.
		if st.Prompt != nil {
			discardCards(&s.Discard.Prompt, []string{st.Prompt.ID})
			st.Prompt = nil
		}
		for _, sub := range st.Submissions {
			discardCards(&s.Discard.Response, sub.CardIDs)
		}
		st.Submissions = []Submission{}
		st.SkipVotes = nil
		st.EarlyReview = false

		// Highest score takes the game once the configured target is hit.
		// The bot counts like everyone else.
		for _, p := range st.Players {
			if p.Score >= st.Settings.MaxScore {
				finish(st, p.ID, EndMaxScoreReached)
				log.Info().Str("code", s.Code).Str("winner", p.Name).Msg("game finished: max score")
				return nil
			}
		}

		if len(s.Draw.Prompt) == 0 {
			winner := ""
			if top := topScorer(st); top != nil {
				winner = top.ID
			}
			finish(st, winner, EndNoPromptCards)
			log.Info().Str("code", s.Code).Msg("game finished: prompt deck exhausted")
			return nil
		}

		advanceJudge(st)

		if err := s.refillHands(); err != nil {
			return err
		}

		prompt, err := drawCards(&s.Draw.Prompt, 1)
		if err != nil {
			return err
		}
		st.Prompt = m.hydratePrompt(prompt[0])
		st.Round++
		s.botSubmit()
		return nil
	})
}

// refillHands tops every non-judge human hand back up to the configured
// size. The whole refill is checked against the pile before any card moves,
// so a shortage aborts with no side effects.
func (s *Session) refillHands() error {
	st := &s.State
	needed := 0
	for _, p := range st.humans() {
		if p.ID == st.JudgeID {
			continue
		}
		if short := st.Settings.HandSize - len(p.Hand); short > 0 {
			needed += short
		}
	}
	if len(s.Draw.Response) < needed {
		return errf(KindInsufficientCards, "need %d response cards to refill hands, pool has %d", needed, len(s.Draw.Response))
	}
	for _, p := range st.humans() {
		if p.ID == st.JudgeID {
			continue
		}
		short := st.Settings.HandSize - len(p.Hand)
		if short <= 0 {
			continue
		}
		drawn, err := drawCards(&s.Draw.Response, short)
		if err != nil {
			return err
		}
		p.Hand = append(p.Hand, drawn...)
	}
	return nil
}
