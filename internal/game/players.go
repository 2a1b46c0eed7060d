package game

import (
	"context"

	"github.com/rs/zerolog/log"
)

// RemovePlayer takes a player out of the game. Players may always remove
// themselves; removing someone else is a creator privilege. Removing the
// active judge restarts the round so nobody is left waiting on a verdict
// that can never come.
func (m *Manager) RemovePlayer(ctx context.Context, code, actorID, targetID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase == PhaseFinished {
			return errf(KindInvalidState, "game is already finished")
		}
		target := st.player(targetID)
		if target == nil {
			return errf(KindNotFound, "player %s not found", targetID)
		}
		if actorID != targetID && actorID != st.CreatorID {
			return errf(KindUnauthorized, "only the game creator may remove other players")
		}
		if st.Phase == PhasePlaying && !target.IsBot && len(st.humans()) <= MinPlayers {
			return errf(KindValidation, "removing %s would leave fewer than %d players", target.Name, MinPlayers)
		}
		return s.removePlayer(m, target)
	})
}

// removePlayer applies the shared judge-aware removal path. Callers have
// already authorized the action and checked the player floor.
func (s *Session) removePlayer(m *Manager, target *Player) error {
	st := &s.State
	wasJudge := st.Phase == PhasePlaying && target.ID == st.JudgeID

	// The cyclic successor must be resolved while the departing judge is
	// still in the locked order; afterwards nextCzarID has no anchor.
	if wasJudge && st.Rotation.Locked && st.Rotation.Next == "" {
		st.Rotation.Next = nextCzarID(st)
	}

	// The leaver's submission is out of the round either way.
	if sub := st.submission(target.ID); sub != nil && !wasJudge {
		discardCards(&s.Discard.Response, sub.CardIDs)
		dropSubmission(st, target.ID)
	}
	discardCards(&s.Discard.Response, target.Hand)
	target.Hand = nil

	removeFromRotation(st, target.ID)
	for i, p := range st.Players {
		if p.ID == target.ID {
			st.Players = append(st.Players[:i], st.Players[i+1:]...)
			break
		}
	}
	for i, v := range st.SkipVotes {
		if v == target.ID {
			st.SkipVotes = append(st.SkipVotes[:i], st.SkipVotes[i+1:]...)
			break
		}
	}

	if target.ID == st.CreatorID {
		if next := firstHuman(st); next != nil {
			st.CreatorID = next.ID
			next.IsCreator = true
			st.notify(next.Name+" is the new host", nowUTC())
		}
	}

	st.notify(target.Name+" left the game", nowUTC())
	log.Info().Str("code", s.Code).Str("player", target.Name).Msg("player removed")

	if wasJudge {
		return s.resetRound(m)
	}
	return nil
}

// resetRound restarts the current round after the judge role was vacated
// mid-round: submitted cards go back to their owners, a fresh prompt is
// drawn and a new judge takes over. The round number does not change.
func (s *Session) resetRound(m *Manager) error {
	st := &s.State
	for _, sub := range st.Submissions {
		owner := st.player(sub.PlayerID)
		if owner == nil || owner.IsBot {
			// Departed owners and the bot have no hand to return to.
			discardCards(&s.Discard.Response, sub.CardIDs)
			continue
		}
		owner.Hand = append(owner.Hand, sub.CardIDs...)
	}
	st.Submissions = []Submission{}
	st.SkipVotes = nil
	st.EarlyReview = false

	if st.Prompt != nil {
		discardCards(&s.Discard.Prompt, []string{st.Prompt.ID})
		st.Prompt = nil
	}
	if len(s.Draw.Prompt) == 0 {
		winner := ""
		if top := topScorer(st); top != nil {
			winner = top.ID
		}
		finish(st, winner, EndNoPromptCards)
		return nil
	}

	advanceJudge(st)
	judge := st.player(st.JudgeID)
	if judge == nil || judge.IsBot || judge.Paused {
		return errf(KindValidation, "no active player can take over as judge")
	}
	prompt, err := drawCards(&s.Draw.Prompt, 1)
	if err != nil {
		return err
	}
	st.Prompt = m.hydratePrompt(prompt[0])
	s.botSubmit()
	st.notify("The round was restarted with a new judge", nowUTC())
	return nil
}

func dropSubmission(st *State, playerID string) {
	for i := range st.Submissions {
		if st.Submissions[i].PlayerID == playerID {
			st.Submissions = append(st.Submissions[:i], st.Submissions[i+1:]...)
			return
		}
	}
}

func firstHuman(st *State) *Player {
	for _, p := range st.Players {
		if !p.IsBot {
			return p
		}
	}
	return nil
}

// TogglePlayerPause pauses or resumes a player. Self-service for everyone;
// pausing somebody else needs the creator. A paused judge cannot resolve the
// round, so pausing the judge restarts it under a new one.
func (m *Manager) TogglePlayerPause(ctx context.Context, code, actorID, targetID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase == PhaseFinished {
			return errf(KindInvalidState, "game is already finished")
		}
		target := st.player(targetID)
		if target == nil {
			return errf(KindNotFound, "player %s not found", targetID)
		}
		if target.IsBot {
			return errf(KindValidation, "the bot cannot be paused")
		}
		if actorID != targetID && actorID != st.CreatorID {
			return errf(KindUnauthorized, "only the game creator may pause other players")
		}

		target.Paused = !target.Paused
		if target.Paused {
			st.notify(target.Name+" is away", nowUTC())
			if st.Phase == PhasePlaying && target.ID == st.JudgeID {
				target.IsJudge = false
				return s.resetRound(m)
			}
		} else {
			st.notify(target.Name+" is back", nowUTC())
		}
		return nil
	})
}

// VoteToSkipCzar toggles the caller's skip vote. Two distinct votes hand the
// judge role to the next player in rotation without restarting the round.
func (m *Manager) VoteToSkipCzar(ctx context.Context, code, voterID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		voter := st.player(voterID)
		if voter == nil {
			return errf(KindNotFound, "player %s not found", voterID)
		}
		if voter.IsBot || voter.Paused {
			return errf(KindValidation, "only active players may vote")
		}
		if voter.ID == st.JudgeID {
			return errf(KindValidation, "the judge cannot vote to skip themself")
		}

		for i, v := range st.SkipVotes {
			if v == voterID {
				// Second call from the same voter is a toggle-off.
				st.SkipVotes = append(st.SkipVotes[:i], st.SkipVotes[i+1:]...)
				return nil
			}
		}
		st.SkipVotes = append(st.SkipVotes, voterID)
		if len(st.SkipVotes) < skipVoteThreshold {
			return nil
		}

		skipped := st.player(st.JudgeID)
		advanceJudge(st)
		if skipped != nil {
			skipped.IsJudge = false
		}
		// The incoming judge may have already answered this prompt; the
		// judge never appears in the submissions.
		if sub := st.submission(st.JudgeID); sub != nil {
			if p := st.player(st.JudgeID); p != nil {
				p.Hand = append(p.Hand, sub.CardIDs...)
			}
			dropSubmission(st, st.JudgeID)
		}
		st.SkipVotes = nil
		st.notify("The judge was skipped by vote", nowUTC())
		log.Info().Str("code", s.Code).Msg("judge skipped by vote")
		return nil
	})
}

// TransferHost hands the creator role to another player, optionally removing
// the old host in the same transition.
func (m *Manager) TransferHost(ctx context.Context, code, actorID, newHostID string, removeOldHost bool) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase == PhaseFinished {
			return errf(KindInvalidState, "game is already finished")
		}
		if actorID != st.CreatorID {
			return errf(KindUnauthorized, "only the current host may transfer the game")
		}
		next := st.player(newHostID)
		if next == nil {
			return errf(KindNotFound, "player %s not found", newHostID)
		}
		if next.IsBot {
			return errf(KindValidation, "the bot cannot host")
		}
		if next.ID == actorID {
			return errf(KindValidation, "you are already the host")
		}
		old := st.player(actorID)
		if removeOldHost && st.Phase == PhasePlaying && len(st.humans()) <= MinPlayers {
			return errf(KindValidation, "removing the host would leave fewer than %d players", MinPlayers)
		}

		st.CreatorID = next.ID
		for _, p := range st.Players {
			p.IsCreator = p.ID == next.ID
		}
		st.notify(next.Name+" is the new host", nowUTC())

		if removeOldHost && old != nil {
			return s.removePlayer(m, old)
		}
		return nil
	})
}

// RefreshPlayerHand swaps the caller's entire hand for fresh cards. Gated to
// once per game unless the session allows unlimited refreshes.
func (m *Manager) RefreshPlayerHand(ctx context.Context, code, actorID string) error {
	return m.update(ctx, code, func(s *Session) error {
		st := &s.State
		if st.Phase != PhasePlaying {
			return errf(KindInvalidState, "game is not in progress")
		}
		p := st.player(actorID)
		if p == nil {
			return errf(KindNotFound, "player %s not found", actorID)
		}
		if p.IsBot {
			return errf(KindValidation, "the bot holds no hand")
		}
		if !st.Settings.UnlimitedHandRefresh && p.HandRefreshed {
			return errf(KindInvalidState, "hand refresh already used")
		}
		n := len(p.Hand)
		if len(s.Draw.Response) < n {
			return errf(KindInsufficientCards, "need %d response cards, pool has %d", n, len(s.Draw.Response))
		}
		old := p.Hand
		drawn, err := drawCards(&s.Draw.Response, n)
		if err != nil {
			return err
		}
		discardCards(&s.Discard.Response, old)
		p.Hand = drawn
		p.HandRefreshed = true
		return nil
	})
}
